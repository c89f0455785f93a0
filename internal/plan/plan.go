// Package plan builds the randomized trial sequence of a session from a
// factorial design.
package plan

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"fitts-go/internal/models"
)

// ErrInvalidConfiguration is returned when a design cannot produce a plan.
var ErrInvalidConfiguration = errors.New("invalid configuration")

// Source is a source of uniformly distributed integers in [0, n).
// *rand.Rand satisfies it.
type Source interface {
	Intn(n int) int
}

// NewSource returns a deterministic source for the given seed.
func NewSource(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

// NewRandomSource returns a source seeded from the wall clock.
func NewRandomSource() *rand.Rand {
	return NewSource(time.Now().UnixNano())
}

// Validate checks that every factor is non-empty, duplicate free and in range.
func Validate(d models.Design) error {
	if d.Repetitions <= 0 {
		return fmt.Errorf("%w: repetitions must be positive, got %d", ErrInvalidConfiguration, d.Repetitions)
	}
	if err := validateFactor("sizes", d.Sizes); err != nil {
		return err
	}
	if err := validateFactor("distances", d.Distances); err != nil {
		return err
	}
	if len(d.Directions) == 0 {
		return fmt.Errorf("%w: directions must not be empty", ErrInvalidConfiguration)
	}
	seen := make(map[models.Direction]struct{}, len(d.Directions))
	for _, dir := range d.Directions {
		if !dir.Valid() {
			return fmt.Errorf("%w: unknown direction %q", ErrInvalidConfiguration, dir)
		}
		if _, dup := seen[dir]; dup {
			return fmt.Errorf("%w: duplicate direction %q", ErrInvalidConfiguration, dir)
		}
		seen[dir] = struct{}{}
	}
	return nil
}

func validateFactor(name string, values []float64) error {
	if len(values) == 0 {
		return fmt.Errorf("%w: %s must not be empty", ErrInvalidConfiguration, name)
	}
	seen := make(map[float64]struct{}, len(values))
	for _, v := range values {
		if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s must be positive, got %v", ErrInvalidConfiguration, name, v)
		}
		if _, dup := seen[v]; dup {
			return fmt.Errorf("%w: duplicate value %v in %s", ErrInvalidConfiguration, v, name)
		}
		seen[v] = struct{}{}
	}
	return nil
}

// Generate crosses sizes, distances and directions, repeats every
// combination d.Repetitions times and shuffles the result with rng.
// The same rng sequence always yields the same plan.
func Generate(d models.Design, rng Source) (models.TrialPlan, error) {
	if err := Validate(d); err != nil {
		return nil, err
	}
	if rng == nil {
		return nil, fmt.Errorf("%w: nil random source", ErrInvalidConfiguration)
	}

	trials := make(models.TrialPlan, 0, d.TrialCount())
	for _, size := range d.Sizes {
		for _, distance := range d.Distances {
			for _, dir := range d.Directions {
				cfg := models.TrialConfig{TargetSize: size, Distance: distance, Direction: dir}
				for r := 0; r < d.Repetitions; r++ {
					trials = append(trials, cfg)
				}
			}
		}
	}

	shuffle(trials, rng)
	return trials, nil
}

// shuffle is a Fisher-Yates shuffle: walking down from the last index,
// swap each slot with one drawn uniformly from [0, i].
func shuffle(trials models.TrialPlan, rng Source) {
	for i := len(trials) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		trials[i], trials[j] = trials[j], trials[i]
	}
}
