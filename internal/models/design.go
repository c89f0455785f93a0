// design.go
package models

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Direction is the side of the start point the target appears on.
type Direction string

const (
	DirectionLeft  Direction = "left"
	DirectionRight Direction = "right"
)

// Valid reports whether d is one of the known directions.
func (d Direction) Valid() bool {
	return d == DirectionLeft || d == DirectionRight
}

// Sign returns -1 for left and +1 for right, for placing the target
// relative to the center of the screen.
func (d Direction) Sign() float64 {
	if d == DirectionLeft {
		return -1
	}
	return 1
}

// ParseDirection accepts a direction case-insensitively ("LEFT", "Left", "left").
func ParseDirection(s string) (Direction, error) {
	dir := Direction(strings.ToLower(strings.TrimSpace(s)))
	if !dir.Valid() {
		return "", fmt.Errorf("unknown direction %q", s)
	}
	return dir, nil
}

func (d *Direction) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	dir, err := ParseDirection(raw)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*d = dir
	return nil
}

// Design is one factorial experiment design: every size is crossed with
// every distance and direction, and each combination is repeated.
type Design struct {
	Name        string      `yaml:"name" mapstructure:"name" json:"name"`
	Description string      `yaml:"description,omitempty" mapstructure:"description" json:"description,omitempty"`
	Sizes       []float64   `yaml:"sizes" mapstructure:"sizes" json:"sizes"`
	Distances   []float64   `yaml:"distances" mapstructure:"distances" json:"distances"`
	Directions  []Direction `yaml:"directions" mapstructure:"directions" json:"directions"`
	Repetitions int         `yaml:"repetitions" mapstructure:"repetitions" json:"repetitions"`
}

// TrialCount is the length of the plan generated from the design.
func (d Design) TrialCount() int {
	return len(d.Sizes) * len(d.Distances) * len(d.Directions) * d.Repetitions
}

// Catalogue holds the designs a session may be started with.
type Catalogue struct {
	Designs []Design `yaml:"designs"`
}

// Find returns the design with the given name.
func (c *Catalogue) Find(name string) (Design, bool) {
	if c == nil {
		return Design{}, false
	}
	for _, d := range c.Designs {
		if d.Name == name {
			return d, true
		}
	}
	return Design{}, false
}

// LoadCatalogue reads and parses a designs YAML file.
func LoadCatalogue(path string) (*Catalogue, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read designs file: %w", err)
	}

	var catalogue Catalogue
	if err := yaml.Unmarshal(data, &catalogue); err != nil {
		return nil, fmt.Errorf("failed to unmarshal designs YAML: %w", err)
	}

	seen := make(map[string]struct{}, len(catalogue.Designs))
	for _, d := range catalogue.Designs {
		if d.Name == "" {
			return nil, fmt.Errorf("design without a name in %s", path)
		}
		if _, dup := seen[d.Name]; dup {
			return nil, fmt.Errorf("duplicate design %q in %s", d.Name, path)
		}
		seen[d.Name] = struct{}{}
	}

	return &catalogue, nil
}
