// Package metrics measures pointer behaviour during a trial.
//
// Path length is the sum of straight-line distances between consecutive
// reported pointer positions. Motion between two samples is assumed to be
// a straight segment, so curved movement is underestimated, and the error
// grows as the pointer sampling rate drops. The figure is meant for
// comparing trials recorded on the same setup, not as a true path integral.
package metrics

import (
	"math"

	"fitts-go/internal/models"
)

// Tracker accumulates cursor travel and mis-clicks for one trial.
// The zero value is a tracker at the origin with nothing recorded.
type Tracker struct {
	last   models.Position
	path   float64
	errors int
}

// Reset starts a new trial with origin as the first pointer sample.
func (t *Tracker) Reset(origin models.Position) {
	t.last = origin
	t.path = 0
	t.errors = 0
}

// Move records a pointer sample and returns the distance it added.
func (t *Tracker) Move(p models.Position) float64 {
	d := distance(t.last, p)
	t.path += d
	t.last = p
	return d
}

// Miss counts a click that landed outside the target.
func (t *Tracker) Miss() {
	t.errors++
}

// PathLength is the accumulated travel in pixels.
func (t *Tracker) PathLength() float64 {
	return t.path
}

// Errors is the number of mis-clicks since the last Reset.
func (t *Tracker) Errors() int {
	return t.errors
}

// Last is the most recent pointer sample.
func (t *Tracker) Last() models.Position {
	return t.last
}

func distance(a, b models.Position) float64 {
	return math.Hypot(b.X-a.X, b.Y-a.Y)
}
