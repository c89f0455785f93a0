package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"fitts-go/internal/models"
)

func TestTrackerAccumulatesSegments(t *testing.T) {
	var tr Tracker
	tr.Reset(models.Position{X: 0, Y: 0})

	assert.InDelta(t, 5.0, tr.Move(models.Position{X: 3, Y: 4}), 1e-9)
	assert.InDelta(t, 5.0, tr.Move(models.Position{X: 3, Y: 9}), 1e-9)

	// |AB| + |BC|, not |AC| (which would be ~9.49).
	assert.InDelta(t, 10.0, tr.PathLength(), 1e-9)
	assert.Equal(t, models.Position{X: 3, Y: 9}, tr.Last())
}

func TestTrackerZeroDisplacement(t *testing.T) {
	var tr Tracker
	tr.Reset(models.Position{X: 10, Y: 10})
	tr.Move(models.Position{X: 10, Y: 10})
	tr.Move(models.Position{X: 10, Y: 10})
	assert.Zero(t, tr.PathLength())
}

func TestTrackerResetClearsTrial(t *testing.T) {
	var tr Tracker
	tr.Reset(models.Position{})
	tr.Move(models.Position{X: 100})
	tr.Miss()
	tr.Miss()
	assert.Equal(t, 2, tr.Errors())

	tr.Reset(models.Position{X: 50, Y: 50})
	assert.Zero(t, tr.PathLength())
	assert.Zero(t, tr.Errors())

	tr.Move(models.Position{X: 50, Y: 60})
	assert.InDelta(t, 10.0, tr.PathLength(), 1e-9)
}
