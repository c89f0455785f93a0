// Package session implements the per-participant trial lifecycle:
// idle -> armed -> active -> feedback -> armed ... -> completed.
//
// A Session is not safe for concurrent use; callers deliver events one at
// a time.
package session

import (
	"errors"
	"fmt"
	"math"
	"time"

	"fitts-go/internal/metrics"
	"fitts-go/internal/models"
)

// ErrInvalidTransition is returned when an operation is called in a state
// that does not accept it.
var ErrInvalidTransition = errors.New("invalid transition")

// Session drives one participant through a trial plan.
type Session struct {
	now func() time.Time

	state         models.State
	participantID string
	plan          models.TrialPlan
	index         int
	results       []models.TrialRecord

	started time.Time
	tracker metrics.Tracker
}

// Option configures a Session.
type Option func(*Session)

// WithClock replaces time.Now as the trial timer.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

// New returns an idle session.
func New(opts ...Option) *Session {
	s := &Session{
		now:   time.Now,
		state: models.StateIdle,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Session) transitionError(op string) error {
	return fmt.Errorf("%w: %s in state %s", ErrInvalidTransition, op, s.state)
}

// Start loads plan for participantID and arms the first trial.
// It is accepted from idle and from aborted.
func (s *Session) Start(plan models.TrialPlan, participantID string) error {
	if s.state != models.StateIdle && s.state != models.StateAborted {
		return s.transitionError("start")
	}
	if len(plan) == 0 {
		return fmt.Errorf("start: empty trial plan")
	}
	if participantID == "" {
		return fmt.Errorf("start: empty participant id")
	}

	s.plan = plan
	s.participantID = participantID
	s.index = 0
	s.results = nil
	s.tracker = metrics.Tracker{}
	s.state = models.StateArmed
	return nil
}

// ArmTrial shows the current target. origin is where the cursor sits when
// the participant triggers the trial, normally the center of the screen.
func (s *Session) ArmTrial(origin models.Position) error {
	if s.state != models.StateArmed {
		return s.transitionError("arm trial")
	}
	s.tracker.Reset(origin)
	s.started = s.now()
	s.state = models.StateActive
	return nil
}

// PointerMoved feeds a pointer sample. Samples outside an active trial
// are ignored.
func (s *Session) PointerMoved(p models.Position) {
	if s.state != models.StateActive {
		return
	}
	s.tracker.Move(p)
}

// BackgroundClick records a miss. The trial continues.
func (s *Session) BackgroundClick() error {
	if s.state != models.StateActive {
		return s.transitionError("background click")
	}
	s.tracker.Miss()
	return nil
}

// TargetClick completes the active trial and returns its record.
func (s *Session) TargetClick() (models.TrialRecord, error) {
	if s.state != models.StateActive {
		return models.TrialRecord{}, s.transitionError("target click")
	}

	mt := math.Round(float64(s.now().Sub(s.started)) / float64(time.Millisecond))
	if mt < 0 {
		mt = 0
	}

	cfg := s.plan[s.index]
	rec := models.TrialRecord{
		ParticipantID:  s.participantID,
		TrialIndex:     s.index + 1,
		TargetSize:     cfg.TargetSize,
		Distance:       cfg.Distance,
		Direction:      cfg.Direction,
		MovementTimeMs: int64(mt),
		PathLengthPx:   s.tracker.PathLength(),
		ErrorCount:     s.tracker.Errors(),
	}
	s.results = append(s.results, rec)
	s.state = models.StateFeedback
	return rec, nil
}

// Clicked routes a click at p. The position counts as a pointer sample
// before the click is resolved.
func (s *Session) Clicked(p models.Position, onTarget bool) (models.TrialRecord, bool, error) {
	if s.state != models.StateActive {
		return models.TrialRecord{}, false, s.transitionError("click")
	}
	s.tracker.Move(p)
	if !onTarget {
		return models.TrialRecord{}, false, s.BackgroundClick()
	}
	rec, err := s.TargetClick()
	return rec, err == nil, err
}

// Advance leaves feedback. It arms the next trial, or completes the
// session when the plan is exhausted, and returns the new state.
func (s *Session) Advance() (models.State, error) {
	if s.state != models.StateFeedback {
		return s.state, s.transitionError("advance")
	}
	if s.index+1 < len(s.plan) {
		s.index++
		s.state = models.StateArmed
	} else {
		s.state = models.StateCompleted
	}
	return s.state, nil
}

// Abort discards every recorded trial and the trial in progress.
func (s *Session) Abort() error {
	switch s.state {
	case models.StateArmed, models.StateActive, models.StateFeedback:
	default:
		return s.transitionError("abort")
	}
	s.plan = nil
	s.index = 0
	s.results = nil
	s.tracker = metrics.Tracker{}
	s.started = time.Time{}
	s.state = models.StateAborted
	return nil
}

// State is the current lifecycle state.
func (s *Session) State() models.State {
	return s.state
}

// ParticipantID is the identifier attached to every record.
func (s *Session) ParticipantID() string {
	return s.participantID
}

// CurrentTrial is the configuration of the trial being armed, run or
// acknowledged. It reports false when no trial is loaded.
func (s *Session) CurrentTrial() (models.TrialConfig, bool) {
	switch s.state {
	case models.StateArmed, models.StateActive, models.StateFeedback:
		return s.plan[s.index], true
	}
	return models.TrialConfig{}, false
}

// TrialNumber is the 1-based position of the current trial, or 0 when
// none is loaded.
func (s *Session) TrialNumber() int {
	if _, ok := s.CurrentTrial(); !ok {
		return 0
	}
	return s.index + 1
}

// TotalTrials is the length of the loaded plan.
func (s *Session) TotalTrials() int {
	return len(s.plan)
}

// CompletedTrials is the number of records collected so far.
func (s *Session) CompletedTrials() int {
	return len(s.results)
}

// Results returns a copy of the records once the session has completed.
func (s *Session) Results() ([]models.TrialRecord, error) {
	if s.state != models.StateCompleted {
		return nil, s.transitionError("results")
	}
	out := make([]models.TrialRecord, len(s.results))
	copy(out, s.results)
	return out, nil
}
