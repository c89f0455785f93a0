package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"fitts-go/internal/config"
	"fitts-go/internal/export"
	"fitts-go/internal/models"
	"fitts-go/internal/plan"
	"fitts-go/internal/session"
	"fitts-go/internal/utils"

	"go.uber.org/zap"
)

var (
	// ErrNoSession is returned when a key has no experiment session.
	ErrNoSession = errors.New("no experiment session")
	// ErrUnknownDesign is returned when a start request names a design
	// that is not in the catalogue.
	ErrUnknownDesign = errors.New("unknown design")
)

// Timer is a pending callback that can be cancelled.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f to run once after d.
type AfterFunc func(d time.Duration, f func()) Timer

func defaultAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Snapshot is the read-only view of a session handed to the presentation layer.
type Snapshot struct {
	State           models.State        `json:"state"`
	ParticipantID   string              `json:"participant_id,omitempty"`
	Design          string              `json:"design,omitempty"`
	Trial           int                 `json:"trial"`
	TotalTrials     int                 `json:"total_trials"`
	CompletedTrials int                 `json:"completed_trials"`
	Current         *models.TrialConfig `json:"current"`
	ExportFile      string              `json:"export_file,omitempty"`
}

type entry struct {
	session    *session.Session
	design     string
	timer      Timer
	generation uint64
	exportFile string
	lastSeen   time.Time
}

// Runner owns the in-memory experiment sessions, one per browser session
// key, and serializes every event delivered to them.
type Runner struct {
	log       *zap.Logger
	settings  func() config.ExperimentConfig
	catalogue *models.Catalogue
	ids       utils.IDGenerator

	afterFunc AfterFunc
	clock     func() time.Time
	newSource func() plan.Source

	mu       sync.Mutex
	sessions map[string]*entry
}

// Option configures a Runner.
type Option func(*Runner)

// WithAfterFunc replaces time.AfterFunc for the feedback auto-advance.
func WithAfterFunc(f AfterFunc) Option {
	return func(r *Runner) { r.afterFunc = f }
}

// WithClock replaces time.Now as the trial timer of new sessions.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.clock = now }
}

// WithSource replaces the clock-seeded shuffle source.
func WithSource(f func() plan.Source) Option {
	return func(r *Runner) { r.newSource = f }
}

// NewRunner creates a Runner. settings is consulted on every start and
// every trial completion, so reloaded configuration takes effect for the
// next event.
func NewRunner(log *zap.Logger, settings func() config.ExperimentConfig, catalogue *models.Catalogue, ids utils.IDGenerator, opts ...Option) *Runner {
	r := &Runner{
		log:       log,
		settings:  settings,
		catalogue: catalogue,
		ids:       ids,
		afterFunc: defaultAfterFunc,
		clock:     time.Now,
		newSource: func() plan.Source { return plan.NewRandomSource() },
		sessions:  make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Designs lists the configured default design followed by the catalogue.
func (r *Runner) Designs() []models.Design {
	designs := []models.Design{r.settings().Design}
	if r.catalogue != nil {
		designs = append(designs, r.catalogue.Designs...)
	}
	return designs
}

// ResolveDesign picks the design for a start request. An empty name
// selects experiment.default_design, falling back to experiment.design.
func (r *Runner) ResolveDesign(name string) (models.Design, error) {
	settings := r.settings()
	if name == "" {
		name = settings.DefaultDesign
	}
	if name == "" || name == settings.Design.Name {
		return settings.Design, nil
	}
	if d, ok := r.catalogue.Find(name); ok {
		return d, nil
	}
	return models.Design{}, fmt.Errorf("%w: %q", ErrUnknownDesign, name)
}

// Start begins a session for key. An empty participantID is replaced by a
// generated one. A key whose previous session completed gets a fresh one.
func (r *Runner) Start(key, participantID string, design models.Design) (Snapshot, error) {
	if participantID == "" {
		participantID = r.ids.NewID()
	}
	if err := utils.ValidateParticipantID(participantID); err != nil {
		return Snapshot{}, err
	}
	trials, err := plan.Generate(design, r.newSource())
	if err != nil {
		return Snapshot{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.sessions[key]
	if !ok || e.session.State() == models.StateCompleted {
		e = &entry{session: session.New(session.WithClock(r.clock))}
	}
	if err := e.session.Start(trials, participantID); err != nil {
		return Snapshot{}, err
	}
	r.cancelTimer(e)
	e.design = design.Name
	e.exportFile = ""
	e.lastSeen = r.clock()
	r.sessions[key] = e

	r.log.Info("Experiment session started",
		zap.String("participant_id", participantID),
		zap.String("design", design.Name),
		zap.Int("trials", len(trials)),
	)
	return snapshotOf(e), nil
}

// Arm starts the current trial with the cursor at origin.
func (r *Runner) Arm(key string, origin models.Position) (Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, err := r.lookup(key)
	if err != nil {
		return Snapshot{}, err
	}
	if err := e.session.ArmTrial(origin); err != nil {
		return Snapshot{}, err
	}
	return snapshotOf(e), nil
}

// PointerMoved feeds pointer samples in order. Samples are ignored unless
// a trial is active.
func (r *Runner) PointerMoved(key string, positions ...models.Position) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, err := r.lookup(key)
	if err != nil {
		return err
	}
	for _, p := range positions {
		e.session.PointerMoved(p)
	}
	return nil
}

// Clicked resolves a click. A click on the target completes the trial and
// schedules the automatic advance after the feedback delay.
func (r *Runner) Clicked(key string, p models.Position, onTarget bool) (Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, err := r.lookup(key)
	if err != nil {
		return Snapshot{}, err
	}
	rec, done, err := e.session.Clicked(p, onTarget)
	if err != nil {
		return Snapshot{}, err
	}
	if done {
		r.log.Debug("Trial completed",
			zap.String("participant_id", rec.ParticipantID),
			zap.Int("trial", rec.TrialIndex),
			zap.Int64("movement_time_ms", rec.MovementTimeMs),
			zap.Float64("path_length_px", rec.PathLengthPx),
			zap.Int("errors", rec.ErrorCount),
		)
		r.scheduleAdvance(key, e)
	}
	return snapshotOf(e), nil
}

// Advance leaves the feedback state immediately, cancelling the pending
// automatic advance.
func (r *Runner) Advance(key string) (Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, err := r.lookup(key)
	if err != nil {
		return Snapshot{}, err
	}
	if err := r.advance(e); err != nil {
		return Snapshot{}, err
	}
	return snapshotOf(e), nil
}

// Abort withdraws the participant and discards everything recorded.
func (r *Runner) Abort(key string) (Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, err := r.lookup(key)
	if err != nil {
		return Snapshot{}, err
	}
	participantID := e.session.ParticipantID()
	completed := e.session.CompletedTrials()
	if err := e.session.Abort(); err != nil {
		return Snapshot{}, err
	}
	r.cancelTimer(e)

	r.log.Info("Experiment session aborted",
		zap.String("participant_id", participantID),
		zap.Int("discarded_trials", completed),
	)
	return snapshotOf(e), nil
}

// Snapshot reports the state of the session for key.
func (r *Runner) Snapshot(key string) (Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, err := r.lookup(key)
	if err != nil {
		return Snapshot{}, err
	}
	return snapshotOf(e), nil
}

// Results returns the records of a completed session.
func (r *Runner) Results(key string) ([]models.TrialRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, err := r.lookup(key)
	if err != nil {
		return nil, err
	}
	return e.session.Results()
}

// Export writes the CSV of a completed session to w and returns the
// participant it belongs to.
func (r *Runner) Export(key string, w io.Writer) (string, error) {
	records, err := r.Results(key)
	if err != nil {
		return "", err
	}
	if err := export.Write(w, records); err != nil {
		return "", err
	}
	return records[0].ParticipantID, nil
}

// lookup must be called with r.mu held. It marks the session as seen.
func (r *Runner) lookup(key string) (*entry, error) {
	e, ok := r.sessions[key]
	if !ok {
		return nil, ErrNoSession
	}
	e.lastSeen = r.clock()
	return e, nil
}

// Expire drops every session that has not been used for longer than idle
// and returns how many were dropped. Their pending advances are cancelled.
func (r *Runner) Expire(idle time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.clock().Add(-idle)
	expired := 0
	for key, e := range r.sessions {
		if e.lastSeen.After(cutoff) {
			continue
		}
		r.cancelTimer(e)
		delete(r.sessions, key)
		expired++
	}
	return expired
}

// StartJanitor expires idle sessions every interval until ctx is done.
func (r *Runner) StartJanitor(ctx context.Context, interval, idle time.Duration) {
	r.log.Info("Starting session janitor", zap.Duration("idle_timeout", idle))
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := r.Expire(idle); n > 0 {
					r.log.Info("Expired idle experiment sessions", zap.Int("count", n))
				}
			}
		}
	}()
}

// advance must be called with r.mu held.
func (r *Runner) advance(e *entry) error {
	state, err := e.session.Advance()
	if err != nil {
		return err
	}
	r.cancelTimer(e)
	if state == models.StateCompleted {
		r.complete(e)
	}
	return nil
}

// complete writes the export file once, when the session completes.
func (r *Runner) complete(e *entry) {
	participantID := e.session.ParticipantID()
	records, err := e.session.Results()
	if err != nil {
		r.log.Error("Failed to read results of completed session", zap.Error(err))
		return
	}

	dir := r.settings().ExportDir
	if dir == "" {
		r.log.Info("Experiment session completed", zap.String("participant_id", participantID), zap.Int("trials", len(records)))
		return
	}

	path, err := export.WriteFile(dir, participantID, records)
	if err != nil {
		r.log.Error("Failed to export results", zap.String("participant_id", participantID), zap.Error(err))
		return
	}
	e.exportFile = path
	r.log.Info("Experiment session completed",
		zap.String("participant_id", participantID),
		zap.Int("trials", len(records)),
		zap.String("export_file", path),
	)
}

// scheduleAdvance arms the feedback timer. A zero delay leaves advancing
// to the caller.
func (r *Runner) scheduleAdvance(key string, e *entry) {
	r.cancelTimer(e)
	delay := r.settings().FeedbackDelay
	if delay <= 0 {
		return
	}
	gen := e.generation
	e.timer = r.afterFunc(delay, func() {
		r.mu.Lock()
		defer r.mu.Unlock()

		// Stale: cancelled, restarted, or the key was reused.
		if cur, ok := r.sessions[key]; !ok || cur != e || e.generation != gen {
			return
		}
		e.timer = nil
		if err := r.advance(e); err != nil {
			r.log.Warn("Automatic advance failed", zap.Error(err))
		}
	})
}

// cancelTimer must be called with r.mu held.
func (r *Runner) cancelTimer(e *entry) {
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	e.generation++
}

func snapshotOf(e *entry) Snapshot {
	s := e.session
	snap := Snapshot{
		State:           s.State(),
		ParticipantID:   s.ParticipantID(),
		Design:          e.design,
		Trial:           s.TrialNumber(),
		TotalTrials:     s.TotalTrials(),
		CompletedTrials: s.CompletedTrials(),
		ExportFile:      e.exportFile,
	}
	if cfg, ok := s.CurrentTrial(); ok {
		snap.Current = &cfg
	}
	return snap
}
