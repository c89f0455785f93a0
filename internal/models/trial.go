// internal/models/trial.go
package models

// Position is a pointer location in viewport pixels.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// TrialConfig is one point of the factorial design space.
type TrialConfig struct {
	TargetSize float64   `json:"target_size"`
	Distance   float64   `json:"distance"`
	Direction  Direction `json:"direction"`
}

// TrialPlan is the presentation order of a session's trials.
type TrialPlan []TrialConfig

// TrialRecord is the measured outcome of one completed trial.
type TrialRecord struct {
	ParticipantID  string    `json:"participant_id"`
	TrialIndex     int       `json:"trial"`
	TargetSize     float64   `json:"target_size"`
	Distance       float64   `json:"distance"`
	Direction      Direction `json:"direction"`
	MovementTimeMs int64     `json:"movement_time_ms"`
	PathLengthPx   float64   `json:"path_length_px"`
	ErrorCount     int       `json:"error_count"`
}

// State is the lifecycle state of an experiment session.
type State string

const (
	StateIdle      State = "idle"
	StateArmed     State = "armed"
	StateActive    State = "active"
	StateFeedback  State = "feedback"
	StateCompleted State = "completed"
	StateAborted   State = "aborted"
)
