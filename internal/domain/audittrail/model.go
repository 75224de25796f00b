package audittrail

import (
	"errors"
	"fmt"
	"time"

	"github.com/resus/resus/internal/domain/patient"
	"github.com/resus/resus/internal/domain/survey"
)

var (
	// ErrTrailClosed is returned when recording on a completed or abandoned trail.
	ErrTrailClosed = errors.New("audit trail is closed")
	// ErrInvalidEntry is returned for an entry missing its action id, title
	// or phase, or a skip without a reason.
	ErrInvalidEntry = errors.New("invalid audit entry")
)

// Status is the overall state of a trail.
type Status string

const (
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
	StatusEscalated  Status = "escalated"
	StatusAbandoned  Status = "abandoned"
)

// ParseStatus accepts one of the closing statuses.
func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusCompleted, StatusEscalated, StatusAbandoned:
		return st, nil
	default:
		return "", fmt.Errorf("%w: status %q must be one of completed, escalated, abandoned", ErrInvalidEntry, s)
	}
}

// Terminal reports whether no further entries may be recorded.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusAbandoned
}

// CompletedAction is one append-only entry: a completed or skipped action.
// DurationSeconds is the time since the previous entry, or since the trail
// started for the first one.
type CompletedAction struct {
	ActionID           string             `json:"action_id"`
	ActionTitle        string             `json:"action_title"`
	Phase              survey.Phase       `json:"phase"`
	CompletedAt        time.Time          `json:"completed_at"`
	DurationSeconds    int                `json:"duration_seconds"`
	ClinicalNotes      string             `json:"clinical_notes,omitempty"`
	Skipped            bool               `json:"skipped,omitempty"`
	SkipReason         string             `json:"skip_reason,omitempty"`
	VitalsAtCompletion map[string]float64 `json:"vitals_at_completion,omitempty"`
}

// Trail is the audit trail of one case. It is a value: every record
// operation returns a new Trail and leaves its input untouched.
type Trail struct {
	CaseID           string               `json:"case_id"`
	Patient          patient.Identity     `json:"patient"`
	StartedAt        time.Time            `json:"started_at"`
	EndedAt          *time.Time           `json:"ended_at,omitempty"`
	Actions          []CompletedAction    `json:"actions"`
	PhaseTimings     map[survey.Phase]int `json:"phase_timings"`
	TotalTimeSeconds int                  `json:"total_time_seconds"`
	OverallStatus    Status               `json:"overall_status"`
}

// Completion describes an action being marked done.
type Completion struct {
	ActionID string
	Title    string
	Phase    survey.Phase
	Notes    string
	Vitals   map[string]float64
}

// Skip describes an action being deliberately skipped.
type Skip struct {
	ActionID string
	Title    string
	Phase    survey.Phase
	Reason   string
}
