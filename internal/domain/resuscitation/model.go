package resuscitation

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/resus/resus/internal/domain/audittrail"
	"github.com/resus/resus/internal/domain/patient"
	"github.com/resus/resus/internal/domain/recommendation"
	"github.com/resus/resus/internal/domain/survey"
	"github.com/resus/resus/internal/domain/trigger"
)

var (
	ErrNotFound = errors.New("case not found")
	// ErrCannotAdvance is matched by *BlockedError.
	ErrCannotAdvance = errors.New("phase cannot advance")
	// ErrSurveyComplete is returned when validating or advancing a case
	// whose survey has passed exposure.
	ErrSurveyComplete = errors.New("primary survey already complete")
)

// BlockedError refuses a phase advance and carries the validation that
// explains why.
type BlockedError struct {
	Result *survey.Result
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("%s: %s phase has %d missing findings and %d unresolved critical findings",
		ErrCannotAdvance, e.Result.Phase, len(e.Result.Errors), len(e.Result.CriticalFindingsUnresolved))
}

func (e *BlockedError) Is(target error) bool {
	return target == ErrCannotAdvance
}

// Case is one resuscitation: the patient, the findings gathered so far,
// the survey phase the team is in and the audit trail of actions.
type Case struct {
	ID           uuid.UUID          `json:"id"`
	Patient      patient.Identity   `json:"patient"`
	Parameters   patient.Parameters `json:"parameters"`
	CurrentPhase survey.Phase       `json:"current_phase"`
	Findings     survey.Assessment  `json:"findings"`
	Trail        audittrail.Trail   `json:"trail"`
	CreatedBy    string             `json:"created_by,omitempty"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

// Status returns the overall status of the case trail.
func (c *Case) Status() audittrail.Status {
	return c.Trail.OverallStatus
}

// Closed reports whether the case no longer accepts changes.
func (c *Case) Closed() bool {
	return c.Trail.OverallStatus.Terminal()
}

// ActionInput records a completed action. An empty Phase defaults to the
// case's current phase.
type ActionInput struct {
	ActionID string             `json:"action_id" validate:"required"`
	Title    string             `json:"title" validate:"required"`
	Phase    survey.Phase       `json:"phase,omitempty"`
	Notes    string             `json:"notes,omitempty"`
	Vitals   map[string]float64 `json:"vitals,omitempty"`
}

// SkipInput records a deliberately skipped action.
type SkipInput struct {
	ActionID string       `json:"action_id" validate:"required"`
	Title    string       `json:"title" validate:"required"`
	Phase    survey.Phase `json:"phase,omitempty"`
	Reason   string       `json:"reason" validate:"required"`
}

// Evaluation is the decision support for a case's current findings.
type Evaluation struct {
	CaseID          uuid.UUID                               `json:"case_id"`
	Phase           survey.Phase                            `json:"phase"`
	Actions         []trigger.CriticalAction                `json:"actions"`
	Recommendations []recommendation.ClinicalRecommendation `json:"recommendations"`
}

// CloseReport is returned when a case is closed or escalated.
type CloseReport struct {
	Case            *Case                            `json:"case"`
	EfficiencyScore int                              `json:"efficiency_score"`
	Gaps            []string                         `json:"gaps"`
	Compliance      *recommendation.ComplianceReport `json:"compliance,omitempty"`
}

// Efficiency is the efficiency score of a trail and its critical gaps.
type Efficiency struct {
	Score int      `json:"score"`
	Gaps  []string `json:"gaps"`
}

// VoiceResult pairs a parsed voice command with the rule outcome, or with
// the reason the rule rejected the value.
type VoiceResult struct {
	Phrase  string              `json:"phrase"`
	Trigger trigger.Name        `json:"trigger"`
	Value   trigger.Observation `json:"value"`
	Outcome trigger.Outcome     `json:"outcome"`
	Error   string              `json:"error,omitempty"`
}
