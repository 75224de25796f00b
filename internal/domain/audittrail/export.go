package audittrail

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/resus/resus/internal/domain/patient"
	"github.com/resus/resus/internal/domain/survey"
)

// ExportFormat is the version tag written into exported trails.
const ExportFormat = "resus-audit/1"

type exportedAction struct {
	ActionID           string             `json:"action_id"`
	ActionTitle        string             `json:"action_title"`
	Phase              survey.Phase       `json:"phase"`
	CompletedAt        string             `json:"completed_at"`
	DurationSeconds    int                `json:"duration_seconds"`
	ClinicalNotes      string             `json:"clinical_notes,omitempty"`
	Skipped            bool               `json:"skipped,omitempty"`
	SkipReason         string             `json:"skip_reason,omitempty"`
	VitalsAtCompletion map[string]float64 `json:"vitals_at_completion,omitempty"`
}

type exportedTrail struct {
	Format           string               `json:"format"`
	CaseID           string               `json:"case_id"`
	Patient          patient.Identity     `json:"patient"`
	StartedAt        string               `json:"started_at"`
	EndedAt          string               `json:"ended_at,omitempty"`
	OverallStatus    Status               `json:"overall_status"`
	TotalTimeSeconds int                  `json:"total_time_seconds"`
	PhaseTimings     map[survey.Phase]int `json:"phase_timings"`
	Actions          []exportedAction     `json:"actions"`
}

func stamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// Export serialises the trail as JSON with every timestamp in UTC RFC 3339.
func Export(t Trail) ([]byte, error) {
	out := exportedTrail{
		Format:           ExportFormat,
		CaseID:           t.CaseID,
		Patient:          t.Patient,
		StartedAt:        stamp(t.StartedAt),
		OverallStatus:    t.OverallStatus,
		TotalTimeSeconds: t.TotalTimeSeconds,
		PhaseTimings:     t.PhaseTimings,
		Actions:          make([]exportedAction, 0, len(t.Actions)),
	}
	if out.PhaseTimings == nil {
		out.PhaseTimings = map[survey.Phase]int{}
	}
	if t.EndedAt != nil {
		out.EndedAt = stamp(*t.EndedAt)
	}
	for _, a := range t.Actions {
		out.Actions = append(out.Actions, exportedAction{
			ActionID:           a.ActionID,
			ActionTitle:        a.ActionTitle,
			Phase:              a.Phase,
			CompletedAt:        stamp(a.CompletedAt),
			DurationSeconds:    a.DurationSeconds,
			ClinicalNotes:      a.ClinicalNotes,
			Skipped:            a.Skipped,
			SkipReason:         a.SkipReason,
			VitalsAtCompletion: a.VitalsAtCompletion,
		})
	}
	return json.MarshalIndent(out, "", "  ")
}

// ParseExport reads a trail written by Export.
func ParseExport(data []byte) (Trail, error) {
	var in exportedTrail
	if err := json.Unmarshal(data, &in); err != nil {
		return Trail{}, fmt.Errorf("decode audit export: %w", err)
	}
	if in.Format != ExportFormat {
		return Trail{}, fmt.Errorf("unsupported audit export format %q", in.Format)
	}
	started, err := time.Parse(time.RFC3339Nano, in.StartedAt)
	if err != nil {
		return Trail{}, fmt.Errorf("parse started_at: %w", err)
	}

	t := Trail{
		CaseID:           in.CaseID,
		Patient:          in.Patient,
		StartedAt:        started.UTC(),
		OverallStatus:    in.OverallStatus,
		TotalTimeSeconds: in.TotalTimeSeconds,
		PhaseTimings:     in.PhaseTimings,
		Actions:          make([]CompletedAction, 0, len(in.Actions)),
	}
	if t.PhaseTimings == nil {
		t.PhaseTimings = map[survey.Phase]int{}
	}
	if in.EndedAt != "" {
		ended, err := time.Parse(time.RFC3339Nano, in.EndedAt)
		if err != nil {
			return Trail{}, fmt.Errorf("parse ended_at: %w", err)
		}
		ended = ended.UTC()
		t.EndedAt = &ended
	}
	for i, a := range in.Actions {
		at, err := time.Parse(time.RFC3339Nano, a.CompletedAt)
		if err != nil {
			return Trail{}, fmt.Errorf("parse actions[%d].completed_at: %w", i, err)
		}
		t.Actions = append(t.Actions, CompletedAction{
			ActionID:           a.ActionID,
			ActionTitle:        a.ActionTitle,
			Phase:              a.Phase,
			CompletedAt:        at.UTC(),
			DurationSeconds:    a.DurationSeconds,
			ClinicalNotes:      a.ClinicalNotes,
			Skipped:            a.Skipped,
			SkipReason:         a.SkipReason,
			VitalsAtCompletion: a.VitalsAtCompletion,
		})
	}
	return t, nil
}
