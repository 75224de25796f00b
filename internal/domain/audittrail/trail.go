package audittrail

import (
	"fmt"
	"strings"
	"time"

	"github.com/resus/resus/internal/domain/patient"
	"github.com/resus/resus/internal/domain/survey"
)

// New starts an empty in-progress trail.
func New(caseID string, p patient.Identity, startedAt time.Time) Trail {
	return Trail{
		CaseID:        caseID,
		Patient:       p,
		StartedAt:     startedAt.UTC(),
		Actions:       []CompletedAction{},
		PhaseTimings:  map[survey.Phase]int{},
		OverallStatus: StatusInProgress,
	}
}

// RecordCompletion appends a completed action at time at and adds its
// duration to the phase timing.
func RecordCompletion(t Trail, at time.Time, c Completion) (Trail, error) {
	if err := checkEntry(t, c.ActionID, c.Title, c.Phase); err != nil {
		return t, err
	}
	entry := CompletedAction{
		ActionID:           strings.TrimSpace(c.ActionID),
		ActionTitle:        strings.TrimSpace(c.Title),
		Phase:              c.Phase,
		ClinicalNotes:      strings.TrimSpace(c.Notes),
		VitalsAtCompletion: copyVitals(c.Vitals),
	}
	next := appendEntry(t, at, entry)
	next.PhaseTimings[c.Phase] += next.Actions[len(next.Actions)-1].DurationSeconds
	return next, nil
}

// RecordSkip appends a skipped action at time at. Skipped time is not
// counted towards the phase timing.
func RecordSkip(t Trail, at time.Time, s Skip) (Trail, error) {
	if err := checkEntry(t, s.ActionID, s.Title, s.Phase); err != nil {
		return t, err
	}
	if strings.TrimSpace(s.Reason) == "" {
		return t, fmt.Errorf("%w: skip reason is required", ErrInvalidEntry)
	}
	entry := CompletedAction{
		ActionID:    strings.TrimSpace(s.ActionID),
		ActionTitle: strings.TrimSpace(s.Title),
		Phase:       s.Phase,
		Skipped:     true,
		SkipReason:  strings.TrimSpace(s.Reason),
	}
	return appendEntry(t, at, entry), nil
}

// Finish sets the closing status. Escalated trails stay open for recording
// until they are completed or abandoned.
func Finish(t Trail, at time.Time, status Status) (Trail, error) {
	if t.OverallStatus.Terminal() {
		return t, fmt.Errorf("%w: status is %s", ErrTrailClosed, t.OverallStatus)
	}
	if status == StatusInProgress || status == "" {
		return t, fmt.Errorf("%w: cannot finish with status %q", ErrInvalidEntry, status)
	}
	next := clone(t)
	next.OverallStatus = status
	if status.Terminal() {
		end := at.UTC()
		next.EndedAt = &end
		if elapsed := seconds(end.Sub(t.StartedAt)); elapsed > next.TotalTimeSeconds {
			next.TotalTimeSeconds = elapsed
		}
	}
	return next, nil
}

// LastEntryAt returns the time of the latest entry, or the start time.
func (t Trail) LastEntryAt() time.Time {
	if n := len(t.Actions); n > 0 {
		return t.Actions[n-1].CompletedAt
	}
	return t.StartedAt
}

// HasEntry reports whether an entry with the action id and timestamp exists.
func (t Trail) HasEntry(actionID string, at time.Time) bool {
	for _, a := range t.Actions {
		if a.ActionID == actionID && a.CompletedAt.Equal(at) {
			return true
		}
	}
	return false
}

func checkEntry(t Trail, actionID, title string, phase survey.Phase) error {
	if t.OverallStatus.Terminal() {
		return fmt.Errorf("%w: status is %s", ErrTrailClosed, t.OverallStatus)
	}
	if strings.TrimSpace(actionID) == "" {
		return fmt.Errorf("%w: action id is required", ErrInvalidEntry)
	}
	if strings.TrimSpace(title) == "" {
		return fmt.Errorf("%w: action title is required", ErrInvalidEntry)
	}
	if _, err := survey.ParsePhase(string(phase)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}
	return nil
}

// appendEntry stamps entry with at and its duration, and returns a copy of t
// with the entry appended. A duration is the whole seconds elapsed since the
// trail started minus those of the latest earlier entry, so the durations of
// a trail add up to the elapsed time of its latest entry however the
// sub-second parts fall. An entry stamped before an earlier one (clock skew)
// gets a duration of 0 rather than a negative one; this is a heuristic, the
// skewed interval is silently attributed to no entry.
func appendEntry(t Trail, at time.Time, entry CompletedAction) Trail {
	at = at.UTC()
	entry.CompletedAt = at
	elapsed := seconds(at.Sub(t.StartedAt))
	if d := elapsed - latestElapsed(t); d > 0 {
		entry.DurationSeconds = d
	}

	next := clone(t)
	next.Actions = append(next.Actions, entry)
	if elapsed > next.TotalTimeSeconds {
		next.TotalTimeSeconds = elapsed
	}
	return next
}

// latestElapsed returns the whole seconds from the start of t to its latest
// entry, or 0 for an empty trail.
func latestElapsed(t Trail) int {
	latest := 0
	for _, a := range t.Actions {
		if e := seconds(a.CompletedAt.Sub(t.StartedAt)); e > latest {
			latest = e
		}
	}
	return latest
}

func clone(t Trail) Trail {
	next := t
	next.Actions = make([]CompletedAction, len(t.Actions), len(t.Actions)+1)
	copy(next.Actions, t.Actions)
	next.PhaseTimings = make(map[survey.Phase]int, len(t.PhaseTimings)+1)
	for k, v := range t.PhaseTimings {
		next.PhaseTimings[k] = v
	}
	if t.EndedAt != nil {
		end := *t.EndedAt
		next.EndedAt = &end
	}
	return next
}

func copyVitals(v map[string]float64) map[string]float64 {
	if len(v) == 0 {
		return nil
	}
	out := make(map[string]float64, len(v))
	for k, x := range v {
		out[k] = x
	}
	return out
}

// seconds truncates d to whole seconds, never below zero. A negative d only
// arises from out-of-order timestamps and is read as no time elapsed.
func seconds(d time.Duration) int {
	if d < 0 {
		return 0
	}
	return int(d / time.Second)
}
