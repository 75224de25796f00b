package resuscitation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/resus/resus/internal/domain/audittrail"
	"github.com/resus/resus/internal/domain/patient"
	"github.com/resus/resus/internal/domain/survey"
	"github.com/resus/resus/internal/domain/trigger"
	"github.com/resus/resus/internal/platform/websocket"
)

// -- Fakes --

type fakePublisher struct {
	mu     sync.Mutex
	events []websocket.Event
}

func (p *fakePublisher) Publish(_ context.Context, ev websocket.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *fakePublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.Type
	}
	return out
}

func (p *fakePublisher) count(eventType string) int {
	n := 0
	for _, t := range p.types() {
		if t == eventType {
			n++
		}
	}
	return n
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

var start = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func newTestService() (*Service, *fakePublisher, *fakeClock) {
	pub := &fakePublisher{}
	clock := &fakeClock{now: start}
	svc := NewService(NewMemoryRepo(), trigger.NewRegistry(), zerolog.Nop())
	svc.SetPublisher(pub)
	svc.SetClock(clock.Now)
	return svc, pub, clock
}

func openCase(t *testing.T, svc *Service) *Case {
	t.Helper()
	c, err := svc.Open(context.Background(), patient.Identity{AgeYears: 2, WeightKg: 12}, "lead-1")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	return c
}

func str(s string) *string   { return &s }
func flag(b bool) *bool      { return &b }
func val(f float64) *float64 { return &f }

var normalFindings = map[survey.Phase]survey.Assessment{
	survey.PhaseAirway: {Airway: survey.AirwayFindings{
		Responsiveness: str(survey.AVPUAlert), AirwayPatency: str(survey.AirwayPatent),
	}},
	survey.PhaseBreathing: {Breathing: survey.BreathingFindings{
		BreathingAdequate: flag(true), RespiratoryRate: val(28), SpO2: val(97),
	}},
	survey.PhaseCirculation: {Circulation: survey.CirculationFindings{
		PulsePresent: flag(true), HeartRate: val(110), SystolicBP: val(94),
		SkinPerfusion: str(survey.SkinWarm), CapillaryRefill: val(1.5),
	}},
	survey.PhaseDisability: {Disability: survey.DisabilityFindings{
		Consciousness: str(survey.AVPUAlert), Pupils: str("equal_reactive"), Glucose: val(5.4), SeizureActivity: flag(false),
	}},
	survey.PhaseExposure: {Exposure: survey.ExposureFindings{
		Temperature: val(37.1), Rash: flag(false),
	}},
}

// -- Open / Get / List --

func TestService_Open(t *testing.T) {
	svc, pub, _ := newTestService()
	c := openCase(t, svc)

	if c.CurrentPhase != survey.PhaseAirway {
		t.Errorf("expected airway phase, got %s", c.CurrentPhase)
	}
	if c.Status() != audittrail.StatusInProgress || c.Trail.CaseID != c.ID.String() {
		t.Errorf("unexpected trail %+v", c.Trail)
	}
	if c.CreatedBy != "lead-1" || !c.CreatedAt.Equal(start) {
		t.Errorf("unexpected creator/time %s %s", c.CreatedBy, c.CreatedAt)
	}
	if c.Parameters.WeightKg != 12 || c.Parameters.WeightEstimated {
		t.Errorf("unexpected parameters %+v", c.Parameters)
	}
	if got := pub.types(); len(got) != 1 || got[0] != websocket.EventCaseOpened {
		t.Errorf("expected case.opened event, got %v", got)
	}

	got, err := svc.Get(context.Background(), c.ID)
	if err != nil || got.ID != c.ID {
		t.Fatalf("get: %v %+v", err, got)
	}
}

func TestService_OpenInvalidPatient(t *testing.T) {
	svc, _, _ := newTestService()
	_, err := svc.Open(context.Background(), patient.Identity{AgeYears: 1, AgeMonths: 12}, "")
	if !errors.Is(err, patient.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestService_NotFound(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	id := uuid.New()

	checks := map[string]error{}
	_, checks["get"] = svc.Get(ctx, id)
	_, _, checks["findings"] = svc.UpdateFindings(ctx, id, survey.Assessment{})
	_, checks["validate"] = svc.Validate(ctx, id)
	_, _, checks["advance"] = svc.Advance(ctx, id)
	_, checks["evaluate"] = svc.Evaluate(ctx, id)
	_, _, checks["action"] = svc.RecordAction(ctx, id, ActionInput{ActionID: "a", Title: "a"})
	_, _, checks["skip"] = svc.SkipAction(ctx, id, SkipInput{ActionID: "a", Title: "a", Reason: "r"})
	_, checks["close"] = svc.Close(ctx, id, audittrail.StatusCompleted)
	_, checks["efficiency"] = svc.Efficiency(ctx, id)
	_, checks["summary"] = svc.Summary(ctx, id)
	_, checks["export"] = svc.Export(ctx, id)
	_, checks["voice"] = svc.Voice(ctx, id, "no pulse")

	for op, err := range checks {
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("%s: expected ErrNotFound, got %v", op, err)
		}
	}
}

func TestService_List(t *testing.T) {
	svc, _, clock := newTestService()
	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		ids = append(ids, openCase(t, svc).ID)
		clock.Advance(time.Minute)
	}

	page, total, err := svc.List(context.Background(), 2, 0)
	if err != nil {
		t.Fatal(err)
	}
	if total != 3 || len(page) != 2 {
		t.Fatalf("expected 2 of 3, got %d of %d", len(page), total)
	}
	if page[0].ID != ids[2] || page[1].ID != ids[1] {
		t.Error("expected newest cases first")
	}
	rest, _, _ := svc.List(context.Background(), 2, 2)
	if len(rest) != 1 || rest[0].ID != ids[0] {
		t.Errorf("unexpected second page %v", rest)
	}
}

// -- Findings and phase progression --

func TestService_AdvanceBlockedUntilComplete(t *testing.T) {
	svc, pub, _ := newTestService()
	ctx := context.Background()
	c := openCase(t, svc)

	_, res, err := svc.Advance(ctx, c.ID)
	var blocked *BlockedError
	if !errors.As(err, &blocked) || !errors.Is(err, ErrCannotAdvance) {
		t.Fatalf("expected BlockedError, got %v", err)
	}
	if res.IsComplete || len(blocked.Result.Errors) != 2 {
		t.Errorf("expected two missing airway fields, got %+v", blocked.Result)
	}

	_, res, err = svc.UpdateFindings(ctx, c.ID, survey.Assessment{Airway: survey.AirwayFindings{
		Responsiveness: str(survey.AVPUUnresponsive), AirwayPatency: str(survey.AirwayPatent),
	}})
	if err != nil {
		t.Fatal(err)
	}
	if !res.IsComplete || res.CanAdvance {
		t.Errorf("expected complete but blocked by critical finding, got %+v", res)
	}
	if _, _, err := svc.Advance(ctx, c.ID); !errors.Is(err, ErrCannotAdvance) {
		t.Fatalf("expected unresolved critical finding to block, got %v", err)
	}

	_, res, err = svc.UpdateFindings(ctx, c.ID, normalFindings[survey.PhaseAirway])
	if err != nil || !res.CanAdvance {
		t.Fatalf("expected airway to clear, got %+v %v", res, err)
	}
	c, _, err = svc.Advance(ctx, c.ID)
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if c.CurrentPhase != survey.PhaseBreathing {
		t.Errorf("expected breathing, got %s", c.CurrentPhase)
	}
	if pub.count(websocket.EventPhaseAdvanced) != 1 || pub.count(websocket.EventFindingsUpdated) != 2 {
		t.Errorf("unexpected events %v", pub.types())
	}
}

func TestService_FullSurvey(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	c := openCase(t, svc)

	for _, phase := range survey.Phases {
		if _, _, err := svc.UpdateFindings(ctx, c.ID, normalFindings[phase]); err != nil {
			t.Fatalf("%s findings: %v", phase, err)
		}
		res, err := svc.Validate(ctx, c.ID)
		if err != nil || res.Phase != phase || !res.CanAdvance {
			t.Fatalf("%s validation: %+v %v", phase, res, err)
		}
		if c, _, err = svc.Advance(ctx, c.ID); err != nil {
			t.Fatalf("advance from %s: %v", phase, err)
		}
	}
	if c.CurrentPhase != survey.PhaseComplete {
		t.Fatalf("expected complete, got %s", c.CurrentPhase)
	}

	if _, err := svc.Validate(ctx, c.ID); !errors.Is(err, ErrSurveyComplete) {
		t.Errorf("expected ErrSurveyComplete from validate, got %v", err)
	}
	if _, _, err := svc.Advance(ctx, c.ID); !errors.Is(err, ErrSurveyComplete) {
		t.Errorf("expected ErrSurveyComplete from advance, got %v", err)
	}
	updated, res, err := svc.UpdateFindings(ctx, c.ID, survey.Assessment{Exposure: survey.ExposureFindings{Temperature: val(38.9)}})
	if err != nil || res != nil {
		t.Fatalf("expected findings to merge without validation, got %+v %v", res, err)
	}
	if *updated.Findings.Exposure.Temperature != 38.9 || *updated.Findings.Airway.Responsiveness != survey.AVPUAlert {
		t.Error("expected patch merged over earlier findings")
	}
}

func TestService_UpdateFindingsRejectsInvalidValue(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	c := openCase(t, svc)

	_, _, err := svc.UpdateFindings(ctx, c.ID, survey.Assessment{Exposure: survey.ExposureFindings{
		Rash: flag(true), RashType: str("spotty"),
	}})
	if !errors.Is(err, survey.ErrInvalidFinding) {
		t.Fatalf("expected ErrInvalidFinding, got %v", err)
	}
	stored, _ := svc.Get(ctx, c.ID)
	if stored.Findings.Exposure.Rash != nil {
		t.Error("rejected patch must not be stored")
	}
}

// -- Evaluation --

func TestService_Evaluate(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	c := openCase(t, svc)

	empty, err := svc.Evaluate(ctx, c.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(empty.Actions) != 0 || len(empty.Recommendations) != 0 {
		t.Errorf("expected nothing for unassessed case, got %+v", empty)
	}

	_, _, err = svc.UpdateFindings(ctx, c.ID, survey.Assessment{
		Airway:      survey.AirwayFindings{Responsiveness: str(survey.AVPUUnresponsive), AirwayPatency: str(survey.AirwayPatent)},
		Circulation: survey.CirculationFindings{PulsePresent: flag(false)},
		Disability:  survey.DisabilityFindings{Glucose: val(2.5)},
	})
	if err != nil {
		t.Fatal(err)
	}
	ev, err := svc.Evaluate(ctx, c.ID)
	if err != nil {
		t.Fatal(err)
	}

	ids := map[string]bool{}
	for _, a := range ev.Actions {
		ids[a.ID] = true
	}
	for _, want := range []string{"pulse-absent-cpr", "responsiveness-unresponsive"} {
		if !ids[want] {
			t.Errorf("expected %s in %v", want, ids)
		}
	}
	if ev.Actions[0].Severity != trigger.SeverityCritical {
		t.Errorf("expected critical actions first, got %s", ev.Actions[0].Severity)
	}
	for i := 1; i < len(ev.Actions); i++ {
		if ev.Actions[i-1].Severity.Rank() > ev.Actions[i].Severity.Rank() {
			t.Errorf("actions not ordered by severity: %s before %s", ev.Actions[i-1].Severity, ev.Actions[i].Severity)
		}
	}
	if len(ev.Recommendations) == 0 || ev.Recommendations[0].Action != "Activate cardiac arrest protocol" {
		t.Errorf("expected arrest cascade recommendations, got %+v", ev.Recommendations)
	}
}

// -- Audit trail --

func TestService_RecordAction(t *testing.T) {
	svc, pub, clock := newTestService()
	ctx := context.Background()
	c := openCase(t, svc)

	clock.Advance(20 * time.Second)
	_, entry, err := svc.RecordAction(ctx, c.ID, ActionInput{
		ActionID: "airway-obstructed-clear", Title: "Clear the airway", Notes: "jaw thrust",
		Vitals: map[string]float64{"spo2": 91},
	})
	if err != nil {
		t.Fatal(err)
	}
	if entry.Phase != survey.PhaseAirway {
		t.Errorf("expected phase to default to current phase, got %s", entry.Phase)
	}
	if entry.DurationSeconds != 20 || !entry.CompletedAt.Equal(start.Add(20*time.Second)) {
		t.Errorf("unexpected timing %+v", entry)
	}

	// same action at the same instant is not recorded twice
	again, dup, err := svc.RecordAction(ctx, c.ID, ActionInput{ActionID: "airway-obstructed-clear", Title: "Clear the airway"})
	if err != nil {
		t.Fatal(err)
	}
	if len(again.Trail.Actions) != 1 || dup.ClinicalNotes != "jaw thrust" {
		t.Errorf("expected duplicate to return the first entry, got %+v", again.Trail.Actions)
	}

	clock.Advance(40 * time.Second)
	_, skip, err := svc.SkipAction(ctx, c.ID, SkipInput{
		ActionID: "suction", Title: "Suction", Phase: survey.PhaseBreathing, Reason: "no secretions",
	})
	if err != nil {
		t.Fatal(err)
	}
	if !skip.Skipped || skip.SkipReason != "no secretions" || skip.Phase != survey.PhaseBreathing {
		t.Errorf("unexpected skip entry %+v", skip)
	}

	stored, _ := svc.Get(ctx, c.ID)
	if len(stored.Trail.Actions) != 2 || stored.Trail.TotalTimeSeconds != 60 {
		t.Errorf("unexpected stored trail %+v", stored.Trail)
	}
	if stored.Trail.PhaseTimings[survey.PhaseAirway] != 20 {
		t.Errorf("unexpected phase timings %v", stored.Trail.PhaseTimings)
	}
	if pub.count(websocket.EventTrailUpdated) != 2 {
		t.Errorf("expected two trail.updated events, got %v", pub.types())
	}
}

func TestService_RecordActionInvalid(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	c := openCase(t, svc)

	if _, _, err := svc.SkipAction(ctx, c.ID, SkipInput{ActionID: "a", Title: "A"}); !errors.Is(err, audittrail.ErrInvalidEntry) {
		t.Errorf("expected ErrInvalidEntry for skip without reason, got %v", err)
	}
	if _, _, err := svc.RecordAction(ctx, c.ID, ActionInput{ActionID: "a", Title: "A", Phase: "history"}); !errors.Is(err, audittrail.ErrInvalidEntry) {
		t.Errorf("expected ErrInvalidEntry for unknown phase, got %v", err)
	}
}

func TestService_ConcurrentActionsSerialized(t *testing.T) {
	svc := NewService(NewMemoryRepo(), trigger.NewRegistry(), zerolog.Nop())
	ctx := context.Background()
	c := openCase(t, svc)

	const n = 20
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, err := svc.RecordAction(ctx, c.ID, ActionInput{ActionID: fmt.Sprintf("act-%d", i), Title: "Act"})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatal(err)
		}
	}

	stored, _ := svc.Get(ctx, c.ID)
	if len(stored.Trail.Actions) != n {
		t.Fatalf("expected %d entries, got %d", n, len(stored.Trail.Actions))
	}
	sum := 0
	for i, a := range stored.Trail.Actions {
		sum += a.DurationSeconds
		if i > 0 && a.CompletedAt.Before(stored.Trail.Actions[i-1].CompletedAt) {
			t.Fatal("trail entries out of order")
		}
	}
	if sum != stored.Trail.TotalTimeSeconds {
		t.Errorf("durations %d do not add up to total %d", sum, stored.Trail.TotalTimeSeconds)
	}
}

// -- Close --

func TestService_CloseCompleted(t *testing.T) {
	svc, pub, clock := newTestService()
	ctx := context.Background()
	c := openCase(t, svc)

	if _, _, err := svc.UpdateFindings(ctx, c.ID, survey.Assessment{Airway: survey.AirwayFindings{
		Responsiveness: str(survey.AVPUUnresponsive), AirwayPatency: str(survey.AirwayPatent),
	}}); err != nil {
		t.Fatal(err)
	}
	clock.Advance(10 * time.Second)
	if _, _, err := svc.RecordAction(ctx, c.ID, ActionInput{ActionID: "pulse-absent-cpr", Title: "Start chest compressions"}); err != nil {
		t.Fatal(err)
	}
	clock.Advance(20 * time.Second)
	if _, _, err := svc.SkipAction(ctx, c.ID, SkipInput{ActionID: "bvm", Title: "Bag-valve-mask", Phase: survey.PhaseBreathing, Reason: "no mask"}); err != nil {
		t.Fatal(err)
	}

	clock.Advance(30 * time.Second)
	report, err := svc.Close(ctx, c.ID, audittrail.StatusCompleted)
	if err != nil {
		t.Fatal(err)
	}
	if report.Case.Trail.EndedAt == nil || report.Case.Trail.TotalTimeSeconds != 60 {
		t.Errorf("expected ended trail of 60s, got %+v", report.Case.Trail)
	}
	if report.EfficiencyScore != audittrail.EfficiencyScore(report.Case.Trail) || len(report.Gaps) != 1 {
		t.Errorf("unexpected score/gaps %d %v", report.EfficiencyScore, report.Gaps)
	}
	if report.Compliance == nil {
		t.Fatal("expected compliance report for arrest recommendations")
	}
	if report.Compliance.Matched < 1 || len(report.Compliance.Gaps) == 0 {
		t.Errorf("expected compressions matched and other gaps, got %+v", report.Compliance)
	}
	if pub.count(websocket.EventCaseClosed) != 1 {
		t.Errorf("expected case.closed event, got %v", pub.types())
	}

	if _, _, err := svc.RecordAction(ctx, c.ID, ActionInput{ActionID: "late", Title: "Late"}); !errors.Is(err, audittrail.ErrTrailClosed) {
		t.Errorf("expected ErrTrailClosed for action after close, got %v", err)
	}
	if _, _, err := svc.UpdateFindings(ctx, c.ID, normalFindings[survey.PhaseAirway]); !errors.Is(err, audittrail.ErrTrailClosed) {
		t.Errorf("expected ErrTrailClosed for findings after close, got %v", err)
	}
	if _, _, err := svc.Advance(ctx, c.ID); !errors.Is(err, audittrail.ErrTrailClosed) {
		t.Errorf("expected ErrTrailClosed for advance after close, got %v", err)
	}
	if _, err := svc.Close(ctx, c.ID, audittrail.StatusAbandoned); !errors.Is(err, audittrail.ErrTrailClosed) {
		t.Errorf("expected ErrTrailClosed on second close, got %v", err)
	}
}

func TestService_CloseWithoutRecommendations(t *testing.T) {
	svc, _, _ := newTestService()
	c := openCase(t, svc)
	report, err := svc.Close(context.Background(), c.ID, audittrail.StatusAbandoned)
	if err != nil {
		t.Fatal(err)
	}
	if report.Compliance != nil {
		t.Errorf("expected no compliance without airway findings, got %+v", report.Compliance)
	}
}

func TestService_EscalatedStaysOpen(t *testing.T) {
	svc, _, clock := newTestService()
	ctx := context.Background()
	c := openCase(t, svc)

	clock.Advance(5 * time.Second)
	report, err := svc.Close(ctx, c.ID, audittrail.StatusEscalated)
	if err != nil {
		t.Fatal(err)
	}
	if report.Case.Closed() || report.Case.Status() != audittrail.StatusEscalated {
		t.Fatalf("expected escalated case to stay open, got %s", report.Case.Status())
	}
	clock.Advance(5 * time.Second)
	if _, _, err := svc.RecordAction(ctx, c.ID, ActionInput{ActionID: "handover", Title: "Hand over to PICU"}); err != nil {
		t.Fatalf("expected actions after escalation, got %v", err)
	}
	if _, err := svc.Close(ctx, c.ID, audittrail.StatusCompleted); err != nil {
		t.Fatalf("expected escalated case to complete, got %v", err)
	}
}

// -- Reminders --

func TestService_RemindersFireAndCancel(t *testing.T) {
	svc, pub, _ := newTestService()
	reminders := NewReminders(pub, zerolog.Nop())
	reminders.unit = time.Millisecond
	defer reminders.Stop()
	svc.SetReminders(reminders)
	ctx := context.Background()
	c := openCase(t, svc)

	// airway-obstructed-clear reassesses after 30 units
	if _, _, err := svc.RecordAction(ctx, c.ID, ActionInput{ActionID: "airway-obstructed-clear", Title: "Clear airway"}); err != nil {
		t.Fatal(err)
	}
	if _, _, err := svc.RecordAction(ctx, c.ID, ActionInput{ActionID: "untimed", Title: "Untimed"}); err != nil {
		t.Fatal(err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for pub.count(websocket.EventReassessmentDue) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if pub.count(websocket.EventReassessmentDue) != 1 {
		t.Fatalf("expected one reassessment reminder, got %v", pub.types())
	}
	if reminders.Pending(c.ID) != 0 {
		t.Error("fired reminder should no longer be pending")
	}

	// perfusion-poor-iv-access waits 600 units; closing cancels it
	if _, _, err := svc.RecordAction(ctx, c.ID, ActionInput{ActionID: "perfusion-poor-iv-access", Title: "IV access"}); err != nil {
		t.Fatal(err)
	}
	if reminders.Pending(c.ID) != 1 {
		t.Fatalf("expected pending reminder, got %d", reminders.Pending(c.ID))
	}
	if _, err := svc.Close(ctx, c.ID, audittrail.StatusCompleted); err != nil {
		t.Fatal(err)
	}
	if reminders.Pending(c.ID) != 0 {
		t.Error("expected close to cancel pending reminders")
	}
}

// -- Reports and voice --

func TestService_Reports(t *testing.T) {
	svc, _, clock := newTestService()
	ctx := context.Background()
	c := openCase(t, svc)
	clock.Advance(15 * time.Second)
	if _, _, err := svc.RecordAction(ctx, c.ID, ActionInput{ActionID: "open-airway", Title: "Open airway"}); err != nil {
		t.Fatal(err)
	}

	eff, err := svc.Efficiency(ctx, c.ID)
	if err != nil || eff.Score != 100 || len(eff.Gaps) != 0 {
		t.Errorf("unexpected efficiency %+v %v", eff, err)
	}
	summary, err := svc.Summary(ctx, c.ID)
	if err != nil || !strings.Contains(summary, "1. [00:15] Open airway") {
		t.Errorf("unexpected summary %q %v", summary, err)
	}
	data, err := svc.Export(ctx, c.ID)
	if err != nil {
		t.Fatal(err)
	}
	parsed, err := audittrail.ParseExport(data)
	if err != nil || len(parsed.Actions) != 1 || parsed.CaseID != c.ID.String() {
		t.Errorf("unexpected export round trip %+v %v", parsed, err)
	}
}

func TestService_Voice(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	c := openCase(t, svc)

	results, err := svc.Voice(ctx, c.ID, "No pulse, sats 97")
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("expected two results, got %+v", results)
	}
	if results[0].Trigger != trigger.Pulse || !results[0].Outcome.Fired() {
		t.Errorf("expected absent pulse to fire, got %+v", results[0])
	}
	if results[1].Trigger != trigger.SpO2 || results[1].Outcome.Fired() {
		t.Errorf("expected normal sats not to fire, got %+v", results[1])
	}

	none, err := svc.Voice(ctx, c.ID, "what's the plan")
	if err != nil || none == nil || len(none) != 0 {
		t.Errorf("expected empty results for unrecognised text, got %v %v", none, err)
	}
	stored, _ := svc.Get(ctx, c.ID)
	if stored.Findings.Circulation.PulsePresent != nil {
		t.Error("voice commands must not change findings")
	}
}

func TestService_VoiceRejectedReadingDoesNotBlockOthers(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	c := openCase(t, svc)

	results, err := svc.Voice(ctx, c.ID, "sats 105, no pulse")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected two results, got %+v", results)
	}
	if results[0].Trigger != trigger.SpO2 || results[0].Error == "" || results[0].Outcome.Fired() {
		t.Errorf("expected out-of-range sats to carry an error, got %+v", results[0])
	}
	if results[1].Trigger != trigger.Pulse || results[1].Error != "" || !results[1].Outcome.Fired() {
		t.Errorf("expected absent pulse to fire despite the rejected reading, got %+v", results[1])
	}
}
