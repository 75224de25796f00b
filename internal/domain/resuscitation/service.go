package resuscitation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/resus/resus/internal/domain/audittrail"
	"github.com/resus/resus/internal/domain/patient"
	"github.com/resus/resus/internal/domain/recommendation"
	"github.com/resus/resus/internal/domain/survey"
	"github.com/resus/resus/internal/domain/trigger"
	"github.com/resus/resus/internal/domain/voice"
	"github.com/resus/resus/internal/platform/websocket"
)

// Service drives cases. Every change to a case runs under that case's lock,
// so concurrent team members are serialized into one ordered trail. Reads
// and rule evaluation take no lock.
type Service struct {
	repo      Repository
	registry  *trigger.Registry
	logger    zerolog.Logger
	publisher websocket.EventPublisher
	reminders *Reminders
	now       func() time.Time
	locks     *caseLocks
}

func NewService(repo Repository, registry *trigger.Registry, logger zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		registry: registry,
		logger:   logger.With().Str("component", "resuscitation").Logger(),
		now:      time.Now,
		locks:    &caseLocks{m: make(map[uuid.UUID]*sync.Mutex)},
	}
}

// SetPublisher attaches the publisher that receives case events.
func (s *Service) SetPublisher(p websocket.EventPublisher) {
	s.publisher = p
}

// SetReminders enables reassessment reminders for timed actions.
func (s *Service) SetReminders(r *Reminders) {
	s.reminders = r
}

// SetClock replaces the time source used to stamp entries.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Open starts a case in the airway phase with an empty trail.
func (s *Service) Open(ctx context.Context, id patient.Identity, createdBy string) (*Case, error) {
	params, err := patient.Derive(id)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	c := &Case{
		ID:           uuid.New(),
		Patient:      id,
		Parameters:   params,
		CurrentPhase: survey.PhaseAirway,
		CreatedBy:    createdBy,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	c.Trail = audittrail.New(c.ID.String(), id, now)

	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	s.logger.Info().Str("case_id", c.ID.String()).Int("age_months", id.TotalMonths()).
		Float64("weight_kg", params.WeightKg).Bool("weight_estimated", params.WeightEstimated).
		Msg("case opened")
	s.publish(ctx, websocket.EventCaseOpened, c, map[string]interface{}{"parameters": params})
	return c, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Case, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Case, int, error) {
	return s.repo.List(ctx, limit, offset)
}

// UpdateFindings merges patch into the case findings and returns the
// validation of the current phase, or nil once the survey is complete.
func (s *Service) UpdateFindings(ctx context.Context, id uuid.UUID, patch survey.Assessment) (*Case, *survey.Result, error) {
	unlock := s.locks.lock(id)
	defer unlock()

	c, err := s.openCase(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	merged := c.Findings.Merge(patch)
	if err := merged.Check(); err != nil {
		return nil, nil, err
	}
	c.Findings = merged
	c.UpdatedAt = s.now().UTC()
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, nil, err
	}

	var res *survey.Result
	if c.CurrentPhase != survey.PhaseComplete {
		if res, err = survey.Validate(c.CurrentPhase, c.Findings); err != nil {
			return nil, nil, err
		}
	}
	s.publish(ctx, websocket.EventFindingsUpdated, c, res)
	return c, res, nil
}

// Validate checks the findings of the case's current phase.
func (s *Service) Validate(ctx context.Context, id uuid.UUID) (*survey.Result, error) {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.CurrentPhase == survey.PhaseComplete {
		return nil, ErrSurveyComplete
	}
	return survey.Validate(c.CurrentPhase, c.Findings)
}

// Advance moves the case to the next phase. It refuses with a
// *BlockedError while the current phase is incomplete or has unresolved
// critical findings.
func (s *Service) Advance(ctx context.Context, id uuid.UUID) (*Case, *survey.Result, error) {
	unlock := s.locks.lock(id)
	defer unlock()

	c, err := s.openCase(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if c.CurrentPhase == survey.PhaseComplete {
		return nil, nil, ErrSurveyComplete
	}
	res, err := survey.Validate(c.CurrentPhase, c.Findings)
	if err != nil {
		return nil, nil, err
	}
	if !res.CanAdvance {
		s.logger.Warn().Str("case_id", c.ID.String()).Str("phase", string(c.CurrentPhase)).
			Strs("missing", res.Errors).Strs("critical", res.CriticalFindingsUnresolved).
			Msg("phase advance blocked")
		return c, res, &BlockedError{Result: res}
	}

	from := c.CurrentPhase
	c.CurrentPhase = from.Next()
	c.UpdatedAt = s.now().UTC()
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, nil, err
	}
	s.logger.Info().Str("case_id", c.ID.String()).Str("from", string(from)).Str("to", string(c.CurrentPhase)).
		Msg("phase advanced")
	s.publish(ctx, websocket.EventPhaseAdvanced, c, map[string]survey.Phase{"from": from, "to": c.CurrentPhase})
	return c, res, nil
}

// Evaluate runs every rule with a recorded finding and the airway
// recommendations against the stored findings.
func (s *Service) Evaluate(ctx context.Context, id uuid.UUID) (*Evaluation, error) {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	actions, err := s.registry.EvaluateAll(Observations(c.Findings), c.Patient)
	if err != nil {
		return nil, err
	}
	return &Evaluation{
		CaseID:          c.ID,
		Phase:           c.CurrentPhase,
		Actions:         actions,
		Recommendations: recommendation.GenerateAirway(c.Findings.Airway, c.Parameters),
	}, nil
}

// RecordAction appends a completed action stamped with the current time.
// An action already recorded at the same instant is returned unchanged.
func (s *Service) RecordAction(ctx context.Context, id uuid.UUID, in ActionInput) (*Case, audittrail.CompletedAction, error) {
	unlock := s.locks.lock(id)
	defer unlock()

	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, audittrail.CompletedAction{}, err
	}
	phase := in.Phase
	if phase == "" {
		phase = c.CurrentPhase
	}
	at := s.now().UTC()
	if entry, dup := entryAt(c.Trail, in.ActionID, at); dup {
		return c, entry, nil
	}

	next, err := audittrail.RecordCompletion(c.Trail, at, audittrail.Completion{
		ActionID: in.ActionID,
		Title:    in.Title,
		Phase:    phase,
		Notes:    in.Notes,
		Vitals:   in.Vitals,
	})
	if err != nil {
		return nil, audittrail.CompletedAction{}, err
	}
	entry, err := s.append(ctx, c, next)
	if err != nil {
		return nil, audittrail.CompletedAction{}, err
	}

	if s.reminders != nil {
		s.reminders.Schedule(c.ID, entry.ActionID, trigger.TimerFor(entry.ActionID))
	}
	return c, entry, nil
}

// SkipAction appends a skipped action with its reason.
func (s *Service) SkipAction(ctx context.Context, id uuid.UUID, in SkipInput) (*Case, audittrail.CompletedAction, error) {
	unlock := s.locks.lock(id)
	defer unlock()

	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, audittrail.CompletedAction{}, err
	}
	phase := in.Phase
	if phase == "" {
		phase = c.CurrentPhase
	}
	at := s.now().UTC()
	if entry, dup := entryAt(c.Trail, in.ActionID, at); dup {
		return c, entry, nil
	}

	next, err := audittrail.RecordSkip(c.Trail, at, audittrail.Skip{
		ActionID: in.ActionID,
		Title:    in.Title,
		Phase:    phase,
		Reason:   in.Reason,
	})
	if err != nil {
		return nil, audittrail.CompletedAction{}, err
	}
	entry, err := s.append(ctx, c, next)
	if err != nil {
		return nil, audittrail.CompletedAction{}, err
	}
	return c, entry, nil
}

// append stores the last entry of next as the case's new trail.
func (s *Service) append(ctx context.Context, c *Case, next audittrail.Trail) (audittrail.CompletedAction, error) {
	entry := next.Actions[len(next.Actions)-1]
	c.Trail = next
	c.UpdatedAt = entry.CompletedAt
	if err := s.repo.AppendAction(ctx, c, entry); err != nil {
		return audittrail.CompletedAction{}, err
	}

	s.logger.Info().Str("case_id", c.ID.String()).Str("action_id", entry.ActionID).
		Str("phase", string(entry.Phase)).Int("duration_seconds", entry.DurationSeconds).
		Bool("skipped", entry.Skipped).Msg("action recorded")
	s.publish(ctx, websocket.EventTrailUpdated, c, map[string]interface{}{
		"entry":              entry,
		"total_time_seconds": c.Trail.TotalTimeSeconds,
		"phase_timings":      c.Trail.PhaseTimings,
	})
	return entry, nil
}

// Close sets the closing status of a case and scores the trail. When the
// airway findings produce recommendations, the titles of completed actions
// are scored against them for guideline compliance.
func (s *Service) Close(ctx context.Context, id uuid.UUID, status audittrail.Status) (*CloseReport, error) {
	unlock := s.locks.lock(id)
	defer unlock()

	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	next, err := audittrail.Finish(c.Trail, s.now(), status)
	if err != nil {
		return nil, err
	}
	c.Trail = next
	c.UpdatedAt = s.now().UTC()
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, err
	}

	report := &CloseReport{
		Case:            c,
		EfficiencyScore: audittrail.EfficiencyScore(c.Trail),
		Gaps:            audittrail.ActionGaps(c.Trail),
	}
	if recs := recommendation.GenerateAirway(c.Findings.Airway, c.Parameters); len(recs) > 0 {
		compliance := recommendation.Compliance(recs, performedTitles(c.Trail))
		report.Compliance = &compliance
	}

	if status.Terminal() {
		if s.reminders != nil {
			s.reminders.Cancel(c.ID)
		}
		s.locks.forget(c.ID)
	}
	s.logger.Info().Str("case_id", c.ID.String()).Str("status", string(status)).
		Int("efficiency_score", report.EfficiencyScore).Int("gaps", len(report.Gaps)).
		Int("total_time_seconds", c.Trail.TotalTimeSeconds).Msg("case closed")
	s.publish(ctx, websocket.EventCaseClosed, c, map[string]interface{}{
		"status":           status,
		"efficiency_score": report.EfficiencyScore,
	})
	return report, nil
}

func (s *Service) Efficiency(ctx context.Context, id uuid.UUID) (*Efficiency, error) {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Efficiency{Score: audittrail.EfficiencyScore(c.Trail), Gaps: audittrail.ActionGaps(c.Trail)}, nil
}

func (s *Service) Summary(ctx context.Context, id uuid.UUID) (string, error) {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return audittrail.Summary(c.Trail), nil
}

func (s *Service) Export(ctx context.Context, id uuid.UUID) ([]byte, error) {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return audittrail.Export(c.Trail)
}

// Voice parses a spoken or typed phrase and evaluates each recognised
// command against the case patient. Unrecognised text yields no results. A
// command the rule rejects, such as an out-of-range reading, carries its
// error and does not stop the others from being evaluated.
func (s *Service) Voice(ctx context.Context, id uuid.UUID, text string) ([]VoiceResult, error) {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	results := []VoiceResult{}
	for _, cmd := range voice.Parse(text) {
		res := VoiceResult{Phrase: cmd.Phrase, Trigger: cmd.Trigger, Value: cmd.Value}
		out, err := s.registry.Evaluate(cmd.Trigger, cmd.Value, c.Patient)
		if err != nil {
			s.logger.Warn().Err(err).Str("case_id", c.ID.String()).Str("phrase", cmd.Phrase).
				Msg("voice command rejected")
			res.Error = err.Error()
		} else {
			res.Outcome = out
		}
		results = append(results, res)
	}
	return results, nil
}

// openCase loads a case that still accepts findings and phase changes.
func (s *Service) openCase(ctx context.Context, id uuid.UUID) (*Case, error) {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.Closed() {
		return nil, fmt.Errorf("%w: status is %s", audittrail.ErrTrailClosed, c.Status())
	}
	return c, nil
}

func (s *Service) publish(ctx context.Context, eventType string, c *Case, payload interface{}) {
	if s.publisher == nil {
		return
	}
	ev, err := websocket.NewEvent(eventType, c.ID.String(), s.now(), payload)
	if err == nil {
		err = s.publisher.Publish(ctx, ev)
	}
	if err != nil {
		s.logger.Warn().Err(err).Str("case_id", c.ID.String()).Str("type", eventType).Msg("failed to publish event")
	}
}

func entryAt(t audittrail.Trail, actionID string, at time.Time) (audittrail.CompletedAction, bool) {
	for _, a := range t.Actions {
		if a.ActionID == actionID && a.CompletedAt.Equal(at) {
			return a, true
		}
	}
	return audittrail.CompletedAction{}, false
}

func performedTitles(t audittrail.Trail) []string {
	out := make([]string, 0, len(t.Actions))
	for _, a := range t.Actions {
		if !a.Skipped {
			out = append(out, a.ActionTitle)
		}
	}
	return out
}

// caseLocks hands out one mutex per case id.
type caseLocks struct {
	mu sync.Mutex
	m  map[uuid.UUID]*sync.Mutex
}

func (l *caseLocks) lock(id uuid.UUID) func() {
	l.mu.Lock()
	m, ok := l.m[id]
	if !ok {
		m = &sync.Mutex{}
		l.m[id] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}

// forget drops the mutex of a closed case. Later writers get a fresh mutex
// and are refused by the closed trail.
func (l *caseLocks) forget(id uuid.UUID) {
	l.mu.Lock()
	delete(l.m, id)
	l.mu.Unlock()
}
