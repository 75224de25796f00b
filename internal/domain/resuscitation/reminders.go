package resuscitation

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/resus/resus/internal/platform/websocket"
)

// Reminders publishes reassessment.due events once an action's timer runs
// out. The reminders are advisory: nothing in the case waits for them.
type Reminders struct {
	mu        sync.Mutex
	pending   map[uuid.UUID]map[*time.Timer]struct{}
	publisher websocket.EventPublisher
	logger    zerolog.Logger
	unit      time.Duration
	stopped   bool
}

func NewReminders(publisher websocket.EventPublisher, logger zerolog.Logger) *Reminders {
	return &Reminders{
		pending:   make(map[uuid.UUID]map[*time.Timer]struct{}),
		publisher: publisher,
		logger:    logger.With().Str("component", "reminders").Logger(),
		unit:      time.Second,
	}
}

type reminderPayload struct {
	ActionID     string `json:"action_id"`
	AfterSeconds int    `json:"after_seconds"`
}

// Schedule arranges a reminder for actionID after the given number of
// seconds. Non-positive delays are ignored.
func (r *Reminders) Schedule(caseID uuid.UUID, actionID string, seconds int) {
	if seconds <= 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		return
	}

	var t *time.Timer
	t = time.AfterFunc(time.Duration(seconds)*r.unit, func() {
		r.mu.Lock()
		_, live := r.pending[caseID][t]
		if live {
			r.forget(caseID, t)
		}
		r.mu.Unlock()
		if live {
			r.publish(caseID, reminderPayload{ActionID: actionID, AfterSeconds: seconds})
		}
	})
	if r.pending[caseID] == nil {
		r.pending[caseID] = make(map[*time.Timer]struct{})
	}
	r.pending[caseID][t] = struct{}{}
}

func (r *Reminders) publish(caseID uuid.UUID, payload reminderPayload) {
	ev, err := websocket.NewEvent(websocket.EventReassessmentDue, caseID.String(), time.Now(), payload)
	if err == nil {
		err = r.publisher.Publish(context.Background(), ev)
	}
	if err != nil {
		r.logger.Warn().Err(err).Str("case_id", caseID.String()).Str("action_id", payload.ActionID).
			Msg("failed to publish reassessment reminder")
		return
	}
	r.logger.Debug().Str("case_id", caseID.String()).Str("action_id", payload.ActionID).Msg("reassessment due")
}

// forget must be called with mu held.
func (r *Reminders) forget(caseID uuid.UUID, t *time.Timer) {
	delete(r.pending[caseID], t)
	if len(r.pending[caseID]) == 0 {
		delete(r.pending, caseID)
	}
}

// Cancel stops every pending reminder of a case and returns how many were
// stopped.
func (r *Reminders) Cancel(caseID uuid.UUID) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for t := range r.pending[caseID] {
		t.Stop()
		n++
	}
	delete(r.pending, caseID)
	return n
}

// Pending returns the number of reminders waiting for a case.
func (r *Reminders) Pending(caseID uuid.UUID) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending[caseID])
}

// Stop cancels everything and refuses new reminders.
func (r *Reminders) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopped = true
	for caseID, timers := range r.pending {
		for t := range timers {
			t.Stop()
		}
		delete(r.pending, caseID)
	}
}
