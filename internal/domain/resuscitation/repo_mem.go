package resuscitation

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/resus/resus/internal/domain/audittrail"
	"github.com/resus/resus/internal/domain/survey"
)

type repoMem struct {
	mu    sync.RWMutex
	cases map[uuid.UUID]*Case
}

// NewMemoryRepo keeps cases in process memory. Every read and write copies
// the case, so callers never share state with the store.
func NewMemoryRepo() Repository {
	return &repoMem{cases: make(map[uuid.UUID]*Case)}
}

func (r *repoMem) Create(_ context.Context, c *Case) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cases[c.ID] = copyCase(c)
	return nil
}

func (r *repoMem) Get(_ context.Context, id uuid.UUID) (*Case, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.cases[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyCase(c), nil
}

func (r *repoMem) Update(_ context.Context, c *Case) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.cases[c.ID]; !ok {
		return ErrNotFound
	}
	r.cases[c.ID] = copyCase(c)
	return nil
}

func (r *repoMem) AppendAction(_ context.Context, c *Case, entry audittrail.CompletedAction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.cases[c.ID]
	if !ok {
		return ErrNotFound
	}
	if stored.Trail.HasEntry(entry.ActionID, entry.CompletedAt) {
		return nil
	}
	r.cases[c.ID] = copyCase(c)
	return nil
}

func (r *repoMem) List(_ context.Context, limit, offset int) ([]*Case, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]*Case, 0, len(r.cases))
	for _, c := range r.cases {
		all = append(all, c)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID.String() < all[j].ID.String()
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	total := len(all)
	if offset > total {
		offset = total
	}
	end := total
	if limit > 0 && offset+limit < total {
		end = offset + limit
	}
	out := make([]*Case, 0, end-offset)
	for _, c := range all[offset:end] {
		out = append(out, copyCase(c))
	}
	return out, total, nil
}

// copyCase deep-copies the trail. Findings are shared: Merge always builds
// a new assessment and never writes through its pointers.
func copyCase(c *Case) *Case {
	out := *c
	out.Trail.Actions = make([]audittrail.CompletedAction, len(c.Trail.Actions))
	for i, a := range c.Trail.Actions {
		if a.VitalsAtCompletion != nil {
			v := make(map[string]float64, len(a.VitalsAtCompletion))
			for k, x := range a.VitalsAtCompletion {
				v[k] = x
			}
			a.VitalsAtCompletion = v
		}
		out.Trail.Actions[i] = a
	}
	out.Trail.PhaseTimings = make(map[survey.Phase]int, len(c.Trail.PhaseTimings))
	for k, v := range c.Trail.PhaseTimings {
		out.Trail.PhaseTimings[k] = v
	}
	if c.Trail.EndedAt != nil {
		end := *c.Trail.EndedAt
		out.Trail.EndedAt = &end
	}
	return &out
}
