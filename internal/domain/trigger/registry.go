package trigger

import (
	"fmt"
	"sort"

	"github.com/resus/resus/internal/domain/patient"
)

// Registry holds the named rules in registration order.
type Registry struct {
	order []Name
	rules map[Name]Rule
}

// NewRegistry returns a registry with the ten primary-survey rules.
func NewRegistry() *Registry {
	r := &Registry{rules: make(map[Name]Rule)}
	r.Register(Breathing, CheckBreathing)
	r.Register(Pulse, CheckPulse)
	r.Register(Responsiveness, CheckResponsiveness)
	r.Register(Airway, CheckAirway)
	r.Register(SpO2, CheckSpO2)
	r.Register(HeartRate, CheckHeartRate)
	r.Register(Perfusion, CheckPerfusion)
	r.Register(Glucose, CheckGlucose)
	r.Register(Seizure, CheckSeizure)
	r.Register(Rash, CheckRash)
	return r
}

// Register adds or replaces a rule. A replaced rule keeps its position.
func (r *Registry) Register(name Name, rule Rule) {
	if _, ok := r.rules[name]; !ok {
		r.order = append(r.order, name)
	}
	r.rules[name] = rule
}

// Names returns the registered rule names in registration order.
func (r *Registry) Names() []Name {
	out := make([]Name, len(r.order))
	copy(out, r.order)
	return out
}

// Evaluate runs a single named rule.
func (r *Registry) Evaluate(name Name, obs Observation, id patient.Identity) (Outcome, error) {
	rule, ok := r.rules[name]
	if !ok {
		return NotTriggered(), fmt.Errorf("%w: %q", ErrUnknownTrigger, name)
	}
	return rule(obs, id)
}

// EvaluateAll runs every rule with an observation in obs and returns the
// fired actions, most severe first, ties kept in registration order.
// Names in obs without a registered rule are rejected.
func (r *Registry) EvaluateAll(obs map[Name]Observation, id patient.Identity) ([]CriticalAction, error) {
	for name := range obs {
		if _, ok := r.rules[name]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownTrigger, name)
		}
	}

	actions := []CriticalAction{}
	for _, name := range r.order {
		o, ok := obs[name]
		if !ok {
			continue
		}
		out, err := r.rules[name](o, id)
		if err != nil {
			return nil, fmt.Errorf("evaluate %s: %w", name, err)
		}
		if a, fired := out.Action(); fired {
			actions = append(actions, a)
		}
	}
	sort.SliceStable(actions, func(i, j int) bool {
		return actions[i].Severity.Rank() < actions[j].Severity.Rank()
	})
	return actions, nil
}
