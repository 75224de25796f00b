package trigger

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

var (
	// ErrUnknownTrigger is returned when no rule is registered under a name.
	ErrUnknownTrigger = errors.New("unknown trigger")
	// ErrInvalidObservation is returned for a value of the wrong kind, an
	// enumeration value the rule does not know, or an out-of-range number.
	ErrInvalidObservation = errors.New("invalid observation")
)

// Name identifies a single-parameter rule.
type Name string

const (
	Breathing      Name = "breathing"
	Pulse          Name = "pulse"
	Responsiveness Name = "responsiveness"
	Airway         Name = "airway"
	SpO2           Name = "spo2"
	HeartRate      Name = "heart_rate"
	Perfusion      Name = "perfusion"
	Glucose        Name = "glucose"
	Seizure        Name = "seizure"
	Rash           Name = "rash"
)

// Severity tiers of a CriticalAction.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityUrgent   Severity = "urgent"
	SeverityRoutine  Severity = "routine"
)

// Rank orders severities, lower is more severe.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityUrgent:
		return 1
	default:
		return 2
	}
}

// CriticalAction is the single action a rule emits. It carries no
// timestamps, so evaluating the same input twice yields an identical value.
type CriticalAction struct {
	ID            string   `json:"id"`
	Trigger       Name     `json:"trigger"`
	Severity      Severity `json:"severity"`
	Title         string   `json:"title"`
	Instruction   string   `json:"instruction"`
	Dose          string   `json:"dose,omitempty"`
	Route         string   `json:"route,omitempty"`
	Rationale     string   `json:"rationale"`
	ReassessAfter string   `json:"reassess_after"`
	TimerSeconds  int      `json:"timer_seconds,omitempty"`
}

// Outcome is the tagged result of a rule: either Fired with exactly one
// action, or NotTriggered.
type Outcome struct {
	action *CriticalAction
}

// Fired wraps an emitted action.
func Fired(a CriticalAction) Outcome {
	return Outcome{action: &a}
}

// NotTriggered is the outcome of a rule that found nothing to do.
func NotTriggered() Outcome {
	return Outcome{}
}

// Fired reports whether the rule emitted an action.
func (o Outcome) Fired() bool {
	return o.action != nil
}

// Action returns the emitted action, if any.
func (o Outcome) Action() (CriticalAction, bool) {
	if o.action == nil {
		return CriticalAction{}, false
	}
	return *o.action, true
}

func (o Outcome) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Fired  bool            `json:"fired"`
		Action *CriticalAction `json:"action"`
	}{o.action != nil, o.action})
}

// Kind of an observed value.
type Kind int

const (
	KindUnset Kind = iota
	KindNumber
	KindCategory
	KindFlag
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindCategory:
		return "category"
	case KindFlag:
		return "flag"
	default:
		return "unset"
	}
}

// Observation is one observed value: a number for vitals, an enumerated
// string for categorical findings, a boolean for present/absent findings,
// or unset when the parameter has not been assessed.
type Observation struct {
	kind     Kind
	num      float64
	category string
	flag     bool
}

func Number(v float64) Observation { return Observation{kind: KindNumber, num: v} }

func Category(s string) Observation { return Observation{kind: KindCategory, category: s} }

func Flag(b bool) Observation { return Observation{kind: KindFlag, flag: b} }

func Unset() Observation { return Observation{} }

func (o Observation) Kind() Kind { return o.kind }

func (o Observation) IsUnset() bool { return o.kind == KindUnset }

func (o Observation) String() string {
	switch o.kind {
	case KindNumber:
		return strconv.FormatFloat(o.num, 'f', -1, 64)
	case KindCategory:
		return o.category
	case KindFlag:
		return strconv.FormatBool(o.flag)
	default:
		return "unset"
	}
}

// UnmarshalJSON accepts null, a number, a string or a boolean.
func (o *Observation) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*o = Unset()
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*o = Category(s)
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*o = Flag(b)
	default:
		var n float64
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("%w: %s", ErrInvalidObservation, string(data))
		}
		*o = Number(n)
	}
	return nil
}

func (o Observation) MarshalJSON() ([]byte, error) {
	switch o.kind {
	case KindNumber:
		return json.Marshal(o.num)
	case KindCategory:
		return json.Marshal(o.category)
	case KindFlag:
		return json.Marshal(o.flag)
	default:
		return []byte("null"), nil
	}
}

// numberOf reads a numeric observation. Zero is the "not measured" sentinel.
func (o Observation) numberOf(name Name) (float64, bool, error) {
	switch o.kind {
	case KindUnset:
		return 0, false, nil
	case KindNumber:
		if o.num == 0 {
			return 0, false, nil
		}
		if o.num < 0 {
			return 0, false, fmt.Errorf("%w: %s must not be negative, got %v", ErrInvalidObservation, name, o.num)
		}
		return o.num, true, nil
	default:
		return 0, false, fmt.Errorf("%w: %s expects a number, got %s", ErrInvalidObservation, name, o.kind)
	}
}

// categoryOf reads a categorical observation restricted to allowed values.
func (o Observation) categoryOf(name Name, allowed ...string) (string, bool, error) {
	switch o.kind {
	case KindUnset:
		return "", false, nil
	case KindCategory:
		if o.category == "" {
			return "", false, nil
		}
		for _, a := range allowed {
			if o.category == a {
				return o.category, true, nil
			}
		}
		return "", false, fmt.Errorf("%w: %s %q is not one of %v", ErrInvalidObservation, name, o.category, allowed)
	default:
		return "", false, fmt.Errorf("%w: %s expects one of %v, got %s", ErrInvalidObservation, name, allowed, o.kind)
	}
}
