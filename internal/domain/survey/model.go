package survey

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownPhase is returned for a phase name outside the primary survey.
	ErrUnknownPhase = errors.New("unknown phase")
	// ErrInvalidFinding is returned when a categorical finding has a value
	// outside its enumeration.
	ErrInvalidFinding = errors.New("invalid finding")
)

// Phase is a step of the primary survey.
type Phase string

const (
	PhaseAirway      Phase = "airway"
	PhaseBreathing   Phase = "breathing"
	PhaseCirculation Phase = "circulation"
	PhaseDisability  Phase = "disability"
	PhaseExposure    Phase = "exposure"
	// PhaseComplete follows exposure once every phase has been passed.
	PhaseComplete Phase = "complete"
)

// Phases lists the assessment phases in survey order.
var Phases = []Phase{PhaseAirway, PhaseBreathing, PhaseCirculation, PhaseDisability, PhaseExposure}

// ParsePhase converts a phase name into a Phase.
func ParsePhase(s string) (Phase, error) {
	for _, p := range Phases {
		if string(p) == s {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPhase, s)
}

// Next returns the phase after p. Exposure is followed by PhaseComplete.
func (p Phase) Next() Phase {
	for i, ph := range Phases {
		if ph == p {
			if i == len(Phases)-1 {
				return PhaseComplete
			}
			return Phases[i+1]
		}
	}
	return PhaseComplete
}

// IsCritical reports whether the phase is one of airway, breathing or
// circulation, where skipped actions weigh heavier.
func (p Phase) IsCritical() bool {
	return p == PhaseAirway || p == PhaseBreathing || p == PhaseCirculation
}

// AVPU responsiveness levels.
const (
	AVPUAlert        = "alert"
	AVPUVoice        = "voice"
	AVPUPain         = "pain"
	AVPUUnresponsive = "unresponsive"
)

// Airway patency values.
const (
	AirwayPatent     = "patent"
	AirwayAtRisk     = "at_risk"
	AirwayObstructed = "obstructed"
)

// Skin perfusion values.
const (
	SkinWarm = "warm"
	SkinCool = "cool"
	SkinCold = "cold"
)

var (
	avpuValues        = []string{AVPUAlert, AVPUVoice, AVPUPain, AVPUUnresponsive}
	patencyValues     = []string{AirwayPatent, AirwayAtRisk, AirwayObstructed}
	obstructionValues = []string{"upper_airway", "lower_airway", "foreign_body", "swelling", "secretions"}
	secretionValues   = []string{"none", "minimal", "moderate", "copious"}
	skinValues        = []string{SkinWarm, SkinCool, SkinCold}
	pupilValues       = []string{"equal_reactive", "unequal", "sluggish", "fixed_dilated", "pinpoint"}
	rashValues        = []string{"petechial", "purpuric", "urticarial", "maculopapular", "vesicular", "other"}
)

// AirwayFindings are the airway-phase observations. Nil means not assessed.
type AirwayFindings struct {
	Responsiveness         *string  `json:"responsiveness"`
	AirwayPatency          *string  `json:"airway_patency"`
	ObstructionType        *string  `json:"obstruction_type,omitempty"`
	Secretions             *string  `json:"secretions,omitempty"`
	InterventionsPerformed []string `json:"interventions_performed,omitempty"`
}

type BreathingFindings struct {
	BreathingAdequate *bool    `json:"breathing_adequate"`
	RespiratoryRate   *float64 `json:"respiratory_rate"`
	SpO2              *float64 `json:"spo2"`
}

type CirculationFindings struct {
	PulsePresent    *bool    `json:"pulse_present"`
	HeartRate       *float64 `json:"heart_rate"`
	SystolicBP      *float64 `json:"systolic_bp"`
	SkinPerfusion   *string  `json:"skin_perfusion"`
	CapillaryRefill *float64 `json:"capillary_refill"`
}

type DisabilityFindings struct {
	Consciousness   *string  `json:"consciousness"`
	Pupils          *string  `json:"pupils"`
	Glucose         *float64 `json:"glucose"`
	SeizureActivity *bool    `json:"seizure_activity"`
}

type ExposureFindings struct {
	Temperature *float64 `json:"temperature"`
	Rash        *bool    `json:"rash"`
	RashType    *string  `json:"rash_type"`
}

// Assessment holds the findings of every phase of one primary survey.
type Assessment struct {
	Airway      AirwayFindings      `json:"airway"`
	Breathing   BreathingFindings   `json:"breathing"`
	Circulation CirculationFindings `json:"circulation"`
	Disability  DisabilityFindings  `json:"disability"`
	Exposure    ExposureFindings    `json:"exposure"`
}

// Result is the outcome of validating one phase.
// CanAdvance == IsComplete && len(CriticalFindingsUnresolved) == 0.
type Result struct {
	Phase                      Phase    `json:"phase"`
	IsComplete                 bool     `json:"is_complete"`
	CanAdvance                 bool     `json:"can_advance"`
	Errors                     []string `json:"errors"`
	CriticalFindingsUnresolved []string `json:"critical_findings_unresolved"`
}
