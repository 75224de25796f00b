package survey

import (
	"fmt"
	"strconv"

	"github.com/resus/resus/internal/domain/vitals"
)

// Critical finding messages that block advancement until re-assessed.
const (
	MsgUnresponsive        = "Child is unresponsive - airway protection required"
	MsgAirwayObstructed    = "Airway is obstructed - immediate intervention required"
	MsgBreathingInadequate = "Breathing is inadequate - ventilation required"
	MsgNoPulse             = "NO PULSE DETECTED - START CPR IMMEDIATELY"
	MsgSeizure             = "Active seizure - anticonvulsant required"
)

// Validate evaluates completeness and critical findings for one phase. It
// holds no state: callers re-run it after every field change and decide
// whether to move on by checking CanAdvance.
func Validate(phase Phase, a Assessment) (*Result, error) {
	var missing, critical []string
	var err error

	switch phase {
	case PhaseAirway:
		missing, critical, err = validateAirway(a.Airway)
	case PhaseBreathing:
		missing, critical = validateBreathing(a.Breathing)
	case PhaseCirculation:
		missing, critical, err = validateCirculation(a.Circulation)
	case PhaseDisability:
		missing, critical, err = validateDisability(a.Disability)
	case PhaseExposure:
		missing, critical, err = validateExposure(a.Exposure)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPhase, phase)
	}
	if err != nil {
		return nil, err
	}

	res := &Result{
		Phase:                      phase,
		IsComplete:                 len(missing) == 0,
		Errors:                     nonNil(missing),
		CriticalFindingsUnresolved: nonNil(critical),
	}
	res.CanAdvance = res.IsComplete && len(res.CriticalFindingsUnresolved) == 0
	return res, nil
}

func validateAirway(f AirwayFindings) (missing, critical []string, err error) {
	if err = checkEnum("responsiveness", f.Responsiveness, avpuValues); err != nil {
		return
	}
	if err = checkEnum("airway_patency", f.AirwayPatency, patencyValues); err != nil {
		return
	}
	if err = checkEnum("obstruction_type", f.ObstructionType, obstructionValues); err != nil {
		return
	}
	if err = checkEnum("secretions", f.Secretions, secretionValues); err != nil {
		return
	}

	if f.Responsiveness == nil {
		missing = append(missing, required("responsiveness"))
	}
	if f.AirwayPatency == nil {
		missing = append(missing, required("airway_patency"))
	}

	if is(f.Responsiveness, AVPUUnresponsive) {
		critical = append(critical, MsgUnresponsive)
	}
	if is(f.AirwayPatency, AirwayObstructed) {
		critical = append(critical, MsgAirwayObstructed)
	}
	return
}

func validateBreathing(f BreathingFindings) (missing, critical []string) {
	if f.BreathingAdequate == nil {
		missing = append(missing, required("breathing_adequate"))
	}
	if f.RespiratoryRate == nil {
		missing = append(missing, required("respiratory_rate"))
	}
	if f.SpO2 == nil {
		missing = append(missing, required("spo2"))
	}

	if f.BreathingAdequate != nil && !*f.BreathingAdequate {
		critical = append(critical, MsgBreathingInadequate)
	}
	if f.SpO2 != nil && vitals.SpO2IsCritical(*f.SpO2) {
		critical = append(critical, fmt.Sprintf("SpO2 critically low (%s%%) - high-flow oxygen required", num(*f.SpO2)))
	}
	return
}

func validateCirculation(f CirculationFindings) (missing, critical []string, err error) {
	if err = checkEnum("skin_perfusion", f.SkinPerfusion, skinValues); err != nil {
		return
	}

	if f.PulsePresent == nil {
		missing = append(missing, required("pulse_present"))
	}
	if f.HeartRate == nil {
		missing = append(missing, required("heart_rate"))
	}
	if f.SystolicBP == nil {
		missing = append(missing, required("systolic_bp"))
	}
	if f.SkinPerfusion == nil {
		missing = append(missing, required("skin_perfusion"))
	}
	if f.CapillaryRefill == nil {
		missing = append(missing, required("capillary_refill"))
	}

	if f.PulsePresent != nil && !*f.PulsePresent {
		critical = append(critical, MsgNoPulse)
	}
	if is(f.SkinPerfusion, SkinCold) && f.CapillaryRefill != nil && *f.CapillaryRefill > vitals.CapillaryRefillProlonged {
		critical = append(critical, fmt.Sprintf("Signs of shock - cold skin with prolonged capillary refill (%ss)", num(*f.CapillaryRefill)))
	}
	return
}

func validateDisability(f DisabilityFindings) (missing, critical []string, err error) {
	if err = checkEnum("consciousness", f.Consciousness, avpuValues); err != nil {
		return
	}
	if err = checkEnum("pupils", f.Pupils, pupilValues); err != nil {
		return
	}

	if f.Consciousness == nil {
		missing = append(missing, required("consciousness"))
	}
	if f.Pupils == nil {
		missing = append(missing, required("pupils"))
	}
	if f.Glucose == nil {
		missing = append(missing, required("glucose"))
	}
	if f.SeizureActivity == nil {
		missing = append(missing, required("seizure_activity"))
	}

	// zero is the "not measured" sentinel
	if f.Glucose != nil && *f.Glucose > 0 && vitals.GlucoseIsSevereHypo(*f.Glucose) {
		mmol, _ := vitals.GlucoseMmol(*f.Glucose)
		critical = append(critical, fmt.Sprintf("Severe hypoglycemia (%s mmol/L) - give dextrose", num(vitals.Round(mmol, 1))))
	}
	if f.SeizureActivity != nil && *f.SeizureActivity {
		critical = append(critical, MsgSeizure)
	}
	return
}

func validateExposure(f ExposureFindings) (missing, critical []string, err error) {
	if err = checkEnum("rash_type", f.RashType, rashValues); err != nil {
		return
	}

	if f.Temperature == nil {
		missing = append(missing, required("temperature"))
	}
	if f.Rash != nil && *f.Rash && f.RashType == nil {
		missing = append(missing, "rash_type is required when rash is present")
	}

	if f.Temperature != nil && vitals.IsFever(*f.Temperature) {
		critical = append(critical, fmt.Sprintf("Fever (%s°C) - assess for sepsis", num(*f.Temperature)))
	}
	return
}

func checkEnum(field string, v *string, allowed []string) error {
	if v == nil {
		return nil
	}
	for _, a := range allowed {
		if *v == a {
			return nil
		}
	}
	return fmt.Errorf("%w: %s %q is not one of %v", ErrInvalidFinding, field, *v, allowed)
}

func required(field string) string {
	return field + " is required"
}

func is(v *string, want string) bool {
	return v != nil && *v == want
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
