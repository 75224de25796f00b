package survey

import (
	"errors"
	"strings"
	"testing"
)

func str(s string) *string   { return &s }
func f64(v float64) *float64 { return &v }
func boolean(b bool) *bool   { return &b }

func TestValidate_AirwayUnresponsiveBlocksAdvance(t *testing.T) {
	a := Assessment{Airway: AirwayFindings{Responsiveness: str("unresponsive"), AirwayPatency: str("patent")}}
	res, err := Validate(PhaseAirway, a)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.IsComplete {
		t.Error("expected complete")
	}
	if res.CanAdvance {
		t.Error("expected advancement to be blocked")
	}
	if len(res.CriticalFindingsUnresolved) != 1 || res.CriticalFindingsUnresolved[0] != MsgUnresponsive {
		t.Errorf("unexpected critical findings: %v", res.CriticalFindingsUnresolved)
	}
}

func TestValidate_AirwayAlertPatentAdvances(t *testing.T) {
	a := Assessment{Airway: AirwayFindings{Responsiveness: str("alert"), AirwayPatency: str("patent")}}
	res, err := Validate(PhaseAirway, a)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.IsComplete || !res.CanAdvance {
		t.Errorf("expected complete and advanceable, got %+v", res)
	}
	if len(res.Errors) != 0 || len(res.CriticalFindingsUnresolved) != 0 {
		t.Errorf("expected empty lists, got %+v", res)
	}
}

func TestValidate_AirwayMissingFields(t *testing.T) {
	res, err := Validate(PhaseAirway, Assessment{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.IsComplete || res.CanAdvance {
		t.Error("empty airway must not be complete")
	}
	want := []string{"responsiveness is required", "airway_patency is required"}
	if strings.Join(res.Errors, "|") != strings.Join(want, "|") {
		t.Errorf("errors = %v, want %v", res.Errors, want)
	}
}

func TestValidate_AirwayObstructed(t *testing.T) {
	a := Assessment{Airway: AirwayFindings{Responsiveness: str("voice"), AirwayPatency: str("obstructed")}}
	res, _ := Validate(PhaseAirway, a)
	if res.CanAdvance {
		t.Error("obstructed airway must block")
	}
	if res.CriticalFindingsUnresolved[0] != MsgAirwayObstructed {
		t.Errorf("unexpected findings %v", res.CriticalFindingsUnresolved)
	}
}

func TestValidate_CriticalIndependentOfCompleteness(t *testing.T) {
	a := Assessment{Breathing: BreathingFindings{SpO2: f64(85)}}
	res, _ := Validate(PhaseBreathing, a)
	if res.IsComplete {
		t.Error("breathing should be incomplete")
	}
	if len(res.CriticalFindingsUnresolved) != 1 || !strings.Contains(res.CriticalFindingsUnresolved[0], "SpO2 critically low") {
		t.Errorf("expected SpO2 critical finding, got %v", res.CriticalFindingsUnresolved)
	}
}

func TestValidate_Breathing(t *testing.T) {
	a := Assessment{Breathing: BreathingFindings{BreathingAdequate: boolean(false), RespiratoryRate: f64(8), SpO2: f64(92)}}
	res, _ := Validate(PhaseBreathing, a)
	if !res.IsComplete || res.CanAdvance {
		t.Errorf("expected complete but blocked, got %+v", res)
	}
	if res.CriticalFindingsUnresolved[0] != MsgBreathingInadequate {
		t.Errorf("unexpected findings %v", res.CriticalFindingsUnresolved)
	}

	a.Breathing.BreathingAdequate = boolean(true)
	res, _ = Validate(PhaseBreathing, a)
	if !res.CanAdvance {
		t.Errorf("SpO2 92 is not critical, expected advance, got %+v", res)
	}
}

func TestValidate_CirculationNoPulseAndShock(t *testing.T) {
	a := Assessment{Circulation: CirculationFindings{
		PulsePresent: boolean(false), HeartRate: f64(0), SystolicBP: f64(50),
		SkinPerfusion: str("cold"), CapillaryRefill: f64(5),
	}}
	res, err := Validate(PhaseCirculation, a)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.CriticalFindingsUnresolved) != 2 {
		t.Fatalf("expected 2 critical findings, got %v", res.CriticalFindingsUnresolved)
	}
	if res.CriticalFindingsUnresolved[0] != MsgNoPulse {
		t.Errorf("expected no-pulse first, got %q", res.CriticalFindingsUnresolved[0])
	}
	if !strings.HasPrefix(res.CriticalFindingsUnresolved[1], "Signs of shock") {
		t.Errorf("expected shock flag, got %q", res.CriticalFindingsUnresolved[1])
	}
}

func TestValidate_CirculationColdSkinNormalRefill(t *testing.T) {
	a := Assessment{Circulation: CirculationFindings{
		PulsePresent: boolean(true), HeartRate: f64(120), SystolicBP: f64(95),
		SkinPerfusion: str("cold"), CapillaryRefill: f64(2),
	}}
	res, _ := Validate(PhaseCirculation, a)
	if !res.CanAdvance {
		t.Errorf("cold skin with normal refill should not block, got %+v", res)
	}
}

func TestValidate_DisabilityHypoglycemiaBothUnits(t *testing.T) {
	for _, g := range []float64{2.0, 40} {
		a := Assessment{Disability: DisabilityFindings{
			Consciousness: str("voice"), Pupils: str("equal_reactive"), Glucose: f64(g), SeizureActivity: boolean(false),
		}}
		res, _ := Validate(PhaseDisability, a)
		if res.CanAdvance {
			t.Errorf("glucose %v should block", g)
		}
		if len(res.CriticalFindingsUnresolved) != 1 || !strings.HasPrefix(res.CriticalFindingsUnresolved[0], "Severe hypoglycemia") {
			t.Errorf("glucose %v: unexpected findings %v", g, res.CriticalFindingsUnresolved)
		}
	}
}

func TestValidate_DisabilitySeizure(t *testing.T) {
	a := Assessment{Disability: DisabilityFindings{
		Consciousness: str("pain"), Pupils: str("equal_reactive"), Glucose: f64(5.5), SeizureActivity: boolean(true),
	}}
	res, _ := Validate(PhaseDisability, a)
	if res.CanAdvance || res.CriticalFindingsUnresolved[0] != MsgSeizure {
		t.Errorf("expected seizure block, got %+v", res)
	}
}

func TestValidate_ExposureRashRequiresType(t *testing.T) {
	a := Assessment{Exposure: ExposureFindings{Temperature: f64(37), Rash: boolean(true)}}
	res, _ := Validate(PhaseExposure, a)
	if res.IsComplete {
		t.Error("rash without type must be incomplete")
	}
	if len(res.CriticalFindingsUnresolved) != 0 {
		t.Errorf("missing rash type is an error, not a critical finding: %v", res.CriticalFindingsUnresolved)
	}
	if res.Errors[0] != "rash_type is required when rash is present" {
		t.Errorf("unexpected errors %v", res.Errors)
	}

	a.Exposure.RashType = str("petechial")
	res, _ = Validate(PhaseExposure, a)
	if !res.CanAdvance {
		t.Errorf("expected advance, got %+v", res)
	}
}

func TestValidate_ExposureFever(t *testing.T) {
	a := Assessment{Exposure: ExposureFindings{Temperature: f64(38.5)}}
	res, _ := Validate(PhaseExposure, a)
	if res.CanAdvance {
		t.Error("fever should block")
	}
	if !strings.HasPrefix(res.CriticalFindingsUnresolved[0], "Fever (38.5") {
		t.Errorf("unexpected findings %v", res.CriticalFindingsUnresolved)
	}
}

func TestValidate_RejectsMalformedEnum(t *testing.T) {
	a := Assessment{Airway: AirwayFindings{Responsiveness: str("sleepy")}}
	_, err := Validate(PhaseAirway, a)
	if !errors.Is(err, ErrInvalidFinding) {
		t.Errorf("expected ErrInvalidFinding, got %v", err)
	}
}

func TestValidate_UnknownPhase(t *testing.T) {
	_, err := Validate(Phase("history"), Assessment{})
	if !errors.Is(err, ErrUnknownPhase) {
		t.Errorf("expected ErrUnknownPhase, got %v", err)
	}
}

func TestValidate_Deterministic(t *testing.T) {
	a := Assessment{Circulation: CirculationFindings{PulsePresent: boolean(false)}}
	r1, _ := Validate(PhaseCirculation, a)
	r2, _ := Validate(PhaseCirculation, a)
	if strings.Join(r1.Errors, ",") != strings.Join(r2.Errors, ",") ||
		strings.Join(r1.CriticalFindingsUnresolved, ",") != strings.Join(r2.CriticalFindingsUnresolved, ",") {
		t.Error("validation must be deterministic")
	}
}

func TestPhase_Next(t *testing.T) {
	want := map[Phase]Phase{
		PhaseAirway:      PhaseBreathing,
		PhaseBreathing:   PhaseCirculation,
		PhaseCirculation: PhaseDisability,
		PhaseDisability:  PhaseExposure,
		PhaseExposure:    PhaseComplete,
	}
	for from, to := range want {
		if got := from.Next(); got != to {
			t.Errorf("%s.Next() = %s, want %s", from, got, to)
		}
	}
}

func TestParsePhase(t *testing.T) {
	if p, err := ParsePhase("circulation"); err != nil || p != PhaseCirculation {
		t.Errorf("ParsePhase(circulation) = %v, %v", p, err)
	}
	if _, err := ParsePhase("complete"); !errors.Is(err, ErrUnknownPhase) {
		t.Errorf("complete is not an assessable phase, got %v", err)
	}
}

func TestAssessment_Merge(t *testing.T) {
	base := Assessment{Airway: AirwayFindings{Responsiveness: str("unresponsive"), AirwayPatency: str("patent")}}
	merged := base.Merge(Assessment{Airway: AirwayFindings{Responsiveness: str("voice")}, Breathing: BreathingFindings{SpO2: f64(97)}})

	if *merged.Airway.Responsiveness != "voice" {
		t.Errorf("expected responsiveness overwritten, got %s", *merged.Airway.Responsiveness)
	}
	if *merged.Airway.AirwayPatency != "patent" {
		t.Error("expected airway patency preserved")
	}
	if merged.Breathing.SpO2 == nil || *merged.Breathing.SpO2 != 97 {
		t.Error("expected SpO2 applied")
	}
	if *base.Airway.Responsiveness != "unresponsive" {
		t.Error("merge must not mutate the receiver")
	}
}
