package recommendation

import (
	"strings"
	"testing"

	"github.com/resus/resus/internal/domain/patient"
	"github.com/resus/resus/internal/domain/survey"
)

func str(s string) *string { return &s }

func params(t *testing.T, id patient.Identity) patient.Parameters {
	t.Helper()
	p, err := patient.Derive(id)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	return p
}

func actions(recs []ClinicalRecommendation) string {
	var b strings.Builder
	for _, r := range recs {
		b.WriteString(r.Action)
		b.WriteString(" | ")
		b.WriteString(r.Dosage)
		b.WriteString("\n")
	}
	return b.String()
}

func TestGenerateAirway_UnresponsiveCascadeOnly(t *testing.T) {
	p := params(t, patient.Identity{AgeYears: 2, WeightKg: 12})
	f := survey.AirwayFindings{
		Responsiveness:         str("unresponsive"),
		AirwayPatency:          str("obstructed"),
		ObstructionType:        str(ObstructionForeignBody),
		Secretions:             str("copious"),
		InterventionsPerformed: []string{"jaw thrust"},
	}
	recs := GenerateAirway(f, p)
	if len(recs) != 5 {
		t.Fatalf("expected the five-step cascade only, got %d:\n%s", len(recs), actions(recs))
	}
	want := []string{"Activate", "compressions", "rescue breathing", "monitor", "IV/IO access"}
	for i, w := range want {
		if !strings.Contains(recs[i].Action, w) {
			t.Errorf("step %d: expected %q in %q", i+1, w, recs[i].Action)
		}
	}
	if !strings.Contains(recs[4].Dosage, "0.12 mg") {
		t.Errorf("expected weight-scaled epinephrine, got %q", recs[4].Dosage)
	}
}

func TestGenerateAirway_Patent(t *testing.T) {
	p := params(t, patient.Identity{AgeYears: 5})
	recs := GenerateAirway(survey.AirwayFindings{Responsiveness: str("alert"), AirwayPatency: str("patent")}, p)
	if len(recs) != 1 || recs[0].Priority != PriorityLow {
		t.Fatalf("expected one low-priority step, got %+v", recs)
	}
	if !strings.Contains(recs[0].Action, "breathing") {
		t.Errorf("expected proceed to breathing, got %q", recs[0].Action)
	}
}

func TestGenerateAirway_NotAssessed(t *testing.T) {
	p := params(t, patient.Identity{AgeYears: 5})
	if recs := GenerateAirway(survey.AirwayFindings{}, p); len(recs) != 0 {
		t.Errorf("expected no recommendations, got %d", len(recs))
	}
}

func TestGenerateAirway_UpperAirway(t *testing.T) {
	p := params(t, patient.Identity{AgeYears: 2, WeightKg: 12})
	recs := GenerateAirway(survey.AirwayFindings{
		Responsiveness:  str("voice"),
		AirwayPatency:   str("at_risk"),
		ObstructionType: str(ObstructionUpper),
	}, p)
	if len(recs) != 4 {
		t.Fatalf("expected 4 steps, got %d", len(recs))
	}
	if !strings.Contains(recs[0].Dosage, "0.50 mL") {
		t.Errorf("expected nebulized epinephrine capped at 0.5 mL, got %q", recs[0].Dosage)
	}
	if !strings.Contains(recs[1].Dosage, "7.2 mg") {
		t.Errorf("expected dexamethasone 7.2 mg, got %q", recs[1].Dosage)
	}
}

func TestGenerateAirway_LowerAirwayAgeGate(t *testing.T) {
	older := GenerateAirway(survey.AirwayFindings{
		AirwayPatency:   str("at_risk"),
		ObstructionType: str(ObstructionLower),
	}, params(t, patient.Identity{AgeYears: 2, WeightKg: 12}))
	if !strings.Contains(actions(older), "salbutamol") {
		t.Errorf("expected salbutamol at 2 years:\n%s", actions(older))
	}
	if !strings.Contains(older[0].Dosage, "2.5 mg") {
		t.Errorf("expected salbutamol raised to 2.5 mg minimum, got %q", older[0].Dosage)
	}

	younger := GenerateAirway(survey.AirwayFindings{
		AirwayPatency:   str("at_risk"),
		ObstructionType: str(ObstructionLower),
	}, params(t, patient.Identity{AgeYears: 1, WeightKg: 10}))
	if strings.Contains(actions(younger), "salbutamol") || strings.Contains(actions(younger), "prednisolone") {
		t.Errorf("expected no bronchodilator or steroid under 2 years:\n%s", actions(younger))
	}
}

func TestGenerateAirway_ForeignBody(t *testing.T) {
	f := survey.AirwayFindings{AirwayPatency: str("obstructed"), ObstructionType: str(ObstructionForeignBody)}

	infant := actions(GenerateAirway(f, params(t, patient.Identity{AgeMonths: 8})))
	if !strings.Contains(infant, "chest thrusts") || strings.Contains(infant, "abdominal") {
		t.Errorf("expected infant chest thrusts:\n%s", infant)
	}
	child := actions(GenerateAirway(f, params(t, patient.Identity{AgeYears: 4})))
	if !strings.Contains(child, "abdominal thrusts") {
		t.Errorf("expected child abdominal thrusts:\n%s", child)
	}
	if !strings.Contains(child, "Do NOT attempt blind finger sweep") {
		t.Errorf("expected finger sweep warning:\n%s", child)
	}
}

func TestGenerateAirway_Swelling(t *testing.T) {
	recs := GenerateAirway(survey.AirwayFindings{
		AirwayPatency:   str("obstructed"),
		ObstructionType: str(ObstructionSwelling),
	}, params(t, patient.Identity{AgeYears: 2, WeightKg: 12}))
	if !strings.Contains(recs[0].Action, "Do NOT agitate child") {
		t.Errorf("expected agitation warning first, got %q", recs[0].Action)
	}
	if !strings.Contains(actions(recs), "ETT 4 mm") {
		t.Errorf("expected ETT half a size smaller:\n%s", actions(recs))
	}
}

func TestGenerateAirway_SecretionsAndReassess(t *testing.T) {
	recs := GenerateAirway(survey.AirwayFindings{
		AirwayPatency:          str("at_risk"),
		ObstructionType:        str(ObstructionUpper),
		Secretions:             str("copious"),
		InterventionsPerformed: []string{"suction"},
	}, params(t, patient.Identity{AgeYears: 2, WeightKg: 12}))
	n := len(recs)
	if !strings.Contains(recs[n-2].Action, "9 Fr") {
		t.Errorf("expected suction step, got %q", recs[n-2].Action)
	}
	if recs[n-1].Priority != PriorityLow || !strings.Contains(recs[n-1].Action, "Reassess") {
		t.Errorf("expected trailing reassess step, got %+v", recs[n-1])
	}
}

func TestGenerateAirway_UnknownType(t *testing.T) {
	recs := GenerateAirway(survey.AirwayFindings{AirwayPatency: str("obstructed")},
		params(t, patient.Identity{AgeYears: 6}))
	if len(recs) == 0 || recs[0].Priority != PriorityCritical {
		t.Errorf("expected general management led by a critical step, got %+v", recs)
	}
}
