package recommendation

import (
	"fmt"

	"github.com/resus/resus/internal/domain/patient"
	"github.com/resus/resus/internal/domain/survey"
)

// Guideline references attached to recommendations.
const (
	refPALSArrest    = "PALS Cardiac Arrest Algorithm"
	refPALSAirway    = "PALS Airway Management"
	refCroup         = "Croup Management Guideline"
	refAsthma        = "Pediatric Asthma Guideline"
	refBronchiolitis = "Bronchiolitis Guideline"
	refForeignBody   = "Foreign Body Airway Obstruction (FBAO) Guideline"
	refEpiglottitis  = "Epiglottitis / Airway Swelling Guideline"
	refAnaphylaxis   = "Anaphylaxis Guideline"
	refAirwaySuction = "Airway Suctioning Guideline"
	refReassessment  = "PALS Systematic Approach - Reassessment"
	refPrimarySurvey = "PALS Primary Assessment"
	refAirwayGeneral = "Airway Obstruction General Management"
)

// Obstruction types.
const (
	ObstructionUpper       = "upper_airway"
	ObstructionLower       = "lower_airway"
	ObstructionForeignBody = "foreign_body"
	ObstructionSwelling    = "swelling"
	ObstructionSecretions  = "secretions"
)

// GenerateAirway returns the ordered airway recommendations for the findings.
// An unresponsive child gets the arrest cascade and nothing else; a patent
// airway gets a single low-priority step. Otherwise the list branches on the
// obstruction type.
func GenerateAirway(f survey.AirwayFindings, p patient.Parameters) []ClinicalRecommendation {
	if is(f.Responsiveness, survey.AVPUUnresponsive) {
		return arrestCascade(p)
	}
	if is(f.AirwayPatency, survey.AirwayPatent) {
		return []ClinicalRecommendation{{
			Action:             "Airway patent - proceed to breathing assessment",
			Rationale:          "Airway is open and maintained; continue the primary survey.",
			Priority:           PriorityLow,
			GuidelineReference: refPrimarySurvey,
		}}
	}
	if f.AirwayPatency == nil {
		return []ClinicalRecommendation{}
	}

	var recs []ClinicalRecommendation
	switch deref(f.ObstructionType) {
	case ObstructionUpper:
		recs = upperAirway(p)
	case ObstructionLower:
		recs = lowerAirway(p)
	case ObstructionForeignBody:
		recs = foreignBody(p)
	case ObstructionSwelling:
		recs = swelling(p)
	case ObstructionSecretions:
		recs = secretions(p)
	default:
		recs = generalObstruction(f, p)
	}

	if s := deref(f.Secretions); (s == "moderate" || s == "copious") && deref(f.ObstructionType) != ObstructionSecretions {
		recs = append(recs, ClinicalRecommendation{
			Action:             fmt.Sprintf("Suction oropharynx with %s Fr catheter", num(p.SuctionCatheterSize)),
			Rationale:          fmt.Sprintf("%s secretions are compromising the airway.", capitalize(s)),
			Priority:           PriorityHigh,
			GuidelineReference: refAirwaySuction,
		})
	}
	if len(f.InterventionsPerformed) > 0 {
		recs = append(recs, ClinicalRecommendation{
			Action:             "Reassess airway after interventions",
			Rationale:          fmt.Sprintf("%d intervention(s) performed; confirm their effect before moving on.", len(f.InterventionsPerformed)),
			Priority:           PriorityLow,
			GuidelineReference: refReassessment,
		})
	}
	return recs
}

func arrestCascade(p patient.Parameters) []ClinicalRecommendation {
	epi := capped(0.01*p.WeightKg, 1)
	return []ClinicalRecommendation{
		{
			Action:             "Activate cardiac arrest protocol",
			Rationale:          "Unresponsive child: call for help and the resuscitation team immediately.",
			Priority:           PriorityCritical,
			GuidelineReference: refPALSArrest,
		},
		{
			Action:             "Start chest compressions",
			Dosage:             "100-120/min, 15:2 with two rescuers",
			Rationale:          "Compressions maintain coronary and cerebral perfusion until ROSC.",
			Priority:           PriorityCritical,
			GuidelineReference: refPALSArrest,
		},
		{
			Action:             "Provide rescue breathing with bag-valve-mask",
			Dosage:             fmt.Sprintf("100%% oxygen, tidal volume %s-%s mL", ml(6*p.WeightKg), ml(8*p.WeightKg)),
			Rationale:          "Hypoxia is the leading cause of paediatric arrest.",
			Priority:           PriorityCritical,
			GuidelineReference: refPALSArrest,
		},
		{
			Action:             "Attach cardiac monitor and defibrillator",
			Rationale:          "Rhythm identification guides shockable versus non-shockable pathway.",
			Priority:           PriorityCritical,
			GuidelineReference: refPALSArrest,
		},
		{
			Action:             "Establish IV/IO access",
			Dosage:             fmt.Sprintf("Epinephrine %s mg (0.01 mg/kg, Max 1 mg) IV/IO every 3-5 min", mg(epi)),
			Rationale:          "Vascular access is required for epinephrine and fluids.",
			Priority:           PriorityHigh,
			GuidelineReference: refPALSArrest,
		},
	}
}

func upperAirway(p patient.Parameters) []ClinicalRecommendation {
	return []ClinicalRecommendation{
		{
			Action:             "Give nebulized epinephrine",
			Dosage:             fmt.Sprintf("%s mL of 1 mg/mL epinephrine nebulized (0.05 mL/kg, Max 0.5 mL)", mg(capped(0.05*p.WeightKg, 0.5))),
			Rationale:          "Stridor from upper airway oedema responds to nebulized epinephrine.",
			Priority:           PriorityCritical,
			GuidelineReference: refCroup,
		},
		{
			Action:             "Give dexamethasone",
			Dosage:             fmt.Sprintf("Dexamethasone %s mg PO/IM (0.6 mg/kg, Max 16 mg)", mg(capped(0.6*p.WeightKg, 16))),
			Rationale:          "Steroids reduce airway oedema within hours.",
			Priority:           PriorityHigh,
			GuidelineReference: refCroup,
		},
		{
			Action:             "Keep child calm in position of comfort",
			Rationale:          "Distress increases turbulent flow and worsens obstruction.",
			Priority:           PriorityMedium,
			GuidelineReference: refCroup,
		},
		{
			Action:             "Give humidified oxygen",
			Rationale:          "Maintain SpO2 at or above 94% without distressing the child.",
			Priority:           PriorityMedium,
			GuidelineReference: refPALSAirway,
		},
	}
}

func lowerAirway(p patient.Parameters) []ClinicalRecommendation {
	recs := []ClinicalRecommendation{}
	if p.AgeYears >= 2 {
		recs = append(recs, ClinicalRecommendation{
			Action:             "Give nebulized salbutamol",
			Dosage:             fmt.Sprintf("Salbutamol %s mg nebulized (0.15 mg/kg, min 2.5 mg, Max 5 mg)", mg(clamp(0.15*p.WeightKg, 2.5, 5))),
			Rationale:          "Bronchospasm responds to inhaled beta-agonists.",
			Priority:           PriorityCritical,
			GuidelineReference: refAsthma,
		})
	} else {
		recs = append(recs, ClinicalRecommendation{
			Action:             "Provide supportive care for bronchiolitis",
			Rationale:          "Under 2 years, wheeze is usually bronchiolitis; bronchodilators are not recommended.",
			Priority:           PriorityHigh,
			GuidelineReference: refBronchiolitis,
		})
	}
	recs = append(recs, ClinicalRecommendation{
		Action:             "Give oxygen to maintain SpO2 94-98%",
		Rationale:          "Lower airway obstruction causes ventilation-perfusion mismatch.",
		Priority:           PriorityHigh,
		GuidelineReference: refPALSAirway,
	})
	if p.AgeYears >= 2 {
		recs = append(recs, ClinicalRecommendation{
			Action:             "Give prednisolone",
			Dosage:             fmt.Sprintf("Prednisolone %s mg PO (1 mg/kg, Max 40 mg)", mg(capped(p.WeightKg, 40))),
			Rationale:          "Early steroids reduce relapse in acute asthma.",
			Priority:           PriorityMedium,
			GuidelineReference: refAsthma,
		})
	}
	return recs
}

func foreignBody(p patient.Parameters) []ClinicalRecommendation {
	var manoeuvre ClinicalRecommendation
	if p.AgeYears < 1 {
		manoeuvre = ClinicalRecommendation{
			Action:             "Give 5 back blows and 5 chest thrusts",
			Rationale:          "Infant foreign body obstruction: abdominal thrusts risk liver injury.",
			Priority:           PriorityCritical,
			GuidelineReference: refForeignBody,
		}
	} else {
		manoeuvre = ClinicalRecommendation{
			Action:             "Give 5 back blows and 5 abdominal thrusts",
			Rationale:          "Child foreign body obstruction with ineffective cough.",
			Priority:           PriorityCritical,
			GuidelineReference: refForeignBody,
		}
	}
	return []ClinicalRecommendation{
		{
			Action:             "Encourage coughing if cough is effective",
			Rationale:          "An effective cough clears the airway better than any manoeuvre.",
			Priority:           PriorityHigh,
			GuidelineReference: refForeignBody,
		},
		manoeuvre,
		{
			Action:             "Do NOT attempt blind finger sweep",
			Rationale:          "Blind sweeps can push the object further into the airway.",
			Priority:           PriorityCritical,
			GuidelineReference: refForeignBody,
		},
		{
			Action:             "Prepare for direct laryngoscopy and Magill forceps removal",
			Dosage:             fmt.Sprintf("ETT %s mm ready", num(p.ETTSize)),
			Rationale:          "Visualised removal is needed if manoeuvres fail.",
			Priority:           PriorityHigh,
			GuidelineReference: refForeignBody,
		},
	}
}

func swelling(p patient.Parameters) []ClinicalRecommendation {
	smaller := p.ETTSize - 0.5
	return []ClinicalRecommendation{
		{
			Action:             "Do NOT agitate child - no IV, no throat examination",
			Rationale:          "Agitation can convert partial obstruction from epiglottitis to complete obstruction.",
			Priority:           PriorityCritical,
			GuidelineReference: refEpiglottitis,
		},
		{
			Action:             "Give IM epinephrine if anaphylaxis suspected",
			Dosage:             fmt.Sprintf("Epinephrine %s mg IM (0.01 mg/kg of 1 mg/mL, Max 0.5 mg)", mg(capped(0.01*p.WeightKg, 0.5))),
			Rationale:          "Angioedema from anaphylaxis responds rapidly to IM epinephrine.",
			Priority:           PriorityCritical,
			GuidelineReference: refAnaphylaxis,
		},
		{
			Action:             "Call ENT and anaesthesia for a secured airway",
			Rationale:          "A swollen airway may need intubation in theatre or a surgical airway.",
			Priority:           PriorityHigh,
			GuidelineReference: refEpiglottitis,
		},
		{
			Action:             "Prepare ETT half a size smaller",
			Dosage:             fmt.Sprintf("ETT %s mm", num(smaller)),
			Rationale:          "Swelling narrows the glottic opening.",
			Priority:           PriorityMedium,
			GuidelineReference: refPALSAirway,
		},
	}
}

func secretions(p patient.Parameters) []ClinicalRecommendation {
	return []ClinicalRecommendation{
		{
			Action:             fmt.Sprintf("Suction oropharynx with %s Fr catheter", num(p.SuctionCatheterSize)),
			Rationale:          "Secretions are obstructing the airway.",
			Priority:           PriorityCritical,
			GuidelineReference: refAirwaySuction,
		},
		{
			Action:             "Position in recovery position if no trauma",
			Rationale:          "Gravity drainage keeps the airway clear.",
			Priority:           PriorityHigh,
			GuidelineReference: refPALSAirway,
		},
	}
}

func generalObstruction(f survey.AirwayFindings, p patient.Parameters) []ClinicalRecommendation {
	pri := PriorityHigh
	if is(f.AirwayPatency, survey.AirwayObstructed) {
		pri = PriorityCritical
	}
	return []ClinicalRecommendation{
		{
			Action:             "Open airway with head tilt-chin lift or jaw thrust",
			Rationale:          "Basic manoeuvres relieve most soft tissue obstruction.",
			Priority:           pri,
			GuidelineReference: refAirwayGeneral,
		},
		{
			Action:             "Insert airway adjunct",
			Dosage:             fmt.Sprintf("ETT %s mm and %s Fr suction on standby", num(p.ETTSize), num(p.SuctionCatheterSize)),
			Rationale:          "An adjunct maintains patency while the cause is identified.",
			Priority:           PriorityHigh,
			GuidelineReference: refPALSAirway,
		},
		{
			Action:             "Identify the cause of obstruction",
			Rationale:          "Treatment depends on whether obstruction is upper, lower, foreign body, swelling or secretions.",
			Priority:           PriorityMedium,
			GuidelineReference: refAirwayGeneral,
		},
	}
}
