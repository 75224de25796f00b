package resuscitation

import (
	"github.com/resus/resus/internal/domain/survey"
	"github.com/resus/resus/internal/domain/trigger"
	"github.com/resus/resus/internal/domain/vitals"
)

// Observations turns the recorded findings into rule inputs. Findings that
// have not been assessed produce no observation.
func Observations(a survey.Assessment) map[trigger.Name]trigger.Observation {
	obs := make(map[trigger.Name]trigger.Observation)

	if a.Airway.Responsiveness != nil {
		obs[trigger.Responsiveness] = trigger.Category(*a.Airway.Responsiveness)
	}
	if a.Airway.AirwayPatency != nil {
		obs[trigger.Airway] = trigger.Category(*a.Airway.AirwayPatency)
	}

	if b := a.Breathing.BreathingAdequate; b != nil {
		switch {
		case *b:
			obs[trigger.Breathing] = trigger.Category(trigger.BreathingAdequate)
		case a.Breathing.RespiratoryRate != nil && *a.Breathing.RespiratoryRate > 0:
			obs[trigger.Breathing] = trigger.Category(trigger.BreathingInadequate)
		default:
			obs[trigger.Breathing] = trigger.Category(trigger.BreathingAbsent)
		}
	}
	if a.Breathing.SpO2 != nil {
		obs[trigger.SpO2] = trigger.Number(*a.Breathing.SpO2)
	}

	if a.Circulation.PulsePresent != nil {
		obs[trigger.Pulse] = trigger.Flag(*a.Circulation.PulsePresent)
	}
	if a.Circulation.HeartRate != nil {
		obs[trigger.HeartRate] = trigger.Number(*a.Circulation.HeartRate)
	}
	if p, ok := perfusion(a.Circulation); ok {
		obs[trigger.Perfusion] = trigger.Category(p)
	}

	if a.Disability.Glucose != nil {
		obs[trigger.Glucose] = trigger.Number(*a.Disability.Glucose)
	}
	if a.Disability.SeizureActivity != nil {
		obs[trigger.Seizure] = trigger.Flag(*a.Disability.SeizureActivity)
	}

	if r := a.Exposure.Rash; r != nil {
		switch {
		case !*r:
			obs[trigger.Rash] = trigger.Category(trigger.RashNone)
		case a.Exposure.RashType != nil:
			obs[trigger.Rash] = trigger.Category(*a.Exposure.RashType)
		default:
			obs[trigger.Rash] = trigger.Category(trigger.RashOther)
		}
	}
	return obs
}

// perfusion grades circulation from skin temperature and capillary refill:
// cold skin with prolonged refill is shock, either sign alone is poor.
func perfusion(f survey.CirculationFindings) (string, bool) {
	if f.SkinPerfusion == nil && f.CapillaryRefill == nil {
		return "", false
	}
	prolonged := f.CapillaryRefill != nil && *f.CapillaryRefill > vitals.CapillaryRefillProlonged
	skin := ""
	if f.SkinPerfusion != nil {
		skin = *f.SkinPerfusion
	}
	switch {
	case skin == survey.SkinCold && prolonged:
		return trigger.PerfusionShock, true
	case skin == survey.SkinCold, skin == survey.SkinCool, prolonged:
		return trigger.PerfusionPoor, true
	default:
		return trigger.PerfusionNormal, true
	}
}
