package survey

// Merge returns a copy of a with every non-nil field of patch applied.
// Fields absent from patch keep their previous value; there is no way to
// un-assess a field short of starting a new assessment.
func (a Assessment) Merge(patch Assessment) Assessment {
	out := a

	setStr(&out.Airway.Responsiveness, patch.Airway.Responsiveness)
	setStr(&out.Airway.AirwayPatency, patch.Airway.AirwayPatency)
	setStr(&out.Airway.ObstructionType, patch.Airway.ObstructionType)
	setStr(&out.Airway.Secretions, patch.Airway.Secretions)
	if len(patch.Airway.InterventionsPerformed) > 0 {
		merged := make([]string, 0, len(a.Airway.InterventionsPerformed)+len(patch.Airway.InterventionsPerformed))
		merged = append(merged, a.Airway.InterventionsPerformed...)
		merged = append(merged, patch.Airway.InterventionsPerformed...)
		out.Airway.InterventionsPerformed = merged
	}

	setBool(&out.Breathing.BreathingAdequate, patch.Breathing.BreathingAdequate)
	setNum(&out.Breathing.RespiratoryRate, patch.Breathing.RespiratoryRate)
	setNum(&out.Breathing.SpO2, patch.Breathing.SpO2)

	setBool(&out.Circulation.PulsePresent, patch.Circulation.PulsePresent)
	setNum(&out.Circulation.HeartRate, patch.Circulation.HeartRate)
	setNum(&out.Circulation.SystolicBP, patch.Circulation.SystolicBP)
	setStr(&out.Circulation.SkinPerfusion, patch.Circulation.SkinPerfusion)
	setNum(&out.Circulation.CapillaryRefill, patch.Circulation.CapillaryRefill)

	setStr(&out.Disability.Consciousness, patch.Disability.Consciousness)
	setStr(&out.Disability.Pupils, patch.Disability.Pupils)
	setNum(&out.Disability.Glucose, patch.Disability.Glucose)
	setBool(&out.Disability.SeizureActivity, patch.Disability.SeizureActivity)

	setNum(&out.Exposure.Temperature, patch.Exposure.Temperature)
	setBool(&out.Exposure.Rash, patch.Exposure.Rash)
	setStr(&out.Exposure.RashType, patch.Exposure.RashType)

	return out
}

// Check validates every categorical field of the assessment without
// judging completeness.
func (a Assessment) Check() error {
	for _, p := range Phases {
		if _, err := Validate(p, a); err != nil {
			return err
		}
	}
	return nil
}

func setStr(dst **string, v *string) {
	if v != nil {
		s := *v
		*dst = &s
	}
}

func setNum(dst **float64, v *float64) {
	if v != nil {
		n := *v
		*dst = &n
	}
}

func setBool(dst **bool, v *bool) {
	if v != nil {
		b := *v
		*dst = &b
	}
}
