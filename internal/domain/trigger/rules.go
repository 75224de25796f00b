package trigger

import (
	"fmt"

	"github.com/resus/resus/internal/domain/patient"
	"github.com/resus/resus/internal/domain/vitals"
)

// Rule maps one observed value and the patient onto at most one action. A
// rule never fires for an unset observation.
type Rule func(obs Observation, id patient.Identity) (Outcome, error)

// Categorical values the rules accept.
const (
	BreathingAbsent     = "absent"
	BreathingInadequate = "inadequate"
	BreathingAdequate   = "adequate"

	PulseAbsent  = "absent"
	PulsePresent = "present"

	PerfusionNormal = "normal"
	PerfusionPoor   = "poor"
	PerfusionShock  = "shock"

	SeizureNone      = "none"
	SeizureActive    = "active"
	SeizureProlonged = "prolonged"
	SeizurePostictal = "postictal"

	RashNone          = "none"
	RashPetechial     = "petechial"
	RashPurpuric      = "purpuric"
	RashUrticarial    = "urticarial"
	RashMaculopapular = "maculopapular"
	RashVesicular     = "vesicular"
	RashOther         = "other"
)

type heartRateLimits struct {
	brady, tachy float64
}

var heartRateThresholds = map[patient.AgeBand]heartRateLimits{
	patient.BandInfant:    {brady: 80, tachy: 220},
	patient.BandToddler:   {brady: 70, tachy: 200},
	patient.BandPreschool: {brady: 60, tachy: 180},
	patient.BandSchoolAge: {brady: 60, tachy: 160},
}

func action(id string, name Name, sev Severity) CriticalAction {
	return CriticalAction{ID: id, Trigger: name, Severity: sev, TimerSeconds: TimerFor(id)}
}

func derive(id patient.Identity) (patient.Parameters, error) {
	p, err := patient.Derive(id)
	if err != nil {
		return patient.Parameters{}, fmt.Errorf("derive parameters: %w", err)
	}
	return p, nil
}

func ventilationRate(id patient.Identity) int {
	switch {
	case id.IsInfant():
		return 30
	case id.AgeYears < 8:
		return 25
	default:
		return 20
	}
}

func compressionDepth(id patient.Identity) string {
	if id.IsInfant() {
		return "4 cm (one third of chest depth, two-thumb technique)"
	}
	return "5 cm (one third of chest depth, one or two hands)"
}

func epinephrineDose(weightKg float64) string {
	mg := epinephrineIV.For(weightKg)
	return fmt.Sprintf("Epinephrine %s mg (%s mL of 0.1 mg/mL) IV/IO every 3-5 min (0.01 mg/kg, Max 1 mg)",
		formatMg(mg), formatML(mg/epinephrineMgPerML))
}

// CheckBreathing accepts a flag (breathing present) or one of absent,
// inadequate, adequate.
func CheckBreathing(obs Observation, id patient.Identity) (Outcome, error) {
	state, ok, err := breathingState(obs)
	if err != nil || !ok {
		return NotTriggered(), err
	}
	p, err := derive(id)
	if err != nil {
		return NotTriggered(), err
	}
	rate := ventilationRate(id)
	tidal := fmt.Sprintf("%s-%s mL", formatML(6*p.WeightKg), formatML(8*p.WeightKg))

	switch state {
	case BreathingAbsent:
		a := action("breathing-absent-bvm", Breathing, SeverityCritical)
		a.Title = "Start bag-valve-mask ventilation"
		a.Instruction = fmt.Sprintf("1. Open airway with head tilt-chin lift (neutral position in infants). "+
			"2. Seal mask over mouth and nose. 3. Ventilate at %d breaths/min with 100%% oxygen. "+
			"4. Watch for chest rise with each breath.", rate)
		a.Dose = fmt.Sprintf("Tidal volume %s (6-8 mL/kg)", tidal)
		a.Route = "BVM"
		a.Rationale = "Patient is not breathing; apnoea causes hypoxic cardiac arrest within minutes."
		a.ReassessAfter = "Check chest rise and pulse after 30 seconds"
		return Fired(a), nil
	case BreathingInadequate:
		a := action("breathing-inadequate-assist", Breathing, SeverityUrgent)
		a.Title = "Assist ventilation"
		a.Instruction = fmt.Sprintf("1. Give high-flow oxygen. 2. Assist breaths with BVM at %d breaths/min, "+
			"timed with the patient's own effort. 3. Prepare for advanced airway if effort tires.", rate)
		a.Dose = fmt.Sprintf("Tidal volume %s (6-8 mL/kg)", tidal)
		a.Route = "BVM"
		a.Rationale = "Breathing is inadequate; respiratory failure precedes most paediatric arrests."
		a.ReassessAfter = "Reassess work of breathing and SpO2 after 30 seconds"
		return Fired(a), nil
	default:
		return NotTriggered(), nil
	}
}

func breathingState(obs Observation) (string, bool, error) {
	if obs.Kind() == KindFlag {
		if obs.flag {
			return BreathingAdequate, true, nil
		}
		return BreathingAbsent, true, nil
	}
	return obs.categoryOf(Breathing, BreathingAbsent, BreathingInadequate, BreathingAdequate)
}

// CheckPulse accepts a flag (pulse present) or absent/present.
func CheckPulse(obs Observation, id patient.Identity) (Outcome, error) {
	var present bool
	switch obs.Kind() {
	case KindFlag:
		present = obs.flag
	default:
		v, ok, err := obs.categoryOf(Pulse, PulseAbsent, PulsePresent)
		if err != nil || !ok {
			return NotTriggered(), err
		}
		present = v == PulsePresent
	}
	if present {
		return NotTriggered(), nil
	}
	p, err := derive(id)
	if err != nil {
		return NotTriggered(), err
	}

	a := action("pulse-absent-cpr", Pulse, SeverityCritical)
	a.Title = "Start CPR"
	a.Instruction = fmt.Sprintf("1. Call for help and the arrest trolley. 2. Compress at 100-120/min to a depth of %s. "+
		"3. Ratio 15:2 with two rescuers. 4. Attach defibrillator and check rhythm. "+
		"5. Minimise interruptions, rotate compressor every 2 minutes.", compressionDepth(id))
	a.Dose = epinephrineDose(p.WeightKg)
	a.Route = "IV/IO"
	a.Rationale = "No pulse detected; cardiac arrest requires immediate compressions to restore perfusion."
	a.ReassessAfter = "Rhythm and pulse check every 2 minutes"
	return Fired(a), nil
}

// CheckResponsiveness accepts an AVPU level.
func CheckResponsiveness(obs Observation, id patient.Identity) (Outcome, error) {
	v, ok, err := obs.categoryOf(Responsiveness, "alert", "voice", "pain", "unresponsive")
	if err != nil || !ok {
		return NotTriggered(), err
	}
	switch v {
	case "unresponsive":
		a := action("responsiveness-unresponsive", Responsiveness, SeverityCritical)
		a.Title = "Open and protect the airway"
		a.Instruction = "1. Shout for help. 2. Open airway with head tilt-chin lift or jaw thrust. " +
			"3. Look, listen and feel for breathing for no more than 10 seconds. 4. Check for a central pulse."
		a.Rationale = "Patient is unresponsive (AVPU U); loss of airway tone risks obstruction and arrest."
		a.ReassessAfter = "Reassess breathing and pulse after 30 seconds"
		return Fired(a), nil
	case "pain":
		a := action("responsiveness-pain-protect-airway", Responsiveness, SeverityUrgent)
		a.Title = "Protect the airway"
		a.Instruction = "1. Place in recovery position if no spinal concern. 2. Have suction ready. " +
			"3. Check glucose. 4. Prepare for airway support if GCS falls further."
		a.Rationale = "Patient responds only to pain (AVPU P); airway reflexes may be compromised."
		a.ReassessAfter = "Reassess AVPU and airway after 5 minutes"
		return Fired(a), nil
	default:
		return NotTriggered(), nil
	}
}

// CheckAirway accepts a patency value: patent, at_risk or obstructed.
func CheckAirway(obs Observation, id patient.Identity) (Outcome, error) {
	v, ok, err := obs.categoryOf(Airway, "patent", "at_risk", "obstructed")
	if err != nil || !ok {
		return NotTriggered(), err
	}
	p, err := derive(id)
	if err != nil {
		return NotTriggered(), err
	}
	switch v {
	case "obstructed":
		a := action("airway-obstructed-clear", Airway, SeverityCritical)
		a.Title = "Clear the airway"
		a.Instruction = fmt.Sprintf("1. Head tilt-chin lift or jaw thrust. 2. Suction visible secretions with a %s Fr catheter. "+
			"3. Insert oropharyngeal airway if tolerated. 4. Prepare ETT size %s mm uncuffed if obstruction persists.",
			formatKg(p.SuctionCatheterSize), formatKg(p.ETTSize))
		a.Route = "Airway manoeuvre"
		a.Rationale = "Airway is obstructed; no ventilation is possible until it is cleared."
		a.ReassessAfter = "Reassess airway patency after 30 seconds"
		return Fired(a), nil
	case "at_risk":
		a := action("airway-at-risk-position", Airway, SeverityUrgent)
		a.Title = "Position and monitor the airway"
		a.Instruction = fmt.Sprintf("1. Position for optimal airway (shoulder roll in infants). "+
			"2. Have %s Fr suction and airway adjuncts at the bedside. 3. Give oxygen.", formatKg(p.SuctionCatheterSize))
		a.Route = "Airway manoeuvre"
		a.Rationale = "Airway is at risk; early positioning prevents complete obstruction."
		a.ReassessAfter = "Reassess airway patency after 30 seconds"
		return Fired(a), nil
	default:
		return NotTriggered(), nil
	}
}

// CheckSpO2 accepts a saturation percentage.
func CheckSpO2(obs Observation, id patient.Identity) (Outcome, error) {
	v, ok, err := obs.numberOf(SpO2)
	if err != nil || !ok {
		return NotTriggered(), err
	}
	if v > 100 {
		return NotTriggered(), fmt.Errorf("%w: spo2 must be at most 100, got %v", ErrInvalidObservation, v)
	}
	switch {
	case vitals.SpO2IsCritical(v):
		a := action("spo2-critical-high-flow-oxygen", SpO2, SeverityCritical)
		a.Title = "Give high-flow oxygen"
		a.Instruction = "1. Apply non-rebreather mask with reservoir. 2. Check airway position and patency. " +
			"3. Assess breathing effort; start BVM if inadequate."
		a.Dose = "Oxygen 15 L/min"
		a.Route = "Non-rebreather mask"
		a.Rationale = fmt.Sprintf("SpO2 %s%% is critically low (below %v%%).", num(v), vitals.SpO2Critical)
		a.ReassessAfter = "Recheck SpO2 after 2 minutes"
		return Fired(a), nil
	case v < vitals.SpO2Target:
		a := action("spo2-low-supplemental-oxygen", SpO2, SeverityUrgent)
		a.Title = "Give supplemental oxygen"
		a.Instruction = "1. Apply oxygen by mask or nasal cannula. 2. Titrate to SpO2 94-98%."
		a.Dose = "Oxygen 2-10 L/min, titrated"
		a.Route = "Face mask or nasal cannula"
		a.Rationale = fmt.Sprintf("SpO2 %s%% is below the %v%% target.", num(v), vitals.SpO2Target)
		a.ReassessAfter = "Recheck SpO2 after 5 minutes"
		return Fired(a), nil
	default:
		return NotTriggered(), nil
	}
}

// CheckHeartRate accepts beats per minute and compares it against the
// bradycardia and tachycardia limits for the patient's age band.
func CheckHeartRate(obs Observation, id patient.Identity) (Outcome, error) {
	v, ok, err := obs.numberOf(HeartRate)
	if err != nil || !ok {
		return NotTriggered(), err
	}
	p, err := derive(id)
	if err != nil {
		return NotTriggered(), err
	}
	limits := heartRateThresholds[id.Band()]

	switch {
	case v < limits.brady:
		a := action("heart-rate-bradycardia", HeartRate, SeverityCritical)
		a.Title = "Treat bradycardia"
		a.Instruction = fmt.Sprintf("1. Ventilate with 100%% oxygen. 2. If HR stays below 60 with poor perfusion, start CPR. "+
			"3. Give epinephrine. 4. Consider atropine for vagal cause. Normal range for age is %d-%d.",
			p.NormalHeartRateMin, p.NormalHeartRateMax)
		a.Dose = epinephrineDose(p.WeightKg)
		a.Route = "IV/IO"
		a.Rationale = fmt.Sprintf("Heart rate %s is below %s for age; hypoxia is the usual cause.", num(v), num(limits.brady))
		a.ReassessAfter = "Recheck heart rate and perfusion after 2 minutes"
		return Fired(a), nil
	case v > limits.tachy:
		mg := adenosine.For(p.WeightKg)
		a := action("heart-rate-tachycardia", HeartRate, SeverityUrgent)
		a.Title = "Assess tachyarrhythmia"
		a.Instruction = "1. Attach ECG monitor and record a rhythm strip. 2. If narrow complex and stable, try vagal manoeuvres. " +
			"3. Give adenosine by rapid push with flush. 4. If unstable, prepare synchronised cardioversion 1 J/kg."
		a.Dose = fmt.Sprintf("Adenosine %s mg rapid IV push (0.1 mg/kg, Max 6 mg)", formatMg(mg))
		a.Route = "IV"
		a.Rationale = fmt.Sprintf("Heart rate %s exceeds %s for age, suggesting SVT.", num(v), num(limits.tachy))
		a.ReassessAfter = "Recheck rhythm after 5 minutes"
		return Fired(a), nil
	default:
		return NotTriggered(), nil
	}
}

// CheckPerfusion accepts normal, poor or shock.
func CheckPerfusion(obs Observation, id patient.Identity) (Outcome, error) {
	v, ok, err := obs.categoryOf(Perfusion, PerfusionNormal, PerfusionPoor, PerfusionShock)
	if err != nil || !ok {
		return NotTriggered(), err
	}
	p, err := derive(id)
	if err != nil {
		return NotTriggered(), err
	}
	ml := salineBolus.For(p.WeightKg)

	switch v {
	case PerfusionShock:
		a := action("perfusion-shock-fluid-bolus", Perfusion, SeverityCritical)
		a.Title = "Give fluid bolus"
		a.Instruction = "1. Obtain IV or IO access. 2. Push the bolus over 5-10 minutes. " +
			"3. Reassess perfusion, HR and liver edge after each bolus. 4. Repeat up to 40 mL/kg if no overload."
		a.Dose = fmt.Sprintf("0.9%% saline %s mL (10 mL/kg, Max 1000 mL)", formatML(ml))
		a.Route = "IV/IO"
		a.Rationale = "Signs of shock; restoring circulating volume is the first treatment."
		a.ReassessAfter = "Reassess perfusion after each bolus, within 10 minutes"
		return Fired(a), nil
	case PerfusionPoor:
		a := action("perfusion-poor-iv-access", Perfusion, SeverityUrgent)
		a.Title = "Secure vascular access"
		a.Instruction = "1. Place IV cannula, IO if two attempts fail. 2. Send blood gas, lactate and glucose. " +
			"3. Prepare a fluid bolus."
		a.Dose = fmt.Sprintf("Prepare 0.9%% saline %s mL (10 mL/kg)", formatML(ml))
		a.Route = "IV/IO"
		a.Rationale = "Poor perfusion may progress to shock."
		a.ReassessAfter = "Reassess capillary refill after 10 minutes"
		return Fired(a), nil
	default:
		return NotTriggered(), nil
	}
}

// CheckGlucose accepts mmol/L, or mg/dL for values above the unit cutoff.
func CheckGlucose(obs Observation, id patient.Identity) (Outcome, error) {
	raw, ok, err := obs.numberOf(Glucose)
	if err != nil || !ok {
		return NotTriggered(), err
	}
	mmol, converted := vitals.GlucoseMmol(raw)
	reading := fmt.Sprintf("%s mmol/L", num(vitals.Round(mmol, 2)))
	if converted {
		reading += fmt.Sprintf(" (converted from %s mg/dL)", num(raw))
	}
	p, err := derive(id)
	if err != nil {
		return NotTriggered(), err
	}

	switch {
	case mmol < vitals.GlucoseSevereHypo:
		a := action("glucose-severe-hypoglycemia-dextrose", Glucose, SeverityCritical)
		a.Title = "Give IV dextrose"
		a.Instruction = "1. Give D10W by slow IV/IO push. 2. Recheck glucose 15 minutes later. " +
			"3. Start maintenance fluids containing dextrose."
		a.Dose = fmt.Sprintf("D10W %s mL (2 mL/kg, Max 250 mL)", formatML(dextrose10.For(p.WeightKg)))
		a.Route = "IV/IO"
		a.Rationale = fmt.Sprintf("Glucose %s is severely low; hypoglycaemia causes seizures and brain injury.", reading)
		a.ReassessAfter = "Recheck glucose after 15 minutes"
		return Fired(a), nil
	case mmol < vitals.GlucoseLow:
		a := action("glucose-low-oral-glucose", Glucose, SeverityUrgent)
		a.Title = "Correct low glucose"
		a.Instruction = "1. If awake and swallowing, give oral glucose. 2. Otherwise give D10W 2 mL/kg IV. " +
			"3. Recheck glucose."
		a.Dose = fmt.Sprintf("Oral glucose %s g (0.3 g/kg, Max 15 g)", formatMg(oralGlucose.For(p.WeightKg)))
		a.Route = "PO"
		a.Rationale = fmt.Sprintf("Glucose %s is low.", reading)
		a.ReassessAfter = "Recheck glucose after 5 minutes"
		return Fired(a), nil
	default:
		return NotTriggered(), nil
	}
}

// CheckSeizure accepts a flag (seizing) or none, active, prolonged, postictal.
func CheckSeizure(obs Observation, id patient.Identity) (Outcome, error) {
	var state string
	if obs.Kind() == KindFlag {
		state = SeizureNone
		if obs.flag {
			state = SeizureActive
		}
	} else {
		v, ok, err := obs.categoryOf(Seizure, SeizureNone, SeizureActive, SeizureProlonged, SeizurePostictal)
		if err != nil || !ok {
			return NotTriggered(), err
		}
		state = v
	}
	if state != SeizureActive && state != SeizureProlonged {
		return NotTriggered(), nil
	}
	p, err := derive(id)
	if err != nil {
		return NotTriggered(), err
	}

	if state == SeizureProlonged {
		a := action("seizure-prolonged-second-line", Seizure, SeverityCritical)
		a.Title = "Give second-line anticonvulsant"
		a.Instruction = "1. Confirm two benzodiazepine doses given. 2. Infuse phenobarbital over 20 minutes. " +
			"3. Call anaesthesia; prepare for intubation. 4. Check glucose, electrolytes and temperature."
		a.Dose = fmt.Sprintf("Phenobarbital %s mg IV over 20 min (20 mg/kg, Max 1000 mg)", formatMg(phenobarbital.For(p.WeightKg)))
		a.Route = "IV/IO"
		a.Rationale = "Seizure persists after benzodiazepines (status epilepticus)."
		a.ReassessAfter = "Reassess seizure activity after 5 minutes"
		return Fired(a), nil
	}

	a := action("seizure-active-benzodiazepine", Seizure, SeverityCritical)
	a.Title = "Stop the seizure"
	a.Instruction = "1. Protect from injury, do not restrain. 2. Give oxygen and check glucose. " +
		"3. Give benzodiazepine. 4. Repeat once after 5 minutes if still seizing."
	a.Dose = fmt.Sprintf("Diazepam %s mg IV (0.3 mg/kg) OR %s mg rectal (0.5 mg/kg) - Max 10 mg",
		formatMg(diazepamIV.For(p.WeightKg)), formatMg(diazepamPR.For(p.WeightKg)))
	a.Route = "IV or PR"
	a.Rationale = "Active seizure; prolonged seizures cause hypoxia and neuronal injury."
	a.ReassessAfter = "Reassess seizure activity after 5 minutes"
	return Fired(a), nil
}

// CheckRash accepts a rash type.
func CheckRash(obs Observation, id patient.Identity) (Outcome, error) {
	v, ok, err := obs.categoryOf(Rash, RashNone, RashPetechial, RashPurpuric, RashUrticarial,
		RashMaculopapular, RashVesicular, RashOther)
	if err != nil || !ok {
		return NotTriggered(), err
	}
	p, err := derive(id)
	if err != nil {
		return NotTriggered(), err
	}

	switch v {
	case RashPetechial, RashPurpuric:
		a := action("rash-petechial-sepsis", Rash, SeverityCritical)
		a.Title = "Treat presumed meningococcal sepsis"
		a.Instruction = "1. Obtain blood cultures without delaying antibiotics. 2. Give ceftriaxone. " +
			"3. Give fluid bolus if perfusion is poor. 4. Inform intensive care."
		a.Dose = fmt.Sprintf("Ceftriaxone %s mg IV/IO (100 mg/kg, Max 4 g)", formatMg(ceftriaxone.For(p.WeightKg)))
		a.Route = "IV/IO"
		a.Rationale = fmt.Sprintf("A %s rash with illness suggests meningococcal sepsis.", v)
		a.ReassessAfter = "Reassess perfusion and rash spread after 5 minutes"
		return Fired(a), nil
	case RashUrticarial:
		a := action("rash-urticaria-antihistamine", Rash, SeverityUrgent)
		a.Title = "Treat allergic reaction"
		a.Instruction = fmt.Sprintf("1. Remove the trigger. 2. Give antihistamine. "+
			"3. If wheeze, stridor or hypotension, give IM epinephrine %s mg (0.01 mg/kg, Max 0.5 mg) into the thigh.",
			formatMg(epinephrineIM.For(p.WeightKg)))
		a.Dose = fmt.Sprintf("Diphenhydramine %s mg IV/PO (1 mg/kg, Max 50 mg)", formatMg(diphenhydramine.For(p.WeightKg)))
		a.Route = "IV/PO"
		a.Rationale = "Urticaria may herald anaphylaxis."
		a.ReassessAfter = "Reassess airway, breathing and rash after 10 minutes"
		return Fired(a), nil
	default:
		return NotTriggered(), nil
	}
}

func num(v float64) string {
	return fmt.Sprintf("%g", v)
}
