// Package vitals holds the clinical thresholds shared by the phase validator
// and the trigger engine, so that both always agree on what counts as critical.
package vitals

import "math"

const (
	// SpO2Critical is the saturation (%) below which oxygenation is critical.
	SpO2Critical = 90.0
	// SpO2Target is the lowest acceptable saturation (%); 90-93 is urgent.
	SpO2Target = 94.0

	// GlucoseSevereHypo (mmol/L): below this hypoglycemia is critical.
	GlucoseSevereHypo = 2.6
	// GlucoseLow (mmol/L): below this hypoglycemia is urgent.
	GlucoseLow = 4.0
	// GlucoseMgDLCutoff separates mmol/L readings from mg/dL readings.
	// Values strictly above it are treated as mg/dL. This is a heuristic with
	// no unit validation: a mg/dL value of 30 or less is read as mmol/L.
	GlucoseMgDLCutoff = 30.0
	// GlucoseMgDLPerMmol converts mg/dL to mmol/L.
	GlucoseMgDLPerMmol = 18.0

	// FeverC is the core temperature (°C) flagged as fever.
	FeverC = 38.5

	// CapillaryRefillProlonged is the refill time (s) above which refill is prolonged.
	CapillaryRefillProlonged = 2.0
)

// GlucoseMmol normalises a glucose reading to mmol/L and reports whether the
// input was interpreted as mg/dL.
func GlucoseMmol(value float64) (mmol float64, convertedFromMgDL bool) {
	if value > GlucoseMgDLCutoff {
		return value / GlucoseMgDLPerMmol, true
	}
	return value, false
}

// SpO2IsCritical reports whether the saturation is below the critical threshold.
func SpO2IsCritical(spo2 float64) bool {
	return spo2 < SpO2Critical
}

// GlucoseIsSevereHypo reports whether the reading (either unit) is below the
// severe hypoglycemia threshold.
func GlucoseIsSevereHypo(value float64) bool {
	mmol, _ := GlucoseMmol(value)
	return mmol < GlucoseSevereHypo
}

// IsFever reports whether the temperature meets the fever threshold.
func IsFever(tempC float64) bool {
	return tempC >= FeverC
}

// Round rounds v to the given number of decimal places.
func Round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
