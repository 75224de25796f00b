package trigger

import (
	"fmt"
	"math"
	"sort"
)

// dose is a weight-scaled quantity with an optional ceiling.
type dose struct {
	perKg float64
	max   float64 // 0 means uncapped
}

// For returns perKg × weight clamped to max.
func (d dose) For(weightKg float64) float64 {
	v := d.perKg * weightKg
	if d.max > 0 && v > d.max {
		return d.max
	}
	return v
}

var (
	epinephrineIV   = dose{perKg: 0.01, max: 1}
	epinephrineIM   = dose{perKg: 0.01, max: 0.5}
	adenosine       = dose{perKg: 0.1, max: 6}
	salineBolus     = dose{perKg: 10, max: 1000}
	dextrose10      = dose{perKg: 2, max: 250}
	diazepamIV      = dose{perKg: 0.3, max: 10}
	diazepamPR      = dose{perKg: 0.5, max: 10}
	phenobarbital   = dose{perKg: 20, max: 1000}
	ceftriaxone     = dose{perKg: 100, max: 4000}
	diphenhydramine = dose{perKg: 1, max: 50}
	oralGlucose     = dose{perKg: 0.3, max: 15} // grams
)

// epinephrine 1:10,000
const epinephrineMgPerML = 0.1

// formatMg renders a milligram quantity at a precision that suits its size.
func formatMg(v float64) string {
	switch {
	case v >= 100:
		return fmt.Sprintf("%.0f", v)
	case v >= 1:
		return fmt.Sprintf("%.1f", v)
	case v >= 0.1:
		return fmt.Sprintf("%.2f", v)
	default:
		return fmt.Sprintf("%.3f", v)
	}
}

// formatML renders volumes as whole millilitres from 10 mL up, one decimal below.
func formatML(v float64) string {
	if v >= 10 {
		return fmt.Sprintf("%.0f", math.Round(v))
	}
	return fmt.Sprintf("%.1f", v)
}

func formatKg(v float64) string {
	return fmt.Sprintf("%g", v)
}

// Reassessment timers in seconds, fixed per action id.
var timers = map[string]int{
	"breathing-absent-bvm":                 30,
	"breathing-inadequate-assist":          30,
	"responsiveness-unresponsive":          30,
	"airway-obstructed-clear":              30,
	"airway-at-risk-position":              30,
	"pulse-absent-cpr":                     120,
	"spo2-critical-high-flow-oxygen":       120,
	"heart-rate-bradycardia":               120,
	"heart-rate-tachycardia":               300,
	"spo2-low-supplemental-oxygen":         300,
	"responsiveness-pain-protect-airway":   300,
	"glucose-low-oral-glucose":             300,
	"seizure-active-benzodiazepine":        300,
	"seizure-prolonged-second-line":        300,
	"rash-petechial-sepsis":                300,
	"perfusion-shock-fluid-bolus":          600,
	"perfusion-poor-iv-access":             600,
	"rash-urticaria-antihistamine":         600,
	"glucose-severe-hypoglycemia-dextrose": 900,
}

// TimerFor returns the reassessment timer for an action id, or zero when the
// id is not one the rules emit.
func TimerFor(actionID string) int {
	return timers[actionID]
}

// ActionIDs lists every action id a rule can emit.
func ActionIDs() []string {
	ids := make([]string, 0, len(timers))
	for id := range timers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
