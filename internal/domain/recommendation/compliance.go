package recommendation

import (
	"strings"

	"github.com/resus/resus/internal/domain/vitals"
)

const (
	criticalWeight = 25
	highWeight     = 15
)

// Compliance scores how many critical and high recommendations were acted
// on. A recommendation counts as performed when one of the performed
// actions contains its action text, ignoring case. Medium and low
// recommendations are not scored. With nothing to score the result is 0.
func Compliance(recs []ClinicalRecommendation, performed []string) ComplianceReport {
	report := ComplianceReport{
		Gaps:          []ClinicalRecommendation{},
		TrainingNeeds: []string{},
	}
	var earned, possible int
	seen := make(map[string]bool)

	for _, r := range recs {
		var w int
		switch r.Priority {
		case PriorityCritical:
			w = criticalWeight
			report.CriticalCount++
		case PriorityHigh:
			w = highWeight
			report.HighCount++
		default:
			continue
		}
		possible += w

		if matches(r.Action, performed) {
			earned += w
			report.Matched++
			continue
		}
		report.Gaps = append(report.Gaps, r)
		if ref := r.GuidelineReference; ref != "" && !seen[ref] {
			seen[ref] = true
			report.TrainingNeeds = append(report.TrainingNeeds, ref)
		}
	}

	if possible > 0 {
		report.Score = vitals.Round(float64(earned)/float64(possible)*100, 1)
	}
	return report
}

func matches(action string, performed []string) bool {
	a := strings.ToLower(strings.TrimSpace(action))
	if a == "" {
		return false
	}
	for _, p := range performed {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		if strings.Contains(p, a) {
			return true
		}
	}
	return false
}
