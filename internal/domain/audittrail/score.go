package audittrail

import (
	"fmt"
	"strings"
	"time"

	"github.com/resus/resus/internal/domain/survey"
)

const (
	skipPenalty          = 10
	criticalSkipPenalty  = 20
	fastCompletionBonus  = 10
	documentationBonus   = 5
	fastCompletionSecond = 5 * 60
)

// EfficiencyScore rates a trail from 0 to 100. Each skip costs 10 points and
// a skip in airway, breathing or circulation costs 20 more. Finishing in
// under five minutes earns 10 points, and 5 more when every entry carries
// notes or is a skip.
func EfficiencyScore(t Trail) int {
	score := 100
	documented := true
	for _, a := range t.Actions {
		if a.Skipped {
			score -= skipPenalty
			if a.Phase.IsCritical() {
				score -= criticalSkipPenalty
			}
		} else if a.ClinicalNotes == "" {
			documented = false
		}
	}
	if t.TotalTimeSeconds < fastCompletionSecond {
		score += fastCompletionBonus
	}
	if documented {
		score += documentationBonus
	}
	switch {
	case score < 0:
		return 0
	case score > 100:
		return 100
	default:
		return score
	}
}

// ActionGaps describes every skip in a critical phase.
func ActionGaps(t Trail) []string {
	gaps := []string{}
	for _, a := range t.Actions {
		if a.Skipped && a.Phase.IsCritical() {
			gaps = append(gaps, fmt.Sprintf("Critical action skipped in %s phase: %s (reason: %s)",
				a.Phase, a.ActionTitle, a.SkipReason))
		}
	}
	return gaps
}

// Summary renders a plain-text report of the trail with actions in
// chronological order.
func Summary(t Trail) string {
	var b strings.Builder

	b.WriteString("RESUSCITATION AUDIT SUMMARY\n")
	b.WriteString("===========================\n")
	fmt.Fprintf(&b, "Case: %s\n", t.CaseID)
	fmt.Fprintf(&b, "Patient: %d years %d months, %g kg\n", t.Patient.AgeYears, t.Patient.AgeMonths, t.Patient.WeightKg)
	fmt.Fprintf(&b, "Started: %s\n", t.StartedAt.UTC().Format(time.RFC3339))
	if t.EndedAt != nil {
		fmt.Fprintf(&b, "Ended: %s\n", t.EndedAt.UTC().Format(time.RFC3339))
	}
	fmt.Fprintf(&b, "Status: %s\n", t.OverallStatus)
	fmt.Fprintf(&b, "Total time: %s (%d seconds)\n", clock(t.TotalTimeSeconds), t.TotalTimeSeconds)

	b.WriteString("\nPhase timings:\n")
	phases := 0
	for _, p := range survey.Phases {
		if s, ok := t.PhaseTimings[p]; ok {
			fmt.Fprintf(&b, "  %-12s %s\n", p+":", clock(s))
			phases++
		}
	}
	if phases == 0 {
		b.WriteString("  (none)\n")
	}

	b.WriteString("\nAction sequence:\n")
	if len(t.Actions) == 0 {
		b.WriteString("  (none)\n")
	}
	for i, a := range t.Actions {
		offset := seconds(a.CompletedAt.Sub(t.StartedAt))
		if a.Skipped {
			fmt.Fprintf(&b, "  %d. [%s] SKIPPED %s (%s) - reason: %s\n", i+1, clock(offset), a.ActionTitle, a.Phase, a.SkipReason)
			continue
		}
		fmt.Fprintf(&b, "  %d. [%s] %s (%s) +%ds", i+1, clock(offset), a.ActionTitle, a.Phase, a.DurationSeconds)
		if a.ClinicalNotes != "" {
			fmt.Fprintf(&b, " - notes: %s", a.ClinicalNotes)
		}
		b.WriteString("\n")
	}

	completed, skipped, critical := 0, 0, 0
	for _, a := range t.Actions {
		switch {
		case !a.Skipped:
			completed++
		case a.Phase.IsCritical():
			skipped++
			critical++
		default:
			skipped++
		}
	}
	b.WriteString("\nQuality metrics:\n")
	fmt.Fprintf(&b, "  Actions completed: %d\n", completed)
	fmt.Fprintf(&b, "  Actions skipped: %d\n", skipped)
	fmt.Fprintf(&b, "  Critical-phase skips: %d\n", critical)
	fmt.Fprintf(&b, "  Efficiency score: %d/100\n", EfficiencyScore(t))

	if gaps := ActionGaps(t); len(gaps) > 0 {
		b.WriteString("\nGaps:\n")
		for _, g := range gaps {
			fmt.Fprintf(&b, "  - %s\n", g)
		}
	}
	return b.String()
}

// clock formats seconds as mm:ss.
func clock(s int) string {
	return fmt.Sprintf("%02d:%02d", s/60, s%60)
}
