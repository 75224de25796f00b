// Package voice maps short spoken or typed phrases from the resuscitation
// team onto rule observations, e.g. "sats 88, no pulse" becomes an SpO2
// reading of 88 and an absent pulse.
package voice

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/resus/resus/internal/domain/trigger"
)

// Command is one recognised observation.
type Command struct {
	Phrase  string              `json:"phrase"`
	Trigger trigger.Name        `json:"trigger"`
	Value   trigger.Observation `json:"value"`
}

type numericPattern struct {
	name trigger.Name
	re   *regexp.Regexp
}

type phrasePattern struct {
	name  trigger.Name
	re    *regexp.Regexp
	value trigger.Observation
}

const number = `(\d+(?:\.\d+)?)`

// Readings are matched before phrases so "pulse rate 80" is a heart rate
// and not a pulse check.
var numericPatterns = []numericPattern{
	{trigger.SpO2, regexp.MustCompile(`\b(?:sats?|spo2|saturations?|oxygen saturation|o2 sats?)\s*(?:is|of|at|=|:)?\s*` + number)},
	{trigger.HeartRate, regexp.MustCompile(`\b(?:heart rate|hr|pulse rate|pulse)\s*(?:is|of|at|=|:)?\s*` + number)},
	{trigger.Glucose, regexp.MustCompile(`\b(?:glucose|blood sugar|sugar|bm|bsl)\s*(?:is|of|at|=|:)?\s*` + number)},
}

// Within each rule the more specific phrase comes first.
var phrasePatterns = []phrasePattern{
	{trigger.Breathing, regexp.MustCompile(`\b(?:not breathing|no breathing|apno?eic|no respiratory effort)\b`), trigger.Category(trigger.BreathingAbsent)},
	{trigger.Breathing, regexp.MustCompile(`\b(?:breathing (?:is )?inadequate|inadequate breathing|poor (?:respiratory )?effort|struggling to breathe|gasping)\b`), trigger.Category(trigger.BreathingInadequate)},
	{trigger.Breathing, regexp.MustCompile(`\bbreathing (?:is )?(?:adequate|normal(?:ly)?|fine)\b`), trigger.Category(trigger.BreathingAdequate)},

	{trigger.Pulse, regexp.MustCompile(`\b(?:no pulse|pulseless|no output|can'?t feel a pulse)\b`), trigger.Flag(false)},
	{trigger.Pulse, regexp.MustCompile(`\b(?:pulse (?:is )?present|has a pulse|got a pulse|pulse back|rosc)\b`), trigger.Flag(true)},

	{trigger.Responsiveness, regexp.MustCompile(`\b(?:unresponsive|unconscious|not responding)\b`), trigger.Category("unresponsive")},
	{trigger.Responsiveness, regexp.MustCompile(`\b(?:responds to pain|responsive to pain|pain only)\b`), trigger.Category("pain")},
	{trigger.Responsiveness, regexp.MustCompile(`\b(?:responds to voice|responsive to voice)\b`), trigger.Category("voice")},
	{trigger.Responsiveness, regexp.MustCompile(`\b(?:alert|awake)\b`), trigger.Category("alert")},

	{trigger.Airway, regexp.MustCompile(`\b(?:airway (?:is )?obstructed|obstructed airway|choking|complete obstruction)\b`), trigger.Category("obstructed")},
	{trigger.Airway, regexp.MustCompile(`\b(?:airway (?:is )?at risk|stridor|snoring)\b`), trigger.Category("at_risk")},
	{trigger.Airway, regexp.MustCompile(`\bairway (?:is )?(?:patent|clear|open)\b`), trigger.Category("patent")},

	{trigger.Perfusion, regexp.MustCompile(`\b(?:shock|shocked|shocky)\b`), trigger.Category(trigger.PerfusionShock)},
	{trigger.Perfusion, regexp.MustCompile(`\b(?:poor(?:ly)? perfus(?:ion|ed)|mottled|cold peripheries)\b`), trigger.Category(trigger.PerfusionPoor)},
	{trigger.Perfusion, regexp.MustCompile(`\b(?:well perfused|perfusion (?:is )?normal|good perfusion)\b`), trigger.Category(trigger.PerfusionNormal)},

	{trigger.Seizure, regexp.MustCompile(`\b(?:prolonged seizure|status epilepticus|still seizing|still fitting)\b`), trigger.Category(trigger.SeizureProlonged)},
	{trigger.Seizure, regexp.MustCompile(`\bpost-?ictal\b`), trigger.Category(trigger.SeizurePostictal)},
	{trigger.Seizure, regexp.MustCompile(`\b(?:seizure (?:has )?stopped|no seizure|fitting stopped)\b`), trigger.Category(trigger.SeizureNone)},
	{trigger.Seizure, regexp.MustCompile(`\b(?:seizing|seizure|fitting|convulsing|convulsion)\b`), trigger.Category(trigger.SeizureActive)},

	{trigger.Rash, regexp.MustCompile(`\bpetechia[el]?\b`), trigger.Category(trigger.RashPetechial)},
	{trigger.Rash, regexp.MustCompile(`\bpurpur(?:a|ic)\b`), trigger.Category(trigger.RashPurpuric)},
	{trigger.Rash, regexp.MustCompile(`\b(?:urticaria|urticarial|hives)\b`), trigger.Category(trigger.RashUrticarial)},
	{trigger.Rash, regexp.MustCompile(`\bno rash\b`), trigger.Category(trigger.RashNone)},
}

var clauseSplit = regexp.MustCompile(`[,;!?]+|\.(?:\s+|$)|\band\b|\bthen\b`)

// Parse returns the commands recognised in text in the order they were
// spoken, one per rule. A later mention of the same rule replaces the
// earlier one. Unrecognised text yields an empty slice.
func Parse(text string) []Command {
	var all []Command
	for _, clause := range clauseSplit.Split(strings.ToLower(text), -1) {
		clause = strings.Join(strings.Fields(clause), " ")
		if clause != "" {
			all = append(all, parseClause(clause)...)
		}
	}

	last := make(map[trigger.Name]int, len(all))
	for i, c := range all {
		last[c.Trigger] = i
	}
	cmds := []Command{}
	for i, c := range all {
		if last[c.Trigger] == i {
			cmds = append(cmds, c)
		}
	}
	return cmds
}

type match struct {
	pos int
	cmd Command
}

// parseClause finds at most one command per rule in a clause. Numeric
// readings are blanked out before phrases are matched.
func parseClause(clause string) []Command {
	var found []match
	seen := make(map[trigger.Name]bool)
	rest := clause

	for _, p := range numericPatterns {
		m := p.re.FindStringSubmatchIndex(rest)
		if m == nil {
			continue
		}
		v, err := strconv.ParseFloat(rest[m[2]:m[3]], 64)
		if err != nil {
			continue
		}
		found = append(found, match{m[0], Command{Phrase: clause[m[0]:m[1]], Trigger: p.name, Value: trigger.Number(v)}})
		seen[p.name] = true
		rest = rest[:m[0]] + strings.Repeat(" ", m[1]-m[0]) + rest[m[1]:]
	}

	for _, p := range phrasePatterns {
		if seen[p.name] {
			continue
		}
		loc := p.re.FindStringIndex(rest)
		if loc == nil {
			continue
		}
		found = append(found, match{loc[0], Command{Phrase: clause[loc[0]:loc[1]], Trigger: p.name, Value: p.value}})
		seen[p.name] = true
	}

	sort.SliceStable(found, func(i, j int) bool { return found[i].pos < found[j].pos })
	out := make([]Command, len(found))
	for i, f := range found {
		out[i] = f.cmd
	}
	return out
}
