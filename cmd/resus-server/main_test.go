package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/resus/resus/internal/domain/trigger"
	"github.com/resus/resus/internal/platform/db"
)

func TestRootCmd_Subcommands(t *testing.T) {
	root := rootCmd()
	want := map[string]bool{"serve": false, "migrate": false, "evaluate": false}
	for _, c := range root.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("missing subcommand %q", name)
		}
	}

	migrate, _, err := root.Find([]string{"migrate", "status"})
	if err != nil || migrate.Name() != "status" {
		t.Fatalf("expected migrate status, got %v %v", migrate, err)
	}
	if f := migrate.Flags().Lookup("schema"); f == nil || f.DefValue != "public" {
		t.Errorf("expected schema flag defaulting to public, got %+v", f)
	}
}

func runEvaluate(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := rootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"evaluate"}, args...))
	err := root.Execute()
	return out.String(), err
}

type evaluateOutput struct {
	Fired  bool                    `json:"fired"`
	Action *trigger.CriticalAction `json:"action"`
}

func TestEvaluateCmd_Fired(t *testing.T) {
	out, err := runEvaluate(t, "--trigger", "glucose", "--value", "40", "--age-years", "2", "--weight", "12")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var got evaluateOutput
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if !got.Fired || got.Action == nil {
		t.Fatalf("expected fired action, got %s", out)
	}
	if got.Action.Severity != trigger.SeverityCritical || !strings.Contains(got.Action.Dose, "24 mL") {
		t.Errorf("unexpected action %+v", got.Action)
	}
}

func TestEvaluateCmd_FlagValue(t *testing.T) {
	out, err := runEvaluate(t, "--trigger", "pulse", "--value", "false", "--age-years", "5")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var got evaluateOutput
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if !got.Fired || got.Action.Trigger != trigger.Pulse {
		t.Errorf("expected pulse action, got %s", out)
	}
}

func TestEvaluateCmd_NotTriggered(t *testing.T) {
	out, err := runEvaluate(t, "--trigger", "spo2", "--value", "98", "--age-years", "4")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, `"fired": false`) {
		t.Errorf("expected not triggered, got %s", out)
	}
}

func TestEvaluateCmd_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"unknown trigger", []string{"--trigger", "temperature", "--value", "39"}},
		{"wrong kind", []string{"--trigger", "spo2", "--value", "low"}},
		{"invalid months", []string{"--trigger", "spo2", "--value", "85", "--age-months", "12"}},
		{"missing trigger", []string{"--value", "85"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := runEvaluate(t, tt.args...); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestParseObservation(t *testing.T) {
	tests := []struct {
		in   string
		want trigger.Observation
	}{
		{"", trigger.Unset()},
		{"  ", trigger.Unset()},
		{"true", trigger.Flag(true)},
		{"false", trigger.Flag(false)},
		{"88", trigger.Number(88)},
		{"2.5", trigger.Number(2.5)},
		{"obstructed", trigger.Category("obstructed")},
	}
	for _, tt := range tests {
		if got := parseObservation(tt.in); got != tt.want {
			t.Errorf("parseObservation(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestPrintStatuses(t *testing.T) {
	applied := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	var out bytes.Buffer
	printStatuses(&out, "public", []db.MigrationStatus{
		{Version: 1, Name: "resuscitation", Applied: true, AppliedAt: &applied},
		{Version: 2, Name: "case_index"},
	})

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 5 {
		t.Fatalf("expected 5 lines, got %d:\n%s", len(lines), out.String())
	}
	if !strings.HasPrefix(lines[3], "1 ") || !strings.Contains(lines[3], "applied") ||
		!strings.HasSuffix(lines[3], "2026-03-01 10:00:00") {
		t.Errorf("unexpected applied row %q", lines[3])
	}
	if !strings.Contains(lines[4], "pending") {
		t.Errorf("unexpected pending row %q", lines[4])
	}
}
