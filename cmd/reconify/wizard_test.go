package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/who0xac/reconify/pkg/config"
)

func TestWizardFillsGaps(t *testing.T) {
	in := strings.NewReader("acme\nexample.com, example.org\ncustom\nnikto,nuclei\n")
	var out bytes.Buffer

	raw, err := runWizard(in, &out, map[string]any{"output_dir": "/tmp/out"})
	if err != nil {
		t.Fatal(err)
	}

	cfg, err := config.Validate(raw)
	if err != nil {
		t.Fatalf("wizard answers do not validate: %v", err)
	}
	if cfg.Project != "acme" || len(cfg.Domains) != 2 || cfg.Mode != config.ModeCustom || len(cfg.Tools) != 2 || cfg.OutputDir != "/tmp/out" {
		t.Errorf("cfg = %+v", cfg)
	}
	if !strings.Contains(out.String(), "Project name") {
		t.Errorf("no prompt written:\n%s", out.String())
	}
}

func TestWizardKeepsGivenValues(t *testing.T) {
	in := strings.NewReader("example.com\n\n")
	raw, err := runWizard(in, &bytes.Buffer{}, map[string]any{"project": "fromflag"})
	if err != nil {
		t.Fatal(err)
	}
	if raw["project"] != "fromflag" || raw["domains"] != "example.com" || raw["mode"] != string(config.DefaultMode) {
		t.Errorf("raw = %v", raw)
	}
}

func TestWizardClosedInput(t *testing.T) {
	if _, err := runWizard(strings.NewReader(""), &bytes.Buffer{}, map[string]any{}); err == nil {
		t.Fatal("expected an error when input ends early")
	}
}

func TestNeedsWizard(t *testing.T) {
	if !needsWizard(map[string]any{"project": "acme", "domains": []any{}}) {
		t.Error("empty domains should need the wizard")
	}
	if needsWizard(map[string]any{"project": "acme", "domains": []string{"example.com"}}) {
		t.Error("complete config should not need the wizard")
	}
}

func TestExitStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, 0},
		{&config.Error{Category: config.CategoryMode, Message: "unknown mode"}, 1},
		{errors.New("boom"), 1},
		{errInterrupted, 130},
	}
	for _, tt := range tests {
		if got := exitStatus(tt.err); got != tt.want {
			t.Errorf("exitStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
