package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func TestValidateDefaults(t *testing.T) {
	cfg, err := Validate(map[string]any{
		"project": "acme",
		"domains": []any{"Example.com", "example.com", "shop.example.org"},
	})
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}

	if cfg.Mode != ModeStandard {
		t.Errorf("mode = %q, want standard", cfg.Mode)
	}
	if want := []string{"example.com", "shop.example.org"}; !reflect.DeepEqual(cfg.Domains, want) {
		t.Errorf("domains = %v, want %v", cfg.Domains, want)
	}
	if cfg.OutputDir != "." || cfg.ProjectRoot() != "acme" {
		t.Errorf("unexpected output dir %q / root %q", cfg.OutputDir, cfg.ProjectRoot())
	}
	if cfg.Workers != 2 {
		t.Errorf("workers = %d, want 2", cfg.Workers)
	}
	if cfg.ProbeTimeout != 5*time.Second || cfg.ToolTimeout != 30*time.Minute {
		t.Errorf("unexpected timeouts %v / %v", cfg.ProbeTimeout, cfg.ToolTimeout)
	}
	if !reflect.DeepEqual(cfg.ReportFormats, []string{"html"}) {
		t.Errorf("report formats = %v", cfg.ReportFormats)
	}
}

func TestValidateFailures(t *testing.T) {
	tests := []struct {
		name     string
		raw      map[string]any
		category Category
		values   []string
	}{
		{
			name:     "missing project",
			raw:      map[string]any{"domains": []any{"example.com"}},
			category: CategoryProject,
		},
		{
			name:     "blank project",
			raw:      map[string]any{"project": "  ", "domains": []any{"example.com"}},
			category: CategoryProject,
		},
		{
			name:     "project escapes output dir",
			raw:      map[string]any{"project": "../acme", "domains": []any{"example.com"}},
			category: CategoryProject,
			values:   []string{"../acme"},
		},
		{
			name:     "nested project",
			raw:      map[string]any{"project": "acme/q3", "domains": []any{"example.com"}},
			category: CategoryProject,
			values:   []string{"acme/q3"},
		},
		{
			name:     "no domains",
			raw:      map[string]any{"project": "acme", "domains": []any{}},
			category: CategoryDomains,
		},
		{
			name:     "bad domains listed",
			raw:      map[string]any{"project": "acme", "domains": []any{"example.com", "not_a_domain", "host.c0"}},
			category: CategoryDomains,
			values:   []string{"not_a_domain", "host.c0"},
		},
		{
			name:     "single label",
			raw:      map[string]any{"project": "acme", "domains": []any{"localhost"}},
			category: CategoryDomains,
			values:   []string{"localhost"},
		},
		{
			name:     "unknown mode",
			raw:      map[string]any{"project": "acme", "domains": []any{"example.com"}, "mode": "aggressive"},
			category: CategoryMode,
		},
		{
			name:     "custom without tools",
			raw:      map[string]any{"project": "acme", "domains": []any{"example.com"}, "mode": "custom"},
			category: CategoryTools,
		},
		{
			name:     "output dir not a string",
			raw:      map[string]any{"project": "acme", "domains": []any{"example.com"}, "output_dir": 42},
			category: CategoryOutputDir,
		},
		{
			name:     "bad email",
			raw:      map[string]any{"project": "acme", "domains": []any{"example.com"}, "email": "nobody"},
			category: CategoryEmail,
		},
		{
			name:     "bad workers",
			raw:      map[string]any{"project": "acme", "domains": []any{"example.com"}, "workers": 0},
			category: CategorySettings,
		},
		{
			name:     "bad report format",
			raw:      map[string]any{"project": "acme", "domains": []any{"example.com"}, "report_formats": []any{"pdf"}},
			category: CategorySettings,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Validate(tt.raw)
			var cfgErr *Error
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected *Error, got %v", err)
			}
			if cfgErr.Category != tt.category {
				t.Fatalf("category = %q, want %q (%v)", cfgErr.Category, tt.category, err)
			}
			if tt.values != nil && !reflect.DeepEqual(cfgErr.Values, tt.values) {
				t.Fatalf("values = %v, want %v", cfgErr.Values, tt.values)
			}
		})
	}
}

func TestValidateFirstCategoryWins(t *testing.T) {
	_, err := Validate(map[string]any{"domains": []any{"bad domain"}, "mode": "nope"})
	var cfgErr *Error
	if !errors.As(err, &cfgErr) || cfgErr.Category != CategoryProject {
		t.Fatalf("expected project error first, got %v", err)
	}
}

func TestValidateCustomMode(t *testing.T) {
	cfg, err := Validate(map[string]any{
		"project": "acme",
		"domains": "example.com, example.org",
		"mode":    "CUSTOM",
		"tools":   []any{"Nikto", "whatweb"},
		"email":   "ops@example.com",
	})
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if len(cfg.Domains) != 2 {
		t.Fatalf("domains = %v", cfg.Domains)
	}
	if !cfg.ToolEnabled("nikto") || !cfg.ToolEnabled("WhatWeb") {
		t.Error("configured tools should be enabled")
	}
	if cfg.ToolEnabled("nuclei") {
		t.Error("unlisted tool should be disabled in custom mode")
	}

	cfg.Mode = ModeFull
	if !cfg.ToolEnabled("nuclei") {
		t.Error("every tool is enabled outside custom mode")
	}
}

func TestValidateSettings(t *testing.T) {
	cfg, err := Validate(map[string]any{
		"project":        "acme",
		"domains":        []any{"example.com"},
		"workers":        3,
		"probe_timeout":  "2s",
		"tool_timeout":   0,
		"probe_rate":     "5",
		"report_formats": []any{"HTML", "csv"},
		"notify":         true,
	})
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.Workers != 3 || cfg.ProbeTimeout != 2*time.Second || cfg.ToolTimeout != 0 || cfg.ProbeRate != 5 {
		t.Errorf("unexpected settings: %+v", cfg)
	}
	if !reflect.DeepEqual(cfg.ReportFormats, []string{"html", "csv"}) || !cfg.Notify {
		t.Errorf("unexpected settings: %+v", cfg)
	}
}

func TestLoadFileAndFlagPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "reconify.yml")
	content := "project: from-file\ndomains:\n  - example.com\nmode: passive\noutput_dir: out\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("project", "", "")
	flags.StringSlice("domains", nil, "")
	flags.String("mode", "", "")
	flags.String("output-dir", "", "")
	flags.Int("workers", 0, "")
	if err := flags.Parse([]string{"--mode", "full", "--workers", "2"}); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path, flags)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Project != "from-file" {
		t.Errorf("project = %q, want file value", cfg.Project)
	}
	if cfg.Mode != ModeFull {
		t.Errorf("mode = %q, want flag value full", cfg.Mode)
	}
	if cfg.OutputDir != "out" {
		t.Errorf("output dir = %q, unset flag must not shadow file", cfg.OutputDir)
	}
	if cfg.Workers != 2 {
		t.Errorf("workers = %d, want 2", cfg.Workers)
	}

	if err := flags.Parse([]string{"--domains", "a.example.com,b.example.com"}); err != nil {
		t.Fatal(err)
	}
	cfg, err = Load(path, flags)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if want := []string{"a.example.com", "b.example.com"}; !reflect.DeepEqual(cfg.Domains, want) {
		t.Errorf("domains = %v, want %v", cfg.Domains, want)
	}
}

func TestLoadFileErrors(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yml"))
	var cfgErr *Error
	if !errors.As(err, &cfgErr) || cfgErr.Category != CategoryFile {
		t.Fatalf("expected file error, got %v", err)
	}

	path := filepath.Join(t.TempDir(), "broken.yml")
	if err := os.WriteFile(path, []byte("project: [unterminated"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(path); !errors.As(err, &cfgErr) {
		t.Fatalf("expected parse error, got %v", err)
	}
}

func TestWriteSampleNeverClobbers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	created, err := WriteSample(path)
	if err != nil || !created {
		t.Fatalf("first write: created=%v err=%v", created, err)
	}

	raw, err := LoadFile(path)
	if err != nil {
		t.Fatalf("sample must parse: %v", err)
	}
	if _, err := Validate(raw); err != nil {
		t.Fatalf("sample must validate: %v", err)
	}

	if err := os.WriteFile(path, []byte("project: edited\n"), 0644); err != nil {
		t.Fatal(err)
	}
	created, err = WriteSample(path)
	if err != nil || created {
		t.Fatalf("second write: created=%v err=%v", created, err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "project: edited\n" {
		t.Fatalf("existing config was overwritten: %q", data)
	}
}
