package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultValidates(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config should validate, got %v", err)
	}
}

func TestValidateRejectsBadClockWidth(t *testing.T) {
	cfg := Default()
	cfg.ClockWidth = 12
	if err := cfg.Validate(); err == nil {
		t.Errorf("expected validation error for clock_width=12")
	}
}

func TestLoadParsesYAMLOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kernel.yaml")
	doc := "tasks: 2\nprio_classes: 2\nmax_per_class: 2\nclock_width: 8\nround_robin: false\n"
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Tasks != 2 || cfg.ClockWidth != 8 || cfg.RoundRobin {
		t.Errorf("unexpected config after load: %+v", cfg)
	}
	// Fields absent from the fixture fall back to Default's user-ISR flags.
	if !cfg.UserISR00 || !cfg.UserISR01 {
		t.Errorf("expected unset fields to keep default values, got %+v", cfg)
	}
}
