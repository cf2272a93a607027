package config_test

import (
	"strings"
	"testing"

	"github.com/kieronlawson/diatribe/internal/config"
)

func TestLoadFromReader_EmptyDocumentUsesDefaults(t *testing.T) {
	t.Parallel()
	cfg, err := config.LoadFromReader(strings.NewReader(""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	win := cfg.Pipeline.Window.ToDiarize()
	if win.WindowSizeMs != 45_000 || win.StrideMs != 15_000 {
		t.Errorf("expected default window sizing, got %+v", win)
	}
}

func TestLoadFromReader_InvalidLogLevel(t *testing.T) {
	t.Parallel()
	yaml := `
server:
  log_level: verbose
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for invalid log level, got nil")
	}
	if !strings.Contains(err.Error(), "log_level") {
		t.Errorf("error should mention log_level, got: %v", err)
	}
}

func TestLoadFromReader_EditBudgetOutOfRange(t *testing.T) {
	t.Parallel()
	yaml := `
pipeline:
  stage1:
    edit_budget_percent: 150
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for out-of-range edit budget, got nil")
	}
	if !strings.Contains(err.Error(), "edit_budget_percent") {
		t.Errorf("error should mention edit_budget_percent, got: %v", err)
	}
}

func TestLoadFromReader_ConfidenceThresholdOutOfRange(t *testing.T) {
	t.Parallel()
	yaml := `
pipeline:
  speaker_id:
    confidence_threshold: 1.5
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for out-of-range confidence threshold, got nil")
	}
	if !strings.Contains(err.Error(), "confidence_threshold") {
		t.Errorf("error should mention confidence_threshold, got: %v", err)
	}
}

func TestLoadFromReader_OverridesApplyOnTopOfDefaults(t *testing.T) {
	t.Parallel()
	yaml := `
providers:
  llm:
    name: anthropic
    model: claude-haiku-4-5-20251001
pipeline:
  stage1:
    edit_budget_percent: 5
  window:
    window_size_ms: 30000
`
	cfg, err := config.LoadFromReader(strings.NewReader(yaml))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Providers.LLM.Name != "anthropic" {
		t.Errorf("provider name = %q, want anthropic", cfg.Providers.LLM.Name)
	}
	stage1 := cfg.Pipeline.Stage1.ToLLMEdit()
	if stage1.EditBudgetPercent != 5 {
		t.Errorf("edit budget = %v, want 5", stage1.EditBudgetPercent)
	}
	if stage1.MaxRetries != 2 {
		t.Errorf("max retries should fall back to default 2, got %d", stage1.MaxRetries)
	}
	win := cfg.Pipeline.Window.ToDiarize()
	if win.WindowSizeMs != 30_000 {
		t.Errorf("window size = %d, want 30000", win.WindowSizeMs)
	}
	if win.StrideMs != 15_000 {
		t.Errorf("stride should fall back to default 15000, got %d", win.StrideMs)
	}
}

func TestLoadFromReader_UnknownFieldRejected(t *testing.T) {
	t.Parallel()
	yaml := `
pipeline:
  stage1:
    not_a_real_field: true
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected decode error for unknown field, got nil")
	}
}

func TestValidProviderNames(t *testing.T) {
	t.Parallel()
	if len(config.ValidProviderNames) == 0 {
		t.Fatal("ValidProviderNames should not be empty")
	}
	found := false
	for _, n := range config.ValidProviderNames {
		if n == "anthropic" {
			found = true
		}
	}
	if !found {
		t.Error("ValidProviderNames should contain \"anthropic\"")
	}
}
