package config_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/kieronlawson/diatribe/internal/config"
	"github.com/kieronlawson/diatribe/pkg/llm"
)

// ── helpers ──────────────────────────────────────────────────────────────────

const sampleYAML = `
server:
  log_level: info
  log_dir: /tmp/diatribe-calls

providers:
  llm:
    name: anthropic
    api_key: sk-ant-test
    model: claude-haiku-4-5-20251001

pipeline:
  window:
    window_size_ms: 45000
    stride_ms: 15000
    anchor_ms: 5000
    filter_problem_zones: true
  problem_zone:
    max_switches_per_10s: 3
    min_turn_duration_ms: 800
    overlap_proximity_ms: 2000
    min_speaker_confidence: 0.6
  heuristics:
    micro_turn_max_ms: 300
    floor_decay_per_second: 0.2
    min_floor_score: 0.3
  stage1:
    edit_budget_percent: 3
    allowed_speakers: [0, 1, 2, 3]
    max_cost_increase: 10
    max_retries: 2
    concurrency: 8
  reconcile:
    min_turn_duration_ms: 700
    max_switches_per_second: 2
    stable_span_confidence: 0.8
    min_windows_for_override: 2
  speaker_id:
    max_excerpts_per_speaker: 5
    max_context_chars: 8000
    confidence_threshold: 0.7
`

// ── YAML loading ──────────────────────────────────────────────────────────────

func TestLoadFromReader_Valid(t *testing.T) {
	cfg, err := config.LoadFromReader(strings.NewReader(sampleYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.LogLevel != config.LogLevelInfo {
		t.Errorf("server.log_level: got %q, want %q", cfg.Server.LogLevel, config.LogLevelInfo)
	}
	if cfg.Server.LogDir != "/tmp/diatribe-calls" {
		t.Errorf("server.log_dir: got %q", cfg.Server.LogDir)
	}
	if cfg.Providers.LLM.Name != "anthropic" {
		t.Errorf("providers.llm.name: got %q, want %q", cfg.Providers.LLM.Name, "anthropic")
	}
	if cfg.Providers.LLM.Model != "claude-haiku-4-5-20251001" {
		t.Errorf("providers.llm.model: got %q", cfg.Providers.LLM.Model)
	}

	win := cfg.Pipeline.Window.ToDiarize()
	if win.WindowSizeMs != 45_000 || win.StrideMs != 15_000 || win.AnchorSizeMs != 5_000 {
		t.Errorf("window config: got %+v", win)
	}
	if !win.FilterProblemZones {
		t.Error("filter_problem_zones should be true")
	}

	zone := cfg.Pipeline.ProblemZone.ToDiarize()
	if zone.MaxSwitchesPer10s != 3 || zone.MinTurnDurationMs != 800 {
		t.Errorf("problem zone config: got %+v", zone)
	}

	heur := cfg.Pipeline.Heuristics.ToHeuristics()
	if heur.MicroTurnMaxMs != 300 {
		t.Errorf("heuristics config: got %+v", heur)
	}

	stage1 := cfg.Pipeline.Stage1.ToLLMEdit()
	if stage1.EditBudgetPercent != 3 || stage1.MaxRetries != 2 || stage1.Concurrency != 8 {
		t.Errorf("stage1 config: got %+v", stage1)
	}
	if len(stage1.Validation.AllowedSpeakers) != 4 {
		t.Errorf("allowed speakers: got %v", stage1.Validation.AllowedSpeakers)
	}

	recon := cfg.Pipeline.Reconcile.ToReconcile()
	if recon.MinTurnDurationMs != 700 || recon.MinWindowsForOverride != 2 {
		t.Errorf("reconcile config: got %+v", recon)
	}

	spk := cfg.Pipeline.SpeakerID.ToDiarize()
	if spk.MaxExcerptsPerSpeaker != 5 || spk.ConfidenceThreshold != 0.7 {
		t.Errorf("speaker id config: got %+v", spk)
	}
}

func TestLoadFromReader_EmptyIsValid(t *testing.T) {
	// An empty config should succeed (no required top-level fields); every
	// threshold falls back to its package default.
	_, err := config.LoadFromReader(strings.NewReader("{}"))
	if err != nil {
		t.Fatalf("unexpected error for empty config: %v", err)
	}
}

// ── Registry ─────────────────────────────────────────────────────────────────

func TestRegistry_UnknownLLM(t *testing.T) {
	reg := config.NewRegistry()
	_, err := reg.CreateLLM(config.ProviderEntry{Name: "nonexistent"})
	if err == nil {
		t.Fatal("expected error for unknown LLM provider")
	}
	if !errors.Is(err, config.ErrProviderNotRegistered) {
		t.Errorf("expected ErrProviderNotRegistered, got: %v", err)
	}
}

type stubProvider struct{ llm.Provider }

func TestRegistry_RegisterAndCreate(t *testing.T) {
	reg := config.NewRegistry()
	called := false
	reg.RegisterLLM("stub", func(e config.ProviderEntry) (llm.Provider, error) {
		called = true
		if e.Model != "test-model" {
			t.Errorf("entry.Model = %q, want test-model", e.Model)
		}
		return stubProvider{}, nil
	})

	p, err := reg.CreateLLM(config.ProviderEntry{Name: "stub", Model: "test-model"})
	if err != nil {
		t.Fatalf("CreateLLM: %v", err)
	}
	if p == nil {
		t.Fatal("CreateLLM returned nil provider")
	}
	if !called {
		t.Error("factory was not invoked")
	}
}

func TestRegistry_OverwriteRegistration(t *testing.T) {
	reg := config.NewRegistry()
	reg.RegisterLLM("stub", func(config.ProviderEntry) (llm.Provider, error) {
		return nil, errors.New("first")
	})
	reg.RegisterLLM("stub", func(config.ProviderEntry) (llm.Provider, error) {
		return nil, errors.New("second")
	})
	_, err := reg.CreateLLM(config.ProviderEntry{Name: "stub"})
	if err == nil || err.Error() != "second" {
		t.Errorf("expected second factory to win, got: %v", err)
	}
}

func TestLoadFromReader_InvalidWrapsErrConfig(t *testing.T) {
	_, err := config.LoadFromReader(strings.NewReader("server:\n  log_level: loud\n"))
	if err == nil {
		t.Fatal("expected error for invalid log level")
	}
	if !errors.Is(err, config.ErrConfig) {
		t.Errorf("expected ErrConfig, got: %v", err)
	}
}

func TestLoad_MissingFileWrapsErrConfig(t *testing.T) {
	_, err := config.Load("/nonexistent/diatribe.yaml")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !errors.Is(err, config.ErrConfig) {
		t.Errorf("expected ErrConfig, got: %v", err)
	}
}

func TestLogLevel_IsValid(t *testing.T) {
	valid := []config.LogLevel{config.LogLevelDebug, config.LogLevelInfo, config.LogLevelWarn, config.LogLevelError, ""}
	for _, lvl := range valid {
		if !lvl.IsValid() {
			t.Errorf("LogLevel(%q).IsValid() = false, want true", lvl)
		}
	}
	if config.LogLevel("verbose").IsValid() {
		t.Error("LogLevel(\"verbose\").IsValid() = true, want false")
	}
}
