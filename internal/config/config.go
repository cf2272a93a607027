// Package config provides the configuration schema, loader, and LM-provider
// registry for the diatribe correction pipeline.
package config

import (
	"github.com/kieronlawson/diatribe/internal/diarize"
	"github.com/kieronlawson/diatribe/internal/heuristics"
	"github.com/kieronlawson/diatribe/internal/llmedit"
	"github.com/kieronlawson/diatribe/internal/reconcile"
)

// LogLevel controls slog verbosity.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// IsValid reports whether l is one of the recognised log levels.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError, "":
		return true
	default:
		return false
	}
}

// Config is the root configuration structure for the diatribe pipeline.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader];
// CLI flags in cmd/diatribe may override individual fields after loading.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Providers ProvidersConfig `yaml:"providers"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
}

// ServerConfig holds process-wide logging settings.
type ServerConfig struct {
	// LogLevel is validated on load. Valid values: "debug", "info", "warn",
	// "error". The CLI does not apply it; its log level comes from --verbose.
	LogLevel LogLevel `yaml:"log_level"`

	// LogDir, when non-empty, enables per-call LM request/response JSON
	// capture (one timestamped, sequence-numbered file per call) — see
	// pkg/llm/anyllm.WithCallLogger.
	LogDir string `yaml:"log_dir"`

	// MetricsAddr, when non-empty, starts a Prometheus-compatible /metrics
	// HTTP endpoint on this address for the duration of a process run.
	MetricsAddr string `yaml:"metrics_addr"`
}

// ProvidersConfig declares which provider implementation backs the LM calls
// stage 1 and speaker-ID issue. The pipeline only ever needs one provider
// kind: a text-completion LM.
type ProvidersConfig struct {
	LLM ProviderEntry `yaml:"llm"`
}

// ProviderEntry is the configuration block for the LM provider.
type ProviderEntry struct {
	// Name selects the any-llm-go backend (e.g. "openai", "anthropic",
	// "gemini", "ollama", "deepseek", "mistral", "groq", "llamacpp",
	// "llamafile"). Looked up in the [Registry].
	Name string `yaml:"name"`

	// APIKey is the authentication key for the provider's API. When empty,
	// the provider backend falls back to its well-known environment
	// variable (e.g. ANTHROPIC_API_KEY).
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default API endpoint. Only the
	// "openai-direct" provider reads it.
	BaseURL string `yaml:"base_url"`

	// Model selects a specific model within the provider (e.g. "gpt-4o",
	// "claude-haiku-4-5-20251001").
	Model string `yaml:"model"`

	// Options holds provider-specific configuration values not covered by
	// the standard fields above. The built-in provider factories do not
	// read it.
	Options map[string]any `yaml:"options"`
}

// PipelineConfig carries every tunable threshold the correction pipeline
// uses, mirroring spec.md §4's per-component parameters. Each sub-struct has
// yaml tags and converts to the internal package's native config type via
// its To* method so defaults (diarize.DefaultWindowConfig, etc.) apply
// uniformly whether or not a field was present in the YAML document.
type PipelineConfig struct {
	Window      WindowConfig      `yaml:"window"`
	ProblemZone ProblemZoneConfig `yaml:"problem_zone"`
	Heuristics  HeuristicsConfig  `yaml:"heuristics"`
	Stage1      Stage1Config      `yaml:"stage1"`
	Reconcile   ReconcileConfig   `yaml:"reconcile"`
	SpeakerID   SpeakerIDConfig   `yaml:"speaker_id"`
}

// WindowConfig mirrors diarize.WindowConfig for YAML decoding. A zero value
// (all fields unset) converts to [diarize.DefaultWindowConfig].
type WindowConfig struct {
	WindowSizeMs        int64 `yaml:"window_size_ms"`
	StrideMs            int64 `yaml:"stride_ms"`
	AnchorMs            int64 `yaml:"anchor_ms"`
	FilterProblemZones  *bool `yaml:"filter_problem_zones"`
}

// ToDiarize converts c to a diarize.WindowConfig, filling unset fields from
// [diarize.DefaultWindowConfig].
func (c WindowConfig) ToDiarize() diarize.WindowConfig {
	d := diarize.DefaultWindowConfig()
	if c.WindowSizeMs > 0 {
		d.WindowSizeMs = c.WindowSizeMs
	}
	if c.StrideMs > 0 {
		d.StrideMs = c.StrideMs
	}
	if c.AnchorMs > 0 {
		d.AnchorSizeMs = c.AnchorMs
	}
	if c.FilterProblemZones != nil {
		d.FilterProblemZones = *c.FilterProblemZones
	}
	return d
}

// ProblemZoneConfig mirrors diarize.ProblemZoneConfig for YAML decoding.
type ProblemZoneConfig struct {
	MaxSwitchesPer10s    int     `yaml:"max_switches_per_10s"`
	MinTurnDurationMs    int64   `yaml:"min_turn_duration_ms"`
	OverlapProximityMs   int64   `yaml:"overlap_proximity_ms"`
	MinSpeakerConfidence float64 `yaml:"min_speaker_confidence"`
}

// ToDiarize converts c to a diarize.ProblemZoneConfig, filling unset fields
// from [diarize.DefaultProblemZoneConfig].
func (c ProblemZoneConfig) ToDiarize() diarize.ProblemZoneConfig {
	d := diarize.DefaultProblemZoneConfig()
	if c.MaxSwitchesPer10s > 0 {
		d.MaxSwitchesPer10s = c.MaxSwitchesPer10s
	}
	if c.MinTurnDurationMs > 0 {
		d.MinTurnDurationMs = c.MinTurnDurationMs
	}
	if c.OverlapProximityMs > 0 {
		d.OverlapProximityMs = c.OverlapProximityMs
	}
	if c.MinSpeakerConfidence > 0 {
		d.MinSpeakerConfidence = c.MinSpeakerConfidence
	}
	return d
}

// HeuristicsConfig mirrors heuristics.Config for YAML decoding.
type HeuristicsConfig struct {
	MicroTurnMaxMs      int64    `yaml:"micro_turn_max_ms"`
	BackchannelWords    []string `yaml:"backchannel_words"`
	FloorDecayPerSecond float64  `yaml:"floor_decay_per_second"`
	MinFloorScore       float64  `yaml:"min_floor_score"`
}

// ToHeuristics converts c to a heuristics.Config, filling unset fields from
// [heuristics.DefaultConfig].
func (c HeuristicsConfig) ToHeuristics() heuristics.Config {
	d := heuristics.DefaultConfig()
	if c.MicroTurnMaxMs > 0 {
		d.MicroTurnMaxMs = c.MicroTurnMaxMs
	}
	if len(c.BackchannelWords) > 0 {
		d.BackchannelWords = c.BackchannelWords
	}
	if c.FloorDecayPerSecond > 0 {
		d.FloorDecayPerSecond = c.FloorDecayPerSecond
	}
	if c.MinFloorScore > 0 {
		d.MinFloorScore = c.MinFloorScore
	}
	return d
}

// Stage1Config mirrors llmedit.Stage1Config for YAML decoding.
type Stage1Config struct {
	EditBudgetPercent    float64 `yaml:"edit_budget_percent"`
	AllowedSpeakers      []int   `yaml:"allowed_speakers"`
	MaxCostIncrease      float64 `yaml:"max_cost_increase"`
	MaxRetries           int     `yaml:"max_retries"`
	Concurrency          int     `yaml:"concurrency"`
}

// ToLLMEdit converts c to a llmedit.Stage1Config, filling unset fields from
// [llmedit.DefaultStage1Config].
func (c Stage1Config) ToLLMEdit() llmedit.Stage1Config {
	d := llmedit.DefaultStage1Config()
	if c.EditBudgetPercent > 0 {
		d.EditBudgetPercent = c.EditBudgetPercent
		d.Validation.MaxEditBudgetPercent = c.EditBudgetPercent
	}
	if len(c.AllowedSpeakers) > 0 {
		d.Validation.AllowedSpeakers = c.AllowedSpeakers
	}
	if c.MaxCostIncrease > 0 {
		d.Validation.MaxCostIncrease = c.MaxCostIncrease
	}
	if c.MaxRetries > 0 {
		d.MaxRetries = c.MaxRetries
	}
	if c.Concurrency > 0 {
		d.Concurrency = c.Concurrency
	}
	return d
}

// ReconcileConfig mirrors reconcile.Config for YAML decoding.
type ReconcileConfig struct {
	MinTurnDurationMs    int64   `yaml:"min_turn_duration_ms"`
	MaxSwitchesPerSecond float64 `yaml:"max_switches_per_second"`
	StableSpanConfidence float64 `yaml:"stable_span_confidence"`
	MinWindowsForOverride int    `yaml:"min_windows_for_override"`
}

// ToReconcile converts c to a reconcile.Config, filling unset fields from
// [reconcile.DefaultConfig].
func (c ReconcileConfig) ToReconcile() reconcile.Config {
	d := reconcile.DefaultConfig()
	if c.MinTurnDurationMs > 0 {
		d.MinTurnDurationMs = c.MinTurnDurationMs
	}
	if c.MaxSwitchesPerSecond > 0 {
		d.MaxSwitchesPerSecond = c.MaxSwitchesPerSecond
	}
	if c.StableSpanConfidence > 0 {
		d.StableSpanConfidence = c.StableSpanConfidence
	}
	if c.MinWindowsForOverride > 0 {
		d.MinWindowsForOverride = c.MinWindowsForOverride
	}
	return d
}

// SpeakerIDConfig mirrors diarize.SpeakerIdConfig for YAML decoding.
type SpeakerIDConfig struct {
	MaxExcerptsPerSpeaker int     `yaml:"max_excerpts_per_speaker"`
	MaxContextChars       int     `yaml:"max_context_chars"`
	ConfidenceThreshold   float64 `yaml:"confidence_threshold"`
}

// ToDiarize converts c to a diarize.SpeakerIdConfig, filling unset fields
// from [diarize.DefaultSpeakerIdConfig].
func (c SpeakerIDConfig) ToDiarize() diarize.SpeakerIdConfig {
	d := diarize.DefaultSpeakerIdConfig()
	if c.MaxExcerptsPerSpeaker > 0 {
		d.MaxExcerptsPerSpeaker = c.MaxExcerptsPerSpeaker
	}
	if c.MaxContextChars > 0 {
		d.MaxContextChars = c.MaxContextChars
	}
	if c.ConfidenceThreshold > 0 {
		d.ConfidenceThreshold = c.ConfidenceThreshold
	}
	return d
}
