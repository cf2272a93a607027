package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ErrConfig is the sentinel every configuration load/validation failure
// wraps — an unreadable file, malformed YAML, an unknown field, or a
// value outside its valid range.
var ErrConfig = errors.New("config: invalid configuration")

// ValidProviderNames lists the any-llm-go backend names [pkg/llm/anyllm]
// ships factories for out of the box. Used by [Validate] to warn about
// likely typos; a custom-registered third-party provider is still accepted.
var ValidProviderNames = []string{
	"openai", "anthropic", "ollama", "gemini", "deepseek", "mistral", "groq",
	"llamacpp", "llamafile",
}

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader] and
// [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %q: %v", ErrConfig, path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals. An
// empty document decodes to a zero Config, which [Validate] accepts — every
// pipeline threshold falls back to its package default.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && err != io.EOF {
		return nil, fmt.Errorf("%w: decode yaml: %v", ErrConfig, err)
	}
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfig, err)
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values. It returns a
// joined error listing all validation failures found; an unrecognised
// provider name is logged as a warning rather than treated as an error,
// since a caller may have registered a third-party provider under that name.
func Validate(cfg *Config) error {
	var errs []error

	if !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	if name := cfg.Providers.LLM.Name; name != "" && !slices.Contains(ValidProviderNames, name) {
		slog.Warn("unrecognised LLM provider name — may be a typo or a custom registration",
			"name", name,
			"known", ValidProviderNames,
		)
	}

	if p := cfg.Pipeline.Stage1.EditBudgetPercent; p < 0 || p > 100 {
		errs = append(errs, fmt.Errorf("pipeline.stage1.edit_budget_percent %.2f is out of range [0, 100]", p))
	}
	if c := cfg.Pipeline.SpeakerID.ConfidenceThreshold; c < 0 || c > 1 {
		errs = append(errs, fmt.Errorf("pipeline.speaker_id.confidence_threshold %.2f is out of range [0, 1]", c))
	}
	if c := cfg.Pipeline.ProblemZone.MinSpeakerConfidence; c < 0 || c > 1 {
		errs = append(errs, fmt.Errorf("pipeline.problem_zone.min_speaker_confidence %.2f is out of range [0, 1]", c))
	}
	if cfg.Pipeline.Window.WindowSizeMs < 0 || cfg.Pipeline.Window.StrideMs < 0 {
		errs = append(errs, errors.New("pipeline.window: window_size_ms and stride_ms must not be negative"))
	}

	return errors.Join(errs...)
}
