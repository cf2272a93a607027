package main

import (
	"fmt"

	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/kieronlawson/diatribe/internal/config"
	"github.com/kieronlawson/diatribe/pkg/llm"
	"github.com/kieronlawson/diatribe/pkg/llm/anyllm"
	oaidirect "github.com/kieronlawson/diatribe/pkg/llm/openai"
)

// registerBuiltinProviders wires every any-llm-go backend name plus a
// "openai-direct" escape hatch (pkg/llm/openai) for deployments that need a
// custom base URL. The openai-direct factory passes only the API key, model
// and base URL; it sets no organization header.
func registerBuiltinProviders(reg *config.Registry, callLogger anyllm.CallLogger) {
	for _, name := range config.ValidProviderNames {
		name := name
		reg.RegisterLLM(name, func(entry config.ProviderEntry) (llm.Provider, error) {
			var backendOpts []anyllmlib.Option
			if entry.APIKey != "" {
				backendOpts = append(backendOpts, anyllmlib.WithAPIKey(entry.APIKey))
			}
			var opts []anyllm.Option
			if callLogger != nil {
				opts = append(opts, anyllm.WithCallLogger(callLogger))
			}
			return anyllm.New(name, entry.Model, backendOpts, opts...)
		})
	}

	reg.RegisterLLM("openai-direct", func(entry config.ProviderEntry) (llm.Provider, error) {
		var opts []oaidirect.Option
		if entry.BaseURL != "" {
			opts = append(opts, oaidirect.WithBaseURL(entry.BaseURL))
		}
		return oaidirect.New(entry.APIKey, entry.Model, opts...)
	})
}

// buildLLMProvider instantiates the configured LM provider. Returns
// (nil, nil) when no provider name is set — stage 1 and speaker-ID run
// heuristics-only in that case.
func buildLLMProvider(cfg *config.Config, reg *config.Registry) (llm.Provider, error) {
	if cfg.Providers.LLM.Name == "" {
		return nil, nil
	}
	p, err := reg.CreateLLM(cfg.Providers.LLM)
	if err != nil {
		return nil, fmt.Errorf("provider: %w", err)
	}
	return p, nil
}
