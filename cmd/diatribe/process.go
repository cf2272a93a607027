package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kieronlawson/diatribe/internal/config"
	"github.com/kieronlawson/diatribe/internal/diarize"
	"github.com/kieronlawson/diatribe/internal/ingest"
	"github.com/kieronlawson/diatribe/internal/llmedit"
	"github.com/kieronlawson/diatribe/internal/observe"
	"github.com/kieronlawson/diatribe/internal/pipeline"
	"github.com/kieronlawson/diatribe/internal/speakerid"
	"github.com/kieronlawson/diatribe/pkg/llm/anyllm"
)

func runProcess(args []string) int {
	fs := flag.NewFlagSet("process", flag.ContinueOnError)

	input := fs.String("input", "", "path to the Deepgram JSON transcript (required)")
	configPath := fs.String("config", "", "path to a YAML configuration file (optional)")
	machineOut := fs.String("machine-out", "transcript.machine.json", "output path for the machine-readable JSON transcript")
	humanOut := fs.String("human-out", "", "output path for a human-readable text transcript (omit to skip)")
	participants := fs.String("participants", "", "comma-separated participant names for speaker identification")
	participantsFile := fs.String("participants-file", "", `path to a JSON participant roster: [{"name":"Alice","hints":["PM"]}]`)
	heuristicsOnly := fs.Bool("heuristics-only", false, "run only the deterministic heuristics; skip LM review entirely")
	maxSpeakers := fs.Int("max-speakers", 4, "number of distinct speaker IDs the LM is allowed to assign")
	editBudgetPercent := fs.Float64("edit-budget-percent", 0, "override pipeline.stage1.edit_budget_percent (0 = use config/default)")
	windowSizeMs := fs.Int64("window-size-ms", 0, "override pipeline.window.window_size_ms (0 = use config/default)")
	windowStrideMs := fs.Int64("window-stride-ms", 0, "override pipeline.window.stride_ms (0 = use config/default)")
	minTurnMs := fs.Int64("min-turn-ms", 0, "override pipeline.reconcile.min_turn_duration_ms (0 = use config/default)")
	logDir := fs.String("log-dir", "", "directory to write one JSON file per LM call into (overrides server.log_dir)")
	metricsAddr := fs.String("metrics-addr", "", "address to serve Prometheus /metrics on for the duration of this run (overrides server.metrics_addr)")
	verbose := fs.Bool("verbose", false, "enable debug logging")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *input == "" {
		fmt.Fprintln(os.Stderr, "diatribe process: -input is required")
		return 2
	}

	slog.SetDefault(newLogger(*verbose))

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "diatribe: %v\n", err)
		return 1
	}
	if *logDir != "" {
		cfg.Server.LogDir = *logDir
	}
	if *metricsAddr != "" {
		cfg.Server.MetricsAddr = *metricsAddr
	}

	if cfg.Server.MetricsAddr != "" {
		shutdown, err := startMetricsServer(cfg.Server.MetricsAddr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "diatribe: %v\n", err)
			return 1
		}
		defer shutdown(context.Background())
	}

	transcript, err := ingest.ParseDeepgramFile(*input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "diatribe: %v\n", err)
		return 1
	}
	slog.Info("ingested transcript", "input", *input, "tokens", len(transcript.Tokens), "turns", len(transcript.Turns))

	roster, err := resolveParticipants(*participants, *participantsFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "diatribe: %v\n", err)
		return 1
	}

	opts, err := buildPipelineOptions(cfg, pipelineFlags{
		heuristicsOnly:    *heuristicsOnly,
		maxSpeakers:       *maxSpeakers,
		editBudgetPercent: *editBudgetPercent,
		windowSizeMs:      *windowSizeMs,
		windowStrideMs:    *windowStrideMs,
		minTurnMs:         *minTurnMs,
		participants:      roster,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "diatribe: %v\n", err)
		return 1
	}

	p := pipeline.New(opts...)

	result, err := p.Run(context.Background(), &transcript)
	if err != nil {
		slog.Error("pipeline run failed", "err", err)
		return 1
	}

	slog.Info("pipeline complete",
		"windows_processed", result.Metadata.WindowsProcessed,
		"tokens_relabeled", result.Metadata.TokensRelabeled,
		"duration_ms", result.Metadata.DurationMs,
	)
	if result.Stage1Result.ValidationFailures > 0 {
		slog.Warn("some stage 1 windows never produced a valid patch",
			"validation_failures", result.Stage1Result.ValidationFailures,
		)
	}

	if err := result.Machine.WriteJSON(*machineOut); err != nil {
		fmt.Fprintf(os.Stderr, "diatribe: %v\n", err)
		return 1
	}
	slog.Info("wrote machine transcript", "path", *machineOut)

	if *humanOut != "" {
		if err := os.WriteFile(*humanOut, []byte(result.Human), 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "diatribe: render: write human file %s: %v\n", *humanOut, err)
			return 1
		}
		slog.Info("wrote human transcript", "path", *humanOut)
	}

	return 0
}

// startMetricsServer initializes the OTel SDK (with a Prometheus exporter
// bridge) and serves /metrics on addr in the background. The returned
// shutdown func stops the HTTP server and flushes the SDK providers.
func startMetricsServer(addr string) (func(context.Context) error, error) {
	shutdownProvider, err := observe.InitProvider(context.Background(), observe.ProviderConfig{ServiceName: "diatribe"})
	if err != nil {
		return nil, fmt.Errorf("metrics: init otel provider: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics server stopped", "err", err)
		}
	}()
	slog.Info("serving metrics", "addr", addr)

	return func(ctx context.Context) error {
		srvErr := srv.Shutdown(ctx)
		providerErr := shutdownProvider(ctx)
		if srvErr != nil {
			return srvErr
		}
		return providerErr
	}, nil
}

// pipelineFlags carries the process subcommand's CLI overrides into
// buildPipelineOptions, layered on top of whatever cfg already resolved
// from the config file.
type pipelineFlags struct {
	heuristicsOnly    bool
	maxSpeakers       int
	editBudgetPercent float64
	windowSizeMs      int64
	windowStrideMs    int64
	minTurnMs         int64
	participants      []diarize.Participant
}

// buildPipelineOptions turns cfg and the CLI flags into pipeline.Options,
// wiring an LM client only when a provider is configured.
func buildPipelineOptions(cfg *config.Config, flags pipelineFlags) ([]pipeline.Option, error) {
	windowCfg := cfg.Pipeline.Window.ToDiarize()
	if flags.windowSizeMs > 0 {
		windowCfg.WindowSizeMs = flags.windowSizeMs
	}
	if flags.windowStrideMs > 0 {
		windowCfg.StrideMs = flags.windowStrideMs
	}

	zoneCfg := cfg.Pipeline.ProblemZone.ToDiarize()
	heuristicsCfg := cfg.Pipeline.Heuristics.ToHeuristics()

	stage1Cfg := cfg.Pipeline.Stage1.ToLLMEdit()
	if flags.editBudgetPercent > 0 {
		stage1Cfg.EditBudgetPercent = flags.editBudgetPercent
		stage1Cfg.Validation.MaxEditBudgetPercent = flags.editBudgetPercent
	}
	if flags.maxSpeakers > 0 {
		speakers := make([]int, flags.maxSpeakers)
		for i := range speakers {
			speakers[i] = i
		}
		stage1Cfg.Validation.AllowedSpeakers = speakers
	}

	reconcileCfg := cfg.Pipeline.Reconcile.ToReconcile()
	if flags.minTurnMs > 0 {
		reconcileCfg.MinTurnDurationMs = flags.minTurnMs
	}

	opts := []pipeline.Option{
		pipeline.WithWindowConfig(windowCfg),
		pipeline.WithZoneConfig(zoneCfg),
		pipeline.WithHeuristicsConfig(heuristicsCfg),
		pipeline.WithStage1Config(stage1Cfg),
		pipeline.WithReconcileConfig(reconcileCfg),
		pipeline.WithHeuristicsOnly(flags.heuristicsOnly),
	}

	if flags.heuristicsOnly {
		return opts, nil
	}

	var callLogger anyllm.CallLogger
	if cfg.Server.LogDir != "" {
		logger, err := observe.NewFileCallLogger(cfg.Server.LogDir)
		if err != nil {
			return nil, err
		}
		callLogger = logger
	}

	reg := config.NewRegistry()
	registerBuiltinProviders(reg, callLogger)

	provider, err := buildLLMProvider(cfg, reg)
	if err != nil {
		return nil, err
	}
	if provider == nil {
		slog.Warn("no LLM provider configured — running heuristics-only")
		return opts, nil
	}

	opts = append(opts, pipeline.WithLLMEditClient(llmedit.NewClient(provider)))

	if len(flags.participants) > 0 {
		opts = append(opts, pipeline.WithSpeakerID(speakerid.NewClient(provider), flags.participants, cfg.Pipeline.SpeakerID.ToDiarize()))
	}

	return opts, nil
}

// resolveParticipants merges the --participants and --participants-file
// flags, preferring the file (it carries hints) when both are given for
// the same name.
func resolveParticipants(inline, filePath string) ([]diarize.Participant, error) {
	var out []diarize.Participant
	seen := map[string]bool{}
	if filePath != "" {
		fromFile, err := speakerid.ParseParticipantsFile(filePath)
		if err != nil {
			return nil, err
		}
		out = append(out, fromFile...)
		for _, p := range fromFile {
			seen[p.Name] = true
		}
	}
	if inline != "" {
		for _, p := range speakerid.ParseParticipantsString(inline) {
			if !seen[p.Name] {
				out = append(out, p)
			}
		}
	}
	return out, nil
}

// loadConfig loads path if non-empty, otherwise returns the pipeline's
// all-defaults configuration.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return &config.Config{}, nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config file %q not found: %w", path, err)
		}
		return nil, err
	}
	return cfg, nil
}
