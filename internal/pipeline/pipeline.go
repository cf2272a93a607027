// Package pipeline orchestrates the full correction run over an already
// ingested transcript: problem-zone normalization, deterministic heuristics,
// optional windowed LM editing and reconciliation, optional speaker
// identification, and rendering.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/kieronlawson/diatribe/internal/diarize"
	"github.com/kieronlawson/diatribe/internal/heuristics"
	"github.com/kieronlawson/diatribe/internal/llmedit"
	"github.com/kieronlawson/diatribe/internal/normalize"
	"github.com/kieronlawson/diatribe/internal/observe"
	"github.com/kieronlawson/diatribe/internal/reconcile"
	"github.com/kieronlawson/diatribe/internal/render"
	"github.com/kieronlawson/diatribe/internal/speakerid"
)

// Option is a functional option for configuring a [Pipeline].
type Option func(*Pipeline)

// WithWindowConfig overrides the default windowing parameters.
func WithWindowConfig(cfg diarize.WindowConfig) Option {
	return func(p *Pipeline) { p.windowCfg = cfg }
}

// WithZoneConfig overrides the default problem-zone detection thresholds.
func WithZoneConfig(cfg diarize.ProblemZoneConfig) Option {
	return func(p *Pipeline) { p.zoneCfg = cfg }
}

// WithHeuristicsConfig overrides the default deterministic-heuristics
// thresholds.
func WithHeuristicsConfig(cfg heuristics.Config) Option {
	return func(p *Pipeline) { p.heuristicsCfg = cfg }
}

// WithStage1Config overrides the default windowed LM-editing parameters.
func WithStage1Config(cfg llmedit.Stage1Config) Option {
	return func(p *Pipeline) { p.stage1Cfg = cfg }
}

// WithReconcileConfig overrides the default reconciliation thresholds.
func WithReconcileConfig(cfg reconcile.Config) Option {
	return func(p *Pipeline) { p.reconcileCfg = cfg }
}

// WithLLMEditClient attaches the LM client used for stage 1 windowed
// editing. When nil (the default), stage 1 and stage 2 are skipped
// entirely and only the deterministic heuristics run.
func WithLLMEditClient(c *llmedit.Client) Option {
	return func(p *Pipeline) { p.llmEditClient = c }
}

// WithHeuristicsOnly forces the pipeline to skip stage 1 and stage 2, even
// when a stage 1 client is configured and the heuristics flagged tokens for
// LM review. Speaker identification (when configured) and rendering still
// run.
func WithHeuristicsOnly(only bool) Option {
	return func(p *Pipeline) { p.heuristicsOnly = only }
}

// WithSpeakerID attaches a speaker-identification client, participant
// roster, and its thresholds. When the client is nil (the default), the
// speaker-ID stage is skipped.
func WithSpeakerID(client *speakerid.Client, participants []diarize.Participant, cfg diarize.SpeakerIdConfig) Option {
	return func(p *Pipeline) {
		p.speakerIDClient = client
		p.participants = participants
		p.speakerIDCfg = cfg
	}
}

// WithMetrics attaches the [observe.Metrics] instance Run records stage
// durations and counters against. When nil (the default), [observe.DefaultMetrics]
// is used.
func WithMetrics(m *observe.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// Pipeline runs the full correction pipeline end to end. Stages beyond
// normalization and the deterministic heuristics are optional and
// are applied in order:
//
//  1. normalize — overlap marking, problem-zone detection, windowing.
//  2. heuristics — micro-turn collapse, backchannel re-attribution,
//     floor-holding.
//  3. llmedit (stage 1) — windowed LM review of problem windows, skipped
//     when no LM client is configured, heuristics-only mode is set, or the
//     heuristics stage reported no remaining uncertainty.
//  4. reconcile (stage 2) — global reconciliation of stage 1's patches,
//     skipped when stage 1 produced no patches.
//  5. speakerid — optional LM-assisted mapping of numeric speakers to
//     participant names.
//  6. render — machine-readable JSON and optional human-readable text.
//
// Pipeline is safe for concurrent use once constructed; Run mutates the
// Transcript passed to it.
type Pipeline struct {
	windowCfg     diarize.WindowConfig
	zoneCfg       diarize.ProblemZoneConfig
	heuristicsCfg heuristics.Config
	stage1Cfg     llmedit.Stage1Config
	reconcileCfg  reconcile.Config

	llmEditClient  *llmedit.Client
	heuristicsOnly bool

	speakerIDClient *speakerid.Client
	participants    []diarize.Participant
	speakerIDCfg    diarize.SpeakerIdConfig

	metrics *observe.Metrics
}

// New constructs a Pipeline with the supplied options. By default only
// normalization and the deterministic heuristics run; use [WithLLMEditClient]
// and [WithSpeakerID] to activate the remaining stages.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		windowCfg:     diarize.DefaultWindowConfig(),
		zoneCfg:       diarize.DefaultProblemZoneConfig(),
		heuristicsCfg: heuristics.DefaultConfig(),
		stage1Cfg:     llmedit.DefaultStage1Config(),
		reconcileCfg:  reconcile.DefaultConfig(),
		speakerIDCfg:  diarize.DefaultSpeakerIdConfig(),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Result is everything a Run produced: the rendered machine transcript, the
// optional human-readable rendering, and the summary metadata.
type Result struct {
	Machine  render.MachineTranscript
	Human    string
	Metadata render.Metadata

	NormalizeResult  normalize.Result
	HeuristicsResult heuristics.Result
	Stage1Result     llmedit.Stage1Result
	ReconcileResult  reconcile.Result
	SpeakerIDResult  diarize.SpeakerIdResult
}

// Run executes every configured stage over t and returns the rendered
// output. t is mutated in place; callers that need the original speaker
// attributions should snapshot them before calling Run (Run does this
// internally for the render metadata).
func (p *Pipeline) Run(ctx context.Context, t *diarize.Transcript) (Result, error) {
	ctx, span := observe.StartSpan(ctx, "pipeline.Run")
	defer span.End()

	metrics := p.metrics
	if metrics == nil {
		metrics = observe.DefaultMetrics()
	}

	original := make([]int, len(t.Tokens))
	for i, tok := range t.Tokens {
		original[i] = tok.Speaker
	}

	normStart := time.Now()
	normResult := normalize.Normalize(t, p.windowCfg, p.zoneCfg)
	metrics.RecordStageDuration(ctx, "normalize", time.Since(normStart).Seconds())
	metrics.ProblemZonesDetected.Add(ctx, int64(len(normResult.Zones)))

	heuristicsStart := time.Now()
	heuristicsResult := heuristics.Apply(t, p.heuristicsCfg)
	metrics.RecordStageDuration(ctx, "heuristics", time.Since(heuristicsStart).Seconds())
	metrics.RecordRelabels(ctx, "heuristics", len(heuristicsResult.ChangedIndices))

	var stage1Result llmedit.Stage1Result
	var reconcileResult reconcile.Result

	runStage1 := p.llmEditClient != nil && !p.heuristicsOnly && heuristicsResult.NeedsLLM
	if runStage1 {
		stage1Start := time.Now()
		var err error
		stage1Result, err = llmedit.ExecuteStage1(ctx, p.llmEditClient, t, normResult.Windows, p.stage1Cfg)
		metrics.RecordStageDuration(ctx, "stage1", time.Since(stage1Start).Seconds())
		if err != nil {
			return Result{}, fmt.Errorf("pipeline: stage 1: %w", err)
		}
		metrics.WindowsProcessed.Add(ctx, int64(stage1Result.WindowsProcessed))
		for i := 0; i < stage1Result.ValidationFailures; i++ {
			metrics.RecordValidationFailure(ctx, "exhausted_retries")
		}
		if len(stage1Result.Patches) > 0 {
			reconcileStart := time.Now()
			reconcileResult = reconcile.Execute(t, normResult.Windows, stage1Result.Patches, p.reconcileCfg)
			metrics.RecordStageDuration(ctx, "reconcile", time.Since(reconcileStart).Seconds())
			metrics.RecordRelabels(ctx, "reconcile", reconcileResult.TokensRelabeled)
		}
	}

	var speakerIDResult diarize.SpeakerIdResult
	if p.speakerIDClient != nil {
		speakerIDStart := time.Now()
		var err error
		speakerIDResult, err = speakerid.Execute(ctx, p.speakerIDClient, t, p.participants, p.speakerIDCfg)
		metrics.RecordStageDuration(ctx, "speakerid", time.Since(speakerIDStart).Seconds())
		if err != nil {
			return Result{}, fmt.Errorf("pipeline: speaker id: %w", err)
		}
	}

	tokensRelabeled := 0
	for i, tok := range t.Tokens {
		if i < len(original) && tok.Speaker != original[i] {
			tokensRelabeled++
		}
	}

	metadata := render.Metadata{
		TotalTokens:      len(t.Tokens),
		TotalTurns:       len(t.Turns),
		TokensRelabeled:  tokensRelabeled,
		DurationMs:       t.DurationMs(),
		WindowsProcessed: stage1Result.WindowsProcessed,
	}

	machine := render.FromTranscript(t, original, metadata)
	if len(speakerIDResult.DisplayNames) > 0 {
		machine.SpeakerNames = speakerIDResult.DisplayNames
	}
	if len(speakerIDResult.Identifications) > 0 {
		machine.SpeakerIdentifications = speakerIDResult.Identifications
	}
	usage := combineUsage(stage1Result, speakerIDResult)
	if usage != (diarize.Usage{}) {
		machine.LLMUsage = &usage
	}

	human := render.FormatHuman(t, speakerIDResult.DisplayNames)

	return Result{
		Machine:           machine,
		Human:             human,
		Metadata:          metadata,
		NormalizeResult:   normResult,
		HeuristicsResult:  heuristicsResult,
		Stage1Result:      stage1Result,
		ReconcileResult:   reconcileResult,
		SpeakerIDResult:   speakerIDResult,
	}, nil
}

// combineUsage totals token accounting across stage 1 and the speaker-ID
// stage.
func combineUsage(stage1 llmedit.Stage1Result, speakerID diarize.SpeakerIdResult) diarize.Usage {
	var total diarize.Usage
	total.Add(stage1.Usage)
	total.Add(speakerID.Usage)
	return total
}
