// Package observe provides application-wide observability primitives for
// diatribe: OpenTelemetry metrics, distributed tracing, and per-call LM
// request/response logging. The /metrics HTTP handler itself is served by
// cmd/diatribe, not by this package.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still
// be scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all diatribe metrics.
const meterName = "github.com/kieronlawson/diatribe"

// Metrics holds all OpenTelemetry metric instruments the pipeline records
// against. All fields are safe for concurrent use — the underlying OTel
// types handle their own synchronisation.
type Metrics struct {
	// --- Latency histograms per pipeline stage ---

	// StageDuration tracks how long each stage the pipeline records
	// (normalize, heuristics, stage1, reconcile, speakerid) took on one run.
	// Use with the attribute attached by [Attr]("stage", ...).
	StageDuration metric.Float64Histogram

	// LLMCallDuration tracks the latency of a single LM completion call,
	// whether it is a stage 1 window-patch request or a speaker-ID request.
	LLMCallDuration metric.Float64Histogram

	// --- Counters ---

	// LLMRequests counts LM completion calls. Use with attributes:
	//   attribute.String("kind", "patch"|"speaker_id"), attribute.String("status", "ok"|"error")
	LLMRequests metric.Int64Counter

	// TokensRelabeled counts individual token relabels applied by the
	// heuristics engine or the reconciler. Use with attribute:
	//   attribute.String("source", "heuristics"|"reconcile")
	TokensRelabeled metric.Int64Counter

	// WindowsProcessed counts stage 1 problem windows submitted for LM
	// review, whether or not they produced an accepted patch.
	WindowsProcessed metric.Int64Counter

	// ValidationFailures counts stage 1 windows for which no attempt
	// produced a patch the validator accepted.
	// Use with attribute: attribute.String("reason", ...).
	ValidationFailures metric.Int64Counter

	// --- Gauges ---

	// ProblemZonesDetected accumulates how many problem zones stage 0
	// flagged, summed over every transcript normalized in this process.
	ProblemZonesDetected metric.Int64UpDownCounter
}

// stageLatencyBuckets defines histogram bucket boundaries (in seconds) for
// whole-stage durations, which run from sub-millisecond (micro-turn
// collapse on a short transcript) to tens of seconds (stage 1 across many
// windows).
var stageLatencyBuckets = []float64{0.001, 0.01, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60}

// llmLatencyBuckets defines histogram bucket boundaries (in seconds) sized
// for a single LM round trip.
var llmLatencyBuckets = []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 40}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.StageDuration, err = m.Float64Histogram("diatribe.stage.duration",
		metric.WithDescription("Latency of one pipeline stage's execution."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(stageLatencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.LLMCallDuration, err = m.Float64Histogram("diatribe.llm.call.duration",
		metric.WithDescription("Latency of a single LM completion call."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(llmLatencyBuckets...),
	); err != nil {
		return nil, err
	}

	if met.LLMRequests, err = m.Int64Counter("diatribe.llm.requests",
		metric.WithDescription("Total LM completion calls by kind and status."),
	); err != nil {
		return nil, err
	}
	if met.TokensRelabeled, err = m.Int64Counter("diatribe.tokens.relabeled",
		metric.WithDescription("Total tokens relabeled, by the stage that relabeled them."),
	); err != nil {
		return nil, err
	}
	if met.WindowsProcessed, err = m.Int64Counter("diatribe.stage1.windows_processed",
		metric.WithDescription("Total stage 1 problem windows submitted for LM review."),
	); err != nil {
		return nil, err
	}
	if met.ValidationFailures, err = m.Int64Counter("diatribe.stage1.validation_failures",
		metric.WithDescription("Total stage 1 windows with no accepted patch, by reason."),
	); err != nil {
		return nil, err
	}

	if met.ProblemZonesDetected, err = m.Int64UpDownCounter("diatribe.normalize.problem_zones",
		metric.WithDescription("Problem zones detected, summed over every normalized transcript."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordStageDuration records how long a pipeline stage took.
func (m *Metrics) RecordStageDuration(ctx context.Context, stage string, seconds float64) {
	m.StageDuration.Record(ctx, seconds, metric.WithAttributes(Attr("stage", stage)))
}

// RecordLLMCall records one LM completion call's latency and outcome.
func (m *Metrics) RecordLLMCall(ctx context.Context, kind string, seconds float64, status string) {
	m.LLMCallDuration.Record(ctx, seconds, metric.WithAttributes(Attr("kind", kind)))
	m.LLMRequests.Add(ctx, 1, metric.WithAttributes(Attr("kind", kind), Attr("status", status)))
}

// RecordRelabels increments the relabel counter for the given source stage.
func (m *Metrics) RecordRelabels(ctx context.Context, source string, count int) {
	if count <= 0 {
		return
	}
	m.TokensRelabeled.Add(ctx, int64(count), metric.WithAttributes(Attr("source", source)))
}

// RecordValidationFailure increments the validation-failure counter for the
// given rejection reason.
func (m *Metrics) RecordValidationFailure(ctx context.Context, reason string) {
	m.ValidationFailures.Add(ctx, 1, metric.WithAttributes(Attr("reason", reason)))
}
