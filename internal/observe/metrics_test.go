package observe

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// newTestMetrics returns a Metrics instance backed by a ManualReader for
// programmatic metric inspection.
func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

// collect gathers all metric data from the reader.
func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return rm
}

// findMetric searches for a metric by name across all scope metrics.
func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func TestNewMetrics_CreatesWithoutError(t *testing.T) {
	m, _ := newTestMetrics(t)
	if m == nil {
		t.Fatal("NewMetrics returned nil")
	}
}

func TestStageDurationHistogram(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordStageDuration(ctx, "normalize", 0.123)
	m.RecordStageDuration(ctx, "normalize", 0.456)
	m.RecordStageDuration(ctx, "stage1", 4.2)

	rm := collect(t, reader)
	met := findMetric(rm, "diatribe.stage.duration")
	if met == nil {
		t.Fatal("metric not found")
	}
	hist, ok := met.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatal("metric is not a histogram")
	}
	var normalizeCount uint64
	for _, dp := range hist.DataPoints {
		for _, kv := range dp.Attributes.ToSlice() {
			if string(kv.Key) == "stage" && kv.Value.AsString() == "normalize" {
				normalizeCount = dp.Count
			}
		}
	}
	if normalizeCount != 2 {
		t.Errorf("normalize sample count = %d, want 2", normalizeCount)
	}
}

func TestLLMCallRecording(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordLLMCall(ctx, "patch", 1.5, "ok")
	m.RecordLLMCall(ctx, "patch", 2.0, "ok")
	m.RecordLLMCall(ctx, "patch", 0.5, "error")

	rm := collect(t, reader)

	durMet := findMetric(rm, "diatribe.llm.call.duration")
	if durMet == nil {
		t.Fatal("duration metric not found")
	}
	hist, ok := durMet.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatal("duration metric is not a histogram")
	}
	if len(hist.DataPoints) == 0 || hist.DataPoints[0].Count != 3 {
		t.Errorf("llm call duration count = %+v, want 3 samples", hist.DataPoints)
	}

	reqMet := findMetric(rm, "diatribe.llm.requests")
	if reqMet == nil {
		t.Fatal("requests metric not found")
	}
	sum, ok := reqMet.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatal("requests metric is not a sum")
	}
	var okCount int64
	for _, dp := range sum.DataPoints {
		for _, kv := range dp.Attributes.ToSlice() {
			if string(kv.Key) == "status" && kv.Value.AsString() == "ok" {
				okCount += dp.Value
			}
		}
	}
	if okCount != 2 {
		t.Errorf("ok request count = %d, want 2", okCount)
	}
}

func TestRelabelsCounter(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordRelabels(ctx, "heuristics", 3)
	m.RecordRelabels(ctx, "reconcile", 5)
	m.RecordRelabels(ctx, "heuristics", 0) // no-op, should not record

	rm := collect(t, reader)
	met := findMetric(rm, "diatribe.tokens.relabeled")
	if met == nil {
		t.Fatal("metric not found")
	}
	sum, ok := met.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatal("metric is not a sum")
	}

	totals := map[string]int64{}
	for _, dp := range sum.DataPoints {
		for _, kv := range dp.Attributes.ToSlice() {
			if string(kv.Key) == "source" {
				totals[kv.Value.AsString()] += dp.Value
			}
		}
	}
	if totals["heuristics"] != 3 {
		t.Errorf("heuristics relabels = %d, want 3", totals["heuristics"])
	}
	if totals["reconcile"] != 5 {
		t.Errorf("reconcile relabels = %d, want 5", totals["reconcile"])
	}
}

func TestValidationFailuresCounter(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordValidationFailure(ctx, "edit_budget_exceeded")
	m.RecordValidationFailure(ctx, "edit_budget_exceeded")
	m.RecordValidationFailure(ctx, "self_reported_violation")

	rm := collect(t, reader)
	met := findMetric(rm, "diatribe.stage1.validation_failures")
	if met == nil {
		t.Fatal("metric not found")
	}
	sum, ok := met.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatal("metric is not a sum")
	}
	var budgetCount int64
	for _, dp := range sum.DataPoints {
		for _, kv := range dp.Attributes.ToSlice() {
			if string(kv.Key) == "reason" && kv.Value.AsString() == "edit_budget_exceeded" {
				budgetCount += dp.Value
			}
		}
	}
	if budgetCount != 2 {
		t.Errorf("edit_budget_exceeded count = %d, want 2", budgetCount)
	}
}

func TestProblemZonesGauge(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.ProblemZonesDetected.Add(ctx, 4)

	rm := collect(t, reader)
	met := findMetric(rm, "diatribe.normalize.problem_zones")
	if met == nil {
		t.Fatal("metric not found")
	}
	sum, ok := met.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatal("metric is not a sum")
	}
	if len(sum.DataPoints) == 0 || sum.DataPoints[0].Value != 4 {
		t.Errorf("gauge value = %+v, want 4", sum.DataPoints)
	}
}

func TestAttrHelper(t *testing.T) {
	kv := Attr("stage", "ingest")
	if kv.Value != (attribute.StringValue("ingest")).Value {
		t.Errorf("Attr produced %v", kv)
	}
}

func TestDefaultMetrics_ReturnsSameInstance(t *testing.T) {
	// DefaultMetrics uses the global OTel provider so we just check
	// that repeated calls return the same pointer.
	a := DefaultMetrics()
	b := DefaultMetrics()
	if a != b {
		t.Error("DefaultMetrics returned different pointers")
	}
}
