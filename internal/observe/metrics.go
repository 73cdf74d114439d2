// Package observe provides application-wide observability primitives for
// alteval: OpenTelemetry metrics, distributed tracing, structured logging,
// and HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still be
// scraped via the standard /metrics endpoint. A package-level default
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

// meterName is the instrumentation scope name used for all alteval metrics.
const meterName = "github.com/MrWong99/alteval"

// Evaluation stages reported on [Metrics.StageDuration].
const (
	StageTokenize = "tokenize"
	StageAlign    = "align"
	StageCount    = "count"
)

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use; the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms ---

	// EvaluationDuration tracks the wall time of one corpus evaluation.
	EvaluationDuration metric.Float64Histogram

	// StageDuration tracks the time spent per evaluation stage. Use with
	// attribute:
	//   attribute.String("stage", ...)
	StageDuration metric.Float64Histogram

	// ToolExecutionDuration tracks MCP tool execution latency.
	ToolExecutionDuration metric.Float64Histogram

	// --- Counters ---

	// Evaluations counts finished evaluations. Use with attribute:
	//   attribute.String("status", ...)
	Evaluations metric.Int64Counter

	// PairsEvaluated counts reference/hypothesis pairs. Use with attribute:
	//   attribute.String("language", ...)
	PairsEvaluated metric.Int64Counter

	// TokensProcessed counts tokens produced by the tokenizer. Use with
	// attribute:
	//   attribute.String("side", "reference"|"hypothesis")
	TokensProcessed metric.Int64Counter

	// ToolCalls counts tool invocations. Use with attributes:
	//   attribute.String("tool", ...), attribute.String("status", ...)
	ToolCalls metric.Int64Counter

	// --- Gauges ---

	// ActiveEvaluations tracks the number of evaluations in flight.
	ActiveEvaluations metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...),
	//   attribute.String("status", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds). Single
// pairs finish in milliseconds; whole corpora can take tens of seconds.
var latencyBuckets = []float64{
	0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.EvaluationDuration, err = m.Float64Histogram("alteval.evaluation.duration",
		metric.WithDescription("Latency of a corpus evaluation."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.StageDuration, err = m.Float64Histogram("alteval.evaluation.stage.duration",
		metric.WithDescription("Latency of an evaluation stage."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ToolExecutionDuration, err = m.Float64Histogram("alteval.tool_execution.duration",
		metric.WithDescription("Latency of MCP tool execution."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.Evaluations, err = m.Int64Counter("alteval.evaluations",
		metric.WithDescription("Total evaluations by status."),
	); err != nil {
		return nil, err
	}
	if met.PairsEvaluated, err = m.Int64Counter("alteval.pairs",
		metric.WithDescription("Total reference/hypothesis pairs by language."),
	); err != nil {
		return nil, err
	}
	if met.TokensProcessed, err = m.Int64Counter("alteval.tokens",
		metric.WithDescription("Total tokens produced by side."),
	); err != nil {
		return nil, err
	}
	if met.ToolCalls, err = m.Int64Counter("alteval.tool.calls",
		metric.WithDescription("Total tool invocations by tool name and status."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveEvaluations, err = m.Int64UpDownCounter("alteval.active_evaluations",
		metric.WithDescription("Number of evaluations in flight."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("alteval.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
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

// RecordEvaluation records a finished evaluation with its status and wall
// time in seconds.
func (m *Metrics) RecordEvaluation(ctx context.Context, status string, seconds float64) {
	m.Evaluations.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
	m.EvaluationDuration.Record(ctx, seconds, metric.WithAttributes(attribute.String("status", status)))
}

// RecordStage records the duration of one evaluation stage.
func (m *Metrics) RecordStage(ctx context.Context, stage string, seconds float64) {
	m.StageDuration.Record(ctx, seconds, metric.WithAttributes(attribute.String("stage", stage)))
}

// RecordPairs adds n evaluated pairs in language.
func (m *Metrics) RecordPairs(ctx context.Context, language string, n int64) {
	m.PairsEvaluated.Add(ctx, n, metric.WithAttributes(attribute.String("language", language)))
}

// RecordTokens adds n tokens produced for side ("reference" or "hypothesis").
func (m *Metrics) RecordTokens(ctx context.Context, side string, n int64) {
	m.TokensProcessed.Add(ctx, n, metric.WithAttributes(attribute.String("side", side)))
}

// RecordToolCall is a convenience method that records a tool call counter
// increment with the standard attribute set.
func (m *Metrics) RecordToolCall(ctx context.Context, tool, status string) {
	m.ToolCalls.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("tool", tool),
			attribute.String("status", status),
		),
	)
}
