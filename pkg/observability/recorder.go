package observability

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	globalMetrics Metrics
	metricsMu     sync.RWMutex
)

// Metrics is the recording surface used across the gateway. All methods
// tolerate a nil receiver so callers never need to guard.
type Metrics interface {
	RecordRequest(ctx context.Context, route string, duration time.Duration, err error)
	RecordEngineCall(ctx context.Context, model string, duration time.Duration, inputTokens, outputTokens int, err error)
	RecordSourceFailure(ctx context.Context, source string)
}

// PrometheusMetrics records via otel instruments. The zero value is a
// valid no-op recorder.
type PrometheusMetrics struct {
	requestDuration metric.Float64Histogram
	requestsTotal   metric.Int64Counter
	requestErrors   metric.Int64Counter

	engineDuration     metric.Float64Histogram
	engineInputTokens  metric.Int64Counter
	engineOutputTokens metric.Int64Counter
	engineErrors       metric.Int64Counter

	sourceFailures metric.Int64Counter
}

func NewPrometheusMetrics(
	requestDuration metric.Float64Histogram,
	requestsTotal metric.Int64Counter,
	requestErrors metric.Int64Counter,
	engineDuration metric.Float64Histogram,
	engineInputTokens metric.Int64Counter,
	engineOutputTokens metric.Int64Counter,
	engineErrors metric.Int64Counter,
	sourceFailures metric.Int64Counter,
) *PrometheusMetrics {
	return &PrometheusMetrics{
		requestDuration:    requestDuration,
		requestsTotal:      requestsTotal,
		requestErrors:      requestErrors,
		engineDuration:     engineDuration,
		engineInputTokens:  engineInputTokens,
		engineOutputTokens: engineOutputTokens,
		engineErrors:       engineErrors,
		sourceFailures:     sourceFailures,
	}
}

func (m *PrometheusMetrics) RecordRequest(ctx context.Context, route string, duration time.Duration, err error) {
	if m == nil || m.requestDuration == nil || m.requestsTotal == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("route", route),
	}

	m.requestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
	m.requestsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))

	if err != nil && m.requestErrors != nil {
		m.requestErrors.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

func (m *PrometheusMetrics) RecordEngineCall(ctx context.Context, model string, duration time.Duration, inputTokens, outputTokens int, err error) {
	if m == nil || m.engineDuration == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("model", model),
	}

	m.engineDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))

	if inputTokens > 0 && m.engineInputTokens != nil {
		m.engineInputTokens.Add(ctx, int64(inputTokens), metric.WithAttributes(attrs...))
	}
	if outputTokens > 0 && m.engineOutputTokens != nil {
		m.engineOutputTokens.Add(ctx, int64(outputTokens), metric.WithAttributes(attrs...))
	}
	if err != nil && m.engineErrors != nil {
		m.engineErrors.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

func (m *PrometheusMetrics) RecordSourceFailure(ctx context.Context, source string) {
	if m == nil || m.sourceFailures == nil {
		return
	}

	m.sourceFailures.Add(ctx, 1, metric.WithAttributes(
		attribute.String("source", source),
	))
}

// SetGlobalMetrics installs the process-wide recorder.
func SetGlobalMetrics(m Metrics) {
	metricsMu.Lock()
	defer metricsMu.Unlock()
	globalMetrics = m
}

// GetGlobalMetrics returns the process-wide recorder, which may be nil.
func GetGlobalMetrics() Metrics {
	metricsMu.RLock()
	defer metricsMu.RUnlock()
	return globalMetrics
}
