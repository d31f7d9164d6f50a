// Package observability provides prometheus-backed metrics for the
// gateway: request counts and latency, engine call accounting, and tool
// source failures. The exporter registers with the default prometheus
// registry; the HTTP layer serves it at /metrics.
package observability

import (
	"fmt"

	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// InitMetrics wires a meter provider over the prometheus exporter and
// creates the gateway instruments. With enabled=false it returns a
// recorder whose methods are all no-ops.
func InitMetrics(enabled bool) (*PrometheusMetrics, error) {
	if !enabled {
		return &PrometheusMetrics{}, nil
	}

	promExporter, err := prometheus.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(promExporter),
	)

	meter := meterProvider.Meter("braingate")

	requestDuration, err := meter.Float64Histogram(
		"braingate_request_duration_seconds",
		metric.WithDescription("Gateway request duration in seconds"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create request duration histogram: %w", err)
	}

	requestsTotal, err := meter.Int64Counter(
		"braingate_requests_total",
		metric.WithDescription("Total gateway requests"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create requests counter: %w", err)
	}

	requestErrors, err := meter.Int64Counter(
		"braingate_request_errors_total",
		metric.WithDescription("Total failed gateway requests"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create request errors counter: %w", err)
	}

	engineDuration, err := meter.Float64Histogram(
		"braingate_engine_call_duration_seconds",
		metric.WithDescription("Engine call duration in seconds"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine duration histogram: %w", err)
	}

	engineInputTokens, err := meter.Int64Counter(
		"braingate_engine_tokens_input_total",
		metric.WithDescription("Total input tokens sent to the engine"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine input tokens counter: %w", err)
	}

	engineOutputTokens, err := meter.Int64Counter(
		"braingate_engine_tokens_output_total",
		metric.WithDescription("Total output tokens from the engine"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine output tokens counter: %w", err)
	}

	engineErrors, err := meter.Int64Counter(
		"braingate_engine_errors_total",
		metric.WithDescription("Total engine invocation errors"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine errors counter: %w", err)
	}

	sourceFailures, err := meter.Int64Counter(
		"braingate_tool_source_failures_total",
		metric.WithDescription("Total tool source connection failures"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create source failures counter: %w", err)
	}

	return NewPrometheusMetrics(
		requestDuration,
		requestsTotal,
		requestErrors,
		engineDuration,
		engineInputTokens,
		engineOutputTokens,
		engineErrors,
		sourceFailures,
	), nil
}
