package observability

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// MetricsCollector manages response-engine metrics.
type MetricsCollector struct {
	meter metric.Meter

	// LLM metrics
	llmRequests     metric.Int64Counter
	llmTokensInput  metric.Int64Counter
	llmTokensOutput metric.Int64Counter
	llmLatency      metric.Float64Histogram
	llmCost         metric.Float64Counter

	// Transform metrics
	transformRequests metric.Int64Counter
	transformDuration metric.Float64Histogram

	// Stream metrics
	streamsActive metric.Int64UpDownCounter

	// Server for Prometheus scraping
	prometheusServer *http.Server
}

// MetricsConfig configures the metrics collector
type MetricsConfig struct {
	Enabled        bool `yaml:"enabled"`
	PrometheusPort int  `yaml:"prometheus_port"`
}

// NewMetricsCollector creates a new metrics collector
func NewMetricsCollector(config MetricsConfig) (*MetricsCollector, error) {
	if !config.Enabled {
		return &MetricsCollector{}, nil
	}

	exporter, err := prometheus.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
	)
	otel.SetMeterProvider(provider)

	meter := provider.Meter("ari")

	llmRequests, err := meter.Int64Counter(
		"ari.llm.requests.total",
		metric.WithDescription("Total number of LLM requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create llm_requests counter: %w", err)
	}

	llmTokensInput, err := meter.Int64Counter(
		"ari.llm.tokens.input",
		metric.WithDescription("Total input tokens sent to LLM"),
		metric.WithUnit("{token}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create llm_tokens_input counter: %w", err)
	}

	llmTokensOutput, err := meter.Int64Counter(
		"ari.llm.tokens.output",
		metric.WithDescription("Total output tokens from LLM"),
		metric.WithUnit("{token}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create llm_tokens_output counter: %w", err)
	}

	llmLatency, err := meter.Float64Histogram(
		"ari.llm.latency",
		metric.WithDescription("LLM request latency in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create llm_latency histogram: %w", err)
	}

	llmCost, err := meter.Float64Counter(
		"ari.cost.total",
		metric.WithDescription("Total cost of LLM requests"),
		metric.WithUnit("USD"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create llm_cost counter: %w", err)
	}

	transformRequests, err := meter.Int64Counter(
		"ari.transform.requests.total",
		metric.WithDescription("Total number of content transforms"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create transform_requests counter: %w", err)
	}

	transformDuration, err := meter.Float64Histogram(
		"ari.transform.duration",
		metric.WithDescription("Transform duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create transform_duration histogram: %w", err)
	}

	streamsActive, err := meter.Int64UpDownCounter(
		"ari.streams.active",
		metric.WithDescription("Number of active event streams"),
		metric.WithUnit("{stream}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create streams_active gauge: %w", err)
	}

	collector := &MetricsCollector{
		meter:             meter,
		llmRequests:       llmRequests,
		llmTokensInput:    llmTokensInput,
		llmTokensOutput:   llmTokensOutput,
		llmLatency:        llmLatency,
		llmCost:           llmCost,
		transformRequests: transformRequests,
		transformDuration: transformDuration,
		streamsActive:     streamsActive,
	}

	if config.PrometheusPort > 0 {
		if err := collector.StartPrometheusServer(config.PrometheusPort); err != nil {
			return nil, fmt.Errorf("failed to start prometheus server: %w", err)
		}
	}

	return collector, nil
}

// StartPrometheusServer starts the Prometheus metrics server
func (m *MetricsCollector) StartPrometheusServer(port int) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promclient.Handler())

	m.prometheusServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}

	go func() {
		log.Printf("Prometheus metrics server listening on :%d", port)
		if err := m.prometheusServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("Prometheus server error: %v", err)
		}
	}()

	return nil
}

// Shutdown gracefully shuts down the metrics collector
func (m *MetricsCollector) Shutdown(ctx context.Context) error {
	if m != nil && m.prometheusServer != nil {
		return m.prometheusServer.Shutdown(ctx)
	}
	return nil
}

// RecordLLMRequest records an LLM request
func (m *MetricsCollector) RecordLLMRequest(ctx context.Context, model string, status string, latency time.Duration, inputTokens, outputTokens int, cost float64) {
	if m == nil || m.llmRequests == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("model", model),
		attribute.String("status", status),
	}

	m.llmRequests.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.llmTokensInput.Add(ctx, int64(inputTokens), metric.WithAttributes(attribute.String("model", model)))
	m.llmTokensOutput.Add(ctx, int64(outputTokens), metric.WithAttributes(attribute.String("model", model)))
	m.llmLatency.Record(ctx, latency.Seconds(), metric.WithAttributes(attrs...))
	if cost > 0 {
		m.llmCost.Add(ctx, cost, metric.WithAttributes(attribute.String("model", model)))
	}
}

// RecordTransform records a content transform
func (m *MetricsCollector) RecordTransform(ctx context.Context, kind string, status string, duration time.Duration) {
	if m == nil || m.transformRequests == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("kind", kind),
		attribute.String("status", status),
	}

	m.transformRequests.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.transformDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attribute.String("kind", kind)))
}

// IncrementActiveStreams increments the active stream counter
func (m *MetricsCollector) IncrementActiveStreams(ctx context.Context) {
	if m == nil || m.streamsActive == nil {
		return
	}
	m.streamsActive.Add(ctx, 1)
}

// DecrementActiveStreams decrements the active stream counter
func (m *MetricsCollector) DecrementActiveStreams(ctx context.Context) {
	if m == nil || m.streamsActive == nil {
		return
	}
	m.streamsActive.Add(ctx, -1)
}

// EstimateCost estimates the cost of an LLM request (simplified)
// In production, use actual pricing from the provider
func EstimateCost(model string, inputTokens, outputTokens int) float64 {
	// Simplified pricing (per 1M tokens)
	prices := map[string]struct {
		input  float64
		output float64
	}{
		"gpt-4": {
			input:  30.0,
			output: 60.0,
		},
		"gpt-3.5-turbo": {
			input:  0.5,
			output: 1.5,
		},
		"claude-3-opus": {
			input:  15.0,
			output: 75.0,
		},
		"claude-3-sonnet": {
			input:  3.0,
			output: 15.0,
		},
	}

	pricing, ok := prices[model]
	if !ok {
		pricing = struct {
			input  float64
			output float64
		}{input: 1.0, output: 2.0}
	}

	inputCost := (float64(inputTokens) / 1_000_000) * pricing.input
	outputCost := (float64(outputTokens) / 1_000_000) * pricing.output

	return inputCost + outputCost
}
