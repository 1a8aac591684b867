// Package observability wires the component metrics onto one Prometheus registry.
package observability

import (
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tphakala/lyricgraph/internal/observability/metrics"
)

// Metrics holds all the metric collectors for the application.
type Metrics struct {
	registry   *prometheus.Registry
	Retrieval  *metrics.RetrievalMetrics
	LLM        *metrics.LLMMetrics
	Ingestion  *metrics.IngestionMetrics
	Validation *metrics.ValidationMetrics
	Errors     *metrics.ErrorMetrics
}

// NewMetrics creates a new instance of Metrics, initializing all metric collectors.
// It returns an error if any metric collector fails to initialize.
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()

	if err := registry.Register(collectors.NewGoCollector()); err != nil {
		return nil, fmt.Errorf("failed to register Go collector: %w", err)
	}

	retrievalMetrics, err := metrics.NewRetrievalMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create Retrieval metrics: %w", err)
	}

	llmMetrics, err := metrics.NewLLMMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM metrics: %w", err)
	}

	ingestionMetrics, err := metrics.NewIngestionMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create Ingestion metrics: %w", err)
	}

	validationMetrics, err := metrics.NewValidationMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create Validation metrics: %w", err)
	}

	errorMetrics, err := metrics.NewErrorMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create Error metrics: %w", err)
	}

	return &Metrics{
		registry:   registry,
		Retrieval:  retrievalMetrics,
		LLM:        llmMetrics,
		Ingestion:  ingestionMetrics,
		Validation: validationMetrics,
		Errors:     errorMetrics,
	}, nil
}

// Registry returns the underlying Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the HTTP handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		ErrorLog:      log.New(os.Stderr, "metrics handler: ", log.LstdFlags),
		ErrorHandling: promhttp.HTTPErrorOnError,
	})
}
