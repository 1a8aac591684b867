// Package metrics provides Prometheus metrics for lyricgraph components.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Recorder defines a minimal interface for recording metrics.
// Components depend on it instead of a concrete metrics struct so that tests
// and callers without a registry can pass NewNoOpRecorder().
type Recorder interface {
	// RecordOperation records an operation with its status.
	// The operation parameter describes what was performed (e.g., "stage1_thematic", "gemini").
	// The status parameter indicates the outcome (e.g., "success", "error").
	RecordOperation(operation, status string)

	// RecordDuration records the duration of an operation in seconds.
	RecordDuration(operation string, seconds float64)

	// RecordError records an error occurrence with its type.
	// The errorType parameter categorizes the error (e.g., "timeout", "rate_limit").
	RecordError(operation, errorType string)
}

// NoOpRecorder is a no-op implementation of the Recorder interface.
// It can be used when metrics recording is not needed.
type NoOpRecorder struct{}

// RecordOperation does nothing.
func (n *NoOpRecorder) RecordOperation(operation, status string) {}

// RecordDuration does nothing.
func (n *NoOpRecorder) RecordDuration(operation string, seconds float64) {}

// RecordError does nothing.
func (n *NoOpRecorder) RecordError(operation, errorType string) {}

// NewNoOpRecorder creates a new no-op recorder instance.
func NewNoOpRecorder() *NoOpRecorder {
	return &NoOpRecorder{}
}

// collectorSet implements prometheus.Collector over a slice of collectors.
// Each component metrics struct embeds it.
type collectorSet struct {
	collectors []prometheus.Collector
}

// Describe implements the Collector interface
func (c *collectorSet) Describe(ch chan<- *prometheus.Desc) {
	for _, collector := range c.collectors {
		collector.Describe(ch)
	}
}

// Collect implements the Collector interface
func (c *collectorSet) Collect(ch chan<- prometheus.Metric) {
	for _, collector := range c.collectors {
		collector.Collect(ch)
	}
}
