package metrics

import "github.com/prometheus/client_golang/prometheus"

// ErrorMetrics counts enhanced errors built anywhere in the process.
type ErrorMetrics struct {
	collectorSet

	errorsTotal *prometheus.CounterVec
}

// NewErrorMetrics creates and registers new error metrics
func NewErrorMetrics(registry *prometheus.Registry) (*ErrorMetrics, error) {
	m := &ErrorMetrics{}
	m.errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lyricgraph_errors_total",
			Help: "Total number of errors by component and category",
		},
		[]string{"component", "category"},
	)
	m.collectors = []prometheus.Collector{m.errorsTotal}
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

// RecordError records one error
func (m *ErrorMetrics) RecordError(component, category string) {
	m.errorsTotal.WithLabelValues(component, category).Inc()
}
