package metrics

import "github.com/prometheus/client_golang/prometheus"

// IngestionMetrics contains Prometheus metrics for graph ingestion and analysis runs.
type IngestionMetrics struct {
	collectorSet

	phaseTotal       *prometheus.CounterVec
	phaseDuration    *prometheus.HistogramVec
	phaseErrorsTotal *prometheus.CounterVec
	rowsWritten      *prometheus.CounterVec
	embeddingBatches *prometheus.CounterVec
}

// NewIngestionMetrics creates and registers new ingestion metrics
func NewIngestionMetrics(registry *prometheus.Registry) (*IngestionMetrics, error) {
	m := &IngestionMetrics{}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *IngestionMetrics) initMetrics() {
	m.phaseTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingestion_phase_total",
			Help: "Total number of ingestion phases run",
		},
		[]string{"phase", "status"}, // phase: structural, advanced, embeddings, vector_index
	)

	m.phaseDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ingestion_phase_duration_seconds",
			Help:    "Time taken by ingestion phases",
			Buckets: prometheus.ExponentialBuckets(BucketStart10ms, BucketFactor2, BucketCount15), // 10ms to ~160s
		},
		[]string{"phase"},
	)

	m.phaseErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingestion_phase_errors_total",
			Help: "Total number of ingestion phase errors",
		},
		[]string{"phase", "error_type"},
	)

	m.rowsWritten = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingestion_rows_written_total",
			Help: "Total number of node and edge rows written by table",
		},
		[]string{"table"},
	)

	m.embeddingBatches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingestion_embedding_batches_total",
			Help: "Total number of embedding batches stored by node type",
		},
		[]string{"node_type", "status"},
	)

	m.collectors = []prometheus.Collector{
		m.phaseTotal,
		m.phaseDuration,
		m.phaseErrorsTotal,
		m.rowsWritten,
		m.embeddingBatches,
	}
}

// RecordOperation records an ingestion phase
func (m *IngestionMetrics) RecordOperation(phase, status string) {
	m.phaseTotal.WithLabelValues(phase, status).Inc()
}

// RecordDuration records the duration of an ingestion phase
func (m *IngestionMetrics) RecordDuration(phase string, seconds float64) {
	m.phaseDuration.WithLabelValues(phase).Observe(seconds)
}

// RecordError records an ingestion phase error
func (m *IngestionMetrics) RecordError(phase, errorType string) {
	m.phaseErrorsTotal.WithLabelValues(phase, errorType).Inc()
}

// RecordRows records rows written to a table
func (m *IngestionMetrics) RecordRows(table string, n int) {
	if n <= 0 {
		return
	}
	m.rowsWritten.WithLabelValues(table).Add(float64(n))
}

// RecordEmbeddingBatch records an embedding batch for a node type
func (m *IngestionMetrics) RecordEmbeddingBatch(nodeType, status string) {
	m.embeddingBatches.WithLabelValues(nodeType, status).Inc()
}
