package metrics

import "github.com/prometheus/client_golang/prometheus"

// RetrievalMetrics contains Prometheus metrics for the retrieval pipeline and hybrid search.
type RetrievalMetrics struct {
	collectorSet

	stageTotal       *prometheus.CounterVec
	stageDuration    *prometheus.HistogramVec
	stageErrorsTotal *prometheus.CounterVec

	pipelineTotal    *prometheus.CounterVec
	pipelineDuration prometheus.Histogram

	searchResultsHist *prometheus.HistogramVec
}

// NewRetrievalMetrics creates and registers new retrieval metrics
func NewRetrievalMetrics(registry *prometheus.Registry) (*RetrievalMetrics, error) {
	m := &RetrievalMetrics{}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *RetrievalMetrics) initMetrics() {
	m.stageTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retrieval_stage_total",
			Help: "Total number of retrieval stage executions",
		},
		[]string{"stage", "status"},
	)

	m.stageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "retrieval_stage_duration_seconds",
			Help:    "Time taken by each retrieval stage",
			Buckets: prometheus.ExponentialBuckets(BucketStart1ms, BucketFactor2, BucketCount15), // 1ms to ~16s
		},
		[]string{"stage"},
	)

	m.stageErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retrieval_stage_errors_total",
			Help: "Total number of retrieval stage failures",
		},
		[]string{"stage", "error_type"},
	)

	m.pipelineTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retrieval_pipeline_total",
			Help: "Total number of retrieval pipeline runs",
		},
		[]string{"status"}, // status: success, degraded, no_graph
	)

	m.pipelineDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "retrieval_pipeline_duration_seconds",
			Help:    "Wall time of a full retrieval pipeline run",
			Buckets: prometheus.ExponentialBuckets(BucketStart10ms, BucketFactor2, BucketCount12), // 10ms to ~20s
		},
	)

	m.searchResultsHist = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "retrieval_search_results",
			Help:    "Number of hybrid search results by node type and source list",
			Buckets: prometheus.LinearBuckets(0, 5, 10),
		},
		[]string{"node_type", "source"}, // source: semantic, keyword, fused
	)

	m.collectors = []prometheus.Collector{
		m.stageTotal,
		m.stageDuration,
		m.stageErrorsTotal,
		m.pipelineTotal,
		m.pipelineDuration,
		m.searchResultsHist,
	}
}

// RecordOperation records a stage execution
func (m *RetrievalMetrics) RecordOperation(stage, status string) {
	m.stageTotal.WithLabelValues(stage, status).Inc()
}

// RecordDuration records the duration of a stage
func (m *RetrievalMetrics) RecordDuration(stage string, seconds float64) {
	m.stageDuration.WithLabelValues(stage).Observe(seconds)
}

// RecordError records a stage failure
func (m *RetrievalMetrics) RecordError(stage, errorType string) {
	m.stageErrorsTotal.WithLabelValues(stage, errorType).Inc()
}

// RecordPipeline records the outcome and wall time of a pipeline run
func (m *RetrievalMetrics) RecordPipeline(status string, seconds float64) {
	m.pipelineTotal.WithLabelValues(status).Inc()
	m.pipelineDuration.Observe(seconds)
}

// RecordSearchResults records the size of a search result list
func (m *RetrievalMetrics) RecordSearchResults(nodeType, source string, n int) {
	m.searchResultsHist.WithLabelValues(nodeType, source).Observe(float64(n))
}
