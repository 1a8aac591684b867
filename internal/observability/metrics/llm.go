package metrics

import "github.com/prometheus/client_golang/prometheus"

// LLMMetrics contains Prometheus metrics for LLM and embedding provider calls.
type LLMMetrics struct {
	collectorSet

	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	errorsTotal      *prometheus.CounterVec
	fallbackExhaust  prometheus.Counter
	embeddingsTotal  *prometheus.CounterVec
	embeddingCacheOp *prometheus.CounterVec
}

// NewLLMMetrics creates and registers new LLM metrics
func NewLLMMetrics(registry *prometheus.Registry) (*LLMMetrics, error) {
	m := &LLMMetrics{}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *LLMMetrics) initMetrics() {
	m.requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_requests_total",
			Help: "Total number of LLM requests by provider",
		},
		[]string{"provider", "status"}, // status: success, error, rate_limited
	)

	m.requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "llm_request_duration_seconds",
			Help:    "Latency of LLM requests by provider",
			Buckets: prometheus.ExponentialBuckets(BucketStart100ms, BucketFactor2, BucketCount12), // 100ms to ~200s
		},
		[]string{"provider"},
	)

	m.errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_errors_total",
			Help: "Total number of LLM errors by provider and type",
		},
		[]string{"provider", "error_type"},
	)

	m.fallbackExhaust = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "llm_fallback_exhausted_total",
			Help: "Number of requests for which every configured provider failed",
		},
	)

	m.embeddingsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "embedding_texts_total",
			Help: "Total number of texts embedded by provider",
		},
		[]string{"provider", "status"},
	)

	m.embeddingCacheOp = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "embedding_cache_operations_total",
			Help: "Embedding cache lookups",
		},
		[]string{"result"}, // result: hit, miss
	)

	m.collectors = []prometheus.Collector{
		m.requestsTotal,
		m.requestDuration,
		m.errorsTotal,
		m.fallbackExhaust,
		m.embeddingsTotal,
		m.embeddingCacheOp,
	}
}

// RecordOperation records a provider request
func (m *LLMMetrics) RecordOperation(provider, status string) {
	m.requestsTotal.WithLabelValues(provider, status).Inc()
}

// RecordDuration records provider request latency
func (m *LLMMetrics) RecordDuration(provider string, seconds float64) {
	m.requestDuration.WithLabelValues(provider).Observe(seconds)
}

// RecordError records a provider error
func (m *LLMMetrics) RecordError(provider, errorType string) {
	m.errorsTotal.WithLabelValues(provider, errorType).Inc()
}

// RecordFallbackExhausted records a request where no provider succeeded
func (m *LLMMetrics) RecordFallbackExhausted() {
	m.fallbackExhaust.Inc()
}

// RecordEmbeddings records embedded text count for a provider
func (m *LLMMetrics) RecordEmbeddings(provider, status string, n int) {
	m.embeddingsTotal.WithLabelValues(provider, status).Add(float64(n))
}

// RecordEmbeddingCache records an embedding cache hit or miss
func (m *LLMMetrics) RecordEmbeddingCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.embeddingCacheOp.WithLabelValues(result).Inc()
}
