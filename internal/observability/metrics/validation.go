package metrics

import "github.com/prometheus/client_golang/prometheus"

// ValidationMetrics contains Prometheus metrics for the generation validation loop.
type ValidationMetrics struct {
	collectorSet

	attemptsTotal        *prometheus.CounterVec
	attemptDuration      *prometheus.HistogramVec
	errorsTotal          *prometheus.CounterVec
	recommendationsTotal *prometheus.CounterVec
	overallScore         prometheus.Histogram
	checkScore           *prometheus.HistogramVec
	attemptsPerRequest   prometheus.Histogram
}

// NewValidationMetrics creates and registers new validation metrics
func NewValidationMetrics(registry *prometheus.Registry) (*ValidationMetrics, error) {
	m := &ValidationMetrics{}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *ValidationMetrics) initMetrics() {
	scoreBuckets := prometheus.LinearBuckets(0, BucketScoreWidth, BucketScoreCount)

	m.attemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "generation_attempts_total",
			Help: "Total number of generation attempts by prompt kind",
		},
		[]string{"prompt", "status"}, // prompt: initial, repair, enhanced
	)

	m.attemptDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "generation_attempt_duration_seconds",
			Help:    "Time taken by one generate and validate cycle",
			Buckets: prometheus.ExponentialBuckets(BucketStart100ms, BucketFactor2, BucketCount10),
		},
		[]string{"prompt"},
	)

	m.errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "generation_errors_total",
			Help: "Total number of generation errors",
		},
		[]string{"prompt", "error_type"},
	)

	m.recommendationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "validation_recommendations_total",
			Help: "Validator recommendations",
		},
		[]string{"recommendation"}, // accept, regenerate_partial, regenerate_full
	)

	m.overallScore = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "validation_overall_score",
			Help:    "Aggregate validation score of generated songs",
			Buckets: scoreBuckets,
		},
	)

	m.checkScore = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "validation_check_score",
			Help:    "Per-check validation scores",
			Buckets: scoreBuckets,
		},
		[]string{"check"},
	)

	m.attemptsPerRequest = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "generation_attempts_per_request",
			Help:    "Number of attempts used per generation request",
			Buckets: prometheus.LinearBuckets(1, 1, 5),
		},
	)

	m.collectors = []prometheus.Collector{
		m.attemptsTotal,
		m.attemptDuration,
		m.errorsTotal,
		m.recommendationsTotal,
		m.overallScore,
		m.checkScore,
		m.attemptsPerRequest,
	}
}

// RecordOperation records a generation attempt
func (m *ValidationMetrics) RecordOperation(prompt, status string) {
	m.attemptsTotal.WithLabelValues(prompt, status).Inc()
}

// RecordDuration records the duration of a generation attempt
func (m *ValidationMetrics) RecordDuration(prompt string, seconds float64) {
	m.attemptDuration.WithLabelValues(prompt).Observe(seconds)
}

// RecordError records a generation error
func (m *ValidationMetrics) RecordError(prompt, errorType string) {
	m.errorsTotal.WithLabelValues(prompt, errorType).Inc()
}

// RecordReport records the scores and recommendation of one validation report
func (m *ValidationMetrics) RecordReport(recommendation string, overall float64, checks map[string]float64) {
	m.recommendationsTotal.WithLabelValues(recommendation).Inc()
	m.overallScore.Observe(overall)
	for check, score := range checks {
		m.checkScore.WithLabelValues(check).Observe(score)
	}
}

// RecordAttemptsUsed records how many attempts a request consumed
func (m *ValidationMetrics) RecordAttemptsUsed(n int) {
	m.attemptsPerRequest.Observe(float64(n))
}
