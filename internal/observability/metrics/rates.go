package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// RateMetrics contains Prometheus metrics for GSA rate lookups.
// It satisfies gsa.MetricsRecorder.
type RateMetrics struct {
	registry *prometheus.Registry

	requestsTotal     *prometheus.CounterVec
	requestDuration   prometheus.Histogram
	cacheTotal        *prometheus.CounterVec
	lookupErrorsTotal *prometheus.CounterVec
}

// NewRateMetrics creates and registers rate lookup metrics.
func NewRateMetrics(registry *prometheus.Registry) (*RateMetrics, error) {
	m := &RateMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *RateMetrics) initMetrics() {
	m.requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "perdiem_gsa_requests_total",
			Help: "Total number of GSA per diem API requests",
		},
		[]string{"status"}, // HTTP status code, or "error" for transport failures
	)

	m.requestDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name: "perdiem_gsa_request_duration_seconds",
		Help: "Time taken by GSA per diem API requests",
		// 10ms to ~20s
		Buckets: prometheus.ExponentialBuckets(BucketStart10ms, BucketFactor2, BucketCount12),
	})

	m.cacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "perdiem_gsa_cache_total",
			Help: "GSA response cache lookups by result",
		},
		[]string{"result"},
	)

	m.lookupErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "perdiem_gsa_lookup_errors_total",
			Help: "Rate lookups that produced no quote, by reason",
		},
		[]string{"reason"},
	)
}

func (m *RateMetrics) getCollectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.requestsTotal,
		m.requestDuration,
		m.cacheTotal,
		m.lookupErrorsTotal,
	}
}

// Describe implements the Collector interface
func (m *RateMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, collector := range m.getCollectors() {
		collector.Describe(ch)
	}
}

// Collect implements the Collector interface
func (m *RateMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, collector := range m.getCollectors() {
		collector.Collect(ch)
	}
}

// RecordRateRequest records one API round trip.
func (m *RateMetrics) RecordRateRequest(status string, duration time.Duration) {
	m.requestsTotal.WithLabelValues(status).Inc()
	m.requestDuration.Observe(duration.Seconds())
}

// RecordRateCache records a response cache hit or miss.
func (m *RateMetrics) RecordRateCache(hit bool) {
	result := CacheMiss
	if hit {
		result = CacheHit
	}
	m.cacheTotal.WithLabelValues(result).Inc()
}

// RecordRateLookupError records a (ZIP, month) left without a quote.
func (m *RateMetrics) RecordRateLookupError(reason string) {
	m.lookupErrorsTotal.WithLabelValues(reason).Inc()
}
