package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ReconcileMetrics contains Prometheus metrics for reconciliation runs.
// It satisfies reconcile.Recorder.
type ReconcileMetrics struct {
	registry *prometheus.Registry

	runsTotal     *prometheus.CounterVec
	runDuration   prometheus.Histogram
	flagsTotal    *prometheus.CounterVec
	warningsTotal prometheus.Counter
}

// NewReconcileMetrics creates and registers reconciliation metrics.
func NewReconcileMetrics(registry *prometheus.Registry) (*ReconcileMetrics, error) {
	m := &ReconcileMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *ReconcileMetrics) initMetrics() {
	m.runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "perdiem_reconcile_runs_total",
			Help: "Total number of reconciliation runs",
		},
		[]string{"status"}, // "ok" or the error category
	)

	m.runDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name: "perdiem_reconcile_duration_seconds",
		Help: "Time taken by reconciliation runs",
		// 10ms to ~20s, dominated by rate lookups
		Buckets: prometheus.ExponentialBuckets(BucketStart10ms, BucketFactor2, BucketCount12),
	})

	m.flagsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "perdiem_flags_total",
			Help: "Total number of flags raised, by rule",
		},
		[]string{"rule"},
	)

	m.warningsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "perdiem_report_warnings_total",
		Help: "Total number of warnings attached to reports",
	})
}

func (m *ReconcileMetrics) getCollectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.runsTotal,
		m.runDuration,
		m.flagsTotal,
		m.warningsTotal,
	}
}

// Describe implements the Collector interface
func (m *ReconcileMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, collector := range m.getCollectors() {
		collector.Describe(ch)
	}
}

// Collect implements the Collector interface
func (m *ReconcileMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, collector := range m.getCollectors() {
		collector.Collect(ch)
	}
}

// RecordRun records the outcome of a run.
func (m *ReconcileMetrics) RecordRun(status string, duration time.Duration) {
	m.runsTotal.WithLabelValues(status).Inc()
	m.runDuration.Observe(duration.Seconds())
}

// RecordFlags adds count flags raised by rule.
func (m *ReconcileMetrics) RecordFlags(rule string, count int) {
	m.flagsTotal.WithLabelValues(rule).Add(float64(count))
}

// RecordWarnings adds count report warnings.
func (m *ReconcileMetrics) RecordWarnings(count int) {
	m.warningsTotal.Add(float64(count))
}
