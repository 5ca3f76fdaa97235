package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetricsRecordsAndServes(t *testing.T) {
	t.Parallel()

	m, err := NewMetrics()
	require.NoError(t, err)

	m.Rates.RecordRateRequest("200", 150*time.Millisecond)
	m.Rates.RecordRateRequest("500", 20*time.Millisecond)
	m.Rates.RecordRateCache(true)
	m.Rates.RecordRateCache(false)
	m.Rates.RecordRateCache(false)
	m.Rates.RecordRateLookupError("no rate data for zip")

	m.Reconcile.RecordRun("ok", time.Second)
	m.Reconcile.RecordRun("submission-not-found", time.Millisecond)
	m.Reconcile.RecordFlags("boundary_meals", 2)
	m.Reconcile.RecordFlags("inspection_ceiling", 1)
	m.Reconcile.RecordWarnings(3)

	m.HTTP.RecordHTTPRequest(http.MethodGet, "/api/v1/health", http.StatusOK, 0.002)

	count, err := testutil.GatherAndCount(m.Registry(),
		"perdiem_gsa_requests_total",
		"perdiem_gsa_cache_total",
		"perdiem_reconcile_runs_total",
		"perdiem_flags_total",
	)
	require.NoError(t, err)
	assert.Equal(t, 8, count, "one series per label combination")

	families, err := m.Registry().Gather()
	require.NoError(t, err)
	assert.InDelta(t, 2, counterValue(t, families, "perdiem_gsa_cache_total", "result", "miss"), 0.001)
	assert.InDelta(t, 2, counterValue(t, families, "perdiem_flags_total", "rule", "boundary_meals"), 0.001)
	assert.InDelta(t, 3, counterValue(t, families, "perdiem_report_warnings_total", "", ""), 0.001)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `perdiem_gsa_lookup_errors_total{reason="no rate data for zip"} 1`)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestInFlightGauge(t *testing.T) {
	t.Parallel()

	m, err := NewMetrics()
	require.NoError(t, err)

	m.HTTP.RequestStarted()
	m.HTTP.RequestStarted()
	m.HTTP.RequestFinished()
	assert.InDelta(t, 1, m.HTTP.InFlight(), 0.001)
}

// counterValue finds a counter sample by metric name and one label pair.
// An empty label name matches an unlabelled counter.
func counterValue(t *testing.T, families []*dto.MetricFamily, name, label, value string) float64 {
	t.Helper()
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.GetMetric() {
			if label == "" {
				return metric.GetCounter().GetValue()
			}
			for _, lp := range metric.GetLabel() {
				if lp.GetName() == label && lp.GetValue() == value {
					return metric.GetCounter().GetValue()
				}
			}
		}
	}
	t.Fatalf("metric %s{%s=%q} not found", name, label, value)
	return 0
}
