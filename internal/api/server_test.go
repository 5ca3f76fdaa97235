package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tphakala/perdiem-go/internal/aggregate"
	"github.com/tphakala/perdiem-go/internal/errors"
	"github.com/tphakala/perdiem-go/internal/logging"
	"github.com/tphakala/perdiem-go/internal/observability"
	"github.com/tphakala/perdiem-go/internal/reconcile"
	"github.com/xuri/excelize/v2"
)

// MockReportService is a testify mock of ReportService.
type MockReportService struct {
	mock.Mock
}

func (m *MockReportService) Reconcile(ctx context.Context, submission int) (*reconcile.Report, error) {
	args := m.Called(ctx, submission)
	if r, ok := args.Get(0).(*reconcile.Report); ok {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockReportService) CheckAccess() error {
	return m.Called().Error(0)
}

func testReport() *reconcile.Report {
	return &reconcile.Report{
		RunID:            "run-1",
		SubmissionNumber: 268,
		GeneratedAt:      time.Date(2024, time.July, 1, 12, 0, 0, 0, time.UTC),
		RateYear:         2024,
		Header: aggregate.Header{
			SubmissionNumber:   268,
			Inspector:          "Rene Cote",
			TotalReimbursement: "$800.00",
			TotalInspections:   "4",
		},
		Rows: []reconcile.Row{{
			DayRow: aggregate.DayRow{
				Day:         1,
				Date:        time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC),
				PerDiem:     "51.00",
				ResolvedZip: "30301",
			},
			Month:      "June",
			RateStatus: reconcile.RateResolved,
		}},
	}
}

func setupTestServer(t *testing.T, withMetrics bool) (*Server, *MockReportService) {
	t.Helper()

	svc := new(MockReportService)
	opts := []ServerOption{WithLogger(logging.Discard()), WithVersion("1.2.3")}
	if withMetrics {
		m, err := observability.NewMetrics()
		require.NoError(t, err)
		opts = append(opts, WithMetrics(m))
	}

	s, err := New(DefaultConfig(), svc, opts...)
	require.NoError(t, err)
	return s, svc
}

func serve(s *Server, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, http.NoBody)
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)
	return rec
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Listen = ""
	_, err := New(cfg, new(MockReportService), WithLogger(logging.Discard()))
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
}

func TestHealthCheck(t *testing.T) {
	t.Parallel()

	t.Run("healthy", func(t *testing.T) {
		t.Parallel()
		s, svc := setupTestServer(t, false)
		svc.On("CheckAccess").Return(nil)

		rec := serve(s, http.MethodGet, "/api/v1/health")
		assert.Equal(t, http.StatusOK, rec.Code)

		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "healthy", body["status"])
		assert.Equal(t, "1.2.3", body["version"])
		svc.AssertExpectations(t)
	})

	t.Run("source unreadable", func(t *testing.T) {
		t.Parallel()
		s, svc := setupTestServer(t, false)
		svc.On("CheckAccess").Return(errors.Newf("stat inspections.xlsx: no such file").
			Category(errors.CategoryFileAccess).Build())

		rec := serve(s, http.MethodGet, "/api/v1/health")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Contains(t, rec.Body.String(), "unhealthy")
	})
}

func TestGetReportJSON(t *testing.T) {
	t.Parallel()

	s, svc := setupTestServer(t, false)
	svc.On("Reconcile", mock.Anything, 268).Return(testReport(), nil)

	rec := serve(s, http.MethodGet, "/api/v1/submissions/268/report")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))

	var got reconcile.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 268, got.SubmissionNumber)
	assert.Equal(t, "run-1", got.RunID)
	require.Len(t, got.Rows, 1)
	assert.Equal(t, "30301", got.Rows[0].ResolvedZip)
	svc.AssertExpectations(t)
}

func TestGetReportFormats(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		query       string
		contentType string
		contains    string
	}{
		{"csv", "?format=csv", "text/csv", "Day Number"},
		{"yaml", "?format=yaml", "application/yaml", "submission_number: 268"},
		{"table", "?format=table", "text/plain", "Rene Cote"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s, svc := setupTestServer(t, false)
			svc.On("Reconcile", mock.Anything, 268).Return(testReport(), nil)

			rec := serve(s, http.MethodGet, "/api/v1/submissions/268/report"+tt.query)
			require.Equal(t, http.StatusOK, rec.Code)
			assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), tt.contentType),
				"content type %q", rec.Header().Get("Content-Type"))
			assert.Contains(t, rec.Body.String(), tt.contains)
		})
	}
}

func TestGetReportXLSX(t *testing.T) {
	t.Parallel()

	s, svc := setupTestServer(t, false)
	svc.On("Reconcile", mock.Anything, 268).Return(testReport(), nil)

	rec := serve(s, http.MethodGet, "/api/v1/submissions/268/report.xlsx")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "report_submission_268.xlsx")

	f, err := excelize.OpenReader(rec.Body)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	assert.Contains(t, f.GetSheetList(), "Report")
}

func TestGetReportErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		target   string
		err      error
		wantCode int
		category string
	}{
		{
			name:     "non numeric submission",
			target:   "/api/v1/submissions/abc/report",
			wantCode: http.StatusBadRequest,
			category: "validation",
		},
		{
			name:     "unknown format",
			target:   "/api/v1/submissions/268/report?format=pdf",
			wantCode: http.StatusBadRequest,
			category: "validation",
		},
		{
			name:   "submission not found",
			target: "/api/v1/submissions/268/report",
			err: errors.Newf("no inspections for submission 268").
				Category(errors.CategorySubmissionNotFound).Build(),
			wantCode: http.StatusNotFound,
			category: "submission-not-found",
		},
		{
			name:   "unparseable date",
			target: "/api/v1/submissions/268/report",
			err: errors.Newf("per diem start date %q", "13/45/2024").
				Category(errors.CategoryDateParse).Build(),
			wantCode: http.StatusUnprocessableEntity,
			category: "date-parse",
		},
		{
			name:   "source missing",
			target: "/api/v1/submissions/268/report",
			err: errors.Newf("open inspections.xlsx").
				Category(errors.CategoryFileAccess).Build(),
			wantCode: http.StatusServiceUnavailable,
			category: "file-access",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s, svc := setupTestServer(t, false)
			if tt.err != nil {
				svc.On("Reconcile", mock.Anything, 268).Return(nil, tt.err)
			}

			rec := serve(s, http.MethodGet, tt.target)
			assert.Equal(t, tt.wantCode, rec.Code)

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantCode, resp.Code)
			assert.Equal(t, tt.category, resp.Category)
			assert.NotEmpty(t, resp.RequestID)
			if tt.err == nil {
				svc.AssertNotCalled(t, "Reconcile", mock.Anything, mock.Anything)
			}
		})
	}
}

func TestUnknownRouteReturnsJSONError(t *testing.T) {
	t.Parallel()

	s, _ := setupTestServer(t, false)
	rec := serve(s, http.MethodGet, "/api/v1/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.Empty(t, resp.Category)
}

func TestStatusFor(t *testing.T) {
	t.Parallel()

	assert.Equal(t, http.StatusInternalServerError, StatusFor(errors.NewStd("boom")))
	assert.Equal(t, http.StatusNotFound, StatusFor(errors.Newf("x").Category(errors.CategoryNotFound).Build()))
	assert.Equal(t, http.StatusTooManyRequests, StatusFor(echo.NewHTTPError(http.StatusTooManyRequests, "slow down")))
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	s, svc := setupTestServer(t, true)
	svc.On("CheckAccess").Return(nil)

	require.Equal(t, http.StatusOK, serve(s, http.MethodGet, "/api/v1/health").Code)

	rec := serve(s, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `perdiem_http_requests_total{method="GET",path="/api/v1/health",status_code="200"} 1`)
	assert.Contains(t, body, "go_goroutines")
}

func TestSecurityHeaders(t *testing.T) {
	t.Parallel()

	s, svc := setupTestServer(t, false)
	svc.On("CheckAccess").Return(nil)

	rec := serve(s, http.MethodGet, "/api/v1/health")
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}
