package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	mw "github.com/tphakala/perdiem-go/internal/api/middleware"
	"github.com/tphakala/perdiem-go/internal/errors"
	"github.com/tphakala/perdiem-go/internal/report"
)

// Content types of the report formats.
var contentTypes = map[report.Format]string{
	report.FormatJSON:  echo.MIMEApplicationJSONCharsetUTF8,
	report.FormatCSV:   "text/csv; charset=utf-8",
	report.FormatYAML:  "application/yaml; charset=utf-8",
	report.FormatTable: echo.MIMETextPlainCharsetUTF8,
	report.FormatXLSX:  "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

// ErrorResponse is the JSON body of every error reply.
type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	Code      int    `json:"code"`
	Category  string `json:"category,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// StatusFor maps an error to the HTTP status it is reported with.
func StatusFor(err error) int {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	switch {
	case errors.IsNotFound(err):
		return http.StatusNotFound
	case errors.IsCategory(err, errors.CategoryDateParse):
		return http.StatusUnprocessableEntity
	case errors.IsCategory(err, errors.CategoryFileAccess):
		return http.StatusServiceUnavailable
	case errors.IsCategory(err, errors.CategoryValidation):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// healthCheck reports whether every source file is readable.
func (s *Server) healthCheck(c echo.Context) error {
	uptime := time.Since(s.startTime)
	body := map[string]any{
		"status":         "healthy",
		"version":        s.version,
		"uptime":         uptime.String(),
		"uptime_seconds": uptime.Seconds(),
		"timestamp":      time.Now().Format(time.RFC3339),
	}
	if err := s.service.CheckAccess(); err != nil {
		body["status"] = "unhealthy"
		body["error"] = err.Error()
		return c.JSON(http.StatusServiceUnavailable, body)
	}
	return c.JSON(http.StatusOK, body)
}

// getReport renders a report; ?format= selects csv, yaml, table or xlsx
// instead of JSON.
func (s *Server) getReport(c echo.Context) error {
	format := report.FormatJSON
	if name := c.QueryParam("format"); name != "" {
		f, err := report.ParseFormat(name)
		if err != nil {
			return err
		}
		format = f
	}
	return s.renderReport(c, format)
}

func (s *Server) getReportXLSX(c echo.Context) error {
	return s.renderReport(c, report.FormatXLSX)
}

func (s *Server) renderReport(c echo.Context, format report.Format) error {
	raw := c.Param("number")
	number, err := strconv.Atoi(raw)
	if err != nil || number <= 0 {
		return errors.Newf("invalid submission number %q", raw).
			Category(errors.CategoryValidation).
			Context("submission", raw).
			Build()
	}

	rep, err := s.service.Reconcile(c.Request().Context(), number)
	if err != nil {
		return err
	}

	if format == report.FormatJSON {
		return c.JSON(http.StatusOK, rep)
	}

	var buf bytes.Buffer
	if err := report.Write(&buf, rep, format); err != nil {
		return err
	}
	if format == report.FormatXLSX {
		c.Response().Header().Set(echo.HeaderContentDisposition,
			fmt.Sprintf("attachment; filename=%q", fmt.Sprintf("report_submission_%d.xlsx", number)))
	}
	return c.Blob(http.StatusOK, contentTypes[format], buf.Bytes())
}

// errorHandler renders errors as ErrorResponse JSON with a category derived
// status code.
func (s *Server) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := StatusFor(err)
	resp := ErrorResponse{
		Error:   err.Error(),
		Message: http.StatusText(code),
		Code:    code,
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		resp.Error = fmt.Sprint(he.Message)
	} else {
		resp.Category = string(errors.CategoryOf(err))
	}
	if id, ok := c.Get(mw.RequestIDKey).(string); ok {
		resp.RequestID = id
	}

	if code >= http.StatusInternalServerError {
		s.slogger.Error("API error",
			"request_id", resp.RequestID,
			"path", c.Path(),
			"code", code,
			"error", err)
	}

	var writeErr error
	if c.Request().Method == http.MethodHead {
		writeErr = c.NoContent(code)
	} else {
		writeErr = c.JSON(code, resp)
	}
	if writeErr != nil {
		s.slogger.Error("failed to write error response", "error", writeErr)
	}
}
