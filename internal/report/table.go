package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/tphakala/perdiem-go/internal/reconcile"
)

// WriteTable renders a human-readable report: header block, day table, then
// flags, rate errors, dropped inspections and warnings when present.
func WriteTable(w io.Writer, r *reconcile.Report) error {
	ew := &errWriter{w: w}

	for _, f := range HeaderFields(r) {
		ew.printf("%-24s %s\n", f.Label+":", f.Value)
	}
	ew.printf("\n")
	if ew.err != nil {
		return ew.err
	}

	days := tablewriter.NewWriter(ew)
	days.SetHeader(DayColumns)
	days.SetAutoWrapText(false)
	days.SetAutoFormatHeaders(false)
	for i := range r.Rows {
		days.Append(DayRecord(&r.Rows[i]))
	}
	days.Render()

	if flags := r.Flags(); len(flags) > 0 {
		ew.printf("\nFlags (%d):\n", len(flags))
		for _, f := range flags {
			ew.printf("  [%s] %s: %s\n", f.Rule, f.Field, f.Message)
		}
	}
	if len(r.RateErrors) > 0 {
		ew.printf("\nRate lookup errors:\n")
		for _, le := range r.RateErrors {
			ew.printf("  %s %s: %s\n", le.Zip, le.Month, le.Message())
		}
	}
	if len(r.Dropped) > 0 {
		ew.printf("\nInspections without a day row:\n")
		for _, d := range r.Dropped {
			ew.printf("  %s (%s) on %s: %s\n", d.InspectionID, d.PropertyID, d.Date, d.Reason)
		}
	}
	if len(r.Warnings) > 0 {
		ew.printf("\nWarnings:\n  %s\n", strings.Join(r.Warnings, "\n  "))
	}
	return ew.err
}

// errWriter remembers the first write error so rendering can be checked once.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) Write(p []byte) (int, error) {
	if e.err != nil {
		return 0, e.err
	}
	n, err := e.w.Write(p)
	e.err = err
	return n, err
}

func (e *errWriter) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(e, format, args...)
}
