package report

import (
	"encoding/csv"
	"io"

	"github.com/tphakala/perdiem-go/internal/reconcile"
)

// WriteCSV writes one record per day row. Header values are repeated on every
// record so each line stands alone when filtered or sorted.
func WriteCSV(w io.Writer, r *reconcile.Report) error {
	cw := csv.NewWriter(w)

	header := HeaderFields(r)
	titles := make([]string, 0, len(header)+len(DayColumns))
	values := make([]string, 0, len(header))
	for _, f := range header {
		titles = append(titles, f.Label)
		values = append(values, f.Value)
	}
	titles = append(titles, DayColumns...)
	if err := cw.Write(titles); err != nil {
		return err
	}

	for i := range r.Rows {
		record := append(append([]string(nil), values...), DayRecord(&r.Rows[i])...)
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
