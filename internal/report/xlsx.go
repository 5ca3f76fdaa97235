package report

import (
	"fmt"
	"io"
	"strconv"
	"unicode/utf8"

	"github.com/tphakala/perdiem-go/internal/reconcile"
	"github.com/xuri/excelize/v2"
)

// Workbook sheet names.
const (
	SheetReport = "Report"
	SheetFlags  = "Flags"
	SheetNotes  = "Notes"
)

// columnPadding is added to the longest value of a column to get its width.
const columnPadding = 8

// WriteXLSX writes a workbook with the report sheet (header block followed by
// the day table), a flags sheet and a notes sheet with rate errors, dropped
// inspections and warnings. Flagged cells are highlighted.
func WriteXLSX(w io.Writer, r *reconcile.Report) error {
	f, err := BuildWorkbook(r)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	return f.Write(w)
}

// BuildWorkbook assembles the report workbook in memory.
func BuildWorkbook(r *reconcile.Report) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SheetReport); err != nil {
		return nil, err
	}

	sw := &sheetWriter{file: f, sheet: SheetReport}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}
	flagged, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "9C0006"},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"FFC7CE"}},
	})
	if err != nil {
		return nil, err
	}

	for _, field := range HeaderFields(r) {
		sw.row([]string{field.Label, field.Value})
		sw.style(1, bold)
		if field.Label == "Total Reimbursement" && len(r.SubmissionFlags) > 0 {
			sw.style(2, flagged)
		}
	}
	sw.row(nil)

	sw.row(DayColumns)
	for col := 1; col <= len(DayColumns); col++ {
		sw.style(col, bold)
	}
	flagColumns := map[reconcile.Field]int{
		reconcile.FieldPerDiem:     columnOf("Per Diem"),
		reconcile.FieldLodgingRate: columnOf("GSA Lodging Rate"),
		reconcile.FieldLodgingCost: columnOf("Actual Lodging Cost"),
	}
	for i := range r.Rows {
		row := &r.Rows[i]
		sw.row(DayRecord(row))
		for field, col := range flagColumns {
			if row.Flagged(field) {
				sw.style(col, flagged)
			}
		}
	}
	sw.autoWidth()
	if sw.err != nil {
		return nil, sw.err
	}

	if err := writeFlagsSheet(f, r, bold); err != nil {
		return nil, err
	}
	if err := writeNotesSheet(f, r, bold); err != nil {
		return nil, err
	}
	return f, nil
}

func writeFlagsSheet(f *excelize.File, r *reconcile.Report, bold int) error {
	if _, err := f.NewSheet(SheetFlags); err != nil {
		return err
	}
	sw := &sheetWriter{file: f, sheet: SheetFlags}
	titles := []string{"Day", "Rule", "Field", "Claimed", "Expected", "Message"}
	sw.row(titles)
	for col := range titles {
		sw.style(col+1, bold)
	}
	for _, flag := range r.SubmissionFlags {
		sw.row([]string{"", flag.Rule, string(flag.Field), flag.Claimed, flag.Expected, flag.Message})
	}
	for i := range r.Rows {
		for _, flag := range r.Rows[i].Flags {
			sw.row([]string{strconv.Itoa(r.Rows[i].Day), flag.Rule, string(flag.Field), flag.Claimed, flag.Expected, flag.Message})
		}
	}
	sw.autoWidth()
	return sw.err
}

func writeNotesSheet(f *excelize.File, r *reconcile.Report, bold int) error {
	if _, err := f.NewSheet(SheetNotes); err != nil {
		return err
	}
	sw := &sheetWriter{file: f, sheet: SheetNotes}
	sw.row([]string{"Kind", "Detail"})
	sw.style(1, bold)
	sw.style(2, bold)
	for _, le := range r.RateErrors {
		sw.row([]string{"rate lookup", fmt.Sprintf("%s %s: %s", le.Zip, le.Month, le.Message())})
	}
	for _, d := range r.Dropped {
		sw.row([]string{"dropped inspection", fmt.Sprintf("%s (%s) on %s: %s", d.InspectionID, d.PropertyID, d.Date, d.Reason)})
	}
	for _, warning := range r.Warnings {
		sw.row([]string{"warning", warning})
	}
	sw.autoWidth()
	return sw.err
}

func columnOf(title string) int {
	for i, c := range DayColumns {
		if c == title {
			return i + 1
		}
	}
	return 0
}

// sheetWriter appends rows to a sheet, tracks column widths and keeps the
// first error.
type sheetWriter struct {
	file   *excelize.File
	sheet  string
	next   int
	widths []int
	err    error
}

func (s *sheetWriter) row(values []string) {
	s.next++
	if s.err != nil || len(values) == 0 {
		return
	}
	cells := make([]any, len(values))
	for i, v := range values {
		cells[i] = v
		if i >= len(s.widths) {
			s.widths = append(s.widths, 0)
		}
		s.widths[i] = max(s.widths[i], utf8.RuneCountInString(v))
	}
	cell, err := excelize.CoordinatesToCellName(1, s.next)
	if err != nil {
		s.err = err
		return
	}
	s.err = s.file.SetSheetRow(s.sheet, cell, &cells)
}

// style applies a style to column col of the last written row.
func (s *sheetWriter) style(col, styleID int) {
	if s.err != nil {
		return
	}
	cell, err := excelize.CoordinatesToCellName(col, s.next)
	if err != nil {
		s.err = err
		return
	}
	s.err = s.file.SetCellStyle(s.sheet, cell, cell, styleID)
}

func (s *sheetWriter) autoWidth() {
	for i, width := range s.widths {
		if s.err != nil {
			return
		}
		name, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			s.err = err
			return
		}
		s.err = s.file.SetColWidth(s.sheet, name, name, float64(width+columnPadding))
	}
}
