// Package report renders reconciliation reports as text tables, CSV, JSON,
// YAML and XLSX workbooks.
package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/tphakala/perdiem-go/internal/errors"
	"github.com/tphakala/perdiem-go/internal/reconcile"
	"github.com/tphakala/perdiem-go/internal/timeline"
)

// Format selects an output encoding.
type Format string

const (
	FormatTable Format = "table"
	FormatCSV   Format = "csv"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
	FormatXLSX  Format = "xlsx"
)

// Formats lists the supported formats.
func Formats() []Format {
	return []Format{FormatTable, FormatCSV, FormatJSON, FormatYAML, FormatXLSX}
}

// ParseFormat accepts a format name case-insensitively.
func ParseFormat(name string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range Formats() {
		if f == known {
			return f, nil
		}
	}
	return "", errors.Newf("unsupported report format %q", name).
		Category(errors.CategoryValidation).
		Context("format", name).
		Build()
}

// Extension returns the file extension for the format.
func (f Format) Extension() string {
	if f == FormatTable {
		return ".txt"
	}
	return "." + string(f)
}

// Write renders r to w in format f.
func Write(w io.Writer, r *reconcile.Report, f Format) error {
	var err error
	switch f {
	case FormatTable:
		err = WriteTable(w, r)
	case FormatCSV:
		err = WriteCSV(w, r)
	case FormatJSON:
		err = WriteJSON(w, r)
	case FormatYAML:
		err = WriteYAML(w, r)
	case FormatXLSX:
		err = WriteXLSX(w, r)
	default:
		_, err = ParseFormat(string(f))
		return err
	}
	if err != nil && !errors.IsCategory(err, errors.CategoryFileIO) {
		return errors.New(err).
			Category(errors.CategoryFileIO).
			Context("format", string(f)).
			Context("submission", r.SubmissionNumber).
			Build()
	}
	return err
}

// DayColumns are the column titles of the day table.
var DayColumns = []string{
	"Day Number",
	"Date of Inspection",
	"Inspection ID(s)",
	"Property ID(s)",
	"Program",
	"Property Name",
	"Property Address",
	"Property City, State",
	"Per Diem",
	"GSA Lodging Rate",
	"Actual Lodging Cost",
	"Lodging Rate Tax",
	"GSA Rate Zip Code",
	"Rate Status",
	"Notes",
}

const listSeparator = ", "

// DayRecord returns the display values of one row, aligned with DayColumns.
func DayRecord(row *reconcile.Row) []string {
	return []string{
		strconv.Itoa(row.Day),
		row.Date.Format(timeline.DateLayout),
		strings.Join(row.InspectionIDs, listSeparator),
		strings.Join(row.PropertyIDs, listSeparator),
		strings.Join(row.Programs, listSeparator),
		strings.Join(row.PropertyNames, listSeparator),
		strings.Join(row.PropertyAddresses, listSeparator),
		strings.Join(row.PropertyCityStates, listSeparator),
		row.Display(reconcile.FieldPerDiem),
		row.Display(reconcile.FieldLodgingRate),
		row.Display(reconcile.FieldLodgingCost),
		row.LodgingTaxes,
		row.ResolvedZip,
		string(row.RateStatus),
		rowNotes(row),
	}
}

func rowNotes(row *reconcile.Row) string {
	var notes []string
	for _, f := range row.Flags {
		notes = append(notes, f.Message)
	}
	if row.RateError != "" {
		notes = append(notes, row.RateError)
	}
	return strings.Join(notes, "; ")
}

// Field is one labelled header value.
type Field struct {
	Label string
	Value string
}

// HeaderFields returns the submission-level values shown once per report.
func HeaderFields(r *reconcile.Report) []Field {
	h := r.Header
	return []Field{
		{"Submission", strconv.Itoa(r.SubmissionNumber)},
		{"Inspector", h.Inspector},
		{"Reimbursement ID", h.ReimbursementID},
		{"Travel Start Location", location(h.DepartCity, h.DepartState, h.DepartZip)},
		{"Travel End Location", location(h.DestCity, h.DestState, h.DestZip)},
		{"POV Mileage", h.MilesDriven},
		{"POV Mileage Expense", h.MileageExpense},
		{"Total Reimbursement", r.TotalReimbursementDisplay()},
		{"Total Inspections", h.TotalInspections},
		{"Transportation Expenses", h.TransportationExpenses},
		{"Comments", h.Comments},
		{"GSA Rate Year", fmt.Sprintf("FY%d", r.RateYear)},
	}
}

func location(city, state, zip string) string {
	var parts []string
	if city != "" {
		parts = append(parts, city)
	}
	if state != "" {
		parts = append(parts, state)
	}
	loc := strings.Join(parts, ", ")
	if zip != "" {
		loc = strings.TrimSpace(loc + " " + zip)
	}
	return loc
}
