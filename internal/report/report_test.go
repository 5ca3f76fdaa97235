package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tphakala/perdiem-go/internal/aggregate"
	"github.com/tphakala/perdiem-go/internal/errors"
	"github.com/tphakala/perdiem-go/internal/gsa"
	"github.com/tphakala/perdiem-go/internal/reconcile"
	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"
)

func sampleReport() *reconcile.Report {
	quote := &gsa.Quote{
		Zip: "30301", Month: "June",
		Meals: decimal.NewFromInt(68), BoundaryMeals: decimal.RequireFromString("51.00"), Lodging: decimal.NewFromInt(110),
	}
	boundaryFlag := reconcile.Flag{
		Field: reconcile.FieldPerDiem, Rule: "boundary_meals",
		Message: "travel day per diem 68.00 differs from GSA rate 51.00", Claimed: "68", Expected: "51.00",
	}
	row := func(day int, flags ...reconcile.Flag) reconcile.Row {
		return reconcile.Row{
			DayRow: aggregate.DayRow{
				Day:           day,
				Date:          time.Date(2024, time.June, day, 0, 0, 0, 0, time.UTC),
				InspectionIDs: []string{"1001", "1002"},
				PropertyIDs:   []string{"P-1", "P-2"},
				PropertyNames: []string{"Oak Court", "Elm Terrace"},
				PerDiem:       "68",
				LodgingRate:   "110",
				LodgingCost:   "105.00",
				LodgingTaxes:  "12.40",
				ResolvedZip:   "30301",
			},
			Month:      "June",
			Quote:      quote,
			RateStatus: reconcile.RateResolved,
			Flags:      flags,
		}
	}

	return &reconcile.Report{
		RunID:            "4b0c7a52-7d0e-4a8c-9d61-3f0f4d7e1c11",
		SubmissionNumber: 268,
		GeneratedAt:      time.Date(2024, time.July, 1, 12, 0, 0, 0, time.UTC),
		RateYear:         2024,
		Header: aggregate.Header{
			SubmissionNumber:   268,
			Inspector:          "Rene Cote",
			ReimbursementID:    "R-100",
			MilesDriven:        "120",
			MileageExpense:     "49.00",
			TotalReimbursement: "$1,700.00",
			TotalInspections:   "4",
			DepartCity:         "Macon",
			DepartState:        "GA",
			DepartZip:          "31201",
		},
		Rows: []reconcile.Row{row(1, boundaryFlag), row(2), row(3, boundaryFlag)},
		SubmissionFlags: []reconcile.Flag{{
			Field: reconcile.FieldTotalReimbursement, Rule: "inspection_ceiling",
			Message: "exceeds per-inspection ceiling: 425.00 per inspection over 400.00", Claimed: "$1,700.00",
		}},
		RateErrors: []gsa.LookupError{{Zip: "99999", Month: "June", Reason: gsa.ReasonNoRates}},
		Dropped:    []aggregate.DroppedInspection{{InspectionID: "1003", Date: "06/09/2024", Reason: aggregate.DropOutsideTrip}},
		Warnings:   []string{"miles driven \"n/a\" is not a number, mileage expense not computed"},
	}
}

func TestParseFormat(t *testing.T) {
	t.Parallel()

	f, err := ParseFormat(" XLSX ")
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX, f)
	assert.Equal(t, ".xlsx", f.Extension())
	assert.Equal(t, ".txt", FormatTable.Extension())

	_, err = ParseFormat("pdf")
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryValidation))
}

func TestDayRecord(t *testing.T) {
	t.Parallel()

	r := sampleReport()
	rec := DayRecord(&r.Rows[0])
	require.Len(t, rec, len(DayColumns))
	assert.Equal(t, "1", rec[0])
	assert.Equal(t, "06/01/2024", rec[1])
	assert.Equal(t, "1001, 1002", rec[2])
	assert.Equal(t, "FLAG 68", rec[8])
	assert.Equal(t, "110", rec[9])
	assert.Equal(t, "30301", rec[12])
	assert.Equal(t, "resolved", rec[13])
	assert.Contains(t, rec[14], "differs from GSA rate")

	assert.Equal(t, "68", DayRecord(&r.Rows[1])[8])
}

func TestHeaderFields(t *testing.T) {
	t.Parallel()

	fields := HeaderFields(sampleReport())
	values := make(map[string]string)
	for _, f := range fields {
		values[f.Label] = f.Value
	}
	assert.Equal(t, "Macon, GA 31201", values["Travel Start Location"])
	assert.Empty(t, values["Travel End Location"])
	assert.Equal(t, "FLAG $1,700.00", values["Total Reimbursement"])
	assert.Equal(t, "49.00", values["POV Mileage Expense"])
	assert.Equal(t, "FY2024", values["GSA Rate Year"])
}

func TestWriteCSV(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleReport(), FormatCSV))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)

	header := len(HeaderFields(sampleReport()))
	assert.Equal(t, "Submission", records[0][0])
	assert.Equal(t, "Day Number", records[0][header])
	for _, rec := range records[1:] {
		assert.Equal(t, "268", rec[0], "header values repeat on every record")
	}
	assert.Equal(t, "FLAG 68", records[1][header+8])
	assert.Equal(t, "68", records[2][header+8])
}

func TestWriteJSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleReport(), FormatJSON))

	var decoded struct {
		RunID string `json:"run_id"`
		Rows  []struct {
			Day     int    `json:"day"`
			PerDiem string `json:"per_diem"`
			Quote   struct {
				BoundaryMeals string `json:"boundary_meals"`
			} `json:"quote"`
			Flags []reconcile.Flag `json:"flags"`
		} `json:"rows"`
		SubmissionFlags []reconcile.Flag `json:"submission_flags"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))

	assert.Equal(t, "4b0c7a52-7d0e-4a8c-9d61-3f0f4d7e1c11", decoded.RunID)
	require.Len(t, decoded.Rows, 3)
	assert.Equal(t, "68", decoded.Rows[0].PerDiem, "claimed values are never altered")
	assert.Equal(t, "51", decoded.Rows[0].Quote.BoundaryMeals)
	assert.Len(t, decoded.Rows[0].Flags, 1)
	assert.Empty(t, decoded.Rows[1].Flags)
	assert.Len(t, decoded.SubmissionFlags, 1)
}

func TestWriteYAML(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleReport(), FormatYAML))

	var decoded map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, 268, decoded["submission_number"])

	rows, ok := decoded["rows"].([]any)
	require.True(t, ok)
	first, ok := rows[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "68", first["per_diem"], "day row fields are inlined")
	assert.Equal(t, "resolved", first["rate_status"])
}

func TestWriteTable(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleReport(), FormatTable))
	out := buf.String()

	assert.Contains(t, out, "Total Reimbursement:     FLAG $1,700.00")
	assert.Contains(t, out, "FLAG 68")
	assert.Contains(t, out, "Flags (3):")
	assert.Contains(t, out, "99999 June: no rate data for zip")
	assert.Contains(t, out, "1003 () on 06/09/2024: inspection date outside per diem dates")
	assert.Contains(t, out, "Warnings:")
}

func TestWriteXLSX(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleReport(), FormatXLSX))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	assert.Equal(t, []string{SheetReport, SheetFlags, SheetNotes}, f.GetSheetList())

	rows, err := f.GetRows(SheetReport)
	require.NoError(t, err)
	assert.Equal(t, []string{"Inspector", "Rene Cote"}, rows[1])

	titleRow := -1
	for i, r := range rows {
		if len(r) > 0 && r[0] == "Day Number" {
			titleRow = i
			break
		}
	}
	require.GreaterOrEqual(t, titleRow, 0, "day table title row present")
	assert.Equal(t, DayColumns, rows[titleRow])
	require.Len(t, rows, titleRow+4)
	assert.Equal(t, "FLAG 68", rows[titleRow+1][8])
	assert.Equal(t, "68", rows[titleRow+2][8])

	// widest value in column C is "Inspection ID(s)" or "1001, 1002"
	width, err := f.GetColWidth(SheetReport, "C")
	require.NoError(t, err)
	assert.InDelta(t, float64(len("Inspection ID(s)")+columnPadding), width, 0.01)

	flags, err := f.GetRows(SheetFlags)
	require.NoError(t, err)
	require.Len(t, flags, 4)
	assert.Equal(t, "inspection_ceiling", flags[1][1])

	notes, err := f.GetRows(SheetNotes)
	require.NoError(t, err)
	assert.Len(t, notes, 4)
}

func TestWriteUnknownFormat(t *testing.T) {
	t.Parallel()

	err := Write(&bytes.Buffer{}, sampleReport(), Format("pdf"))
	assert.True(t, errors.IsCategory(err, errors.CategoryValidation))
}
