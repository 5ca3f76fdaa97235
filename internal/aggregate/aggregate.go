// Package aggregate joins one submission's tables into one row per trip day.
package aggregate

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tphakala/perdiem-go/internal/errors"
	"github.com/tphakala/perdiem-go/internal/money"
	"github.com/tphakala/perdiem-go/internal/tables"
	"github.com/tphakala/perdiem-go/internal/timeline"
)

// Reasons an inspection is left out of the day rows.
const (
	DropOutsideTrip = "inspection date outside per diem dates"
	DropNoPerDiem   = "no per diem line item for reimbursement request and day"
	DropNoDate      = "missing inspection date"
)

// DayRow is one trip day: the per diem scalars of that day and every
// inspection that happened on it, with property details in inspection order.
type DayRow struct {
	Day  int       `json:"day" yaml:"day"`
	Date time.Time `json:"date" yaml:"date"`

	InspectionIDs      []string `json:"inspection_ids" yaml:"inspection_ids"`
	PropertyIDs        []string `json:"property_ids" yaml:"property_ids"`
	Programs           []string `json:"programs" yaml:"programs"`
	PropertyNames      []string `json:"property_names" yaml:"property_names"`
	PropertyAddresses  []string `json:"property_addresses" yaml:"property_addresses"`
	PropertyCityStates []string `json:"property_city_states" yaml:"property_city_states"`
	Statuses           []string `json:"statuses" yaml:"statuses"`

	ReimbursementID string `json:"reimbursement_id" yaml:"reimbursement_id"`
	PerDiem         string `json:"per_diem" yaml:"per_diem"`
	LodgingRate     string `json:"lodging_rate" yaml:"lodging_rate"`
	LodgingCost     string `json:"lodging_cost" yaml:"lodging_cost"`
	LodgingTaxes    string `json:"lodging_taxes" yaml:"lodging_taxes"`

	ClaimedZip  string `json:"claimed_zip" yaml:"claimed_zip"`   // per diem "Zip Code" cell as claimed
	PropertyZip string `json:"property_zip" yaml:"property_zip"` // first non-empty property ZIP of the day
	ResolvedZip string `json:"resolved_zip" yaml:"resolved_zip"` // canonical ZIP, set by the caller after normalization
}

// Header holds the submission-level values surfaced once per report.
type Header struct {
	SubmissionNumber       int    `json:"submission_number" yaml:"submission_number"`
	Inspector              string `json:"inspector" yaml:"inspector"`
	ReimbursementID        string `json:"reimbursement_id" yaml:"reimbursement_id"`
	MilesDriven            string `json:"miles_driven" yaml:"miles_driven"`
	MileageExpense         string `json:"mileage_expense" yaml:"mileage_expense"` // formatted amount, empty when miles could not be parsed
	TotalReimbursement     string `json:"total_reimbursement" yaml:"total_reimbursement"`
	TotalInspections       string `json:"total_inspections" yaml:"total_inspections"`
	TransportationExpenses string `json:"transportation_expenses" yaml:"transportation_expenses"`
	DepartCity             string `json:"depart_city" yaml:"depart_city"`
	DepartState            string `json:"depart_state" yaml:"depart_state"`
	DepartZip              string `json:"depart_zip" yaml:"depart_zip"`
	DestCity               string `json:"dest_city" yaml:"dest_city"`
	DestState              string `json:"dest_state" yaml:"dest_state"`
	DestZip                string `json:"dest_zip" yaml:"dest_zip"`
	Comments               string `json:"comments" yaml:"comments"`
}

// DroppedInspection is an inspection that has no day row.
type DroppedInspection struct {
	InspectionID    string `json:"inspection_id" yaml:"inspection_id"`
	PropertyID      string `json:"property_id" yaml:"property_id"`
	ReimbursementID string `json:"reimbursement_id" yaml:"reimbursement_id"`
	Date            string `json:"date" yaml:"date"`
	Reason          string `json:"reason" yaml:"reason"`
}

// Result is the aggregated view of one submission.
type Result struct {
	Header   Header
	Timeline *timeline.Timeline
	Rows     []DayRow
	Dropped  []DroppedInspection
	Warnings []string
}

// Policy carries the mileage constants.
type Policy struct {
	MileageRate decimal.Decimal
	FreeMiles   decimal.Decimal
}

// DefaultPolicy is $0.70 per mile after the first 50 miles.
func DefaultPolicy() Policy {
	return Policy{MileageRate: decimal.RequireFromString("0.70"), FreeMiles: decimal.NewFromInt(50)}
}

// MileageExpense returns 0 for zero miles and (miles - free miles) * rate otherwise.
func (p Policy) MileageExpense(miles decimal.Decimal) decimal.Decimal {
	if miles.IsZero() {
		return decimal.Zero
	}
	return money.Round(miles.Sub(p.FreeMiles).Mul(p.MileageRate))
}

type dayKey struct {
	reimbursementID string
	day             int
}

type matchedInspection struct {
	inspection tables.Inspection
	property   tables.Property
}

// Build joins the dataset for submission n.
func Build(ds *tables.Dataset, n int, policy Policy) (*Result, error) {
	st := ds.ForSubmission(n)
	if len(st.Submissions) == 0 {
		return nil, notFound(n, "no submission row")
	}
	if len(st.PerDiems) == 0 {
		return nil, notFound(n, "no per diem rows")
	}

	tl, err := timeline.Build(st.PerDiems)
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryOf(err)).
			Context("submission", n).
			Build()
	}

	res := &Result{Timeline: tl}
	res.Header = buildHeader(st, policy, &res.Warnings)

	// per diem coverage: the day a line item names, or every day it spans
	coverage := make(map[dayKey]bool)
	perDayItems := make(map[int][]tables.PerDiem)
	for _, p := range st.PerDiems {
		if p.DayNumber > 0 {
			if _, ok := tl.DateOf(p.DayNumber); !ok {
				res.Warnings = append(res.Warnings,
					fmt.Sprintf("per diem line for day %d is outside the %d day trip and was ignored", p.DayNumber, tl.Len()))
				continue
			}
			coverage[dayKey{p.ReimbursementID, p.DayNumber}] = true
			perDayItems[p.DayNumber] = append(perDayItems[p.DayNumber], p)
			continue
		}
		first, _ := timeline.ParseDate(p.FirstDay)
		last, _ := timeline.ParseDate(p.LastDay)
		if last.Before(first) {
			res.Warnings = append(res.Warnings,
				fmt.Sprintf("per diem line %s to %s ends before it starts and covers no days", p.FirstDay, p.LastDay))
			continue
		}
		for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
			day, _ := tl.DayOf(d)
			coverage[dayKey{p.ReimbursementID, day}] = true
			perDayItems[day] = append(perDayItems[day], p)
		}
	}

	properties := make(map[string]tables.Property, len(st.Properties))
	for _, p := range st.Properties {
		if _, dup := properties[p.InspectionID]; !dup {
			properties[p.InspectionID] = p
		}
	}

	perDayInspections := make(map[int][]matchedInspection)
	for _, in := range st.Inspections {
		drop := DroppedInspection{
			InspectionID:    in.InspectionID,
			PropertyID:      in.PropertyID,
			ReimbursementID: in.ReimbursementID,
			Date:            in.Date,
		}
		// an undated inspection cannot be placed on a day
		if strings.TrimSpace(in.Date) == "" {
			drop.Reason = DropNoDate
			res.Dropped = append(res.Dropped, drop)
			continue
		}
		date, err := timeline.ParseDate(in.Date)
		if err != nil {
			return nil, errors.New(err).
				Category(errors.CategoryDateParse).
				Context("submission", n).
				Context("inspection_id", in.InspectionID).
				Build()
		}
		day, ok := tl.DayOf(date)
		if !ok {
			drop.Reason = DropOutsideTrip
			res.Dropped = append(res.Dropped, drop)
			continue
		}
		if !coverage[dayKey{in.ReimbursementID, day}] {
			drop.Reason = DropNoPerDiem
			res.Dropped = append(res.Dropped, drop)
			continue
		}
		perDayInspections[day] = append(perDayInspections[day], matchedInspection{
			inspection: in,
			property:   properties[in.InspectionID],
		})
	}

	for day := 1; day <= tl.Len(); day++ {
		items, covered := perDayItems[day]
		if !covered {
			continue
		}
		date, _ := tl.DateOf(day)
		res.Rows = append(res.Rows, buildRow(day, date, items, perDayInspections[day]))
	}

	return res, nil
}

func notFound(n int, detail string) error {
	return errors.Newf("submission %d not found: %s", n, detail).
		Category(errors.CategorySubmissionNotFound).
		Context("submission", n).
		Build()
}

// buildRow groups one day: first non-empty per diem scalar wins, inspection
// and property fields are kept as ordered lists.
func buildRow(day int, date time.Time, items []tables.PerDiem, inspections []matchedInspection) DayRow {
	row := DayRow{Day: day, Date: date}
	for _, p := range items {
		firstNonEmpty(&row.ReimbursementID, p.ReimbursementID)
		firstNonEmpty(&row.PerDiem, p.PerDiem)
		firstNonEmpty(&row.LodgingRate, p.LodgingRate)
		firstNonEmpty(&row.LodgingCost, p.LodgingCost)
		firstNonEmpty(&row.LodgingTaxes, p.LodgingTaxes)
		firstNonEmpty(&row.ClaimedZip, p.ZipCode)
	}
	for _, m := range inspections {
		row.InspectionIDs = append(row.InspectionIDs, m.inspection.InspectionID)
		propertyID := m.property.PropertyID
		if propertyID == "" {
			propertyID = m.inspection.PropertyID
		}
		row.PropertyIDs = append(row.PropertyIDs, propertyID)
		row.Statuses = append(row.Statuses, m.inspection.Status)
		row.Programs = append(row.Programs, m.property.Type)
		row.PropertyNames = append(row.PropertyNames, m.property.Name)
		row.PropertyAddresses = append(row.PropertyAddresses, m.property.StreetAddress)
		row.PropertyCityStates = append(row.PropertyCityStates, m.property.CityState)
		firstNonEmpty(&row.PropertyZip, m.property.Zip)
	}
	return row
}

func firstNonEmpty(dst *string, v string) {
	if *dst == "" && v != "" {
		*dst = v
	}
}

func buildHeader(st *tables.SubmissionTables, policy Policy, warnings *[]string) Header {
	s := st.Submissions[0]
	h := Header{
		SubmissionNumber:   s.Number,
		Inspector:          s.Inspector,
		ReimbursementID:    s.ReimbursementID,
		MilesDriven:        s.MilesDriven,
		TotalReimbursement: s.TotalReimbursement,
		TotalInspections:   s.TotalInspections,
		DepartCity:         s.DepartCity,
		DepartState:        s.DepartState,
		DepartZip:          s.DepartZip,
		DestCity:           s.DestCity,
		DestState:          s.DestState,
		DestZip:            s.DestZip,
		Comments:           s.Comments,
	}
	if len(st.Transportation) > 0 {
		h.TransportationExpenses = st.Transportation[0].Expenses
	}

	miles, err := money.Parse(s.MilesDriven)
	switch {
	case err == nil:
		h.MileageExpense = money.Format(policy.MileageExpense(miles))
	case money.IsBlank(s.MilesDriven):
		h.MileageExpense = money.Format(decimal.Zero)
	default:
		*warnings = append(*warnings, "miles driven "+strconv.Quote(s.MilesDriven)+" is not a number, mileage expense not computed")
	}
	return h
}
