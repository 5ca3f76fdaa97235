// Package tables loads the five expense exports into typed, immutable tables.
package tables

import (
	"slices"
	"strconv"
	"strings"
)

// Submission is one reimbursement request header.
type Submission struct {
	Number             int
	Inspector          string
	ReimbursementID    string
	TotalReimbursement string // raw currency cell, may contain "$" and ","
	TotalInspections   string
	MilesDriven        string
	DepartCity         string
	DepartState        string
	DepartZip          string
	DestCity           string
	DestState          string
	DestZip            string
	Comments           string
}

// Inspection is one inspection event. Several may share a date.
type Inspection struct {
	SubmissionNumber int
	ReimbursementID  string
	Inspector        string
	OriginalID       string // "Inspection Id_OG" column
	Date             string // raw MM/DD/YYYY
	PropertyID       string
	InspectionID     string
	Status           string
}

// PerDiem is one per diem line item; it anchors the report timeline.
// Exports carry one row per trip day with DayNumber set and the trip bounds
// repeated in FirstDay and LastDay. A row without a day number covers every
// day from FirstDay to LastDay.
type PerDiem struct {
	SubmissionNumber int
	ReimbursementID  string
	DayNumber        int    // 1-based trip day, 0 when the column is absent or blank
	FirstDay         string // raw MM/DD/YYYY
	LastDay          string // raw MM/DD/YYYY
	PerDiem          string
	LodgingRate      string
	LodgingCost      string
	LodgingTaxes     string
	ZipCode          string
}

// Property is reference data for an inspected property.
type Property struct {
	InspectionID  string
	PropertyID    string
	Type          string
	Name          string
	StreetAddress string
	CityState     string
	Zip           string
}

// Transportation holds the transportation cost claimed on a submission.
type Transportation struct {
	SubmissionNumber int
	Expenses         string
}

// Dataset is an immutable snapshot of all five tables. Accessors return copies.
type Dataset struct {
	submissions    []Submission
	inspections    []Inspection
	perDiems       []PerDiem
	transportation []Transportation
	properties     []Property
	warnings       []string
}

// NewDataset builds a snapshot from already typed rows. The slices are copied.
func NewDataset(subs []Submission, insps []Inspection, perDiems []PerDiem, trans []Transportation, props []Property) *Dataset {
	return &Dataset{
		submissions:    slices.Clone(subs),
		inspections:    slices.Clone(insps),
		perDiems:       slices.Clone(perDiems),
		transportation: slices.Clone(trans),
		properties:     slices.Clone(props),
	}
}

// SubmissionTables is the slice of a Dataset that belongs to one submission number.
type SubmissionTables struct {
	Number         int
	Submissions    []Submission
	Inspections    []Inspection
	PerDiems       []PerDiem
	Transportation []Transportation
	Properties     []Property // property reference is not partitioned by submission
}

// ForSubmission filters every table to submission number n. The result
// shares nothing with the Dataset.
func (d *Dataset) ForSubmission(n int) *SubmissionTables {
	st := &SubmissionTables{Number: n, Properties: slices.Clone(d.properties)}
	for _, s := range d.submissions {
		if s.Number == n {
			st.Submissions = append(st.Submissions, s)
		}
	}
	for _, in := range d.inspections {
		if in.SubmissionNumber == n {
			st.Inspections = append(st.Inspections, in)
		}
	}
	for _, p := range d.perDiems {
		if p.SubmissionNumber == n {
			st.PerDiems = append(st.PerDiems, p)
		}
	}
	for _, t := range d.transportation {
		if t.SubmissionNumber == n {
			st.Transportation = append(st.Transportation, t)
		}
	}
	return st
}

// Submissions returns a copy of the submissions table.
func (d *Dataset) Submissions() []Submission { return slices.Clone(d.submissions) }

// Inspections returns a copy of the inspections table.
func (d *Dataset) Inspections() []Inspection { return slices.Clone(d.inspections) }

// PerDiems returns a copy of the per diem table.
func (d *Dataset) PerDiems() []PerDiem { return slices.Clone(d.perDiems) }

// Transportation returns a copy of the transportation table.
func (d *Dataset) Transportation() []Transportation { return slices.Clone(d.transportation) }

// Properties returns a copy of the property reference table.
func (d *Dataset) Properties() []Property { return slices.Clone(d.properties) }

// Warnings lists rows skipped while loading.
func (d *Dataset) Warnings() []string { return slices.Clone(d.warnings) }

// NormalizeID canonicalizes identifier cells so that "1042", " 1042 " and the
// float export "1042.0" compare equal.
func NormalizeID(raw string) string {
	s := strings.TrimSpace(raw)
	if i := strings.IndexByte(s, '.'); i > 0 && strings.Trim(s[i+1:], "0") == "" {
		if _, err := strconv.ParseInt(s[:i], 10, 64); err == nil {
			return s[:i]
		}
	}
	return s
}

// ParseSubmissionNumber parses a submission number cell, accepting float exports.
func ParseSubmissionNumber(raw string) (int, bool) {
	n, err := strconv.Atoi(NormalizeID(raw))
	if err != nil {
		return 0, false
	}
	return n, true
}
