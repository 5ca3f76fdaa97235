// Package reconcile flags per diem, lodging and reimbursement claims that
// deviate from GSA rates or policy, and orchestrates a reconciliation run.
package reconcile

import (
	"time"

	"github.com/tphakala/perdiem-go/internal/aggregate"
	"github.com/tphakala/perdiem-go/internal/gsa"
)

// Field names a flaggable report value.
type Field string

const (
	FieldPerDiem            Field = "per_diem"
	FieldLodgingRate        Field = "lodging_rate"
	FieldLodgingCost        Field = "lodging_cost"
	FieldTotalReimbursement Field = "total_reimbursement"
)

// FlagPrefix is prepended to the display value of a flagged field.
const FlagPrefix = "FLAG "

// Flag annotates one field. The underlying value is never changed.
type Flag struct {
	Field    Field  `json:"field" yaml:"field"`
	Rule     string `json:"rule" yaml:"rule"`
	Message  string `json:"message" yaml:"message"`
	Claimed  string `json:"claimed" yaml:"claimed"`
	Expected string `json:"expected,omitempty" yaml:"expected,omitempty"`
}

// RateStatus tells whether a row could be checked against a GSA quote.
type RateStatus string

const (
	RateResolved   RateStatus = "resolved"
	RateUnresolved RateStatus = "unresolved"
)

// Row is a day row with its rate quote and flags.
type Row struct {
	aggregate.DayRow `yaml:",inline"`

	Month      string     `json:"month" yaml:"month"`
	Quote      *gsa.Quote `json:"quote,omitempty" yaml:"quote,omitempty"`
	RateStatus RateStatus `json:"rate_status" yaml:"rate_status"`
	RateError  string     `json:"rate_error,omitempty" yaml:"rate_error,omitempty"`
	Flags      []Flag     `json:"flags,omitempty" yaml:"flags,omitempty"`
}

// Flagged reports whether any rule flagged field.
func (r *Row) Flagged(field Field) bool {
	for _, f := range r.Flags {
		if f.Field == field {
			return true
		}
	}
	return false
}

// Display returns the value of field as shown in a report: the original text,
// prefixed with FlagPrefix when flagged.
func (r *Row) Display(field Field) string {
	return display(r.value(field), r.Flagged(field))
}

func (r *Row) value(field Field) string {
	switch field {
	case FieldPerDiem:
		return r.PerDiem
	case FieldLodgingRate:
		return r.LodgingRate
	case FieldLodgingCost:
		return r.LodgingCost
	}
	return ""
}

func display(value string, flagged bool) string {
	if flagged {
		return FlagPrefix + value
	}
	return value
}

// Report is the outcome of one reconciliation run.
type Report struct {
	RunID            string                        `json:"run_id" yaml:"run_id"`
	SubmissionNumber int                           `json:"submission_number" yaml:"submission_number"`
	GeneratedAt      time.Time                     `json:"generated_at" yaml:"generated_at"`
	Duration         time.Duration                 `json:"duration" yaml:"duration"`
	RateYear         int                           `json:"rate_year" yaml:"rate_year"`
	Header           aggregate.Header              `json:"header" yaml:"header"`
	Rows             []Row                         `json:"rows" yaml:"rows"`
	SubmissionFlags  []Flag                        `json:"submission_flags,omitempty" yaml:"submission_flags,omitempty"`
	RateErrors       []gsa.LookupError             `json:"rate_errors,omitempty" yaml:"rate_errors,omitempty"`
	Dropped          []aggregate.DroppedInspection `json:"dropped_inspections,omitempty" yaml:"dropped_inspections,omitempty"`
	Warnings         []string                      `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// FlagCount returns the number of row and submission flags.
func (r *Report) FlagCount() int {
	n := len(r.SubmissionFlags)
	for i := range r.Rows {
		n += len(r.Rows[i].Flags)
	}
	return n
}

// Flagged reports whether anything in the report was flagged.
func (r *Report) Flagged() bool {
	return r.FlagCount() > 0
}

// TotalReimbursementDisplay is the header total with the flag prefix when the
// per-inspection ceiling was exceeded.
func (r *Report) TotalReimbursementDisplay() string {
	flagged := false
	for _, f := range r.SubmissionFlags {
		if f.Field == FieldTotalReimbursement {
			flagged = true
			break
		}
	}
	return display(r.Header.TotalReimbursement, flagged)
}

// Flags returns every flag, submission flags first, then rows in day order.
func (r *Report) Flags() []Flag {
	out := append([]Flag(nil), r.SubmissionFlags...)
	for i := range r.Rows {
		out = append(out, r.Rows[i].Flags...)
	}
	return out
}
