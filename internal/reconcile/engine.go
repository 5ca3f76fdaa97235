package reconcile

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/tphakala/perdiem-go/internal/aggregate"
	"github.com/tphakala/perdiem-go/internal/conf"
	"github.com/tphakala/perdiem-go/internal/gsa"
	"github.com/tphakala/perdiem-go/internal/zipcode"
)

// Engine applies the flagging rules to aggregated rows.
type Engine struct {
	rowRules        []RowRule
	submissionRules []SubmissionRule
}

// NewEngine builds an engine for a lodging policy and per-inspection ceiling.
func NewEngine(lodging conf.LodgingPolicy, inspectionCeiling decimal.Decimal) *Engine {
	rowRules := []RowRule{BoundaryMealRule{}, MidTripMealRule{}}
	switch lodging {
	case conf.LodgingCeiling:
		rowRules = append(rowRules, LodgingCeilingRule{})
	case conf.LodgingRate:
		rowRules = append(rowRules, LodgingRateRule{})
	default:
		rowRules = append(rowRules, LodgingCeilingRule{}, LodgingRateRule{})
	}
	return &Engine{
		rowRules:        rowRules,
		submissionRules: []SubmissionRule{InspectionCeilingRule{Ceiling: inspectionCeiling}},
	}
}

// DefaultEngine checks both lodging rules with a $400 ceiling.
func DefaultEngine() *Engine {
	return NewEngine(conf.LodgingBoth, decimal.NewFromInt(400))
}

// RuleNames lists the active rules in evaluation order.
func (e *Engine) RuleNames() []string {
	var names []string
	for _, r := range e.rowRules {
		names = append(names, r.Name())
	}
	for _, r := range e.submissionRules {
		names = append(names, r.Name())
	}
	return names
}

// ResolveZips sets the canonical ZIP of every row and returns the distinct
// ZIPs in first-seen order, the sentinel included.
func ResolveZips(rows []aggregate.DayRow) []string {
	var zips []string
	seen := make(map[string]bool)
	for i := range rows {
		rows[i].ResolvedZip = zipcode.Normalize(rows[i].ClaimedZip, rows[i].PropertyZip)
		if z := rows[i].ResolvedZip; !seen[z] {
			seen[z] = true
			zips = append(zips, z)
		}
	}
	return zips
}

// Months returns the distinct month names of the row dates in row order.
func Months(rows []aggregate.DayRow) []string {
	var months []string
	seen := make(map[string]bool)
	for _, r := range rows {
		m := r.Date.Month().String()
		if !seen[m] {
			seen[m] = true
			months = append(months, m)
		}
	}
	return months
}

// Apply flags the rows of an aggregate result against the rate lookup
// result. rates may be nil when no lookup was made; every row is then
// unresolved. Normalization failures become warnings.
func (e *Engine) Apply(agg *aggregate.Result, rates *gsa.Result) (rows []Row, submissionFlags []Flag, warnings []string) {
	rows = make([]Row, len(agg.Rows))
	for i, dr := range agg.Rows {
		row := Row{DayRow: dr, Month: dr.Date.Month().String(), RateStatus: RateUnresolved}

		switch {
		case zipcode.IsSentinel(dr.ResolvedZip):
			row.RateError = "no usable zip code"
		case rates == nil:
			row.RateError = "rate lookup not performed"
		default:
			if q, ok := rates.Quote(dr.ResolvedZip, row.Month); ok {
				row.Quote = &q
				row.RateStatus = RateResolved
			} else if le, ok := rates.Error(dr.ResolvedZip, row.Month); ok {
				row.RateError = le.Message()
			} else {
				row.RateError = "no rate entry"
			}
		}

		if row.Quote != nil {
			pos := Position{First: i == 0, Last: i == len(agg.Rows)-1}
			for _, rule := range e.rowRules {
				flag, err := rule.Check(&row, pos, *row.Quote)
				if err != nil {
					warnings = append(warnings, fmt.Sprintf("day %d %s: %v", row.Day, rule.Name(), err))
					continue
				}
				if flag != nil {
					row.Flags = append(row.Flags, *flag)
				}
			}
		}
		rows[i] = row
	}

	for _, rule := range e.submissionRules {
		flag, err := rule.Check(agg.Header)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("submission %s: %v", rule.Name(), err))
			continue
		}
		if flag != nil {
			submissionFlags = append(submissionFlags, *flag)
		}
	}
	return rows, submissionFlags, warnings
}
