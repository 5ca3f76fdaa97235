package reconcile

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/tphakala/perdiem-go/internal/aggregate"
	"github.com/tphakala/perdiem-go/internal/errors"
	"github.com/tphakala/perdiem-go/internal/gsa"
	"github.com/tphakala/perdiem-go/internal/money"
)

// Position locates a row within the trip.
type Position struct {
	First bool
	Last  bool
}

// Boundary reports whether the row is a travel day.
func (p Position) Boundary() bool {
	return p.First || p.Last
}

// RowRule checks one day row against its quote. It returns a nil flag when
// the row passes or the rule does not apply, and an error when a claimed
// value cannot be normalized; the error skips only this check.
type RowRule interface {
	Name() string
	Check(row *Row, pos Position, quote gsa.Quote) (*Flag, error)
}

// SubmissionRule checks submission-level values.
type SubmissionRule interface {
	Name() string
	Check(header aggregate.Header) (*Flag, error)
}

// claimed parses a claimed cell. Blank cells report ok=false without error.
func claimed(raw string) (decimal.Decimal, bool, error) {
	if money.IsBlank(raw) {
		return decimal.Zero, false, nil
	}
	d, err := money.Parse(raw)
	if err != nil {
		return decimal.Zero, false, err
	}
	return d, true, nil
}

// BoundaryMealRule checks the first and last day meal allowance.
type BoundaryMealRule struct{}

func (BoundaryMealRule) Name() string { return "boundary_meals" }

func (r BoundaryMealRule) Check(row *Row, pos Position, quote gsa.Quote) (*Flag, error) {
	if !pos.Boundary() {
		return nil, nil
	}
	amount, ok, err := claimed(row.PerDiem)
	if err != nil || !ok || amount.IsZero() {
		return nil, err
	}
	if money.Equal(amount, quote.BoundaryMeals) {
		return nil, nil
	}
	return &Flag{
		Field:    FieldPerDiem,
		Rule:     r.Name(),
		Message:  fmt.Sprintf("travel day per diem %s differs from GSA rate %s", money.Format(amount), money.Format(quote.BoundaryMeals)),
		Claimed:  row.PerDiem,
		Expected: money.Format(quote.BoundaryMeals),
	}, nil
}

// MidTripMealRule checks the full meal allowance on interior days.
type MidTripMealRule struct{}

func (MidTripMealRule) Name() string { return "mid_trip_meals" }

func (r MidTripMealRule) Check(row *Row, pos Position, quote gsa.Quote) (*Flag, error) {
	if pos.Boundary() {
		return nil, nil
	}
	amount, ok, err := claimed(row.PerDiem)
	if err != nil || !ok {
		return nil, err
	}
	if money.Equal(amount, quote.Meals) {
		return nil, nil
	}
	return &Flag{
		Field:    FieldPerDiem,
		Rule:     r.Name(),
		Message:  fmt.Sprintf("per diem %s differs from GSA rate %s", money.Format(amount), money.Format(quote.Meals)),
		Claimed:  row.PerDiem,
		Expected: money.Format(quote.Meals),
	}, nil
}

// LodgingCeilingRule flags actual lodging cost above the GSA lodging rate.
type LodgingCeilingRule struct{}

func (LodgingCeilingRule) Name() string { return "lodging_ceiling" }

func (r LodgingCeilingRule) Check(row *Row, _ Position, quote gsa.Quote) (*Flag, error) {
	amount, ok, err := claimed(row.LodgingCost)
	if err != nil || !ok {
		return nil, err
	}
	if !amount.GreaterThan(money.Round(quote.Lodging)) {
		return nil, nil
	}
	return &Flag{
		Field:    FieldLodgingCost,
		Rule:     r.Name(),
		Message:  fmt.Sprintf("lodging cost %s exceeds GSA lodging rate %s", money.Format(amount), money.Format(quote.Lodging)),
		Claimed:  row.LodgingCost,
		Expected: money.Format(quote.Lodging),
	}, nil
}

// LodgingRateRule flags a claimed lodging rate that is not the GSA rate.
type LodgingRateRule struct{}

func (LodgingRateRule) Name() string { return "lodging_rate" }

func (r LodgingRateRule) Check(row *Row, _ Position, quote gsa.Quote) (*Flag, error) {
	amount, ok, err := claimed(row.LodgingRate)
	if err != nil || !ok {
		return nil, err
	}
	if money.Equal(amount, quote.Lodging) {
		return nil, nil
	}
	return &Flag{
		Field:    FieldLodgingRate,
		Rule:     r.Name(),
		Message:  fmt.Sprintf("claimed lodging rate %s differs from GSA rate %s", money.Format(amount), money.Format(quote.Lodging)),
		Claimed:  row.LodgingRate,
		Expected: money.Format(quote.Lodging),
	}, nil
}

// InspectionCeilingRule flags a total reimbursement whose average per
// inspection is strictly above the ceiling.
type InspectionCeilingRule struct {
	Ceiling decimal.Decimal
}

func (InspectionCeilingRule) Name() string { return "inspection_ceiling" }

// errNoInspections marks a submission whose ceiling check cannot run.
var errNoInspections = errors.NewStd("total inspections is zero, per-inspection ceiling not checked")

func (r InspectionCeilingRule) Check(h aggregate.Header) (*Flag, error) {
	total, ok, err := claimed(h.TotalReimbursement)
	if err != nil || !ok {
		return nil, err
	}
	inspections, ok, err := claimed(h.TotalInspections)
	if err != nil {
		return nil, err
	}
	if !ok || inspections.IsZero() {
		return nil, errNoInspections
	}
	average := total.Div(inspections)
	if !average.GreaterThan(r.Ceiling) {
		return nil, nil
	}
	return &Flag{
		Field:    FieldTotalReimbursement,
		Rule:     r.Name(),
		Message:  fmt.Sprintf("exceeds per-inspection ceiling: %s per inspection over %s", money.Format(average), money.Format(r.Ceiling)),
		Claimed:  h.TotalReimbursement,
		Expected: money.Format(r.Ceiling.Mul(inspections)),
	}, nil
}
