package reconcile

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tphakala/perdiem-go/internal/aggregate"
	"github.com/tphakala/perdiem-go/internal/errors"
	"github.com/tphakala/perdiem-go/internal/gsa"
	"github.com/tphakala/perdiem-go/internal/money"
)

func quote(meals, lodging string) gsa.Quote {
	m := money.MustParse(meals)
	return gsa.Quote{
		Zip:           "30301",
		Month:         "June",
		Meals:         m,
		BoundaryMeals: m.Mul(decimal.RequireFromString("0.75")).Round(2),
		Lodging:       money.MustParse(lodging),
	}
}

func rowWith(perDiem, lodgingRate, lodgingCost string) *Row {
	return &Row{DayRow: aggregate.DayRow{PerDiem: perDiem, LodgingRate: lodgingRate, LodgingCost: lodgingCost}}
}

var (
	first    = Position{First: true}
	last     = Position{Last: true}
	interior = Position{}
)

func TestBoundaryMealRule(t *testing.T) {
	t.Parallel()

	q := quote("68", "110")
	require.Equal(t, "51.00", money.Format(q.BoundaryMeals))

	tests := []struct {
		name    string
		perDiem string
		pos     Position
		flagged bool
	}{
		{"full rate on first day", "68", first, true},
		{"full rate on last day", "68.00", last, true},
		{"boundary rate", "51", first, false},
		{"boundary rate with float export", "51.0", last, false},
		{"zero claim not flagged", "0", first, false},
		{"blank claim not flagged", "", first, false},
		{"interior rows ignored", "12", interior, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			flag, err := BoundaryMealRule{}.Check(rowWith(tt.perDiem, "", ""), tt.pos, q)
			require.NoError(t, err)
			if !tt.flagged {
				assert.Nil(t, flag)
				return
			}
			require.NotNil(t, flag)
			assert.Equal(t, FieldPerDiem, flag.Field)
			assert.Equal(t, "51.00", flag.Expected)
			assert.Equal(t, tt.perDiem, flag.Claimed)
		})
	}
}

func TestMidTripMealRule(t *testing.T) {
	t.Parallel()

	q := quote("68", "110")

	flag, err := MidTripMealRule{}.Check(rowWith("68", "", ""), interior, q)
	require.NoError(t, err)
	assert.Nil(t, flag)

	flag, err = MidTripMealRule{}.Check(rowWith("$51.00", "", ""), interior, q)
	require.NoError(t, err)
	require.NotNil(t, flag)
	assert.Equal(t, "68.00", flag.Expected)

	flag, err = MidTripMealRule{}.Check(rowWith("99", "", ""), first, q)
	require.NoError(t, err)
	assert.Nil(t, flag, "travel days belong to the boundary rule")
}

func TestLodgingCeilingRule(t *testing.T) {
	t.Parallel()

	q := quote("68", "110")

	for cost, flagged := range map[string]bool{
		"110":     false,
		"109.99":  false,
		"110.01":  true,
		"$125.00": true,
		"":        false,
	} {
		flag, err := LodgingCeilingRule{}.Check(rowWith("", "", cost), interior, q)
		require.NoError(t, err, cost)
		assert.Equal(t, flagged, flag != nil, "cost %q", cost)
		if flag != nil {
			assert.Equal(t, FieldLodgingCost, flag.Field)
		}
	}
}

func TestLodgingRateRule(t *testing.T) {
	t.Parallel()

	q := quote("68", "110")

	flag, err := LodgingRateRule{}.Check(rowWith("", "110.00", ""), interior, q)
	require.NoError(t, err)
	assert.Nil(t, flag)

	flag, err = LodgingRateRule{}.Check(rowWith("", "98", ""), last, q)
	require.NoError(t, err)
	require.NotNil(t, flag)
	assert.Equal(t, FieldLodgingRate, flag.Field)
	assert.Equal(t, "110.00", flag.Expected)
}

func TestRulesReportNormalizationErrors(t *testing.T) {
	t.Parallel()

	q := quote("68", "110")
	rules := []RowRule{BoundaryMealRule{}, LodgingCeilingRule{}, LodgingRateRule{}}
	row := rowWith("sixty", "n/a", "TBD")

	for _, rule := range rules {
		flag, err := rule.Check(row, first, q)
		assert.Nil(t, flag, rule.Name())
		require.Error(t, err, rule.Name())
		assert.True(t, errors.IsCategory(err, errors.CategoryValueNormalization), rule.Name())
	}
}

func TestInspectionCeilingRule(t *testing.T) {
	t.Parallel()

	rule := InspectionCeilingRule{Ceiling: decimal.NewFromInt(400)}

	flag, err := rule.Check(aggregate.Header{TotalReimbursement: "$1,700.00", TotalInspections: "4"})
	require.NoError(t, err)
	require.NotNil(t, flag, "425 per inspection exceeds 400")
	assert.Equal(t, FieldTotalReimbursement, flag.Field)
	assert.Contains(t, flag.Message, "exceeds per-inspection ceiling")

	flag, err = rule.Check(aggregate.Header{TotalReimbursement: "1600", TotalInspections: "4"})
	require.NoError(t, err)
	assert.Nil(t, flag, "exactly 400 is not flagged")

	_, err = rule.Check(aggregate.Header{TotalReimbursement: "1600", TotalInspections: "0"})
	require.ErrorIs(t, err, errNoInspections)

	_, err = rule.Check(aggregate.Header{TotalReimbursement: "lots", TotalInspections: "4"})
	assert.True(t, errors.IsCategory(err, errors.CategoryValueNormalization))
}

func TestRowDisplay(t *testing.T) {
	t.Parallel()

	row := rowWith("68", "110", "125")
	row.Flags = []Flag{{Field: FieldLodgingCost}}

	assert.Equal(t, "68", row.Display(FieldPerDiem))
	assert.Equal(t, "FLAG 125", row.Display(FieldLodgingCost))
	assert.Equal(t, "125", row.LodgingCost, "underlying value untouched")
}
