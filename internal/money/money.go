// Package money normalizes currency cells from the expense exports into
// decimals rounded to cents.
package money

import (
	"strings"

	"github.com/shopspring/decimal"
	"github.com/tphakala/perdiem-go/internal/errors"
)

// ErrBlank is returned by Parse for empty cells.
var ErrBlank = errors.NewStd("blank value")

// Parse converts a raw currency cell such as "$1,234.50", " 68 ", "1700.0"
// or "(12.00)" into a decimal rounded to cents.
func Parse(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero, errors.New(ErrBlank).
			Category(errors.CategoryValueNormalization).
			Context("value", raw).
			Build()
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	s = strings.NewReplacer("$", "", ",", "", " ", "").Replace(s)

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, errors.Newf("cannot normalize %q as an amount", raw).
			Category(errors.CategoryValueNormalization).
			Context("value", raw).
			Build()
	}
	if negative {
		d = d.Neg()
	}
	return Round(d), nil
}

// MustParse is Parse for literals in tests and constants; it panics on error.
func MustParse(raw string) decimal.Decimal {
	d, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return d
}

// IsBlank reports whether a cell holds no value at all.
func IsBlank(raw string) bool {
	return strings.TrimSpace(raw) == ""
}

// Round rounds to cents, half away from zero.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// FromFloat converts a float policy constant or API value into a cent-rounded decimal.
func FromFloat(f float64) decimal.Decimal {
	return Round(decimal.NewFromFloat(f))
}

// Equal compares two amounts at cent precision.
func Equal(a, b decimal.Decimal) bool {
	return Round(a).Equal(Round(b))
}

// Format renders an amount with exactly two decimals, e.g. "49.00".
func Format(d decimal.Decimal) string {
	return Round(d).StringFixed(2)
}
