package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tphakala/perdiem-go/internal/errors"
)

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"plain integer", "68", "68.00"},
		{"dollar sign and comma", "$1,700.00", "1700.00"},
		{"float export", "1700.0", "1700.00"},
		{"surrounding spaces", "  51.5 ", "51.50"},
		{"space after sign", "$ 120", "120.00"},
		{"accounting negative", "(12.00)", "-12.00"},
		{"minus sign", "-3.333", "-3.33"},
		{"half cent rounds up", "0.005", "0.01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := Parse(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, Format(got))
		})
	}
}

func TestParseErrors(t *testing.T) {
	t.Parallel()

	_, err := Parse("   ")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBlank)
	assert.True(t, errors.IsCategory(err, errors.CategoryValueNormalization))

	_, err = Parse("N/A")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrBlank)
	assert.True(t, errors.IsCategory(err, errors.CategoryValueNormalization))
	assert.Contains(t, err.Error(), "N/A")
}

func TestEqualAtCentPrecision(t *testing.T) {
	t.Parallel()

	assert.True(t, Equal(MustParse("51.0"), decimal.RequireFromString("51")))
	assert.True(t, Equal(FromFloat(68*0.75), MustParse("51.00")))
	assert.False(t, Equal(MustParse("51.01"), MustParse("51")))
}

func TestIsBlank(t *testing.T) {
	t.Parallel()

	assert.True(t, IsBlank(""))
	assert.True(t, IsBlank(" \t"))
	assert.False(t, IsBlank("0"))
}
