package gsa

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tphakala/perdiem-go/internal/zipcode"
)

func TestLookupSkipsSentinelAndDeduplicates(t *testing.T) {
	setupHTTPMock(t)
	registerRates(t, "30301", 2024, rateResponse(t, "30301", 68, 110))
	registerRates(t, "31201", 2024, rateResponse(t, "31201", 59, 98))

	client := newTestClient(t)
	res := client.Lookup(context.Background(),
		[]string{"30301", zipcode.Sentinel, "30301", "31201", zipcode.Sentinel},
		[]string{"June", "July"})

	assert.Equal(t, 2, httpmock.GetTotalCallCount(), "one request per distinct real ZIP")
	assert.Equal(t, 1, callCount("30301", 2024))
	assert.Equal(t, 0, callCount(zipcode.Sentinel, 2024))
	assert.Equal(t, 4, res.Len())

	_, ok := res.Quote(zipcode.Sentinel, "June")
	assert.False(t, ok)
	_, ok = res.Error(zipcode.Sentinel, "June")
	assert.False(t, ok)
}

func TestLookupQuoteValues(t *testing.T) {
	setupHTTPMock(t)
	registerRates(t, "30301", 2024, rateResponse(t, "30301", 68, 110))

	res := newTestClient(t).Lookup(context.Background(), []string{"30301"}, []string{"June"})

	q, ok := res.Quote("30301", "JUNE")
	require.True(t, ok, "month lookup is case-insensitive")
	assert.Equal(t, "68.00", q.Meals.StringFixed(2))
	assert.Equal(t, "51.00", q.BoundaryMeals.StringFixed(2))
	assert.Equal(t, "110.00", q.Lodging.StringFixed(2))
}

func TestLookupIsolatesHTTPErrors(t *testing.T) {
	setupHTTPMock(t)
	httpmock.RegisterResponder(http.MethodGet, zipURL("30301", 2024),
		httpmock.NewStringResponder(http.StatusInternalServerError, "boom"))
	registerRates(t, "31201", 2024, rateResponse(t, "31201", 59, 98))

	res := newTestClient(t).Lookup(context.Background(), []string{"30301", "31201"}, []string{"June", "July"})

	for _, month := range []string{"June", "July"} {
		le, ok := res.Error("30301", month)
		require.True(t, ok, month)
		assert.Equal(t, ReasonHTTP, le.Reason)
		assert.Equal(t, "http error: status 500", le.Message())

		q, ok := res.Quote("31201", month)
		require.True(t, ok, month)
		assert.Equal(t, "98", q.Lodging.String())
	}
	assert.Len(t, res.Errors(), 2)
	assert.Len(t, res.Quotes(), 2)
}

func TestLookupErrorReasons(t *testing.T) {
	setupHTTPMock(t)
	httpmock.RegisterResponder(http.MethodGet, zipURL("10001", 2024),
		httpmock.NewStringResponder(http.StatusOK, `{"rates":[]}`))
	httpmock.RegisterResponder(http.MethodGet, zipURL("10002", 2024),
		httpmock.NewStringResponder(http.StatusOK, `{"rates":`))
	registerRates(t, "10003", 2024, rateResponse(t, "10003", 59, 98, time.July))
	httpmock.RegisterResponder(http.MethodGet, zipURL("10004", 2024),
		httpmock.NewErrorResponder(timeoutError{}))

	res := newTestClient(t).Lookup(context.Background(),
		[]string{"10001", "10002", "10003", "10004"}, []string{"June", "July"})

	tests := []struct {
		zip, month string
		want       Reason
	}{
		{"10001", "June", ReasonNoRates},
		{"10002", "June", ReasonDecode},
		{"10003", "July", ReasonMissingMonth},
		{"10004", "June", ReasonTimeout},
	}
	for _, tt := range tests {
		le, ok := res.Error(tt.zip, tt.month)
		require.True(t, ok, "%s %s", tt.zip, tt.month)
		assert.Equal(t, tt.want, le.Reason, "%s %s", tt.zip, tt.month)
	}

	_, ok := res.Quote("10003", "June")
	assert.True(t, ok, "a missing month only affects that month")
}

func TestLookupResultOrdering(t *testing.T) {
	setupHTTPMock(t)
	registerRates(t, "31201", 2024, rateResponse(t, "31201", 59, 98))
	registerRates(t, "30301", 2024, rateResponse(t, "30301", 68, 110))

	res := newTestClient(t).Lookup(context.Background(), []string{"31201", "30301"}, []string{"July", "June"})

	var got []string
	for _, q := range res.Quotes() {
		got = append(got, q.Zip+" "+q.Month)
	}
	assert.Equal(t, []string{"30301 June", "30301 July", "31201 June", "31201 July"}, got)
}

func TestLookupNothingToDo(t *testing.T) {
	setupHTTPMock(t)

	res := newTestClient(t).Lookup(context.Background(), []string{zipcode.Sentinel}, []string{"June"})
	assert.Zero(t, res.Len())
	assert.Zero(t, httpmock.GetTotalCallCount())
}

func TestLookupUsesConfiguredYear(t *testing.T) {
	setupHTTPMock(t)
	registerRates(t, "30301", 2023, rateResponse(t, "30301", 64, 100))

	client := newTestClient(t, func(c *Config) { c.Year = 2023 })
	res := client.Lookup(context.Background(), []string{"30301"}, []string{"March"})

	q, ok := res.Quote("30301", "march")
	require.True(t, ok)
	assert.Equal(t, "100", q.Lodging.String())
	assert.Equal(t, "48.00", q.BoundaryMeals.StringFixed(2))
}
