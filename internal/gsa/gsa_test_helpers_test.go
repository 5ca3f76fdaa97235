package gsa

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/require"
	"github.com/tphakala/perdiem-go/internal/logging"
)

const testBaseURL = "https://api.test/travel/perdiem/v2"

func setupHTTPMock(t *testing.T) {
	t.Helper()
	httpmock.Activate()
	t.Cleanup(httpmock.DeactivateAndReset)
}

// newTestClient builds a client against testBaseURL with fast limits.
func newTestClient(t *testing.T, mutators ...func(*Config)) *Client {
	t.Helper()
	cfg := Config{
		APIKey:         "test-key",
		BaseURL:        testBaseURL,
		Year:           2024,
		Timeout:        2 * time.Second,
		CacheTTL:       time.Hour,
		RateLimit:      1000,
		Burst:          100,
		MaxConcurrency: 4,
		MaxRetries:     1,
	}
	for _, m := range mutators {
		m(&cfg)
	}
	client, err := NewClient(cfg, WithLogger(logging.Discard()))
	require.NoError(t, err)
	return client
}

func zipURL(zip string, year int) string {
	return fmt.Sprintf("%s/rates/zip/%s/year/%d", testBaseURL, zip, year)
}

// rateResponse renders a GSA response with a flat lodging rate for every
// month except the ones listed in skip.
func rateResponse(t *testing.T, zip string, meals, lodging float64, skip ...time.Month) string {
	t.Helper()

	skipped := make(map[time.Month]bool)
	for _, m := range skip {
		skipped[m] = true
	}
	var months []map[string]any
	for m := time.January; m <= time.December; m++ {
		if skipped[m] {
			continue
		}
		months = append(months, map[string]any{
			"value":  lodging,
			"number": int(m),
			"short":  m.String()[:3],
			"long":   m.String(),
		})
	}
	body := map[string]any{
		"rates": []any{map[string]any{
			"state": "GA",
			"year":  2024,
			"rate": []any{map[string]any{
				"city":   "Atlanta",
				"county": "Fulton",
				"zip":    zip,
				"meals":  meals,
				"months": map[string]any{"month": months},
			}},
		}},
	}
	data, err := json.Marshal(body)
	require.NoError(t, err)
	return string(data)
}

// registerRates answers a ZIP request, checking the API key header.
func registerRates(t *testing.T, zip string, year int, body string) {
	t.Helper()
	httpmock.RegisterResponder(http.MethodGet, zipURL(zip, year),
		func(req *http.Request) (*http.Response, error) {
			if req.Header.Get("X-API-KEY") != "test-key" {
				return httpmock.NewStringResponse(http.StatusForbidden, `{"error":"forbidden"}`), nil
			}
			resp := httpmock.NewStringResponse(http.StatusOK, body)
			resp.Header.Set("Content-Type", "application/json")
			return resp, nil
		})
}

func callCount(zip string, year int) int {
	return httpmock.GetCallCountInfo()["GET "+zipURL(zip, year)]
}

// timeoutError mimics a transport timeout.
type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }
