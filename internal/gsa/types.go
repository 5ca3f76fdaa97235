// Package gsa provides a client for the GSA per diem rates API v2.
package gsa

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Config holds configuration for the GSA client
type Config struct {
	APIKey            string        `json:"api_key"`
	BaseURL           string        `json:"base_url"`
	Year              int           `json:"year"` // fiscal year, 0 lets the caller decide
	Timeout           time.Duration `json:"timeout"`
	CacheTTL          time.Duration `json:"cache_ttl"`
	RateLimit         float64       `json:"rate_limit"` // requests per second
	Burst             int           `json:"burst"`
	MaxConcurrency    int           `json:"max_concurrency"`
	MaxRetries        int           `json:"max_retries"`
	BoundaryMealRatio float64       `json:"boundary_meal_ratio"` // share of meals paid on travel days
}

// DefaultConfig returns production defaults for the GSA API.
func DefaultConfig() Config {
	return Config{
		BaseURL:           "https://api.gsa.gov/travel/perdiem/v2",
		Timeout:           10 * time.Second,
		CacheTTL:          24 * time.Hour,
		RateLimit:         5,
		Burst:             5,
		MaxConcurrency:    4,
		MaxRetries:        3,
		BoundaryMealRatio: 0.75,
	}
}

// apiResponse is the body of GET /rates/zip/{zip}/year/{year}.
type apiResponse struct {
	Rates []apiRateGroup `json:"rates"`
}

type apiRateGroup struct {
	State string    `json:"state"`
	Year  int       `json:"year"`
	Rate  []apiRate `json:"rate"`
}

type apiRate struct {
	City   string          `json:"city"`
	County string          `json:"county"`
	Zip    string          `json:"zip"`
	Meals  decimal.Decimal `json:"meals"`
	Months struct {
		Month []apiMonth `json:"month"`
	} `json:"months"`
}

type apiMonth struct {
	Value  decimal.Decimal `json:"value"`
	Number int             `json:"number"`
	Short  string          `json:"short"`
	Long   string          `json:"long"`
}

// ZipRates is the decoded rate data for one ZIP and fiscal year.
type ZipRates struct {
	Zip     string
	Year    int
	City    string
	County  string
	State   string
	Meals   decimal.Decimal
	Lodging map[string]decimal.Decimal // keyed by lowercase long month name
}

// LodgingFor returns the lodging rate of a month given by long or short name.
func (z *ZipRates) LodgingFor(month string) (decimal.Decimal, bool) {
	key := monthKey(month)
	v, ok := z.Lodging[key]
	return v, ok
}

// Quote is the resolved rate for one (ZIP, month).
type Quote struct {
	Zip           string          `json:"zip" yaml:"zip"`
	Month         string          `json:"month" yaml:"month"`
	Meals         decimal.Decimal `json:"meals" yaml:"meals"`
	BoundaryMeals decimal.Decimal `json:"boundary_meals" yaml:"boundary_meals"`
	Lodging       decimal.Decimal `json:"lodging" yaml:"lodging"`
}

// Reason classifies why a (ZIP, month) has no quote.
type Reason string

const (
	ReasonHTTP         Reason = "http error"
	ReasonNoRates      Reason = "no rate data for zip"
	ReasonMissingMonth Reason = "no lodging rate for month"
	ReasonDecode       Reason = "invalid response payload"
	ReasonTimeout      Reason = "request timed out"
)

// LookupError is the per-entry failure of a rate lookup. It never aborts a run.
type LookupError struct {
	Zip    string `json:"zip" yaml:"zip"`
	Month  string `json:"month" yaml:"month"`
	Reason Reason `json:"reason" yaml:"reason"`
	Detail string `json:"detail,omitempty" yaml:"detail,omitempty"`
}

// Message renders the reason with its detail, e.g. "http error: status 503".
func (e LookupError) Message() string {
	if e.Detail == "" {
		return string(e.Reason)
	}
	return fmt.Sprintf("%s: %s", e.Reason, e.Detail)
}

func (e LookupError) Error() string {
	return fmt.Sprintf("rate lookup for zip %s, %s: %s", e.Zip, e.Month, e.Message())
}

// lookupKey identifies a (ZIP, month) regardless of month casing.
type lookupKey struct {
	zip   string
	month string
}

func newLookupKey(zip, month string) lookupKey {
	return lookupKey{zip: zip, month: monthKey(month)}
}

// monthKey maps "Jan", "january" and "JANUARY" onto "january".
func monthKey(month string) string {
	m := strings.ToLower(strings.TrimSpace(month))
	for i := time.January; i <= time.December; i++ {
		long := strings.ToLower(i.String())
		if m == long || m == long[:3] {
			return long
		}
	}
	return m
}
