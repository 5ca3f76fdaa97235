package gsa

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tphakala/perdiem-go/internal/errors"
	"github.com/tphakala/perdiem-go/internal/zipcode"
	"golang.org/x/sync/errgroup"
)

// Result holds one entry per requested (ZIP, month): a Quote or a LookupError.
type Result struct {
	quotes map[lookupKey]Quote
	errs   map[lookupKey]LookupError
}

func newResult() *Result {
	return &Result{
		quotes: make(map[lookupKey]Quote),
		errs:   make(map[lookupKey]LookupError),
	}
}

// NewResult assembles a Result from quotes and errors, e.g. ones restored
// from a report.
func NewResult(quotes []Quote, errs []LookupError) *Result {
	r := newResult()
	for _, q := range quotes {
		r.quotes[newLookupKey(q.Zip, q.Month)] = q
	}
	for _, e := range errs {
		r.errs[newLookupKey(e.Zip, e.Month)] = e
	}
	return r
}

// Quote returns the quote for a ZIP and month name, case-insensitively.
func (r *Result) Quote(zip, month string) (Quote, bool) {
	q, ok := r.quotes[newLookupKey(zip, month)]
	return q, ok
}

// Error returns the lookup error for a ZIP and month name.
func (r *Result) Error(zip, month string) (LookupError, bool) {
	e, ok := r.errs[newLookupKey(zip, month)]
	return e, ok
}

// Quotes returns all quotes sorted by ZIP then month.
func (r *Result) Quotes() []Quote {
	out := make([]Quote, 0, len(r.quotes))
	for _, q := range r.quotes {
		out = append(out, q)
	}
	slices.SortFunc(out, func(a, b Quote) int {
		return cmp.Or(cmp.Compare(a.Zip, b.Zip), compareMonths(a.Month, b.Month))
	})
	return out
}

// Errors returns all lookup errors sorted by ZIP then month.
func (r *Result) Errors() []LookupError {
	out := make([]LookupError, 0, len(r.errs))
	for _, e := range r.errs {
		out = append(out, e)
	}
	slices.SortFunc(out, func(a, b LookupError) int {
		return cmp.Or(cmp.Compare(a.Zip, b.Zip), compareMonths(a.Month, b.Month))
	})
	return out
}

// Len returns the number of entries, quotes and errors together.
func (r *Result) Len() int {
	return len(r.quotes) + len(r.errs)
}

func compareMonths(a, b string) int {
	return cmp.Compare(monthNumber(a), monthNumber(b))
}

func monthNumber(name string) int {
	key := monthKey(name)
	for m := time.January; m <= time.December; m++ {
		if monthKey(m.String()) == key {
			return int(m)
		}
	}
	return 13
}

// Lookup resolves every (ZIP, month) pair for the configured fiscal year, or
// the current one when none is configured.
func (c *Client) Lookup(ctx context.Context, zips, months []string) *Result {
	year := c.config.Year
	if year == 0 {
		year = FiscalYear(time.Now())
	}
	return c.LookupYear(ctx, year, zips, months)
}

// LookupYear resolves every (ZIP, month) pair against one fiscal year. ZIPs
// are deduplicated and the missing ZIP sentinel is never queried. One request
// is made per ZIP; a failing ZIP only produces error entries for its own pairs.
func (c *Client) LookupYear(ctx context.Context, year int, zips, months []string) *Result {
	res := newResult()

	var unique []string
	seen := make(map[string]bool)
	for _, z := range zips {
		if z == "" || zipcode.IsSentinel(z) || seen[z] {
			continue
		}
		seen[z] = true
		unique = append(unique, z)
	}
	if len(unique) == 0 || len(months) == 0 {
		return res
	}

	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(min(c.config.MaxConcurrency, len(unique)))

	start := time.Now()
	for _, zip := range unique {
		g.Go(func() error {
			rates, err := c.FetchZip(ctx, zip, year)

			mu.Lock()
			defer mu.Unlock()
			for _, month := range months {
				key := newLookupKey(zip, month)
				if err != nil {
					le := classify(zip, month, err)
					res.errs[key] = le
					c.recordLookupError(le.Reason)
					continue
				}
				lodging, ok := rates.LodgingFor(month)
				if !ok {
					le := LookupError{Zip: zip, Month: month, Reason: ReasonMissingMonth}
					res.errs[key] = le
					c.recordLookupError(le.Reason)
					continue
				}
				res.quotes[key] = Quote{
					Zip:           zip,
					Month:         month,
					Meals:         rates.Meals,
					BoundaryMeals: c.boundaryMeals(rates.Meals),
					Lodging:       lodging,
				}
			}
			return nil
		})
	}
	// goroutines never return errors; failures are recorded per entry
	_ = g.Wait()

	c.logger.Info("GSA rate lookup finished",
		"year", year,
		"zips", len(unique),
		"months", len(months),
		"quotes", len(res.quotes),
		"errors", len(res.errs),
		"duration_ms", time.Since(start).Milliseconds())

	return res
}

// boundaryMeals is the first/last day meal allowance rounded to cents.
func (c *Client) boundaryMeals(meals decimal.Decimal) decimal.Decimal {
	return meals.Mul(decimal.NewFromFloat(c.config.BoundaryMealRatio)).Round(2)
}

func (c *Client) recordLookupError(reason Reason) {
	if c.recorder != nil {
		c.recorder.RecordRateLookupError(string(reason))
	}
}

// classify maps a FetchZip error onto a LookupError reason.
func classify(zip, month string, err error) LookupError {
	le := LookupError{Zip: zip, Month: month, Reason: ReasonHTTP}

	var enhancedErr *errors.EnhancedError
	if errors.As(err, &enhancedErr) {
		if reason, ok := enhancedErr.Context["reason"].(string); ok {
			le.Reason = Reason(reason)
			return le
		}
		if status, ok := enhancedErr.Context["status_code"].(int); ok {
			le.Detail = fmt.Sprintf("status %d", status)
			return le
		}
		if enhancedErr.Category == errors.CategoryTimeout || enhancedErr.Category == errors.CategoryCancellation {
			le.Reason = ReasonTimeout
			return le
		}
	}
	if isTimeout(err) {
		le.Reason = ReasonTimeout
		return le
	}
	le.Detail = err.Error()
	return le
}

// FiscalYear returns the federal fiscal year of a date; it starts on October 1.
func FiscalYear(t time.Time) int {
	if t.Month() >= time.October {
		return t.Year() + 1
	}
	return t.Year()
}
