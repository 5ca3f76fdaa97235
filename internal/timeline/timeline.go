// Package timeline maps a submission's trip dates onto contiguous day numbers.
package timeline

import (
	"strings"
	"time"

	"github.com/tphakala/perdiem-go/internal/errors"
	"github.com/tphakala/perdiem-go/internal/tables"
)

// DateLayout is the date format of the expense exports.
const DateLayout = "01/02/2006"

// dateLayouts are tried in order; the second accepts non-padded months and days.
var dateLayouts = []string{DateLayout, "1/2/2006"}

// Timeline is the inclusive date range of one submission. Day numbers start
// at 1 and have no gaps.
type Timeline struct {
	start time.Time
	days  int
}

// ParseDate parses a MM/DD/YYYY cell into a UTC midnight date.
func ParseDate(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	// spreadsheet exports sometimes append a midnight time
	if i := strings.IndexByte(s, ' '); i > 0 {
		s = s[:i]
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.Newf("cannot parse date %q, expected MM/DD/YYYY", raw).
		Category(errors.CategoryDateParse).
		Context("value", raw).
		Build()
}

// Build derives the timeline from the per diem rows of a single submission:
// start is the earliest first day and end the latest last day.
func Build(perDiems []tables.PerDiem) (*Timeline, error) {
	if len(perDiems) == 0 {
		return nil, errors.Newf("no per diem rows for submission").
			Category(errors.CategorySubmissionNotFound).
			Build()
	}

	var start, end time.Time
	for i, p := range perDiems {
		first, err := ParseDate(p.FirstDay)
		if err != nil {
			return nil, withRow(err, p, "First Day")
		}
		last, err := ParseDate(p.LastDay)
		if err != nil {
			return nil, withRow(err, p, "Last Day")
		}
		if i == 0 || first.Before(start) {
			start = first
		}
		if i == 0 || last.After(end) {
			end = last
		}
	}

	if end.Before(start) {
		return nil, errors.Newf("per diem range ends %s before it starts %s",
			end.Format(DateLayout), start.Format(DateLayout)).
			Category(errors.CategoryDateParse).
			Context("submission", perDiems[0].SubmissionNumber).
			Build()
	}

	return &Timeline{start: start, days: daysBetween(start, end) + 1}, nil
}

func withRow(err error, p tables.PerDiem, column string) error {
	return errors.New(err).
		Category(errors.CategoryDateParse).
		Context("submission", p.SubmissionNumber).
		Context("column", column).
		Build()
}

// daysBetween counts calendar days; dates are UTC midnights so there is no DST drift.
func daysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}

// Len returns the number of days in the timeline.
func (t *Timeline) Len() int { return t.days }

// Start returns day 1.
func (t *Timeline) Start() time.Time { return t.start }

// End returns the last day.
func (t *Timeline) End() time.Time { return t.start.AddDate(0, 0, t.days-1) }

// DayOf returns the day number of a date, or false if it is outside the range.
func (t *Timeline) DayOf(date time.Time) (int, bool) {
	d := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	n := daysBetween(t.start, d)
	if d.Before(t.start) || n >= t.days {
		return 0, false
	}
	return n + 1, true
}

// DateOf returns the date of a day number, or false if the number is out of range.
func (t *Timeline) DateOf(day int) (time.Time, bool) {
	if day < 1 || day > t.days {
		return time.Time{}, false
	}
	return t.start.AddDate(0, 0, day-1), true
}

// Dates returns every date of the timeline in order.
func (t *Timeline) Dates() []time.Time {
	dates := make([]time.Time, t.days)
	for i := range dates {
		dates[i] = t.start.AddDate(0, 0, i)
	}
	return dates
}

// Months returns the distinct full month names covered, in calendar order.
func (t *Timeline) Months() []string {
	var months []string
	seen := make(map[string]bool)
	for _, d := range t.Dates() {
		m := d.Month().String()
		if !seen[m] {
			seen[m] = true
			months = append(months, m)
		}
	}
	return months
}
