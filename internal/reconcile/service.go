package reconcile

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tphakala/perdiem-go/internal/aggregate"
	"github.com/tphakala/perdiem-go/internal/conf"
	"github.com/tphakala/perdiem-go/internal/errors"
	"github.com/tphakala/perdiem-go/internal/gsa"
	"github.com/tphakala/perdiem-go/internal/logging"
	"github.com/tphakala/perdiem-go/internal/tables"
)

// DatasetSource provides access-checked dataset snapshots. Both
// tables.Loader and tables.SnapshotCache satisfy it.
type DatasetSource interface {
	CheckAccess() error
	Dataset(ctx context.Context) (*tables.Dataset, error)
}

// RateLookup resolves GSA quotes; *gsa.Client satisfies it.
type RateLookup interface {
	LookupYear(ctx context.Context, year int, zips, months []string) *gsa.Result
}

// Recorder receives run outcomes, e.g. for Prometheus.
type Recorder interface {
	RecordRun(status string, duration time.Duration)
	RecordFlags(rule string, count int)
	RecordWarnings(count int)
}

// Notifier is told about reports that carry flags.
type Notifier interface {
	NotifyFlagged(ctx context.Context, report *Report) error
}

// Service runs reconciliations end to end.
type Service struct {
	source   DatasetSource
	rates    RateLookup
	engine   *Engine
	mileage  aggregate.Policy
	year     int
	logger   *slog.Logger
	recorder Recorder
	notifier Notifier
	now      func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithPolicy applies the reimbursement policy settings.
func WithPolicy(p conf.PolicySettings) Option {
	return func(s *Service) {
		s.mileage = aggregate.Policy{
			MileageRate: decimal.NewFromFloat(p.MileageRate),
			FreeMiles:   decimal.NewFromFloat(p.FreeMiles),
		}
		s.engine = NewEngine(p.Lodging, decimal.NewFromFloat(p.InspectionCeiling))
	}
}

// WithRateYear pins the GSA fiscal year instead of deriving it from the trip.
func WithRateYear(year int) Option {
	return func(s *Service) { s.year = year }
}

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithRecorder forwards run metrics to r.
func WithRecorder(r Recorder) Option {
	return func(s *Service) { s.recorder = r }
}

// WithNotifier sends flagged reports to n.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// NewService creates a reconciliation service. rates may be nil, in which
// case rows are reported unresolved and only submission checks run.
func NewService(source DatasetSource, rates RateLookup, opts ...Option) *Service {
	s := &Service{
		source:  source,
		rates:   rates,
		engine:  DefaultEngine(),
		mileage: aggregate.DefaultPolicy(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logging.ForService("reconcile")
	}
	return s
}

// CheckAccess verifies that every source file is readable.
func (s *Service) CheckAccess() error {
	return s.source.CheckAccess()
}

// Reconcile produces the flagged report of one submission. File access,
// missing submission and date errors abort the run; rate lookup and value
// normalization problems are recorded on the report.
func (s *Service) Reconcile(ctx context.Context, submission int) (*Report, error) {
	start := s.now()
	runID := uuid.NewString()
	log := s.logger.With("run_id", runID, "submission", submission)

	report, err := s.reconcile(ctx, submission, runID, log)
	duration := s.now().Sub(start)

	if err != nil {
		category := errors.CategoryOf(err)
		log.Error("reconciliation failed",
			"category", string(category),
			"error", err,
			"duration_ms", duration.Milliseconds())
		s.recordRun(string(category), duration)
		return nil, err
	}

	report.Duration = duration
	s.recordRun("ok", duration)
	if s.recorder != nil {
		counts := make(map[string]int)
		for _, f := range report.Flags() {
			counts[f.Rule]++
		}
		for rule, n := range counts {
			s.recorder.RecordFlags(rule, n)
		}
		s.recorder.RecordWarnings(len(report.Warnings))
	}

	log.Info("reconciliation finished",
		"rows", len(report.Rows),
		"flags", report.FlagCount(),
		"rate_errors", len(report.RateErrors),
		"dropped_inspections", len(report.Dropped),
		"warnings", len(report.Warnings),
		"duration_ms", duration.Milliseconds())

	if s.notifier != nil && report.Flagged() {
		if err := s.notifier.NotifyFlagged(ctx, report); err != nil {
			log.Warn("flagged report notification failed", "error", err)
		}
	}
	return report, nil
}

func (s *Service) reconcile(ctx context.Context, submission int, runID string, log *slog.Logger) (*Report, error) {
	if err := s.source.CheckAccess(); err != nil {
		return nil, err
	}

	ds, err := s.source.Dataset(ctx)
	if err != nil {
		return nil, err
	}

	agg, err := aggregate.Build(ds, submission, s.mileage)
	if err != nil {
		return nil, err
	}
	log.Debug("submission aggregated",
		"days", agg.Timeline.Len(),
		"rows", len(agg.Rows),
		"dropped_inspections", len(agg.Dropped))

	zips := ResolveZips(agg.Rows)
	months := Months(agg.Rows)

	year := s.year
	if year == 0 {
		year = gsa.FiscalYear(agg.Timeline.Start())
	}

	warnings := append([]string(nil), agg.Warnings...)

	var rates *gsa.Result
	if s.rates != nil {
		rates = s.rates.LookupYear(ctx, year, zips, months)
	} else {
		warnings = append(warnings, "GSA rate lookup disabled, per diem and lodging checks skipped")
	}

	rows, submissionFlags, ruleWarnings := s.engine.Apply(agg, rates)
	warnings = append(warnings, ruleWarnings...)

	report := &Report{
		RunID:            runID,
		SubmissionNumber: submission,
		GeneratedAt:      s.now().UTC(),
		RateYear:         year,
		Header:           agg.Header,
		Rows:             rows,
		SubmissionFlags:  submissionFlags,
		Dropped:          agg.Dropped,
		Warnings:         warnings,
	}
	if rates != nil {
		report.RateErrors = rates.Errors()
		for _, le := range report.RateErrors {
			log.Warn("rate lookup failed", "zip", le.Zip, "month", le.Month, "reason", le.Message())
		}
	}
	return report, nil
}

func (s *Service) recordRun(status string, d time.Duration) {
	if s.recorder != nil {
		s.recorder.RecordRun(status, d)
	}
}
