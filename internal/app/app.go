// Package app assembles the perdiem-go components from settings: source
// tables, the GSA client, metrics, notifications and the reconciliation
// service shared by the CLI commands and the HTTP server.
package app

import (
	"fmt"
	"log/slog"

	"github.com/tphakala/perdiem-go/internal/conf"
	"github.com/tphakala/perdiem-go/internal/gsa"
	"github.com/tphakala/perdiem-go/internal/logging"
	"github.com/tphakala/perdiem-go/internal/notify"
	"github.com/tphakala/perdiem-go/internal/observability"
	"github.com/tphakala/perdiem-go/internal/reconcile"
	"github.com/tphakala/perdiem-go/internal/tables"
	"github.com/tphakala/perdiem-go/internal/telemetry"
)

// Version is the release reported by the health endpoint and telemetry.
// It is set at build time with -ldflags.
var Version = "dev"

// App holds the wired components of one process.
type App struct {
	Settings *conf.Settings
	Metrics  *observability.Metrics
	Loader   *tables.Loader
	Rates    *gsa.Client // nil when no GSA API key is configured
	Notifier *notify.Notifier
	Service  *reconcile.Service

	logger *slog.Logger
	flush  func()
}

// New wires every component from settings. A missing GSA API key is not an
// error: reports are produced without rate checks.
func New(settings *conf.Settings) (*App, error) {
	a := &App{
		Settings: settings,
		logger:   logging.ForService("app"),
		flush:    func() {},
	}

	flush, err := telemetry.InitSentry(settings.Telemetry, Version)
	if err != nil {
		// telemetry is optional, keep running without it
		a.logger.Warn("Sentry initialization failed", "error", err)
	} else {
		a.flush = flush
	}

	a.Metrics, err = observability.NewMetrics()
	if err != nil {
		return nil, fmt.Errorf("error initializing metrics: %w", err)
	}

	a.Loader = tables.NewLoader(settings.Sources, logging.ForService("tables"))
	var source reconcile.DatasetSource = a.Loader
	if settings.Sources.Cache {
		source = tables.NewSnapshotCache(a.Loader)
	}

	var rates reconcile.RateLookup
	if settings.GSA.APIKey != "" {
		a.Rates, err = gsa.NewClient(GSAConfig(settings), gsa.WithMetricsRecorder(a.Metrics.Rates))
		if err != nil {
			return nil, err
		}
		rates = a.Rates
	} else {
		a.logger.Warn("No GSA API key configured, per diem and lodging checks are disabled")
	}

	a.Notifier, err = notify.New(settings.Notify)
	if err != nil {
		return nil, err
	}

	opts := []reconcile.Option{
		reconcile.WithPolicy(settings.Policy),
		reconcile.WithRateYear(settings.GSA.Year),
		reconcile.WithRecorder(a.Metrics.Reconcile),
	}
	if a.Notifier != nil {
		opts = append(opts, reconcile.WithNotifier(a.Notifier))
		a.logger.Info("Flagged report notifications enabled", "services", a.Notifier.Targets())
	}
	a.Service = reconcile.NewService(source, rates, opts...)

	return a, nil
}

// GSAConfig maps the GSA and policy settings onto a client configuration.
func GSAConfig(settings *conf.Settings) gsa.Config {
	return gsa.Config{
		APIKey:            settings.GSA.APIKey,
		BaseURL:           settings.GSA.BaseURL,
		Year:              settings.GSA.Year,
		Timeout:           settings.GSA.Timeout,
		CacheTTL:          settings.GSA.CacheTTL,
		RateLimit:         settings.GSA.RateLimit,
		Burst:             settings.GSA.Burst,
		MaxConcurrency:    settings.GSA.MaxConcurrency,
		MaxRetries:        settings.GSA.MaxRetries,
		BoundaryMealRatio: settings.Policy.BoundaryMealRatio,
	}
}

// Close flushes pending telemetry.
func (a *App) Close() {
	a.flush()
}
