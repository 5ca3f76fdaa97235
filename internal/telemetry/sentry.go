// Package telemetry wires opt-in Sentry error reporting.
package telemetry

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/tphakala/perdiem-go/internal/conf"
	"github.com/tphakala/perdiem-go/internal/errors"
	"github.com/tphakala/perdiem-go/internal/logging"
	"github.com/tphakala/perdiem-go/internal/privacy"
)

// flushTimeout bounds how long shutdown waits for queued events.
const flushTimeout = 2 * time.Second

// ReportedCategories are the error categories sent to Sentry: the ones that
// abort a reconciliation and the ones that point at a broken deployment.
var ReportedCategories = []errors.ErrorCategory{
	errors.CategoryFileAccess,
	errors.CategoryDateParse,
	errors.CategoryConfiguration,
	errors.CategoryFileIO,
}

// InitSentry initializes the Sentry SDK and installs the error reporter when
// telemetry is enabled. The returned function flushes pending events and is
// safe to call when telemetry is disabled.
func InitSentry(settings conf.TelemetrySettings, release string) (func(), error) {
	if !settings.Enabled {
		return func() {}, nil
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              settings.SentryDSN,
		SampleRate:       1.0,
		AttachStacktrace: false,
		Environment:      "production",
		ServerName:       "",
		Release:          "perdiem-go@" + release,
		BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			return applyPrivacyFilters(event)
		},
	})
	if err != nil {
		return func() {}, errors.New(fmt.Errorf("sentry initialization failed: %w", err)).
			Category(errors.CategoryConfiguration).
			Build()
	}

	errors.SetTelemetryReporter(errors.NewSentryReporter(true, ReportedCategories...))
	logging.ForService("telemetry").Info("sentry error reporting enabled",
		"categories", len(ReportedCategories))

	return func() { sentry.Flush(flushTimeout) }, nil
}

// applyPrivacyFilters strips host and user data and scrubs URLs from messages.
func applyPrivacyFilters(event *sentry.Event) *sentry.Event {
	event.User = sentry.User{}
	event.ServerName = ""

	if event.Contexts != nil {
		delete(event.Contexts, "device")
		delete(event.Contexts, "os")
	}
	if event.Tags != nil {
		delete(event.Tags, "server_name")
		delete(event.Tags, "hostname")
	}

	event.Message = privacy.ScrubMessage(event.Message)
	for i := range event.Exception {
		event.Exception[i].Value = privacy.ScrubMessage(event.Exception[i].Value)
	}
	return event
}
