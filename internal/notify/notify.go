// Package notify sends flagged reconciliation reports to shoutrrr services.
package notify

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"slices"
	"strings"
	"time"

	shoutrrr "github.com/nicholas-fedor/shoutrrr"
	stypes "github.com/nicholas-fedor/shoutrrr/pkg/types"
	"github.com/tphakala/perdiem-go/internal/conf"
	"github.com/tphakala/perdiem-go/internal/errors"
	"github.com/tphakala/perdiem-go/internal/logging"
	"github.com/tphakala/perdiem-go/internal/privacy"
	"github.com/tphakala/perdiem-go/internal/reconcile"
	"github.com/tphakala/perdiem-go/internal/timeline"
)

// maxListedFlags caps the flag lines in one message.
const maxListedFlags = 20

// Sender delivers a message to every configured service.
// *router.ServiceRouter satisfies it.
type Sender interface {
	Send(message string, params *stypes.Params) []error
}

// Notifier posts a summary of flagged reports.
type Notifier struct {
	sender Sender
	urls   []string
	logger *slog.Logger
}

// Option customizes a Notifier.
type Option func(*Notifier)

// WithLogger sets the notifier logger.
func WithLogger(logger *slog.Logger) Option {
	return func(n *Notifier) { n.logger = logger }
}

// WithSender replaces the shoutrrr router, mainly for tests.
func WithSender(s Sender) Option {
	return func(n *Notifier) { n.sender = s }
}

// New creates a notifier for the configured service URLs. It returns nil
// without error when notifications are disabled.
func New(settings conf.NotifySettings, opts ...Option) (*Notifier, error) {
	if !settings.Enabled {
		return nil, nil
	}
	n := &Notifier{urls: slices.Clone(settings.URLs)}
	for _, opt := range opts {
		opt(n)
	}
	if n.logger == nil {
		n.logger = logging.ForService("notify")
	}
	if n.sender != nil {
		return n, nil
	}

	if len(n.urls) == 0 {
		return nil, errors.Newf("notifications enabled but no service URLs configured").
			Category(errors.CategoryConfiguration).
			Build()
	}
	sender, err := shoutrrr.CreateSender(n.urls...)
	if err != nil {
		return nil, errors.New(privacy.WrapError(err)).
			Category(errors.CategoryConfiguration).
			Context("url_count", len(n.urls)).
			Build()
	}
	if settings.Timeout > 0 {
		sender.Timeout = settings.Timeout
	}
	sender.SetLogger(log.New(io.Discard, "", 0))
	n.sender = sender
	return n, nil
}

// Targets returns the configured services with credentials redacted.
func (n *Notifier) Targets() []string {
	targets := make([]string, len(n.urls))
	for i, u := range n.urls {
		targets[i] = privacy.RedactURL(u)
	}
	return targets
}

// NotifyFlagged sends a summary of report. Reports without flags are ignored,
// as are all reports on a nil Notifier.
func (n *Notifier) NotifyFlagged(ctx context.Context, report *reconcile.Report) error {
	if n == nil || !report.Flagged() {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return errors.New(err).
			Category(errors.CategoryCancellation).
			Context("submission", report.SubmissionNumber).
			Build()
	}

	title, body := Message(report)
	start := time.Now()
	if err := n.send(title, body); err != nil {
		return errors.New(err).
			Category(errors.CategoryIntegration).
			Context("submission", report.SubmissionNumber).
			Build()
	}
	n.logger.Info("flagged report notification sent",
		"submission", report.SubmissionNumber,
		"run_id", report.RunID,
		"flags", report.FlagCount(),
		"services", len(n.urls),
		"duration_ms", time.Since(start).Milliseconds())
	return nil
}

// SendTest sends message to every configured service.
func (n *Notifier) SendTest(ctx context.Context, title, message string) error {
	if n == nil {
		return errors.Newf("notifications are disabled").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if err := ctx.Err(); err != nil {
		return errors.New(err).Category(errors.CategoryCancellation).Build()
	}
	if err := n.send(title, message); err != nil {
		return errors.New(err).Category(errors.CategoryIntegration).Build()
	}
	return nil
}

// send delivers to all services and returns the first failure, scrubbed of
// credentials.
func (n *Notifier) send(title, body string) error {
	params := stypes.Params{}
	params.SetTitle(title)

	for _, err := range n.sender.Send(body, &params) {
		if err != nil {
			return privacy.WrapError(err)
		}
	}
	return nil
}

// Message builds the notification title and body for a flagged report.
func Message(report *reconcile.Report) (title, body string) {
	flagCount := report.FlagCount()
	title = fmt.Sprintf("Submission %d flagged: %d %s", report.SubmissionNumber, flagCount, plural(flagCount, "issue", "issues"))

	var b strings.Builder
	fmt.Fprintf(&b, "Inspector: %s\n", report.Header.Inspector)
	fmt.Fprintf(&b, "Reimbursement ID: %s\n", report.Header.ReimbursementID)
	fmt.Fprintf(&b, "Total reimbursement: %s\n", report.TotalReimbursementDisplay())

	listed := 0
	for _, f := range report.SubmissionFlags {
		if listed == maxListedFlags {
			break
		}
		fmt.Fprintf(&b, "- %s\n", f.Message)
		listed++
	}
	for i := range report.Rows {
		row := &report.Rows[i]
		for _, f := range row.Flags {
			if listed == maxListedFlags {
				break
			}
			fmt.Fprintf(&b, "- day %d (%s): %s\n", row.Day, row.Date.Format(timeline.DateLayout), f.Message)
			listed++
		}
	}
	if rest := flagCount - listed; rest > 0 {
		fmt.Fprintf(&b, "... and %d more\n", rest)
	}
	fmt.Fprintf(&b, "Run: %s", report.RunID)
	return title, b.String()
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
