package observability

import (
	"strings"

	"github.com/tphakala/perdiem-go/internal/logging"
)

// logWriter forwards promhttp error output to the metrics service logger.
type logWriter struct{}

func (logWriter) Write(p []byte) (int, error) {
	logging.ForService("metrics").Error("metrics handler error", "error", strings.TrimSpace(string(p)))
	return len(p), nil
}
