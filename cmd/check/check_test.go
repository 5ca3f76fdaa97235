package check

import (
	"bytes"
	"context"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tphakala/perdiem-go/internal/conf"
	"github.com/tphakala/perdiem-go/internal/errors"
	"github.com/tphakala/perdiem-go/internal/logging"
	"github.com/tphakala/perdiem-go/internal/tables"
)

func TestRunReportsMissingSources(t *testing.T) {
	t.Parallel()

	sources := conf.SourcesSettings{
		Dir:            t.TempDir(),
		Submissions:    conf.SourceConfig{Path: "submissions.csv"},
		Inspections:    conf.SourceConfig{Path: "inspections.csv"},
		PerDiem:        conf.SourceConfig{Path: "perdiem.csv"},
		Transportation: conf.SourceConfig{Path: "transportation.csv"},
		Property:       conf.SourceConfig{Path: "property.csv"},
	}
	loader := tables.NewLoader(sources, logging.Discard())

	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)
	cmd.SetContext(context.Background())

	err := Run(cmd, loader)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryFileAccess))
	assert.Contains(t, out.String(), "submissions.csv")
	assert.Contains(t, out.String(), "not accessible")
}
