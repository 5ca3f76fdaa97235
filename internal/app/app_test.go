package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tphakala/perdiem-go/internal/conf"
	"github.com/tphakala/perdiem-go/internal/errors"
)

func testSettings(t *testing.T) *conf.Settings {
	t.Helper()
	s := &conf.Settings{}
	s.Sources.Dir = t.TempDir()
	s.Sources.Submissions.Path = "submissions.csv"
	s.Sources.Inspections.Path = "inspections.csv"
	s.Sources.PerDiem.Path = "perdiem.csv"
	s.Sources.Transportation.Path = "transportation.csv"
	s.Sources.Property.Path = "property.csv"
	s.Policy = conf.PolicySettings{
		MileageRate:       0.70,
		FreeMiles:         50,
		InspectionCeiling: 400,
		BoundaryMealRatio: 0.75,
		Lodging:           conf.LodgingBoth,
	}
	return s
}

func TestNewWithoutAPIKey(t *testing.T) {
	t.Parallel()

	a, err := New(testSettings(t))
	require.NoError(t, err)
	defer a.Close()

	assert.Nil(t, a.Rates)
	assert.Nil(t, a.Notifier)
	require.NotNil(t, a.Service)
	require.NotNil(t, a.Metrics)

	// no source files exist in the temp dir
	err = a.Service.CheckAccess()
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryFileAccess))
}

func TestNewWithAPIKey(t *testing.T) {
	t.Parallel()

	s := testSettings(t)
	s.GSA.APIKey = "test-key"
	s.GSA.Year = 2024
	a, err := New(s)
	require.NoError(t, err)
	defer a.Close()

	require.NotNil(t, a.Rates)
	assert.Equal(t, 2024, a.Rates.Config().Year)
}

func TestNewRejectsNotifyWithoutURLs(t *testing.T) {
	t.Parallel()

	s := testSettings(t)
	s.Notify.Enabled = true
	_, err := New(s)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
}

func TestGSAConfig(t *testing.T) {
	t.Parallel()

	s := testSettings(t)
	s.GSA.APIKey = "k"
	s.GSA.Timeout = 5 * time.Second
	s.GSA.MaxConcurrency = 2
	s.Policy.BoundaryMealRatio = 0.5

	cfg := GSAConfig(s)
	assert.Equal(t, "k", cfg.APIKey)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.Equal(t, 2, cfg.MaxConcurrency)
	assert.InDelta(t, 0.5, cfg.BoundaryMealRatio, 1e-9)
}
