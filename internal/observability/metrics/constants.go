// Package metrics defines the Prometheus collectors of perdiem-go.
package metrics

// Label values shared across collectors.
const (
	StatusOK    = "ok"
	StatusError = "error"

	CacheHit  = "hit"
	CacheMiss = "miss"
)

// Histogram bucket configuration.
const (
	// BucketStart1ms is the starting bucket for 1ms histograms (1ms to ~1s range).
	BucketStart1ms = 0.001
	// BucketStart10ms is the starting bucket for 10ms histograms (10ms to ~40s range).
	BucketStart10ms = 0.01
	// BucketStart100B is the starting bucket for 100 byte histograms (100B to ~100MB range).
	BucketStart100B = 100.0

	// BucketFactor2 is the common exponential growth factor for histogram buckets.
	BucketFactor2 = 2
	// BucketFactor4 suits size histograms.
	BucketFactor4 = 4

	BucketCount10 = 10
	BucketCount12 = 12
)
