package gsa

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"github.com/tphakala/perdiem-go/internal/errors"
	"github.com/tphakala/perdiem-go/internal/logging"
	"golang.org/x/time/rate"
)

// MetricsRecorder receives request and cache events, e.g. for Prometheus.
type MetricsRecorder interface {
	RecordRateRequest(status string, duration time.Duration)
	RecordRateCache(hit bool)
	RecordRateLookupError(reason string)
}

// Client provides methods for interacting with the GSA per diem API
type Client struct {
	config     Config
	httpClient *http.Client
	cache      *cache.Cache
	limiter    *rate.Limiter
	logger     *slog.Logger
	recorder   MetricsRecorder

	// Metrics
	metrics struct {
		apiCalls      int64
		cacheHits     int64
		cacheMisses   int64
		apiErrors     int64
		totalDuration time.Duration
		mu            sync.RWMutex
	}
}

// Option customizes a Client.
type Option func(*Client)

// WithLogger sets the client logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithHTTPClient replaces the HTTP client. Its timeout is left untouched.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithMetricsRecorder forwards request and cache events to r.
func WithMetricsRecorder(r MetricsRecorder) Option {
	return func(c *Client) { c.recorder = r }
}

// NewClient creates a new GSA API client
func NewClient(config Config, opts ...Option) (*Client, error) {
	if config.APIKey == "" {
		return nil, errors.Newf("GSA API key is required").
			Category(errors.CategoryConfiguration).
			Component("gsa").
			Build()
	}

	// Use defaults for missing config values
	defaults := DefaultConfig()
	if config.BaseURL == "" {
		config.BaseURL = defaults.BaseURL
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}
	if config.CacheTTL <= 0 {
		config.CacheTTL = defaults.CacheTTL
	}
	if config.RateLimit <= 0 {
		config.RateLimit = defaults.RateLimit
	}
	if config.Burst < 1 {
		config.Burst = defaults.Burst
	}
	if config.MaxConcurrency < 1 {
		config.MaxConcurrency = defaults.MaxConcurrency
	}
	if config.MaxRetries < 1 {
		config.MaxRetries = defaults.MaxRetries
	}
	if config.BoundaryMealRatio <= 0 {
		config.BoundaryMealRatio = defaults.BoundaryMealRatio
	}

	client := &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		cache:      cache.New(config.CacheTTL, config.CacheTTL*2),
		limiter:    rate.NewLimiter(rate.Limit(config.RateLimit), config.Burst),
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.logger == nil {
		client.logger = logging.ForService("gsa")
	}

	client.logger.Info("GSA client initialized",
		"base_url", config.BaseURL,
		"cache_ttl", config.CacheTTL,
		"rate_limit", config.RateLimit,
		"max_concurrency", config.MaxConcurrency,
		"api_key_configured", config.APIKey != "")

	return client, nil
}

// Config returns the effective client configuration.
func (c *Client) Config() Config {
	return c.config
}

// FetchZip retrieves the rates of one ZIP for a fiscal year, using the cache
// when possible.
func (c *Client) FetchZip(ctx context.Context, zip string, year int) (*ZipRates, error) {
	cacheKey := fmt.Sprintf("%s:%d", zip, year)

	if cached, found := c.cache.Get(cacheKey); found {
		if rates, ok := cached.(*ZipRates); ok {
			c.metrics.mu.Lock()
			c.metrics.cacheHits++
			c.metrics.mu.Unlock()
			c.recordCache(true)

			c.logger.Debug("GSA rates cache hit", "cache_key", cacheKey)
			return rates, nil
		}
	}

	c.metrics.mu.Lock()
	c.metrics.cacheMisses++
	c.metrics.mu.Unlock()
	c.recordCache(false)

	// Apply timeout to the request including retries
	reqCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	url := fmt.Sprintf("%s/rates/zip/%s/year/%d", c.config.BaseURL, zip, year)

	var payload apiResponse
	if err := c.doRequestWithRetry(reqCtx, url, &payload); err != nil {
		return nil, err
	}

	rates, err := decodeZipRates(zip, year, &payload)
	if err != nil {
		return nil, err
	}

	c.cache.Set(cacheKey, rates, cache.DefaultExpiration)
	c.logger.Debug("GSA rates cached",
		"cache_key", cacheKey,
		"city", rates.City,
		"months", len(rates.Lodging))

	return rates, nil
}

// decodeZipRates picks the first rate entry that carries month data.
func decodeZipRates(zip string, year int, payload *apiResponse) (*ZipRates, error) {
	for _, group := range payload.Rates {
		for i := range group.Rate {
			r := &group.Rate[i]
			if len(r.Months.Month) == 0 {
				continue
			}
			rates := &ZipRates{
				Zip:     zip,
				Year:    year,
				City:    r.City,
				County:  r.County,
				State:   group.State,
				Meals:   r.Meals,
				Lodging: make(map[string]decimal.Decimal, len(r.Months.Month)),
			}
			for _, m := range r.Months.Month {
				name := m.Long
				if name == "" && m.Number >= 1 && m.Number <= 12 {
					name = time.Month(m.Number).String()
				}
				rates.Lodging[monthKey(name)] = m.Value
			}
			return rates, nil
		}
	}
	return nil, errors.Newf("no rate data for zip %s", zip).
		Category(errors.CategoryRateLookup).
		Context("zip", zip).
		Context("year", year).
		Context("reason", string(ReasonNoRates)).
		Component("gsa").
		Build()
}

// doRequest performs a single GET, honouring the rate limiter.
func (c *Client) doRequest(ctx context.Context, url string, result any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return errors.New(err).
			Category(errors.CategoryTimeout).
			Context("url", url).
			Component("gsa").
			Build()
	}

	start := time.Now()

	c.metrics.mu.Lock()
	c.metrics.apiCalls++
	c.metrics.mu.Unlock()

	defer func() {
		c.metrics.mu.Lock()
		c.metrics.totalDuration += time.Since(start)
		c.metrics.mu.Unlock()
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		c.countError()
		return errors.Newf("failed to create HTTP request: %w", err).
			Category(errors.CategoryNetwork).
			Context("url", url).
			Component("gsa").
			Build()
	}

	req.Header.Set("X-API-KEY", c.config.APIKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.countError()
		c.recordRequest("transport_error", start)

		c.logger.Error("GSA API request failed",
			"error", err,
			"url", url)
		category := errors.CategoryNetwork
		if ctx.Err() != nil || isTimeout(err) {
			category = errors.CategoryTimeout
		}
		return errors.Newf("HTTP request failed: %w", err).
			Category(category).
			Context("url", url).
			Component("gsa").
			Build()
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	c.recordRequest(fmt.Sprintf("%d", resp.StatusCode), start)

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		c.countError()
		return errors.Newf("failed to read response body: %w", err).
			Category(errors.CategoryNetwork).
			Context("url", url).
			Context("status_code", resp.StatusCode).
			Component("gsa").
			Build()
	}

	if resp.StatusCode >= 400 {
		c.countError()

		preview := string(bodyBytes)
		if len(preview) > 500 {
			preview = preview[:500] + "..."
		}
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			c.logger.Error("GSA API authentication failed",
				"status_code", resp.StatusCode,
				"url", url,
				"message", "Check the GSA API key in the configuration")
		} else {
			c.logger.Error("GSA API error",
				"status_code", resp.StatusCode,
				"url", url,
				"response_body", preview)
		}

		return errors.Newf("GSA API error (status %d)", resp.StatusCode).
			Category(getErrorCategory(resp.StatusCode)).
			Context("status_code", resp.StatusCode).
			Context("url", url).
			Component("gsa").
			Build()
	}

	if err := json.Unmarshal(bodyBytes, result); err != nil {
		c.countError()
		return errors.Newf("failed to parse GSA response: %w", err).
			Category(errors.CategoryRateLookup).
			Context("url", url).
			Context("reason", string(ReasonDecode)).
			Component("gsa").
			Build()
	}

	return nil
}

// doRequestWithRetry retries transient failures with linear backoff.
func (c *Client) doRequestWithRetry(ctx context.Context, url string, result any) error {
	maxRetries := c.config.MaxRetries
	var lastErr error

	for attempt := 0; attempt < maxRetries; attempt++ {
		err := c.doRequest(ctx, url, result)
		if err == nil {
			return nil
		}

		var enhancedErr *errors.EnhancedError
		if errors.As(err, &enhancedErr) {
			// Don't retry authentication errors, missing resources or bad payloads
			if enhancedErr.Category == errors.CategoryConfiguration ||
				enhancedErr.Category == errors.CategoryNotFound ||
				enhancedErr.Category == errors.CategoryRateLookup {
				return err
			}

			// Don't retry client errors except 429
			if statusCode, ok := enhancedErr.Context["status_code"].(int); ok {
				if statusCode >= 400 && statusCode < 500 && statusCode != http.StatusTooManyRequests {
					return err
				}
			}
		}

		lastErr = err

		if ctx.Err() != nil {
			return lastErr
		}

		delay := time.Duration(attempt+1) * 500 * time.Millisecond
		if attempt < maxRetries-1 {
			c.logger.Warn("GSA API request failed, retrying",
				"attempt", attempt+1,
				"max_retries", maxRetries,
				"delay_ms", delay.Milliseconds(),
				"url", url,
				"error", err.Error())

			timer := time.NewTimer(delay)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return lastErr
			}
		}
	}

	return lastErr
}

func (c *Client) countError() {
	c.metrics.mu.Lock()
	c.metrics.apiErrors++
	c.metrics.mu.Unlock()
}

func (c *Client) recordRequest(status string, start time.Time) {
	if c.recorder != nil {
		c.recorder.RecordRateRequest(status, time.Since(start))
	}
}

func (c *Client) recordCache(hit bool) {
	if c.recorder != nil {
		c.recorder.RecordRateCache(hit)
	}
}

// isTimeout reports whether a transport error is a timeout.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}

// ClearCache clears all cached data
func (c *Client) ClearCache() {
	c.cache.Flush()
	c.logger.Info("GSA cache cleared")
}

// Metrics represents GSA client performance metrics
type Metrics struct {
	APICalls      int64         `json:"api_calls"`
	CacheHits     int64         `json:"cache_hits"`
	CacheMisses   int64         `json:"cache_misses"`
	APIErrors     int64         `json:"api_errors"`
	TotalDuration time.Duration `json:"total_duration"`
	AvgDuration   time.Duration `json:"avg_duration"`
}

// Metrics returns current client metrics
func (c *Client) Metrics() Metrics {
	c.metrics.mu.RLock()
	defer c.metrics.mu.RUnlock()

	metrics := Metrics{
		APICalls:      c.metrics.apiCalls,
		CacheHits:     c.metrics.cacheHits,
		CacheMisses:   c.metrics.cacheMisses,
		APIErrors:     c.metrics.apiErrors,
		TotalDuration: c.metrics.totalDuration,
	}

	if metrics.APICalls > 0 {
		metrics.AvgDuration = time.Duration(int64(metrics.TotalDuration) / metrics.APICalls)
	}

	return metrics
}

// getErrorCategory determines the appropriate error category based on HTTP status code
func getErrorCategory(statusCode int) errors.ErrorCategory {
	switch statusCode {
	case 401, 403:
		return errors.CategoryConfiguration
	case 429:
		return errors.CategoryLimit
	case 404:
		return errors.CategoryNotFound
	default:
		return errors.CategoryNetwork
	}
}
