// Package client implements the resilient fetch pipeline for the FPL
// API: rate-limited HTTP GETs with exponential-backoff retries and
// 403-triggered failover to a rotating proxy pool.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/fplkit/fpl-api-client/pkg/proxy"
	"github.com/fplkit/fpl-api-client/pkg/ratelimit"
)

// Prometheus metrics for fetch pipeline operations.
var (
	fplRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fpl_requests_total",
		Help: "Total FPL requests by endpoint and status",
	}, []string{"endpoint", "status"})

	fplRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fpl_request_duration_seconds",
		Help:    "FPL fetch duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	}, []string{"endpoint"})

	fplErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fpl_errors_total",
		Help: "Total FPL attempt errors by class",
	}, []string{"class"})

	fplRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fpl_retries_total",
		Help: "Total number of retry attempts by error class",
	}, []string{"error_class"})

	fplRetryBackoffSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fpl_retry_backoff_seconds",
		Help:    "Backoff duration for retries by error class",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"error_class"})

	fplProxyFailoversTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fpl_proxy_failovers_total",
		Help: "Total number of direct-to-proxy escalations after a 403",
	})

	fplFetchExhaustedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fpl_fetch_exhausted_total",
		Help: "Total number of fetches that exhausted every strategy",
	})
)

// defaultHeaders are the browser-mimicking headers the FPL API expects;
// requests without them are rejected.
func defaultHeaders() map[string]string {
	return map[string]string{
		"User-Agent":      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		"Accept":          "application/json, text/plain, */*",
		"Accept-Language": "en-US,en;q=0.9",
		"Accept-Encoding": "gzip, deflate, br",
		"Referer":         "https://fantasy.premierleague.com/",
		"Origin":          "https://fantasy.premierleague.com",
		"Connection":      "keep-alive",
		"Sec-Fetch-Dest":  "empty",
		"Sec-Fetch-Mode":  "cors",
		"Sec-Fetch-Site":  "same-origin",
	}
}

// Config holds the fetch pipeline configuration.
type Config struct {
	// BaseURL is the FPL API root, without trailing slash.
	BaseURL string

	// Headers sent with every request. Defaults to the browser-mimicking
	// set the upstream requires.
	Headers map[string]string

	// MaxRetries is the number of direct retries after the first attempt
	// fails with a transient error.
	MaxRetries int

	// ProxyMaxRetries is the number of attempts per proxy before
	// rotating to the next one.
	ProxyMaxRetries int

	// RequestTimeout bounds one direct attempt.
	RequestTimeout time.Duration

	// ProxyTimeout bounds one proxied attempt.
	ProxyTimeout time.Duration

	// Backoff controls retry delays for transient errors.
	Backoff BackoffConfig

	// Limiter gates every attempt, direct and proxied alike.
	Limiter *ratelimit.Limiter

	// Rotator supplies the proxy pool for 403 failover.
	Rotator *proxy.Rotator
}

// DefaultConfig returns a pipeline configuration with the production
// FPL endpoint and conservative retry budgets.
func DefaultConfig(limiter *ratelimit.Limiter, rotator *proxy.Rotator) Config {
	return Config{
		BaseURL:         "https://fantasy.premierleague.com/api",
		Headers:         defaultHeaders(),
		MaxRetries:      3,
		ProxyMaxRetries: 2,
		RequestTimeout:  30 * time.Second,
		ProxyTimeout:    15 * time.Second,
		Backoff:         DefaultBackoffConfig(),
		Limiter:         limiter,
		Rotator:         rotator,
	}
}

// Client performs one logical GET per Fetch call, running the
// direct-then-proxy state machine until success or exhaustion.
type Client struct {
	config  Config
	limiter *ratelimit.Limiter
	rotator *proxy.Rotator
	direct  *http.Client
	logger  zerolog.Logger

	mu           sync.Mutex
	proxyClients map[string]*http.Client
}

// New creates a fetch pipeline.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if cfg.Limiter == nil {
		return nil, fmt.Errorf("rate limiter is required")
	}
	if cfg.Rotator == nil {
		return nil, fmt.Errorf("proxy rotator is required (may be disabled)")
	}
	if cfg.Headers == nil {
		cfg.Headers = defaultHeaders()
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.ProxyMaxRetries <= 0 {
		cfg.ProxyMaxRetries = 1
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if cfg.ProxyTimeout <= 0 {
		cfg.ProxyTimeout = 15 * time.Second
	}
	if cfg.Backoff.Initial <= 0 {
		cfg.Backoff = DefaultBackoffConfig()
	}

	return &Client{
		config:  cfg,
		limiter: cfg.Limiter,
		rotator: cfg.Rotator,
		direct: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
		logger:       log.With().Str("component", "fpl-client").Logger(),
		proxyClients: make(map[string]*http.Client),
	}, nil
}

// Fetch performs one logical GET against the given endpoint (relative
// to the base URL, e.g. "bootstrap-static/") and returns the parsed
// JSON body.
//
// Direct attempts are retried with exponential backoff on transient
// errors. A 403 abandons the direct route immediately (retrying a
// blocked route is futile) and escalates to the proxy pool: each proxy
// gets a bounded number of attempts, a proxy 403 rotates to the next
// proxy, and the shared rate limiter gates every attempt on any route.
func (c *Client) Fetch(ctx context.Context, endpoint string) (json.RawMessage, error) {
	requestURL := strings.TrimRight(c.config.BaseURL, "/") + "/" + strings.TrimLeft(endpoint, "/")

	start := time.Now()
	defer func() {
		fplRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	}()

	body, lastErr, directAttempts, forbidden, err := c.fetchDirect(ctx, endpoint, requestURL)
	if err != nil {
		return nil, err
	}
	if body != nil {
		return body, nil
	}

	if !forbidden {
		// Transient failures exhausted the direct retry budget.
		fplFetchExhaustedTotal.Inc()
		return nil, &ExhaustedError{
			Endpoint:       endpoint,
			DirectAttempts: directAttempts,
			Err:            lastErr,
		}
	}

	if !c.rotator.Enabled() {
		c.logger.Error().
			Str("endpoint", endpoint).
			Int("direct_attempts", directAttempts).
			Msg("Direct route blocked (403) and no proxies configured")
		fplFetchExhaustedTotal.Inc()
		return nil, &ExhaustedError{
			Endpoint:       endpoint,
			DirectAttempts: directAttempts,
			Err:            lastErr,
		}
	}

	fplProxyFailoversTotal.Inc()
	c.logger.Warn().
		Str("endpoint", endpoint).
		Int("pool_size", c.rotator.Len()).
		Msg("Direct route blocked (403), failing over to proxy pool")

	return c.fetchViaProxies(ctx, endpoint, requestURL, directAttempts, lastErr)
}

// fetchDirect runs the direct-attempt loop. It returns a non-nil body
// on success; forbidden reports whether the loop ended on a 403.
// A non-nil error aborts the whole fetch (caller cancellation or a
// fail-fast client error).
func (c *Client) fetchDirect(ctx context.Context, endpoint, requestURL string) (body json.RawMessage, lastErr error, attempts int, forbidden bool, fatal error) {
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if err := c.limiter.Acquire(ctx); err != nil {
			return nil, nil, attempts, false, err
		}
		attempts++

		body, err := c.doRequest(ctx, c.direct, endpoint, requestURL)
		if err == nil {
			fplRequestsTotal.WithLabelValues(endpoint, "200").Inc()
			return body, nil, attempts, false, nil
		}

		lastErr = err
		class := classify(err)
		fplErrorsTotal.WithLabelValues(string(class)).Inc()
		c.recordFailure(endpoint, err)

		c.logger.Warn().
			Str("endpoint", endpoint).
			Int("attempt", attempt+1).
			Str("error_class", string(class)).
			Err(err).
			Msg("Direct attempt failed")

		if class == ErrorClassForbidden {
			return nil, lastErr, attempts, true, nil
		}
		if !isTransient(class) {
			// Remaining 4xx: retrying wastes the rate budget.
			return nil, nil, attempts, false, err
		}
		if attempt == c.config.MaxRetries {
			break
		}

		if err := c.backoff(ctx, class, attempt); err != nil {
			return nil, nil, attempts, false, err
		}
	}

	return nil, lastErr, attempts, false, nil
}

// fetchViaProxies offers each configured proxy once, with a bounded
// number of transient retries per proxy. A proxy 403 rotates
// immediately; the pool policy is to keep trying remaining proxies
// rather than giving up on the first blocked one.
func (c *Client) fetchViaProxies(ctx context.Context, endpoint, requestURL string, directAttempts int, lastErr error) (json.RawMessage, error) {
	poolSize := c.rotator.Len()
	proxiesTried := 0

	for i := 0; i < poolSize; i++ {
		proxyURL := c.rotator.Next()
		proxiesTried++

		proxyLogger := c.logger.With().
			Str("endpoint", endpoint).
			Str("proxy", proxyURL.Host).
			Logger()

		for attempt := 0; attempt < c.config.ProxyMaxRetries; attempt++ {
			if err := c.limiter.Acquire(ctx); err != nil {
				return nil, err
			}

			body, err := c.doRequest(ctx, c.proxyClient(proxyURL), endpoint, requestURL)
			if err == nil {
				proxyLogger.Info().Msg("Fetch succeeded via proxy")
				fplRequestsTotal.WithLabelValues(endpoint, "200").Inc()
				return body, nil
			}

			lastErr = err
			class := classify(err)
			fplErrorsTotal.WithLabelValues(string(class)).Inc()
			c.recordFailure(endpoint, err)

			proxyLogger.Warn().
				Int("attempt", attempt+1).
				Str("error_class", string(class)).
				Err(err).
				Msg("Proxy attempt failed")

			if class == ErrorClassForbidden {
				// This egress is blocked too; the next proxy may not be.
				break
			}
			if !isTransient(class) {
				return nil, err
			}
			if attempt < c.config.ProxyMaxRetries-1 {
				if err := c.backoff(ctx, class, attempt); err != nil {
					return nil, err
				}
			}
		}
	}

	fplFetchExhaustedTotal.Inc()
	c.logger.Error().
		Str("endpoint", endpoint).
		Int("direct_attempts", directAttempts).
		Int("proxies_tried", proxiesTried).
		Err(lastErr).
		Msg("All fetch strategies exhausted")

	return nil, &ExhaustedError{
		Endpoint:       endpoint,
		DirectAttempts: directAttempts,
		ProxiesTried:   proxiesTried,
		Err:            lastErr,
	}
}

// doRequest executes one HTTP GET and returns the JSON body, or a
// classified error.
func (c *Client) doRequest(ctx context.Context, hc *http.Client, endpoint, requestURL string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for key, value := range c.config.Headers {
		req.Header.Set(key, value)
	}

	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{
			StatusCode: resp.StatusCode,
			Class:      classifyStatus(resp.StatusCode),
			Endpoint:   endpoint,
			Message:    resp.Status,
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("%w: endpoint %s", ErrInvalidJSON, endpoint)
	}

	return json.RawMessage(body), nil
}

// backoff sleeps for the attempt's jittered exponential delay,
// honoring caller cancellation.
func (c *Client) backoff(ctx context.Context, class ErrorClass, attempt int) error {
	delay := c.config.Backoff.Delay(attempt)
	fplRetriesTotal.WithLabelValues(string(class)).Inc()
	fplRetryBackoffSeconds.WithLabelValues(string(class)).Observe(delay.Seconds())

	c.logger.Debug().
		Str("error_class", string(class)).
		Int("attempt", attempt+1).
		Dur("backoff", delay).
		Msg("Backing off before retry")

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(delay):
		return nil
	}
}

// recordFailure updates the per-endpoint request counter with the
// attempt's status label.
func (c *Client) recordFailure(endpoint string, err error) {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		fplRequestsTotal.WithLabelValues(endpoint, fmt.Sprintf("%d", statusErr.StatusCode)).Inc()
		return
	}
	fplRequestsTotal.WithLabelValues(endpoint, "network_error").Inc()
}

// proxyClient returns (building lazily) the HTTP client routed through
// the given forward proxy. Transports are cached so proxied connections
// are reused across fetches.
func (c *Client) proxyClient(proxyURL *url.URL) *http.Client {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := proxyURL.String()
	if hc, ok := c.proxyClients[key]; ok {
		return hc
	}

	hc := &http.Client{
		Timeout: c.config.ProxyTimeout,
		Transport: &http.Transport{
			Proxy: http.ProxyURL(proxyURL),
		},
	}
	c.proxyClients[key] = hc
	return hc
}

// SetHTTPClient replaces the direct HTTP client (for testing).
func (c *Client) SetHTTPClient(hc *http.Client) {
	c.direct = hc
}

// Close releases idle connections held by the pipeline's transports.
func (c *Client) Close() error {
	c.direct.CloseIdleConnections()

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, hc := range c.proxyClients {
		hc.CloseIdleConnections()
	}
	return nil
}
