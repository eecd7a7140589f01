// Package ratelimit implements a sliding-window rate limiter that gates
// all outbound FPL API requests. Grants are issued first-come-first-served
// across every caller; the budget is shared process-wide.
package ratelimit

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for rate limiter operations.
var (
	fplRateLimitGrantsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fpl_rate_limit_grants_total",
		Help: "Total number of grants issued by the rate limiter",
	})

	fplRateLimitWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "fpl_rate_limit_wait_seconds",
		Help:    "Time callers spent waiting for a rate limit grant",
		Buckets: []float64{0.01, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
	})

	fplRateLimitWaiting = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fpl_rate_limit_waiting",
		Help: "Number of callers currently queued for a grant",
	})
)

// Config holds the limiter budget.
type Config struct {
	// MaxRequests is the number of grants permitted within any trailing Period.
	MaxRequests int

	// Period is the sliding window duration.
	Period time.Duration

	// Clock is the time source. Defaults to the system clock.
	Clock Clock
}

// DefaultConfig returns the FPL API budget: 20 requests per minute.
func DefaultConfig() Config {
	return Config{
		MaxRequests: 20,
		Period:      60 * time.Second,
	}
}

// Limiter bounds outbound request rate in a sliding time window.
// At any instant the count of grants within [now-Period, now] never
// exceeds MaxRequests.
type Limiter struct {
	maxRequests int
	period      time.Duration
	clock       Clock
	logger      zerolog.Logger

	// turnstile serializes Acquire callers. Goroutines blocked sending on a
	// channel are queued in arrival order by the runtime, which gives the
	// FIFO grant ordering the limiter guarantees.
	turnstile chan struct{}

	// grants holds the instants of recent grants, oldest first.
	// Only touched while holding the turnstile.
	grants []time.Time
}

// New creates a limiter for the given budget.
func New(cfg Config) *Limiter {
	if cfg.MaxRequests <= 0 {
		cfg.MaxRequests = DefaultConfig().MaxRequests
	}
	if cfg.Period <= 0 {
		cfg.Period = DefaultConfig().Period
	}
	if cfg.Clock == nil {
		cfg.Clock = SystemClock()
	}

	return &Limiter{
		maxRequests: cfg.MaxRequests,
		period:      cfg.Period,
		clock:       cfg.Clock,
		logger:      log.With().Str("component", "ratelimit").Logger(),
		turnstile:   make(chan struct{}, 1),
		grants:      make([]time.Time, 0, cfg.MaxRequests),
	}
}

// Acquire blocks until issuing one more request would not exceed the
// window budget, records the grant, and returns. It never fails on its
// own; the only error is the caller's context being cancelled while
// waiting.
func (l *Limiter) Acquire(ctx context.Context) error {
	start := l.clock.Now()

	fplRateLimitWaiting.Inc()
	defer fplRateLimitWaiting.Dec()

	select {
	case l.turnstile <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-l.turnstile }()

	for {
		now := l.clock.Now()
		l.prune(now)

		if len(l.grants) < l.maxRequests {
			l.grants = append(l.grants, now)
			fplRateLimitGrantsTotal.Inc()

			waited := now.Sub(start)
			fplRateLimitWaitSeconds.Observe(waited.Seconds())
			if waited > 0 {
				l.logger.Debug().
					Dur("waited", waited).
					Int("in_window", len(l.grants)).
					Msg("Rate limit grant issued after wait")
			}
			return nil
		}

		// Window is full. The next slot opens when the oldest grant
		// leaves the window.
		wait := l.grants[0].Add(l.period).Sub(now)

		l.logger.Debug().
			Dur("wait", wait).
			Int("max_requests", l.maxRequests).
			Dur("period", l.period).
			Msg("Rate limit window full, waiting for capacity")

		select {
		case <-l.clock.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// prune drops grants that have aged out of the trailing window.
func (l *Limiter) prune(now time.Time) {
	cutoff := now.Add(-l.period)
	i := 0
	for i < len(l.grants) && !l.grants[i].After(cutoff) {
		i++
	}
	if i > 0 {
		l.grants = append(l.grants[:0], l.grants[i:]...)
	}
}

// InWindow reports how many grants are currently inside the trailing
// window. Intended for tests and diagnostics.
func (l *Limiter) InWindow() int {
	l.turnstile <- struct{}{}
	defer func() { <-l.turnstile }()

	l.prune(l.clock.Now())
	return len(l.grants)
}
