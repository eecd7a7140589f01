// Package proxy maintains the pool of alternate egress routes used when
// the FPL API blocks the direct connection.
package proxy

import (
	"fmt"
	"net/url"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var fplProxyRotationsTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "fpl_proxy_rotations_total",
	Help: "Total number of proxy draws from the rotation pool",
})

// Config holds the proxy pool configuration.
type Config struct {
	// Enabled switches proxy failover on. With Enabled false or an empty
	// pool the fetch pipeline never escalates past direct attempts.
	Enabled bool

	// URLs are plain HTTP forward proxy URIs, tried in round-robin order.
	URLs []string
}

// Rotator holds an ordered pool of forward proxies and a rotation cursor.
// The cursor persists across fetch calls so load spreads over the pool;
// per-call bookkeeping (which proxies a single fetch has already tried)
// belongs to the caller.
type Rotator struct {
	mu      sync.Mutex
	proxies []*url.URL
	cursor  int
	logger  zerolog.Logger
}

// New parses the configured proxy URIs and builds the rotation pool.
// A disabled config yields a rotator whose Enabled() is false.
func New(cfg Config) (*Rotator, error) {
	r := &Rotator{
		logger: log.With().Str("component", "proxy").Logger(),
	}

	if !cfg.Enabled {
		return r, nil
	}

	for _, raw := range cfg.URLs {
		u, err := url.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("parse proxy url %q: %w", raw, err)
		}
		if u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("proxy url %q missing scheme or host", raw)
		}
		r.proxies = append(r.proxies, u)
	}

	r.logger.Info().Int("pool_size", len(r.proxies)).Msg("Proxy rotation enabled")
	return r, nil
}

// Enabled reports whether any alternate routes are configured.
func (r *Rotator) Enabled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.proxies) > 0
}

// Len returns the pool size. A fetch attempt should draw at most Len
// proxies before treating the pool as exhausted.
func (r *Rotator) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.proxies)
}

// Next returns the next proxy in round-robin order, wrapping after the
// last. Returns nil when no proxies are configured.
func (r *Rotator) Next() *url.URL {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.proxies) == 0 {
		return nil
	}

	p := r.proxies[r.cursor]
	r.cursor = (r.cursor + 1) % len(r.proxies)
	fplProxyRotationsTotal.Inc()

	return p
}
