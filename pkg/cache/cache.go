package cache

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// DefaultProduceTimeout bounds a detached producer invocation. It must
// comfortably exceed the fetch pipeline's worst case (direct retries
// plus a full proxy rotation).
const DefaultProduceTimeout = 2 * time.Minute

// Producer computes the value for a key on a cache miss.
type Producer func(ctx context.Context) (json.RawMessage, error)

// Config holds the TTL cache configuration.
type Config struct {
	// Store is the durable backend. Optional; without it the cache is
	// memory-only and state does not survive restarts.
	Store Store

	// ProduceTimeout bounds a single producer invocation. Defaults to
	// DefaultProduceTimeout.
	ProduceTimeout time.Duration

	// Now is the time source, injectable for tests. Defaults to time.Now.
	Now func() time.Time
}

// TTLCache memoizes producer results under logical keys with per-key
// expiry. Concurrent recomputes for one key are collapsed into a single
// producer invocation whose outcome every waiter shares.
type TTLCache struct {
	store          Store
	produceTimeout time.Duration
	now            func() time.Time
	logger         zerolog.Logger

	mu      sync.RWMutex
	entries map[string]*Entry

	sf singleflight.Group
}

// New creates a TTL cache over the given store.
func New(cfg Config) *TTLCache {
	if cfg.ProduceTimeout <= 0 {
		cfg.ProduceTimeout = DefaultProduceTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &TTLCache{
		store:          cfg.Store,
		produceTimeout: cfg.ProduceTimeout,
		now:            cfg.Now,
		logger:         log.With().Str("component", "cache").Logger(),
		entries:        make(map[string]*Entry),
	}
}

// GetOrCompute returns the live value for key, or invokes producer
// exactly once among all concurrently-waiting callers and stores the
// result with expiry now+ttl. Producer failures propagate to every
// waiter of that invocation and are never cached.
//
// The producer runs detached from the triggering caller's context: if
// the caller abandons the wait, the recompute still completes and other
// waiters still receive its result.
func (c *TTLCache) GetOrCompute(ctx context.Context, key string, ttl time.Duration, producer Producer) (json.RawMessage, error) {
	if value, ok := c.lookup(ctx, key); ok {
		return value, nil
	}

	CacheMisses.Inc()

	ch := c.sf.DoChan(key, func() (interface{}, error) {
		// A previous flight may have refreshed the entry between our
		// miss and this flight starting.
		if value, ok := c.lookupMemory(key); ok {
			return value, nil
		}

		pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.produceTimeout)
		defer cancel()

		value, err := producer(pctx)
		if err != nil {
			return nil, err
		}

		c.storeResult(pctx, key, ttl, value)
		return value, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			SingleflightShared.Inc()
		}
		return res.Val.(json.RawMessage), nil
	case <-ctx.Done():
		// The flight keeps running for the remaining waiters.
		return nil, ctx.Err()
	}
}

// lookup checks the memory layer, then lazily reloads from the durable
// store (first access after a restart). Persistence problems degrade to
// a miss.
func (c *TTLCache) lookup(ctx context.Context, key string) (json.RawMessage, bool) {
	if value, ok := c.lookupMemory(key); ok {
		CacheHits.WithLabelValues("memory").Inc()
		return value, true
	}

	if c.store == nil {
		return nil, false
	}

	entry, err := c.store.Get(ctx, key)
	switch {
	case err == nil:
		if entry.Expired(c.now()) {
			return nil, false
		}
		c.mu.Lock()
		c.entries[key] = entry
		c.mu.Unlock()
		CacheHits.WithLabelValues("store").Inc()
		c.logger.Debug().Str("key", key).Time("expires_at", entry.ExpiresAt).
			Msg("Reloaded persisted cache entry")
		return entry.Value, true

	case errors.Is(err, ErrMiss):
		return nil, false

	case errors.Is(err, ErrCorruptEntry):
		c.logger.Warn().Str("key", key).Err(err).
			Msg("Corrupt persisted cache entry, treating as miss")
		_ = c.store.Delete(ctx, key)
		return nil, false

	default:
		c.logger.Warn().Str("key", key).Err(err).
			Msg("Cache store read failed, treating as miss")
		return nil, false
	}
}

func (c *TTLCache) lookupMemory(key string) (json.RawMessage, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || entry.Expired(c.now()) {
		return nil, false
	}
	return entry.Value, true
}

// storeResult replaces the live entry for key in both layers. A persist
// failure is logged and does not fail the compute.
func (c *TTLCache) storeResult(ctx context.Context, key string, ttl time.Duration, value json.RawMessage) {
	now := c.now()
	entry := &Entry{
		Key:       key,
		Value:     value,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}

	c.mu.Lock()
	c.entries[key] = entry
	c.mu.Unlock()

	if c.store == nil {
		return
	}
	if err := c.store.Put(ctx, key, entry); err != nil {
		c.logger.Warn().Str("key", key).Err(err).Msg("Failed to persist cache entry")
		return
	}

	c.logger.Debug().Str("key", key).Dur("ttl", ttl).Msg("Cached producer result")
}

// Invalidate removes the entry for key from both layers.
func (c *TTLCache) Invalidate(ctx context.Context, key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()

	if c.store != nil {
		if err := c.store.Delete(ctx, key); err != nil {
			c.logger.Warn().Str("key", key).Err(err).Msg("Failed to delete persisted cache entry")
		}
	}
}

// Close releases the durable store, if any.
func (c *TTLCache) Close() error {
	if c.store == nil {
		return nil
	}
	return c.store.Close()
}
