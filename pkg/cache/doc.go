// Package cache provides the TTL cache that memoizes FPL API fetches.
//
// The cache has two layers: an in-memory map for the fast path and a
// durable Store (bbolt by default, Redis optionally) so warm data
// survives process restarts. Recomputes are collapsed per key with
// singleflight, and a producer started for a key always runs to
// completion even if the caller that triggered it goes away, so
// concurrent waiters are never left blocked.
//
// # Basic Usage
//
//	store, err := cache.NewBoltStore(cacheDir)
//	if err != nil {
//		return err
//	}
//	ttlCache := cache.New(cache.Config{Store: store})
//
//	value, err := ttlCache.GetOrCompute(ctx, "bootstrap_static", time.Hour,
//		func(ctx context.Context) (json.RawMessage, error) {
//			return client.Fetch(ctx, "bootstrap-static/")
//		})
//
// Producer failures are propagated to every waiter of that invocation
// and never cached; the next call retries. A corrupted persisted entry
// is treated as a miss, not an error.
//
// # Metrics
//
//   - fpl_cache_hits_total{layer="memory"|"store"} - Cache hits by layer
//   - fpl_cache_misses_total - Cache misses
//   - fpl_cache_errors_total{operation} - Store operation errors
package cache
