package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks cache hits by layer (memory, store).
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fpl_cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"layer"},
	)

	// CacheMisses tracks lookups that fell through to the producer.
	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fpl_cache_misses_total",
			Help: "Total number of cache misses",
		},
	)

	// CacheErrors tracks store operation errors by operation.
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fpl_cache_errors_total",
			Help: "Total number of cache store operation errors",
		},
		[]string{"operation"}, // "get", "put", "delete"
	)

	// SingleflightShared tracks callers that received a result computed
	// by another caller's in-flight producer.
	SingleflightShared = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fpl_cache_singleflight_shared_total",
			Help: "Total number of callers coalesced onto an in-flight recompute",
		},
	)
)
