// Package metrics provides the centralized Prometheus metrics registry for
// the FPL client. All metrics are defined in their respective packages
// (client, cache, ratelimit, proxy, schema) to maintain modularity and
// avoid circular dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the FPL client.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Rate Limit Metrics (pkg/ratelimit):
//   - fpl_rate_limit_grants_total (Counter): Requests admitted through the sliding window
//   - fpl_rate_limit_wait_seconds (Histogram): Time callers spent waiting for a slot
//   - fpl_rate_limit_waiting (Gauge): Callers currently queued for a slot
//
// Cache Metrics (pkg/cache):
//   - fpl_cache_hits_total{layer} (Counter): Cache hits by layer (memory, store)
//   - fpl_cache_misses_total (Counter): Cache misses
//   - fpl_cache_errors_total{operation} (Counter): Store operation errors (get, put, delete)
//   - fpl_cache_singleflight_shared_total (Counter): Waiters served by another caller's compute
//
// Request Metrics (pkg/client):
//   - fpl_requests_total{endpoint, status} (Counter): Total requests by endpoint and HTTP status
//   - fpl_request_duration_seconds{endpoint} (Histogram): Request duration by endpoint
//   - fpl_errors_total{class} (Counter): Errors by class (network, server, forbidden, client)
//
// Retry and Failover Metrics (pkg/client, pkg/proxy):
//   - fpl_retries_total{error_class} (Counter): Retry attempts by error class
//   - fpl_retry_backoff_seconds{error_class} (Histogram): Backoff duration by error class
//   - fpl_proxy_failovers_total (Counter): Fetches escalated from direct to proxied
//   - fpl_fetch_exhausted_total (Counter): Fetches that exhausted every strategy
//   - fpl_proxy_rotations_total (Counter): Proxy cursor advances
//
// Schema Metrics (pkg/schema):
//   - fpl_schema_drift_total{schema} (Counter): Documents that failed advisory validation
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(fpl_cache_hits_total[5m])) /
//   (sum(rate(fpl_cache_hits_total[5m])) + sum(rate(fpl_cache_misses_total[5m])))
//
//   # Request Error Rate
//   rate(fpl_errors_total[5m])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(fpl_request_duration_seconds_bucket[5m]))
//
//   # Time Spent Blocked on the Rate Limiter
//   rate(fpl_rate_limit_wait_seconds_sum[5m])
//
//   # Proxy Escalation Rate
//   rate(fpl_proxy_failovers_total[5m]) / rate(fpl_requests_total[5m])
