package cache

import (
	"encoding/json"
	"time"
)

// Entry is one cached document. Entries are replaced on refresh, never
// mutated in place.
type Entry struct {
	// Key is the logical cache key (e.g. "bootstrap_static",
	// "element_summary:302").
	Key string `json:"key"`

	// Value is the cached JSON document.
	Value json.RawMessage `json:"value"`

	// CreatedAt is when the producer result was stored.
	CreatedAt time.Time `json:"created_at"`

	// ExpiresAt is when the entry becomes stale. Always after CreatedAt.
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the entry is stale at the given instant.
func (e *Entry) Expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

// TTL returns the remaining time until expiry, or 0 if already stale.
func (e *Entry) TTL(now time.Time) time.Duration {
	ttl := e.ExpiresAt.Sub(now)
	if ttl < 0 {
		return 0
	}
	return ttl
}
