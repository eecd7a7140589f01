package client

import (
	"math/rand"
	"time"
)

// BackoffConfig controls the delay between transient-error retries.
type BackoffConfig struct {
	// Initial is the delay before the first retry.
	Initial time.Duration

	// Max caps the exponential growth.
	Max time.Duration

	// Multiplier is the exponential growth factor per attempt.
	Multiplier float64
}

// DefaultBackoffConfig returns the default retry backoff: 1s doubling
// up to 30s.
func DefaultBackoffConfig() BackoffConfig {
	return BackoffConfig{
		Initial:    1 * time.Second,
		Max:        30 * time.Second,
		Multiplier: 2.0,
	}
}

// Delay returns the backoff for the given zero-based attempt index with
// ±20% jitter applied, so synchronized callers do not retry in lockstep.
func (c BackoffConfig) Delay(attempt int) time.Duration {
	backoff := c.Initial
	for i := 0; i < attempt; i++ {
		backoff = time.Duration(float64(backoff) * c.Multiplier)
		if backoff >= c.Max {
			backoff = c.Max
			break
		}
	}

	jittered := time.Duration(float64(backoff) * (0.8 + rand.Float64()*0.4))
	return jittered
}
