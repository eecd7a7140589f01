package ratelimit

import "time"

// Clock abstracts time for the limiter so tests can drive the sliding
// window deterministically.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time                         { return time.Now() }
func (systemClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// SystemClock returns the wall-clock implementation used by default.
func SystemClock() Clock { return systemClock{} }
