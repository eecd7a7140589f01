package ratelimit

import (
	"context"
	"math/rand"
	"sort"
	"sync"
	"testing"
	"time"
)

// fakeClock is a controllable clock for deterministic limiter tests.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []fakeTimer

	// autoAdvance makes After fire immediately by jumping the clock,
	// simulating a single-threaded timeline.
	autoAdvance bool
}

type fakeTimer struct {
	deadline time.Time
	ch       chan time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1_700_000_000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan time.Time, 1)
	if c.autoAdvance {
		c.now = c.now.Add(d)
		ch <- c.now
		return ch
	}

	c.timers = append(c.timers, fakeTimer{deadline: c.now.Add(d), ch: ch})
	return ch
}

// Advance moves the clock forward and fires every timer that has come due.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
	remaining := c.timers[:0]
	for _, t := range c.timers {
		if !t.deadline.After(c.now) {
			t.ch <- c.now
		} else {
			remaining = append(remaining, t)
		}
	}
	c.timers = remaining
}

func (c *fakeClock) pendingTimers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not reached within 2s")
}

func TestAcquire_UnderBudgetDoesNotBlock(t *testing.T) {
	clock := newFakeClock()
	l := New(Config{MaxRequests: 5, Period: time.Minute, Clock: clock})

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if err := l.Acquire(ctx); err != nil {
			t.Fatalf("Acquire %d failed: %v", i, err)
		}
	}

	if got := l.InWindow(); got != 5 {
		t.Errorf("InWindow = %d, want 5", got)
	}
}

func TestAcquire_ThirdCallDelayedUntilWindowOpens(t *testing.T) {
	// Budget (2, 1s): three acquires at t=0 must grant the third no
	// earlier than t=1.
	clock := newFakeClock()
	l := New(Config{MaxRequests: 2, Period: time.Second, Clock: clock})

	ctx := context.Background()
	if err := l.Acquire(ctx); err != nil {
		t.Fatalf("first Acquire: %v", err)
	}
	if err := l.Acquire(ctx); err != nil {
		t.Fatalf("second Acquire: %v", err)
	}

	done := make(chan time.Time, 1)
	go func() {
		if err := l.Acquire(ctx); err != nil {
			t.Errorf("third Acquire: %v", err)
		}
		done <- clock.Now()
	}()

	// The third caller must be parked on the window timer, not granted.
	waitFor(t, func() bool { return clock.pendingTimers() == 1 })
	select {
	case <-done:
		t.Fatal("third Acquire granted before window opened")
	default:
	}

	start := clock.Now()
	clock.Advance(time.Second)

	grantedAt := <-done
	if grantedAt.Before(start.Add(time.Second)) {
		t.Errorf("third grant at %v, want >= %v", grantedAt, start.Add(time.Second))
	}
}

func TestAcquire_SlidingWindowInvariant(t *testing.T) {
	// Property: over a random acquire sequence, no trailing window of
	// Period ever contains more than MaxRequests grants.
	const (
		maxRequests = 4
		iterations  = 200
	)
	period := 10 * time.Second

	clock := newFakeClock()
	clock.autoAdvance = true
	l := New(Config{MaxRequests: maxRequests, Period: period, Clock: clock})

	rng := rand.New(rand.NewSource(42))
	ctx := context.Background()

	grants := make([]time.Time, 0, iterations)
	for i := 0; i < iterations; i++ {
		// Random think time between requests, often zero to force
		// window pressure.
		if rng.Intn(3) == 0 {
			clock.Advance(time.Duration(rng.Intn(3000)) * time.Millisecond)
		}
		if err := l.Acquire(ctx); err != nil {
			t.Fatalf("Acquire %d failed: %v", i, err)
		}
		grants = append(grants, clock.Now())
	}

	if !sort.SliceIsSorted(grants, func(i, j int) bool { return grants[i].Before(grants[j]) }) {
		t.Fatal("grant timestamps not monotonically non-decreasing")
	}

	for i := range grants {
		count := 1
		for j := i + 1; j < len(grants); j++ {
			if grants[j].Sub(grants[i]) < period {
				count++
			} else {
				break
			}
		}
		if count > maxRequests {
			t.Fatalf("window starting at grant %d contains %d grants, budget is %d",
				i, count, maxRequests)
		}
	}
}

func TestAcquire_FIFOOrdering(t *testing.T) {
	// One grant per window: queued callers must be served in arrival order.
	l := New(Config{MaxRequests: 1, Period: 20 * time.Millisecond})

	ctx := context.Background()
	if err := l.Acquire(ctx); err != nil {
		t.Fatalf("seed Acquire: %v", err)
	}

	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup

	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			if err := l.Acquire(ctx); err != nil {
				t.Errorf("Acquire %d: %v", id, err)
				return
			}
			mu.Lock()
			order = append(order, id)
			mu.Unlock()
		}(i)
		// Stagger arrivals so queue order is well-defined.
		time.Sleep(5 * time.Millisecond)
	}

	wg.Wait()

	for i, id := range order {
		if id != i {
			t.Fatalf("grant order = %v, want FIFO", order)
		}
	}
}

func TestAcquire_ContextCancelledWhileWaiting(t *testing.T) {
	clock := newFakeClock()
	l := New(Config{MaxRequests: 1, Period: time.Minute, Clock: clock})

	if err := l.Acquire(context.Background()); err != nil {
		t.Fatalf("seed Acquire: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- l.Acquire(ctx) }()

	waitFor(t, func() bool { return clock.pendingTimers() == 1 })
	cancel()

	if err := <-errCh; err != context.Canceled {
		t.Errorf("Acquire after cancel = %v, want context.Canceled", err)
	}

	// The abandoned waiter must release the queue for later callers.
	clock.Advance(time.Minute)
	if err := l.Acquire(context.Background()); err != nil {
		t.Errorf("Acquire after abandoned waiter: %v", err)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.MaxRequests != 20 {
		t.Errorf("MaxRequests = %d, want 20", cfg.MaxRequests)
	}
	if cfg.Period != 60*time.Second {
		t.Errorf("Period = %v, want 60s", cfg.Period)
	}
}
