package fpl

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fplkit/fpl-api-client/pkg/cache"
)

func TestPlayerSummaries_FetchesAllPlayers(t *testing.T) {
	fetcher := newFakeFetcher()
	facade := newFacade(t, fetcher)

	ids := []int{10, 20, 30, 40}
	summaries, err := facade.PlayerSummaries(context.Background(), ids)
	if err != nil {
		t.Fatalf("PlayerSummaries() error = %v", err)
	}

	if len(summaries) != len(ids) {
		t.Fatalf("summaries = %d, want %d", len(summaries), len(ids))
	}
	for _, id := range ids {
		doc, ok := summaries[id]
		if !ok || len(doc) == 0 {
			t.Errorf("missing summary for player %d", id)
		}
	}
}

func TestPlayerSummaries_DeduplicatesIDs(t *testing.T) {
	fetcher := newFakeFetcher()
	facade := newFacade(t, fetcher)

	summaries, err := facade.PlayerSummaries(context.Background(), []int{10, 10, 20, 10})
	if err != nil {
		t.Fatalf("PlayerSummaries() error = %v", err)
	}

	if len(summaries) != 2 {
		t.Errorf("summaries = %d, want 2", len(summaries))
	}
	if got := fetcher.callCount("element-summary/10/"); got != 1 {
		t.Errorf("fetches for player 10 = %d, want 1", got)
	}
}

func TestPlayerSummaries_FirstErrorCancelsBatch(t *testing.T) {
	fetcher := newFakeFetcher()
	facade := newFacade(t, fetcher)

	// Player id 0 fails validation before any fetch.
	_, err := facade.PlayerSummaries(context.Background(), []int{10, 0, 20})
	if err == nil {
		t.Fatal("PlayerSummaries() error = nil, want failure for invalid id")
	}
}

// slowFetcher tracks how many Fetch calls run at once.
type slowFetcher struct {
	inFlight atomic.Int32
	peak     atomic.Int32
}

func (s *slowFetcher) Fetch(_ context.Context, endpoint string) (json.RawMessage, error) {
	n := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)

	for {
		peak := s.peak.Load()
		if n <= peak || s.peak.CompareAndSwap(peak, n) {
			break
		}
	}

	time.Sleep(20 * time.Millisecond)
	return json.RawMessage(fmt.Sprintf(`{"endpoint": %q}`, endpoint)), nil
}

func TestPlayerSummaries_RespectsConcurrencyLimit(t *testing.T) {
	fetcher := &slowFetcher{}
	c := cache.New(cache.Config{})
	t.Cleanup(func() { c.Close() })

	facade, err := New(Config{Fetcher: fetcher, Cache: c, BatchConcurrency: 2})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ids := make([]int, 10)
	for i := range ids {
		ids[i] = i + 1
	}

	if _, err := facade.PlayerSummaries(context.Background(), ids); err != nil {
		t.Fatalf("PlayerSummaries() error = %v", err)
	}

	if peak := fetcher.peak.Load(); peak > 2 {
		t.Errorf("peak concurrent fetches = %d, want <= 2", peak)
	}
}
