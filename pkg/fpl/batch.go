package fpl

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// PlayerSummaries fetches summaries for several players in parallel,
// bounded by the configured batch concurrency. Each player goes through
// the same cached PlayerSummary path, so repeated ids and warm entries
// cost nothing upstream. The first failure cancels the remaining
// fetches and is returned.
func (f *Facade) PlayerSummaries(ctx context.Context, playerIDs []int) (map[int]json.RawMessage, error) {
	start := time.Now()

	unique := make([]int, 0, len(playerIDs))
	seen := make(map[int]bool, len(playerIDs))
	for _, id := range playerIDs {
		if !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.batchLimit)

	var mu sync.Mutex
	summaries := make(map[int]json.RawMessage, len(unique))

	for _, id := range unique {
		id := id
		g.Go(func() error {
			doc, err := f.PlayerSummary(gctx, id)
			if err != nil {
				return fmt.Errorf("player %d: %w", id, err)
			}
			mu.Lock()
			summaries[id] = doc
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	f.logger.Debug().
		Int("players", len(summaries)).
		Dur("duration", time.Since(start)).
		Msg("Batch summary fetch complete")

	return summaries, nil
}
