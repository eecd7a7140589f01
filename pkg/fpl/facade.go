package fpl

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/fplkit/fpl-api-client/pkg/cache"
	"github.com/fplkit/fpl-api-client/pkg/schema"
)

// Cache keys, one per dataset. Derived datasets (gameweeks, current
// gameweek) cache independently of the bootstrap document they come
// from, so a bootstrap invalidation does not force their recompute.
const (
	keyBootstrapStatic = "bootstrap_static"
	keyFixtures        = "fixtures"
	keyGameweeks       = "gameweeks"
	keyCurrentGameweek = "current_gameweek"
	keyPlayerSummary   = "element_summary:%d"
)

const (
	// DefaultTTL applies to the static datasets.
	DefaultTTL = time.Hour
	// DefaultCurrentGameweekTTL is shorter: live-scoring fields on the
	// current gameweek move during matches.
	DefaultCurrentGameweekTTL = 10 * time.Minute
	// DefaultBatchConcurrency bounds parallel player-summary fetches.
	DefaultBatchConcurrency = 4
)

// Fetcher retrieves one endpoint's JSON document from the upstream API.
// *client.Client implements it.
type Fetcher interface {
	Fetch(ctx context.Context, endpoint string) (json.RawMessage, error)
}

// Config holds facade dependencies and TTL overrides.
type Config struct {
	Fetcher Fetcher
	Cache   *cache.TTLCache

	// Validator checks the bootstrap document for schema drift.
	// Optional; nil disables validation.
	Validator *schema.Validator

	// TTL for static datasets. Zero means DefaultTTL.
	TTL time.Duration
	// CurrentGameweekTTL for the current-gameweek dataset. Zero means
	// DefaultCurrentGameweekTTL.
	CurrentGameweekTTL time.Duration
	// BatchConcurrency bounds PlayerSummaries fan-out. Zero means
	// DefaultBatchConcurrency.
	BatchConcurrency int
}

// Facade provides typed access to the FPL datasets.
type Facade struct {
	fetcher   Fetcher
	cache     *cache.TTLCache
	validator *schema.Validator

	ttl          time.Duration
	currentGWTTL time.Duration
	batchLimit   int

	logger zerolog.Logger
}

// New creates a facade. Fetcher and Cache are required.
func New(cfg Config) (*Facade, error) {
	if cfg.Fetcher == nil {
		return nil, fmt.Errorf("fetcher is required")
	}
	if cfg.Cache == nil {
		return nil, fmt.Errorf("cache is required")
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.CurrentGameweekTTL <= 0 {
		cfg.CurrentGameweekTTL = DefaultCurrentGameweekTTL
	}
	if cfg.BatchConcurrency <= 0 {
		cfg.BatchConcurrency = DefaultBatchConcurrency
	}

	return &Facade{
		fetcher:      cfg.Fetcher,
		cache:        cfg.Cache,
		validator:    cfg.Validator,
		ttl:          cfg.TTL,
		currentGWTTL: cfg.CurrentGameweekTTL,
		batchLimit:   cfg.BatchConcurrency,
		logger:       log.With().Str("component", "fpl-facade").Logger(),
	}, nil
}

// BootstrapStatic returns the main FPL dataset (players, teams,
// gameweeks, game settings). The document is normalized before caching:
// null phase highest_score values become 0. Schema validation is
// advisory; a drifting document is still returned.
func (f *Facade) BootstrapStatic(ctx context.Context) (json.RawMessage, error) {
	return f.cache.GetOrCompute(ctx, keyBootstrapStatic, f.ttl, func(ctx context.Context) (json.RawMessage, error) {
		doc, err := f.fetcher.Fetch(ctx, "bootstrap-static/")
		if err != nil {
			return nil, err
		}

		doc, err = normalizePhases(doc)
		if err != nil {
			return nil, fmt.Errorf("normalize bootstrap document: %w", err)
		}

		if f.validator != nil {
			f.validator.Validate(doc)
		}
		return doc, nil
	})
}

// Fixtures returns all fixtures for the season.
func (f *Facade) Fixtures(ctx context.Context) (json.RawMessage, error) {
	return f.cache.GetOrCompute(ctx, keyFixtures, f.ttl, func(ctx context.Context) (json.RawMessage, error) {
		return f.fetcher.Fetch(ctx, "fixtures/")
	})
}

// Gameweeks returns the season's gameweek list, extracted from the
// bootstrap document's "events" array.
func (f *Facade) Gameweeks(ctx context.Context) (json.RawMessage, error) {
	return f.cache.GetOrCompute(ctx, keyGameweeks, f.ttl, func(ctx context.Context) (json.RawMessage, error) {
		return f.projectBootstrap(ctx, "events")
	})
}

// CurrentGameweek returns the gameweek flagged is_current, falling back
// to is_next, then the first gameweek. An empty gameweek list yields an
// empty JSON object, never an error.
func (f *Facade) CurrentGameweek(ctx context.Context) (json.RawMessage, error) {
	return f.cache.GetOrCompute(ctx, keyCurrentGameweek, f.currentGWTTL, func(ctx context.Context) (json.RawMessage, error) {
		raw, err := f.Gameweeks(ctx)
		if err != nil {
			return nil, err
		}

		var gameweeks []json.RawMessage
		if err := json.Unmarshal(raw, &gameweeks); err != nil {
			return nil, fmt.Errorf("decode gameweeks: %w", err)
		}

		if gw, ok := pickGameweek(gameweeks, "is_current"); ok {
			return gw, nil
		}
		if gw, ok := pickGameweek(gameweeks, "is_next"); ok {
			return gw, nil
		}
		if len(gameweeks) > 0 {
			return gameweeks[0], nil
		}

		f.logger.Warn().Msg("No gameweeks in bootstrap data, returning empty object")
		return json.RawMessage(`{}`), nil
	})
}

// PlayerSummary returns the per-player history and fixtures document.
func (f *Facade) PlayerSummary(ctx context.Context, playerID int) (json.RawMessage, error) {
	if playerID <= 0 {
		return nil, fmt.Errorf("invalid player id %d", playerID)
	}
	key := fmt.Sprintf(keyPlayerSummary, playerID)
	endpoint := fmt.Sprintf("element-summary/%d/", playerID)
	return f.cache.GetOrCompute(ctx, key, f.ttl, func(ctx context.Context) (json.RawMessage, error) {
		return f.fetcher.Fetch(ctx, endpoint)
	})
}

// Players returns the bootstrap "elements" array.
func (f *Facade) Players(ctx context.Context) (json.RawMessage, error) {
	return f.projectBootstrap(ctx, "elements")
}

// Teams returns the bootstrap "teams" array.
func (f *Facade) Teams(ctx context.Context) (json.RawMessage, error) {
	return f.projectBootstrap(ctx, "teams")
}

// Invalidate drops every dataset-level cache entry except player
// summaries, forcing fresh upstream fetches on next access.
func (f *Facade) Invalidate(ctx context.Context) {
	for _, key := range []string{keyBootstrapStatic, keyFixtures, keyGameweeks, keyCurrentGameweek} {
		f.cache.Invalidate(ctx, key)
	}
	f.logger.Info().Msg("Invalidated dataset caches")
}

// projectBootstrap extracts one top-level array from the cached
// bootstrap document. The projection itself is not cached separately
// (beyond callers that wrap it): the bootstrap entry is the source of
// truth.
func (f *Facade) projectBootstrap(ctx context.Context, field string) (json.RawMessage, error) {
	doc, err := f.BootstrapStatic(ctx)
	if err != nil {
		return nil, err
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(doc, &top); err != nil {
		return nil, fmt.Errorf("decode bootstrap document: %w", err)
	}

	section, ok := top[field]
	if !ok {
		return json.RawMessage(`[]`), nil
	}
	return section, nil
}

// pickGameweek returns the first gameweek whose named boolean flag is
// set.
func pickGameweek(gameweeks []json.RawMessage, flag string) (json.RawMessage, bool) {
	for _, raw := range gameweeks {
		var flags map[string]json.RawMessage
		if err := json.Unmarshal(raw, &flags); err != nil {
			continue
		}
		if string(flags[flag]) == "true" {
			return raw, true
		}
	}
	return nil, false
}
