// Package fpl exposes the Fantasy Premier League datasets as typed
// accessors over the caching fetch pipeline.
//
// Every accessor returns the upstream JSON document (or a projection of
// one) and hides the cache-key and TTL bookkeeping from callers:
//
//	facade := fpl.New(fpl.Config{Fetcher: client, Cache: ttlCache})
//	bootstrap, err := facade.BootstrapStatic(ctx)
//
// Dataset TTLs follow upstream volatility: one hour for the static
// datasets, ten minutes for the current gameweek. Schema validation of
// the bootstrap document is advisory and never fails a call.
package fpl
