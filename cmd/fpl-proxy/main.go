// Command fpl-proxy serves the cached FPL datasets over HTTP.
//
// It wires the full pipeline: sliding-window rate limiter, proxy
// rotator, retrying fetch client, durable TTL cache (embedded bolt
// store by default, Redis when FPL_REDIS_URL is set) and the dataset
// facade. Prometheus metrics are exposed on /metrics.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/fplkit/fpl-api-client/pkg/cache"
	"github.com/fplkit/fpl-api-client/pkg/client"
	"github.com/fplkit/fpl-api-client/pkg/config"
	"github.com/fplkit/fpl-api-client/pkg/fpl"
	"github.com/fplkit/fpl-api-client/pkg/logging"
	"github.com/fplkit/fpl-api-client/pkg/proxy"
	"github.com/fplkit/fpl-api-client/pkg/ratelimit"
	"github.com/fplkit/fpl-api-client/pkg/schema"
)

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		logging.Setup(logging.DefaultConfig())
		l := logging.NewLogger("fpl-proxy")
		l.Fatal().Err(err).Msg("Invalid configuration")
	}

	logCfg := logging.DefaultConfig()
	logCfg.Level = cfg.LogLevel
	logging.Setup(logCfg)
	logger := logging.NewLogger("fpl-proxy")

	facade, closeFn, err := buildFacade(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to build data facade")
	}
	defer closeFn()

	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/fpl/", fplHandler(facade))

	addr := ":" + cfg.Port
	logger.Info().
		Str("addr", addr).
		Str("base_url", cfg.BaseURL).
		Bool("proxy_enabled", cfg.ProxyEnabled).
		Bool("redis", cfg.RedisURL != "").
		Msg("Starting FPL proxy server")

	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Fatal().Err(err).Msg("Server failed")
	}
}

// buildFacade assembles the fetch pipeline from configuration. The
// returned close function releases the cache store.
func buildFacade(cfg config.Config, logger zerolog.Logger) (*fpl.Facade, func(), error) {
	limiter := ratelimit.New(ratelimit.Config{
		MaxRequests: cfg.MaxRequests,
		Period:      cfg.Period,
	})

	rotator, err := proxy.New(proxy.Config{
		Enabled: cfg.ProxyEnabled,
		URLs:    cfg.ProxyURLs,
	})
	if err != nil {
		return nil, nil, err
	}

	clientCfg := client.DefaultConfig(limiter, rotator)
	clientCfg.BaseURL = cfg.BaseURL
	clientCfg.RequestTimeout = cfg.RequestTimeout
	clientCfg.ProxyTimeout = cfg.ProxyTimeout
	clientCfg.ProxyMaxRetries = cfg.ProxyMaxRetries
	fetcher, err := client.New(clientCfg)
	if err != nil {
		return nil, nil, err
	}

	store, err := buildStore(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	ttlCache := cache.New(cache.Config{Store: store})

	var validator *schema.Validator
	if cfg.SchemaPath != "" {
		validator = schema.NewFromFile("bootstrap_static", cfg.SchemaPath)
	}

	facade, err := fpl.New(fpl.Config{
		Fetcher:            fetcher,
		Cache:              ttlCache,
		Validator:          validator,
		TTL:                cfg.CacheTTL,
		CurrentGameweekTTL: cfg.CurrentGWTTL,
	})
	if err != nil {
		return nil, nil, err
	}

	closeFn := func() {
		if err := ttlCache.Close(); err != nil {
			logger.Warn().Err(err).Msg("Failed to close cache store")
		}
		fetcher.Close()
	}
	return facade, closeFn, nil
}

// buildStore selects the durable cache backend: Redis when configured,
// the embedded bolt store under the cache directory otherwise.
func buildStore(cfg config.Config, logger zerolog.Logger) (cache.Store, error) {
	if cfg.RedisURL != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisURL})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return nil, err
		}
		logger.Info().Str("redis", cfg.RedisURL).Msg("Using Redis cache store")
		return cache.NewRedisStore(redisClient), nil
	}

	store, err := cache.NewBoltStore(cfg.CacheDir)
	if err != nil {
		return nil, err
	}
	logger.Info().Str("dir", cfg.CacheDir).Msg("Using embedded cache store")
	return store, nil
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// fplHandler routes /fpl/* to the matching facade accessor and writes
// the dataset JSON.
func fplHandler(facade *fpl.Facade) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/fpl/"), "/")

		ctx, cancel := context.WithTimeout(r.Context(), 60*time.Second)
		defer cancel()

		var (
			doc json.RawMessage
			err error
		)
		switch {
		case path == "bootstrap-static":
			doc, err = facade.BootstrapStatic(ctx)
		case path == "fixtures":
			doc, err = facade.Fixtures(ctx)
		case path == "gameweeks":
			doc, err = facade.Gameweeks(ctx)
		case path == "gameweeks/current":
			doc, err = facade.CurrentGameweek(ctx)
		case path == "players":
			doc, err = facade.Players(ctx)
		case path == "teams":
			doc, err = facade.Teams(ctx)
		case strings.HasPrefix(path, "element-summary/"):
			id, convErr := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(path, "element-summary/"), "/"))
			if convErr != nil || id <= 0 {
				http.Error(w, "invalid player id", http.StatusBadRequest)
				return
			}
			doc, err = facade.PlayerSummary(ctx, id)
		default:
			http.NotFound(w, r)
			return
		}

		if err != nil {
			http.Error(w, err.Error(), statusFor(err))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write(doc)
	}
}

// statusFor maps pipeline errors to response codes: exhausted upstream
// fetches are a gateway problem, bad input is the caller's.
func statusFor(err error) int {
	if errors.Is(err, client.ErrRetryExhausted) {
		return http.StatusBadGateway
	}

	var statusErr *client.StatusError
	if errors.As(err, &statusErr) && statusErr.Class == client.ErrorClassClient {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}
