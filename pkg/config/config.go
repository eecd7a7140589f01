// Package config loads the service configuration from the environment.
// Components themselves take explicit Config structs; env parsing lives
// here and in cmd so no library package reads ambient process state.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fplkit/fpl-api-client/pkg/logging"
)

// Defaults for the environment surface.
const (
	DefaultBaseURL        = "https://fantasy.premierleague.com/api"
	DefaultCacheDir       = ".cache/fpl"
	DefaultCacheTTL       = time.Hour
	DefaultCurrentGWTTL   = 10 * time.Minute
	DefaultMaxRequests    = 20
	DefaultPeriod         = time.Minute
	DefaultRequestTimeout = 30 * time.Second
	DefaultProxyTimeout   = 15 * time.Second
	DefaultProxyRetries   = 2
	DefaultPort           = "8080"
)

// Config is the full service configuration.
type Config struct {
	BaseURL        string
	CacheDir       string
	CacheTTL       time.Duration
	CurrentGWTTL   time.Duration
	MaxRequests    int
	Period         time.Duration
	RequestTimeout time.Duration

	ProxyEnabled    bool
	ProxyURLs       []string
	ProxyMaxRetries int
	ProxyTimeout    time.Duration

	SchemaPath string

	// RedisURL selects the Redis cache store when set; otherwise the
	// embedded bolt store under CacheDir is used.
	RedisURL string

	LogLevel logging.LogLevel
	Port     string
}

// FromEnv builds the configuration from environment variables, falling
// back to defaults for anything unset.
func FromEnv() (Config, error) {
	cfg := Config{
		BaseURL:      getEnv("FPL_API_BASE_URL", DefaultBaseURL),
		CacheDir:     getEnv("FPL_CACHE_DIR", DefaultCacheDir),
		SchemaPath:   getEnv("FPL_SCHEMA_PATH", ""),
		RedisURL:     getEnv("FPL_REDIS_URL", ""),
		LogLevel:     logging.LogLevel(getEnv("LOG_LEVEL", string(logging.LevelInfo))),
		Port:         getEnv("PORT", DefaultPort),
		ProxyEnabled: getEnvBool("FPL_PROXY_ENABLED", false),
		ProxyURLs:    splitList(getEnv("FPL_PROXY_URLS", "")),
	}

	var err error
	if cfg.CacheTTL, err = getEnvSeconds("FPL_CACHE_TTL", DefaultCacheTTL); err != nil {
		return Config{}, err
	}
	if cfg.CurrentGWTTL, err = getEnvSeconds("FPL_CURRENT_GW_TTL", DefaultCurrentGWTTL); err != nil {
		return Config{}, err
	}
	if cfg.MaxRequests, err = getEnvInt("RATE_LIMIT_MAX_REQUESTS", DefaultMaxRequests); err != nil {
		return Config{}, err
	}
	if cfg.Period, err = getEnvSeconds("RATE_LIMIT_PERIOD_SECONDS", DefaultPeriod); err != nil {
		return Config{}, err
	}
	if cfg.RequestTimeout, err = getEnvSeconds("FPL_REQUEST_TIMEOUT", DefaultRequestTimeout); err != nil {
		return Config{}, err
	}
	if cfg.ProxyTimeout, err = getEnvSeconds("FPL_PROXY_TIMEOUT", DefaultProxyTimeout); err != nil {
		return Config{}, err
	}
	if cfg.ProxyMaxRetries, err = getEnvInt("FPL_PROXY_MAX_RETRIES", DefaultProxyRetries); err != nil {
		return Config{}, err
	}

	if cfg.ProxyEnabled && len(cfg.ProxyURLs) == 0 {
		return Config{}, fmt.Errorf("FPL_PROXY_ENABLED is set but FPL_PROXY_URLS is empty")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getEnvSeconds(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return time.Duration(n) * time.Second, nil
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return b
}

func splitList(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
