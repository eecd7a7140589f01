package config

import (
	"testing"
	"time"
)

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv() error = %v", err)
	}

	if cfg.BaseURL != DefaultBaseURL {
		t.Errorf("BaseURL = %q, want default", cfg.BaseURL)
	}
	if cfg.CacheTTL != time.Hour {
		t.Errorf("CacheTTL = %v, want 1h", cfg.CacheTTL)
	}
	if cfg.CurrentGWTTL != 10*time.Minute {
		t.Errorf("CurrentGWTTL = %v, want 10m", cfg.CurrentGWTTL)
	}
	if cfg.MaxRequests != 20 {
		t.Errorf("MaxRequests = %d, want 20", cfg.MaxRequests)
	}
	if cfg.Period != time.Minute {
		t.Errorf("Period = %v, want 1m", cfg.Period)
	}
	if cfg.ProxyEnabled {
		t.Error("ProxyEnabled should default to false")
	}
	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("FPL_CACHE_TTL", "600")
	t.Setenv("RATE_LIMIT_MAX_REQUESTS", "5")
	t.Setenv("FPL_PROXY_ENABLED", "true")
	t.Setenv("FPL_PROXY_URLS", "http://p1:8080, http://p2:8080")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv() error = %v", err)
	}

	if cfg.CacheTTL != 10*time.Minute {
		t.Errorf("CacheTTL = %v, want 10m", cfg.CacheTTL)
	}
	if cfg.MaxRequests != 5 {
		t.Errorf("MaxRequests = %d, want 5", cfg.MaxRequests)
	}
	if !cfg.ProxyEnabled {
		t.Error("ProxyEnabled should be true")
	}
	if len(cfg.ProxyURLs) != 2 || cfg.ProxyURLs[1] != "http://p2:8080" {
		t.Errorf("ProxyURLs = %v, want two trimmed entries", cfg.ProxyURLs)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
}

func TestFromEnv_InvalidNumbers(t *testing.T) {
	tests := []struct {
		key string
	}{
		{"FPL_CACHE_TTL"},
		{"RATE_LIMIT_MAX_REQUESTS"},
		{"RATE_LIMIT_PERIOD_SECONDS"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv(tt.key, "not-a-number")
			if _, err := FromEnv(); err == nil {
				t.Errorf("FromEnv() error = nil, want parse failure for %s", tt.key)
			}
		})
	}
}

func TestFromEnv_ProxyEnabledWithoutURLs(t *testing.T) {
	t.Setenv("FPL_PROXY_ENABLED", "1")

	if _, err := FromEnv(); err == nil {
		t.Error("FromEnv() error = nil, want missing proxy URLs failure")
	}
}
