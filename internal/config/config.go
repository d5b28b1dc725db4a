package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds runtime configuration parsed from environment variables.
type Config struct {
	APIBaseURL      string
	StatePath       string
	RequestTimeout  time.Duration
	StubHTTPAddr    string
	ShutdownTimeout time.Duration
}

// FromEnv builds Config with defaults, overridden by environment variables.
func FromEnv() Config {
	return Config{
		APIBaseURL:      envOrDefault("STOREFRONT_API_BASE_URL", "http://localhost:4000"),
		StatePath:       envOrDefault("STOREFRONT_STATE_PATH", "storefront.db"),
		RequestTimeout:  envDuration("STOREFRONT_REQUEST_TIMEOUT_SECONDS", 15*time.Second),
		StubHTTPAddr:    envOrDefault("STUB_HTTP_ADDR", ":4000"),
		ShutdownTimeout: envDuration("SHUTDOWN_TIMEOUT_SECONDS", 10*time.Second),
	}
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		seconds, err := strconv.Atoi(v)
		if err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return def
}
