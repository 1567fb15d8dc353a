// Package config loads SDK configuration from the environment.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config is the environment-driven configuration for portal consumers.
type Config struct {
	BaseURL        string
	StoragePath    string
	LogLevel       string
	RequestTimeout time.Duration
	MetricsEnabled bool
}

// Load reads configuration from the environment with defaults.
func Load() Config {
	return Config{
		BaseURL:        EnvDefault("PORTAL_BASE_URL", "http://localhost:8000"),
		StoragePath:    EnvDefault("PORTAL_STORAGE_PATH", "portal.db"),
		LogLevel:       EnvDefault("PORTAL_LOG_LEVEL", "info"),
		RequestTimeout: EnvDurationDefault("PORTAL_TIMEOUT", 10*time.Second),
		MetricsEnabled: EnvBoolDefault("PORTAL_METRICS", false),
	}
}

// LoadDotenv loads .env files before reading the environment. Missing
// files are not an error; explicit environment variables win.
func LoadDotenv(files ...string) {
	_ = godotenv.Load(files...)
}

// EnvDefault returns the variable's value, or def when unset or empty.
func EnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// EnvDurationDefault parses the variable as a duration, falling back to
// def on absence or parse failure.
func EnvDurationDefault(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

// EnvBoolDefault parses the variable as a bool, falling back to def on
// absence or parse failure.
func EnvBoolDefault(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
