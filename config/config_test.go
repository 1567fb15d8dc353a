package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"PORTAL_BASE_URL", "PORTAL_STORAGE_PATH", "PORTAL_LOG_LEVEL", "PORTAL_TIMEOUT", "PORTAL_METRICS"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.BaseURL != "http://localhost:8000" {
		t.Errorf("BaseURL = %q", cfg.BaseURL)
	}
	if cfg.StoragePath != "portal.db" {
		t.Errorf("StoragePath = %q", cfg.StoragePath)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q", cfg.LogLevel)
	}
	if cfg.RequestTimeout != 10*time.Second {
		t.Errorf("RequestTimeout = %v", cfg.RequestTimeout)
	}
	if cfg.MetricsEnabled {
		t.Error("MetricsEnabled = true, want false")
	}
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("PORTAL_BASE_URL", "https://portal.example.com")
	t.Setenv("PORTAL_STORAGE_PATH", "/tmp/tokens.db")
	t.Setenv("PORTAL_LOG_LEVEL", "debug")
	t.Setenv("PORTAL_TIMEOUT", "30s")
	t.Setenv("PORTAL_METRICS", "true")

	cfg := Load()
	if cfg.BaseURL != "https://portal.example.com" {
		t.Errorf("BaseURL = %q", cfg.BaseURL)
	}
	if cfg.StoragePath != "/tmp/tokens.db" {
		t.Errorf("StoragePath = %q", cfg.StoragePath)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q", cfg.LogLevel)
	}
	if cfg.RequestTimeout != 30*time.Second {
		t.Errorf("RequestTimeout = %v", cfg.RequestTimeout)
	}
	if !cfg.MetricsEnabled {
		t.Error("MetricsEnabled = false, want true")
	}
}

func TestEnvDurationDefault_ParseFailure(t *testing.T) {
	t.Setenv("PORTAL_TIMEOUT", "not-a-duration")
	if got := EnvDurationDefault("PORTAL_TIMEOUT", 5*time.Second); got != 5*time.Second {
		t.Errorf("EnvDurationDefault = %v, want fallback 5s", got)
	}
}

func TestEnvBoolDefault_ParseFailure(t *testing.T) {
	t.Setenv("PORTAL_METRICS", "yes-please")
	if got := EnvBoolDefault("PORTAL_METRICS", true); got != true {
		t.Error("EnvBoolDefault should fall back on parse failure")
	}
}
