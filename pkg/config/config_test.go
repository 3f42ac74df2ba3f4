package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "DATABASE_URL", "SHORT_CODE_LENGTH", "MAX_CODE_ATTEMPTS", "STORE_TIMEOUT", "AUTH_SERVICE_URL"} {
		t.Setenv(key, "")
	}

	cfg := Load()

	if cfg.ShortCodeLength != 7 {
		t.Errorf("ShortCodeLength = %d, want 7", cfg.ShortCodeLength)
	}
	if cfg.MaxCodeAttempts != 10 {
		t.Errorf("MaxCodeAttempts = %d, want 10", cfg.MaxCodeAttempts)
	}
	if cfg.StoreTimeout != 5*time.Second {
		t.Errorf("StoreTimeout = %v, want 5s", cfg.StoreTimeout)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SHORT_CODE_LENGTH", "9")
	t.Setenv("MAX_CODE_ATTEMPTS", "3")
	t.Setenv("STORE_TIMEOUT", "250ms")
	t.Setenv("DATABASE_URL", "redis://localhost:6379/0")
	t.Setenv("APP_ENV", "production")

	cfg := Load()

	if cfg.ShortCodeLength != 9 {
		t.Errorf("ShortCodeLength = %d, want 9", cfg.ShortCodeLength)
	}
	if cfg.MaxCodeAttempts != 3 {
		t.Errorf("MaxCodeAttempts = %d, want 3", cfg.MaxCodeAttempts)
	}
	if cfg.StoreTimeout != 250*time.Millisecond {
		t.Errorf("StoreTimeout = %v, want 250ms", cfg.StoreTimeout)
	}
	if cfg.DatabaseURL != "redis://localhost:6379/0" {
		t.Errorf("DatabaseURL = %q", cfg.DatabaseURL)
	}
	if !cfg.IsProduction() {
		t.Error("expected production mode")
	}
}

func TestLoadInvalidNumbersFallBack(t *testing.T) {
	t.Setenv("SHORT_CODE_LENGTH", "-4")
	t.Setenv("STORE_TIMEOUT", "soon")

	cfg := Load()

	if cfg.ShortCodeLength != 7 {
		t.Errorf("ShortCodeLength = %d, want 7", cfg.ShortCodeLength)
	}
	if cfg.StoreTimeout != 5*time.Second {
		t.Errorf("StoreTimeout = %v, want 5s", cfg.StoreTimeout)
	}
}
