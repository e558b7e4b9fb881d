package config

import (
	"strings"
	"testing"
	"time"
)

func setBase(t *testing.T) {
	t.Helper()
	t.Setenv("APP_ENV", "dev")
	t.Setenv("APP_PORT", "8080")
	t.Setenv("APP_BASE_URL", "http://localhost:8080/")
	t.Setenv("JWT_SECRET", "jwt")
	t.Setenv("TICKET_SIGNING_SECRET", "tickets")
	t.Setenv("STORAGE_DRIVER", "memory")
}

func TestLoadMemoryDefaults(t *testing.T) {
	setBase(t)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BaseURL != "http://localhost:8080" {
		t.Fatalf("BaseURL = %q", cfg.BaseURL)
	}
	if cfg.AccessTTLMin != 15 || cfg.RefreshTTLDays != 30 || cfg.BcryptCost != 12 {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
	if cfg.SMTP.Enabled() {
		t.Fatal("SMTP enabled without host")
	}
}

func TestLoadReportsAllMissing(t *testing.T) {
	setBase(t)
	t.Setenv("TICKET_SIGNING_SECRET", "")
	t.Setenv("STORAGE_DRIVER", "mysql")
	t.Setenv("DB_USER", "")
	t.Setenv("DB_HOST", "")
	t.Setenv("DB_PORT", "")
	t.Setenv("DB_NAME", "")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error")
	}
	for _, key := range []string{"TICKET_SIGNING_SECRET", "DB_USER", "DB_HOST", "DB_PORT", "DB_NAME"} {
		if !strings.Contains(err.Error(), key) {
			t.Fatalf("error does not mention %s: %v", key, err)
		}
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	setBase(t)
	t.Setenv("BCRYPT_COST", "abc")
	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "BCRYPT_COST") {
		t.Fatalf("err = %v", err)
	}
	t.Setenv("BCRYPT_COST", "12")
	t.Setenv("STORAGE_DRIVER", "sqlite")
	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "STORAGE_DRIVER") {
		t.Fatalf("err = %v", err)
	}
}

func TestRateLimitConfigAliases(t *testing.T) {
	t.Setenv("RATE_LIMIT_BURST", "5")
	t.Setenv("RATE_LIMIT_REFILL_EVERY", "2s")
	rl := LoadRateLimitConfig()
	if rl.Capacity != 5 || rl.RefillTokens != 1 || rl.RefillInterval != 2*time.Second {
		t.Fatalf("rate limit = %+v", rl)
	}
	if rl.TTL < 10*time.Second {
		t.Fatalf("ttl below floor: %v", rl.TTL)
	}
}

func TestCacheConfigMethods(t *testing.T) {
	t.Setenv("CACHE_METHODS", "get, head")
	c := LoadCacheConfig()
	if !c.Methods["GET"] || !c.Methods["HEAD"] || c.Methods["POST"] {
		t.Fatalf("methods = %v", c.Methods)
	}
}
