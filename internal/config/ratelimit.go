package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// RateLimitConfig drives the Redis token bucket.  Capacity tokens are
// available at once and RefillTokens are added every RefillInterval.
type RateLimitConfig struct {
	Enabled        bool
	Capacity       int
	RefillTokens   int
	RefillInterval time.Duration
	TTL            time.Duration
	KeyStrategy    string
	Prefix         string
	Debug          bool
}

// LoadRateLimitConfig reads the general RATE_LIMIT_* profile.
func LoadRateLimitConfig() RateLimitConfig {
	return loadRateLimit("RATE_LIMIT", 60, "ip_user_route", "rl")
}

// LoadRouteRateLimit reads a stricter named profile such as
// RATE_LIMIT_AUTH_* or RATE_LIMIT_CHECKIN_*.  Unset values fall back to
// capacity and the general profile's switches.
func LoadRouteRateLimit(name string, capacity int) RateLimitConfig {
	base := LoadRateLimitConfig()
	env := "RATE_LIMIT_" + strings.ToUpper(name)
	cfg := loadRateLimit(env, capacity, "ip_route", base.Prefix+":"+strings.ToLower(name))
	cfg.Enabled = base.Enabled && envBool(env+"_ENABLED", true)
	cfg.Debug = base.Debug
	return cfg
}

func loadRateLimit(env string, capacity int, strategy, prefix string) RateLimitConfig {
	def := RateLimitConfig{
		Enabled:        envBool(env+"_ENABLED", true),
		Capacity:       envInt(env+"_CAPACITY", capacity),
		RefillTokens:   envInt(env+"_REFILL_TOKENS", 1),
		RefillInterval: envDur(env+"_REFILL_INTERVAL", time.Second),
		TTL:            envDur(env+"_TTL", 10*time.Minute),
		KeyStrategy:    envStr(env+"_KEY_STRATEGY", strategy),
		Prefix:         envStr(env+"_PREFIX", prefix),
		Debug:          envBool(env+"_DEBUG", false),
	}
	if b := envInt(env+"_BURST", -1); b > 0 {
		def.Capacity = b
	}
	if every := envDur(env+"_REFILL_EVERY", 0); every > 0 {
		def.RefillTokens = 1
		def.RefillInterval = every
	}
	if def.Capacity < 1 {
		def.Capacity = 1
	}
	if def.RefillTokens < 1 {
		def.RefillTokens = 1
	}
	if def.RefillInterval <= 0 {
		def.RefillInterval = time.Second
	}
	if minTTL := 5 * def.RefillInterval; def.TTL < minTTL {
		def.TTL = minTTL
	}
	return def
}

func envStr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func envBool(k string, d bool) bool {
	switch strings.ToLower(os.Getenv(k)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return d
}

func envInt(k string, d int) int {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return d
}

func envDur(k string, d time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if dur, err := time.ParseDuration(v); err == nil {
		return dur
	}
	return d
}
