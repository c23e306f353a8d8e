package config

import (
    "os"
    "strconv"
    "strings"
    "time"
)

// RateLimitConfig configures the Redis token buckets in front of the
// booking endpoints.  Capacity bounds the attempts of one user across the
// whole API; ShowingCapacity bounds seat lock attempts of one user on a
// single showing.
type RateLimitConfig struct {
    Enabled         bool
    Capacity        int
    ShowingCapacity int
    RefillTokens    int
    RefillInterval  time.Duration
    TTL             time.Duration
    Prefix          string
    Debug           bool
}

// LoadRateLimitConfig reads RATE_LIMIT_* and clamps nonsensical values.
// RATE_LIMIT_BURST and RATE_LIMIT_REFILL_EVERY are shorthands for capacity
// and a one-token refill.
func LoadRateLimitConfig() RateLimitConfig {
    c := RateLimitConfig{
        Enabled:         envBool("RATE_LIMIT_ENABLED", true),
        Capacity:        envInt("RATE_LIMIT_CAPACITY", 30),
        ShowingCapacity: envInt("RATE_LIMIT_SHOWING_CAPACITY", 5),
        RefillTokens:    envInt("RATE_LIMIT_REFILL_TOKENS", 1),
        RefillInterval:  envDur("RATE_LIMIT_REFILL_INTERVAL", time.Second),
        TTL:             envDur("RATE_LIMIT_TTL", 10*time.Minute),
        Prefix:          envStr("RATE_LIMIT_PREFIX", "rl"),
        Debug:           envBool("RATE_LIMIT_DEBUG", false),
    }
    if b := envInt("RATE_LIMIT_BURST", -1); b > 0 {
        c.Capacity = b
    }
    if every := envDur("RATE_LIMIT_REFILL_EVERY", 0); every > 0 {
        c.RefillTokens, c.RefillInterval = 1, every
    }
    c.Capacity = max(c.Capacity, 1)
    c.ShowingCapacity = min(max(c.ShowingCapacity, 1), c.Capacity)
    c.RefillTokens = max(c.RefillTokens, 1)
    if c.RefillInterval <= 0 {
        c.RefillInterval = time.Second
    }
    // a key must outlive a few refills or buckets reset for free
    c.TTL = max(c.TTL, 5*c.RefillInterval)
    return c
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
    if n, err := strconv.Atoi(os.Getenv(k)); err == nil {
        return n
    }
    return d
}

func envDur(k string, d time.Duration) time.Duration {
    if dur, err := time.ParseDuration(os.Getenv(k)); err == nil {
        return dur
    }
    return d
}
