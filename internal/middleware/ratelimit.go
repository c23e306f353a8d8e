package middleware

import (
    "math"
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/cinema-ticketing/internal/config"
    "github.com/iliyamo/cinema-ticketing/internal/logging"
)

// bucketScript refills and takes one token atomically, so every replica
// shares one bucket per key.  It returns {allowed, remaining, retry_ms}.
var bucketScript = redis.NewScript(`
    local key = KEYS[1]
    local now_ms = tonumber(ARGV[1])
    local capacity = tonumber(ARGV[2])
    local refill_tokens = tonumber(ARGV[3])
    local interval_ms = tonumber(ARGV[4])
    local ttl_seconds = tonumber(ARGV[5])

    local state = redis.call('HMGET', key, 'tokens', 'last_refill_ms')
    local tokens = tonumber(state[1])
    local last_refill = tonumber(state[2])
    if tokens == nil or last_refill == nil then
        tokens = capacity
        last_refill = now_ms
    end

    local intervals = math.floor(math.max(0, now_ms - last_refill) / interval_ms)
    if intervals > 0 then
        tokens = math.min(capacity, tokens + intervals * refill_tokens)
        last_refill = last_refill + intervals * interval_ms
    end

    local allowed = 0
    local retry_ms = 0
    if tokens > 0 then
        allowed = 1
        tokens = tokens - 1
    else
        retry_ms = math.max(0, interval_ms - (now_ms - last_refill))
    end

    redis.call('HSET', key, 'tokens', tokens, 'last_refill_ms', last_refill)
    redis.call('EXPIRE', key, ttl_seconds)
    return { allowed, tokens, retry_ms }
`)

// RateLimiter throttles the endpoints that lock seats or open payments.
// Buckets belong to the authenticated user, so a client cannot spread its
// attempts over several IPs.  A nil limiter, a disabled config or a
// missing Redis client lets every request through, and so does a Redis
// error.
type RateLimiter struct {
    cfg config.RateLimitConfig
    rdb *redis.Client
}

// NewRateLimiter returns a limiter backed by rdb.
func NewRateLimiter(cfg config.RateLimitConfig, rdb *redis.Client) *RateLimiter {
    return &RateLimiter{cfg: cfg, rdb: rdb}
}

func (rl *RateLimiter) enabled() bool { return rl != nil && rl.cfg.Enabled && rl.rdb != nil }

// PerShowing limits seat lock attempts of one user on the showing named by
// the :id path parameter.  Hammering one showing does not use up the
// user's attempts on other showings.
func (rl *RateLimiter) PerShowing() echo.MiddlewareFunc {
    return rl.limit("showing", func(c echo.Context) string { return c.Param("id") }, func() int {
        return rl.cfg.ShowingCapacity
    })
}

// PerUser limits the attempts of one user on the scope, whatever the
// target.
func (rl *RateLimiter) PerUser(scope string) echo.MiddlewareFunc {
    return rl.limit(scope, nil, func() int { return rl.cfg.Capacity })
}

func (rl *RateLimiter) limit(scope string, target func(echo.Context) string, capacity func() int) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        if !rl.enabled() {
            return next
        }
        return func(c echo.Context) error {
            key := rl.key(c, scope, target)
            limit := max(capacity(), 1)
            ctx := c.Request().Context()
            log := logging.FromContext(ctx).WithField("rate_key", key)

            vals, err := bucketScript.Run(ctx, rl.rdb, []string{key},
                time.Now().UnixMilli(),
                limit,
                max(rl.cfg.RefillTokens, 1),
                max(rl.cfg.RefillInterval.Milliseconds(), 1),
                max(int64(rl.cfg.TTL/time.Second), 1),
            ).Int64Slice()
            if err != nil || len(vals) != 3 {
                log.WithError(err).Warn("rate limit check failed")
                return next(c)
            }
            allowed, remaining, retryMs := vals[0] == 1, vals[1], vals[2]

            // stacked limiters report the bucket closest to running out
            h := c.Response().Header()
            if prev, err := strconv.ParseInt(h.Get("X-RateLimit-Remaining"), 10, 64); err != nil || remaining < prev {
                h.Set("X-RateLimit-Limit", strconv.Itoa(limit))
                h.Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
                if rl.cfg.Debug {
                    h.Set("X-RateLimit-Key", key)
                }
            }
            if allowed {
                return next(c)
            }

            secs := int(math.Ceil(float64(retryMs) / 1000))
            h.Set("Retry-After", strconv.Itoa(secs))
            log.WithField("retry_ms", retryMs).Info("booking attempt rate limited")
            return c.JSON(http.StatusTooManyRequests, echo.Map{
                "error":       "too many " + scope + " attempts, retry later",
                "retry_after": secs,
            })
        }
    }
}

// key is "<prefix>:<scope>:<user>[:<target>]".  Anonymous callers are
// keyed by IP.
func (rl *RateLimiter) key(c echo.Context, scope string, target func(echo.Context) string) string {
    who := "u" + userKey(c)
    if who == "uanon" {
        who = "ip" + c.RealIP()
    }
    parts := []string{rl.cfg.Prefix, scope, who}
    if target != nil {
        parts = append(parts, target(c))
    }
    return strings.Join(parts, ":")
}
