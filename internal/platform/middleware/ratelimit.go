package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/carebase/carebase/internal/platform/authz"
)

// RateLimitConfig bounds request throughput per tenant, or per client IP for
// requests that carry no tenant (health probes, unauthenticated traffic).
type RateLimitConfig struct {
	RequestsPerSecond float64
	BurstSize         int
}

// Bucket housekeeping: entries idle past bucketIdleLimit are dropped during a
// periodic sweep so one-off clients do not grow the map forever.
const (
	bucketIdleLimit = 10 * time.Minute
	sweepEvery      = time.Minute
)

// bucket is one token bucket. Tokens refill continuously at the configured
// rate up to the burst ceiling.
type bucket struct {
	mu       sync.Mutex
	tokens   float64
	refilled time.Time
}

// take consumes one token if available. When the bucket is empty it reports
// how long until the next token accrues.
func (b *bucket) take(rate, burst float64, now time.Time) (bool, time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.tokens += now.Sub(b.refilled).Seconds() * rate
	if b.tokens > burst {
		b.tokens = burst
	}
	b.refilled = now

	if b.tokens >= 1 {
		b.tokens--
		return true, 0
	}
	if rate <= 0 {
		return false, time.Second
	}
	return false, time.Duration((1 - b.tokens) / rate * float64(time.Second))
}

func (b *bucket) idleSince(now time.Time) time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return now.Sub(b.refilled)
}

type limiter struct {
	cfg     RateLimitConfig
	mu      sync.Mutex
	buckets map[string]*bucket
	swept   time.Time
}

func newLimiter(cfg RateLimitConfig) *limiter {
	return &limiter{
		cfg:     cfg,
		buckets: make(map[string]*bucket),
		swept:   time.Now(),
	}
}

func (l *limiter) bucketFor(key string, now time.Time) *bucket {
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.swept) > sweepEvery {
		for k, b := range l.buckets {
			if b.idleSince(now) > bucketIdleLimit {
				delete(l.buckets, k)
			}
		}
		l.swept = now
	}

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: float64(l.cfg.BurstSize), refilled: now}
		l.buckets[key] = b
	}
	return b
}

// limitKey identifies the bucket a request draws from: the tenant the
// authorization chain resolved, so one tenant cannot starve the API for
// others. Requests with no tenant on the context fall back to the client IP.
func limitKey(c echo.Context) string {
	if tenantID := authz.TenantIDFromContext(c.Request().Context()); tenantID != "" {
		return "tenant:" + tenantID
	}
	return "ip:" + c.RealIP()
}

// RateLimit returns middleware enforcing a per-tenant token-bucket limit. It
// reads the tenant from the request context, so on authenticated routes it
// must be installed after the authorization chain middleware.
func RateLimit(cfg RateLimitConfig) echo.MiddlewareFunc {
	l := newLimiter(cfg)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			now := time.Now()
			ok, wait := l.bucketFor(limitKey(c), now).take(cfg.RequestsPerSecond, float64(cfg.BurstSize), now)

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.FormatFloat(cfg.RequestsPerSecond, 'f', 0, 64))
			if !ok {
				h.Set("Retry-After", strconv.Itoa(int(wait.Seconds())+1))
				h.Set("X-RateLimit-Remaining", "0")
				return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
			}
			return next(c)
		}
	}
}
