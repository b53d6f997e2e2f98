package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"edrs-docstore/internal/auth"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/time/rate"
)

var rateLimitedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "edrs_http_rate_limited_total",
		Help: "Requests rejected by the rate limiter.",
	},
	[]string{"scope"},
)

const (
	// DefaultMaxLimiterKeys caps how many identities are tracked at once; the least
	// recently seen is dropped first.
	DefaultMaxLimiterKeys = 10000
	// DefaultLimiterIdleTTL drops an identity that has made no request for this long.
	DefaultLimiterIdleTTL = 10 * time.Minute
)

// RateLimiter implements token bucket rate limiting per identity
type RateLimiter struct {
	mu       sync.Mutex
	limiters *expirable.LRU[string, *rate.Limiter]
	rate     rate.Limit
	burst    int
	scope    string
}

// NewRateLimiter creates a new rate limiter
// requestsPerSecond: number of requests allowed per second
// burst: maximum burst size
func NewRateLimiter(scope string, requestsPerSecond float64, burst int) *RateLimiter {
	return newRateLimiter(scope, requestsPerSecond, burst, DefaultMaxLimiterKeys, DefaultLimiterIdleTTL)
}

func newRateLimiter(scope string, requestsPerSecond float64, burst, maxKeys int, idleTTL time.Duration) *RateLimiter {
	return &RateLimiter{
		limiters: expirable.NewLRU[string, *rate.Limiter](maxKeys, nil, idleTTL),
		rate:     rate.Limit(requestsPerSecond),
		burst:    burst,
		scope:    scope,
	}
}

// getLimiter gets or creates a rate limiter for the given key. Re-adding on every hit
// restarts the idle timer.
func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	limiter, ok := rl.limiters.Get(key)
	if !ok {
		limiter = rate.NewLimiter(rl.rate, rl.burst)
	}
	rl.limiters.Add(key, limiter)
	return limiter
}

// Len reports how many identities are currently tracked.
func (rl *RateLimiter) Len() int {
	return rl.limiters.Len()
}

// Allow checks if a request should be allowed for the given key
func (rl *RateLimiter) Allow(key string) bool {
	return rl.getLimiter(key).Allow()
}

// Middleware limits authenticated callers by user id and everyone else by client IP.
func (rl *RateLimiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := "ip:" + c.RealIP()
			if p, err := auth.GetPrincipal(c); err == nil {
				key = "user:" + strconv.FormatInt(p.ID, 10)
			}

			limiter := rl.getLimiter(key)
			c.Response().Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", rl.burst))

			if !limiter.Allow() {
				rateLimitedTotal.WithLabelValues(rl.scope).Inc()
				c.Response().Header().Set("X-RateLimit-Remaining", "0")
				c.Response().Header().Set("Retry-After", "1")

				return c.JSON(http.StatusTooManyRequests, map[string]string{
					"error": "rate limit exceeded",
				})
			}

			c.Response().Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", int(limiter.Tokens())))
			return next(c)
		}
	}
}
