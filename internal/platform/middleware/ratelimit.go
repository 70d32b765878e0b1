package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

// RateLimitConfig holds the limits applied to credential endpoints
// (signup, login, OTP request and verification).
type RateLimitConfig struct {
	RequestsPerSecond float64
	BurstSize         int
	// IdleTTL is how long an address keeps its limiter after its last
	// request. Zero means three minutes.
	IdleTTL time.Duration
}

// DefaultRateLimitConfig returns the limits applied to credential endpoints.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 5,
		BurstSize:         10,
		IdleTTL:           3 * time.Minute,
	}
}

type visitor struct {
	lim  *rate.Limiter
	seen time.Time
}

// IPLimiter tracks one token bucket per remote address. The address comes
// from echo's IPExtractor, never from request headers the caller controls
// directly, so rotating X-Client-ID values shares a single budget.
type IPLimiter struct {
	mu        sync.Mutex
	visitors  map[string]*visitor
	limit     rate.Limit
	burst     int
	idle      time.Duration
	lastSweep time.Time
	now       func() time.Time
}

// NewIPLimiter builds a limiter from cfg.
func NewIPLimiter(cfg RateLimitConfig) *IPLimiter {
	idle := cfg.IdleTTL
	if idle <= 0 {
		idle = 3 * time.Minute
	}
	return &IPLimiter{
		visitors: make(map[string]*visitor),
		limit:    rate.Limit(cfg.RequestsPerSecond),
		burst:    cfg.BurstSize,
		idle:     idle,
		now:      time.Now,
	}
}

// reserve takes a token for ip and reports how long the caller must wait
// when none is available.
func (l *IPLimiter) reserve(ip string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) >= l.idle {
		l.sweep(now)
	}
	v, ok := l.visitors[ip]
	if !ok {
		v = &visitor{lim: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[ip] = v
	}
	v.seen = now

	r := v.lim.ReserveN(now, 1)
	if !r.OK() {
		return false, time.Second
	}
	if d := r.DelayFrom(now); d > 0 {
		r.CancelAt(now)
		return false, d
	}
	return true, 0
}

// sweep drops visitors idle for longer than the TTL. Caller holds mu.
func (l *IPLimiter) sweep(now time.Time) {
	for ip, v := range l.visitors {
		if now.Sub(v.seen) > l.idle {
			delete(l.visitors, ip)
		}
	}
	l.lastSweep = now
}

// Len reports how many addresses currently hold a limiter.
func (l *IPLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.visitors)
}

// Middleware rejects requests over the limit with 429 and a Retry-After
// header in whole seconds.
func (l *IPLimiter) Middleware() echo.MiddlewareFunc {
	limitHeader := strconv.FormatFloat(float64(l.limit), 'f', -1, 64)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", limitHeader)

			ok, wait := l.reserve(c.RealIP())
			if !ok {
				h.Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
				h.Set("X-RateLimit-Remaining", "0")
				return echo.NewHTTPError(http.StatusTooManyRequests, "Too many attempts. Please wait and try again.")
			}
			return next(c)
		}
	}
}

// RateLimit returns a per-address limiting middleware for cfg.
func RateLimit(cfg RateLimitConfig) echo.MiddlewareFunc {
	return NewIPLimiter(cfg).Middleware()
}
