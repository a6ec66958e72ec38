package middleware

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/seregajade-png/analysis-beauty/internal/shared/server/respond"
	"github.com/seregajade-png/analysis-beauty/internal/shared/telemetry"
)

const (
	defaultRateLimitGroup = "DEFAULT"
	// Buckets untouched for this long are full again and can be dropped.
	bucketIdleTTL = 10 * time.Minute
	sweepEvery    = 1024
)

// RateLimitRule is a token bucket: Rate tokens per second up to Burst.
type RateLimitRule struct {
	Rate  float64
	Burst int
}

// RateLimitConfig maps each request to a group and each group to a rule.
// Requests whose group has no rule pass through.
type RateLimitConfig struct {
	Rules        map[string]RateLimitRule
	DefaultGroup string
	GroupFor     func(*gin.Context) string
	Limiter      *RateLimiter
}

// RateLimiter keeps one token bucket per user and group.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*rateBucket
	now     func() time.Time
	calls   int
}

type rateBucket struct {
	tokens float64
	seen   time.Time
}

func NewRateLimiter(now func() time.Time) *RateLimiter {
	if now == nil {
		now = time.Now
	}
	return &RateLimiter{buckets: make(map[string]*rateBucket), now: now}
}

// RateLimit throttles requests per signed-in user (or client IP) and group.
// Analysis requests hold a model connection for tens of seconds, so they are
// limited much tighter than reads.
func RateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	if cfg.Limiter == nil {
		cfg.Limiter = NewRateLimiter(nil)
	}
	if cfg.DefaultGroup == "" {
		cfg.DefaultGroup = defaultRateLimitGroup
	}
	return func(c *gin.Context) {
		group := cfg.DefaultGroup
		if cfg.GroupFor != nil {
			if g := strings.TrimSpace(cfg.GroupFor(c)); g != "" {
				group = g
			}
		}
		rule, ok := cfg.Rules[group]
		if !ok {
			c.Next()
			return
		}

		who := UserIDFromContext(c)
		if who == "" {
			who = c.ClientIP()
		}
		wait, allowed := cfg.Limiter.Take(who+"|"+group, rule)
		if allowed {
			c.Next()
			return
		}

		waitMs := wait.Milliseconds()
		if waitMs < 1 {
			waitMs = 1
		}
		c.Header("Retry-After", strconv.FormatInt((waitMs+999)/1000, 10))
		telemetry.Warn("rate_limit.exceeded", map[string]any{
			"group":          group,
			"user_id":        UserIDFromContext(c),
			"retry_after_ms": waitMs,
		})
		respond.Error(c, http.StatusTooManyRequests, "rate_limited",
			"Слишком много запросов, попробуйте позже",
			map[string]any{"group": group, "retryAfterMs": waitMs})
	}
}

// Take spends one token from key's bucket. When the bucket is empty it
// reports how long until the next token.
func (l *RateLimiter) Take(key string, rule RateLimitRule) (time.Duration, bool) {
	if l == nil || rule.Rate <= 0 || rule.Burst <= 0 {
		return 0, true
	}
	now := l.now()
	burst := float64(rule.Burst)

	l.mu.Lock()
	defer l.mu.Unlock()

	l.calls++
	if l.calls%sweepEvery == 0 {
		l.sweep(now)
	}

	b := l.buckets[key]
	if b == nil {
		b = &rateBucket{tokens: burst, seen: now}
		l.buckets[key] = b
	}
	if elapsed := now.Sub(b.seen).Seconds(); elapsed > 0 {
		b.tokens = math.Min(burst, b.tokens+elapsed*rule.Rate)
		b.seen = now
	}
	if b.tokens >= 1 {
		b.tokens--
		return 0, true
	}
	missing := (1 - b.tokens) / rule.Rate
	return time.Duration(math.Ceil(missing*1000)) * time.Millisecond, false
}

func (l *RateLimiter) sweep(now time.Time) {
	for key, b := range l.buckets {
		if now.Sub(b.seen) > bucketIdleTTL {
			delete(l.buckets, key)
		}
	}
}
