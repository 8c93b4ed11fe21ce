package middleware

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"jobapply-backend/internal/shared/metrics"
	"jobapply-backend/internal/shared/server/respond"
	"jobapply-backend/internal/shared/telemetry"
)

// RateLimitRule is a token bucket: Rate tokens per second up to Burst.
type RateLimitRule struct {
	Rate  float64
	Burst int
}

// idleFor is how long a bucket takes to refill completely. After that it is
// indistinguishable from a fresh one and can be dropped.
func (r RateLimitRule) idleFor() time.Duration {
	return time.Duration(float64(r.Burst) / r.Rate * float64(time.Second))
}

// RateLimiter holds one token bucket per session and route group. Buckets of
// expired sessions are swept once they have refilled.
type RateLimiter struct {
	mu        sync.Mutex
	buckets   map[string]*rateBucket
	now       func() time.Time
	lastSweep time.Time
}

type rateBucket struct {
	tokens float64
	last   time.Time
	rule   RateLimitRule
}

// NewRateLimiter returns a limiter reading time from now (time.Now when nil).
func NewRateLimiter(now func() time.Time) *RateLimiter {
	if now == nil {
		now = time.Now
	}
	return &RateLimiter{
		buckets: make(map[string]*rateBucket),
		now:     now,
	}
}

// RateLimit throttles the routes it is attached to. Requests are keyed by the
// session ID, falling back to the client IP before a session exists.
func RateLimit(limiter *RateLimiter, group string, rule RateLimitRule) gin.HandlerFunc {
	if limiter == nil {
		limiter = NewRateLimiter(nil)
	}
	return func(c *gin.Context) {
		principal := strings.TrimSpace(SessionIDFromContext(c))
		if principal == "" {
			principal = "ip:" + c.ClientIP()
		}

		allowed, retryAfter := limiter.Allow(principal+"|"+group, rule)
		if allowed {
			c.Next()
			return
		}

		retryAfterMs := retryAfter.Milliseconds()
		if retryAfterMs <= 0 {
			retryAfterMs = 1000
		}
		metrics.IncRateLimited(group)
		telemetry.Warn("rate_limit.rejected", map[string]any{
			"session_id":     SessionIDFromContext(c),
			"group":          group,
			"retry_after_ms": retryAfterMs,
		})
		c.Header("Retry-After", strconv.FormatInt(int64(math.Ceil(float64(retryAfterMs)/1000)), 10))
		respond.Error(c, http.StatusTooManyRequests, "rate_limited", "too many generation requests for this session",
			gin.H{"retryAfterMs": retryAfterMs})
	}
}

// Allow takes a token from the bucket at key. When none is left it reports
// how long until the next one.
func (l *RateLimiter) Allow(key string, rule RateLimitRule) (bool, time.Duration) {
	if l == nil || rule.Rate <= 0 || rule.Burst <= 0 {
		return true, 0
	}
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sweep(now)

	bucket, ok := l.buckets[key]
	if !ok {
		bucket = &rateBucket{tokens: float64(rule.Burst), last: now}
		l.buckets[key] = bucket
	}
	bucket.rule = rule
	if elapsed := now.Sub(bucket.last).Seconds(); elapsed > 0 {
		bucket.tokens = math.Min(float64(rule.Burst), bucket.tokens+elapsed*rule.Rate)
		bucket.last = now
	}
	if bucket.tokens >= 1 {
		bucket.tokens--
		return true, 0
	}
	wait := (1 - bucket.tokens) / rule.Rate
	return false, time.Duration(math.Ceil(wait*1000)) * time.Millisecond
}

// Len reports how many buckets are held.
func (l *RateLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// sweep runs at most once a minute; the caller holds l.mu.
func (l *RateLimiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < time.Minute {
		return
	}
	l.lastSweep = now
	for key, b := range l.buckets {
		if now.Sub(b.last) >= b.rule.idleFor() {
			delete(l.buckets, key)
		}
	}
}
