package api

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// ipLimiter hands out one token bucket per client IP
type ipLimiter struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	idle     time.Duration
	visitors map[string]*visitor
	swept    time.Time
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// newIPLimiter allows a burst of attempts per IP, refilled evenly over window
func newIPLimiter(attempts int, window time.Duration) *ipLimiter {
	return &ipLimiter{
		limit:    rate.Every(window / time.Duration(attempts)),
		burst:    attempts,
		idle:     window * 10,
		visitors: make(map[string]*visitor),
	}
}

func (l *ipLimiter) allow(ip string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.swept) > l.idle {
		for k, v := range l.visitors {
			if now.Sub(v.lastSeen) > l.idle {
				delete(l.visitors, k)
			}
		}
		l.swept = now
	}

	v, ok := l.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[ip] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

// rateLimitMiddleware rejects clients that exceed attempts per window.
// A non-positive count disables the limit.
func rateLimitMiddleware(attempts int, window time.Duration) gin.HandlerFunc {
	if attempts <= 0 || window <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	limiter := newIPLimiter(attempts, window)

	return func(c *gin.Context) {
		if !limiter.allow(c.ClientIP(), time.Now()) {
			c.Header("Retry-After", retryAfter(window, attempts))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "Terlalu banyak percobaan. Silakan coba lagi nanti.",
			})
			return
		}
		c.Next()
	}
}

func retryAfter(window time.Duration, attempts int) string {
	secs := int((window / time.Duration(attempts)).Seconds())
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}
