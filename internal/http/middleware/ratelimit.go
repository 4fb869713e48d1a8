package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/coder/quartz"
	"github.com/gin-gonic/gin"
)

type window struct {
	start time.Time
	count int
}

// MemoryRateLimiter is a per-process fixed window limiter. It stands in for
// the Redis limiter when Redis is not configured.
type MemoryRateLimiter struct {
	mu      sync.Mutex
	clock   quartz.Clock
	windows map[string]*window
}

func NewMemoryRateLimiter(clock quartz.Clock) *MemoryRateLimiter {
	return &MemoryRateLimiter{clock: clock, windows: make(map[string]*window)}
}

// Allow counts one hit for key and reports whether it is within limit per win.
func (l *MemoryRateLimiter) Allow(key string, limit int, win time.Duration) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	w, ok := l.windows[key]
	if !ok || now.Sub(w.start) >= win {
		l.windows[key] = &window{start: now, count: 1}
		l.prune(now, win)
		return limit > 0
	}
	w.count++
	return w.count <= limit
}

// prune drops expired windows once the map grows large.
func (l *MemoryRateLimiter) prune(now time.Time, win time.Duration) {
	if len(l.windows) < 4096 {
		return
	}
	for k, w := range l.windows {
		if now.Sub(w.start) >= win {
			delete(l.windows, k)
		}
	}
}

// SimpleRateLimit blocks clients that send more than maxRequests per window
func SimpleRateLimit(l *MemoryRateLimiter, maxRequests int, win time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.Allow("ip:"+c.ClientIP(), maxRequests, win) {
			RLBlocked.WithLabelValues(c.FullPath()).Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		RLRequests.WithLabelValues(c.FullPath()).Inc()
		c.Next()
	}
}
