package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"ladders_backend/internal/logger"

	"github.com/gin-gonic/gin"
	redis "github.com/redis/go-redis/v9"
)

var redisClient *redis.Client

// InitRedisRateLimiter installs the shared Redis client used by the limiters.
// If the client is nil or does not answer a ping the limiters stay in
// fail-open mode.
func InitRedisRateLimiter(client *redis.Client) {
	redisClient = nil
	if client == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis rate limiter disabled", "error", err)
		return
	}
	redisClient = client
}

// RedisEnabled reports whether InitRedisRateLimiter found a live Redis.
func RedisEnabled() bool {
	return redisClient != nil
}

// hit increments the fixed window counter at key.
func hit(ctx context.Context, key string, win time.Duration) (int64, error) {
	val, err := redisClient.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if val == 1 {
		redisClient.Expire(ctx, key, win)
	}
	return val, nil
}

// RedisRateLimit implements a simple fixed-window rate limiter using Redis INCR/EXPIRE.
// key format: rl:<window_seconds>:<ip>
func RedisRateLimit(maxRequests int, win time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if redisClient == nil {
			c.Next()
			return
		}

		key := "rl:" + strconv.FormatInt(int64(win.Seconds()), 10) + ":" + c.ClientIP()
		val, err := hit(c.Request.Context(), key, win)
		if err != nil {
			// fail-open
			c.Header("X-RateLimit-Error", "redis-error")
			c.Next()
			return
		}

		if val > int64(maxRequests) {
			RLBlocked.WithLabelValues(c.FullPath()).Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}

		RLRequests.WithLabelValues(c.FullPath()).Inc()
		c.Next()
	}
}

// APIRateLimit picks the Redis limiter when Redis is live and the in-memory
// limiter otherwise.
func APIRateLimit(mem *MemoryRateLimiter, maxRequests int, win time.Duration) gin.HandlerFunc {
	if RedisEnabled() || mem == nil {
		return RedisRateLimit(maxRequests, win)
	}
	return SimpleRateLimit(mem, maxRequests, win)
}
