package middleware

import (
	"time"

	"ladders_backend/internal/logger"
	"ladders_backend/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestContext tags each request with an id, attaches a request scoped
// logger and the caller details used by audit entries.
func RequestContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := c.GetHeader("X-Request-ID")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Header("X-Request-ID", reqID)

		l := logger.With("request_id", reqID)
		ctx := logger.NewContext(c.Request.Context(), l)
		ctx = service.WithRequestMeta(ctx, service.RequestMeta{
			IP:        c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		})
		c.Request = c.Request.WithContext(ctx)

		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		observe(c, status, time.Since(start))
		if status >= 500 {
			l.Error("request failed", "method", c.Request.Method, "path", c.FullPath(), "status", status)
			return
		}
		l.Debug("request", "method", c.Request.Method, "path", c.FullPath(), "status", status, "duration", time.Since(start))
	}
}
