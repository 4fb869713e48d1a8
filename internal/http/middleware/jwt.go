package middleware

import (
	"net/http"
	"strings"

	"ladders_backend/internal/domain"
	"ladders_backend/internal/service"

	"github.com/gin-gonic/gin"
)

// IdentityKey is the gin context key holding the authenticated caller.
const IdentityKey = "identity"

// JWT authenticates the Authorization: Bearer token and stores its subject
// under IdentityKey.
func JWT() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token", "code": "unauthorized"})
			return
		}

		id, err := service.ParseJWT(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token", "code": "unauthorized"})
			return
		}

		c.Set(IdentityKey, id)
		c.Next()
	}
}

// Identity returns the caller set by JWT.
func Identity(c *gin.Context) (domain.Identity, bool) {
	v, ok := c.Get(IdentityKey)
	if !ok {
		return "", false
	}
	id, ok := v.(domain.Identity)
	return id, ok && id != ""
}
