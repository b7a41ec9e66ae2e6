package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Middleware rejects requests that do not carry a configured API key.
// Keys are accepted as "Authorization: Bearer <key>" or "X-API-Key".
// With an empty keyring the middleware is a no-op.
func Middleware(k *Keyring) gin.HandlerFunc {
	return func(c *gin.Context) {
		if k.Empty() {
			c.Next()
			return
		}

		raw := c.GetHeader("Authorization")
		raw = strings.TrimPrefix(raw, "Bearer ")
		if raw == "" {
			raw = c.GetHeader("X-API-Key")
		}

		if !k.Verify(raw) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "Valid API key required. Include 'Authorization: Bearer <key>' header.",
			})
			return
		}
		c.Next()
	}
}
