package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// APIKeyMiddleware guards the machine ingestion path with a shared key
// carried in X-API-Key. An empty configured key disables the check, which
// keeps local development and the in-cluster deployment zero-config.
func APIKeyMiddleware(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if key != "" {
			got := strings.TrimSpace(c.GetHeader("X-API-Key"))
			if subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
				return
			}
		}
		c.Next()
	}
}
