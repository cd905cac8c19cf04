package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// WebSocketAuthMiddleware authenticates upgrade requests, which browsers cannot
// send custom headers with, by the "token" query parameter.
func WebSocketAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			if t, ok := bearerToken(c.GetHeader("Authorization")); ok {
				token = t
			}
		}
		if token == "" {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		if !authenticate(c, token) {
			return
		}
		c.Next()
	}
}
