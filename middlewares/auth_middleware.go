package middlewares

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restaurant-ops/utils"
)

// Keys set on the gin context by the auth middlewares.
const (
	ContextUserID  = "user_id"
	ContextEmail   = "email"
	ContextToken   = "token"
	ContextClaims  = "claims"
	ContextSession = "session"
)

func bearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(header[len(prefix):]), true
}

func authenticate(c *gin.Context, token string) bool {
	claims, err := utils.ValidateToken(token)
	if err != nil || claims == nil {
		utils.RespondError(c, http.StatusUnauthorized, errors.New("invalid or expired token"))
		c.Abort()
		return false
	}
	if claims.UserID == 0 {
		utils.RespondError(c, http.StatusUnauthorized, errors.New("invalid user ID in token"))
		c.Abort()
		return false
	}

	c.Set(ContextUserID, claims.UserID)
	c.Set(ContextEmail, claims.Email)
	c.Set(ContextToken, token)
	c.Set(ContextClaims, claims)
	return true
}

// AuthMiddleware requires "Authorization: Bearer <token>".
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.RespondError(c, http.StatusUnauthorized, errors.New("authorization header missing"))
			c.Abort()
			return
		}
		token, ok := bearerToken(authHeader)
		if !ok {
			utils.RespondError(c, http.StatusUnauthorized, errors.New("authorization header must use the Bearer scheme"))
			c.Abort()
			return
		}
		if !authenticate(c, token) {
			return
		}
		c.Next()
	}
}

// UserID reads the authenticated user id.
func UserID(c *gin.Context) uint {
	return c.GetUint(ContextUserID)
}
