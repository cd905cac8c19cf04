package middlewares

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restaurant-ops/session"
	"github.com/yeremiapane/restaurant-ops/utils"
)

// RequireCapability lets the request through when the session has any of caps.
func RequireCapability(caps ...session.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := Session(c)
		if sess == nil {
			utils.RespondError(c, http.StatusUnauthorized, fmt.Errorf("unauthorized"))
			c.Abort()
			return
		}
		for _, cp := range caps {
			if sess.Can(cp) {
				c.Next()
				return
			}
		}
		utils.RespondError(c, http.StatusForbidden, fmt.Errorf("%s access required", caps[0]))
		c.Abort()
	}
}
