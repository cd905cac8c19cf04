package middlewares

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restaurant-ops/services"
	"github.com/yeremiapane/restaurant-ops/session"
	"github.com/yeremiapane/restaurant-ops/utils"
)

// RestaurantHeader narrows the session to one restaurant when a user works in several.
const RestaurantHeader = "X-Restaurant-ID"

type Resolver interface {
	Resolve(ctx context.Context, userID uint, email string, preferred uint) (*session.Context, error)
}

// RestaurantContext builds the request's session.Context. It must run after an
// auth middleware.
func RestaurantContext(resolver Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		var preferred uint
		raw := c.GetHeader(RestaurantHeader)
		if raw == "" {
			raw = c.Query("restaurant_id")
		}
		if raw != "" {
			id, err := strconv.ParseUint(raw, 10, 32)
			if err != nil {
				utils.RespondError(c, http.StatusBadRequest, errors.New("invalid restaurant id"))
				c.Abort()
				return
			}
			preferred = uint(id)
		}

		sess, err := resolver.Resolve(c.Request.Context(), UserID(c), c.GetString(ContextEmail), preferred)
		if err != nil {
			status := http.StatusInternalServerError
			switch {
			case errors.Is(err, services.ErrForbidden), errors.Is(err, services.ErrNotFound):
				status = http.StatusForbidden
			case errors.Is(err, services.ErrBackendRead):
				status = http.StatusServiceUnavailable
			}
			utils.RespondError(c, status, err)
			c.Abort()
			return
		}
		c.Set(ContextSession, sess)
		c.Next()
	}
}

// Session returns the context built by RestaurantContext, or nil.
func Session(c *gin.Context) *session.Context {
	v, ok := c.Get(ContextSession)
	if !ok {
		return nil
	}
	sess, _ := v.(*session.Context)
	return sess
}
