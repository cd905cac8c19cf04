package middlewares

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/restaurant-ops/utils"
)

func LoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		status := c.Writer.Status()
		fields := logrus.Fields{
			"method":  c.Request.Method,
			"path":    path,
			"status":  status,
			"latency": time.Since(start).String(),
			"ip":      c.ClientIP(),
		}
		if uid := UserID(c); uid != 0 {
			fields["user_id"] = uid
		}
		switch {
		case status >= 500:
			utils.ErrorLogger.WithFields(fields).Error(c.Errors.String())
		case status >= 400:
			utils.InfoLogger.WithFields(fields).Warn("request rejected")
		default:
			utils.InfoLogger.WithFields(fields).Info("request")
		}
	}
}
