package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"tiffin-api/pkg/logging"
)

// RequestLogger writes one structured record per request.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []interface{}{
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
			"client_ip", c.ClientIP(),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, "errors", c.Errors.String())
		}
		switch {
		case c.Writer.Status() >= 500:
			logging.Errorw("http request", fields...)
		case c.Writer.Status() >= 400:
			logging.Warnw("http request", fields...)
		default:
			logging.Infow("http request", fields...)
		}
	}
}
