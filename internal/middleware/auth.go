package middleware

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"tiffin-api/internal/response"
)

const (
	AdminTokenHeader = "X-Admin-Token"
	AdminActorHeader = "X-Admin-Actor"

	// ActorKey holds the name recorded as triggeredBy for admin actions.
	ActorKey = "admin_actor"
)

// AdminAuthMiddleware guards the admin API with a shared token
func AdminAuthMiddleware(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		provided := c.GetHeader(AdminTokenHeader)
		if provided == "" {
			response.AbortErrorJSON(c, http.StatusUnauthorized, "Missing admin token")
			return
		}
		if subtle.ConstantTimeCompare([]byte(provided), []byte(token)) != 1 {
			response.AbortErrorJSON(c, http.StatusUnauthorized, "Invalid admin token")
			return
		}

		actor := c.GetHeader(AdminActorHeader)
		if actor == "" {
			actor = "admin"
		}
		c.Set(ActorKey, actor)
		c.Set("request_time", time.Now())
		c.Next()
	}
}

// Actor returns the admin name stored by AdminAuthMiddleware.
func Actor(c *gin.Context) string {
	if actor := c.GetString(ActorKey); actor != "" {
		return actor
	}
	return "admin"
}
