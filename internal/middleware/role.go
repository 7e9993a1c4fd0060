package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/amphitryon/backend/internal/models"
	"github.com/amphitryon/backend/pkg/response"
)

// RequireStudent allows only users holding a student profile.
func RequireStudent() gin.HandlerFunc {
	return requireCapability("student", (*models.User).IsStudent)
}

// RequireHost allows only users holding a host profile.
func RequireHost() gin.HandlerFunc {
	return requireCapability("host", (*models.User).IsHost)
}

func requireCapability(name string, has func(*models.User) bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil {
			response.Unauthorized(c, "missing user context")
			c.Abort()
			return
		}
		if !has(user) {
			response.NotAcceptable(c, "user is not a "+name)
			c.Abort()
			return
		}
		c.Next()
	}
}
