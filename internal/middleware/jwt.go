package middleware

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/amphitryon/backend/internal/apperr"
	"github.com/amphitryon/backend/internal/auth"
	"github.com/amphitryon/backend/internal/models"
	"github.com/amphitryon/backend/pkg/response"
)

const (
	// ContextUser is the key for the authenticated *models.User in gin context.
	ContextUser = "user"
	// ContextUserID is the key for the authenticated user id in gin context.
	ContextUserID = "user_id"
)

// PrincipalResolver turns a session token into a user. *auth.SessionResolver implements it.
type PrincipalResolver interface {
	Resolve(ctx context.Context, token string) (*models.User, error)
}

// JWT returns a middleware that resolves the session token into the current user.
// The token is read from the session header, falling back to Authorization.
func JWT(resolver PrincipalResolver, sessionHeader string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader(sessionHeader)
		if header == "" {
			header = c.GetHeader("Authorization")
		}
		if header == "" {
			response.Unauthorized(c, "missing session token")
			c.Abort()
			return
		}
		token, ok := auth.TokenFromHeader(header)
		if !ok {
			response.Unauthorized(c, "invalid session header")
			c.Abort()
			return
		}
		user, err := resolver.Resolve(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, apperr.ErrUnauthenticated) {
				response.Unauthorized(c, "invalid or expired token")
			} else {
				response.Internal(c, "failed to load user")
			}
			c.Abort()
			return
		}
		c.Set(ContextUser, user)
		c.Set(ContextUserID, user.ID)
		c.Next()
	}
}

// CurrentUser returns the user stored by JWT, or nil.
func CurrentUser(c *gin.Context) *models.User {
	v, ok := c.Get(ContextUser)
	if !ok {
		return nil
	}
	u, _ := v.(*models.User)
	return u
}
