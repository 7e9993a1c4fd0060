package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/amphitryon/backend/internal/apperr"
	"github.com/amphitryon/backend/internal/models"
)

// UserLoader loads users by id. *Repository implements it.
type UserLoader interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// SessionResolver turns a session token into the user it was issued to.
type SessionResolver struct {
	jwt   *JWTService
	users UserLoader
}

// NewSessionResolver creates a session resolver.
func NewSessionResolver(jwt *JWTService, users UserLoader) *SessionResolver {
	return &SessionResolver{jwt: jwt, users: users}
}

// Resolve validates token and loads its subject. Any failure wraps apperr.ErrUnauthenticated
// except storage errors, which are returned as is.
func (r *SessionResolver) Resolve(ctx context.Context, token string) (*models.User, error) {
	claims, err := r.jwt.Validate(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrUnauthenticated, err)
	}
	u, err := r.users.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, fmt.Errorf("%w: user %s no longer exists", apperr.ErrUnauthenticated, claims.Subject)
		}
		return nil, err
	}
	return u, nil
}
