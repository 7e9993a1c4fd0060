package auth

import (
	"context"
	"errors"

	"github.com/amphitryon/backend/internal/apperr"
	"github.com/amphitryon/backend/internal/models"
	"github.com/amphitryon/backend/pkg/docstore"
)

// Collection is the document collection holding users.
const Collection = "users"

// Repository handles user persistence.
type Repository struct {
	store docstore.Store
}

// NewRepository creates a user repository.
func NewRepository(store docstore.Store) *Repository {
	return &Repository{store: store}
}

// GetByID returns a user by ID.
func (r *Repository) GetByID(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if err := docstore.GetInto(ctx, r.store, Collection, id, &u); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, apperr.NotFound("user", id)
		}
		return nil, err
	}
	return &u, nil
}

// GetByUsername returns the user with the given username.
func (r *Repository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.findOne(ctx, "username", username)
}

// GetByGoogleID returns the user bound to a Google subject id.
func (r *Repository) GetByGoogleID(ctx context.Context, googleID string) (*models.User, error) {
	return r.findOne(ctx, "googleID", googleID)
}

// Save inserts or replaces a user.
func (r *Repository) Save(ctx context.Context, u *models.User) error {
	return docstore.SaveFrom(ctx, r.store, Collection, u.ID, u)
}

// List returns the public view of every user.
func (r *Repository) List(ctx context.Context) ([]models.UserPublic, error) {
	raws, err := r.store.FindAll(ctx, Collection)
	if err != nil {
		return nil, err
	}
	users, err := docstore.DecodeAll[models.User](raws)
	if err != nil {
		return nil, err
	}
	list := make([]models.UserPublic, 0, len(users))
	for i := range users {
		list = append(list, users[i].ToPublic())
	}
	return list, nil
}

func (r *Repository) findOne(ctx context.Context, field, value string) (*models.User, error) {
	raws, err := r.store.FindByField(ctx, Collection, field, value)
	if err != nil {
		return nil, err
	}
	if len(raws) == 0 {
		return nil, apperr.NotFound("user", value)
	}
	users, err := docstore.DecodeAll[models.User](raws[:1])
	if err != nil {
		return nil, err
	}
	return &users[0], nil
}
