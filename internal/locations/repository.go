package locations

import (
	"context"
	"errors"

	"github.com/amphitryon/backend/internal/apperr"
	"github.com/amphitryon/backend/internal/models"
	"github.com/amphitryon/backend/pkg/docstore"
)

// Collection is the document collection holding locations.
const Collection = "locations"

// Repository handles location persistence.
type Repository struct {
	store docstore.Store
}

// NewRepository creates a location repository.
func NewRepository(store docstore.Store) *Repository {
	return &Repository{store: store}
}

// GetByID returns a location by ID.
func (r *Repository) GetByID(ctx context.Context, id string) (*models.Location, error) {
	var l models.Location
	if err := docstore.GetInto(ctx, r.store, Collection, id, &l); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, apperr.NotFound("location", id)
		}
		return nil, err
	}
	return &l, nil
}

// Save inserts or replaces a location.
func (r *Repository) Save(ctx context.Context, l *models.Location) error {
	return docstore.SaveFrom(ctx, r.store, Collection, l.ID, l)
}

// List returns every location.
func (r *Repository) List(ctx context.Context) ([]models.Location, error) {
	raws, err := r.store.FindAll(ctx, Collection)
	if err != nil {
		return nil, err
	}
	return docstore.DecodeAll[models.Location](raws)
}

// ListByHost returns the locations owned by hostID.
func (r *Repository) ListByHost(ctx context.Context, hostID string) ([]models.Location, error) {
	raws, err := r.store.FindByField(ctx, Collection, "hostID", hostID)
	if err != nil {
		return nil, err
	}
	return docstore.DecodeAll[models.Location](raws)
}
