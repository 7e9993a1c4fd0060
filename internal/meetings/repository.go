package meetings

import (
	"context"
	"errors"

	"github.com/amphitryon/backend/internal/apperr"
	"github.com/amphitryon/backend/internal/models"
	"github.com/amphitryon/backend/pkg/docstore"
)

// Collection is the document collection holding meetings.
const Collection = "meetings"

// Repository handles meeting persistence.
type Repository struct {
	store docstore.Store
}

// NewRepository creates a meeting repository.
func NewRepository(store docstore.Store) *Repository {
	return &Repository{store: store}
}

// GetByID returns a meeting by ID.
func (r *Repository) GetByID(ctx context.Context, id string) (*models.Meeting, error) {
	var m models.Meeting
	if err := docstore.GetInto(ctx, r.store, Collection, id, &m); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, apperr.NotFound("meeting", id)
		}
		return nil, err
	}
	return &m, nil
}

// Save inserts or replaces a meeting.
func (r *Repository) Save(ctx context.Context, m *models.Meeting) error {
	return docstore.SaveFrom(ctx, r.store, Collection, m.ID, m)
}

// Delete removes a meeting by ID.
func (r *Repository) Delete(ctx context.Context, id string) error {
	if err := r.store.Delete(ctx, Collection, id); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return apperr.NotFound("meeting", id)
		}
		return err
	}
	return nil
}

// List returns every meeting in insertion order.
func (r *Repository) List(ctx context.Context) ([]models.Meeting, error) {
	raws, err := r.store.FindAll(ctx, Collection)
	if err != nil {
		return nil, err
	}
	return docstore.DecodeAll[models.Meeting](raws)
}

// ListByOwner returns the meetings created by ownerID.
func (r *Repository) ListByOwner(ctx context.Context, ownerID string) ([]models.Meeting, error) {
	raws, err := r.store.FindByField(ctx, Collection, "ownerID", ownerID)
	if err != nil {
		return nil, err
	}
	return docstore.DecodeAll[models.Meeting](raws)
}
