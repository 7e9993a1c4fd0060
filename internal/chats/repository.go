package chats

import (
	"context"
	"errors"

	"github.com/amphitryon/backend/internal/apperr"
	"github.com/amphitryon/backend/internal/models"
	"github.com/amphitryon/backend/pkg/docstore"
)

// Collection is the document collection holding chats.
const Collection = "chats"

// Repository handles chat persistence.
type Repository struct {
	store docstore.Store
}

// NewRepository creates a chat repository.
func NewRepository(store docstore.Store) *Repository {
	return &Repository{store: store}
}

// Create stores a new chat. Messages is normalised to an empty list.
func (r *Repository) Create(ctx context.Context, c *models.Chat) error {
	if c.Messages == nil {
		c.Messages = []models.Message{}
	}
	return docstore.SaveFrom(ctx, r.store, Collection, c.ID, c)
}

// GetByID returns a chat by ID.
func (r *Repository) GetByID(ctx context.Context, id string) (*models.Chat, error) {
	var c models.Chat
	if err := docstore.GetInto(ctx, r.store, Collection, id, &c); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, apperr.NotFound("chat", id)
		}
		return nil, err
	}
	return &c, nil
}

// AppendMessage adds a message to the chat and saves it. Concurrent appends are last-writer-wins.
func (r *Repository) AppendMessage(ctx context.Context, id string, msg models.Message) (*models.Chat, error) {
	c, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c.Messages = append(c.Messages, msg)
	if err := docstore.SaveFrom(ctx, r.store, Collection, c.ID, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Delete removes a chat. Deleting a missing chat is not an error.
func (r *Repository) Delete(ctx context.Context, id string) error {
	if err := r.store.Delete(ctx, Collection, id); err != nil && !errors.Is(err, docstore.ErrNotFound) {
		return err
	}
	return nil
}
