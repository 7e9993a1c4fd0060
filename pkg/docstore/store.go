// Package docstore is a small schemaless document store: JSON bodies keyed by
// (collection, id) with single-record atomic writes and field lookups.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotFound is returned by Get and Delete when no document matches.
var ErrNotFound = errors.New("docstore: not found")

// Store is the persistence boundary used by every repository.
// Writes are atomic per document only; there are no multi-document transactions.
type Store interface {
	Get(ctx context.Context, collection, id string) (json.RawMessage, error)
	// Save inserts or replaces the document.
	Save(ctx context.Context, collection, id string, body json.RawMessage) error
	Delete(ctx context.Context, collection, id string) error
	// FindByField returns documents whose top-level field equals value (string comparison),
	// in insertion order.
	FindByField(ctx context.Context, collection, field, value string) ([]json.RawMessage, error)
	// FindAll returns every document of the collection in insertion order.
	FindAll(ctx context.Context, collection string) ([]json.RawMessage, error)
	Close(ctx context.Context) error
}

// GetInto loads a document and decodes it into v.
func GetInto(ctx context.Context, s Store, collection, id string, v any) error {
	raw, err := s.Get(ctx, collection, id)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode %s/%s: %w", collection, id, err)
	}
	return nil
}

// SaveFrom encodes v and saves it under id.
func SaveFrom(ctx context.Context, s Store, collection, id string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", collection, id, err)
	}
	return s.Save(ctx, collection, id, body)
}

// DecodeAll decodes a list of raw documents into a typed slice.
func DecodeAll[T any](raws []json.RawMessage) ([]T, error) {
	out := make([]T, 0, len(raws))
	for _, raw := range raws {
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("decode document: %w", err)
		}
		out = append(out, v)
	}
	return out, nil
}

// fieldString renders a decoded JSON value the way FindByField compares it.
func fieldString(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		return t, true
	case bool, float64:
		return fmt.Sprint(t), true
	default:
		return "", false
	}
}
