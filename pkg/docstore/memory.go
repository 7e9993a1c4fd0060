package docstore

import (
	"context"
	"encoding/json"
	"sync"
)

// Memory is an in-process Store. Documents keep their first insertion order.
type Memory struct {
	mu    sync.RWMutex
	colls map[string]*memCollection
}

type memCollection struct {
	order []string
	docs  map[string]json.RawMessage
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{colls: make(map[string]*memCollection)}
}

func (m *Memory) Get(_ context.Context, collection, id string) (json.RawMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c := m.colls[collection]
	if c == nil {
		return nil, ErrNotFound
	}
	body, ok := c.docs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(body), nil
}

func (m *Memory) Save(_ context.Context, collection, id string, body json.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.colls[collection]
	if c == nil {
		c = &memCollection{docs: make(map[string]json.RawMessage)}
		m.colls[collection] = c
	}
	if _, ok := c.docs[id]; !ok {
		c.order = append(c.order, id)
	}
	c.docs[id] = clone(body)
	return nil
}

func (m *Memory) Delete(_ context.Context, collection, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.colls[collection]
	if c == nil {
		return ErrNotFound
	}
	if _, ok := c.docs[id]; !ok {
		return ErrNotFound
	}
	delete(c.docs, id)
	for i, v := range c.order {
		if v == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return nil
}

func (m *Memory) FindByField(_ context.Context, collection, field, value string) ([]json.RawMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c := m.colls[collection]
	if c == nil {
		return nil, nil
	}
	var out []json.RawMessage
	for _, id := range c.order {
		body := c.docs[id]
		var fields map[string]any
		if err := json.Unmarshal(body, &fields); err != nil {
			continue
		}
		if s, ok := fieldString(fields[field]); ok && s == value {
			out = append(out, clone(body))
		}
	}
	return out, nil
}

func (m *Memory) FindAll(_ context.Context, collection string) ([]json.RawMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c := m.colls[collection]
	if c == nil {
		return nil, nil
	}
	out := make([]json.RawMessage, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, clone(c.docs[id]))
	}
	return out, nil
}

func (m *Memory) Close(context.Context) error { return nil }

func clone(b json.RawMessage) json.RawMessage {
	out := make(json.RawMessage, len(b))
	copy(out, b)
	return out
}
