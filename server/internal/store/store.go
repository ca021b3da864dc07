package store

import (
	"context"
	"sync"
	"time"
)

// Memory is a thread-safe in-memory document store keyed by document key.
// Its contents are lost when the process exits.
type Memory struct {
	mu   sync.RWMutex
	data map[string]*entry
	now  func() time.Time // injectable for deterministic tests
}

type entry struct {
	doc       Document
	updatedAt time.Time
}

// NewMemory creates an empty Memory store.
func NewMemory() *Memory {
	return &Memory{
		data: make(map[string]*entry),
		now:  time.Now,
	}
}

// Get returns a copy of the document stored under key.
func (m *Memory) Get(ctx context.Context, key string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return e.doc.Clone(), nil
}

// Set writes fields to the document under key. Increments are applied under
// the write lock, so concurrent increments are never lost.
func (m *Memory) Set(ctx context.Context, key string, fields Document, opts SetOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var current Document
	if e, ok := m.data[key]; ok {
		current = e.doc
	}
	m.data[key] = &entry{
		doc:       Apply(current, fields, opts),
		updatedAt: m.now(),
	}
	return nil
}

// UpdatedAt returns when the document under key was last written.
func (m *Memory) UpdatedAt(key string) (time.Time, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.data[key]
	if !ok {
		return time.Time{}, false
	}
	return e.updatedAt, true
}

// Len returns the number of documents held.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}

// Close is a no-op so Memory satisfies the same lifecycle as persistent backends.
func (m *Memory) Close() error { return nil }
