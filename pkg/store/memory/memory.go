// Package memory provides the in-process resolved-event store.
package memory

import (
	"context"
	"sync"

	"github.com/goclaw/livecheck/pkg/event"
	"github.com/goclaw/livecheck/pkg/store"
)

type resolvedKey struct {
	caseName string
	key      string
}

// Store implements store.Store using an in-memory map.
type Store struct {
	mu       sync.RWMutex
	resolved map[resolvedKey]*event.Event
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		resolved: make(map[resolvedKey]*event.Event),
	}
}

// Get returns a copy of the latest event for the key.
func (m *Store) Get(_ context.Context, caseName, key string) (*event.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ev, ok := m.resolved[resolvedKey{caseName, key}]
	if !ok {
		return nil, store.ErrNotFound
	}
	return ev.Clone(), nil
}

// Set stores a copy of ev, replacing any earlier value.
func (m *Store) Set(_ context.Context, caseName, key string, ev *event.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.resolved[resolvedKey{caseName, key}] = ev.Clone()
	return nil
}

// Len returns the number of resolved keys.
func (m *Store) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.resolved)
}

// Close is a no-op.
func (m *Store) Close() error {
	return nil
}
