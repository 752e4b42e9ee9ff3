// Package redis provides a Redis-backed resolved-event store shared across processes.
package redis

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/goclaw/livecheck/pkg/event"
	"github.com/goclaw/livecheck/pkg/store"
)

// DefaultPrefix namespaces resolved keys.
const DefaultPrefix = "livecheck:resolved:"

// Store implements store.Store on plain Redis string keys.
type Store struct {
	client redis.UniversalClient
	prefix string
}

// Option configures Store.
type Option func(*Store)

// WithPrefix overrides the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// New wraps an existing client. The caller keeps ownership of client and
// closes it after the store.
func New(client redis.UniversalClient, opts ...Option) *Store {
	s := &Store{
		client: client,
		prefix: DefaultPrefix,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the latest event for the key.
func (s *Store) Get(ctx context.Context, caseName, key string) (*event.Event, error) {
	data, err := s.client.Get(ctx, store.Key(s.prefix, caseName, key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, store.ErrNotFound
		}
		return nil, &store.UnavailableError{Cause: err}
	}
	var ev event.Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, &store.SerializationError{Operation: "unmarshal", Cause: err}
	}
	return &ev, nil
}

// Set overwrites the event for the key without expiry.
func (s *Store) Set(ctx context.Context, caseName, key string, ev *event.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return &store.SerializationError{Operation: "marshal", Cause: err}
	}
	if err := s.client.Set(ctx, store.Key(s.prefix, caseName, key), data, 0).Err(); err != nil {
		return &store.UnavailableError{Cause: err}
	}
	return nil
}

// Close is a no-op; the injected client is closed by its owner.
func (s *Store) Close() error {
	return nil
}
