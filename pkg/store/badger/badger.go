// Package badger provides a Badger-backed resolved-event store.
//
// It lets resolutions survive a process restart, which is useful when the
// dispatcher and the waiting test run in separate invocations on one host.
package badger

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/dgraph-io/badger/v4"

	"github.com/goclaw/livecheck/pkg/event"
	"github.com/goclaw/livecheck/pkg/store"
)

const keyPrefix = "livecheck:resolved:"

// Config holds configuration for Store.
type Config struct {
	Path       string
	SyncWrites bool
	// InMemory runs Badger without touching disk. Path must be empty.
	InMemory         bool
	ValueLogFileSize int64
}

// Store implements store.Store using Badger.
type Store struct {
	db *badger.DB
}

// New opens (or creates) the Badger database.
func New(cfg *Config) (*Store, error) {
	opts := badger.DefaultOptions(cfg.Path)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.SyncWrites = cfg.SyncWrites
	if cfg.ValueLogFileSize > 0 {
		opts.ValueLogFileSize = cfg.ValueLogFileSize
	}
	// Only the latest value per key matters.
	opts.NumVersionsToKeep = 1
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, &store.UnavailableError{Cause: err}
	}
	return &Store{db: db}, nil
}

func resolvedKey(caseName, key string) []byte {
	return []byte(store.Key(keyPrefix, caseName, key))
}

// Get returns the latest event for the key.
func (b *Store) Get(_ context.Context, caseName, key string) (*event.Event, error) {
	var ev event.Event
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(resolvedKey(caseName, key))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return store.ErrNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			if err := json.Unmarshal(val, &ev); err != nil {
				return &store.SerializationError{Operation: "unmarshal", Cause: err}
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

// Set overwrites the event for the key.
func (b *Store) Set(_ context.Context, caseName, key string, ev *event.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return &store.SerializationError{Operation: "marshal", Cause: err}
	}
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(resolvedKey(caseName, key), data)
	})
}

// Close closes the database.
func (b *Store) Close() error {
	return b.db.Close()
}
