// Package store holds the latest resolved event per (case, key).
//
// Only the most recent value for a key is retained. There is no history
// and no expiry; a later Set for the same key overwrites the previous one.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/goclaw/livecheck/pkg/event"
)

// ErrNotFound reports that nothing has been resolved for a key yet.
// Waiters treat it as "not yet resolved", never as a failure.
var ErrNotFound = errors.New("store: not resolved")

// Store is the process-wide resolved-event store shared by all signals.
type Store interface {
	// Get returns the latest event for (caseName, key) or ErrNotFound.
	Get(ctx context.Context, caseName, key string) (*event.Event, error)

	// Set overwrites the event for (caseName, key).
	Set(ctx context.Context, caseName, key string, ev *event.Event) error

	// Close releases backend resources.
	Close() error
}

// UnavailableError indicates that the storage backend is unavailable.
type UnavailableError struct {
	Cause error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("store unavailable: %v", e.Cause)
}

func (e *UnavailableError) Unwrap() error { return e.Cause }

// SerializationError indicates a failure encoding or decoding a stored event.
type SerializationError struct {
	Operation string
	Cause     error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("serialization error during %s: %v", e.Operation, e.Cause)
}

func (e *SerializationError) Unwrap() error { return e.Cause }

// Key renders the canonical flat key for backends that need one.
// Case names may not contain the separator, keys may.
func Key(prefix, caseName, key string) string {
	return fmt.Sprintf("%s%s:%s", prefix, caseName, key)
}
