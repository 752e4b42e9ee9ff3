// Package bus carries signal events from producers to the dispatcher.
//
// Events are partitioned by key: every event for a given key lands on the
// same partition, so same-key events keep their relative order as long as
// the transport preserves it. There is no ordering across keys.
package bus

import (
	"context"
	"errors"
	"hash/fnv"

	"github.com/goclaw/livecheck/pkg/event"
)

// DefaultPartitions is used when a bus is created with a non-positive partition count.
const DefaultPartitions = 8

var (
	// ErrClosed is returned by operations on a closed bus.
	ErrClosed = errors.New("bus: closed")
	// ErrAlreadySubscribed is returned when a partition already has a consumer.
	ErrAlreadySubscribed = errors.New("bus: partition already subscribed")
	// ErrInvalidPartition is returned for partitions outside [0, Partitions()).
	ErrInvalidPartition = errors.New("bus: invalid partition")
)

// Bus publishes events and hands them to one consumer per partition.
type Bus interface {
	// Publish sends ev to the partition owning ev.Key.
	Publish(ctx context.Context, ev *event.Event) error

	// Subscribe returns the delivery channel of one partition.
	Subscribe(ctx context.Context, partition int) (<-chan *event.Event, error)

	// Unsubscribe releases a partition subscription.
	Unsubscribe(partition int) error

	// Partitions returns the number of partitions.
	Partitions() int

	// Close shuts down the bus and closes every delivery channel.
	Close() error

	// Healthy returns true if the bus is operational.
	Healthy() bool
}

// Partition maps a key onto one of n partitions.
func Partition(key string, n int) int {
	if n <= 1 {
		return 0
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(n))
}

func validate(ev *event.Event) error {
	if ev == nil {
		return errors.New("bus: event cannot be nil")
	}
	if ev.CaseName == "" || ev.SignalName == "" {
		return errors.New("bus: event must name its case and signal")
	}
	return nil
}
