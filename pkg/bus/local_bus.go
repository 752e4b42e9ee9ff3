package bus

import (
	"context"
	"fmt"
	"sync"

	"github.com/goclaw/livecheck/pkg/event"
)

// LocalBus is an in-memory bus backed by one buffered channel per partition.
//
// Publish blocks while the target partition is full, so events are never
// dropped while a consumer is slow. Events published before a partition is
// subscribed stay buffered.
type LocalBus struct {
	mu         sync.RWMutex
	partitions []chan *event.Event
	subscribed []bool
	closed     bool

	done      chan struct{}
	closeOnce sync.Once
}

// NewLocalBus creates an in-memory bus.
func NewLocalBus(partitions, bufferSize int) *LocalBus {
	if partitions <= 0 {
		partitions = DefaultPartitions
	}
	if bufferSize <= 0 {
		bufferSize = 64
	}
	b := &LocalBus{
		partitions: make([]chan *event.Event, partitions),
		subscribed: make([]bool, partitions),
		done:       make(chan struct{}),
	}
	for i := range b.partitions {
		b.partitions[i] = make(chan *event.Event, bufferSize)
	}
	return b
}

// Publish delivers ev to the partition owning its key.
func (b *LocalBus) Publish(ctx context.Context, ev *event.Event) error {
	if err := validate(ev); err != nil {
		metricsRecorder().RecordBusFailed("local", "invalid_event")
		return err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		metricsRecorder().RecordBusFailed("local", "bus_closed")
		return ErrClosed
	}

	ch := b.partitions[Partition(ev.Key, len(b.partitions))]
	select {
	case ch <- ev.Clone():
		metricsRecorder().RecordBusPublished("local")
		return nil
	case <-b.done:
		metricsRecorder().RecordBusFailed("local", "bus_closed")
		return ErrClosed
	case <-ctx.Done():
		metricsRecorder().RecordBusFailed("local", "context_done")
		return ctx.Err()
	}
}

// Subscribe returns the channel of one partition. Each partition has at most one consumer.
func (b *LocalBus) Subscribe(_ context.Context, partition int) (<-chan *event.Event, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrClosed
	}
	if partition < 0 || partition >= len(b.partitions) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPartition, partition)
	}
	if b.subscribed[partition] {
		return nil, fmt.Errorf("%w: %d", ErrAlreadySubscribed, partition)
	}
	b.subscribed[partition] = true
	return b.partitions[partition], nil
}

// Unsubscribe marks the partition free again. Buffered events are kept.
func (b *LocalBus) Unsubscribe(partition int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if partition < 0 || partition >= len(b.partitions) {
		return fmt.Errorf("%w: %d", ErrInvalidPartition, partition)
	}
	b.subscribed[partition] = false
	return nil
}

// Partitions returns the partition count.
func (b *LocalBus) Partitions() int {
	return len(b.partitions)
}

// Close shuts down the bus and closes all partition channels.
func (b *LocalBus) Close() error {
	// Release publishers blocked on a full partition before taking the write lock.
	b.closeOnce.Do(func() { close(b.done) })

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	for _, ch := range b.partitions {
		close(ch)
	}
	return nil
}

// Healthy returns true if the bus is not closed.
func (b *LocalBus) Healthy() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return !b.closed
}

var _ Bus = (*LocalBus)(nil)
