package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/goclaw/livecheck/pkg/event"
)

// DefaultChannelPrefix namespaces the per-partition Redis channels.
const DefaultChannelPrefix = "livecheck:signal:"

// RedisBus is a Redis Pub/Sub-backed bus with one channel per partition.
//
// A Pub/Sub connection delivers messages in publish order, which keeps
// same-key events ordered. Messages published while no process subscribes a
// partition are lost.
type RedisBus struct {
	client        redis.UniversalClient
	channelPrefix string
	partitions    int
	bufferSize    int

	mu          sync.RWMutex
	subscribers map[int]*redisSubscription
	closed      bool
}

type redisSubscription struct {
	pubsub *redis.PubSub
	ch     chan *event.Event
	cancel context.CancelFunc
	done   chan struct{}
}

// NewRedisBus creates a Redis-backed bus.
func NewRedisBus(client redis.UniversalClient, channelPrefix string, partitions, bufferSize int) *RedisBus {
	if channelPrefix == "" {
		channelPrefix = DefaultChannelPrefix
	}
	if partitions <= 0 {
		partitions = DefaultPartitions
	}
	if bufferSize <= 0 {
		bufferSize = 64
	}
	return &RedisBus{
		client:        client,
		channelPrefix: channelPrefix,
		partitions:    partitions,
		bufferSize:    bufferSize,
		subscribers:   make(map[int]*redisSubscription),
	}
}

func (b *RedisBus) channel(partition int) string {
	return b.channelPrefix + strconv.Itoa(partition)
}

// Publish sends ev via Redis Pub/Sub on its key's partition channel.
func (b *RedisBus) Publish(ctx context.Context, ev *event.Event) error {
	if err := validate(ev); err != nil {
		metricsRecorder().RecordBusFailed("redis", "invalid_event")
		return err
	}

	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		metricsRecorder().RecordBusFailed("redis", "bus_closed")
		return ErrClosed
	}
	b.mu.RUnlock()

	data, err := json.Marshal(ev)
	if err != nil {
		metricsRecorder().RecordBusFailed("redis", "marshal_failed")
		return fmt.Errorf("bus: marshal event: %w", err)
	}

	channel := b.channel(Partition(ev.Key, b.partitions))
	if err := b.client.Publish(ctx, channel, data).Err(); err != nil {
		metricsRecorder().RecordBusFailed("redis", "publish_failed")
		return err
	}
	metricsRecorder().RecordBusPublished("redis")
	return nil
}

// Subscribe subscribes one partition channel. It returns once Redis has
// confirmed the subscription, so later publishes are not missed.
func (b *RedisBus) Subscribe(ctx context.Context, partition int) (<-chan *event.Event, error) {
	if partition < 0 || partition >= b.partitions {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPartition, partition)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrClosed
	}
	if _, exists := b.subscribers[partition]; exists {
		return nil, fmt.Errorf("%w: %d", ErrAlreadySubscribed, partition)
	}

	pubsub := b.client.Subscribe(ctx, b.channel(partition))
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("bus: subscribe partition %d: %w", partition, err)
	}

	subCtx, cancel := context.WithCancel(context.Background())
	sub := &redisSubscription{
		pubsub: pubsub,
		ch:     make(chan *event.Event, b.bufferSize),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	b.subscribers[partition] = sub

	go b.forwardMessages(subCtx, sub)

	return sub.ch, nil
}

func (b *RedisBus) forwardMessages(ctx context.Context, sub *redisSubscription) {
	defer func() {
		_ = sub.pubsub.Close()
		close(sub.ch)
		close(sub.done)
	}()

	redisCh := sub.pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-redisCh:
			if !ok {
				return
			}
			var ev event.Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				metricsRecorder().RecordBusFailed("redis", "decode_failed")
				continue
			}
			select {
			case sub.ch <- &ev:
				metricsRecorder().RecordBusDelivered("redis")
			case <-ctx.Done():
				return
			}
		}
	}
}

// Unsubscribe stops the partition subscription and waits for its forwarder to exit.
func (b *RedisBus) Unsubscribe(partition int) error {
	b.mu.Lock()
	sub, ok := b.subscribers[partition]
	delete(b.subscribers, partition)
	b.mu.Unlock()

	if !ok {
		return nil
	}
	sub.cancel()
	<-sub.done
	return nil
}

// Partitions returns the partition count.
func (b *RedisBus) Partitions() int {
	return b.partitions
}

// Close shuts down all subscriptions and the bus. The client is left open.
func (b *RedisBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	subs := b.subscribers
	b.subscribers = make(map[int]*redisSubscription)
	b.mu.Unlock()

	for _, sub := range subs {
		sub.cancel()
		<-sub.done
	}
	return nil
}

// Healthy checks if the Redis connection is alive.
func (b *RedisBus) Healthy() bool {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return false
	}
	b.mu.RUnlock()

	return b.client.Ping(context.Background()).Err() == nil
}

var _ Bus = (*RedisBus)(nil)
