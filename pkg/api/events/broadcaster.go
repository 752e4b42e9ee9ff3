// Package events fans resolution notifications out to websocket subscribers.
package events

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/goclaw/livecheck/pkg/livecheck"
)

// TypeSignalResolved is the event type emitted for every resolved signal.
const TypeSignalResolved = "signal.resolved"

// Event is the canonical event payload broadcast to websocket subscribers.
type Event struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	CaseName  string    `json:"case,omitempty"`
	Signal    string    `json:"signal,omitempty"`
	Payload   any       `json:"payload"`
}

// ResolutionPayload describes a resolved signal without its encoded value.
type ResolutionPayload struct {
	EventID    string    `json:"event_id"`
	Case       string    `json:"case"`
	Signal     string    `json:"signal"`
	Key        string    `json:"key"`
	Size       int       `json:"size"`
	SentAt     time.Time `json:"sent_at"`
	ResolvedAt time.Time `json:"resolved_at"`
}

// Broadcaster broadcasts events to in-process subscribers.
type Broadcaster struct {
	mu          sync.RWMutex
	subscribers map[chan Event]struct{}
	dropped     atomic.Uint64
}

// NewBroadcaster creates a broadcaster instance.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		subscribers: make(map[chan Event]struct{}),
	}
}

// Subscribe subscribes to events with a buffered channel.
func (b *Broadcaster) Subscribe(buffer int) chan Event {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Event, buffer)
	b.mu.Lock()
	b.subscribers[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a subscription and closes its channel.
func (b *Broadcaster) Unsubscribe(ch chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subscribers[ch]; !ok {
		return
	}
	delete(b.subscribers, ch)
	close(ch)
}

// Subscribers returns the number of live subscriptions.
func (b *Broadcaster) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Dropped returns how many deliveries were skipped because a subscriber was full.
func (b *Broadcaster) Dropped() uint64 {
	return b.dropped.Load()
}

// Broadcast sends event to every subscriber without blocking.
func (b *Broadcaster) Broadcast(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subscribers {
		select {
		case ch <- event:
		default:
			b.dropped.Add(1)
		}
	}
}

// BroadcastResolution emits a signal.resolved event. It has the shape of a
// livecheck.ResolveObserver so it can be passed to App.OnResolve directly.
func (b *Broadcaster) BroadcastResolution(res livecheck.Resolution) {
	now := time.Now().UTC()
	payload := ResolutionPayload{
		Case:       res.CaseName,
		Signal:     res.SignalName,
		Key:        res.Key,
		ResolvedAt: now,
	}
	if res.Event != nil {
		payload.EventID = res.Event.ID
		payload.Size = len(res.Event.Value)
		payload.SentAt = res.Event.SentAt
	}

	b.Broadcast(Event{
		Type:      TypeSignalResolved,
		Timestamp: now,
		CaseName:  res.CaseName,
		Signal:    res.SignalName,
		Payload:   payload,
	})
}

// Close closes all subscriber channels.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subscribers {
		close(ch)
		delete(b.subscribers, ch)
	}
}
