package livecheck

import "sync"

// Trigger is a clearable broadcast flag. Set wakes every goroutine that is
// selecting on a channel obtained from C before the call. The flag stays
// set until Clear, so a waiter that fetches C after Set returns at once.
//
// A wake carries no information about why it happened. Waiters must
// re-read whatever state they are interested in.
type Trigger struct {
	mu  sync.Mutex
	ch  chan struct{}
	set bool
}

// NewTrigger returns a cleared trigger.
func NewTrigger() *Trigger {
	return &Trigger{ch: make(chan struct{})}
}

// C returns a channel that is closed once the trigger is set.
func (t *Trigger) C() <-chan struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ch
}

// Set releases all current waiters. Setting a set trigger is a no-op.
func (t *Trigger) Set() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.set {
		t.set = true
		close(t.ch)
	}
}

// Clear re-arms the trigger.
func (t *Trigger) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.set {
		t.set = false
		t.ch = make(chan struct{})
	}
}

// IsSet reports whether the trigger is currently set.
func (t *Trigger) IsSet() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.set
}
