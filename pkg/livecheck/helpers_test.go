package livecheck

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/goclaw/livecheck/pkg/bus"
	"github.com/goclaw/livecheck/pkg/event"
	"github.com/goclaw/livecheck/pkg/logger"
	"github.com/goclaw/livecheck/pkg/store"
	"github.com/goclaw/livecheck/pkg/store/memory"
)

type order struct {
	ID     string `json:"id"`
	Amount int    `json:"amount"`
}

type checkoutCase struct {
	OrderPaid    *Signal[order]
	OrderShipped *Signal[string] `signal:"shipped"`
	Refunded     *Signal[int]
	notes        string
}

func newTestApp(t *testing.T, opts ...Option) *App {
	t.Helper()
	b := bus.NewLocalBus(4, 64)
	t.Cleanup(func() { _ = b.Close() })
	return newTestAppWith(t, memory.New(), b, opts...)
}

func newTestAppWith(t *testing.T, st store.Store, b bus.Bus, opts ...Option) *App {
	t.Helper()
	base := []Option{WithLogger(logger.Nop()), WithPollInterval(50 * time.Millisecond)}
	app, err := New(st, b, append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(app.Stop)
	return app
}

func registerCheckout(t *testing.T, app *App) (*checkoutCase, *Case) {
	t.Helper()
	def := &checkoutCase{}
	c, err := app.Register("checkout", def)
	require.NoError(t, err)
	return def, c
}

func jsonEvent(t *testing.T, signal, caseName, key string, v any) *event.Event {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	ev, err := event.New(signal, caseName, key, data)
	require.NoError(t, err)
	return ev
}

type waitResult[V any] struct {
	value V
	err   error
	took  time.Duration
}

func waitAsync[V any](ctx context.Context, s *Signal[V], opts ...WaitOption) <-chan waitResult[V] {
	out := make(chan waitResult[V], 1)
	go func() {
		start := time.Now()
		v, err := s.Wait(ctx, opts...)
		out <- waitResult[V]{value: v, err: err, took: time.Since(start)}
	}()
	return out
}

type failingStore struct {
	store.Store
	setErr error
}

func (f *failingStore) Set(context.Context, string, string, *event.Event) error {
	return f.setErr
}

type waitRecord struct {
	signal  string
	outcome string
}

type recordingMetrics struct {
	mu       sync.Mutex
	sent     []string
	resolved []string
	waits    []waitRecord
	dropped  []string
}

func (m *recordingMetrics) RecordSignalSent(signal string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, signal)
}

func (m *recordingMetrics) RecordSignalResolved(signal string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resolved = append(m.resolved, signal)
}

func (m *recordingMetrics) RecordSignalWait(signal, outcome string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.waits = append(m.waits, waitRecord{signal: signal, outcome: outcome})
}

func (m *recordingMetrics) RecordDispatchDropped(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dropped = append(m.dropped, reason)
}

func (m *recordingMetrics) snapshotWaits() []waitRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]waitRecord(nil), m.waits...)
}

func (m *recordingMetrics) snapshotDropped() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.dropped...)
}
