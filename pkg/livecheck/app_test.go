package livecheck

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goclaw/livecheck/pkg/bus"
	"github.com/goclaw/livecheck/pkg/codec"
	"github.com/goclaw/livecheck/pkg/store/memory"
)

func TestNew_RequiresStoreAndBus(t *testing.T) {
	b := bus.NewLocalBus(1, 1)
	defer b.Close()

	_, err := New(nil, b)
	assert.Error(t, err)
	_, err = New(memory.New(), nil)
	assert.Error(t, err)

	app, err := New(memory.New(), b)
	require.NoError(t, err)
	assert.Equal(t, DefaultPollInterval, app.PollInterval())
	assert.IsType(t, codec.JSON{}, app.Codec())
	assert.NotNil(t, app.Logger())
}

func TestApp_Suspend(t *testing.T) {
	app := newTestApp(t)

	t.Run("budget expiry is not an error", func(t *testing.T) {
		start := time.Now()
		err := app.Suspend(t.Context(), make(chan struct{}), 30*time.Millisecond)
		assert.NoError(t, err)
		assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
	})

	t.Run("wake", func(t *testing.T) {
		wake := make(chan struct{})
		close(wake)
		assert.NoError(t, app.Suspend(t.Context(), wake, time.Hour))
	})

	t.Run("context", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(t.Context(), 10*time.Millisecond)
		defer cancel()
		err := app.Suspend(ctx, make(chan struct{}), time.Hour)
		assert.True(t, errors.Is(err, ErrCancelled))
		assert.True(t, errors.Is(err, context.DeadlineExceeded))
	})

	t.Run("stop", func(t *testing.T) {
		go func() {
			time.Sleep(10 * time.Millisecond)
			app.Stop()
		}()
		err := app.Suspend(t.Context(), make(chan struct{}), time.Hour)
		assert.True(t, errors.Is(err, ErrCancelled))
		select {
		case <-app.Stopped():
		default:
			t.Fatal("Stopped channel should be closed")
		}
	})
}

func TestApp_RunDispatchesSentSignals(t *testing.T) {
	m := &recordingMetrics{}
	app := newTestApp(t, WithMetrics(m))
	def, c := registerCheckout(t, app)
	exec := c.Begin()

	ctx, cancel := context.WithCancel(t.Context())
	runErr := make(chan error, 1)
	go func() { runErr <- app.Run(ctx) }()

	want := order{ID: "o-9", Amount: 7}
	waiter := waitAsync(t.Context(), def.OrderPaid, WithTimeout(2*time.Second))
	require.NoError(t, def.OrderPaid.Send(t.Context(), exec.ID, want))

	r := <-waiter
	require.NoError(t, r.err)
	assert.Equal(t, want, r.value)

	cancel()
	select {
	case err := <-runErr:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
	assert.True(t, app.ShouldStop())

	m.mu.Lock()
	defer m.mu.Unlock()
	assert.Equal(t, []string{"OrderPaid"}, m.sent)
	assert.Equal(t, []string{"OrderPaid"}, m.resolved)
}

func TestApp_RunStopsOnStop(t *testing.T) {
	app := newTestApp(t)
	registerCheckout(t, app)

	done := make(chan error, 1)
	go func() { done <- app.Run(context.Background()) }()
	time.Sleep(20 * time.Millisecond)
	app.Stop()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Stop")
	}
}

func TestApp_DispatchDropsUnknownTargets(t *testing.T) {
	m := &recordingMetrics{}
	app := newTestApp(t, WithMetrics(m))
	registerCheckout(t, app)

	err := app.Dispatch(t.Context(), jsonEvent(t, "shipped", "nope", "k", "v"))
	assert.True(t, errors.Is(err, ErrUnknownCase))

	err = app.Dispatch(t.Context(), jsonEvent(t, "nope", "checkout", "k", "v"))
	assert.True(t, errors.Is(err, ErrUnknownSignal))

	assert.Equal(t, []string{"unknown_case", "unknown_signal"}, m.snapshotDropped())
}

func TestApp_SendWithBinaryCodec(t *testing.T) {
	app := newTestApp(t, WithCodec(codec.Binary{}))
	def := &struct {
		Blob *Signal[[]byte]
	}{}
	_, err := app.Register("blobs", def)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()
	go func() { _ = app.Run(ctx) }()

	require.NoError(t, def.Blob.Send(t.Context(), "k", []byte{0x00, 0xff}))
	got, err := def.Blob.Wait(t.Context(), WithKey("k"), WithTimeout(2*time.Second))
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0xff}, got)
}

func TestApp_SendPublishErrorPropagates(t *testing.T) {
	b := bus.NewLocalBus(1, 1)
	app := newTestAppWith(t, memory.New(), b)
	def, _ := registerCheckout(t, app)
	require.NoError(t, b.Close())

	err := def.OrderShipped.Send(t.Context(), "k", "v")
	assert.True(t, errors.Is(err, bus.ErrClosed))
}
