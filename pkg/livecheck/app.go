// Package livecheck lets test cases wait for keyed events published by the
// system under test.
//
// A Signal is declared on a case definition and registered with an App.
// Producers call Signal.Send; the App dispatcher receives the event from the
// bus and resolves it into the shared store; waiters blocked in Signal.Wait
// wake, re-read the store for their own key and return the decoded value.
//
//	type Checkout struct {
//		OrderPaid    *livecheck.Signal[Payment]
//		OrderShipped *livecheck.Signal[Shipment] `signal:"shipped"`
//	}
//
//	def := &Checkout{}
//	c, _ := app.Register("checkout", def)
//	exec := c.Begin()
//	payment, err := def.OrderPaid.Wait(ctx, livecheck.WithTimeout(30*time.Second))
package livecheck

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/goclaw/livecheck/pkg/bus"
	"github.com/goclaw/livecheck/pkg/codec"
	"github.com/goclaw/livecheck/pkg/event"
	"github.com/goclaw/livecheck/pkg/logger"
	"github.com/goclaw/livecheck/pkg/store"
)

// DefaultPollInterval bounds a single suspension, and therefore how long a
// waiter can take to notice a stop request.
const DefaultPollInterval = 2 * time.Second

const tracerName = "github.com/goclaw/livecheck/pkg/livecheck"

// Resolution describes one event written to the store by the dispatcher.
type Resolution struct {
	CaseName   string
	SignalName string
	Key        string
	Event      *event.Event
}

// ResolveObserver is notified after every successful resolve.
type ResolveObserver func(Resolution)

// App owns the resolved-event store, the bus and the process-wide stop
// condition shared by every signal.
type App struct {
	store        store.Store
	bus          bus.Bus
	codec        codec.Codec
	log          logger.Logger
	metrics      MetricsRecorder
	tracer       trace.Tracer
	pollInterval time.Duration
	maxWait      time.Duration

	stopping atomic.Bool
	stopCh   chan struct{}
	stopOnce sync.Once

	mu    sync.RWMutex
	cases map[string]*Case
	defs  map[any]string

	obsMu     sync.RWMutex
	observers []ResolveObserver
}

// Option configures an App.
type Option func(*App)

// WithCodec sets the codec used to encode sent values and decode waited values.
func WithCodec(c codec.Codec) Option {
	return func(a *App) {
		if c != nil {
			a.codec = c
		}
	}
}

// WithLogger sets the application logger.
func WithLogger(l logger.Logger) Option {
	return func(a *App) {
		if l != nil {
			a.log = l
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m MetricsRecorder) Option {
	return func(a *App) {
		if m != nil {
			a.metrics = m
		}
	}
}

// WithTracer overrides the tracer taken from the global OpenTelemetry provider.
func WithTracer(t trace.Tracer) Option {
	return func(a *App) {
		if t != nil {
			a.tracer = t
		}
	}
}

// WithPollInterval sets the poll ceiling of the wait loop.
func WithPollInterval(d time.Duration) Option {
	return func(a *App) {
		if d > 0 {
			a.pollInterval = d
		}
	}
}

// WithMaxWait bounds waits that do not pass WithTimeout. Zero leaves them unbounded.
func WithMaxWait(d time.Duration) Option {
	return func(a *App) {
		if d >= 0 {
			a.maxWait = d
		}
	}
}

// New creates an App over the given store and bus.
func New(st store.Store, b bus.Bus, opts ...Option) (*App, error) {
	if st == nil {
		return nil, fmt.Errorf("livecheck: store cannot be nil")
	}
	if b == nil {
		return nil, fmt.Errorf("livecheck: bus cannot be nil")
	}
	a := &App{
		store:        st,
		bus:          b,
		codec:        codec.JSON{},
		log:          logger.Global(),
		metrics:      nopMetrics{},
		tracer:       otel.Tracer(tracerName),
		pollInterval: DefaultPollInterval,
		stopCh:       make(chan struct{}),
		cases:        make(map[string]*Case),
		defs:         make(map[any]string),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Store returns the resolved-event store.
func (a *App) Store() store.Store { return a.store }

// Bus returns the bus.
func (a *App) Bus() bus.Bus { return a.bus }

// Codec returns the payload codec.
func (a *App) Codec() codec.Codec { return a.codec }

// Logger returns the application logger.
func (a *App) Logger() logger.Logger { return a.log }

// PollInterval returns the wait-loop poll ceiling.
func (a *App) PollInterval() time.Duration { return a.pollInterval }

// ShouldStop reports whether the process is shutting down.
func (a *App) ShouldStop() bool {
	return a.stopping.Load()
}

// Stop requests cooperative shutdown. Every suspended waiter wakes and
// returns ErrCancelled. Stop is idempotent.
func (a *App) Stop() {
	a.stopOnce.Do(func() {
		a.stopping.Store(true)
		close(a.stopCh)
	})
}

// Stopped returns a channel closed once Stop has been called.
func (a *App) Stopped() <-chan struct{} {
	return a.stopCh
}

// Suspend blocks until wake is closed, budget elapses, the app stops or ctx
// ends. Expiry of the budget is not an error; the caller decides whether its
// own deadline has passed. A stop request yields ErrCancelled.
func (a *App) Suspend(ctx context.Context, wake <-chan struct{}, budget time.Duration) error {
	timer := time.NewTimer(budget)
	defer timer.Stop()

	select {
	case <-wake:
		return nil
	case <-timer.C:
		return nil
	case <-a.stopCh:
		return ErrCancelled
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrCancelled, ctx.Err())
	}
}

// OnResolve registers an observer called after each successful resolve.
// Observers run on the dispatcher goroutine and must not block.
func (a *App) OnResolve(fn ResolveObserver) {
	if fn == nil {
		return
	}
	a.obsMu.Lock()
	defer a.obsMu.Unlock()
	a.observers = append(a.observers, fn)
}

func (a *App) notifyResolved(r Resolution) {
	a.obsMu.RLock()
	observers := make([]ResolveObserver, len(a.observers))
	copy(observers, a.observers)
	a.obsMu.RUnlock()

	for _, fn := range observers {
		fn(r)
	}
}

// Case returns a registered case by name.
func (a *App) Case(name string) (*Case, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	c, ok := a.cases[name]
	return c, ok
}

// Cases returns all registered cases.
func (a *App) Cases() []*Case {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]*Case, 0, len(a.cases))
	for _, c := range a.cases {
		out = append(out, c)
	}
	return out
}

// Run consumes every bus partition and resolves inbound events until ctx
// ends or Stop is called. On return the app is stopped.
func (a *App) Run(ctx context.Context) error {
	defer a.Stop()

	partitions := a.bus.Partitions()
	channels := make([]<-chan *event.Event, 0, partitions)
	for p := 0; p < partitions; p++ {
		ch, err := a.bus.Subscribe(ctx, p)
		if err != nil {
			for q := 0; q < p; q++ {
				_ = a.bus.Unsubscribe(q)
			}
			return fmt.Errorf("livecheck: subscribe partition %d: %w", p, err)
		}
		channels = append(channels, ch)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	for p, ch := range channels {
		wg.Add(1)
		go func(partition int, ch <-chan *event.Event) {
			defer wg.Done()
			a.consume(runCtx, partition, ch)
		}(p, ch)
	}

	a.log.Info("livecheck dispatcher started", "partitions", partitions)

	select {
	case <-ctx.Done():
	case <-a.stopCh:
	}
	cancel()
	wg.Wait()

	for p := 0; p < partitions; p++ {
		_ = a.bus.Unsubscribe(p)
	}
	a.log.Info("livecheck dispatcher stopped")
	return nil
}

func (a *App) consume(ctx context.Context, partition int, ch <-chan *event.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if err := a.Dispatch(ctx, ev); err != nil {
				a.log.Warn("dropping signal event",
					"partition", partition,
					"case", ev.CaseName,
					"signal", ev.SignalName,
					"key", ev.Key,
					"error", err,
				)
			}
		}
	}
}

// Dispatch resolves one inbound event on the signal it addresses.
func (a *App) Dispatch(ctx context.Context, ev *event.Event) error {
	c, ok := a.Case(ev.CaseName)
	if !ok {
		a.metrics.RecordDispatchDropped("unknown_case")
		return fmt.Errorf("%w: %s", ErrUnknownCase, ev.CaseName)
	}
	sig, ok := c.signal(ev.SignalName)
	if !ok {
		a.metrics.RecordDispatchDropped("unknown_signal")
		return fmt.Errorf("%w: %s/%s", ErrUnknownSignal, ev.CaseName, ev.SignalName)
	}
	if err := sig.Resolve(ctx, ev.Key, ev); err != nil {
		a.metrics.RecordDispatchDropped("resolve_failed")
		return err
	}
	return nil
}
