package livecheck

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/goclaw/livecheck/pkg/event"
	"github.com/goclaw/livecheck/pkg/store"
)

// BaseSignal is the capability set of a typed signal.
type BaseSignal[V any] interface {
	Name() string
	Index() int
	Case() *Case
	Send(ctx context.Context, key string, value V) error
	Wait(ctx context.Context, opts ...WaitOption) (V, error)
	Resolve(ctx context.Context, key string, ev *event.Event) error
}

var _ BaseSignal[string] = (*Signal[string])(nil)

// base holds identity and wake bookkeeping shared by every signal variant.
type base struct {
	name    string
	c       *Case
	index   int
	trigger *Trigger
}

// Name returns the signal name.
func (b *base) Name() string { return b.name }

// Index returns the 1-based ordinal of the signal within its case.
func (b *base) Index() int { return b.index }

// Case returns the owning case, or nil before registration.
func (b *base) Case() *Case { return b.c }

func (b *base) app() (*App, error) {
	if b.c == nil || b.c.app == nil || b.trigger == nil {
		return nil, fmt.Errorf("%w: signal %q is not bound to a case", ErrInternal, b.name)
	}
	return b.c.app, nil
}

func (b *base) currentValue(ctx context.Context, key string) (*event.Event, error) {
	app, err := b.app()
	if err != nil {
		return nil, err
	}
	return app.store.Get(ctx, b.c.name, key)
}

func (b *base) setCurrentValue(ctx context.Context, key string, ev *event.Event) error {
	app, err := b.app()
	if err != nil {
		return err
	}
	return app.store.Set(ctx, b.c.name, key, ev)
}

// Resolve stores ev under key for the owning case, then wakes every waiter
// suspended on this signal. Nothing is woken if the write fails.
func (b *base) Resolve(ctx context.Context, key string, ev *event.Event) error {
	if ev == nil {
		return fmt.Errorf("livecheck: resolve %s: nil event", b.name)
	}
	if err := b.setCurrentValue(ctx, key, ev); err != nil {
		return fmt.Errorf("livecheck: resolve %s/%s: %w", b.name, key, err)
	}
	b.trigger.Set()

	app := b.c.app
	app.metrics.RecordSignalResolved(b.name)
	app.notifyResolved(Resolution{
		CaseName:   b.c.name,
		SignalName: b.name,
		Key:        key,
		Event:      ev,
	})
	return nil
}

// wait runs the suspend/clear/lookup loop until key resolves, the deadline
// passes or the app stops.
func (b *base) wait(ctx context.Context, key string, timeout time.Duration, bounded bool) (*event.Event, error) {
	app, err := b.app()
	if err != nil {
		return nil, err
	}

	var deadline time.Time
	if bounded {
		deadline = time.Now().Add(timeout)
	}

	if app.ShouldStop() {
		return nil, ErrCancelled
	}
	wake := b.trigger.C()
	if ev, err := b.currentValue(ctx, key); err == nil {
		return ev, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	for {
		if app.ShouldStop() {
			return nil, ErrCancelled
		}

		budget := app.pollInterval
		if bounded {
			remaining := time.Until(deadline)
			if remaining <= 0 {
				ev, err := b.currentValue(ctx, key)
				if errors.Is(err, store.ErrNotFound) {
					return nil, &TimeoutError{Signal: b.name, Timeout: timeout}
				}
				return ev, err
			}
			budget = min(budget, remaining)
		}

		if err := app.Suspend(ctx, wake, budget); err != nil {
			return nil, err
		}
		b.trigger.Clear()
		wake = b.trigger.C()

		if app.ShouldStop() {
			return nil, ErrCancelled
		}

		ev, err := b.currentValue(ctx, key)
		if err == nil {
			return ev, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
	}
}

// Signal is a named, typed event channel of a case. Values travel over the
// app bus and are resolved into the shared store by the dispatcher.
type Signal[V any] struct {
	base
}

// NewSignal creates an unbound signal with an explicit name. The name
// survives registration.
func NewSignal[V any](name string) *Signal[V] {
	return &Signal[V]{base: base{name: name, trigger: NewTrigger()}}
}

func (s *Signal[V]) bind(c *Case, fallback string, index int) (signalHandle, any) {
	name := fallback
	if s != nil && s.name != "" {
		name = s.name
	}
	bound := &Signal[V]{base: base{name: name, c: c, index: index, trigger: NewTrigger()}}
	return bound, bound
}

// Clone returns a copy with the same name, case and index, as overridden by
// opts. The clone has its own trigger and shares the app store.
func (s *Signal[V]) Clone(opts ...CloneOption) *Signal[V] {
	cfg := cloneConfig{name: s.name, c: s.c, index: s.index}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Signal[V]{base: base{name: cfg.name, c: cfg.c, index: cfg.index, trigger: NewTrigger()}}
}

func (s *Signal[V]) String() string {
	return fmt.Sprintf("<Signal: %s>", s.name)
}

// Send encodes value and publishes it on the bus under key. Publish errors
// are returned unchanged.
func (s *Signal[V]) Send(ctx context.Context, key string, value V) error {
	app, err := s.app()
	if err != nil {
		return err
	}

	ctx, span := app.tracer.Start(ctx, "livecheck.Signal.Send",
		trace.WithAttributes(
			attribute.String("livecheck.case", s.c.name),
			attribute.String("livecheck.signal", s.name),
			attribute.String("livecheck.key", key),
		),
	)
	defer span.End()

	payload, err := app.codec.Dumps(value)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "encode failed")
		return fmt.Errorf("livecheck: encode %s: %w", s.name, err)
	}
	ev, err := event.New(s.name, s.c.name, key, payload)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid event")
		return err
	}
	if err := app.bus.Publish(ctx, ev); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "publish failed")
		return err
	}

	app.metrics.RecordSignalSent(s.name)
	s.c.log.DebugContext(ctx, "signal sent", "signal", s.name, "key", key, "event_id", ev.ID)
	return nil
}

// Wait blocks until a value is resolved for the key, the timeout passes or
// the app stops. Without WithKey the case's current execution ID is used.
// Without WithTimeout the app's max wait applies, which defaults to none.
func (s *Signal[V]) Wait(ctx context.Context, opts ...WaitOption) (V, error) {
	var zero V

	app, err := s.app()
	if err != nil {
		return zero, err
	}

	cfg := waitConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if !cfg.hasKey {
		exec, ok := s.c.Execution()
		if !ok {
			return zero, fmt.Errorf("%w: case %s", ErrNoExecution, s.c.name)
		}
		cfg.key = exec.ID
	}
	if !cfg.hasTimeout && app.maxWait > 0 {
		cfg.timeout = app.maxWait
		cfg.hasTimeout = true
	}

	ctx, span := app.tracer.Start(ctx, "livecheck.Signal.Wait",
		trace.WithAttributes(
			attribute.String("livecheck.case", s.c.name),
			attribute.String("livecheck.signal", s.name),
			attribute.String("livecheck.key", cfg.key),
		),
	)
	defer span.End()

	timeout := "none"
	if cfg.hasTimeout {
		timeout = cfg.timeout.String()
	}
	s.c.log.InfoContext(ctx, "waiting for signal",
		"index", s.index,
		"total", s.c.TotalSignals(),
		"signal", strings.ToUpper(s.name),
		"key", cfg.key,
		"timeout", timeout,
	)

	start := time.Now()
	ev, err := s.wait(ctx, cfg.key, cfg.timeout, cfg.hasTimeout)
	app.metrics.RecordSignalWait(s.name, waitOutcome(err), time.Since(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, waitOutcome(err))
		return zero, err
	}

	var v V
	if err := app.codec.Loads(ev.Value, &v); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "decode failed")
		return zero, fmt.Errorf("livecheck: decode %s: %w", s.name, err)
	}
	return v, nil
}

func waitOutcome(err error) string {
	switch {
	case err == nil:
		return OutcomeResolved
	case errors.Is(err, ErrTimeout):
		return OutcomeTimeout
	case errors.Is(err, ErrCancelled):
		return OutcomeCancelled
	default:
		return OutcomeError
	}
}
