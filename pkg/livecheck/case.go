package livecheck

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/goclaw/livecheck/pkg/event"
	"github.com/goclaw/livecheck/pkg/logger"
)

// Execution is one run of a case. Its ID is the default wait key.
type Execution struct {
	ID        string
	StartedAt time.Time
}

// Case groups the signals declared by one case definition.
type Case struct {
	app  *App
	name string
	log  logger.Logger

	signals []signalHandle
	byName  map[string]signalHandle

	mu   sync.RWMutex
	exec *Execution
}

// signalHandle is the type-erased view of a bound signal held by its case.
type signalHandle interface {
	Name() string
	Index() int
	Resolve(ctx context.Context, key string, ev *event.Event) error
}

// Name returns the case name.
func (c *Case) Name() string { return c.name }

// App returns the owning app.
func (c *Case) App() *App { return c.app }

// Logger returns the case logger, tagged with the case name.
func (c *Case) Logger() logger.Logger { return c.log }

// TotalSignals returns the number of signals declared by the case.
func (c *Case) TotalSignals() int { return len(c.signals) }

// SignalNames returns the declared signal names in declaration order.
func (c *Case) SignalNames() []string {
	names := make([]string, len(c.signals))
	for i, s := range c.signals {
		names[i] = s.Name()
	}
	return names
}

func (c *Case) signal(name string) (signalHandle, bool) {
	s, ok := c.byName[name]
	return s, ok
}

// Begin starts a new execution with a generated ID.
func (c *Case) Begin() *Execution {
	return c.BeginWithID(uuid.NewString())
}

// BeginWithID starts a new execution with the given ID, replacing any active one.
func (c *Case) BeginWithID(id string) *Execution {
	exec := &Execution{ID: id, StartedAt: time.Now().UTC()}
	c.mu.Lock()
	c.exec = exec
	c.mu.Unlock()
	c.log.Debug("execution started", "execution_id", id)
	return exec
}

// End clears the active execution.
func (c *Case) End() {
	c.mu.Lock()
	c.exec = nil
	c.mu.Unlock()
}

// Execution returns the active execution, if any.
func (c *Case) Execution() (*Execution, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.exec == nil {
		return nil, false
	}
	e := *c.exec
	return &e, true
}

// declarable is implemented by every *Signal[V]. bind must work on a nil
// receiver and returns a new signal bound to the case. A signal that already
// carries a name keeps it over fallback.
type declarable interface {
	bind(c *Case, fallback string, index int) (signalHandle, any)
}

var declarableType = reflect.TypeOf((*declarable)(nil)).Elem()

// Register binds every exported signal field of def to a new case. def must
// be a non-nil pointer to a struct. Nil signal fields are allocated. A signal
// created with NewSignal keeps its explicit name; otherwise it is named by
// its `signal` struct tag, or else by its field name. Signals are indexed
// from 1 in field order.
func (a *App) Register(name string, def any) (*Case, error) {
	if name == "" {
		return nil, fmt.Errorf("livecheck: case name cannot be empty")
	}
	if strings.Contains(name, ":") {
		return nil, fmt.Errorf("livecheck: case name %q cannot contain ':'", name)
	}

	rv := reflect.ValueOf(def)
	if !rv.IsValid() || rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return nil, fmt.Errorf("livecheck: case definition must be a non-nil struct pointer, got %T", def)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if _, exists := a.cases[name]; exists {
		return nil, &DuplicateError{What: "case", Name: name}
	}
	if prev, exists := a.defs[def]; exists {
		return nil, &DuplicateError{What: "definition", Name: prev}
	}

	c := &Case{
		app:    a,
		name:   name,
		log:    a.log.With("case", name),
		byName: make(map[string]signalHandle),
	}

	sv := rv.Elem()
	st := sv.Type()
	type boundField struct {
		field int
		value reflect.Value
	}
	var bound []boundField
	for i := 0; i < st.NumField(); i++ {
		field := st.Field(i)
		if !field.IsExported() || !field.Type.Implements(declarableType) {
			continue
		}
		fallback := field.Name
		if tag := field.Tag.Get("signal"); tag != "" {
			fallback = tag
		}

		fv := sv.Field(i)
		d := fv.Interface().(declarable)
		handle, typed := d.bind(c, fallback, len(c.signals)+1)
		if _, dup := c.byName[handle.Name()]; dup {
			return nil, &DuplicateError{What: "signal", Name: name + "/" + handle.Name()}
		}
		c.signals = append(c.signals, handle)
		c.byName[handle.Name()] = handle
		bound = append(bound, boundField{field: i, value: reflect.ValueOf(typed)})
	}

	// Fields are only assigned once every signal bound cleanly.
	for _, b := range bound {
		sv.Field(b.field).Set(b.value)
	}

	a.cases[name] = c
	a.defs[def] = name
	c.log.Debug("case registered", "signals", len(c.signals))
	return c, nil
}
