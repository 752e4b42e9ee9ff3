package livecheck

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrTimeout matches every *TimeoutError.
	ErrTimeout = errors.New("livecheck: timed out")

	// ErrCancelled is returned by waits aborted because the process is stopping
	// or the caller's context ended.
	ErrCancelled = errors.New("livecheck: wait cancelled")

	// ErrInternal reports a broken internal contract, e.g. a signal used
	// before it was bound to a case. It is never expected in correct use.
	ErrInternal = errors.New("livecheck: internal error")

	// ErrNoExecution is returned by Wait without a key when the case has no active execution.
	ErrNoExecution = errors.New("livecheck: no active execution")

	// ErrUnknownCase is returned when dispatching to an unregistered case.
	ErrUnknownCase = errors.New("livecheck: unknown case")

	// ErrUnknownSignal is returned when dispatching to a signal the case does not declare.
	ErrUnknownSignal = errors.New("livecheck: unknown signal")
)

// TimeoutError is returned when the overall wait deadline passes without a value.
type TimeoutError struct {
	Signal  string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timed out waiting for signal %s (%s)", e.Signal, e.Timeout)
}

// Is lets errors.Is(err, ErrTimeout) match.
func (e *TimeoutError) Is(target error) bool { return target == ErrTimeout }

// DuplicateError is returned when a case name or definition is registered twice.
type DuplicateError struct {
	What string
	Name string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("livecheck: %s already registered: %s", e.What, e.Name)
}
