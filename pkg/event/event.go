// Package event defines the envelope carried between signal producers and waiters.
package event

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event is the immutable envelope published on the bus when a signal is sent.
//
// Value holds the codec-encoded payload. It stays opaque until a waiter
// converts it into a typed value.
type Event struct {
	ID         string    `json:"id"`
	SignalName string    `json:"signal_name"`
	CaseName   string    `json:"case_name"`
	Key        string    `json:"key"`
	Value      []byte    `json:"value"`
	SentAt     time.Time `json:"sent_at"`
}

// New builds an envelope with a generated identity.
func New(signalName, caseName, key string, value []byte) (*Event, error) {
	if signalName == "" {
		return nil, fmt.Errorf("event: signal name is required")
	}
	if caseName == "" {
		return nil, fmt.Errorf("event: case name is required")
	}
	return &Event{
		ID:         uuid.NewString(),
		SignalName: signalName,
		CaseName:   caseName,
		Key:        key,
		Value:      append([]byte(nil), value...),
		SentAt:     time.Now().UTC(),
	}, nil
}

// Clone returns a deep copy, so stores can hand out values callers may not mutate.
func (e *Event) Clone() *Event {
	if e == nil {
		return nil
	}
	c := *e
	c.Value = append([]byte(nil), e.Value...)
	return &c
}

func (e *Event) String() string {
	return fmt.Sprintf("<Event %s case=%s signal=%s key=%s>", e.ID, e.CaseName, e.SignalName, e.Key)
}
