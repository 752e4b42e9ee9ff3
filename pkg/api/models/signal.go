// Package models defines API request/response data structures.
package models

import (
	"encoding/json"
	"time"
)

// CaseResponse describes one registered case.
type CaseResponse struct {
	// Name is the case name.
	Name string `json:"name" example:"checkout"`

	// Signals lists signal names in declaration order.
	Signals []string `json:"signals"`

	// Execution is the in-flight execution, if any.
	Execution *ExecutionResponse `json:"execution,omitempty"`
}

// ExecutionResponse describes a running case execution.
type ExecutionResponse struct {
	ID        string    `json:"id"`
	StartedAt time.Time `json:"started_at"`
}

// CaseListResponse is returned by GET /api/v1/cases.
type CaseListResponse struct {
	Cases []CaseResponse `json:"cases"`
	Total int            `json:"total"`
}

// PublishRequest asks the server to send a signal on behalf of an external producer.
type PublishRequest struct {
	// Key is the correlation key, e.g. an order ID.
	Key string `json:"key" validate:"required,max=512" example:"order-1042"`

	// Value is the payload; it is re-encoded with the server codec.
	Value json.RawMessage `json:"value" validate:"required"`
}

// PublishResponse acknowledges a published event.
type PublishResponse struct {
	EventID string    `json:"event_id"`
	Case    string    `json:"case"`
	Signal  string    `json:"signal"`
	Key     string    `json:"key"`
	SentAt  time.Time `json:"sent_at"`
}

// ResolvedResponse is the latest resolved event for a key.
type ResolvedResponse struct {
	EventID string    `json:"event_id"`
	Case    string    `json:"case"`
	Signal  string    `json:"signal"`
	Key     string    `json:"key"`
	SentAt  time.Time `json:"sent_at"`

	// Value is the decoded payload when the server codec can decode it
	// into a generic value; otherwise RawValue carries the bytes.
	Value    any    `json:"value,omitempty"`
	RawValue []byte `json:"raw_value,omitempty"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	Status     string            `json:"status"`
	Stopping   bool              `json:"stopping"`
	BusHealthy bool              `json:"bus_healthy"`
	Partitions int               `json:"partitions"`
	Cases      int               `json:"cases"`
	Uptime     string            `json:"uptime"`
	Version    map[string]string `json:"version"`
}
