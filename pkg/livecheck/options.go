package livecheck

import "time"

type waitConfig struct {
	key        string
	hasKey     bool
	timeout    time.Duration
	hasTimeout bool
}

// WaitOption configures a single Wait call.
type WaitOption func(*waitConfig)

// WithKey waits on key instead of the case's current execution ID.
func WithKey(key string) WaitOption {
	return func(c *waitConfig) {
		c.key = key
		c.hasKey = true
	}
}

// WithTimeout bounds the wait. A zero or negative timeout performs a single
// lookup and fails immediately when nothing is resolved.
func WithTimeout(d time.Duration) WaitOption {
	return func(c *waitConfig) {
		c.timeout = d
		c.hasTimeout = true
	}
}

type cloneConfig struct {
	name  string
	c     *Case
	index int
}

// CloneOption overrides one attribute of a cloned signal.
type CloneOption func(*cloneConfig)

// WithName sets the clone's name.
func WithName(name string) CloneOption {
	return func(c *cloneConfig) { c.name = name }
}

// WithCase binds the clone to another case.
func WithCase(cs *Case) CloneOption {
	return func(c *cloneConfig) { c.c = cs }
}

// WithIndex sets the clone's ordinal.
func WithIndex(index int) CloneOption {
	return func(c *cloneConfig) { c.index = index }
}
