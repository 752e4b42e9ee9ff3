// Package config loads and validates livecheck process configuration.
package config

import (
	"fmt"
	"time"
)

// Config is the process configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app" validate:"required"`
	Server    ServerConfig    `mapstructure:"server" validate:"required"`
	Log       LogConfig       `mapstructure:"log" validate:"required"`
	Livecheck LivecheckConfig `mapstructure:"livecheck"`
	Bus       BusConfig       `mapstructure:"bus"`
	Store     StoreConfig     `mapstructure:"store"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
}

// AppConfig holds application metadata.
type AppConfig struct {
	Name        string `mapstructure:"name" validate:"required"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment" validate:"env"`
}

// ServerConfig holds the HTTP API configuration.
type ServerConfig struct {
	// Enabled starts the HTTP API alongside the dispatcher.
	Enabled bool `mapstructure:"enabled"`

	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port" validate:"required,min=1,max=65535"`

	HTTP      HTTPConfig      `mapstructure:"http"`
	CORS      CORSConfig      `mapstructure:"cors"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	WebSocket WebSocketConfig `mapstructure:"websocket"`
}

// HTTPConfig holds net/http server timeouts.
type HTTPConfig struct {
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxHeaderBytes  int           `mapstructure:"max_header_bytes" validate:"min=0"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	Enabled          bool     `mapstructure:"enabled"`
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age" validate:"min=0"`
}

// RateLimitConfig throttles the publish endpoint per client.
type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second" validate:"gte=0"`
	Burst             int     `mapstructure:"burst" validate:"min=0"`
}

// WebSocketConfig configures the resolution feed.
type WebSocketConfig struct {
	MaxConnections int           `mapstructure:"max_connections" validate:"min=0"`
	PingInterval   time.Duration `mapstructure:"ping_interval"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`

	// Format is json or text.
	Format string `mapstructure:"format" validate:"oneof=json text"`

	// Output is stdout, stderr, discard or a file path.
	Output string `mapstructure:"output"`
}

// LivecheckConfig tunes signal waits.
type LivecheckConfig struct {
	// PollInterval bounds one suspension of a waiter.
	PollInterval time.Duration `mapstructure:"poll_interval" validate:"gt=0"`

	// Codec names the payload codec, e.g. "json" or "json|binary".
	Codec string `mapstructure:"codec" validate:"required,codec"`

	// MaxWait bounds waits that set no timeout. Zero means unbounded.
	MaxWait time.Duration `mapstructure:"max_wait" validate:"gte=0"`

	// SelfCheckInterval is the period of the built-in round trip through
	// the bus and store. Zero disables it.
	SelfCheckInterval time.Duration `mapstructure:"self_check_interval" validate:"gte=0"`
}

// BusConfig selects and sizes the event bus.
type BusConfig struct {
	Type          string `mapstructure:"type" validate:"oneof=local redis"`
	Partitions    int    `mapstructure:"partitions" validate:"min=1,max=1024"`
	BufferSize    int    `mapstructure:"buffer_size" validate:"min=1"`
	ChannelPrefix string `mapstructure:"channel_prefix"`
}

// StoreConfig selects the resolved-event store.
type StoreConfig struct {
	Type   string           `mapstructure:"type" validate:"oneof=memory badger redis"`
	Badger BadgerConfig     `mapstructure:"badger"`
	Redis  RedisStoreConfig `mapstructure:"redis"`
}

// BadgerConfig holds BadgerDB settings.
type BadgerConfig struct {
	Path             string `mapstructure:"path"`
	SyncWrites       bool   `mapstructure:"sync_writes"`
	InMemory         bool   `mapstructure:"in_memory"`
	ValueLogFileSize int64  `mapstructure:"value_log_file_size" validate:"min=0"`
}

// RedisStoreConfig holds Redis store settings.
type RedisStoreConfig struct {
	Prefix string `mapstructure:"prefix"`
}

// RedisConfig is the connection shared by the Redis bus and store.
type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db" validate:"min=0"`
}

// MetricsConfig holds Prometheus settings.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
	Port    int    `mapstructure:"port" validate:"min=0,max=65535"`
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	Enabled    bool              `mapstructure:"enabled"`
	Exporter   string            `mapstructure:"exporter" validate:"omitempty,oneof=otlpgrpc"`
	Endpoint   string            `mapstructure:"endpoint"`
	Timeout    time.Duration     `mapstructure:"timeout"`
	Headers    map[string]string `mapstructure:"headers"`
	Sampler    string            `mapstructure:"sampler" validate:"omitempty,oneof=always_on always_off parentbased_traceidratio"`
	SampleRate float64           `mapstructure:"sample_rate" validate:"min=0,max=1"`
}

// UsesRedis reports whether any component needs the shared Redis connection.
func (c *Config) UsesRedis() bool {
	return c.Bus.Type == "redis" || c.Store.Type == "redis"
}

// Validate checks struct tags and cross-section rules.
func (c *Config) Validate() error {
	return ValidateWithDetails(c)
}

// String returns a summary without secrets.
func (c *Config) String() string {
	return fmt.Sprintf("Config{App: %s, Env: %s, Bus: %s, Store: %s, Server: :%d}",
		c.App.Name, c.App.Environment, c.Bus.Type, c.Store.Type, c.Server.Port)
}

const redacted = "<redacted>"

// Settings returns the flattened key space, e.g. "bus.partitions", with
// secrets redacted.
func (c *Config) Settings() map[string]any {
	out := flatten(c, "")
	if c.Redis.Password != "" {
		out["redis.password"] = redacted
	}
	if len(c.Tracing.Headers) > 0 {
		out["tracing.headers"] = redacted
	}
	return out
}
