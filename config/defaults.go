package config

import "time"

// DefaultConfig returns a Config with defaults for a single local process.
func DefaultConfig() *Config {
	return &Config{
		App: AppConfig{
			Name:        "livecheck",
			Version:     "dev",
			Environment: "development",
		},
		Server: ServerConfig{
			Enabled: true,
			Host:    "0.0.0.0",
			Port:    8080,
			HTTP: HTTPConfig{
				ReadTimeout:     15 * time.Second,
				WriteTimeout:    30 * time.Second,
				IdleTimeout:     120 * time.Second,
				ShutdownTimeout: 10 * time.Second,
				MaxHeaderBytes:  1 << 20,
			},
			CORS: CORSConfig{
				Enabled:        false,
				AllowedOrigins: []string{"*"},
				AllowedMethods: []string{"GET", "POST", "OPTIONS"},
				AllowedHeaders: []string{"Content-Type", "X-Request-ID", "traceparent"},
				MaxAge:         300,
			},
			RateLimit: RateLimitConfig{
				Enabled:           true,
				RequestsPerSecond: 100,
				Burst:             200,
			},
			WebSocket: WebSocketConfig{
				MaxConnections: 100,
				PingInterval:   30 * time.Second,
			},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Livecheck: LivecheckConfig{
			PollInterval:      2 * time.Second,
			Codec:             "json",
			SelfCheckInterval: 30 * time.Second,
		},
		Bus: BusConfig{
			Type:          "local",
			Partitions:    8,
			BufferSize:    256,
			ChannelPrefix: "livecheck:signal:",
		},
		Store: StoreConfig{
			Type: "memory",
			Badger: BadgerConfig{
				Path:             "./data/livecheck",
				SyncWrites:       true,
				ValueLogFileSize: 256 << 20,
			},
			Redis: RedisStoreConfig{
				Prefix: "livecheck:resolved:",
			},
		},
		Redis: RedisConfig{
			Address: "localhost:6379",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
			Port:    9091,
		},
		Tracing: TracingConfig{
			Enabled:    false,
			Exporter:   "otlpgrpc",
			Endpoint:   "localhost:4317",
			Timeout:    5 * time.Second,
			Sampler:    "parentbased_traceidratio",
			SampleRate: 0.1,
		},
	}
}
