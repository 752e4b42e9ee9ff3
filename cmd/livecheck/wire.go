package main

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/goclaw/livecheck/config"
	"github.com/goclaw/livecheck/pkg/bus"
	"github.com/goclaw/livecheck/pkg/codec"
	"github.com/goclaw/livecheck/pkg/livecheck"
	"github.com/goclaw/livecheck/pkg/logger"
	"github.com/goclaw/livecheck/pkg/metrics"
	"github.com/goclaw/livecheck/pkg/store"
	"github.com/goclaw/livecheck/pkg/store/badger"
	"github.com/goclaw/livecheck/pkg/store/memory"
	redisstore "github.com/goclaw/livecheck/pkg/store/redis"
)

const redisPingTimeout = 5 * time.Second

func newLogger(cfg *config.Config, debug bool) logger.Logger {
	logCfg := &logger.Config{
		Level:  logger.ParseLevel(cfg.Log.Level),
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	}
	if debug {
		logCfg.Level = logger.DebugLevel
	}
	return logger.New(logCfg)
}

// openRedis connects the client shared by the Redis bus and store. It
// returns nil when neither needs Redis.
func openRedis(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	if !cfg.UsesRedis() {
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis %s: %w", cfg.Redis.Address, err)
	}
	return client, nil
}

func openStore(cfg *config.Config, client redis.UniversalClient, log logger.Logger) (store.Store, error) {
	switch cfg.Store.Type {
	case "badger":
		st, err := badger.New(&badger.Config{
			Path:             cfg.Store.Badger.Path,
			SyncWrites:       cfg.Store.Badger.SyncWrites,
			InMemory:         cfg.Store.Badger.InMemory,
			ValueLogFileSize: cfg.Store.Badger.ValueLogFileSize,
		})
		if err != nil {
			return nil, fmt.Errorf("open badger store: %w", err)
		}
		log.Info("Initialized Badger store", "path", cfg.Store.Badger.Path, "in_memory", cfg.Store.Badger.InMemory)
		return st, nil
	case "redis":
		if client == nil {
			return nil, fmt.Errorf("redis store requires a redis connection")
		}
		log.Info("Initialized Redis store", "address", cfg.Redis.Address, "prefix", cfg.Store.Redis.Prefix)
		return redisstore.New(client, redisstore.WithPrefix(cfg.Store.Redis.Prefix)), nil
	case "memory", "":
		log.Info("Initialized memory store")
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown store type %q", cfg.Store.Type)
	}
}

func openBus(cfg *config.Config, client redis.UniversalClient, log logger.Logger) (bus.Bus, error) {
	switch cfg.Bus.Type {
	case "redis":
		if client == nil {
			return nil, fmt.Errorf("redis bus requires a redis connection")
		}
		log.Info("Initialized Redis bus", "partitions", cfg.Bus.Partitions, "channel_prefix", cfg.Bus.ChannelPrefix)
		return bus.NewRedisBus(client, cfg.Bus.ChannelPrefix, cfg.Bus.Partitions, cfg.Bus.BufferSize), nil
	case "local", "":
		log.Info("Initialized local bus", "partitions", cfg.Bus.Partitions)
		return bus.NewLocalBus(cfg.Bus.Partitions, cfg.Bus.BufferSize), nil
	default:
		return nil, fmt.Errorf("unknown bus type %q", cfg.Bus.Type)
	}
}

func newMetricsManager(cfg *config.Config) *metrics.Manager {
	mcfg := metrics.DefaultConfig()
	mcfg.Enabled = cfg.Metrics.Enabled
	mcfg.Port = cfg.Metrics.Port
	mcfg.Path = cfg.Metrics.Path
	return metrics.NewManager(mcfg)
}

func newApp(cfg *config.Config, st store.Store, b bus.Bus, log logger.Logger, mgr *metrics.Manager) (*livecheck.App, error) {
	c, err := codec.Get(cfg.Livecheck.Codec)
	if err != nil {
		return nil, err
	}
	return livecheck.New(st, b,
		livecheck.WithCodec(c),
		livecheck.WithLogger(log),
		livecheck.WithMetrics(mgr),
		livecheck.WithPollInterval(cfg.Livecheck.PollInterval),
		livecheck.WithMaxWait(cfg.Livecheck.MaxWait),
	)
}
