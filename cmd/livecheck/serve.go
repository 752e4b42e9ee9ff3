package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/goclaw/livecheck/config"
	"github.com/goclaw/livecheck/pkg/api"
	"github.com/goclaw/livecheck/pkg/api/events"
	"github.com/goclaw/livecheck/pkg/api/handlers"
	"github.com/goclaw/livecheck/pkg/bus"
	"github.com/goclaw/livecheck/pkg/livecheck"
	"github.com/goclaw/livecheck/pkg/logger"
	"github.com/goclaw/livecheck/pkg/telemetry/tracing"
	"github.com/goclaw/livecheck/pkg/version"
)

type serveOptions struct {
	root *rootOptions

	port         int
	bus          string
	store        string
	pollInterval time.Duration
	watch        bool
}

func (o *serveOptions) overrides() map[string]any {
	overrides := make(map[string]any)
	if o.port != 0 {
		overrides["server.port"] = o.port
	}
	if o.bus != "" {
		overrides["bus.type"] = o.bus
	}
	if o.store != "" {
		overrides["store.type"] = o.store
	}
	if o.pollInterval > 0 {
		overrides["livecheck.poll_interval"] = o.pollInterval.String()
	}
	return overrides
}

func newServeCmd(root *rootOptions) *cobra.Command {
	opts := &serveOptions{root: root}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the dispatcher and HTTP API",
		Example: `  livecheck serve
  livecheck serve -c livecheck.yaml --watch
  livecheck serve --bus redis --store redis`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.load(opts.overrides())
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg, opts)
		},
	}

	f := cmd.Flags()
	f.IntVarP(&opts.port, "port", "p", 0, "Override server port")
	f.StringVar(&opts.bus, "bus", "", "Override bus type (local, redis)")
	f.StringVar(&opts.store, "store", "", "Override store type (memory, badger, redis)")
	f.DurationVar(&opts.pollInterval, "poll-interval", 0, "Override waiter poll interval")
	f.BoolVar(&opts.watch, "watch", false, "Reload the log level when the config file changes")
	return cmd
}

func run(ctx context.Context, cfg *config.Config, opts *serveOptions) error {
	log := newLogger(cfg, opts.root.debug)
	logger.SetGlobal(log)
	defer func() { _ = log.Close() }()

	log.Info("Starting livecheck",
		"version", version.Version,
		"buildTime", version.BuildTime,
		"gitCommit", version.GitCommit,
		"app", cfg.App.Name,
		"environment", cfg.App.Environment,
	)
	log.Debug("Configuration loaded", "config", cfg.String())

	shutdownTracing, err := tracing.Init(ctx, cfg.App, cfg.Tracing, tracing.WithLogger(log))
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			log.Error("Error flushing traces", "error", err)
		}
	}()

	mgr := newMetricsManager(cfg)
	bus.SetMetricsRecorder(mgr)

	client, err := openRedis(ctx, cfg)
	if err != nil {
		return err
	}
	if client != nil {
		defer func() { _ = client.Close() }()
	}

	st, err := openStore(cfg, client, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.Error("Error closing store", "error", err)
		}
	}()

	b, err := openBus(cfg, client, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := b.Close(); err != nil {
			log.Error("Error closing bus", "error", err)
		}
	}()

	app, err := newApp(cfg, st, b, log, mgr)
	if err != nil {
		return err
	}

	broadcaster := events.NewBroadcaster()
	defer broadcaster.Close()
	app.OnResolve(broadcaster.BroadcastResolution)

	sc, err := registerSelfCheck(app)
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 1)
	dispatchDone := make(chan error, 1)
	go func() { dispatchDone <- app.Run(runCtx) }()

	if cfg.Livecheck.SelfCheckInterval > 0 {
		go sc.Run(runCtx, app, cfg.Livecheck.SelfCheckInterval)
	}

	if mgr.Enabled() && cfg.Metrics.Port > 0 {
		go func() {
			log.Info("Starting metrics server", "port", cfg.Metrics.Port, "path", cfg.Metrics.Path)
			if err := mgr.StartServer(runCtx, cfg.Metrics.Port, cfg.Metrics.Path); err != nil {
				log.Error("Metrics server error", "error", err)
			}
		}()
	}

	var httpServer *api.HTTPServer
	if cfg.Server.Enabled {
		ws := handlers.NewWebSocketHandler(log, handlers.WebSocketConfig{
			AllowedOrigins: cfg.Server.WebSocket.AllowedOrigins,
			MaxConnections: cfg.Server.WebSocket.MaxConnections,
			PingInterval:   cfg.Server.WebSocket.PingInterval,
		})
		defer ws.Close()
		go ws.Forward(runCtx, broadcaster)

		apiHandlers := &api.Handlers{
			Health:    handlers.NewHealthHandler(app),
			Cases:     handlers.NewCaseHandler(app, log),
			WebSocket: ws,
		}
		if mgr.Enabled() {
			apiHandlers.Metrics = mgr
			if cfg.Metrics.Port == 0 {
				apiHandlers.MetricsHandler = mgr.Handler()
				apiHandlers.MetricsPath = cfg.Metrics.Path
			}
		}

		httpServer = api.NewHTTPServer(cfg, log, apiHandlers)
		go func() { errCh <- httpServer.Start() }()
	}

	if opts.watch && opts.root.configPath != "" {
		if err := watchConfig(runCtx, opts.root.configPath, log); err != nil {
			log.Warn("Config watcher disabled", "error", err)
		}
	}

	log.Info("livecheck is running",
		"http_port", cfg.Server.Port,
		"metrics_port", cfg.Metrics.Port,
		"bus", cfg.Bus.Type,
		"store", cfg.Store.Type,
	)

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("Received shutdown signal")
	case err := <-dispatchDone:
		dispatchDone = nil
		if err != nil {
			log.Error("Dispatcher failed", "error", err)
			runErr = err
		} else {
			log.Info("Dispatcher stopped")
		}
	case <-app.Stopped():
		log.Info("Dispatcher stopped")
	case err := <-errCh:
		if err != nil {
			log.Error("Component failed", "error", err)
			runErr = err
		}
	}

	// Waiters return ErrCancelled once the app is stopped.
	if err := stopDispatcher(app, cancel, dispatchDone); err != nil {
		log.Error("Dispatcher failed", "error", err)
		if runErr == nil {
			runErr = err
		}
	}

	if httpServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.HTTP.ShutdownTimeout)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down HTTP server", "error", err)
		}
	}

	log.Info("livecheck stopped gracefully")
	return runErr
}

// stopDispatcher stops app and blocks until its Run has returned. done is
// nil when Run's result was already received. The deferred store and bus
// closes rely on no Dispatch being in flight.
func stopDispatcher(app *livecheck.App, cancel context.CancelFunc, done <-chan error) error {
	app.Stop()
	cancel()
	if done == nil {
		return nil
	}
	return <-done
}

// watchConfig hot reloads the log level from path until ctx ends.
func watchConfig(ctx context.Context, path string, log logger.Logger) error {
	loader := config.NewLoader()
	initial, err := loader.Load(path, nil)
	if err != nil {
		return err
	}
	w, err := config.NewWatcher(path, loader, config.WithWatcherLogger(log))
	if err != nil {
		return err
	}

	current := config.ExtractHotReloadable(initial)
	w.OnChange(func(cfg *config.Config) {
		next := config.ExtractHotReloadable(cfg)
		if !current.Changed(next) {
			return
		}
		log.Info("Reloading log level", "from", current.LogLevel, "to", next.LogLevel)
		log.SetLevel(logger.ParseLevel(next.LogLevel))
		current = next
	})

	go func() {
		defer func() { _ = w.Stop() }()
		if err := w.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Warn("Config watcher stopped", "error", err)
		}
	}()
	return nil
}
