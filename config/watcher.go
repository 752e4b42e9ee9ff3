package config

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/goclaw/livecheck/pkg/logger"
)

// Watcher reloads the configuration file when it changes and hands the new
// Config to registered callbacks.
type Watcher struct {
	mu         sync.RWMutex
	watcher    *fsnotify.Watcher
	loader     *Loader
	configPath string
	callbacks  []func(*Config)
	debounce   time.Duration
	log        logger.Logger
	stopCh     chan struct{}
	stopOnce   sync.Once
	running    bool
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounce sets how long the file must stay quiet before a reload.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.debounce = d
	}
}

// WithWatcherLogger sets the logger for reload failures.
func WithWatcherLogger(l logger.Logger) WatcherOption {
	return func(w *Watcher) {
		if l != nil {
			w.log = l
		}
	}
}

// NewWatcher creates a watcher for configPath. The parent directory is
// watched so editors that replace the file by rename are still seen.
func NewWatcher(configPath string, loader *Loader, opts ...WatcherOption) (*Watcher, error) {
	if configPath == "" {
		return nil, errors.New("config path is required for watching")
	}
	if loader == nil {
		loader = NewLoader()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	w := &Watcher{
		watcher:    fsw,
		loader:     loader,
		configPath: filepath.Clean(configPath),
		debounce:   250 * time.Millisecond,
		log:        logger.Global(),
		stopCh:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Watch blocks until ctx ends or Stop is called.
func (w *Watcher) Watch(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return errors.New("watcher is already running")
	}
	w.running = true
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
	}()

	if err := w.watcher.Add(filepath.Dir(w.configPath)); err != nil {
		return fmt.Errorf("failed to watch config directory for %s: %w", w.configPath, err)
	}

	var (
		timer   *time.Timer
		timerCh <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-w.stopCh:
			return nil

		case ev, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != w.configPath {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}
			timerCh = timer.C

		case <-timerCh:
			timerCh = nil
			w.reload()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("config watcher error", "error", err)
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := w.loader.Load(w.configPath, nil)
	if err != nil {
		w.log.Warn("config reload rejected", "path", w.configPath, "error", err)
		return
	}

	w.mu.RLock()
	callbacks := make([]func(*Config), len(w.callbacks))
	copy(callbacks, w.callbacks)
	w.mu.RUnlock()

	for _, cb := range callbacks {
		w.invoke(cb, cfg)
	}
}

func (w *Watcher) invoke(cb func(*Config), cfg *Config) {
	defer func() {
		if r := recover(); r != nil {
			w.log.Error("config callback panic", "panic", r)
		}
	}()
	cb(cfg)
}

// OnChange registers a callback run after each successful reload. Callbacks
// run sequentially on the watch goroutine.
func (w *Watcher) OnChange(callback func(*Config)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, callback)
}

// Stop stops the watcher and releases the fsnotify handle. It is idempotent.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.stopCh)
		err = w.watcher.Close()
	})
	return err
}

// IsRunning reports whether Watch is active.
func (w *Watcher) IsRunning() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.running
}

// ConfigPath returns the watched file.
func (w *Watcher) ConfigPath() string {
	return w.configPath
}

// HotReloadable holds the settings applied without a restart.
type HotReloadable struct {
	LogLevel string
}

// ExtractHotReloadable extracts the hot-reloadable values from cfg.
func ExtractHotReloadable(cfg *Config) HotReloadable {
	return HotReloadable{LogLevel: cfg.Log.Level}
}

// Changed reports whether any hot-reloadable value differs.
func (h HotReloadable) Changed(other HotReloadable) bool {
	return h != other
}
