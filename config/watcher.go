package config

import (
	"context"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ReloadFunc receives the freshly loaded configuration after a change.
type ReloadFunc func(cfg *Config)

// Watcher polls the config file's modification time and reloads on
// change. Polling avoids a platform file-notification dependency; the
// interval is coarse because config edits are rare.
type Watcher struct {
	loader   *Loader
	path     string
	interval time.Duration
	logger   *zap.Logger

	mu        sync.Mutex
	callbacks []ReloadFunc
	lastMod   time.Time
}

// NewWatcher creates a watcher over the loader's config path.
func NewWatcher(loader *Loader, interval time.Duration, logger *zap.Logger) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &Watcher{
		loader:   loader,
		path:     loader.configPath,
		interval: interval,
		logger:   logger.With(zap.String("component", "config_watcher")),
	}
}

// OnReload registers a callback invoked after each successful reload.
func (w *Watcher) OnReload(fn ReloadFunc) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, fn)
}

// Run polls until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) {
	if w.path == "" {
		<-ctx.Done()
		return
	}

	if info, err := os.Stat(w.path); err == nil {
		w.lastMod = info.ModTime()
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.checkOnce()
		}
	}
}

func (w *Watcher) checkOnce() {
	info, err := os.Stat(w.path)
	if err != nil {
		return
	}
	if !info.ModTime().After(w.lastMod) {
		return
	}
	w.lastMod = info.ModTime()

	cfg, err := w.loader.Load()
	if err != nil {
		// Keep running with the previous config.
		w.logger.Error("config reload failed", zap.Error(err))
		return
	}

	w.logger.Info("config reloaded", zap.String("path", w.path))

	w.mu.Lock()
	callbacks := make([]ReloadFunc, len(w.callbacks))
	copy(callbacks, w.callbacks)
	w.mu.Unlock()

	for _, fn := range callbacks {
		fn(cfg)
	}
}
