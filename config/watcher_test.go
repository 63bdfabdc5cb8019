package config

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestWatcher_ReloadsOnChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "careline.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  http_port: 9000\n"), 0o644))

	loader := NewLoader().WithConfigPath(path)
	watcher := NewWatcher(loader, 10*time.Millisecond, zap.NewNop())

	var reloads atomic.Int32
	var gotPort atomic.Int32
	watcher.OnReload(func(cfg *Config) {
		reloads.Add(1)
		gotPort.Store(int32(cfg.Server.HTTPPort))
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		watcher.Run(ctx)
		close(done)
	}()

	// Let the watcher record the initial mtime, then rewrite the file with
	// a strictly newer timestamp.
	time.Sleep(30 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("server:\n  http_port: 9200\n"), 0o644))
	future := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(path, future, future))

	deadline := time.Now().Add(2 * time.Second)
	for reloads.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	require.Positive(t, reloads.Load(), "watcher never reloaded")
	assert.Equal(t, int32(9200), gotPort.Load())

	cancel()
	<-done
}

func TestWatcher_KeepsOldConfigOnBadReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "careline.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  http_port: 9000\n"), 0o644))

	loader := NewLoader().WithConfigPath(path)
	watcher := NewWatcher(loader, 10*time.Millisecond, zap.NewNop())

	var reloads atomic.Int32
	watcher.OnReload(func(cfg *Config) { reloads.Add(1) })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go watcher.Run(ctx)

	time.Sleep(30 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("server: [broken"), 0o644))
	future := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(path, future, future))

	time.Sleep(100 * time.Millisecond)
	assert.Zero(t, reloads.Load(), "callback fired for a failed reload")
}

func TestWatcher_NoPathJustWaits(t *testing.T) {
	watcher := NewWatcher(NewLoader(), time.Millisecond, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		watcher.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watcher did not exit on ctx cancellation")
	}
}
