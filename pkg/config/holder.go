package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDelay coalesces the burst of events editors emit on save.
const reloadDelay = 200 * time.Millisecond

// Holder publishes the current configuration. Readers never see a
// partially updated value.
type Holder struct {
	cur  atomic.Pointer[Config]
	path string

	mu        sync.Mutex
	listeners []func(old, next *Config)
}

// NewHolder returns a holder serving cfg. path is the file Watch reloads
// from; it may be empty.
func NewHolder(cfg *Config, path string) *Holder {
	h := &Holder{path: path}
	h.cur.Store(cfg)
	return h
}

// Current returns the configuration in effect.
func (h *Holder) Current() *Config {
	return h.cur.Load()
}

// Path returns the watched config file path.
func (h *Holder) Path() string {
	return h.path
}

// OnChange registers fn to run after every Swap.
func (h *Holder) OnChange(fn func(old, next *Config)) {
	h.mu.Lock()
	h.listeners = append(h.listeners, fn)
	h.mu.Unlock()
}

// Swap installs next and notifies listeners.
func (h *Holder) Swap(next *Config) {
	old := h.cur.Swap(next)
	h.mu.Lock()
	listeners := append([]func(old, next *Config){}, h.listeners...)
	h.mu.Unlock()
	for _, fn := range listeners {
		fn(old, next)
	}
}

// Update applies p to the current configuration and swaps the result in.
func (h *Holder) Update(p SettingsPatch) (*Config, error) {
	next, err := h.Current().Apply(p)
	if err != nil {
		return nil, err
	}
	h.Swap(next)
	return next, nil
}

// Watch reloads the config file whenever it changes, until ctx is done.
// A file that fails to load or validate is logged and the previous
// configuration stays in effect. Watch returns immediately when the
// holder has no path.
func (h *Holder) Watch(ctx context.Context) error {
	if h.path == "" {
		return nil
	}
	abs, err := filepath.Abs(h.path)
	if err != nil {
		return fmt.Errorf("resolving config path: %w", err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating config watcher: %w", err)
	}
	defer w.Close()

	// Watch the directory: editors and config-map mounts replace the file
	// rather than writing it in place.
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watching %s: %w", filepath.Dir(abs), err)
	}

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(reloadDelay)
			} else {
				timer.Reset(reloadDelay)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			h.reload()
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			slog.Warn("config watcher error", "error", err)
		}
	}
}

func (h *Holder) reload() {
	next, err := Load(h.path)
	if err != nil {
		slog.Error("config reload failed, keeping previous configuration", "path", h.path, "error", err)
		return
	}
	slog.Info("configuration reloaded", "path", h.path)
	h.Swap(next)
}
