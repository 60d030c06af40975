// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package registry

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/pdiddy/donor-match/internal/adapter"
)

// Holder publishes the current snapshot. Readers never block writers and
// always see a complete registry.
type Holder struct {
	cur atomic.Pointer[Snapshot]
}

// NewHolder creates a holder publishing snap.
func NewHolder(snap *Snapshot) *Holder {
	h := &Holder{}
	h.cur.Store(snap)
	return h
}

// Current returns the registry to use for one request.
func (h *Holder) Current() *adapter.Registry {
	if s := h.cur.Load(); s != nil {
		return s.Registry
	}
	return nil
}

// Snapshot returns the current snapshot.
func (h *Holder) Snapshot() *Snapshot {
	return h.cur.Load()
}

// Swap publishes snap and returns the previous snapshot.
func (h *Holder) Swap(snap *Snapshot) *Snapshot {
	return h.cur.Swap(snap)
}

// Close releases the current snapshot.
func (h *Holder) Close() error {
	return h.cur.Swap(nil).Close()
}

// Watcher rebuilds the registry when the source table changes.
type Watcher struct {
	path     string
	holder   *Holder
	build    func(path string) (*Snapshot, error)
	logger   *slog.Logger
	debounce time.Duration
	drain    time.Duration
	onReload func(*Snapshot, error)
}

// WatchOption configures a Watcher.
type WatchOption func(*Watcher)

// WithWatchLogger sets a custom logger.
// Default is slog.Default().
func WithWatchLogger(logger *slog.Logger) WatchOption {
	return func(w *Watcher) {
		if logger == nil {
			logger = slog.Default()
		}
		w.logger = logger.With("component", "registry")
	}
}

// WithDebounce sets how long to wait for a burst of file events to settle.
// Default is 200ms.
func WithDebounce(d time.Duration) WatchOption {
	return func(w *Watcher) { w.debounce = d }
}

// WithDrain sets how long a replaced snapshot stays open for in-flight
// requests before it is closed. Default is 10s.
func WithDrain(d time.Duration) WatchOption {
	return func(w *Watcher) { w.drain = d }
}

// WithOnReload registers a callback invoked after every reload attempt.
func WithOnReload(fn func(*Snapshot, error)) WatchOption {
	return func(w *Watcher) { w.onReload = fn }
}

// NewWatcher creates a watcher that calls build on the source table at path
// whenever it changes and publishes the result to holder. A failed rebuild
// leaves the current snapshot in place.
func NewWatcher(path string, holder *Holder, build func(path string) (*Snapshot, error), opts ...WatchOption) *Watcher {
	w := &Watcher{
		path:     filepath.Clean(path),
		holder:   holder,
		build:    build,
		logger:   slog.Default().With("component", "registry"),
		debounce: 200 * time.Millisecond,
		drain:    10 * time.Second,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run watches until ctx is cancelled. The parent directory is watched so
// that editors replacing the file by rename are seen.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("watching %s: %w", w.path, err)
	}
	w.logger.Info("watching source registry", "path", w.path)

	timer := time.NewTimer(w.debounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			timer.Reset(w.debounce)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("file watcher error", "err", err)

		case <-timer.C:
			w.Reload()
		}
	}
}

// Reload rebuilds the registry now.
func (w *Watcher) Reload() {
	snap, err := w.build(w.path)
	if err != nil {
		w.logger.Warn("source registry reload failed; keeping previous", "path", w.path, "err", err)
	} else {
		old := w.holder.Swap(snap)
		w.logger.Info("source registry reloaded", "sources", snap.Registry.IDs())
		if old != nil {
			time.AfterFunc(w.drain, func() {
				if err := old.Close(); err != nil {
					w.logger.Warn("closing replaced sources", "err", err)
				}
			})
		}
	}
	if w.onReload != nil {
		w.onReload(snap, err)
	}
}
