package ics

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/helix/internal/storage"
)

// ChangeCallback is called after a watcher-driven cache change.
// kind is one of "created", "updated", "deleted".
type ChangeCallback func(kind string, name string)

const reconcileDelay = 200 * time.Millisecond

// Watch keeps the cache of src in step with its directory until ctx is
// cancelled, calling cb (if non-nil) after each change. Renames trigger a
// debounced full sync.
func Watch(ctx context.Context, src *Source, logger *slog.Logger, cb ChangeCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	root := src.fs.Root()
	if err := w.Add(root); err != nil {
		return err
	}
	if err := src.Sync(); err != nil {
		logger.Warn("ics watcher: initial sync failed", slog.String("error", err.Error()))
	}
	logger.Info("ics watcher: started", slog.String("root", root))

	notify := func(kind, name string) {
		logger.Debug("ics watcher: changed", slog.String("file", name), slog.String("op", kind))
		if cb != nil {
			cb(kind, name)
		}
	}

	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time
	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(reconcileDelay)
			reconcileCh = reconcileTimer.C
		} else {
			reconcileTimer.Reset(reconcileDelay)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			logger.Info("ics watcher: stopped")
			return nil

		case <-reconcileCh:
			reconcile(src, logger, notify)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			name := filepath.Base(ev.Name)
			if filepath.Dir(ev.Name) != root || !storage.IsCalendarFile(name) || name[0] == '.' {
				continue
			}

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				changed, loadErr := src.load(name)
				if loadErr != nil {
					logger.Warn("ics watcher: load failed", slog.String("file", name), slog.String("error", loadErr.Error()))
					continue
				}
				if !changed {
					continue
				}
				kind := "updated"
				if ev.Op&fsnotify.Create != 0 {
					kind = "created"
				}
				notify(kind, name)

			case ev.Op&fsnotify.Remove != 0:
				if src.drop(name) {
					notify("deleted", name)
				}

			case ev.Op&fsnotify.Rename != 0:
				// Rename fires on the old name only; the new one arrives as
				// Create if it stays in the directory.
				if src.drop(name) {
					notify("deleted", name)
				}
				scheduleReconcile()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("ics watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// reconcile runs a full sync and reports files whose presence changed.
func reconcile(src *Source, logger *slog.Logger, notify func(kind, name string)) {
	before := src.names()
	if err := src.Sync(); err != nil {
		logger.Warn("ics reconcile: sync failed", slog.String("error", err.Error()))
		return
	}
	after := src.names()
	for name := range before {
		if _, ok := after[name]; !ok {
			notify("deleted", name)
		}
	}
	for name := range after {
		if _, ok := before[name]; !ok {
			notify("created", name)
		}
	}
}

func (s *Source) names() map[string]struct{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]struct{}, len(s.files))
	for name := range s.files {
		out[name] = struct{}{}
	}
	return out
}
