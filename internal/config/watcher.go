package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ///////////////////////////////////////////////
// Watcher
// ///////////////////////////////////////////////

// Watcher reports edits to a set of files in one directory, using fsnotify
// with a polling fallback. The directory is watched rather than the files
// so atomic replace-by-rename saves are seen too.
type Watcher struct {
	// dir is the directory holding the watched files.
	dir string
	// names are the base names that trigger events.
	names []string
	// events delivers a signal each time a watched file changes.
	// The channel is buffered to 1 so back-to-back writes coalesce.
	events chan struct{}
	// done is closed by [Watcher.Close] to signal goroutines to exit.
	done chan struct{}
	// fsw is the underlying fsnotify watcher; nil when polling.
	fsw *fsnotify.Watcher
	// once ensures [Watcher.Close] is idempotent.
	once sync.Once
	// polling is true when the watcher has fallen back to stat-based polling.
	polling atomic.Bool
	// pollInterval is the duration between stat calls in polling mode.
	pollInterval time.Duration
}

// NewWatcher watches dir for changes to the files named names (base names,
// e.g. "config.toml" and ".env").
func NewWatcher(dir string, names ...string) (*Watcher, error) {
	return newWatcher(dir, names, 2*time.Second, false)
}

// newWatcher lets tests force polling and shorten the interval.
func newWatcher(dir string, names []string, pollInterval time.Duration, forcePoll bool) (*Watcher, error) {
	if info, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	} else if !info.IsDir() {
		return nil, fmt.Errorf("watch %s: not a directory", dir)
	}

	w := &Watcher{
		dir:          dir,
		names:        names,
		events:       make(chan struct{}, 1),
		done:         make(chan struct{}),
		pollInterval: pollInterval,
	}
	if forcePoll {
		w.startPolling()
		return w, nil
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		slog.Info("fsnotify unavailable, falling back to polling", "error", err)
		w.startPolling()
		return w, nil
	}
	if err := fsw.Add(dir); err != nil {
		slog.Info("cannot watch directory, falling back to polling", "path", dir, "error", err)
		fsw.Close()
		w.startPolling()
		return w, nil
	}
	w.fsw = fsw
	go w.watch()
	return w, nil
}

// Polling reports whether the watcher is using polling instead of fsnotify.
func (w *Watcher) Polling() bool {
	return w.polling.Load()
}

// Events returns a channel that receives a signal when a watched file changes.
func (w *Watcher) Events() <-chan struct{} {
	return w.events
}

// Close stops the watcher and releases resources.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		if w.fsw != nil {
			if closeErr := w.fsw.Close(); closeErr != nil {
				err = fmt.Errorf("closing fsnotify watcher: %w", closeErr)
			}
		}
	})
	return err
}

// watched reports whether path names one of the watched files.
func (w *Watcher) watched(path string) bool {
	return slices.Contains(w.names, filepath.Base(path))
}

// watch forwards write, create and rename events for watched files. On an
// fsnotify error it switches to polling.
func (w *Watcher) watch() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				if w.watched(event.Name) {
					w.notify()
				}
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			slog.Info("fsnotify error, switching to polling", "error", err)
			w.fsw.Close()
			w.startPolling()
			return
		}
	}
}

// startPolling switches to the stat-based fallback.
func (w *Watcher) startPolling() {
	w.polling.Store(true)
	go w.poll()
}

// poll stats the watched files and signals when any modification time
// advances or a file appears.
func (w *Watcher) poll() {
	last := w.modTimes()

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			cur := w.modTimes()
			for name, mod := range cur {
				if prev, ok := last[name]; !ok || mod.After(prev) {
					w.notify()
					break
				}
			}
			last = cur
		}
	}
}

// modTimes returns the modification time of each existing watched file.
func (w *Watcher) modTimes() map[string]time.Time {
	out := make(map[string]time.Time, len(w.names))
	for _, name := range w.names {
		info, err := os.Stat(filepath.Join(w.dir, name))
		if err != nil {
			continue
		}
		out[name] = info.ModTime()
	}
	return out
}

// notify sends a single signal to the events channel. If a signal is already
// pending the call is a no-op, coalescing rapid successive changes.
func (w *Watcher) notify() {
	select {
	case w.events <- struct{}{}:
	default:
	}
}
