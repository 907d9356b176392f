package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// DefaultWatchDelay is how long the watcher waits for changes to settle.
const DefaultWatchDelay = 300 * time.Millisecond

// Watcher reports changes to a fixed set of files. Parent directories are
// watched rather than the files themselves so editors that save by
// renaming a temporary file are still noticed.
type Watcher struct {
	logger  zerolog.Logger
	delay   time.Duration
	watcher *fsnotify.Watcher

	files   map[string]struct{}
	mu      sync.Mutex
	pending map[string]struct{}
	timer   *time.Timer
}

// NewWatcher creates a watcher. Zero delay means DefaultWatchDelay.
func NewWatcher(logger zerolog.Logger, delay time.Duration) *Watcher {
	if delay <= 0 {
		delay = DefaultWatchDelay
	}
	return &Watcher{
		logger:  logger.With().Str("component", "watcher").Logger(),
		delay:   delay,
		files:   make(map[string]struct{}),
		pending: make(map[string]struct{}),
	}
}

// Watch starts watching paths and calls onChange with the sorted list of
// changed files once changes have settled. Calls to onChange never
// overlap. Watching stops when ctx is cancelled or Close is called.
func (w *Watcher) Watch(ctx context.Context, paths []string, onChange func(changed []string)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	dirs := make(map[string]struct{})
	for _, path := range paths {
		abs, err := filepath.Abs(path)
		if err != nil {
			_ = watcher.Close()
			return fmt.Errorf("failed to resolve %s: %w", path, err)
		}
		w.files[abs] = struct{}{}
		dirs[filepath.Dir(abs)] = struct{}{}
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			_ = watcher.Close()
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}
	w.watcher = watcher

	var calls sync.Mutex
	go w.processEvents(ctx, func(changed []string) {
		calls.Lock()
		defer calls.Unlock()
		if ctx.Err() == nil {
			onChange(changed)
		}
	})

	w.logger.Info().
		Int("files", len(w.files)).
		Msg("Watching for changes")

	return nil
}

func (w *Watcher) processEvents(ctx context.Context, fire func([]string)) {
	for {
		select {
		case <-ctx.Done():
			w.mu.Lock()
			if w.timer != nil {
				w.timer.Stop()
			}
			w.mu.Unlock()
			_ = w.watcher.Close()
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			name, err := filepath.Abs(event.Name)
			if err != nil {
				continue
			}
			if _, watched := w.files[name]; !watched {
				continue
			}

			w.logger.Debug().
				Str("file", name).
				Str("op", event.Op.String()).
				Msg("File changed")

			w.mu.Lock()
			w.pending[name] = struct{}{}
			if w.timer != nil {
				w.timer.Stop()
			}
			w.timer = time.AfterFunc(w.delay, func() {
				if changed := w.drain(); len(changed) > 0 {
					fire(changed)
				}
			})
			w.mu.Unlock()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error().Err(err).Msg("Watcher error")
		}
	}
}

// drain returns and clears the pending changes.
func (w *Watcher) drain() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	changed := make([]string, 0, len(w.pending))
	for name := range w.pending {
		changed = append(changed, name)
	}
	sort.Strings(changed)
	w.pending = make(map[string]struct{})
	return changed
}

// Close stops watching.
func (w *Watcher) Close() error {
	if w.watcher != nil {
		return w.watcher.Close()
	}
	return nil
}
