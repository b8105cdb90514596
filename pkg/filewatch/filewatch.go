// Package filewatch follows a single file on disk and reports when it
// changes. It watches the file's directory rather than the file itself so
// that editors which save by rename are still noticed.
package filewatch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce coalesces bursts of events from a single save.
const DefaultDebounce = 100 * time.Millisecond

// Watcher follows one file at a time.
type Watcher struct {
	fs       *fsnotify.Watcher
	onChange func(path string)
	log      *slog.Logger
	debounce time.Duration

	mu     sync.Mutex
	target string // absolute path of the followed file
	dir    string // directory currently registered with fs
}

// New creates a Watcher that calls onChange with the followed path after
// each debounced burst of writes. Nothing is watched until Follow is called.
func New(onChange func(path string), log *slog.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Watcher{
		fs:       fw,
		onChange: onChange,
		log:      log,
		debounce: DefaultDebounce,
	}, nil
}

// SetDebounce overrides the debounce window (for testing).
func (w *Watcher) SetDebounce(d time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.debounce = d
}

// Follow switches the watcher to path. The previous directory is released
// when the new one differs.
func (w *Watcher) Follow(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", path, err)
	}
	dir := filepath.Dir(abs)

	w.mu.Lock()
	defer w.mu.Unlock()

	if dir != w.dir {
		if err := w.fs.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
		if w.dir != "" {
			_ = w.fs.Remove(w.dir) // best effort
		}
		w.dir = dir
	}
	w.target = abs
	return nil
}

// Target returns the absolute path currently followed, or "".
func (w *Watcher) Target() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.target
}

// Close releases the fsnotify watcher. Run calls it on return; call it
// directly only for a Watcher that is never run. Safe to call twice.
func (w *Watcher) Close() error {
	if err := w.fs.Close(); err != nil {
		return fmt.Errorf("close fsnotify watcher: %w", err)
	}
	return nil
}

// Run delivers change notifications until ctx is cancelled. It closes the
// underlying fsnotify watcher on return.
func (w *Watcher) Run(ctx context.Context) error {
	defer func() { _ = w.Close() }()

	timer := newDebounceTimer()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if w.matches(event) {
				w.mu.Lock()
				d := w.debounce
				w.mu.Unlock()
				resetDebounceTimer(timer, d)
			}

		case <-timer.C:
			if target := w.Target(); target != "" {
				w.onChange(target)
			}

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("file watcher error", "err", err)
		}
	}
}

// matches reports whether event is a content change of the followed file.
func (w *Watcher) matches(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return false
	}
	target := w.Target()
	return target != "" && filepath.Clean(event.Name) == target
}

// newDebounceTimer creates a stopped timer.
func newDebounceTimer() *time.Timer {
	timer := time.NewTimer(0)
	if !timer.Stop() {
		<-timer.C
	}
	return timer
}

// resetDebounceTimer restarts timer for d, discarding a pending fire.
func resetDebounceTimer(timer *time.Timer, d time.Duration) {
	if !timer.Stop() {
		select {
		case <-timer.C:
		default:
		}
	}
	timer.Reset(d)
}
