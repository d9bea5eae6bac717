// Package watch signals when the schedule file is changed by something other
// than the frame receiver, e.g. a card swapped or a file copied in by hand.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bft-labs/pillship/internal/ports"
)

// DefaultDebounce coalesces the burst of events a single replace produces.
const DefaultDebounce = 200 * time.Millisecond

// Watcher monitors one file through its parent directory, so replacing the
// file by rename is seen too.
type Watcher struct {
	dir    string
	name   string
	delay  time.Duration
	logger ports.Logger

	changes chan struct{}

	mu       sync.Mutex
	debounce *time.Timer
}

// New creates a watcher for path.
func New(path string, delay time.Duration, logger ports.Logger) *Watcher {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	return &Watcher{
		dir:     filepath.Dir(path),
		name:    filepath.Base(path),
		delay:   delay,
		logger:  logger,
		changes: make(chan struct{}, 1),
	}
}

// Changes delivers at most one pending signal; receivers never miss the
// latest change but may see several changes as one.
func (w *Watcher) Changes() <-chan struct{} {
	return w.changes
}

// Run watches until ctx is done. It fails only if the watch cannot be set up.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	w.logger.Debug("watching schedule file", ports.String("dir", w.dir), ports.String("file", w.name))

	defer w.stopDebounce()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != w.name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			w.debounceSignal()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("schedule watcher error", ports.Err(err))
		}
	}
}

func (w *Watcher) debounceSignal() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.debounce != nil {
		w.debounce.Stop()
	}

	w.debounce = time.AfterFunc(w.delay, func() {
		select {
		case w.changes <- struct{}{}:
		default:
		}
	})
}

func (w *Watcher) stopDebounce() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.debounce != nil {
		w.debounce.Stop()
	}
}
