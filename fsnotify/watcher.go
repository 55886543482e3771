// Package fsnotify triggers index reloads when a new snapshot is published,
// on top of github.com/fsnotify/fsnotify.
package fsnotify

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce collapses bursts of events into one callback.
const DefaultDebounce = 200 * time.Millisecond

// Watcher calls a function after a named file inside a directory is
// created, written or renamed into place. Events arriving within the
// debounce window of each other produce a single call.
type Watcher struct {
	fsw      *fsnotify.Watcher
	name     string
	debounce time.Duration
	onChange func()
	logger   *slog.Logger

	mu     sync.Mutex
	timer  *time.Timer
	closed bool

	done chan struct{}
	wg   sync.WaitGroup
}

// Watch starts watching dir for changes to the file called name. The file
// is replaced by rename on every commit, so the directory is watched. dir
// is created if missing so a first commit can be observed. A nil logger
// discards warnings.
func Watch(dir, name string, debounce time.Duration, onChange func(), logger *slog.Logger) (*Watcher, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating watch directory: %w", err)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watching %s: %w", dir, err)
	}

	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	w := &Watcher{
		fsw:      fsw,
		name:     name,
		debounce: debounce,
		onChange: onChange,
		logger:   logger.With("dir", dir),
		done:     make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	defer close(w.done)
	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) == w.name && event.Has(fsnotify.Create|fsnotify.Write|fsnotify.Rename) {
				w.schedule()
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", "err", err)
		}
	}
}

func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}
	if w.timer != nil && w.timer.Stop() {
		w.wg.Done()
	}
	w.wg.Add(1)
	w.timer = time.AfterFunc(w.debounce, func() {
		defer w.wg.Done()
		w.onChange()
	})
}

// Close stops watching and waits for a pending callback to finish.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	if w.timer != nil && w.timer.Stop() {
		w.wg.Done()
	}
	w.mu.Unlock()

	err := w.fsw.Close()
	<-w.done
	w.wg.Wait()
	return err
}
