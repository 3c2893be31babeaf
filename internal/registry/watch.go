package registry

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce coalesces bursts of write events from atomic
// write-then-rename updates into one change notification.
const DefaultDebounce = 250 * time.Millisecond

// Watcher notifies when the registry file changes so the dashboard can
// refresh ahead of its next poll tick. The parent directory is watched
// rather than the file itself: registry writers replace the file by
// rename, which would otherwise drop the watch.
type Watcher struct {
	path     string
	fs       *fsnotify.Watcher
	changes  chan struct{}
	debounce time.Duration

	mu     sync.Mutex
	timer  *time.Timer
	closed bool
}

// Watch starts watching the registry file's directory.
func Watch(path string) (*Watcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating registry watcher: %w", err)
	}
	if err := fs.Add(filepath.Dir(path)); err != nil {
		fs.Close()
		return nil, fmt.Errorf("watching %s: %w", filepath.Dir(path), err)
	}

	w := &Watcher{
		path:     path,
		fs:       fs,
		changes:  make(chan struct{}, 1),
		debounce: DefaultDebounce,
	}
	go w.run()
	return w, nil
}

// Changes delivers one signal per (debounced) registry change. The
// channel has capacity one; missed signals collapse, which is fine
// because every signal means the same thing: reload the file.
func (w *Watcher) Changes() <-chan struct{} {
	return w.changes
}

func (w *Watcher) run() {
	for {
		select {
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != filepath.Clean(w.path) {
				continue
			}
			if ev.Op.Has(fsnotify.Write) || ev.Op.Has(fsnotify.Create) || ev.Op.Has(fsnotify.Rename) {
				w.scheduleNotify()
			}
		case _, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			// Watch errors are non-fatal; polling still refreshes.
		}
	}
}

func (w *Watcher) scheduleNotify() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		select {
		case w.changes <- struct{}{}:
		default:
		}
	})
}

// Close stops the watcher. Safe to call more than once.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
	return w.fs.Close()
}
