package state

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher wakes the UI when another process rewrites a persisted state
// file. Events are debounced and delivered on a channel so the consumer
// can treat them as redraw hints rather than a change log.
type Watcher struct {
	watcher *fsnotify.Watcher
	changes chan struct{}
	paths   map[string]bool
	dirs    map[string]bool
	mu      sync.RWMutex
	done    chan struct{}
}

func NewWatcher() (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		watcher: fw,
		changes: make(chan struct{}, 1),
		paths:   make(map[string]bool),
		dirs:    make(map[string]bool),
		done:    make(chan struct{}),
	}
	go w.watch()
	return w, nil
}

// AddFile starts watching a file by watching its containing directory.
// Watching the directory works before the file first exists and keeps
// working across atomic rename-into-place rewrites; events for other
// files in the directory are filtered out.
func (w *Watcher) AddFile(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	dir := filepath.Dir(abs)

	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.dirs[dir] {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
		if err := w.watcher.Add(dir); err != nil {
			return err
		}
		w.dirs[dir] = true
	}
	w.paths[abs] = true
	return nil
}

// Changes yields one signal per debounced burst of writes. The channel
// holds a single pending signal; coalescing further writes is fine
// because the consumer reloads the whole file anyway.
func (w *Watcher) Changes() <-chan struct{} {
	return w.changes
}

func (w *Watcher) watching(name string) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.paths[name]
}

func (w *Watcher) watch() {
	debounce := make(map[string]*time.Timer)

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if !w.watching(event.Name) {
				continue
			}
			if timer, exists := debounce[event.Name]; exists {
				timer.Stop()
			}
			debounce[event.Name] = time.AfterFunc(100*time.Millisecond, func() {
				select {
				case w.changes <- struct{}{}:
				default:
				}
			})

		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}

		case <-w.done:
			return
		}
	}
}

func (w *Watcher) Close() error {
	close(w.done)
	return w.watcher.Close()
}
