// Package watch observes the directories of autosave-tracked files and
// reports external removals. It exists for diagnosability: state transitions
// still happen only in editor event handlers, but the log should say when a
// tracked file vanished, not just that a later sweep found it missing.
package watch

import (
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Watcher tracks a set of file paths via their parent directories. Removals
// of tracked paths are delivered on Removals until Close.
type Watcher struct {
	fsw *fsnotify.Watcher

	mu    sync.Mutex
	paths map[string]bool
	dirs  map[string]int

	// Removals receives the path of each tracked file that is removed or
	// renamed away underneath us.
	Removals chan string
}

func New() (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		fsw:      fsw,
		paths:    make(map[string]bool),
		dirs:     make(map[string]int),
		Removals: make(chan string),
	}, nil
}

// Track starts watching path. Watching the parent directory rather than the
// file itself keeps the watch alive across the file being replaced.
func (w *Watcher) Track(path string) error {
	path = filepath.Clean(path)
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.paths[path] {
		return nil
	}
	dir := filepath.Dir(path)
	if w.dirs[dir] == 0 {
		if err := w.fsw.Add(dir); err != nil {
			return err
		}
	}
	w.paths[path] = true
	w.dirs[dir]++
	return nil
}

// Forget stops watching path.
func (w *Watcher) Forget(path string) {
	path = filepath.Clean(path)
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.paths[path] {
		return
	}
	delete(w.paths, path)
	dir := filepath.Dir(path)
	w.dirs[dir]--
	if w.dirs[dir] == 0 {
		delete(w.dirs, dir)
		w.fsw.Remove(dir)
	}
}

// Run consumes filesystem events until Close. It is intended to be managed
// by the caller's tomb.
func (w *Watcher) Run() error {
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				close(w.Removals)
				return nil
			}
			if ev.Op&(fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			name := filepath.Clean(ev.Name)
			w.mu.Lock()
			tracked := w.paths[name]
			w.mu.Unlock()
			if tracked {
				w.Removals <- name
			}
		case _, ok := <-w.fsw.Errors:
			if !ok {
				close(w.Removals)
				return nil
			}
			// Watch errors are not actionable here; the focus sweep remains
			// the source of truth for disappearance.
		}
	}
}

// Close stops the watcher; Run returns and Removals is closed.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}
