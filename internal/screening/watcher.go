package screening

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/cinemacal/cinemacal/internal/log"
)

const debounceInterval = 100 * time.Millisecond

// Watcher reports changes to the screenings file. The parent directory is
// watched so that atomic rewrites (write temp, rename) are seen.
type Watcher struct {
	watcher  *fsnotify.Watcher
	path     string
	onChange func(string)

	mu      sync.Mutex
	pending *time.Timer
	done    chan struct{}
}

// NewWatcher starts watching path and calls onChange after writes settle.
func NewWatcher(path string, onChange func(string)) (*Watcher, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(filepath.Dir(absPath)); err != nil {
		fsw.Close()
		return nil, err
	}

	w := &Watcher{
		watcher:  fsw,
		path:     absPath,
		onChange: onChange,
		done:     make(chan struct{}),
	}
	go w.watch()
	return w, nil
}

func (w *Watcher) watch() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.schedule()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Error("screenings watcher", err, "path", w.path)

		case <-w.done:
			return
		}
	}
}

// schedule debounces rapid bursts of events into one callback.
func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.pending != nil {
		w.pending.Stop()
	}
	w.pending = time.AfterFunc(debounceInterval, func() {
		select {
		case <-w.done:
			return
		default:
		}
		if w.onChange != nil {
			w.onChange(w.path)
		}
	})
}

func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.pending != nil {
		w.pending.Stop()
	}
	w.mu.Unlock()
	close(w.done)
	return w.watcher.Close()
}
