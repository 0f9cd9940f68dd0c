package filewatcher

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ChangeEvent represents a file change event
type ChangeEvent struct {
	Path      string    // Path of the changed file (the last one seen within the debounce window)
	Timestamp time.Time // Time of the change
	Error     error     // Error reported by the underlying watcher, if any
}

// ChangeListener is an interface for receiving file change notifications
type ChangeListener interface {
	OnFileChange(event ChangeEvent)
}

// Watcher monitors a set of files and notifies listeners once per burst of changes.
//
// The parent directories are watched rather than the files themselves so that
// editors and secret managers that replace files via rename keep being observed.
type Watcher struct {
	watcher       *fsnotify.Watcher
	files         map[string]struct{}
	debounceDelay time.Duration

	mu        sync.RWMutex
	listeners []ChangeListener
}

// NewWatcher creates a watcher for the given files. Empty paths are ignored.
func NewWatcher(debounceDelay time.Duration, paths ...string) (*Watcher, error) {
	files := make(map[string]struct{})
	dirs := make(map[string]struct{})
	for _, p := range paths {
		if p == "" {
			continue
		}
		absPath, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("failed to get absolute path of %s: %w", p, err)
		}
		files[absPath] = struct{}{}
		dirs[filepath.Dir(absPath)] = struct{}{}
	}
	if len(files) == 0 {
		return nil, errors.New("no files to watch")
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	for dir := range dirs {
		if err := fsWatcher.Add(dir); err != nil {
			_ = fsWatcher.Close()
			return nil, fmt.Errorf("failed to watch directory %s: %w", dir, err)
		}
	}

	return &Watcher{
		watcher:       fsWatcher,
		files:         files,
		debounceDelay: debounceDelay,
	}, nil
}

// AddListener adds a listener to receive file change notifications
func (w *Watcher) AddListener(listener ChangeListener) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.listeners = append(w.listeners, listener)
}

// Start watches until ctx is cancelled or the watcher is closed.
// It blocks and should be run in its own goroutine.
func (w *Watcher) Start(ctx context.Context) error {
	var (
		timer   *time.Timer
		timerC  <-chan time.Time
		pending string
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if !w.isRelevant(event) {
				continue
			}

			pending = event.Name
			if timer == nil {
				timer = time.NewTimer(w.debounceDelay)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounceDelay)
			}
			timerC = timer.C

		case <-timerC:
			timerC = nil
			w.notifyListeners(ChangeEvent{Path: pending, Timestamp: time.Now()})

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			w.notifyListeners(ChangeEvent{Timestamp: time.Now(), Error: err})
		}
	}
}

// isRelevant keeps content-changing events for the watched files only
func (w *Watcher) isRelevant(event fsnotify.Event) bool {
	eventPath, err := filepath.Abs(event.Name)
	if err != nil {
		return false
	}
	if _, ok := w.files[eventPath]; !ok {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename)
}

// Close stops the watcher and releases resources
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

// notifyListeners calls every listener in registration order
func (w *Watcher) notifyListeners(event ChangeEvent) {
	w.mu.RLock()
	listeners := append([]ChangeListener(nil), w.listeners...)
	w.mu.RUnlock()

	for _, listener := range listeners {
		listener.OnFileChange(event)
	}
}
