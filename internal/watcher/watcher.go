package watcher

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"photo-discovery/internal/cache"
	"photo-discovery/internal/logging"
	"photo-discovery/internal/media"
	"photo-discovery/internal/metrics"
)

// ChangeType describes what happened to a file.
type ChangeType string

const (
	ChangeCreated  ChangeType = "created"
	ChangeModified ChangeType = "modified"
	ChangeRemoved  ChangeType = "removed"
	ChangeRenamed  ChangeType = "renamed"
)

// Listener receives image-file change notifications.
type Listener func(path string, change ChangeType)

// Watcher invalidates cache entries when watched folders change.
type Watcher struct {
	cache *cache.MultiTierCache
	fw    *fsnotify.Watcher

	mu        sync.Mutex
	listeners []Listener
	folders   map[string]bool
	started   bool

	done chan struct{}
	wg   sync.WaitGroup
}

// New builds a watcher that invalidates entries in c. Call Watch to
// add folders and Start to begin processing events.
func New(c *cache.MultiTierCache) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		metrics.WatcherErrors.Inc()
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}
	return &Watcher{
		cache:   c,
		fw:      fw,
		folders: make(map[string]bool),
		done:    make(chan struct{}),
	}, nil
}

// Watch adds a folder to the watch set. Watching is single-level,
// matching the discovery scan.
func (w *Watcher) Watch(folder string) error {
	if err := w.fw.Add(folder); err != nil {
		metrics.WatcherErrors.Inc()
		return fmt.Errorf("watching %s: %w", folder, err)
	}
	w.mu.Lock()
	w.folders[folder] = true
	w.mu.Unlock()
	logging.Debug("Watching folder %s", folder)
	return nil
}

// Unwatch removes a folder from the watch set.
func (w *Watcher) Unwatch(folder string) error {
	w.mu.Lock()
	delete(w.folders, folder)
	w.mu.Unlock()
	if err := w.fw.Remove(folder); err != nil {
		metrics.WatcherErrors.Inc()
		return fmt.Errorf("unwatching %s: %w", folder, err)
	}
	return nil
}

// WatchedFolders returns the folders currently under watch.
func (w *Watcher) WatchedFolders() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	folders := make([]string, 0, len(w.folders))
	for folder := range w.folders {
		folders = append(folders, folder)
	}
	return folders
}

// AddListener registers a change listener. Listeners run on the
// watcher goroutine and should return quickly.
func (w *Watcher) AddListener(l Listener) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.listeners = append(w.listeners, l)
}

// Start begins processing events in the background. Calling it more
// than once has no effect.
func (w *Watcher) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return
	}
	w.started = true
	w.wg.Add(1)
	go w.loop()
	logging.Debug("Watcher started")
}

// Stop shuts the watcher down and waits for the event loop to exit.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	started := w.started
	w.started = false
	w.mu.Unlock()

	close(w.done)
	err := w.fw.Close()
	if started {
		w.wg.Wait()
	}
	if err != nil {
		return fmt.Errorf("closing file watcher: %w", err)
	}
	return nil
}

func (w *Watcher) loop() {
	defer w.wg.Done()
	for {
		select {
		case event, ok := <-w.fw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			logging.Error("Watcher error: %v", err)
			metrics.WatcherErrors.Inc()

		case <-w.done:
			return
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	// Skip hidden files
	if strings.Contains(event.Name, string(filepath.Separator)+".") {
		return
	}

	metrics.WatcherEventsTotal.WithLabelValues(eventType(event.Op)).Inc()

	change, relevant := classify(event.Op)
	if !relevant {
		return
	}
	if !media.IsImagePath(event.Name) {
		return
	}

	removed := w.cache.InvalidatePath(event.Name)
	removed += w.cache.InvalidateFolder(filepath.Dir(event.Name))
	if removed > 0 {
		metrics.WatcherInvalidationsTotal.Inc()
	}
	logging.Debug("Change %s on %s invalidated %d cache entries", change, event.Name, removed)

	w.mu.Lock()
	listeners := append([]Listener(nil), w.listeners...)
	w.mu.Unlock()
	for _, l := range listeners {
		l(event.Name, change)
	}
}

func classify(op fsnotify.Op) (ChangeType, bool) {
	switch {
	case op&fsnotify.Create != 0:
		return ChangeCreated, true
	case op&fsnotify.Write != 0:
		return ChangeModified, true
	case op&fsnotify.Remove != 0:
		return ChangeRemoved, true
	case op&fsnotify.Rename != 0:
		return ChangeRenamed, true
	default:
		return "", false
	}
}

func eventType(op fsnotify.Op) string {
	switch {
	case op&fsnotify.Create != 0:
		return "create"
	case op&fsnotify.Write != 0:
		return "write"
	case op&fsnotify.Remove != 0:
		return "remove"
	case op&fsnotify.Rename != 0:
		return "rename"
	case op&fsnotify.Chmod != 0:
		return "chmod"
	default:
		return "unknown"
	}
}
