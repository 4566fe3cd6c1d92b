// Package watcher reacts to filesystem events on the media root. Events are
// debounced and coalesced into a single re-index trigger, so a bulk copy of
// a thousand files costs one indexing pass, not a thousand.
package watcher

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"media-library/internal/logging"
	"media-library/internal/metrics"
)

const debounceDelay = 2 * time.Second

// Watcher monitors the media directory tree and invokes a callback after
// changes settle.
type Watcher struct {
	mediaDir string
	onChange func()
	stopChan chan struct{}
}

// New creates a Watcher over mediaDir. onChange is invoked from the watcher
// goroutine once events have been quiet for the debounce window.
func New(mediaDir string, onChange func()) *Watcher {
	return &Watcher{
		mediaDir: mediaDir,
		onChange: onChange,
		stopChan: make(chan struct{}),
	}
}

// Start begins watching in a background goroutine.
func (w *Watcher) Start() {
	go w.run()
}

// Stop ends watching.
func (w *Watcher) Stop() {
	close(w.stopChan)
}

func (w *Watcher) run() {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logging.Error("Failed to create file watcher: %v", err)
		metrics.WatcherErrors.Inc()
		return
	}
	defer func() {
		if err := watcher.Close(); err != nil {
			logging.Error("failed to close file watcher: %v", err)
		}
	}()

	watchCount := w.addDirectories(watcher)
	logging.Debug("Watcher started, watching %d directories", watchCount)
	metrics.WatchedDirectories.Set(float64(watchCount))

	w.processEvents(watcher)
}

// addDirectories registers every non-hidden directory under the media root.
func (w *Watcher) addDirectories(watcher *fsnotify.Watcher) int {
	watchCount := 0
	err := filepath.Walk(w.mediaDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() && !strings.HasPrefix(info.Name(), ".") {
			if addErr := watcher.Add(path); addErr != nil {
				logging.Warn("failed to add path to watcher %s: %v", path, addErr)
				metrics.WatcherErrors.Inc()
			} else {
				watchCount++
			}
		}
		return nil
	})
	if err != nil {
		logging.Error("failed to walk media directory for watcher: %v", err)
		metrics.WatcherErrors.Inc()
	}
	return watchCount
}

// processEvents drains watcher events, debouncing the change callback. A nil
// timer channel blocks forever, so the select only fires once armed.
func (w *Watcher) processEvents(watcher *fsnotify.Watcher) {
	var debounce *time.Timer
	var pending <-chan time.Time

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !w.handleEvent(watcher, event) {
				continue
			}
			if debounce == nil {
				debounce = time.NewTimer(debounceDelay)
				pending = debounce.C
			} else {
				if !debounce.Stop() {
					select {
					case <-debounce.C:
					default:
					}
				}
				debounce.Reset(debounceDelay)
			}

		case <-pending:
			debounce = nil
			pending = nil
			logging.Info("Filesystem changes settled, triggering re-index")
			w.onChange()

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logging.Error("Watcher error: %v", err)
			metrics.WatcherErrors.Inc()

		case <-w.stopChan:
			if debounce != nil {
				debounce.Stop()
			}
			return
		}
	}
}

// handleEvent records one filesystem event and reports whether it should
// count toward the debounced change trigger.
func (w *Watcher) handleEvent(watcher *fsnotify.Watcher, event fsnotify.Event) bool {
	// Skip hidden files
	if strings.Contains(event.Name, "/.") {
		return false
	}

	metrics.WatcherEventsTotal.WithLabelValues(eventType(event.Op)).Inc()

	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if addErr := watcher.Add(event.Name); addErr != nil {
				logging.Warn("failed to add new directory to watcher %s: %v", event.Name, addErr)
				metrics.WatcherErrors.Inc()
			} else {
				logging.Debug("Added new directory to watcher: %s", event.Name)
				metrics.WatchedDirectories.Inc()
			}
		}
	}

	// Chmod carries no content change worth a re-index.
	return event.Op&fsnotify.Chmod == 0
}

// eventType returns a string representation of the fsnotify operation
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
