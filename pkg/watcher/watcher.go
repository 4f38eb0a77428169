// Package watcher reloads the visualization when the source document
// changes on disk.
package watcher

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ritzau/hydroscope/pkg/logging"
)

// ChangeEvent represents a batch of changes to the watched document
type ChangeEvent struct {
	Paths     []string
	Timestamp time.Time
}

// DocumentWatcher watches the loaded graph document for changes. The
// parent directory is watched rather than the file itself, because most
// editors save via rename and that would drop a file-level watch.
type DocumentWatcher struct {
	watcher  *fsnotify.Watcher
	path     string
	fileName string
	events   chan ChangeEvent
	done     chan struct{}
	mu       sync.Mutex
}

// NewDocumentWatcher creates a watcher for the given document path
func NewDocumentWatcher(path string) (*DocumentWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		watcher.Close()
		return nil, fmt.Errorf("resolving document path: %w", err)
	}

	dw := &DocumentWatcher{
		watcher:  watcher,
		path:     abs,
		fileName: filepath.Base(abs),
		events:   make(chan ChangeEvent, 100),
		done:     make(chan struct{}),
	}

	return dw, nil
}

// Start begins watching for document changes
func (dw *DocumentWatcher) Start(ctx context.Context) error {
	dir := filepath.Dir(dw.path)
	if err := dw.watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	logging.Info("started watching document", "path", dw.path)

	go dw.processEvents(ctx)

	return nil
}

// processEvents filters raw events down to the watched file and batches
// rapid bursts into one event.
func (dw *DocumentWatcher) processEvents(ctx context.Context) {
	var pending []string

	flushTimer := time.NewTimer(100 * time.Millisecond)
	flushTimer.Stop()

	flush := func() {
		if len(pending) == 0 {
			return
		}
		dw.events <- ChangeEvent{
			Paths:     pending,
			Timestamp: time.Now(),
		}
		pending = nil
	}

	for {
		select {
		case <-ctx.Done():
			dw.watcher.Close()
			close(dw.events)
			close(dw.done)
			return

		case event, ok := <-dw.watcher.Events:
			if !ok {
				return
			}

			if filepath.Base(event.Name) != dw.fileName {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}

			pending = append(pending, event.Name)
			flushTimer.Reset(100 * time.Millisecond)

		case <-flushTimer.C:
			flush()

		case err, ok := <-dw.watcher.Errors:
			if !ok {
				return
			}
			logging.Error("watcher error", "error", err)
		}
	}
}

// Events returns the channel of change events
func (dw *DocumentWatcher) Events() <-chan ChangeEvent {
	return dw.events
}

// Stop stops the document watcher
func (dw *DocumentWatcher) Stop() error {
	close(dw.done)
	return dw.watcher.Close()
}
