package retrieval

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// Watcher marks the index dirty when source documents change. The actual
// rebuild happens later on the scheduler's cadence, so a burst of edits
// costs one resync.
type Watcher struct {
	watcher  *fsnotify.Watcher
	onDirty  func()
	debounce time.Duration
	timer    *time.Timer
	stopCh   chan struct{}
}

// NewWatcher starts watching for document changes. onDirty fires once per
// debounced burst.
func NewWatcher(onDirty func()) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		watcher:  fsw,
		onDirty:  onDirty,
		debounce: 500 * time.Millisecond,
		stopCh:   make(chan struct{}),
	}
	go w.run()

	return w, nil
}

// Watch adds a directory to the watch set.
func (w *Watcher) Watch(path string) error {
	return w.watcher.Add(path)
}

// Stop stops the watcher.
func (w *Watcher) Stop() error {
	close(w.stopCh)
	return w.watcher.Close()
}

func (w *Watcher) run() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			name := strings.ToLower(event.Name)
			if !strings.HasSuffix(name, ".md") && !strings.HasSuffix(name, ".txt") {
				continue
			}

			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Remove) {
				log.Debug().
					Str("file", filepath.Base(event.Name)).
					Str("op", event.Op.String()).
					Msg("Document change detected")

				w.scheduleMarkDirty()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Error().Err(err).Msg("Document watcher error")

		case <-w.stopCh:
			return
		}
	}
}

func (w *Watcher) scheduleMarkDirty() {
	if w.timer != nil {
		w.timer.Stop()
	}

	w.timer = time.AfterFunc(w.debounce, w.onDirty)
}
