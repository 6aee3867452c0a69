// Package filewatch turns fsnotify events on a single file into debounced
// change notifications. It is shared by the config watcher and the session
// storage watcher.
package filewatch

import (
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/teranos/hirepanel/errors"
	"github.com/teranos/hirepanel/logger"
)

// DefaultDebounce collapses bursts of writes (sqlite WAL, editors) into one notification
const DefaultDebounce = 250 * time.Millisecond

// Watcher watches one file and calls OnChange after writes settle
type Watcher struct {
	path     string
	watcher  *fsnotify.Watcher
	onChange func()
	log      *zap.SugaredLogger

	mu             sync.Mutex
	debounceTimer  *time.Timer
	debouncePeriod time.Duration
	started        bool
	done           chan struct{}
}

// New creates a watcher for path. The parent directory is watched so the
// file may be created, replaced or deleted while watching; events for
// siblings that share the file's prefix (e.g. storage.db-wal) count as
// changes to the file.
func New(path string, debounce time.Duration, onChange func(), log *zap.SugaredLogger) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create fsnotify watcher")
	}

	dir := filepath.Dir(path)
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, errors.Wrapf(err, "failed to watch %s", dir)
	}

	return &Watcher{
		path:           path,
		watcher:        fw,
		onChange:       onChange,
		log:            logger.OrNop(log),
		debouncePeriod: debounce,
		done:           make(chan struct{}),
	}, nil
}

// Start begins watching in a background goroutine. Calls after the first
// are no-ops.
func (w *Watcher) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return
	}
	w.started = true
	go w.loop()
}

func (w *Watcher) loop() {
	defer close(w.done)
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			w.log.Debugw("file change detected", logger.FieldFile, event.Name, "op", event.Op.String())
			w.schedule()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warnw("file watcher error", logger.FieldError, err)
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	name := filepath.Clean(event.Name)
	target := filepath.Clean(w.path)
	return name == target || strings.HasPrefix(name, target+"-")
}

// schedule debounces rapid changes. Changes made by this process are
// reported too; consumers re-read state and compare.
func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(w.debouncePeriod, func() {
		if w.onChange != nil {
			w.onChange()
		}
	})
}

// Stop stops watching and cancels a pending notification. It is safe to
// call on a watcher that was never started.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	started := w.started
	w.mu.Unlock()
	err := w.watcher.Close()
	if started {
		<-w.done
	}
	return err
}
