package session

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/teranos/hirepanel/internal/filewatch"
)

// Watcher refreshes a Holder whenever the storage file changes on disk,
// which is how a logout in another terminal reaches this process
type Watcher struct {
	fw *filewatch.Watcher
}

// NewWatcher watches storagePath on behalf of h
func NewWatcher(h *Holder, storagePath string, debounce time.Duration, log *zap.SugaredLogger) (*Watcher, error) {
	fw, err := filewatch.New(storagePath, debounce, func() {
		h.Refresh(context.Background())
	}, log)
	if err != nil {
		return nil, err
	}
	return &Watcher{fw: fw}, nil
}

// Start begins watching
func (w *Watcher) Start() {
	w.fw.Start()
}

// Stop stops watching
func (w *Watcher) Stop() error {
	return w.fw.Stop()
}
