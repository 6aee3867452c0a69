package am

import (
	"sync"

	"go.uber.org/zap"

	"github.com/teranos/hirepanel/internal/filewatch"
	"github.com/teranos/hirepanel/logger"
)

// ReloadCallback is called with the freshly loaded config
type ReloadCallback func(*Config) error

// ConfigWatcher reloads the configuration when the active config file changes
type ConfigWatcher struct {
	configPath string
	fw         *filewatch.Watcher
	log        *zap.SugaredLogger

	mu        sync.RWMutex
	callbacks []ReloadCallback
}

// NewConfigWatcher creates a watcher for configPath
func NewConfigWatcher(configPath string, log *zap.SugaredLogger) (*ConfigWatcher, error) {
	cw := &ConfigWatcher{configPath: configPath, log: logger.OrNop(log)}
	fw, err := filewatch.New(configPath, 0, cw.reload, log)
	if err != nil {
		return nil, err
	}
	cw.fw = fw
	return cw, nil
}

// OnReload registers a callback to be called when config is reloaded
func (cw *ConfigWatcher) OnReload(callback ReloadCallback) {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	cw.callbacks = append(cw.callbacks, callback)
}

// Start begins watching for config file changes
func (cw *ConfigWatcher) Start() {
	cw.fw.Start()
}

// Stop stops watching for config changes
func (cw *ConfigWatcher) Stop() error {
	return cw.fw.Stop()
}

func (cw *ConfigWatcher) reload() {
	Reset()
	cfg, err := Load()
	if err != nil {
		cw.log.Errorw("config reload failed", logger.FieldError, err)
		return
	}
	if err := cfg.Validate(); err != nil {
		cw.log.Warnw("reloaded config is invalid, keeping callbacks on previous values", logger.FieldError, err)
		return
	}

	cw.log.Infow("config reloaded", logger.FieldFile, cw.configPath)

	cw.mu.RLock()
	callbacks := make([]ReloadCallback, len(cw.callbacks))
	copy(callbacks, cw.callbacks)
	cw.mu.RUnlock()

	for _, callback := range callbacks {
		if err := callback(cfg); err != nil {
			// Continue calling other callbacks even if one fails
			cw.log.Warnw("config reload callback error", logger.FieldError, err)
		}
	}
}
