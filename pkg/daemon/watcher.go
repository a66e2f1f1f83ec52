package daemon

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/jamesainslie/memtrim/pkg/memtrim/config"
	"github.com/jamesainslie/memtrim/pkg/memtrim/logging"
	"github.com/jamesainslie/memtrim/pkg/memtrim/monitor"
)

// ConfigWatcher applies threshold edits made directly to the config file
// while the daemon runs. The watch is on the directory because editors
// replace the file rather than writing in place.
type ConfigWatcher struct {
	watcher    *fsnotify.Watcher
	configPath string
	ctrl       *monitor.Controller
	logger     *logging.Logger
}

// NewConfigWatcher watches configPath for changes.
func NewConfigWatcher(configPath string, ctrl *monitor.Controller) (*ConfigWatcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if err := fsw.Add(filepath.Dir(configPath)); err != nil {
		_ = fsw.Close()
		return nil, err
	}

	return &ConfigWatcher{
		watcher:    fsw,
		configPath: configPath,
		ctrl:       ctrl,
		logger:     logging.Get("daemon"),
	}, nil
}

// Run processes file events until the context is cancelled. Rapid event
// bursts from a single save are coalesced.
func (w *ConfigWatcher) Run(ctx context.Context) {
	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	reloadCh := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.configPath) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(200*time.Millisecond, func() {
				select {
				case reloadCh <- struct{}{}:
				default:
				}
			})

		case <-reloadCh:
			w.reload()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("config watcher error", "error", err)
		}
	}
}

// reload re-reads the config file and applies threshold changes. The
// controller persists accepted updates back to the same file, so
// identical values are skipped to avoid a write-notify loop.
func (w *ConfigWatcher) reload() {
	cfg, err := config.Load()
	if err != nil {
		w.logger.Warn("config reload failed", "error", err)
		return
	}

	if cfg.Thresholds == w.ctrl.Status().Thresholds {
		return
	}

	if err := w.ctrl.UpdateConfig(cfg.Thresholds); err != nil {
		w.logger.Warn("config file thresholds rejected", "error", err)
		return
	}

	w.logger.Info("thresholds reloaded from config file",
		"start_mb", cfg.Thresholds.StartMB,
		"stop_mb", cfg.Thresholds.StopMB,
		"auto_clean", cfg.Thresholds.AutoClean)
}

// Close stops the underlying filesystem watcher.
func (w *ConfigWatcher) Close() error {
	return w.watcher.Close()
}
