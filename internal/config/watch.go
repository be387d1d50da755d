package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDebounce coalesces the burst of events editors produce on save
// (truncate + write, or write-temp + rename).
const reloadDebounce = 250 * time.Millisecond

// Watch reloads the config file into h whenever it changes on disk, until ctx
// is canceled. The parent directory is watched rather than the file itself so
// atomic-rename saves are seen. A reload that fails validation is logged and
// the previous config stays active.
func Watch(ctx context.Context, h *Holder, reload func() (*Config, error), logger *slog.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config: creating watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(h.Path())
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("config: watching %s: %w", dir, err)
	}

	logger.Info("watching config file", slog.String("path", h.Path()))

	target := filepath.Clean(h.Path())

	var (
		timer   *time.Timer
		timerCh <-chan time.Time
	)

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}

			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if filepath.Clean(ev.Name) != target || !isContentEvent(ev) {
				continue
			}

			if timer == nil {
				timer = time.NewTimer(reloadDebounce)
			} else {
				timer.Reset(reloadDebounce)
			}

			timerCh = timer.C

		case werr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}

			logger.Warn("config watcher error", slog.String("error", werr.Error()))

		case <-timerCh:
			timerCh = nil

			cfg, loadErr := reload()
			if loadErr != nil {
				logger.Warn("config reload failed, keeping previous config",
					slog.String("path", h.Path()),
					slog.String("error", loadErr.Error()),
				)

				continue
			}

			h.Update(cfg)
			logger.Info("config reloaded", slog.String("path", h.Path()))
		}
	}
}

func isContentEvent(ev fsnotify.Event) bool {
	return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename)
}
