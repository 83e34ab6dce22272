package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/Carmen-Shannon/oxy-view/common"
	"github.com/fsnotify/fsnotify"
)

// settleDelay coalesces the burst of events editors produce for one save.
const settleDelay = 50 * time.Millisecond

// Watch reloads the file at path whenever it is written or replaced and hands
// every valid result to fn. Invalid files are logged and skipped; the previous
// configuration stays in effect. The parent directory is watched, so editors
// that save by renaming a temporary file are picked up.
//
// Watch blocks until ctx is done.
//
// Parameters:
//   - ctx: stops the watcher when done
//   - path: the configuration file
//   - fn: receives each successfully reloaded configuration, on the watcher goroutine
//
// Returns:
//   - error: error if the watcher could not be started, otherwise ctx.Err()
func Watch(ctx context.Context, path string, fn func(File)) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("watch config %s: %w", path, err)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch config %s: %w", path, err)
	}
	defer w.Close()
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch config %s: %w", path, err)
	}

	var settle <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.Events:
			if !ok {
				return ctx.Err()
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				settle = time.After(settleDelay)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return ctx.Err()
			}
			common.Logger().Warn("config watcher error", "path", abs, "err", err)
		case <-settle:
			settle = nil
			f, err := Load(abs)
			if err != nil {
				common.Logger().Warn("config reload rejected", "path", abs, "err", err)
				continue
			}
			common.Logger().Debug("config reloaded", "path", abs)
			fn(f)
		}
	}
}
