package config

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/Carmen-Shannon/oxy-scene/common"
	"github.com/fsnotify/fsnotify"
)

// Watch reloads a settings file each time it is written and passes the result to fn. The parent
// directory is watched so editors that replace the file are seen too. Watching stops when ctx is
// done; fn runs on the watcher goroutine.
//
// Parameters:
//   - ctx: stops the watcher when done
//   - path: the settings file
//   - fn: receives each reload, with the error of a failed load
//
// Returns:
//   - error: an error if the watcher cannot be started
func Watch(ctx context.Context, path string, fn func(Config, error)) error {
	if fn == nil {
		panic("config: Watch requires a callback")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("config: failed to resolve %s: %w", path, err)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config: failed to create watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return fmt.Errorf("config: failed to watch %s: %w", filepath.Dir(abs), err)
	}

	go func() {
		defer w.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != abs || !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				fn(Load(abs))
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				common.Logger().Warn("Settings watcher error", "path", abs, "error", err)
			}
		}
	}()
	return nil
}
