package preview

import (
	"context"
	"fmt"
	"path/filepath"

	"timelapse/internal/logging"

	"github.com/fsnotify/fsnotify"
)

// Watch nudges the cache whenever the watched image is created, written or
// renamed into place. It blocks until ctx is cancelled and only returns an
// error if the watcher cannot be set up.
func (c *Cache) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create file watcher: %w", err)
	}
	defer func() {
		if err := watcher.Close(); err != nil {
			logging.Error("failed to close file watcher: %v", err)
		}
	}()

	// Watch the directory: the capture process usually replaces the file,
	// which would drop a watch on the file itself.
	dir := filepath.Dir(c.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	logging.Debug("Watching %s for new captures", dir)

	name := filepath.Base(c.path)
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename|fsnotify.Remove) != 0 {
				c.Nudge()
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logging.Warn("Watcher error: %v", err)
		}
	}
}
