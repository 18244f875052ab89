package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchDebounce collapses the burst of events an editor produces for one save.
const watchDebounce = 100 * time.Millisecond

// fileWatcher reports changes to one file. It watches the parent directory
// so editors that save by renaming a temp file over the target are seen too.
type fileWatcher struct {
	watcher *fsnotify.Watcher
	target  string
	logger  *slog.Logger
}

func newFileWatcher(path string, logger *slog.Logger) (*fileWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", path, err)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return nil, fmt.Errorf("watching %s: %w", filepath.Dir(abs), err)
	}
	return &fileWatcher{watcher: w, target: abs, logger: logger}, nil
}

// Run calls onChange after each settled change to the file until ctx is
// cancelled. Errors from onChange are logged and watching continues.
func (fw *fileWatcher) Run(ctx context.Context, onChange func() error) error {
	defer fw.watcher.Close()

	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != fw.target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			fw.logger.Debug("hints file changed", "path", event.Name, "op", event.Op.String())
			pending = time.After(watchDebounce)

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return nil
			}
			fw.logger.Warn("watch error", "error", err)

		case <-pending:
			pending = nil
			if err := onChange(); err != nil {
				fw.logger.Error("rebuild failed", "error", err)
			}
		}
	}
}
