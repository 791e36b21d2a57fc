// Package watch re-runs sync when the export source changes on disk.
package watch

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period before a change triggers a sync.
const DefaultDebounce = 500 * time.Millisecond

// Trigger is called once per debounced burst of changes. Calls never overlap.
type Trigger func(ctx context.Context)

// Watch observes source until ctx is cancelled. source may be a directory of
// exports or a single .json/.zip file; for a file its parent directory is
// watched and only events for that file count.
//
// Create, Write and Rename events on .json and .zip files restart a debounce
// timer; when it fires trigger runs on the watcher goroutine.
func Watch(ctx context.Context, source string, debounce time.Duration, logger *slog.Logger, trigger Trigger) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	abs, err := filepath.Abs(source)
	if err != nil {
		return err
	}
	dir, only := abs, ""
	if info, err := os.Stat(abs); err != nil {
		return err
	} else if !info.IsDir() {
		dir, only = filepath.Dir(abs), abs
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(dir); err != nil {
		return err
	}
	logger.Info("watcher: started", slog.String("source", abs))

	var timer *time.Timer
	var fire <-chan time.Time
	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(debounce)
			fire = timer.C
		} else {
			timer.Reset(debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-fire:
			logger.Debug("watcher: triggering sync")
			trigger(ctx)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !relevant(ev, only) {
				continue
			}
			logger.Debug("watcher: change",
				slog.String("path", ev.Name),
				slog.String("op", ev.Op.String()))
			schedule()

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

func relevant(ev fsnotify.Event, only string) bool {
	if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
		return false
	}
	if only != "" {
		return filepath.Clean(ev.Name) == only
	}
	switch strings.ToLower(filepath.Ext(ev.Name)) {
	case ".json", ".zip":
		return true
	}
	return false
}
