package storage

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// ChangeCallback is called for every record file change seen by Watch.
// kind is one of "updated" or "deleted".
type ChangeCallback func(collection, key, kind string)

// Watch observes the collection directories of an FS backend and reports
// record file changes until ctx is cancelled. Collections created after
// Watch starts are picked up when their directory appears. Files written
// through f itself are not reported.
func Watch(ctx context.Context, f *FS, logger *slog.Logger, cb ChangeCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(f.root); err != nil {
		return err
	}
	entries, err := os.ReadDir(f.root)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() {
			if err := w.Add(filepath.Join(f.root, e.Name())); err != nil {
				return err
			}
		}
	}

	logger.Info("watcher: started", slog.String("root", f.root))

	for {
		select {
		case <-ctx.Done():
			logger.Info("watcher: stopped")
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			dir := filepath.Dir(ev.Name)
			if dir == f.root {
				if ev.Op&fsnotify.Create != 0 {
					if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
						if addErr := w.Add(ev.Name); addErr != nil {
							logger.Warn("watcher: add collection failed",
								slog.String("path", ev.Name),
								slog.String("error", addErr.Error()))
						}
					}
				}
				continue
			}

			key, isRecord := recordKey(filepath.Base(ev.Name))
			if !isRecord {
				continue
			}
			collection := filepath.Base(dir)
			if f.ownWrite(collection, key) {
				continue
			}

			var kind string
			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				kind = "updated"
			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				kind = "deleted"
			default:
				continue
			}
			logger.Debug("watcher: record changed",
				slog.String("collection", collection),
				slog.String("key", key),
				slog.String("op", kind))
			if cb != nil {
				cb(collection, key, kind)
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
