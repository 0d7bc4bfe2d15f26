package index

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounceWindow batches filesystem event bursts (editor save sequences,
// directory moves) into one sync run.
const debounceWindow = 250 * time.Millisecond

// Watch starts an fsnotify watcher on the collection root and schedules a
// debounced incremental sync whenever markdown files change, until ctx is
// cancelled. Because link resolution considers every live document, a single
// file event still runs a full classification pass; the three change tiers
// keep that pass cheap when almost nothing moved.
//
// New directories created at runtime are added to the watch list. Renames
// need no special handling: the next run classifies the old path as removed
// and the new one as added.
func Watch(ctx context.Context, syncer *Syncer, root string, logger *slog.Logger) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, root); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", root))

	var syncTimer *time.Timer
	var syncCh <-chan time.Time

	schedule := func() {
		if syncTimer == nil {
			syncTimer = time.NewTimer(debounceWindow)
			syncCh = syncTimer.C
		} else {
			syncTimer.Reset(debounceWindow)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if syncTimer != nil {
				syncTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-syncCh:
			summary, runErr := syncer.Run(ctx)
			if runErr != nil {
				logger.Warn("watcher: sync failed", slog.String("error", runErr.Error()))
				continue
			}
			logger.Debug("watcher: sync ran", slog.String("summary", summary.String()))

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, ev.Name); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", ev.Name),
							slog.String("error", addErr.Error()))
					} else {
						logger.Debug("watcher: watching new dir", slog.String("path", ev.Name))
					}
					// The directory may have arrived populated (mv into
					// the collection), so a sync is due either way.
					schedule()
					continue
				}
			}

			if !strings.HasSuffix(ev.Name, ".md") {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			logger.Debug("watcher: change", slog.String("path", ev.Name), slog.String("op", ev.Op.String()))
			schedule()

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// addDirsRecursive adds dir and every non-hidden subdirectory to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if name := d.Name(); strings.HasPrefix(name, ".") && p != dir {
			return filepath.SkipDir
		}
		return w.Add(p)
	})
}
