package migrate

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/dagaz/internal/registry"
	"github.com/starford/dagaz/internal/storage"
)

// EventCallback is called after a watcher-driven registry change.
// kind is one of "migrated", "updated", "removed"; id is the agent id.
type EventCallback func(kind string, id string)

// Watch starts an fsnotify watcher on the source-document root and
// re-migrates documents as they change, until ctx is cancelled. It calls cb
// (if non-nil) after each successful registry mutation.
//
// New directories created at runtime are automatically added to the watch
// list. Rename events trigger a reconciliation pass that removes agents
// whose source documents no longer exist on disk.
func Watch(ctx context.Context, eng *Engine, src storage.Provider, reg registry.AgentRegistry,
	sourceRoot string, logger *slog.Logger, cb EventCallback) error {

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, sourceRoot); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", sourceRoot))

	// reconcileTimer is used to debounce rename reconciliation.
	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time

	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(200 * time.Millisecond)
			reconcileCh = reconcileTimer.C
		} else {
			reconcileTimer.Reset(200 * time.Millisecond)
		}
	}

	migrateOne := func(rel, kind string) {
		data, readErr := src.Read(rel)
		if readErr != nil {
			logger.Warn("watcher: read failed", slog.String("path", rel), slog.String("error", readErr.Error()))
			return
		}
		report, migErr := eng.Migrate(ctx, rel, data)
		if migErr != nil {
			logger.Warn("watcher: migrate failed", slog.String("path", rel), slog.String("error", migErr.Error()))
			return
		}
		logger.Debug("watcher: migrated", slog.String("path", rel), slog.String("op", kind))
		if cb != nil {
			cb(kind, report.AgentID)
		}
	}

	removeOne := func(rel string) {
		id, delErr := reg.DeleteBySourcePath(rel)
		if delErr != nil {
			logger.Warn("watcher: delete failed", slog.String("path", rel), slog.String("error", delErr.Error()))
			return
		}
		if id == "" {
			return
		}
		_ = eng.out.RemoveDir(id)
		logger.Debug("watcher: removed", slog.String("path", rel), slog.String("agent", id))
		if cb != nil {
			cb("removed", id)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-reconcileCh:
			reconcileAfterRename(ctx, eng, src, reg, logger, cb)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			absPath := ev.Name

			// --- Handle new directories: add to watcher ---
			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(absPath); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, absPath); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", absPath),
							slog.String("error", addErr.Error()))
					} else {
						logger.Debug("watcher: watching new dir", slog.String("path", absPath))
					}
					// Migrate any .md files already in the new directory.
					migrateNewDir(sourceRoot, absPath, migrateOne)
					continue
				}
			}

			// Only process .md files from here on.
			if !strings.HasSuffix(absPath, ".md") {
				continue
			}

			rel, relErr := filepath.Rel(sourceRoot, absPath)
			if relErr != nil {
				continue
			}

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				kind := "updated"
				if ev.Op&fsnotify.Create != 0 {
					kind = "migrated"
				}
				migrateOne(rel, kind)

			case ev.Op&fsnotify.Remove != 0:
				removeOne(rel)

			case ev.Op&fsnotify.Rename != 0:
				// fsnotify fires Rename on the OLD path only. The new path
				// will arrive as a separate Create event (if it stays within
				// a watched dir). Remove the old agent immediately and
				// schedule a short reconciliation pass for stragglers.
				removeOne(rel)
				scheduleReconcile()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// reconcileAfterRename does a lightweight sync using batch lookups: agents
// without a source document on disk are removed, and on-disk documents with
// a stale or missing registry entry are re-migrated.
func reconcileAfterRename(ctx context.Context, eng *Engine, src storage.Provider,
	reg registry.AgentRegistry, logger *slog.Logger, cb EventCallback) {

	checksums, err := reg.AllChecksums()
	if err != nil {
		logger.Warn("reconcile: all checksums failed", slog.String("error", err.Error()))
		return
	}

	metas, err := src.List("")
	if err != nil {
		logger.Warn("reconcile: list failed", slog.String("error", err.Error()))
		return
	}

	disk := make(map[string]string, len(metas))
	for _, m := range metas {
		disk[m.Path] = m.Checksum
	}

	for p := range checksums {
		if _, ok := disk[p]; !ok {
			id, delErr := reg.DeleteBySourcePath(p)
			if delErr != nil || id == "" {
				continue
			}
			_ = eng.out.RemoveDir(id)
			logger.Debug("reconcile: removed stale", slog.String("path", p))
			if cb != nil {
				cb("removed", id)
			}
		}
	}

	for p, cs := range disk {
		if checksums[p] == cs {
			continue
		}
		data, readErr := src.Read(p)
		if readErr != nil {
			continue
		}
		if report, migErr := eng.Migrate(ctx, p, data); migErr == nil {
			logger.Debug("reconcile: migrated", slog.String("path", p))
			if cb != nil {
				cb("migrated", report.AgentID)
			}
		}
	}
}

// migrateNewDir migrates any .md files found in a newly created directory.
func migrateNewDir(sourceRoot, dirPath string, migrateOne func(rel, kind string)) {
	_ = filepath.WalkDir(dirPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(path, ".md") {
			return nil
		}
		rel, relErr := filepath.Rel(sourceRoot, path)
		if relErr != nil {
			return nil
		}
		migrateOne(rel, "migrated")
		return nil
	})
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
