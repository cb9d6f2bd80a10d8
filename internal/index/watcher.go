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

	"github.com/starford/dysedit/internal/checksum"
	"github.com/starford/dysedit/internal/storage"
)

// EventCallback is called after a watcher-driven index change.
// kind is one of "created", "updated", "deleted".
type EventCallback func(kind string, path string)

const (
	settleDelay    = 100 * time.Millisecond
	reconcileDelay = 200 * time.Millisecond
)

type watcher struct {
	fsw    *fsnotify.Watcher
	db     *DB
	store  storage.Provider
	root   string
	logger *slog.Logger
	cb     EventCallback

	dirty     map[string]struct{}
	settle    *time.Timer
	reconcile *time.Timer
}

// Watch follows changes to the workspace until ctx is cancelled and keeps the
// catalog in step with package markdown files. Writes made by another editor
// reach cb as "created" or "updated" once the file has been quiet for a
// moment; a write that leaves the content unchanged is not reported.
//
// Package directories created at runtime are added to the watch list. Renames
// trigger a debounced reconciliation against the workspace listing.
func Watch(ctx context.Context, db *DB, store storage.Provider, root string, logger *slog.Logger, cb EventCallback) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()

	if err := addDirsRecursive(fsw, root); err != nil {
		return err
	}

	w := &watcher{
		fsw:       fsw,
		db:        db,
		store:     store,
		root:      root,
		logger:    logger,
		cb:        cb,
		dirty:     make(map[string]struct{}),
		settle:    stoppedTimer(),
		reconcile: stoppedTimer(),
	}
	defer w.settle.Stop()
	defer w.reconcile.Stop()

	logger.Info("watcher: started", slog.String("root", root))

	for {
		select {
		case <-ctx.Done():
			logger.Info("watcher: stopped")
			return nil

		case <-w.settle.C:
			w.flush()

		case <-w.reconcile.C:
			w.reconcileAll()

		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handle(ev)

		case watchErr, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

func stoppedTimer() *time.Timer {
	t := time.NewTimer(time.Hour)
	t.Stop()
	return t
}

func (w *watcher) emit(kind, path string) {
	if w.cb != nil {
		w.cb(kind, path)
	}
}

func (w *watcher) handle(ev fsnotify.Event) {
	if ev.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			w.watchDir(ev.Name)
			return
		}
	}

	rel, err := filepath.Rel(w.root, ev.Name)
	if err != nil || !isPackageFile(rel) {
		return
	}
	rel = filepath.ToSlash(rel)

	switch {
	case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
		w.dirty[rel] = struct{}{}
		w.settle.Reset(settleDelay)

	case ev.Op&fsnotify.Remove != 0:
		delete(w.dirty, rel)
		w.remove(rel)

	case ev.Op&fsnotify.Rename != 0:
		// Rename arrives for the old path only; the new one shows up as
		// Create or through reconciliation.
		delete(w.dirty, rel)
		w.remove(rel)
		w.reconcile.Reset(reconcileDelay)
	}
}

// watchDir adds a directory created at runtime and queues the package file
// it may already hold, as when a package is moved in from elsewhere.
func (w *watcher) watchDir(dir string) {
	if err := addDirsRecursive(w.fsw, dir); err != nil {
		w.logger.Warn("watcher: add new dir failed", slog.String("path", dir), slog.String("error", err.Error()))
	} else {
		w.logger.Debug("watcher: watching new dir", slog.String("path", dir))
	}
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if rel, relErr := filepath.Rel(w.root, path); relErr == nil && isPackageFile(rel) {
			w.dirty[filepath.ToSlash(rel)] = struct{}{}
			w.settle.Reset(settleDelay)
		}
		return nil
	})
}

// flush indexes every path written since the last flush.
func (w *watcher) flush() {
	for rel := range w.dirty {
		delete(w.dirty, rel)
		w.index(rel, time.Now().UTC())
	}
}

func (w *watcher) index(rel string, modTime time.Time) {
	data, err := w.store.Read(rel)
	if err != nil {
		w.logger.Warn("watcher: read failed", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}
	prev, _ := w.db.GetChecksum(rel)
	if prev == checksum.Sum(data) {
		return
	}
	if err := IndexFile(w.db, rel, data, modTime); err != nil {
		w.logger.Warn("watcher: index failed", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}
	kind := "updated"
	if prev == "" {
		kind = "created"
	}
	w.logger.Debug("watcher: indexed", slog.String("path", rel), slog.String("op", kind))
	w.emit(kind, rel)
}

func (w *watcher) remove(rel string) {
	if prev, _ := w.db.GetChecksum(rel); prev == "" {
		return
	}
	if err := w.db.DeleteDocument(rel); err != nil {
		w.logger.Warn("watcher: delete failed", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}
	w.logger.Debug("watcher: deleted", slog.String("path", rel))
	w.emit("deleted", rel)
}

// reconcileAll compares the catalog with the workspace listing, dropping
// rows whose package is gone and indexing packages that changed.
func (w *watcher) reconcileAll() {
	checksums, err := w.db.AllChecksums()
	if err != nil {
		w.logger.Warn("reconcile: all checksums failed", slog.String("error", err.Error()))
		return
	}
	metas, err := w.store.List()
	if err != nil {
		w.logger.Warn("reconcile: list failed", slog.String("error", err.Error()))
		return
	}

	onDisk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		onDisk[m.Path] = struct{}{}
		if checksums[m.Path] != m.Checksum {
			w.index(m.Path, m.UpdatedAt)
		}
	}
	for p := range checksums {
		if _, ok := onDisk[p]; !ok {
			w.remove(p)
		}
	}
}

// addDirsRecursive adds root and its package directories to the watcher.
// Image folders and hidden directories are skipped; images never affect
// the catalog on their own.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if rel, relErr := filepath.Rel(root, path); relErr == nil && strings.Count(filepath.ToSlash(rel), "/") >= 1 {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}
