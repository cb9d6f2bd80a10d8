package index

import (
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/starford/dysedit/internal/checksum"
	"github.com/starford/dysedit/internal/parser"
	"github.com/starford/dysedit/internal/speech"
	"github.com/starford/dysedit/internal/storage"
)

// Sync walks the workspace and brings the catalog up to date:
//   - new/changed packages are parsed and upserted
//   - packages removed from disk are deleted from the catalog
func Sync(db *DB, store storage.Provider, logger *slog.Logger) error {
	metas, err := store.List()
	if err != nil {
		return err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.Path] = struct{}{}

		if checksums[m.Path] == m.Checksum {
			continue
		}

		data, err := store.Read(m.Path)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		if err := IndexFile(db, m.Path, data, m.UpdatedAt); err != nil {
			logger.Warn("sync: index failed", slog.String("path", m.Path), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed", slog.String("path", m.Path))
		}
	}

	for p := range checksums {
		if _, ok := disk[p]; !ok {
			if err := db.DeleteDocument(p); err != nil {
				logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("path", p))
			}
		}
	}

	return nil
}

// IndexFile parses a package markdown file and upserts it. The stored body is
// the plain text a listener would hear, so search matches what is read aloud.
func IndexFile(db Catalog, path string, data []byte, modTime time.Time) error {
	res, err := parser.Parse(data)
	if err != nil {
		return err
	}
	if modTime.IsZero() {
		modTime = time.Now().UTC()
	}
	row := DocumentRow{
		Path:      path,
		Name:      PackageName(path),
		Title:     res.Title,
		Checksum:  checksum.Sum(data),
		UpdatedAt: modTime,
	}
	return db.UpsertDocument(row, speech.ProjectMarkdown(res.Body), res.Images)
}

// isPackageFile reports whether rel names the markdown file of a package,
// i.e. "<name>/<name>.md".
func isPackageFile(rel string) bool {
	rel = filepath.ToSlash(rel)
	dir, file, ok := strings.Cut(rel, "/")
	if !ok || dir == "" || strings.Contains(file, "/") {
		return false
	}
	return file == dir+".md"
}

// PackageName returns the package a workspace-relative path belongs to.
func PackageName(path string) string {
	dir, _, _ := strings.Cut(filepath.ToSlash(path), "/")
	return dir
}
