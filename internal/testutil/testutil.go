// Package testutil provides shared test helpers for setting up workspaces,
// catalogs and asset stores.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/dysedit/internal/assetstore"
	"github.com/starford/dysedit/internal/index"
	"github.com/starford/dysedit/internal/models"
	"github.com/starford/dysedit/internal/storage"
)

// TestDB creates a temporary catalog database that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "dysedit-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestAssets opens an asset store in a temporary directory.
func TestAssets(t *testing.T) *assetstore.Store {
	t.Helper()
	store, err := assetstore.Open(filepath.Join(t.TempDir(), "assets.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

// TestWorkspace creates a temporary workspace directory.
func TestWorkspace(t *testing.T) (string, *storage.FS) {
	t.Helper()
	root := t.TempDir()
	store, err := storage.NewFS(root)
	if err != nil {
		t.Fatal(err)
	}
	return root, store
}

// WritePackage saves a package holding only markdown.
func WritePackage(t *testing.T, store *storage.FS, name, markdown string) {
	t.Helper()
	if err := store.WritePackage(models.Package{Name: name, Markdown: markdown}); err != nil {
		t.Fatal(err)
	}
}
