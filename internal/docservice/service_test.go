package docservice

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/starford/dysedit/internal/apperr"
	"github.com/starford/dysedit/internal/checksum"
	"github.com/starford/dysedit/internal/index"
	"github.com/starford/dysedit/internal/storage"
	"github.com/starford/dysedit/internal/testutil"
)

func testService(t *testing.T) (*Service, *storage.FS, *index.DB) {
	t.Helper()
	_, store := testutil.TestWorkspace(t)
	db := testutil.TestDB(t)
	return NewService(store, db), store, db
}

func TestGetDocument(t *testing.T) {
	svc, store, db := testService(t)
	testutil.WritePackage(t, store, "notes", "# Notes\n\n## Part\n\n![cat](./images/cat.png){id=c1}")
	if err := index.Sync(db, store, slog.New(slog.NewTextHandler(io.Discard, nil))); err != nil {
		t.Fatal(err)
	}

	d, err := svc.GetDocument(context.Background(), "notes")
	if err != nil {
		t.Fatal(err)
	}
	if d.Title != "Notes" {
		t.Errorf("title = %q, want Notes", d.Title)
	}
	if d.Path != "notes/notes.md" {
		t.Errorf("path = %q", d.Path)
	}
	if len(d.Headings) != 2 {
		t.Errorf("headings = %d, want 2", len(d.Headings))
	}
	if len(d.Images) != 1 || d.Images[0].ID != "c1" {
		t.Errorf("images = %+v", d.Images)
	}
	if d.UpdatedAt.IsZero() {
		t.Error("updated_at should come from the catalog")
	}
}

func TestGetDocument_NotFound(t *testing.T) {
	svc, _, _ := testService(t)
	_, err := svc.GetDocument(context.Background(), "missing")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateMarkdown_Conflict(t *testing.T) {
	svc, store, _ := testService(t)
	testutil.WritePackage(t, store, "a", "# A")

	_, err := svc.UpdateMarkdown(context.Background(), "a", "# B", "stale")
	if !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	d, err := svc.UpdateMarkdown(context.Background(), "a", "# B", checksum.Sum([]byte("# A")))
	if err != nil {
		t.Fatal(err)
	}
	if d.Title != "B" {
		t.Errorf("title = %q, want B", d.Title)
	}
	data, _ := store.Read("a/a.md")
	if string(data) != "# B" {
		t.Errorf("file = %q", data)
	}
}

func TestUpdateMarkdown_IndexesContent(t *testing.T) {
	svc, store, _ := testService(t)
	testutil.WritePackage(t, store, "a", "# A")

	if _, err := svc.UpdateMarkdown(context.Background(), "a", "# A\n\nzebra crossing", ""); err != nil {
		t.Fatal(err)
	}
	results, err := svc.Search(context.Background(), "zebra", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].Name != "a" {
		t.Errorf("results = %+v", results)
	}
}

func TestDeleteDocument(t *testing.T) {
	svc, store, db := testService(t)
	testutil.WritePackage(t, store, "gone", "# Gone")
	if err := svc.IndexFile("gone/gone.md", []byte("# Gone")); err != nil {
		t.Fatal(err)
	}

	if err := svc.DeleteDocument(context.Background(), "gone"); err != nil {
		t.Fatal(err)
	}
	if store.Exists("gone/gone.md") {
		t.Error("package still on disk")
	}
	if _, err := db.GetDocument("gone/gone.md"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("catalog entry not removed: %v", err)
	}
	if err := svc.DeleteDocument(context.Background(), "gone"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("second delete: expected ErrNotFound, got %v", err)
	}
}

func TestListDocuments(t *testing.T) {
	svc, _, _ := testService(t)
	for _, name := range []string{"a", "b", "c"} {
		if err := svc.IndexFile(name+"/"+name+".md", []byte("# "+name)); err != nil {
			t.Fatal(err)
		}
	}

	items, total, err := svc.ListDocuments(context.Background(), 2, 0)
	if err != nil {
		t.Fatal(err)
	}
	if total != 3 {
		t.Errorf("total = %d, want 3", total)
	}
	if len(items) != 2 {
		t.Errorf("items = %d, want 2", len(items))
	}
}

func TestSearch_Empty(t *testing.T) {
	svc, _, _ := testService(t)
	results, err := svc.Search(context.Background(), "nothing", 10)
	if err != nil {
		t.Fatal(err)
	}
	if results == nil || len(results) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", results)
	}
}

func TestRenameDocument(t *testing.T) {
	svc, store, db := testService(t)
	ctx := context.Background()
	testutil.WritePackage(t, store, "draft", "# Draft\n\nbody")
	if err := svc.IndexPackage("draft"); err != nil {
		t.Fatal(err)
	}

	d, err := svc.RenameDocument(ctx, "draft", "final")
	if err != nil {
		t.Fatal(err)
	}
	if d.Name != "final" || d.Path != "final/final.md" || d.Title != "Draft" {
		t.Errorf("detail = %+v", d)
	}
	if _, err := db.GetDocument("draft/draft.md"); err == nil {
		t.Error("old catalog row kept")
	}
	if _, err := db.GetDocument("final/final.md"); err != nil {
		t.Errorf("new catalog row missing: %v", err)
	}

	if _, err := svc.RenameDocument(ctx, "missing", "other"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
