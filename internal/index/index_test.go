package index

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/dysedit/internal/apperr"
	"github.com/starford/dysedit/internal/models"
	"github.com/starford/dysedit/internal/storage"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "dysedit-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM documents`).Scan(&count); err != nil {
		t.Fatalf("documents table missing: %v", err)
	}
	if err := db.conn.QueryRow(`SELECT count(*) FROM document_images`).Scan(&count); err != nil {
		t.Fatalf("document_images table missing: %v", err)
	}
}

func TestUpsertAndGetChecksum(t *testing.T) {
	db := testDB(t)
	row := DocumentRow{
		Path:      "essay/essay.md",
		Name:      "essay",
		Title:     "My Essay",
		Checksum:  "abc123",
		UpdatedAt: time.Now(),
	}
	imgs := []models.ImageRef{{Alt: "cat", Src: "./images/cat.png", ID: "img-1"}}
	if err := db.UpsertDocument(row, "This is my essay.", imgs); err != nil {
		t.Fatalf("UpsertDocument: %v", err)
	}
	cs, err := db.GetChecksum("essay/essay.md")
	if err != nil {
		t.Fatalf("GetChecksum: %v", err)
	}
	if cs != "abc123" {
		t.Errorf("checksum = %q, want %q", cs, "abc123")
	}

	got, err := db.GetDocument("essay/essay.md")
	if err != nil {
		t.Fatalf("GetDocument: %v", err)
	}
	if got.Title != "My Essay" || got.Name != "essay" || got.Images != 1 {
		t.Errorf("document = %+v", got)
	}
}

func TestGetDocument_NotFound(t *testing.T) {
	db := testDB(t)
	_, err := db.GetDocument("missing/missing.md")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestImageIDs(t *testing.T) {
	db := testDB(t)
	now := time.Now()
	_ = db.UpsertDocument(DocumentRow{Path: "a/a.md", Checksum: "1", UpdatedAt: now}, "body", []models.ImageRef{
		{Src: "./images/x.png", ID: "id-x"},
		{Src: "./images/y.png"},
	})
	_ = db.UpsertDocument(DocumentRow{Path: "b/b.md", Checksum: "2", UpdatedAt: now}, "body", []models.ImageRef{
		{Src: "./images/z.png", ID: "id-z"},
	})

	ids, err := db.ImageIDs()
	if err != nil {
		t.Fatalf("ImageIDs: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("expected 2 ids, got %v", ids)
	}
	if _, ok := ids["id-x"]; !ok {
		t.Error("id-x missing")
	}
}

func TestDeleteDocument(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertDocument(DocumentRow{Path: "del/del.md", Checksum: "x", UpdatedAt: time.Now()}, "body", []models.ImageRef{{Src: "./images/a.png", ID: "gone"}})

	if err := db.DeleteDocument("del/del.md"); err != nil {
		t.Fatalf("DeleteDocument: %v", err)
	}
	cs, _ := db.GetChecksum("del/del.md")
	if cs != "" {
		t.Errorf("deleted document still has checksum %q", cs)
	}
	ids, _ := db.ImageIDs()
	if len(ids) != 0 {
		t.Errorf("expected no image ids after delete, got %v", ids)
	}
}

func TestUpsertUpdatesExisting(t *testing.T) {
	db := testDB(t)
	now := time.Now()
	_ = db.UpsertDocument(DocumentRow{Path: "up/up.md", Title: "Old", Checksum: "1", UpdatedAt: now}, "old body", []models.ImageRef{{Src: "a", ID: "old"}})
	_ = db.UpsertDocument(DocumentRow{Path: "up/up.md", Title: "New", Checksum: "2", UpdatedAt: now}, "new body", []models.ImageRef{{Src: "b", ID: "new"}})

	cs, _ := db.GetChecksum("up/up.md")
	if cs != "2" {
		t.Errorf("checksum = %q, want %q", cs, "2")
	}
	ids, _ := db.ImageIDs()
	if _, ok := ids["old"]; ok {
		t.Error("old image reference should be removed on upsert")
	}
	if _, ok := ids["new"]; !ok {
		t.Error("new image reference should exist")
	}
}

func TestListDocuments(t *testing.T) {
	db := testDB(t)
	base := time.Now()
	for i, name := range []string{"a", "b", "c"} {
		_ = db.UpsertDocument(DocumentRow{
			Path:      name + "/" + name + ".md",
			Name:      name,
			Checksum:  name,
			UpdatedAt: base.Add(time.Duration(i) * time.Minute),
		}, "", nil)
	}

	rows, total, err := db.ListDocuments(2, 0)
	if err != nil {
		t.Fatalf("ListDocuments: %v", err)
	}
	if total != 3 {
		t.Errorf("total = %d, want 3", total)
	}
	if len(rows) != 2 || rows[0].Name != "c" {
		t.Errorf("rows = %+v, want newest first", rows)
	}
}

func TestGetChecksum_NotFound(t *testing.T) {
	db := testDB(t)
	cs, err := db.GetChecksum("nonexistent/nonexistent.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cs != "" {
		t.Errorf("expected empty checksum, got %q", cs)
	}
}

func TestSearch_Basic(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertDocument(DocumentRow{Path: "s/s.md", Name: "s", Title: "Search Me", Checksum: "1", UpdatedAt: time.Now()}, "uniqueword appears here", nil)

	results, err := db.Search("uniqueword", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Path != "s/s.md" || results[0].Name != "s" {
		t.Errorf("search results = %+v, want 1 hit for s/s.md", results)
	}
}

func TestIsPackageFile(t *testing.T) {
	cases := map[string]bool{
		"essay/essay.md":        true,
		"essay/other.md":        false,
		"essay.md":              false,
		"essay/images/essay.md": false,
		"essay/essay.txt":       false,
	}
	for in, want := range cases {
		if got := isPackageFile(in); got != want {
			t.Errorf("isPackageFile(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestSync_IndexesAndRemoves(t *testing.T) {
	root := t.TempDir()
	store, err := storage.NewFS(root)
	if err != nil {
		t.Fatal(err)
	}
	db := testDB(t)
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	md := "# Trip\n\nWe saw **whales**.\n\n![whale](./images/whale.png){width=200px}\n"
	if err := store.WritePackage(models.Package{
		Name:     "trip",
		Markdown: md,
		Images:   []models.Image{{Filename: "whale.png", MIME: "image/png", Data: []byte{1, 2, 3}}},
	}); err != nil {
		t.Fatal(err)
	}
	if err := Sync(db, store, logger); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	doc, err := db.GetDocument("trip/trip.md")
	if err != nil {
		t.Fatalf("GetDocument: %v", err)
	}
	if doc.Title != "Trip" || doc.Images != 1 {
		t.Errorf("document = %+v", doc)
	}
	results, _ := db.Search("whales", 10)
	if len(results) != 1 {
		t.Errorf("expected plain-text body to be searchable, got %+v", results)
	}

	if err := os.RemoveAll(filepath.Join(root, "trip")); err != nil {
		t.Fatal(err)
	}
	if err := Sync(db, store, logger); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if cs, _ := db.GetChecksum("trip/trip.md"); cs != "" {
		t.Error("removed package still catalogued")
	}
}

func TestSearch_AllWordsRequired(t *testing.T) {
	db := testDB(t)
	now := time.Now()
	_ = db.UpsertDocument(DocumentRow{Path: "a/a.md", Name: "a", Title: "Fox", Checksum: "1", UpdatedAt: now}, "the red fox jumps", nil)
	_ = db.UpsertDocument(DocumentRow{Path: "b/b.md", Name: "b", Title: "Hen", Checksum: "2", UpdatedAt: now}, "the red hen sits", nil)

	results, err := db.Search("red fox", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Name != "a" {
		t.Errorf("search results = %+v, want only a", results)
	}
}

func TestSearch_PunctuationAndBlankQuery(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertDocument(DocumentRow{Path: "q/q.md", Name: "q", Title: "Quotes", Checksum: "1", UpdatedAt: time.Now()}, "don't panic", nil)

	if _, err := db.Search(`don't "panic" (now`, 10); err != nil {
		t.Errorf("punctuation should not break search: %v", err)
	}
	results, err := db.Search("  !! ", 10)
	if err != nil || len(results) != 0 {
		t.Errorf("blank query = %+v, %v", results, err)
	}
}
