package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/dysedit/internal/apperr"
	"github.com/starford/dysedit/internal/models"
)

func tempWorkspace(t *testing.T) *FS {
	t.Helper()
	dir := t.TempDir()
	fs, err := NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestWriteAndRead(t *testing.T) {
	s := tempWorkspace(t)
	content := []byte("# Hello\nWorld\n")
	if err := s.Write("doc/doc.md", content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("doc/doc.md")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestReadMissingIsNotFound(t *testing.T) {
	s := tempWorkspace(t)
	_, err := s.Read("nope/nope.md")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestDelete(t *testing.T) {
	s := tempWorkspace(t)
	_ = s.Write("del.md", []byte("bye"))
	if err := s.Delete("del.md"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if s.Exists("del.md") {
		t.Error("deleted file still exists")
	}
}

func TestMove(t *testing.T) {
	s := tempWorkspace(t)
	_ = s.Write("old.md", []byte("data"))
	if err := s.Move("old.md", "sub/new.md"); err != nil {
		t.Fatalf("Move: %v", err)
	}
	got, err := s.Read("sub/new.md")
	if err != nil {
		t.Fatalf("Read after move: %v", err)
	}
	if string(got) != "data" {
		t.Errorf("content = %q", got)
	}
}

func TestListPackages(t *testing.T) {
	s := tempWorkspace(t)
	_ = s.Write(MarkdownPath("alpha"), []byte("a"))
	_ = s.Write(MarkdownPath("beta"), []byte("b"))
	_ = s.Write("loose/other.md", []byte("not a package"))
	_ = s.Write("readme.txt", []byte("not md"))

	items, err := s.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len = %d, want 2", len(items))
	}
	if items[0].Name != "alpha" || items[0].Path != filepath.Join("alpha", "alpha.md") {
		t.Errorf("items[0] = %+v", items[0])
	}
	if items[0].Checksum == "" {
		t.Error("missing checksum")
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempWorkspace(t)

	cases := []string{
		"../../etc/passwd",
		"../outside.md",
		"/etc/shadow",
	}
	for _, p := range cases {
		if _, err := s.Read(p); err == nil {
			t.Errorf("expected error for path %q", p)
		}
		if err := s.Write(p, []byte("x")); err == nil {
			t.Errorf("expected error for write to %q", p)
		}
	}
}

func TestAtomicWriteLeavesNoTempFiles(t *testing.T) {
	s := tempWorkspace(t)
	_ = s.Write("atomic.md", []byte("original content"))

	updated := []byte("updated content")
	if err := s.Write("atomic.md", updated); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, _ := s.Read("atomic.md")
	if string(got) != string(updated) {
		t.Errorf("expected updated content, got %q", got)
	}

	matches, _ := filepath.Glob(filepath.Join(s.root, ".dysedit-tmp-*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestNewFS_NonExistentDir(t *testing.T) {
	_, err := NewFS("/tmp/dysedit-does-not-exist-" + t.Name())
	if err == nil {
		t.Error("expected error for non-existent dir")
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	f, _ := os.CreateTemp("", "dysedit-test-*")
	_ = f.Close()
	defer os.Remove(f.Name())
	_, err := NewFS(f.Name())
	if err == nil {
		t.Error("expected error when root is a file")
	}
}

func TestAvailableName(t *testing.T) {
	s := tempWorkspace(t)
	if got := s.AvailableName("Notes"); got != "Notes" {
		t.Errorf("got %q, want Notes", got)
	}
	_ = s.Write(MarkdownPath("Notes"), []byte("x"))
	_ = s.Write(MarkdownPath("Notes (1)"), []byte("x"))
	if got := s.AvailableName("Notes"); got != "Notes (2)" {
		t.Errorf("got %q, want %q", got, "Notes (2)")
	}
}

func TestImageFileName(t *testing.T) {
	now := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	if got := ImageFileName("My Photo.png", ".png", now, nil); got != "my-photo_20260304_050607.png" {
		t.Errorf("got %q", got)
	}
	if got := ImageFileName("", ".gif", now, nil); got != "image_20260304_050607.gif" {
		t.Errorf("got %q", got)
	}
	taken := map[string]bool{"a_20260304_050607.png": true, "a_20260304_050607_1.png": true}
	got := ImageFileName("a", ".png", now, func(n string) bool { return taken[n] })
	if got != "a_20260304_050607_2.png" {
		t.Errorf("got %q", got)
	}
}

func TestPackageRoundTrip(t *testing.T) {
	s := tempWorkspace(t)
	p := models.Package{
		Name:     "Trip",
		Markdown: "# Trip\n\n![a](./images/a.png)",
		Images:   []models.Image{{Filename: "a.png", Data: []byte("png")}},
	}
	if err := s.WritePackage(p); err != nil {
		t.Fatalf("WritePackage: %v", err)
	}
	got, err := s.ReadPackage("Trip")
	if err != nil {
		t.Fatalf("ReadPackage: %v", err)
	}
	if got.Markdown != p.Markdown {
		t.Errorf("markdown = %q", got.Markdown)
	}
	if len(got.Images) != 1 || got.Images[0].Filename != "a.png" || string(got.Images[0].Data) != "png" {
		t.Errorf("images = %+v", got.Images)
	}

	p.Images = []models.Image{{Filename: "b.png", Data: []byte("b")}}
	if err := s.WritePackage(p); err != nil {
		t.Fatalf("WritePackage: %v", err)
	}
	if s.Exists(filepath.Join("Trip", ImagesDir, "a.png")) {
		t.Error("stale image was kept")
	}
}

func TestReadPackageAcceptsAssetsDir(t *testing.T) {
	s := tempWorkspace(t)
	_ = s.Write(MarkdownPath("Old"), []byte("![x](./assets/x.png)"))
	_ = s.Write(filepath.Join("Old", "assets", "x.png"), []byte("x"))

	got, err := s.ReadPackage("Old")
	if err != nil {
		t.Fatalf("ReadPackage: %v", err)
	}
	if len(got.Images) != 1 || got.Images[0].Filename != "x.png" {
		t.Errorf("images = %+v", got.Images)
	}
}

func TestDeletePackage(t *testing.T) {
	s := tempWorkspace(t)
	_ = s.Write(MarkdownPath("Gone"), []byte("x"))
	if err := s.DeletePackage("Gone"); err != nil {
		t.Fatalf("DeletePackage: %v", err)
	}
	if err := s.DeletePackage("Gone"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if err := s.DeletePackage(""); err == nil {
		t.Error("expected error deleting workspace root")
	}
}

func TestRenamePackage(t *testing.T) {
	s := tempWorkspace(t)
	_ = s.Write(MarkdownPath("Draft"), []byte("# Draft"))
	_ = s.Write(filepath.Join("Draft", ImagesDir, "a.png"), []byte("png"))
	_ = s.Write(MarkdownPath("Taken"), []byte("x"))

	if err := s.RenamePackage("Draft", "Final"); err != nil {
		t.Fatalf("RenamePackage: %v", err)
	}
	got, err := s.ReadPackage("Final")
	if err != nil {
		t.Fatalf("ReadPackage: %v", err)
	}
	if got.Markdown != "# Draft" || len(got.Images) != 1 {
		t.Errorf("package = %+v", got)
	}
	if s.Exists("Draft") {
		t.Error("old package directory kept")
	}

	if err := s.RenamePackage("Final", "Taken"); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("err = %v, want ErrConflict", err)
	}
	if err := s.RenamePackage("Missing", "Other"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if err := s.RenamePackage("Final", "../out"); err == nil {
		t.Error("expected error for a name with a separator")
	}
}
