// Package docservice answers catalog questions about the saved document
// packages in the workspace: listing, reading, external edits and deletion.
package docservice

import (
	"context"
	"fmt"
	"time"

	"github.com/starford/dysedit/internal/apperr"
	"github.com/starford/dysedit/internal/checksum"
	"github.com/starford/dysedit/internal/index"
	"github.com/starford/dysedit/internal/models"
	"github.com/starford/dysedit/internal/parser"
	"github.com/starford/dysedit/internal/storage"
)

// Store is the workspace as the service needs it.
type Store interface {
	storage.Provider
	DeletePackage(name string) error
	RenamePackage(name, newName string) error
}

// DocumentDetail is the full representation of a saved package.
type DocumentDetail struct {
	Name        string            `json:"name"`
	Path        string            `json:"path"`
	Title       string            `json:"title"`
	Markdown    string            `json:"markdown"`
	Checksum    string            `json:"checksum"`
	Headings    []parser.Heading  `json:"headings"`
	Images      []models.ImageRef `json:"images"`
	Frontmatter map[string]any    `json:"frontmatter,omitempty"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// DocumentListItem is a lightweight item in a list response.
type DocumentListItem struct {
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	Title     string    `json:"title"`
	Checksum  string    `json:"checksum"`
	Images    int       `json:"images"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Service coordinates workspace and catalog operations.
type Service struct {
	store Store
	db    index.Catalog
	now   func() time.Time
}

// NewService creates a new document service.
func NewService(store Store, db index.Catalog) *Service {
	return &Service{store: store, db: db, now: func() time.Time { return time.Now().UTC() }}
}

// GetDocument reads the markdown of package name and describes it.
func (s *Service) GetDocument(_ context.Context, name string) (*DocumentDetail, error) {
	path := storage.MarkdownPath(name)
	data, err := s.store.Read(path)
	if err != nil {
		return nil, err
	}
	detail, err := buildDetail(name, path, data)
	if err != nil {
		return nil, err
	}
	if row, rowErr := s.db.GetDocument(path); rowErr == nil {
		detail.UpdatedAt = row.UpdatedAt
	}
	return detail, nil
}

// UpdateMarkdown replaces the markdown of an existing package with
// optimistic concurrency: a non-empty ifMatch must equal the checksum of the
// file on disk. An open editing session picks the change up through the
// workspace watcher.
func (s *Service) UpdateMarkdown(_ context.Context, name, markdown, ifMatch string) (*DocumentDetail, error) {
	path := storage.MarkdownPath(name)
	existing, err := s.store.Read(path)
	if err != nil {
		return nil, err
	}
	if ifMatch != "" && ifMatch != checksum.Sum(existing) {
		return nil, fmt.Errorf("docservice: %s: checksum mismatch: %w", name, apperr.ErrConflict)
	}
	data := []byte(markdown)
	if err := s.store.Write(path, data); err != nil {
		return nil, err
	}
	if err := s.IndexFile(path, data); err != nil {
		return nil, err
	}
	return buildDetail(name, path, data)
}

// DeleteDocument removes a package from the workspace and the catalog.
func (s *Service) DeleteDocument(_ context.Context, name string) error {
	if err := s.store.DeletePackage(name); err != nil {
		return err
	}
	if err := s.db.DeleteDocument(storage.MarkdownPath(name)); err != nil {
		return fmt.Errorf("docservice: delete %s: %w", name, err)
	}
	return nil
}

// RenameDocument moves package name to newName and re-catalogs it.
func (s *Service) RenameDocument(ctx context.Context, name, newName string) (*DocumentDetail, error) {
	if err := s.store.RenamePackage(name, newName); err != nil {
		return nil, err
	}
	if err := s.db.DeleteDocument(storage.MarkdownPath(name)); err != nil {
		return nil, fmt.Errorf("docservice: rename %s: %w", name, err)
	}
	if err := s.IndexPackage(newName); err != nil {
		return nil, fmt.Errorf("docservice: rename %s: %w", name, err)
	}
	return s.GetDocument(ctx, newName)
}

// ListDocuments returns catalog entries, most recently updated first.
func (s *Service) ListDocuments(_ context.Context, limit, offset int) ([]DocumentListItem, int, error) {
	rows, total, err := s.db.ListDocuments(limit, offset)
	if err != nil {
		return nil, 0, err
	}
	items := make([]DocumentListItem, len(rows))
	for i, r := range rows {
		items[i] = DocumentListItem{
			Name:      r.Name,
			Path:      r.Path,
			Title:     r.Title,
			Checksum:  r.Checksum,
			Images:    r.Images,
			UpdatedAt: r.UpdatedAt,
		}
	}
	return items, total, nil
}

// Search delegates full-text search to the catalog.
func (s *Service) Search(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	results, err := s.db.Search(query, limit)
	if err != nil {
		return nil, err
	}
	return nonNilSlice(results), nil
}

// IndexFile parses data and upserts it into the catalog.
func (s *Service) IndexFile(path string, data []byte) error {
	return index.IndexFile(s.db, path, data, s.now())
}

// IndexPackage re-reads package name and upserts it into the catalog.
func (s *Service) IndexPackage(name string) error {
	path := storage.MarkdownPath(name)
	data, err := s.store.Read(path)
	if err != nil {
		return err
	}
	return s.IndexFile(path, data)
}

func buildDetail(name, path string, data []byte) (*DocumentDetail, error) {
	res, err := parser.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("docservice: parse %s: %w", name, err)
	}
	return &DocumentDetail{
		Name:        name,
		Path:        path,
		Title:       res.Title,
		Markdown:    string(data),
		Checksum:    checksum.Sum(data),
		Headings:    nonNilSlice(res.Headings),
		Images:      nonNilSlice(res.Images),
		Frontmatter: res.Frontmatter,
	}, nil
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
