// Package bridge exposes the document to host processes through four
// calls: read and write the markdown, read and write the document data
// (markdown plus base64 image payloads).
package bridge

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"

	"github.com/starford/dysedit/internal/models"
)

// ImageData is an image payload on the wire.
type ImageData struct {
	Filename string `json:"filename"`
	MIME     string `json:"mime"`
	Data     string `json:"data"`
}

// DocumentData is the markdown together with the images it references as
// ./images/<filename>.
type DocumentData struct {
	Markdown string      `json:"markdown"`
	Images   []ImageData `json:"images"`
}

// Document is the editing session as seen by the bridge.
type Document interface {
	Markdown() string
	WriteMarkdown(ctx context.Context, md string) bool
	DocumentData(ctx context.Context) (models.Package, error)
	WriteDocumentData(ctx context.Context, pkg models.Package) bool
}

// Bridge translates host calls into document operations.
type Bridge struct {
	doc    Document
	logger *slog.Logger
}

// New creates a Bridge over doc.
func New(doc Document, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{doc: doc, logger: logger}
}

// ReadMarkdown returns the current document as markdown.
func (b *Bridge) ReadMarkdown() string {
	return b.doc.Markdown()
}

// WriteMarkdown replaces the document. Stray asterisks are cleaned before
// the content is applied.
func (b *Bridge) WriteMarkdown(ctx context.Context, md string) bool {
	return b.doc.WriteMarkdown(ctx, md)
}

// ReadDocumentData returns the markdown with every available image payload.
// It fails with *apperr.UnresolvedAssetError when an image payload is gone.
func (b *Bridge) ReadDocumentData(ctx context.Context) (DocumentData, error) {
	pkg, err := b.doc.DocumentData(ctx)
	if err != nil {
		return DocumentData{}, fmt.Errorf("bridge: read document data: %w", err)
	}
	return FromPackage(pkg), nil
}

// WriteDocumentData replaces the document with data. It reports false when
// an image payload is not valid base64 or could not be stored.
func (b *Bridge) WriteDocumentData(ctx context.Context, data DocumentData) bool {
	pkg, err := ToPackage(data)
	if err != nil {
		b.logger.Warn("bridge: write document data", slog.String("error", err.Error()))
		return false
	}
	return b.doc.WriteDocumentData(ctx, pkg)
}

// FromPackage encodes a package for the wire.
func FromPackage(pkg models.Package) DocumentData {
	out := DocumentData{Markdown: pkg.Markdown, Images: make([]ImageData, 0, len(pkg.Images))}
	for _, img := range pkg.Images {
		out.Images = append(out.Images, ImageData{
			Filename: img.Filename,
			MIME:     img.MIME,
			Data:     base64.StdEncoding.EncodeToString(img.Data),
		})
	}
	return out
}

// ToPackage decodes wire data. Unpadded base64 is accepted.
func ToPackage(data DocumentData) (models.Package, error) {
	pkg := models.Package{Markdown: data.Markdown}
	for _, img := range data.Images {
		raw, err := base64.StdEncoding.DecodeString(img.Data)
		if err != nil {
			raw, err = base64.RawStdEncoding.DecodeString(img.Data)
			if err != nil {
				return models.Package{}, fmt.Errorf("bridge: image %q: invalid base64: %w", img.Filename, err)
			}
		}
		pkg.Images = append(pkg.Images, models.Image{Filename: img.Filename, MIME: img.MIME, Data: raw})
	}
	return pkg, nil
}
