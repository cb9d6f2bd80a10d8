package session

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"github.com/starford/dysedit/internal/apperr"
	"github.com/starford/dysedit/internal/assetstore"
	"github.com/starford/dysedit/internal/document"
	"github.com/starford/dysedit/internal/dom"
	"github.com/starford/dysedit/internal/surface"
)

// ImageResult identifies an inserted image.
type ImageResult struct {
	ID     string `json:"id"`
	Handle string `json:"handle"`
}

// InsertImage places p at the caret given by path and offset; a nil path
// appends it to the document. The image is shown even when persisting it
// fails; that failure is the returned error.
func (s *Session) InsertImage(ctx context.Context, p assetstore.Payload, path dom.Path, offset int) (ImageResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireSurface(); err != nil {
		return ImageResult{}, err
	}
	if s.cfg.MaxAssetBytes > 0 && int64(len(p.Data)) > s.cfg.MaxAssetBytes {
		return ImageResult{}, fmt.Errorf("session: image %s is %d bytes: %w", p.Name, len(p.Data), apperr.ErrTooLarge)
	}
	if p.MIME == "" {
		p.MIME = assetstore.DetectMIME(p.Data, p.Name)
	}
	if !strings.HasPrefix(p.MIME, "image/") {
		return ImageResult{}, fmt.Errorf("session: %s: %w", p.MIME, apperr.ErrUnsupported)
	}

	var r dom.Range
	if path != nil {
		n, err := s.resolve(path)
		if err != nil {
			return ImageResult{}, err
		}
		r = dom.Caret(n, offset)
	}
	id, handle, err := s.surf.InsertImage(ctx, p, r)
	s.pull()
	return ImageResult{ID: id, Handle: handle}, err
}

// Settled is reported by the host once native input has settled. Pasted
// images are adopted and placed on their own lines.
func (s *Session) Settled(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireSurface(); err != nil {
		return err
	}
	err := s.surf.Settled(ctx)
	s.pull()
	return err
}

// SelectImage selects the image at path as an object.
func (s *Session) SelectImage(path dom.Path) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.resolve(path)
	if err != nil {
		return err
	}
	return s.surf.SelectImage(n)
}

// SelectMath selects the math node at path as an object.
func (s *Session) SelectMath(path dom.Path) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.resolve(path)
	if err != nil {
		return err
	}
	return s.surf.SelectMath(n)
}

// ClearObjectSelection deselects the selected image or math node.
func (s *Session) ClearObjectSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.surf.ClearObjectSelection()
}

// DeleteSelected removes the selected object. It reports whether the
// document changed.
func (s *Session) DeleteSelected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.adopt(s.surf.DeleteSelected())
}

// InsertParagraphAfterSelected opens an empty paragraph after the selected
// image and moves the caret into it.
func (s *Session) InsertParagraphAfterSelected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.adopt(s.surf.InsertParagraphAfterSelected())
}

// Resize drags corner of the image at path by dx, dy and commits the size.
func (s *Session) Resize(path dom.Path, corner string, dx, dy float64) (width, height int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := surface.ParseCorner(corner)
	if err != nil {
		return 0, 0, err
	}
	img, err := s.resolve(path)
	if err != nil {
		return 0, 0, err
	}
	r, err := s.surf.BeginResize(img, c)
	if err != nil {
		return 0, 0, err
	}
	width, height = r.Drag(dx, dy)
	s.adopt(r.Commit())
	return width, height, nil
}

// ValidateImages reports the images a save would lose.
func (s *Session) ValidateImages() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pull()
	return s.validate(s.canonicalHTML())
}

func (s *Session) adopt(content string, changed bool) bool {
	if changed {
		s.doc.SetContent(content)
	}
	return changed
}

// canonicalHTML returns the document as HTML whatever the view mode.
func (s *Session) canonicalHTML() string {
	content, mode := s.doc.State()
	if mode == document.ModeMarkdown {
		return document.Convert(content, mode, document.ModeWYSIWYG)
	}
	return content
}

// validate fails with the images that have neither a persisted identifier
// nor a live handle.
func (s *Session) validate(markup string) error {
	var missing []apperr.UnresolvedImage
	for i, img := range images(dom.Parse(markup)) {
		src := dom.Attr(img, "src")
		if dom.Attr(img, "data-image-id") != "" || !assetstore.IsHandle(src) {
			continue
		}
		if _, ok := s.handles.Lookup(src); ok {
			continue
		}
		missing = append(missing, apperr.UnresolvedImage{Index: i, Alt: dom.Attr(img, "alt"), Src: src})
	}
	if len(missing) > 0 {
		return &apperr.UnresolvedAssetError{Images: missing}
	}
	return nil
}

// referencedIDs collects the image identifiers used by markup.
func referencedIDs(markup string) map[string]struct{} {
	ids := make(map[string]struct{})
	for _, img := range images(dom.Parse(markup)) {
		if id := dom.Attr(img, "data-image-id"); id != "" {
			ids[id] = struct{}{}
		}
	}
	return ids
}

func images(root *html.Node) []*html.Node {
	return dom.FindAll(root, func(n *html.Node) bool { return dom.Is(n, "img") })
}
