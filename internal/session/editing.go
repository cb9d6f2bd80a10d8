package session

import (
	"context"

	"github.com/starford/dysedit/internal/document"
	"github.com/starford/dysedit/internal/dom"
	"github.com/starford/dysedit/internal/surface"
)

// SetContent offers content from an external writer. In markdown view it
// replaces the content directly. Otherwise the surface decides: the content
// is adopted when the push is applied, and later on replay when deferred.
func (s *Session) SetContent(content string) surface.PushResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.doc.Mode() == document.ModeMarkdown {
		s.doc.SetContent(content)
		return surface.PushApplied
	}
	s.onReplay = nil
	res := s.surf.Push(content)
	switch res {
	case surface.PushApplied, surface.PushUnchanged:
		s.doc.SetContent(s.surf.Serialize())
	}
	return res
}

// Input installs the tree the host reports after native input and returns
// the canonical content.
func (s *Session) Input(markup string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireSurface(); err != nil {
		return "", err
	}
	if c, changed := s.surf.ReplaceFromHost(markup); changed {
		s.doc.SetContent(c)
	}
	return s.doc.Content(), nil
}

// Focus records that the surface holds input focus.
func (s *Session) Focus() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transition(s.surf.Focus)
}

// Blur records loss of focus.
func (s *Session) Blur() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transition(s.surf.Blur)
}

// Select sets the native selection and returns the formatting at its start.
func (s *Session) Select(sel Selection) (document.FormatSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start, err := s.resolve(sel.StartPath)
	if err != nil {
		return document.FormatSnapshot{}, err
	}
	r := dom.Caret(start, sel.StartOffset)
	if sel.EndPath != nil {
		end, err := s.resolve(sel.EndPath)
		if err != nil {
			return document.FormatSnapshot{}, err
		}
		r.EndContainer, r.EndOffset = end, sel.EndOffset
	}
	s.transition(func() { s.surf.Select(r) })
	return s.doc.UpdateFormatAtCursor(s.surf.Root(), r), nil
}

// ClearSelection drops the native selection.
func (s *Session) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transition(s.surf.ClearSelection)
}

// ChangeViewMode switches the view mode. Leaving the surface applies a
// deferred push and pulls it first; entering it from markdown pushes the
// converted content and restores image handles.
func (s *Session) ChangeViewMode(ctx context.Context, target document.ViewMode) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	from := s.doc.Mode()
	if from != target {
		s.release()
	}
	s.pull()
	content, err := s.doc.ChangeViewMode(target)
	if err != nil {
		return "", err
	}
	if target != document.ModeMarkdown && from != target {
		s.show(content)
		if from == document.ModeMarkdown {
			s.resolveImages(ctx)
		}
	}
	return s.doc.Content(), nil
}

// Format returns the formatting at the caret.
func (s *Session) Format() document.FormatSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.UpdateFormatAtCursor(s.surf.Root(), s.surf.Selection())
}

// ClearFormatting resets the reported formatting.
func (s *Session) ClearFormatting() document.FormatSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.ClearFormatting()
}
