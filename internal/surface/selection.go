package surface

import (
	"errors"

	"golang.org/x/net/html"

	"github.com/starford/dysedit/internal/dom"
)

var errNotOnSurface = errors.New("surface: node is not on the surface")

// SelectImage object-selects img. The native selection is dropped.
func (s *Surface) SelectImage(img *html.Node) error {
	if !dom.Is(img, "img") || !dom.Contains(s.root, img) {
		return errNotOnSurface
	}
	if s.selectedImage != nil {
		dom.RemoveClass(s.imageTarget(s.selectedImage), classImageSelect)
	}
	s.selectedImage = img
	dom.AddClass(s.imageTarget(img), classImageSelect)
	s.ClearSelection()
	return nil
}

// SelectMath object-selects a math node. The native selection is dropped.
func (s *Surface) SelectMath(n *html.Node) error {
	if dom.Classify(n) != dom.KindMath || !dom.Contains(s.root, n) {
		return errNotOnSurface
	}
	if s.selectedMath != nil {
		dom.RemoveClass(s.selectedMath, classMathSelected)
	}
	s.selectedMath = n
	dom.AddClass(n, classMathSelected)
	s.ClearSelection()
	return nil
}

// ClearObjectSelection drops image and math object selection.
func (s *Surface) ClearObjectSelection() {
	if s.selectedImage != nil {
		dom.RemoveClass(s.imageTarget(s.selectedImage), classImageSelect)
		s.selectedImage = nil
	}
	if s.selectedMath != nil {
		dom.RemoveClass(s.selectedMath, classMathSelected)
		s.selectedMath = nil
	}
}

// SelectedImage returns the object-selected image, if any.
func (s *Surface) SelectedImage() *html.Node { return s.selectedImage }

// SelectedMath returns the object-selected math node, if any.
func (s *Surface) SelectedMath() *html.Node { return s.selectedMath }

func (s *Surface) imageTarget(img *html.Node) *html.Node {
	if w := dom.Closest(img, s.root, isWrapper); w != nil {
		return w
	}
	return img
}

// DeleteSelected removes the object-selected image and math node together
// with a dedicated container left empty, then pulls.
func (s *Surface) DeleteSelected() (string, bool) {
	if img := s.selectedImage; img != nil {
		s.removeObject(s.imageTarget(img))
		s.selectedImage = nil
	}
	if m := s.selectedMath; m != nil {
		s.removeObject(m)
		s.selectedMath = nil
	}
	return s.Pull()
}

func (s *Surface) removeObject(n *html.Node) {
	parent := n.Parent
	dom.Detach(n)
	if parent != nil && parent != s.root && isEmptyWithout(parent, nil) {
		dom.Detach(parent)
	}
}

// InsertParagraphAfterSelected adds an empty paragraph after the selected
// image's line and puts the caret in it.
func (s *Surface) InsertParagraphAfterSelected() (string, bool) {
	img := s.selectedImage
	if img == nil {
		return s.Pull()
	}
	anchor := s.imageTarget(img)
	if line := dom.Closest(anchor, s.root, isImageLine); line != nil {
		anchor = line
	}
	p := dom.NewElement("p")
	p.AppendChild(dom.NewElement("br"))
	dom.InsertAfter(anchor, p)

	s.ClearObjectSelection()
	s.Select(dom.Caret(p, 0))
	return s.Pull()
}
