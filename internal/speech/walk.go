// Package speech maps text-to-speech boundary events onto the live editing
// tree and tracks the resulting highlight.
package speech

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/text/cases"

	"github.com/starford/dysedit/internal/apperr"
	"github.com/starford/dysedit/internal/dom"
)

// maxOvershoot is how far before a text node an index may fall and still be
// placed at that node's start.
const maxOvershoot = 2

// DefaultResyncWindow is the default search radius of Resync.
const DefaultResyncWindow = 10

// Segment is a text node with its starting offset in the projection.
type Segment struct {
	Node  *html.Node
	Start int
	Len   int
}

// Position is a point inside a text node. Offset counts runes.
type Position struct {
	Node   *html.Node
	Offset int
}

// Walk is the plain-text projection of a tree, with the text nodes that
// produced it. Crossing from one block to another counts one implicit line
// break unless the text already has a newline there; <br> counts as one.
type Walk struct {
	root     *html.Node
	segments []Segment
	text     []rune
	window   int
}

// WalkOption configures a Walk.
type WalkOption func(*Walk)

// WithResyncWindow sets the search radius of Resync.
func WithResyncWindow(n int) WalkOption {
	return func(w *Walk) { w.window = n }
}

// NewWalk builds the projection of root.
func NewWalk(root *html.Node, opts ...WalkOption) *Walk {
	w := &Walk{root: root, window: DefaultResyncWindow}
	for _, opt := range opts {
		opt(w)
	}

	var lastBlock *html.Node
	started := false
	dom.Walk(root, func(n *html.Node) bool {
		switch {
		case dom.Is(n, "script", "style") || dom.HasClass(n, "resize-handle"):
			return false
		case dom.Is(n, "br"):
			w.text = append(w.text, '\n')
			return false
		case n.Type != html.TextNode || n.Data == "":
			return true
		}

		block := blockOf(root, n)
		if started && block != lastBlock && !w.endsWithNewline() && !strings.HasPrefix(n.Data, "\n") {
			w.text = append(w.text, '\n')
		}
		started = true
		lastBlock = block

		w.segments = append(w.segments, Segment{Node: n, Start: len(w.text), Len: dom.RuneLen(n)})
		w.text = append(w.text, []rune(n.Data)...)
		return true
	})
	return w
}

func blockOf(root, n *html.Node) *html.Node {
	if b := dom.Closest(n.Parent, root, dom.IsBlock); b != nil {
		return b
	}
	return root
}

func (w *Walk) endsWithNewline() bool {
	return len(w.text) > 0 && w.text[len(w.text)-1] == '\n'
}

// Text returns the projection.
func (w *Walk) Text() string { return string(w.text) }

// Len returns the projection length in runes.
func (w *Walk) Len() int { return len(w.text) }

// Segments returns the text nodes of the projection in document order.
func (w *Walk) Segments() []Segment { return w.segments }

// Locate returns the text position of projection index i. An index that
// falls at most two characters before a text node, which happens when an
// implicit break was counted that the caller's projection lacks, is placed
// at that node's start.
func (w *Walk) Locate(i int) (Position, error) {
	if i < 0 || i > len(w.text) {
		return Position{}, fmt.Errorf("speech: index %d outside [0, %d]: %w", i, len(w.text), apperr.ErrMapping)
	}
	for _, s := range w.segments {
		if i >= s.Start+s.Len {
			continue
		}
		local := i - s.Start
		if local < 0 {
			if local < -maxOvershoot {
				return Position{}, fmt.Errorf("speech: index %d falls between text nodes: %w", i, apperr.ErrMapping)
			}
			local = 0
		}
		return Position{Node: s.Node, Offset: local}, nil
	}
	if n := len(w.segments); n > 0 {
		last := w.segments[n-1]
		if i-(last.Start+last.Len) <= maxOvershoot {
			return Position{Node: last.Node, Offset: last.Len}, nil
		}
	}
	return Position{}, fmt.Errorf("speech: index %d has no text node: %w", i, apperr.ErrMapping)
}

// Offset is the inverse of Locate.
func (w *Walk) Offset(p Position) (int, error) {
	for _, s := range w.segments {
		if s.Node == p.Node {
			return s.Start + min(max(p.Offset, 0), s.Len), nil
		}
	}
	return 0, fmt.Errorf("speech: node is not part of the walk: %w", apperr.ErrMapping)
}

// Range returns the tree range covering length runes from index i.
func (w *Walk) Range(i, length int) (dom.Range, error) {
	start, err := w.Locate(i)
	if err != nil {
		return dom.Range{}, err
	}
	end, err := w.Locate(min(i+length, len(w.text)))
	if err != nil {
		return dom.Range{}, err
	}
	return dom.Range{
		StartContainer: start.Node, StartOffset: start.Offset,
		EndContainer: end.Node, EndOffset: end.Offset,
	}, nil
}

// Resync checks that the text at index i starts with word and, when it does
// not, searches the resync window around i for a position that does,
// nearest first. The comparison ignores case and whitespace. It reports
// whether a matching position was found; otherwise i is returned.
func (w *Walk) Resync(i int, word string) (int, bool) {
	want := squash(word)
	if want == "" {
		return i, false
	}
	if w.matchesAt(i, want) {
		return i, true
	}
	for d := 1; d <= w.window; d++ {
		if w.matchesAt(i+d, want) {
			return i + d, true
		}
		if w.matchesAt(i-d, want) {
			return i - d, true
		}
	}
	return i, false
}

func squash(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, cases.Fold().String(s))
}

func (w *Walk) matchesAt(i int, want string) bool {
	if i < 0 || i >= len(w.text) || unicode.IsSpace(w.text[i]) {
		return false
	}
	end := min(len(w.text), i+2*utf8.RuneCountInString(want)+1)
	return strings.HasPrefix(squash(string(w.text[i:end])), want)
}

// Project returns the plain-text projection of root.
func Project(root *html.Node) string {
	return NewWalk(root).Text()
}
