package dom

import (
	"fmt"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// Range is a selection over the tree. Offsets inside text nodes count runes;
// offsets inside elements count child nodes.
type Range struct {
	StartContainer *html.Node
	StartOffset    int
	EndContainer   *html.Node
	EndOffset      int
}

// Caret returns a collapsed range at node/offset.
func Caret(n *html.Node, offset int) Range {
	return Range{StartContainer: n, StartOffset: offset, EndContainer: n, EndOffset: offset}
}

// Collapsed reports whether the range is a caret.
func (r Range) Collapsed() bool {
	return r.StartContainer == r.EndContainer && r.StartOffset == r.EndOffset
}

// IsZero reports whether the range is unset.
func (r Range) IsZero() bool {
	return r.StartContainer == nil
}

// Path addresses a node by child indexes from a root.
type Path []int

// PathOf returns the path from root to n, or nil when n is not under root.
func PathOf(root, n *html.Node) Path {
	var rev []int
	for c := n; c != root; c = c.Parent {
		if c == nil || c.Parent == nil {
			return nil
		}
		i := 0
		for s := c.Parent.FirstChild; s != c; s = s.NextSibling {
			i++
		}
		rev = append(rev, i)
	}
	out := make(Path, len(rev))
	for i := range rev {
		out[i] = rev[len(rev)-1-i]
	}
	return out
}

// Resolve follows p from root.
func (p Path) Resolve(root *html.Node) (*html.Node, error) {
	n := root
	for depth, idx := range p {
		c := n.FirstChild
		for i := 0; c != nil && i < idx; i++ {
			c = c.NextSibling
		}
		if c == nil || idx < 0 {
			return nil, fmt.Errorf("dom: path %v: no child %d at depth %d", p, idx, depth)
		}
		n = c
	}
	return n, nil
}

// RuneLen returns the length of a text node in runes.
func RuneLen(n *html.Node) int {
	return utf8.RuneCountInString(n.Data)
}

// SplitText splits text node n at rune offset and returns the node holding
// the right half. The right half is nil when offset is at the end.
func SplitText(n *html.Node, offset int) *html.Node {
	runes := []rune(n.Data)
	if offset <= 0 {
		offset = 0
	}
	if offset >= len(runes) {
		return nil
	}
	right := Text(string(runes[offset:]))
	n.Data = string(runes[:offset])
	n.Parent.InsertBefore(right, n.NextSibling)
	return right
}
