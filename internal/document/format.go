package document

import (
	"golang.org/x/net/html"

	"github.com/starford/dysedit/internal/convert"
	"github.com/starford/dysedit/internal/dom"
)

// FormatSnapshot is the formatting in effect at the caret.
type FormatSnapshot struct {
	Bold    bool             `json:"bold"`
	Italic  bool             `json:"italic"`
	Color   string           `json:"color"`
	Heading int              `json:"heading"`
	List    convert.ListKind `json:"list"`
}

// DefaultFormat is the snapshot of unformatted text.
func DefaultFormat() FormatSnapshot {
	return FormatSnapshot{Color: "#000000"}
}

// FormatAt walks from n up to root and reports the innermost value of each
// attribute.
func FormatAt(root, n *html.Node) FormatSnapshot {
	f := DefaultFormat()
	colorSet := false
	for cur := n; cur != nil && cur != root; cur = cur.Parent {
		switch dom.Classify(cur) {
		case dom.KindBold:
			f.Bold = true
		case dom.KindItalic:
			f.Italic = true
		case dom.KindHeading:
			if f.Heading == 0 {
				f.Heading = dom.HeadingLevel(cur)
			}
		case dom.KindListItem:
			if f.List == convert.ListNone {
				f.List = itemListKind(cur)
			}
		case dom.KindList:
			if f.List == convert.ListNone {
				f.List = listKind(cur)
			}
		case dom.KindColor:
			if !colorSet {
				f.Color = dom.ColorOf(cur)
				colorSet = true
			}
		}
	}
	return f
}

func itemListKind(li *html.Node) convert.ListKind {
	switch k := convert.ListKind(dom.Attr(li, "data-type")); k {
	case convert.ListBullet, convert.ListNumber, convert.ListLetter:
		return k
	}
	if li.Parent != nil {
		return listKind(li.Parent)
	}
	return convert.ListNone
}

func listKind(n *html.Node) convert.ListKind {
	switch {
	case dom.Is(n, "ul"):
		return convert.ListBullet
	case dom.IsLowerAlpha(n):
		return convert.ListLetter
	case dom.Is(n, "ol"):
		return convert.ListNumber
	}
	return convert.ListNone
}

// UpdateFormatAtCursor recomputes the snapshot for the caret in sel. Within
// the clear-format window the cleared snapshot is returned regardless of the
// tree. A selection outside root keeps the previous snapshot.
func (c *Controller) UpdateFormatAtCursor(root *html.Node, sel dom.Range) FormatSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.clearedAt.IsZero() && c.now().Sub(c.clearedAt) < c.clearWindow {
		c.format = DefaultFormat()
		return c.format
	}
	if sel.IsZero() || !dom.Contains(root, sel.StartContainer) {
		return c.format
	}
	c.format = FormatAt(root, sel.StartContainer)
	return c.format
}

// ClearFormatting resets the snapshot and opens the clear-format window.
func (c *Controller) ClearFormatting() FormatSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clearedAt = c.now()
	c.format = DefaultFormat()
	return c.format
}

// Format returns the last computed snapshot.
func (c *Controller) Format() FormatSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.format
}
