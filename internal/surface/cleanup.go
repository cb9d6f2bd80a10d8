package surface

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"github.com/starford/dysedit/internal/dom"
)

const (
	classWrapper      = "resizable-image"
	classHandle       = "resize-handle"
	classImageLine    = "image-line"
	classImageSelect  = "image-selected"
	classMathSelected = "math-selected"
)

var nbspRunRe = regexp.MustCompile(`(?:\x{00a0}[ \t\n]*){2,}`)

// Serialize renders the tree as canonical HTML: surface chrome removed and
// the cleanup pass applied. The live tree is not modified.
func (s *Surface) Serialize() string {
	clone := dom.Clone(s.root)
	stripChrome(clone)
	cleanup(clone)
	return dom.Inner(clone)
}

func normalizeCanonical(markup string) string {
	root := dom.Parse(markup)
	stripChrome(root)
	cleanup(root)
	return dom.Inner(root)
}

// stripChrome removes resize wrappers, handles and selection markers.
func stripChrome(root *html.Node) {
	for _, n := range dom.FindAll(root, func(n *html.Node) bool { return dom.HasClass(n, classHandle) }) {
		dom.Detach(n)
	}
	for _, n := range dom.FindAll(root, isWrapper) {
		dom.Unwrap(n)
	}
	dom.Walk(root, func(n *html.Node) bool {
		if n.Type != html.ElementNode {
			return true
		}
		dom.RemoveAttr(n, "data-resizable")
		dom.RemoveClass(n, classImageSelect)
		dom.RemoveClass(n, classMathSelected)
		if dom.Classify(n) == dom.KindMath {
			dom.RemoveAttr(n, "contenteditable")
		}
		return true
	})
}

// cleanup normalizes markup produced by native editing: empty uncolored
// spans are dropped, NBSP runs collapse to one, legacy font colors become
// color spans and b/i become strong/em.
func cleanup(root *html.Node) {
	for _, n := range dom.FindAll(root, func(n *html.Node) bool { return n.Type == html.ElementNode }) {
		switch n.Data {
		case "span":
			if dom.ColorOf(n) == "" && dom.Classify(n) != dom.KindMath && isBlank(n) {
				dom.Detach(n)
			}
		case "font":
			if color := dom.ColorOf(n); color != "" {
				dom.Rename(n, "span")
				dom.RemoveAttr(n, "color")
				dom.SetStyle(n, "color", color)
			}
		case "b":
			dom.Rename(n, "strong")
		case "i":
			dom.Rename(n, "em")
		}
	}
	dom.Walk(root, func(n *html.Node) bool {
		if n.Type == html.TextNode && strings.Count(n.Data, "\u00a0") > 1 {
			n.Data = nbspRunRe.ReplaceAllString(n.Data, "\u00a0")
		}
		return true
	})
}

func isBlank(n *html.Node) bool {
	blank := true
	dom.Walk(n, func(c *html.Node) bool {
		switch {
		case c.Type == html.TextNode && strings.TrimSpace(c.Data) != "":
			blank = false
		case c.Type == html.ElementNode && c != n && !dom.Is(c, "span"):
			blank = false
		}
		return blank
	})
	return blank
}

func isWrapper(n *html.Node) bool {
	return dom.Is(n, "span") && dom.HasClass(n, classWrapper)
}

func isImageLine(n *html.Node) bool {
	return dom.HasClass(n, classImageLine)
}
