package surface

import (
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/starford/dysedit/internal/dom"
)

func isPlacementBlock(n *html.Node) bool {
	return dom.Is(n, "p", "div", "li", "h1", "h2", "h3", "h4", "h5", "h6", "blockquote")
}

// isolate moves img onto a dedicated image line. An otherwise empty
// container is replaced by the line; a container with other content is split
// into the part before the image, the image line and the part after it.
// Empty halves are dropped.
func (s *Surface) isolate(img *html.Node) {
	target := img
	if w := dom.Closest(img, s.root, isWrapper); w != nil {
		target = w
	}
	if p := target.Parent; p != nil && isImageLine(p) && onlyChild(p, target) {
		return
	}

	line := dom.NewElement("p", "class", classImageLine)

	block := dom.Closest(target.Parent, s.root, isPlacementBlock)
	if block == nil {
		block = topLevel(s.root, target)
	}
	if block == target {
		target.Parent.InsertBefore(line, target)
		dom.Detach(target)
		line.AppendChild(target)
		return
	}
	if dom.Is(block, "li") && block.Parent != nil && dom.Is(block.Parent, "ul", "ol") {
		block = block.Parent
	}

	if isEmptyWithout(block, target) {
		block.Parent.InsertBefore(line, block)
		dom.Detach(target)
		line.AppendChild(target)
		dom.Detach(block)
		return
	}

	right := splitAfter(block, target)
	dom.RemoveClass(block, classImageLine)
	dom.RemoveClass(right, classImageLine)
	from := target.Parent
	dom.Detach(target)
	line.AppendChild(target)
	pruneEmpty(from, block)

	dom.InsertAfter(block, line)
	if !isEmptyWithout(right, nil) {
		continueNumbering(block, right)
		dom.InsertAfter(line, right)
	}
	if isEmptyWithout(block, nil) {
		dom.Detach(block)
	}
}

// splitAfter moves everything following target inside block into a shallow
// copy of block, rebuilding the intermediate ancestors, and returns it.
// Rebuilt ancestors left with nothing to show are not carried over.
func splitAfter(block, target *html.Node) *html.Node {
	right := dom.ShallowClone(block)
	var carry *html.Node
	for n := target; n != block; n = n.Parent {
		p := n.Parent
		holder := right
		if p != block {
			holder = dom.ShallowClone(p)
		}
		if carry != nil && !isEmptyWithout(carry, nil) {
			holder.AppendChild(carry)
		}
		for sib := n.NextSibling; sib != nil; {
			next := sib.NextSibling
			p.RemoveChild(sib)
			holder.AppendChild(sib)
			sib = next
		}
		carry = holder
	}
	return right
}

// pruneEmpty removes n and its ancestors below block while they have
// nothing left to show.
func pruneEmpty(n, block *html.Node) {
	for n != nil && n != block && n.Parent != nil {
		if !isEmptyWithout(n, nil) {
			return
		}
		p := n.Parent
		dom.Detach(n)
		n = p
	}
}

// continueNumbering makes the right half of a split ordered list start
// after the last item kept on the left.
func continueNumbering(left, right *html.Node) {
	if !dom.Is(left, "ol") || !dom.Is(right, "ol") {
		return
	}
	start := 1
	if v, err := strconv.Atoi(dom.Attr(left, "start")); err == nil {
		start = v
	}
	for c := left.FirstChild; c != nil; c = c.NextSibling {
		if dom.Is(c, "li") {
			start++
		}
	}
	if start > 1 {
		dom.SetAttr(right, "start", strconv.Itoa(start))
	} else {
		dom.RemoveAttr(right, "start")
	}
}

func topLevel(root, n *html.Node) *html.Node {
	for n.Parent != nil && n.Parent != root {
		n = n.Parent
	}
	return n
}

func onlyChild(p, c *html.Node) bool {
	for s := p.FirstChild; s != nil; s = s.NextSibling {
		if s == c {
			continue
		}
		if s.Type == html.TextNode && strings.TrimSpace(s.Data) == "" {
			continue
		}
		return false
	}
	return true
}

var zeroWidth = strings.NewReplacer("\u200b", "", "\ufeff", "", "\u00a0", " ")

// isEmptyWithout reports whether n has no visible text and no image other
// than skip.
func isEmptyWithout(n, skip *html.Node) bool {
	empty := true
	dom.Walk(n, func(c *html.Node) bool {
		if c == skip {
			return false
		}
		switch {
		case c.Type == html.TextNode && strings.TrimSpace(zeroWidth.Replace(c.Data)) != "":
			empty = false
		case dom.Is(c, "img") || dom.Classify(c) == dom.KindMath:
			empty = false
		}
		return empty
	})
	return empty
}

// liftImageLinesOutOfHeadings moves image lines nested in headings to just
// after the heading.
func (s *Surface) liftImageLinesOutOfHeadings() {
	for _, line := range dom.FindAll(s.root, isImageLine) {
		h := dom.Closest(line.Parent, s.root, func(n *html.Node) bool { return dom.Classify(n) == dom.KindHeading })
		if h == nil {
			continue
		}
		dom.InsertAfter(h, line)
	}
}
