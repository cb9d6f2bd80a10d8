// Package convert translates between the editor's HTML subset and its
// Markdown dialect. Conversions never fail; unsupported markup degrades to
// its text.
package convert

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/starford/dysedit/internal/dom"
)

var (
	spaceRunRe  = regexp.MustCompile(`[ \t]+`)
	blankRunRe  = regexp.MustCompile(`\n{3,}`)
	attrValueRe = regexp.MustCompile(`^[\w%.-]+$`)
)

// ToMarkdown converts canonical HTML into the Markdown dialect.
func ToMarkdown(s string) string {
	root := dom.Parse(s)
	normalize(root)

	var b strings.Builder
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		writeBlock(&b, c)
	}
	return tidy(b.String())
}

// normalize wraps runs of bare text and inline nodes sitting directly under
// n in <div> elements so every child of n is a block.
func normalize(n *html.Node) {
	var run []*html.Node
	flush := func(before *html.Node) {
		if len(run) == 0 {
			return
		}
		blank := true
		for _, r := range run {
			if r.Type != html.TextNode || strings.TrimSpace(r.Data) != "" {
				blank = false
				break
			}
		}
		if blank {
			for _, r := range run {
				n.RemoveChild(r)
			}
			run = nil
			return
		}
		div := dom.NewElement("div")
		n.InsertBefore(div, before)
		for _, r := range run {
			n.RemoveChild(r)
			div.AppendChild(r)
		}
		run = nil
	}
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		switch {
		case c.Type == html.CommentNode:
			n.RemoveChild(c)
		case dom.IsBlock(c) || isMathBlock(c):
			flush(c)
		default:
			run = append(run, c)
		}
		c = next
	}
	flush(nil)
}

func hasBlockChild(n *html.Node) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if dom.IsBlock(c) || isMathBlock(c) {
			return true
		}
	}
	return false
}

func isMathBlock(n *html.Node) bool {
	return dom.Classify(n) == dom.KindMath && (dom.HasClass(n, "math-block") || n.Data == "div")
}

func writeBlock(b *strings.Builder, n *html.Node) {
	if isMathBlock(n) {
		b.WriteString("$$" + dom.Attr(n, "data-latex") + "$$\n")
		return
	}
	switch dom.Classify(n) {
	case dom.KindHeading:
		if text := strings.TrimSpace(inline(n)); text != "" {
			b.WriteString(strings.Repeat("#", dom.HeadingLevel(n)) + " " + strings.ReplaceAll(text, "\n", " ") + "\n")
		}
	case dom.KindList:
		writeList(b, n)
	case dom.KindListItem:
		b.WriteString("- " + strings.TrimSpace(inline(n)) + "\n")
	default:
		if n.Type != html.ElementNode {
			return
		}
		if hasBlockChild(n) {
			normalize(n)
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				writeBlock(b, c)
			}
			return
		}
		if n.Data == "p" {
			b.WriteString(escapeLines(inline(n)) + "\n\n")
			return
		}
		b.WriteString(escapeLines(inline(n)) + "\n")
	}
}

func writeList(b *strings.Builder, n *html.Node) {
	alpha := dom.IsLowerAlpha(n)
	ordered := dom.Is(n, "ol")
	start := 1
	if v, err := strconv.Atoi(dom.Attr(n, "start")); err == nil {
		start = v
	}
	i := 0
	for li := n.FirstChild; li != nil; li = li.NextSibling {
		if !dom.Is(li, "li") {
			continue
		}
		var marker string
		switch {
		case alpha:
			marker = Letter(start-1+i) + ". "
		case ordered:
			marker = strconv.Itoa(start+i) + ". "
		default:
			marker = "- "
		}
		text := strings.ReplaceAll(strings.TrimSpace(inline(li)), "\n", " ")
		b.WriteString(marker + text + "\n")
		for c := li.FirstChild; c != nil; c = c.NextSibling {
			if dom.Classify(c) == dom.KindList {
				writeList(b, c)
			}
		}
		i++
	}
}

// escapeLines prefixes a backslash to paragraph lines that would otherwise
// read back as a heading, list item or math block.
func escapeLines(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		if t := strings.TrimSpace(spaceRunRe.ReplaceAllString(l, " ")); needsEscape(t) {
			lines[i] = `\` + t
		}
	}
	return strings.Join(lines, "\n")
}

func needsEscape(t string) bool {
	if t == "" {
		return false
	}
	switch l := classify(t); l.kind {
	case lineText:
		return l.text != t || longLetterRe.MatchString(t)
	case lineImage:
		return false
	}
	return true
}

// Letter returns the lowercase list marker for a zero-based index:
// a..z, then aa, ab and so on.
func Letter(i int) string {
	if i < 0 {
		i = 0
	}
	var out []byte
	for {
		out = append([]byte{byte('a' + i%26)}, out...)
		i = i/26 - 1
		if i < 0 {
			break
		}
	}
	return string(out)
}

// inline renders the inline content of n. Nested lists are skipped; the
// list writer emits them separately.
func inline(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeInline(&b, c)
	}
	return b.String()
}

func writeInline(b *strings.Builder, c *html.Node) {
	switch c.Type {
	case html.TextNode:
		b.WriteString(flattenText(c.Data))
		return
	case html.ElementNode:
	default:
		return
	}
	switch dom.Classify(c) {
	case dom.KindBold:
		b.WriteString(wrapMarker(inline(c), "**"))
	case dom.KindItalic:
		b.WriteString(wrapMarker(inline(c), "*"))
	case dom.KindBreak:
		b.WriteString("\n")
	case dom.KindImage:
		b.WriteString(imageMarkdown(c))
	case dom.KindColor:
		b.WriteString(colorIsland(c))
	case dom.KindMath:
		b.WriteString("$" + dom.Attr(c, "data-latex") + "$")
	case dom.KindList:
	default:
		if c.Data == "script" || c.Data == "style" {
			return
		}
		if dom.HasClass(c, "resize-handle") {
			return
		}
		b.WriteString(inline(c))
	}
}

func flattenText(s string) string {
	return strings.NewReplacer("\u00a0", " ", "\n", " ", "\r", "", "\t", " ").Replace(s)
}

// wrapMarker surrounds the non-blank core of s with marker, keeping edge
// whitespace outside so the emphasis stays well-formed.
func wrapMarker(s, marker string) string {
	core := strings.TrimSpace(s)
	if core == "" {
		return s
	}
	lead := s[:strings.Index(s, core)]
	trail := s[len(lead)+len(core):]
	return lead + marker + core + marker + trail
}

func imageMarkdown(n *html.Node) string {
	var attrs []string
	for _, kv := range [][2]string{{"width", "width"}, {"height", "height"}, {"id", "data-image-id"}} {
		v := dom.Attr(n, kv[1])
		if v != "" && attrValueRe.MatchString(v) {
			attrs = append(attrs, kv[0]+"="+v)
		}
	}
	alt := strings.NewReplacer("[", "", "]", "", "\n", " ").Replace(dom.Attr(n, "alt"))
	s := "![" + alt + "](" + dom.Attr(n, "src") + ")"
	if len(attrs) > 0 {
		s += "{" + strings.Join(attrs, " ") + "}"
	}
	return s
}

// colorIsland renders a colored span as raw HTML with normalized colors.
func colorIsland(n *html.Node) string {
	span := dom.Clone(n)
	if span.Data == "font" {
		color := dom.ColorOf(span)
		dom.Rename(span, "span")
		dom.RemoveAttr(span, "color")
		dom.SetStyle(span, "color", color)
	}
	dom.Walk(span, func(c *html.Node) bool {
		switch c.Type {
		case html.TextNode:
			c.Data = flattenText(c.Data)
		case html.ElementNode:
			if style, ok := dom.LookupAttr(c, "style"); ok {
				dom.SetAttr(c, "style", dom.NormalizeColors(style))
			}
		}
		return true
	})
	return dom.Outer(span)
}

func tidy(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(spaceRunRe.ReplaceAllString(l, " "))
	}
	out := strings.Join(lines, "\n")
	out = blankRunRe.ReplaceAllString(out, "\n\n")
	return strings.TrimSpace(out)
}
