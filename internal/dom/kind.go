package dom

import "golang.org/x/net/html"

// Kind is the closed set of node variants the editor distinguishes.
type Kind int

const (
	KindOther Kind = iota
	KindText
	KindBold
	KindItalic
	KindHeading
	KindList
	KindListItem
	KindColor
	KindMath
	KindImage
	KindBreak
	KindBlock
)

// Classify maps n onto its Kind.
func Classify(n *html.Node) Kind {
	if n == nil {
		return KindOther
	}
	if n.Type == html.TextNode {
		return KindText
	}
	if n.Type != html.ElementNode {
		return KindOther
	}
	switch n.Data {
	case "strong", "b":
		return KindBold
	case "em", "i":
		return KindItalic
	case "h1", "h2", "h3", "h4", "h5", "h6":
		return KindHeading
	case "ul", "ol":
		return KindList
	case "li":
		return KindListItem
	case "img":
		return KindImage
	case "br":
		return KindBreak
	}
	if HasClass(n, "math") {
		return KindMath
	}
	if (n.Data == "span" || n.Data == "font") && ColorOf(n) != "" {
		return KindColor
	}
	if IsBlock(n) {
		return KindBlock
	}
	return KindOther
}

// HeadingLevel returns 1..6 for heading elements and 0 otherwise.
func HeadingLevel(n *html.Node) int {
	if Classify(n) != KindHeading {
		return 0
	}
	return int(n.Data[1] - '0')
}

// IsLowerAlpha reports whether list element n renders lowercase letters.
func IsLowerAlpha(n *html.Node) bool {
	if !Is(n, "ol") {
		return false
	}
	if Attr(n, "type") == "a" {
		return true
	}
	return StyleValue(n, "list-style-type") == "lower-alpha"
}
