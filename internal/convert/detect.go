package convert

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/starford/dysedit/internal/dom"
)

var (
	markdownPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?m)^#{1,6}\s+`),
		regexp.MustCompile(`\*\*[^*]+\*\*`),
		regexp.MustCompile(`\*[^*]+\*`),
		regexp.MustCompile(`(?m)^[-*]\s+`),
		regexp.MustCompile(`(?m)^\d+\.\s+`),
		regexp.MustCompile(`(?m)^[a-z]\.\s+`),
		regexp.MustCompile(`!\[.*?\]\([^)]+\)`),
	}
	leadingTagRe = regexp.MustCompile(`(?i)^<(p|div|h[1-6]|ul|ol|li|span|strong|em|b|i|br|img|blockquote)\b`)

	boldSpanRe   = regexp.MustCompile(`\*\*[^*]+\*\*`)
	italicSpanRe = regexp.MustCompile(`\*[^*\s](?:[^*]*[^*\s])?\*`)
	bulletStarRe = regexp.MustCompile(`(?m)^[ \t]*\* `)
	keptRe       = regexp.MustCompile("\uE002(\\d+)\uE003")
)

// LooksLikeMarkdown reports whether text already carries Markdown syntax.
// Content starting with an HTML tag is never Markdown.
func LooksLikeMarkdown(text string) bool {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" || leadingTagRe.MatchString(trimmed) {
		return false
	}
	for _, re := range markdownPatterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// bookkeepingAttrs are list markers added by ToHTML that have no meaning
// outside the live surface.
var bookkeepingAttrs = []string{"data-type", "data-number", "data-letter"}

// StripBookkeeping removes list bookkeeping attributes from s.
func StripBookkeeping(s string) string {
	root := dom.Parse(s)
	dom.Walk(root, func(n *html.Node) bool {
		if n.Type == html.ElementNode {
			for _, a := range bookkeepingAttrs {
				dom.RemoveAttr(n, a)
			}
		}
		return true
	})
	return dom.Inner(root)
}

// CleanAsterisks drops stray '*' characters left behind by external writers
// while keeping bold, italic and bullet markers, then collapses runs of blank
// lines and trims the result.
func CleanAsterisks(md string) string {
	if md == "" {
		return ""
	}
	var kept []string
	keep := func(m string) string {
		kept = append(kept, m)
		return "\uE002" + strconv.Itoa(len(kept)-1) + "\uE003"
	}
	s := boldSpanRe.ReplaceAllStringFunc(md, keep)
	s = italicSpanRe.ReplaceAllStringFunc(s, keep)
	s = bulletStarRe.ReplaceAllStringFunc(s, keep)
	s = strings.ReplaceAll(s, "*", "")
	s = blankRunRe.ReplaceAllString(s, "\n\n")
	s = strings.TrimSpace(s)
	return keptRe.ReplaceAllStringFunc(s, func(m string) string {
		sub := keptRe.FindStringSubmatch(m)
		i, _ := strconv.Atoi(sub[1])
		if i < len(kept) {
			return kept[i]
		}
		return ""
	})
}
