package convert

import (
	"fmt"
	"html"
	"regexp"
	"strconv"
	"strings"
)

const (
	islandOpen  = '\uE000'
	islandClose = '\uE001'
)

var (
	imageRe      = regexp.MustCompile(`^!\[([^\]]*)\]\(([^)\s]*)\)(?:\{([^}]*)\})?`)
	imgWidthRe   = regexp.MustCompile(`(?:^|\s)width=([\w%.]+)`)
	imgHeightRe  = regexp.MustCompile(`(?:^|\s)height=([\w%.]+)`)
	imgIDRe      = regexp.MustCompile(`(?:^|\s)id=([A-Za-z0-9-]+)`)
	spanOpenRe   = regexp.MustCompile(`(?i)^<span\b[^>]*>`)
	islandMarkRe = regexp.MustCompile("\uE000(\\d+)\uE001")
	textEscaper  = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
)

// renderInline converts one line of dialect Markdown into inline HTML.
func renderInline(s string) string {
	s, islands := extractIslands(s)
	out := renderSpans(s)
	if len(islands) == 0 {
		return out
	}
	return islandMarkRe.ReplaceAllStringFunc(out, func(m string) string {
		i, _ := strconv.Atoi(m[len(string(islandOpen)) : len(m)-len(string(islandClose))])
		if i < len(islands) {
			return islands[i]
		}
		return ""
	})
}

// extractIslands replaces colored span islands with placeholders so their
// markup survives escaping verbatim.
func extractIslands(s string) (string, []string) {
	var (
		b       strings.Builder
		islands []string
	)
	for i := 0; i < len(s); {
		if s[i] == '<' {
			if end := islandEnd(s[i:]); end > 0 {
				fmt.Fprintf(&b, "%c%d%c", islandOpen, len(islands), islandClose)
				islands = append(islands, s[i:i+end])
				i += end
				continue
			}
		}
		b.WriteByte(s[i])
		i++
	}
	return b.String(), islands
}

// islandEnd returns the length of a balanced colored <span>…</span> at the
// start of s, or 0.
func islandEnd(s string) int {
	open := spanOpenRe.FindString(s)
	if open == "" || !strings.Contains(strings.ToLower(open), "color:") {
		return 0
	}
	depth := 0
	lower := strings.ToLower(s)
	for i := 0; i < len(lower); {
		switch {
		case strings.HasPrefix(lower[i:], "<span"):
			depth++
			i += len("<span")
		case strings.HasPrefix(lower[i:], "</span>"):
			depth--
			i += len("</span>")
			if depth == 0 {
				return i
			}
		default:
			i++
		}
	}
	return 0
}

func renderSpans(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); {
		switch {
		case strings.HasPrefix(s[i:], "!["):
			if m := imageRe.FindStringSubmatch(s[i:]); m != nil {
				b.WriteString(imageHTML(m[1], m[2], m[3]))
				i += len(m[0])
				continue
			}
		case strings.HasPrefix(s[i:], "**"):
			if end := strongClose(s, i+2); end > i+2 {
				b.WriteString("<strong>" + renderSpans(s[i+2:end]) + "</strong>")
				i = end + 2
				continue
			}
			b.WriteString("**")
			i += 2
			continue
		case s[i] == '*':
			if end := emClose(s, i+1); end > i+1 {
				b.WriteString("<em>" + renderSpans(s[i+1:end]) + "</em>")
				i = end + 1
				continue
			}
		case s[i] == '$':
			if end := mathClose(s, i+1); end > i+1 {
				latex := html.EscapeString(s[i+1 : end])
				fmt.Fprintf(&b, `<span class="math" data-latex="%s">$%s$</span>`, latex, latex)
				i = end + 1
				continue
			}
		}
		b.WriteString(textEscaper.Replace(s[i : i+1]))
		i++
	}
	return b.String()
}

// starRun returns the number of consecutive '*' starting at i.
func starRun(s string, i int) int {
	n := 0
	for i+n < len(s) && s[i+n] == '*' {
		n++
	}
	return n
}

// strongClose finds the "**" closing a strong span opened before from,
// stepping over single-star emphasis nested inside it.
func strongClose(s string, from int) int {
	emOpen := false
	for i := from; i < len(s); i++ {
		if s[i] != '*' {
			continue
		}
		run := starRun(s, i)
		if emOpen {
			emOpen = false
			if run-1 >= 2 {
				return i + 1
			}
			i += run - 1
			continue
		}
		if run >= 2 {
			return i
		}
		if i+1 < len(s) && s[i+1] != ' ' {
			emOpen = true
		}
	}
	return -1
}

// emClose finds the single '*' closing an emphasis span, stepping over
// strong spans nested inside it.
func emClose(s string, from int) int {
	if from >= len(s) || s[from] == ' ' || s[from] == '*' {
		return -1
	}
	for i := from; i < len(s); i++ {
		if s[i] != '*' {
			continue
		}
		if run := starRun(s, i); run >= 2 {
			end := strongClose(s, i+2)
			if end < 0 {
				return -1
			}
			i = end + 1
			continue
		}
		if s[i-1] != ' ' {
			return i
		}
	}
	return -1
}

// mathClose finds the closing '$' of inline math. The opening '$' must be
// followed by a non-space, the closing one preceded by a non-space and not
// followed by a digit.
func mathClose(s string, from int) int {
	if from >= len(s) || s[from] == ' ' || s[from] == '$' {
		return -1
	}
	for i := from; i < len(s); i++ {
		if s[i] != '$' {
			continue
		}
		if s[i-1] == ' ' {
			continue
		}
		if i+1 < len(s) && s[i+1] >= '0' && s[i+1] <= '9' {
			continue
		}
		return i
	}
	return -1
}

func imageHTML(alt, src, attrs string) string {
	var b strings.Builder
	fmt.Fprintf(&b, `<img src="%s" alt="%s"`, html.EscapeString(src), html.EscapeString(alt))
	if m := imgWidthRe.FindStringSubmatch(attrs); m != nil {
		fmt.Fprintf(&b, ` width="%s"`, m[1])
	}
	if m := imgHeightRe.FindStringSubmatch(attrs); m != nil {
		fmt.Fprintf(&b, ` height="%s"`, m[1])
	}
	if m := imgIDRe.FindStringSubmatch(attrs); m != nil {
		fmt.Fprintf(&b, ` data-image-id="%s"`, m[1])
	}
	b.WriteString("/>")
	return b.String()
}
