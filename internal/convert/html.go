package convert

import (
	"fmt"
	"html"
	"regexp"
	"strconv"
	"strings"
)

type lineKind int

const (
	lineText lineKind = iota
	lineBlank
	lineHeading
	lineItem
	lineImage
	lineMath
)

// ListKind identifies the marker family of a list.
type ListKind string

const (
	ListNone   ListKind = ""
	ListBullet ListKind = "bullet"
	ListNumber ListKind = "number"
	ListLetter ListKind = "letter"
)

var (
	headingRe   = regexp.MustCompile(`^(#{1,6})\s+(.*)$`)
	bulletRe    = regexp.MustCompile(`^\s*[-*]\s+(.*)$`)
	numberRe    = regexp.MustCompile(`^\s*(\d+)\.\s+(.*)$`)
	letterRe    = regexp.MustCompile(`^\s*([a-z])\.\s+(.*)$`)
	imageLineRe = regexp.MustCompile(`^!\[[^\]]*\]\([^)\s]*\)(\{[^}]*\})?$`)
	mathLineRe  = regexp.MustCompile(`^\$\$(.+)\$\$$`)

	// longLetterRe matches markers past z; they only continue a letter list.
	longLetterRe = regexp.MustCompile(`^\s*([a-z]{2,3})\.\s+(.*)$`)
)

// line is one classified Markdown line. Every line is tagged with its list
// type before any grouping happens, so adjacent lists of different types
// never merge.
type line struct {
	kind  lineKind
	level int
	list  ListKind
	value int
	text  string
}

func classify(raw string) line {
	s := strings.TrimRight(raw, " \t")
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return line{kind: lineBlank}
	}
	if rest, ok := strings.CutPrefix(trimmed, `\`); ok && needsEscape(rest) {
		return line{kind: lineText, text: rest}
	}
	if m := headingRe.FindStringSubmatch(s); m != nil {
		return line{kind: lineHeading, level: len(m[1]), text: m[2]}
	}
	if m := mathLineRe.FindStringSubmatch(trimmed); m != nil {
		return line{kind: lineMath, text: m[1]}
	}
	if imageLineRe.MatchString(trimmed) {
		return line{kind: lineImage, text: trimmed}
	}
	if m := bulletRe.FindStringSubmatch(s); m != nil {
		return line{kind: lineItem, list: ListBullet, text: m[1]}
	}
	if m := numberRe.FindStringSubmatch(s); m != nil {
		n, _ := strconv.Atoi(m[1])
		return line{kind: lineItem, list: ListNumber, value: n, text: m[2]}
	}
	if m := letterRe.FindStringSubmatch(s); m != nil {
		return line{kind: lineItem, list: ListLetter, value: int(m[1][0] - 'a'), text: m[2]}
	}
	return line{kind: lineText, text: trimmed}
}

// ToHTML converts dialect Markdown into the editor's HTML subset.
func ToHTML(md string) string {
	md = strings.ReplaceAll(md, "\r\n", "\n")

	var (
		out  strings.Builder
		para []string
		list []line
	)
	flushPara := func() {
		if len(para) == 0 {
			return
		}
		parts := make([]string, len(para))
		for i, p := range para {
			parts[i] = renderInline(p)
		}
		out.WriteString("<p>" + strings.Join(parts, "<br>") + "</p>")
		para = nil
	}
	flushList := func() {
		if len(list) == 0 {
			return
		}
		out.WriteString(renderList(list))
		list = nil
	}

	for _, raw := range strings.Split(md, "\n") {
		l := classify(raw)
		if l.kind == lineText && len(list) > 0 && list[0].list == ListLetter {
			if m := longLetterRe.FindStringSubmatch(raw); m != nil {
				l = line{kind: lineItem, list: ListLetter, value: letterIndex(m[1]), text: m[2]}
			}
		}
		switch l.kind {
		case lineBlank:
			flushPara()
			flushList()
		case lineHeading:
			flushPara()
			flushList()
			fmt.Fprintf(&out, "<h%d>%s</h%d>", l.level, renderInline(l.text), l.level)
		case lineMath:
			flushPara()
			flushList()
			latex := html.EscapeString(l.text)
			fmt.Fprintf(&out, `<div class="math math-block" data-latex="%s">$$%s$$</div>`, latex, latex)
		case lineImage:
			flushPara()
			flushList()
			out.WriteString(`<p class="image-line">` + renderInline(l.text) + "</p>")
		case lineItem:
			flushPara()
			if len(list) > 0 && list[0].list != l.list {
				flushList()
			}
			list = append(list, l)
		default:
			flushList()
			para = append(para, l.text)
		}
	}
	flushPara()
	flushList()
	return out.String()
}

// letterIndex is the inverse of Letter.
func letterIndex(s string) int {
	v := 0
	for _, c := range s {
		v = v*26 + int(c-'a'+1)
	}
	return v - 1
}

func renderList(items []line) string {
	var b strings.Builder
	first := items[0]
	switch first.list {
	case ListBullet:
		b.WriteString("<ul>")
	case ListNumber:
		if first.value > 1 {
			fmt.Fprintf(&b, `<ol start="%d">`, first.value)
		} else {
			b.WriteString("<ol>")
		}
	case ListLetter:
		if first.value > 0 {
			fmt.Fprintf(&b, `<ol style="list-style-type: lower-alpha;" start="%d">`, first.value+1)
		} else {
			b.WriteString(`<ol style="list-style-type: lower-alpha;">`)
		}
	}
	for _, it := range items {
		switch it.list {
		case ListBullet:
			b.WriteString(`<li data-type="bullet">`)
		case ListNumber:
			fmt.Fprintf(&b, `<li data-type="number" data-number="%d">`, it.value)
		case ListLetter:
			fmt.Fprintf(&b, `<li data-type="letter" data-letter="%s">`, Letter(it.value))
		}
		b.WriteString(renderInline(it.text) + "</li>")
	}
	if first.list == ListBullet {
		b.WriteString("</ul>")
	} else {
		b.WriteString("</ol>")
	}
	return b.String()
}
