package speech

import (
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var imageAttrsRe = regexp.MustCompile(`(!\[[^\]]*\]\([^)]*\))\{[^}]*\}`)

// ProjectMarkdown returns the plain-text projection of a markdown document:
// markup and images are dropped, blocks end with a newline.
func ProjectMarkdown(md string) string {
	src := []byte(imageAttrsRe.ReplaceAllString(md, "$1"))
	doc := goldmark.DefaultParser().Parse(text.NewReader(src))

	var b strings.Builder
	newline := func() {
		if s := b.String(); s != "" && !strings.HasSuffix(s, "\n") {
			b.WriteByte('\n')
		}
	}
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		switch n := n.(type) {
		case *ast.Image:
			return ast.WalkSkipChildren, nil
		case *ast.Text:
			if entering {
				b.Write(n.Segment.Value(src))
				if n.SoftLineBreak() || n.HardLineBreak() {
					b.WriteByte('\n')
				}
			}
		case *ast.String:
			if entering {
				b.Write(n.Value)
			}
		default:
			if n.Type() == ast.TypeBlock && n.Kind() != ast.KindDocument {
				if entering && n.Kind() == ast.KindListItem {
					newline()
				}
				if !entering {
					newline()
				}
			}
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimRight(b.String(), "\n")
}
