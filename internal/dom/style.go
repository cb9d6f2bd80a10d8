package dom

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// StyleValue returns the value of a CSS property from the inline style of n.
func StyleValue(n *html.Node, prop string) string {
	for _, decl := range strings.Split(Attr(n, "style"), ";") {
		k, v, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(k), prop) {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// SetStyle sets a CSS property in the inline style of n, keeping other
// declarations in their original order.
func SetStyle(n *html.Node, prop, val string) {
	var decls []string
	found := false
	for _, decl := range strings.Split(Attr(n, "style"), ";") {
		k, _, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(k), prop) {
			decls = append(decls, prop+": "+val)
			found = true
			continue
		}
		decls = append(decls, strings.TrimSpace(decl))
	}
	if !found {
		decls = append(decls, prop+": "+val)
	}
	SetAttr(n, "style", strings.Join(decls, "; ")+";")
}

var rgbRe = regexp.MustCompile(`rgba?\(\s*(\d{1,3})\s*,\s*(\d{1,3})\s*,\s*(\d{1,3})\s*(?:,\s*[\d.]+\s*)?\)`)

// NormalizeColors rewrites every rgb(r, g, b) occurrence in s as #rrggbb.
func NormalizeColors(s string) string {
	return rgbRe.ReplaceAllStringFunc(s, func(m string) string {
		parts := rgbRe.FindStringSubmatch(m)
		var hex strings.Builder
		hex.WriteByte('#')
		for _, p := range parts[1:4] {
			v, _ := strconv.Atoi(p)
			if v > 255 {
				v = 255
			}
			fmt.Fprintf(&hex, "%02x", v)
		}
		return hex.String()
	})
}

// ColorOf returns the text color carried by n, either from a color style or
// from a legacy font color attribute, normalized to hex.
func ColorOf(n *html.Node) string {
	if n == nil || n.Type != html.ElementNode {
		return ""
	}
	if c := StyleValue(n, "color"); c != "" {
		return strings.ToLower(NormalizeColors(c))
	}
	if n.Data == "font" {
		return strings.ToLower(NormalizeColors(Attr(n, "color")))
	}
	return ""
}
