// Package parser extracts frontmatter, headings and image references from
// markdown documents in the editor dialect.
package parser

import (
	"bytes"
	"regexp"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/starford/dysedit/internal/models"
)

var (
	imageRe   = regexp.MustCompile(`!\[([^\]]*)\]\(([^)\s]+)\)(?:\{([^}]*)\})?`)
	imageIDRe = regexp.MustCompile(`(?:^|\s)id=(\S+)`)
	headingRe = regexp.MustCompile(`^(#{1,6})\s+(.+?)\s*$`)
)

// maxTitleRunes bounds a title derived from body text.
const maxTitleRunes = 80

// Heading is one heading line of the document outline.
type Heading struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
}

// Result holds the output of parsing a markdown file.
type Result struct {
	Frontmatter map[string]interface{}
	Body        string
	Images      []models.ImageRef
	Headings    []Heading
	Title       string
}

// Parse extracts frontmatter, body, headings and image references from raw
// markdown bytes.
func Parse(data []byte) (*Result, error) {
	fm, body, err := splitFrontmatter(data)
	if err != nil {
		return nil, err
	}

	headings := extractHeadings(body)
	return &Result{
		Frontmatter: fm,
		Body:        body,
		Images:      extractImages(body),
		Headings:    headings,
		Title:       deriveTitle(fm, headings, body),
	}, nil
}

// splitFrontmatter separates YAML frontmatter (between leading --- delimiters)
// from the markdown body. If no frontmatter is found the entire content is body.
func splitFrontmatter(data []byte) (map[string]interface{}, string, error) {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")

	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, string(data), nil
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return nil, string(data), nil
	}

	yamlBlock := rest[:idx]
	afterDelim := rest[idx+1+len(delim):]
	body := strings.TrimLeft(string(afterDelim), "\n\r")

	var fm map[string]interface{}
	if err := yaml.Unmarshal(yamlBlock, &fm); err != nil {
		// Invalid YAML: the whole file is body.
		return nil, string(data), nil
	}

	return fm, body, nil
}

// extractImages returns image references in document order. The id comes
// from the {…} attribute block when present.
func extractImages(body string) []models.ImageRef {
	var out []models.ImageRef
	for _, m := range imageRe.FindAllStringSubmatch(body, -1) {
		ref := models.ImageRef{Alt: m[1], Src: m[2]}
		if id := imageIDRe.FindStringSubmatch(m[3]); id != nil {
			ref.ID = id[1]
		}
		out = append(out, ref)
	}
	return out
}

func extractHeadings(body string) []Heading {
	var out []Heading
	for _, line := range strings.Split(body, "\n") {
		m := headingRe.FindStringSubmatch(strings.TrimRight(line, "\r"))
		if m == nil {
			continue
		}
		out = append(out, Heading{Level: len(m[1]), Text: m[2]})
	}
	return out
}

// deriveTitle returns the frontmatter "title" if present, otherwise the first
// heading, otherwise the first non-empty line.
func deriveTitle(fm map[string]interface{}, headings []Heading, body string) string {
	if fm != nil {
		if t, ok := fm["title"]; ok {
			if s, ok := t.(string); ok && s != "" {
				return s
			}
		}
	}
	if len(headings) > 0 {
		return headings[0].Text
	}
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(imageRe.ReplaceAllString(line, ""))
		if trimmed == "" {
			continue
		}
		if utf8.RuneCountInString(trimmed) > maxTitleRunes {
			trimmed = string([]rune(trimmed)[:maxTitleRunes])
		}
		return trimmed
	}
	return ""
}
