package parser

import (
	"testing"
)

func TestParse_FrontmatterAndBody(t *testing.T) {
	input := []byte("---\ntitle: Hello\n---\n# Greeting\nBody text.\n")
	r, err := Parse(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Title != "Hello" {
		t.Errorf("title = %q, want %q", r.Title, "Hello")
	}
	if r.Body != "# Greeting\nBody text.\n" {
		t.Errorf("body = %q", r.Body)
	}
}

func TestParse_NoFrontmatter(t *testing.T) {
	input := []byte("## Just a heading\nSome text.\n")
	r, err := Parse(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Frontmatter != nil {
		t.Errorf("expected nil frontmatter, got %v", r.Frontmatter)
	}
	if r.Title != "Just a heading" {
		t.Errorf("title = %q, want %q", r.Title, "Just a heading")
	}
}

func TestParse_InvalidYAMLFallback(t *testing.T) {
	input := []byte("---\n: invalid: yaml: {{{\n---\nBody\n")
	r, err := Parse(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Frontmatter != nil {
		t.Errorf("expected nil frontmatter on invalid YAML")
	}
}

func TestExtractImages(t *testing.T) {
	body := "Intro\n\n![cat](./images/cat.png){width=120px height=80px id=abc-1}\n\n![dog](./images/dog.png)"
	imgs := extractImages(body)
	if len(imgs) != 2 {
		t.Fatalf("len(imgs) = %d, want 2", len(imgs))
	}
	if imgs[0].Alt != "cat" || imgs[0].Src != "./images/cat.png" || imgs[0].ID != "abc-1" {
		t.Errorf("imgs[0] = %+v", imgs[0])
	}
	if imgs[1].ID != "" {
		t.Errorf("imgs[1].ID = %q, want empty", imgs[1].ID)
	}
}

func TestExtractHeadings(t *testing.T) {
	hs := extractHeadings("# One\ntext\n### Three  \n####### not a heading")
	if len(hs) != 2 {
		t.Fatalf("headings = %v", hs)
	}
	if hs[1].Level != 3 || hs[1].Text != "Three" {
		t.Errorf("hs[1] = %+v", hs[1])
	}
}

func TestDeriveTitle_FrontmatterOverHeading(t *testing.T) {
	fm := map[string]any{"title": "FM Title"}
	title := deriveTitle(fm, []Heading{{Level: 1, Text: "H1 Title"}}, "# H1 Title\ntext")
	if title != "FM Title" {
		t.Errorf("title = %q, want %q", title, "FM Title")
	}
}

func TestDeriveTitle_FirstLineFallback(t *testing.T) {
	title := deriveTitle(nil, nil, "\n![x](y.png)\nsome text\nmore")
	if title != "some text" {
		t.Errorf("title = %q, want %q", title, "some text")
	}
}
