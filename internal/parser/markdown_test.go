package parser

import (
	"context"
	"strings"
	"testing"
)

func TestMarkdownParser_HeadingsAndLists(t *testing.T) {
	input := "# Title\n\nIntro text.\n\n- first\n- second\n"
	p := &MarkdownParser{}
	doc, err := p.Parse(context.Background(), []byte(input), "doc.md", DefaultOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(doc.HTML, "<h1>Title</h1>") {
		t.Errorf("expected h1 in html, got %q", doc.HTML)
	}
	if !strings.Contains(doc.HTML, "<li>first</li>") {
		t.Errorf("expected list items in html, got %q", doc.HTML)
	}
	if !strings.Contains(doc.Text, "Title") || !strings.Contains(doc.Text, "second") {
		t.Errorf("expected text projection to carry content, got %q", doc.Text)
	}
}

func TestMarkdownParser_GFMStrikethrough(t *testing.T) {
	p := &MarkdownParser{}
	doc, err := p.Parse(context.Background(), []byte("~~gone~~ kept"), "gfm.md", DefaultOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(doc.HTML, "<del>gone</del>") {
		t.Errorf("expected GFM strikethrough, got %q", doc.HTML)
	}
}

func TestMarkdownParser_GFMTable(t *testing.T) {
	input := "| a | b |\n|---|---|\n| 1 | 2 |\n"
	p := &MarkdownParser{}
	doc, err := p.Parse(context.Background(), []byte(input), "table.md", DefaultOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(doc.HTML, "<table>") || !strings.Contains(doc.HTML, "<th>a</th>") {
		t.Errorf("expected GFM table rendering, got %q", doc.HTML)
	}
}

func TestMarkdownParser_NilOptionsFallback(t *testing.T) {
	// A zero Options must still render; the parser builds its own
	// goldmark instance.
	p := &MarkdownParser{}
	doc, err := p.Parse(context.Background(), []byte("plain"), "p.md", Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(doc.HTML, "<p>plain</p>") {
		t.Errorf("expected rendered paragraph, got %q", doc.HTML)
	}
}

func TestMarkdownParser_EmptyInput(t *testing.T) {
	p := &MarkdownParser{}
	doc, err := p.Parse(context.Background(), nil, "empty.md", DefaultOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.HTML != "<p></p>" {
		t.Errorf("expected empty paragraph fragment, got %q", doc.HTML)
	}
	if len(doc.Meta.Warnings) == 0 {
		t.Error("expected a warning for empty input")
	}
}
