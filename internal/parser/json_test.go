package parser

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestJSONParser_ObjectPrettyPrinted(t *testing.T) {
	p := &JSONParser{}
	doc, err := p.Parse(context.Background(), []byte(`{"b":1,"a":[true,null]}`), "d.json", Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(doc.Text, "\"a\": [\n") {
		t.Errorf("expected indented array, got %q", doc.Text)
	}
	if doc.Meta.Elements != 2 {
		t.Errorf("expected 2 top-level keys, got %d", doc.Meta.Elements)
	}
	if doc.Meta.TopLevelArr {
		t.Error("expected TopLevelArr=false for object")
	}
	if !strings.HasPrefix(doc.HTML, "<pre>") || !strings.HasSuffix(doc.HTML, "</pre>") {
		t.Errorf("expected preformatted html, got %q", doc.HTML)
	}
}

func TestJSONParser_TopLevelArray(t *testing.T) {
	p := &JSONParser{}
	doc, err := p.Parse(context.Background(), []byte(`[1,2,3]`), "arr.json", Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !doc.Meta.TopLevelArr {
		t.Error("expected TopLevelArr=true")
	}
	if doc.Meta.Elements != 3 {
		t.Errorf("expected 3 elements, got %d", doc.Meta.Elements)
	}
}

func TestJSONParser_Null(t *testing.T) {
	p := &JSONParser{}
	doc, err := p.Parse(context.Background(), []byte(`null`), "n.json", Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Meta.Warnings) == 0 {
		t.Error("expected a warning for null document")
	}
}

func TestJSONParser_Malformed(t *testing.T) {
	p := &JSONParser{}
	_, err := p.Parse(context.Background(), []byte(`{"open":`), "bad.json", Options{})
	if err == nil {
		t.Fatal("expected error for truncated json")
	}
	var pe *ParseError
	if !errors.As(err, &pe) || pe.Kind != KindMalformed {
		t.Errorf("expected malformed ParseError, got %v", err)
	}
}
