package parser

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/dgallion1/docnorm/internal/normdoc"
)

func TestDetectFormat_ExtensionWins(t *testing.T) {
	// The extension is authoritative even when the declared content
	// type disagrees.
	f, err := DetectFormat("report.pdf", "text/plain")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f != normdoc.FormatPDF {
		t.Errorf("expected pdf from extension, got %q", f)
	}
}

func TestDetectFormat_ContentTypeFallback(t *testing.T) {
	tests := []struct {
		filename    string
		contentType string
		want        normdoc.Format
	}{
		{"upload", "application/json", normdoc.FormatJSON},
		{"upload", "text/html; charset=utf-8", normdoc.FormatHTML},
		{"noext", "application/pdf", normdoc.FormatPDF},
		{"NOTES.TXT", "", normdoc.FormatText},
		{"readme.markdown", "", normdoc.FormatMarkdown},
	}
	for _, tt := range tests {
		f, err := DetectFormat(tt.filename, tt.contentType)
		if err != nil {
			t.Fatalf("%s/%s: unexpected error: %v", tt.filename, tt.contentType, err)
		}
		if f != tt.want {
			t.Errorf("%s/%s: expected %q, got %q", tt.filename, tt.contentType, tt.want, f)
		}
	}
}

func TestDetectFormat_Unrecognized(t *testing.T) {
	_, err := DetectFormat("archive.zip", "application/zip")
	if err == nil {
		t.Fatal("expected error for unrecognized format")
	}
	var pe *ParseError
	if !errors.As(err, &pe) || pe.Kind != KindUnsupportedFormat {
		t.Errorf("expected unsupported_format ParseError, got %v", err)
	}
}

func TestIsSupported(t *testing.T) {
	if !IsSupported("doc.md", "") {
		t.Error("expected .md to be supported")
	}
	if IsSupported("movie.mp4", "video/mp4") {
		t.Error("expected .mp4 to be unsupported")
	}
}

func TestParse_DispatchesAndTags(t *testing.T) {
	doc, err := Parse(context.Background(), []byte("hello"), "", "note.txt", Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Meta.Format != normdoc.FormatText {
		t.Errorf("expected text format tag, got %q", doc.Meta.Format)
	}
	if !strings.Contains(doc.HTML, "hello") {
		t.Errorf("expected content in html, got %q", doc.HTML)
	}
}

func TestParse_UnsupportedFormat(t *testing.T) {
	_, err := Parse(context.Background(), []byte("x"), "application/octet-stream", "blob.bin", Options{})
	var pe *ParseError
	if !errors.As(err, &pe) || pe.Kind != KindUnsupportedFormat {
		t.Errorf("expected unsupported_format ParseError, got %v", err)
	}
}

func TestParse_WrapsUntypedErrors(t *testing.T) {
	// A parser failure that is already a ParseError passes through with
	// its kind intact.
	_, err := Parse(context.Background(), []byte(`{bad json`), "", "x.json", Options{})
	if err == nil {
		t.Fatal("expected error")
	}
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ParseError, got %T", err)
	}
	if pe.Kind != KindMalformed {
		t.Errorf("expected malformed kind, got %q", pe.Kind)
	}
	if pe.Format != normdoc.FormatJSON {
		t.Errorf("expected format tag on error, got %q", pe.Format)
	}
}

func TestParseError_Unwrap(t *testing.T) {
	inner := errors.New("inner cause")
	pe := &ParseError{Kind: KindMalformed, Format: normdoc.FormatCSV, Err: inner}
	if !errors.Is(pe, inner) {
		t.Error("expected errors.Is to reach the wrapped cause")
	}
	if !strings.Contains(pe.Error(), "csv") {
		t.Errorf("expected format in message, got %q", pe.Error())
	}
}
