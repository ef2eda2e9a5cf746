// Package parser normalizes heterogeneous uploaded documents into a
// single representation: plain text for chunking, HTML for review and
// in-place translation, and a registry of extracted assets.
//
// Each parser is stateless; a parse call owns all of its state, so
// parsers may run concurrently across documents without coordination.
package parser

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dgallion1/docnorm/internal/normdoc"
)

// Parser converts raw document bytes into a normalized document.
type Parser interface {
	Parse(ctx context.Context, data []byte, filename string, opts Options) (*normdoc.Document, error)
}

// ErrorKind classifies fatal parse failures.
type ErrorKind string

const (
	// KindUnsupportedFormat means no parser is configured or available
	// for the format. A configuration gap; retrying cannot help.
	KindUnsupportedFormat ErrorKind = "unsupported_format"

	// KindMalformed means the bytes do not conform to the format even
	// after best-effort recovery.
	KindMalformed ErrorKind = "malformed"
)

// ParseError is the typed failure surfaced by the dispatcher. The
// orchestrator decides retry-vs-fail on Kind alone, without looking at
// parser internals.
type ParseError struct {
	Kind   ErrorKind
	Format normdoc.Format
	Err    error
}

func (e *ParseError) Error() string {
	if e.Format != "" {
		return fmt.Sprintf("%s (%s): %v", e.Kind, e.Format, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

func unsupportedf(format normdoc.Format, msg string, args ...any) *ParseError {
	return &ParseError{Kind: KindUnsupportedFormat, Format: format, Err: fmt.Errorf(msg, args...)}
}

func malformedf(format normdoc.Format, msg string, args ...any) *ParseError {
	return &ParseError{Kind: KindMalformed, Format: format, Err: fmt.Errorf(msg, args...)}
}

// extensionFormats maps filename extensions to formats. The extension
// is authoritative; the declared content type is only a fallback.
var extensionFormats = map[string]normdoc.Format{
	".txt":      normdoc.FormatText,
	".text":     normdoc.FormatText,
	".md":       normdoc.FormatMarkdown,
	".markdown": normdoc.FormatMarkdown,
	".csv":      normdoc.FormatCSV,
	".xml":      normdoc.FormatXML,
	".json":     normdoc.FormatJSON,
	".html":     normdoc.FormatHTML,
	".htm":      normdoc.FormatHTML,
	".docx":     normdoc.FormatDOCX,
	".doc":      normdoc.FormatDOC,
	".rtf":      normdoc.FormatRTF,
	".odt":      normdoc.FormatODT,
	".pdf":      normdoc.FormatPDF,
}

var contentTypeFormats = map[string]normdoc.Format{
	"text/plain":       normdoc.FormatText,
	"text/markdown":    normdoc.FormatMarkdown,
	"text/csv":         normdoc.FormatCSV,
	"text/xml":         normdoc.FormatXML,
	"application/xml":  normdoc.FormatXML,
	"application/json": normdoc.FormatJSON,
	"text/html":        normdoc.FormatHTML,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": normdoc.FormatDOCX,
	"application/msword": normdoc.FormatDOC,
	"application/rtf":    normdoc.FormatRTF,
	"text/rtf":           normdoc.FormatRTF,
	"application/vnd.oasis.opendocument.text": normdoc.FormatODT,
	"application/pdf": normdoc.FormatPDF,
}

// DetectFormat resolves a format from the filename extension, falling
// back to the declared content type. It performs no content sniffing.
func DetectFormat(filename, contentType string) (normdoc.Format, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if f, ok := extensionFormats[ext]; ok {
		return f, nil
	}
	ct := contentType
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	ct = strings.TrimSpace(strings.ToLower(ct))
	if f, ok := contentTypeFormats[ct]; ok {
		return f, nil
	}
	return "", unsupportedf("", "unrecognized extension %q and content type %q", ext, contentType)
}

// IsSupported checks whether a filename or content type maps to a parser.
func IsSupported(filename, contentType string) bool {
	_, err := DetectFormat(filename, contentType)
	return err == nil
}

// forFormat returns the parser for a format. The switch is exhaustive
// over the normdoc format constants.
func forFormat(f normdoc.Format) Parser {
	switch f {
	case normdoc.FormatText:
		return &TextParser{}
	case normdoc.FormatMarkdown:
		return &MarkdownParser{}
	case normdoc.FormatCSV:
		return &CSVParser{}
	case normdoc.FormatXML:
		return &XMLParser{}
	case normdoc.FormatJSON:
		return &JSONParser{}
	case normdoc.FormatHTML:
		return &HTMLParser{}
	case normdoc.FormatDOCX:
		return &DOCXParser{}
	case normdoc.FormatDOC:
		return &DOCParser{}
	case normdoc.FormatRTF:
		return &RTFParser{}
	case normdoc.FormatODT:
		return &ODTParser{}
	case normdoc.FormatPDF:
		return &PDFParser{}
	}
	return nil
}

// Parse dispatches to the right parser and normalizes any failure into
// a ParseError. It never inspects content before delegating.
func Parse(ctx context.Context, data []byte, contentType, filename string, opts Options) (*normdoc.Document, error) {
	format, err := DetectFormat(filename, contentType)
	if err != nil {
		return nil, err
	}

	p := forFormat(format)
	if p == nil {
		return nil, unsupportedf(format, "no parser for format %q", format)
	}

	doc, err := p.Parse(ctx, data, filename, opts)
	if err != nil {
		var pe *ParseError
		if errors.As(err, &pe) {
			return nil, pe
		}
		return nil, &ParseError{Kind: KindMalformed, Format: format, Err: err}
	}
	return doc, nil
}
