package parser

import (
	"context"
	"strings"

	"github.com/dgallion1/docnorm/internal/extractor"
	"github.com/dgallion1/docnorm/internal/normdoc"
)

// DOCParser handles legacy binary Word documents by shelling out to the
// configured extractor (antiword by default). Structure does not
// survive the conversion; output is flat paragraphs with a warning.
type DOCParser struct{}

func (p *DOCParser) Parse(ctx context.Context, data []byte, filename string, opts Options) (*normdoc.Document, error) {
	return legacyExtract(ctx, data, filename, opts.DocExtractor, normdoc.FormatDOC,
		"legacy .doc extraction unavailable; convert the document to .docx")
}

// ODTParser handles OpenDocument text via the configured extractor
// (odt2txt by default), with the same flat-text degradation as DOC.
type ODTParser struct{}

func (p *ODTParser) Parse(ctx context.Context, data []byte, filename string, opts Options) (*normdoc.Document, error) {
	return legacyExtract(ctx, data, filename, opts.ODTExtractor, normdoc.FormatODT,
		"odt extraction unavailable; convert the document to .docx")
}

func legacyExtract(ctx context.Context, data []byte, filename string, ext extractor.TextExtractor, format normdoc.Format, unavailable string) (*normdoc.Document, error) {
	if ext == nil || !ext.Available() {
		return nil, unsupportedf(format, "%s", unavailable)
	}

	text, err := ext.ExtractText(ctx, data, filename)
	if err != nil {
		return nil, malformedf(format, "extract %s: %w", format, err)
	}

	text = strings.TrimSpace(text)
	doc := &normdoc.Document{
		Text: strings.Join(splitParagraphs(text), "\n\n"),
		HTML: flatTextHTML(text),
		Meta: normdoc.Metadata{
			Format:       format,
			HasStructure: false,
		},
	}
	doc.Meta.Warn(string(format) + " converted through an external extractor; formatting was not preserved")
	if doc.Text == "" {
		doc.Meta.Warn("document contains no text")
	}
	return doc, nil
}
