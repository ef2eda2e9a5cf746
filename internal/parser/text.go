package parser

import (
	"context"
	"strings"

	"github.com/dgallion1/docnorm/internal/normdoc"
)

// TextParser handles plain text files.
type TextParser struct{}

func (p *TextParser) Parse(ctx context.Context, data []byte, filename string, opts Options) (*normdoc.Document, error) {
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	paragraphs := splitParagraphs(text)

	doc := &normdoc.Document{
		Text: strings.Join(paragraphs, "\n\n"),
		HTML: paragraphsToHTML(paragraphs),
		Meta: normdoc.Metadata{
			Format:       normdoc.FormatText,
			HasStructure: true,
			Lines:        countLines(strings.TrimRight(text, "\n")),
		},
	}
	if doc.Text == "" {
		doc.Meta.Warn("document contains no text")
	}
	return doc, nil
}
