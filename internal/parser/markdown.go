package parser

import (
	"bytes"
	"context"
	"strings"

	"github.com/dgallion1/docnorm/internal/normdoc"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// MarkdownParser renders Markdown with GitHub-flavored rules and soft
// line breaks, using the goldmark instance carried in Options.
type MarkdownParser struct{}

func (p *MarkdownParser) Parse(ctx context.Context, data []byte, filename string, opts Options) (*normdoc.Document, error) {
	md := opts.Markdown
	if md == nil {
		md = goldmark.New(goldmark.WithExtensions(extension.GFM))
	}

	var buf bytes.Buffer
	if err := md.Convert(data, &buf); err != nil {
		return nil, malformedf(normdoc.FormatMarkdown, "render markdown: %w", err)
	}
	rendered := strings.TrimSpace(buf.String())

	doc := &normdoc.Document{
		Text: fragmentText(rendered),
		HTML: rendered,
		Meta: normdoc.Metadata{
			Format:       normdoc.FormatMarkdown,
			HasStructure: true,
			Lines:        countLines(strings.TrimRight(string(data), "\n")),
		},
	}
	if doc.Text == "" {
		doc.HTML = "<p></p>"
		doc.Meta.Warn("document contains no text")
	}
	return doc, nil
}
