package parser

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"html"
	"io"
	"strings"

	"github.com/dgallion1/docnorm/internal/normdoc"
)

// XMLParser extracts the leaf text of an XML document. The HTML output
// deliberately shows the escaped source markup in a preformatted block:
// reviewers need to see the structure, not a lossy reflow of it.
type XMLParser struct{}

func (p *XMLParser) Parse(ctx context.Context, data []byte, filename string, opts Options) (*normdoc.Document, error) {
	decoder := xml.NewDecoder(bytes.NewReader(data))
	var parts []string
	elements := 0

	for {
		tok, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, malformedf(normdoc.FormatXML, "parse xml: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			elements++
		case xml.CharData:
			if s := strings.Join(strings.Fields(string(t)), " "); s != "" {
				parts = append(parts, s)
			}
		}
	}

	doc := &normdoc.Document{
		Text: strings.Join(parts, " "),
		HTML: "<pre>" + html.EscapeString(string(data)) + "</pre>",
		Meta: normdoc.Metadata{
			Format:       normdoc.FormatXML,
			HasStructure: false,
			Elements:     elements,
		},
	}
	if doc.Text == "" {
		doc.Meta.Warn("xml contains no text content")
	}
	return doc, nil
}
