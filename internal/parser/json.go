package parser

import (
	"context"
	"encoding/json"
	"html"

	"github.com/dgallion1/docnorm/internal/normdoc"
)

// JSONParser canonicalizes JSON by re-serializing it pretty-printed;
// both projections carry the same text, the HTML one escaped inside a
// preformatted block.
type JSONParser struct{}

func (p *JSONParser) Parse(ctx context.Context, data []byte, filename string, opts Options) (*normdoc.Document, error) {
	var value any
	if err := json.Unmarshal(data, &value); err != nil {
		return nil, malformedf(normdoc.FormatJSON, "parse json: %w", err)
	}

	pretty, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return nil, malformedf(normdoc.FormatJSON, "serialize json: %w", err)
	}

	doc := &normdoc.Document{
		Text: string(pretty),
		HTML: "<pre>" + html.EscapeString(string(pretty)) + "</pre>",
		Meta: normdoc.Metadata{
			Format:       normdoc.FormatJSON,
			HasStructure: false,
		},
	}

	switch v := value.(type) {
	case []any:
		doc.Meta.TopLevelArr = true
		doc.Meta.Elements = len(v)
	case map[string]any:
		doc.Meta.Elements = len(v)
	case nil:
		doc.Meta.Warn("json document is null")
	}
	return doc, nil
}
