package parser

import (
	"bytes"
	"context"
	"encoding/csv"
	"html"
	"strings"

	"github.com/dgallion1/docnorm/internal/normdoc"
)

// CSVParser handles CSV files. The first record is the header row; the
// text projection joins cells with " | " so each row stays one line.
type CSVParser struct{}

const csvCellSeparator = " | "

func (p *CSVParser) Parse(ctx context.Context, data []byte, filename string, opts Options) (*normdoc.Document, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, malformedf(normdoc.FormatCSV, "parse csv: %w", err)
	}

	doc := &normdoc.Document{
		Meta: normdoc.Metadata{
			Format:       normdoc.FormatCSV,
			HasStructure: true,
		},
	}

	if len(records) == 0 {
		doc.HTML = "<table></table>"
		doc.Meta.Warn("csv contains no records")
		return doc, nil
	}

	header := records[0]
	rows := records[1:]
	doc.Meta.Columns = len(header)
	doc.Meta.Rows = len(rows)

	var text strings.Builder
	var b strings.Builder
	b.WriteString("<table><thead><tr>")
	for _, cell := range header {
		b.WriteString("<th>")
		b.WriteString(html.EscapeString(cell))
		b.WriteString("</th>")
	}
	b.WriteString("</tr></thead><tbody>")
	text.WriteString(strings.Join(header, csvCellSeparator))

	for _, row := range rows {
		b.WriteString("<tr>")
		for _, cell := range row {
			b.WriteString("<td>")
			b.WriteString(html.EscapeString(cell))
			b.WriteString("</td>")
		}
		b.WriteString("</tr>")
		text.WriteString("\n")
		text.WriteString(strings.Join(row, csvCellSeparator))
	}
	b.WriteString("</tbody></table>")

	doc.Text = text.String()
	doc.HTML = b.String()
	if len(rows) == 0 {
		doc.Meta.Warn("csv has a header but no data rows")
	}
	return doc, nil
}
