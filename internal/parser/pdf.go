package parser

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"io"
	"regexp"
	"strings"
	"unicode"

	"github.com/dgallion1/docnorm/internal/assets"
	"github.com/dgallion1/docnorm/internal/normdoc"
	pdflib "github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// PDFParser reconstructs page layout from positioned text items: each
// page becomes a relatively-positioned <div> sized to its MediaBox,
// with absolutely-positioned spans inside. When the strict reader
// rejects the file with a corruption signature, a relaxed pdfcpu pass
// recovers flat text from the content streams instead of failing.
type PDFParser struct{}

// Letter-size fallback (points) when no MediaBox is reachable through
// the page tree.
const (
	defaultPageWidthPt  = 612
	defaultPageHeightPt = 792
)

func (p *PDFParser) Parse(ctx context.Context, data []byte, filename string, opts Options) (*normdoc.Document, error) {
	doc, err := p.parsePositional(data, opts)
	if err == nil {
		return doc, nil
	}
	if !isPDFCorruption(err) {
		return nil, malformedf(normdoc.FormatPDF, "parse pdf: %w", err)
	}

	doc, relaxedErr := p.parseRelaxed(data)
	if relaxedErr != nil {
		return nil, malformedf(normdoc.FormatPDF, "parse pdf: %v; relaxed retry: %w", err, relaxedErr)
	}
	doc.Meta.Warn(fmt.Sprintf("pdf failed strict parsing (%v); text recovered in relaxed mode without layout", err))
	return doc, nil
}

// parsePositional is the primary path. The underlying reader panics on
// some malformed files, so the whole pass converts panics to errors and
// each page is additionally isolated.
func (p *PDFParser) parsePositional(data []byte, opts Options) (doc *normdoc.Document, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf reader panic: %v", r)
		}
	}()

	reader, err := pdflib.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}

	doc = &normdoc.Document{
		Meta: normdoc.Metadata{
			Format:       normdoc.FormatPDF,
			HasStructure: true,
		},
	}

	numPages := reader.NumPage()
	doc.Meta.Pages = numPages

	var htmlBuf strings.Builder
	var textBuf strings.Builder
	gap := opts.lineGapFactor()
	anyText := false

	for pageNr := 1; pageNr <= numPages; pageNr++ {
		pageHTML, pageText := renderPDFPage(reader, pageNr, gap, &doc.Meta)
		htmlBuf.WriteString(pageHTML)
		if pageText != "" {
			anyText = true
			if textBuf.Len() > 0 {
				textBuf.WriteString("\n\n")
			}
			textBuf.WriteString(pageText)
		}
	}

	doc.HTML = htmlBuf.String()
	doc.Text = textBuf.String()
	if doc.HTML == "" {
		doc.HTML = "<p></p>"
	}

	if !anyText {
		// Positioned extraction found nothing on any page; the flat
		// reader sometimes still recovers text (e.g. odd encodings).
		if flat := plainTextFallback(reader); flat != "" {
			doc.Text = flat
			doc.HTML = flatTextHTML(flat)
			doc.Meta.HasStructure = false
			doc.Meta.Warn("positional extraction found no text; fell back to flat text without layout")
		} else {
			doc.Meta.Warn("pdf contains no extractable text")
		}
	}
	return doc, nil
}

// renderPDFPage builds one page div. Panics from the pdf library are
// contained to the page: a crashing page degrades to a placeholder and
// a warning instead of losing the document.
func renderPDFPage(reader *pdflib.Reader, pageNr int, gapFactor float64, meta *normdoc.Metadata) (pageHTML, pageText string) {
	defer func() {
		if r := recover(); r != nil {
			meta.Warn(fmt.Sprintf("page %d: extraction panic, page skipped: %v", pageNr, r))
			pageHTML = placeholderPageDiv(pageNr)
			pageText = ""
		}
	}()

	page := reader.Page(pageNr)
	if page.V.IsNull() {
		meta.Warn(fmt.Sprintf("page %d: missing page object", pageNr))
		return placeholderPageDiv(pageNr), ""
	}

	widthPt, heightPt, ok := mediaBoxSize(page.V)
	if !ok {
		widthPt, heightPt = defaultPageWidthPt, defaultPageHeightPt
		meta.Warn(fmt.Sprintf("page %d: no MediaBox found, assuming letter size", pageNr))
	}

	items := page.Content().Text
	if len(items) == 0 {
		meta.Warn(fmt.Sprintf("page %d: no extractable text layer", pageNr))
		return placeholderPageDiv(pageNr), ""
	}

	spans := buildPDFSpans(items)
	pageText = pdfTextProjection(items, gapFactor)

	var b strings.Builder
	fmt.Fprintf(&b, `<div class="pdf-page" data-page="%d" style="position:relative;width:%.2fpx;height:%.2fpx">`,
		pageNr, assets.PointsToPx(widthPt), assets.PointsToPx(heightPt))
	for _, span := range spans {
		span.render(&b, heightPt)
	}
	b.WriteString("</div>")
	return b.String(), pageText
}

// placeholderPageDiv stands in for a page that yielded no positioned
// spans. The review UI still gets one block per page, with visible
// content instead of an empty section.
func placeholderPageDiv(pageNr int) string {
	return fmt.Sprintf(`<div class="pdf-page" data-page="%d"><p class="pdf-page-placeholder">page %d: no extractable text layer</p></div>`, pageNr, pageNr)
}

// mediaBoxSize resolves the page's MediaBox, walking Parent links since
// the attribute is inheritable in the page tree.
func mediaBoxSize(v pdflib.Value) (widthPt, heightPt float64, ok bool) {
	for depth := 0; depth < 32 && !v.IsNull(); depth++ {
		mb := v.Key("MediaBox")
		if !mb.IsNull() && mb.Len() == 4 {
			x0, y0 := mb.Index(0).Float64(), mb.Index(1).Float64()
			x1, y1 := mb.Index(2).Float64(), mb.Index(3).Float64()
			w, h := x1-x0, y1-y0
			if w > 0 && h > 0 {
				return w, h, true
			}
		}
		v = v.Key("Parent")
	}
	return 0, 0, false
}

// pdfSpan is one absolutely-positioned run of text sharing a font,
// size, and baseline.
type pdfSpan struct {
	x, baseline float64 // PDF coordinates (origin bottom-left)
	size        float64
	font        string
	text        strings.Builder
	width       float64 // accumulated advance
	endX        float64
}

// buildPDFSpans merges consecutive text items that share a baseline and
// style into spans. A fresh span starts when the style changes, the
// baseline moves, or a horizontal jump larger than one glyph appears.
func buildPDFSpans(items []pdflib.Text) []*pdfSpan {
	var spans []*pdfSpan
	var cur *pdfSpan

	for _, item := range items {
		if item.S == "" {
			continue
		}
		sameRun := cur != nil &&
			cur.font == item.Font &&
			nearlyEqual(cur.size, item.FontSize) &&
			nearlyEqual(cur.baseline, item.Y) &&
			item.X-cur.endX < maxf(item.FontSize, 1)

		if !sameRun {
			cur = &pdfSpan{
				x:        item.X,
				baseline: item.Y,
				size:     item.FontSize,
				font:     item.Font,
			}
			spans = append(spans, cur)
		} else if item.X-cur.endX > item.FontSize*0.25 {
			cur.text.WriteByte(' ')
		}
		cur.text.WriteString(item.S)
		cur.width += item.W
		cur.endX = item.X + item.W
	}
	return spans
}

// render writes the span as absolutely-positioned HTML. PDF measures Y
// up from the bottom-left; CSS measures top down from the top-left, so
// the baseline flips through the page height minus the font ascent.
func (s *pdfSpan) render(b *strings.Builder, pageHeightPt float64) {
	top := pageHeightPt - s.baseline - s.size
	sizePx := assets.PointsToPx(s.size)
	fmt.Fprintf(b, `<span style="position:absolute;left:%.2fpx;top:%.2fpx;font-size:%.2fpx;line-height:%.2fpx`,
		assets.PointsToPx(s.x), assets.PointsToPx(top), sizePx, sizePx)
	if family := assets.SanitizeFontFamily(s.font); family != "" {
		fmt.Fprintf(b, `;font-family:'%s'`, family)
	}
	// When the measured advance diverges badly from a rough natural
	// width estimate the text was condensed or expanded; approximate it
	// with a horizontal scale so overlapping spans stay legible.
	if scale, ok := s.scaleX(); ok {
		fmt.Fprintf(b, `;transform:scaleX(%.3f);transform-origin:left`, scale)
	}
	b.WriteString(`">`)
	b.WriteString(html.EscapeString(s.text.String()))
	b.WriteString("</span>")
}

func (s *pdfSpan) scaleX() (float64, bool) {
	runes := len([]rune(s.text.String()))
	if runes == 0 || s.size <= 0 || s.width <= 0 {
		return 0, false
	}
	natural := s.size * 0.5 * float64(runes)
	ratio := s.width / natural
	if ratio > 0.6 && ratio < 1.6 {
		return 0, false
	}
	return ratio, true
}

// pdfTextProjection flattens positioned items into reading text. A
// baseline drop larger than gapFactor times the current font height is
// a line break; a drop of several lines is a paragraph break.
func pdfTextProjection(items []pdflib.Text, gapFactor float64) string {
	var b strings.Builder
	var prev *pdflib.Text

	for i := range items {
		item := &items[i]
		if item.S == "" {
			continue
		}
		if prev != nil {
			fontHeight := maxf(item.FontSize, 1)
			drop := prev.Y - item.Y
			switch {
			case drop > fontHeight*3:
				b.WriteString("\n\n")
			case drop > fontHeight*gapFactor || drop < -fontHeight*gapFactor:
				b.WriteByte('\n')
			case item.X-(prev.X+prev.W) > fontHeight*0.25:
				b.WriteByte(' ')
			}
		}
		b.WriteString(item.S)
		prev = item
	}
	return strings.TrimSpace(b.String())
}

// plainTextFallback asks the library for its own flat rendering.
func plainTextFallback(reader *pdflib.Reader) (text string) {
	defer func() {
		if recover() != nil {
			text = ""
		}
	}()
	r, err := reader.GetPlainText()
	if err != nil {
		return ""
	}
	raw, err := io.ReadAll(r)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(raw))
}

// corruption signatures that warrant a relaxed retry rather than an
// immediate malformed verdict.
var pdfCorruptionMarkers = []string{
	"cross-reference",
	"xref",
	"malformed",
	"invalid",
	"unexpected eof",
	"not a pdf",
	"panic",
	"stream not present",
	"corrupt",
}

func isPDFCorruption(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range pdfCorruptionMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// parseRelaxed re-reads the file with pdfcpu's relaxed validation and
// scrapes text-showing operators out of the raw content streams. The
// output is flat text; layout fidelity is gone by construction.
func (p *PDFParser) parseRelaxed(data []byte) (*normdoc.Document, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), conf)
	if err != nil {
		return nil, fmt.Errorf("pdfcpu read: %w", err)
	}

	var pages []string
	for pageNr := 1; pageNr <= ctx.PageCount; pageNr++ {
		r, err := pdfcpu.ExtractPageContent(ctx, pageNr)
		if err != nil {
			continue
		}
		raw, err := io.ReadAll(r)
		if err != nil || len(raw) == 0 {
			continue
		}
		if text := textFromContentStream(raw); text != "" {
			pages = append(pages, text)
		}
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("no recoverable text in %d pages", ctx.PageCount)
	}

	text := strings.Join(pages, "\n\n")
	return &normdoc.Document{
		Text: text,
		HTML: flatTextHTML(text),
		Meta: normdoc.Metadata{
			Format:       normdoc.FormatPDF,
			HasStructure: false,
			Pages:        ctx.PageCount,
		},
	}, nil
}

// pdfStringRe matches PDF string literals: (text here)
var pdfStringRe = regexp.MustCompile(`\(([^)]*)\)`)

// textFromContentStream scans a decoded content stream for the
// text-showing operators (Tj, TJ, ') and the positioning operators that
// imply whitespace (Td, TD, T*).
func textFromContentStream(data []byte) string {
	var b strings.Builder
	for _, line := range bytes.Split(data, []byte{'\n'}) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		switch {
		case bytes.HasSuffix(line, []byte("Tj")), bytes.HasSuffix(line, []byte("TJ")):
			for _, m := range pdfStringRe.FindAllSubmatch(line, -1) {
				b.WriteString(decodePDFString(m[1]))
			}
		case bytes.HasSuffix(line, []byte("'")) && bytes.Contains(line, []byte("(")):
			for _, m := range pdfStringRe.FindAllSubmatch(line, -1) {
				b.WriteByte('\n')
				b.WriteString(decodePDFString(m[1]))
			}
		case bytes.HasSuffix(line, []byte("Td")), bytes.HasSuffix(line, []byte("TD")):
			if b.Len() > 0 {
				b.WriteByte(' ')
			}
		case bytes.Equal(line, []byte("T*")):
			b.WriteByte('\n')
		}
	}
	return normalizeStreamText(b.String())
}

// decodePDFString resolves backslash escapes, including octal bytes.
func decodePDFString(raw []byte) string {
	var b strings.Builder
	for i := 0; i < len(raw); i++ {
		if raw[i] != '\\' || i+1 >= len(raw) {
			b.WriteByte(raw[i])
			continue
		}
		i++
		switch raw[i] {
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 't':
			b.WriteByte('\t')
		case '\\', '(', ')':
			b.WriteByte(raw[i])
		default:
			if raw[i] >= '0' && raw[i] <= '7' {
				val := int(raw[i] - '0')
				for n := 0; n < 2 && i+1 < len(raw) && raw[i+1] >= '0' && raw[i+1] <= '7'; n++ {
					i++
					val = val*8 + int(raw[i]-'0')
				}
				b.WriteByte(byte(val))
			} else {
				b.WriteByte(raw[i])
			}
		}
	}
	return b.String()
}

// normalizeStreamText collapses runs of whitespace but keeps line
// structure out of the positioning operators.
func normalizeStreamText(text string) string {
	var b strings.Builder
	var prevSpace, prevNewline bool
	for _, r := range text {
		switch {
		case r == '\n':
			if !prevNewline && b.Len() > 0 {
				b.WriteByte('\n')
			}
			prevNewline, prevSpace = true, true
		case unicode.IsSpace(r):
			if !prevSpace && b.Len() > 0 {
				b.WriteByte(' ')
			}
			prevSpace = true
		case unicode.IsPrint(r):
			b.WriteRune(r)
			prevSpace, prevNewline = false, false
		}
	}
	return strings.TrimSpace(b.String())
}

func nearlyEqual(a, b float64) bool {
	d := a - b
	return d < 0.01 && d > -0.01
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
