package parser

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	pdflib "github.com/ledongthuc/pdf"
)

// minimalPDF builds a structurally valid single-page document whose
// page carries no content stream, so there is no text layer to extract.
func minimalPDF() []byte {
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, 4)
	writeObj := func(num int, body string) {
		offsets[num] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", num, body)
	}
	writeObj(1, "<< /Type /Catalog /Pages 2 0 R >>")
	writeObj(2, "<< /Type /Pages /Kids [3 0 R] /Count 1 >>")
	writeObj(3, "<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] >>")
	xrefPos := buf.Len()
	buf.WriteString("xref\n0 4\n0000000000 65535 f \n")
	for i := 1; i <= 3; i++ {
		fmt.Fprintf(&buf, "%010d 00000 n \n", offsets[i])
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size 4 /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", xrefPos)
	return buf.Bytes()
}

func TestPDFParser_GarbageIsMalformed(t *testing.T) {
	p := &PDFParser{}
	_, err := p.Parse(context.Background(), []byte("this is not a pdf at all"), "bad.pdf", Options{})
	if err == nil {
		t.Fatal("expected error for non-pdf bytes")
	}
	var pe *ParseError
	if !errors.As(err, &pe) || pe.Kind != KindMalformed {
		t.Errorf("expected malformed ParseError, got %v", err)
	}
}

func TestPDFParser_PageWithoutTextLayerGetsPlaceholder(t *testing.T) {
	p := &PDFParser{}
	doc, err := p.Parse(context.Background(), minimalPDF(), "scanned.pdf", Options{})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if doc.Meta.Pages != 1 {
		t.Errorf("expected 1 page, got %d", doc.Meta.Pages)
	}
	if !strings.Contains(doc.HTML, `data-page="1"`) {
		t.Errorf("expected a page block, got %q", doc.HTML)
	}
	if !strings.Contains(doc.HTML, "no extractable text layer") {
		t.Errorf("expected placeholder content inside the page block, got %q", doc.HTML)
	}

	found := false
	for _, w := range doc.Meta.Warnings {
		if strings.Contains(w, "page 1") && strings.Contains(w, "no extractable text layer") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a page-level warning, got %v", doc.Meta.Warnings)
	}
}

func TestIsPDFCorruption(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{errors.New("pdf reader panic: runtime error"), true},
		{errors.New("cross-reference table not found"), true},
		{errors.New("malformed PDF: xref offset out of range"), true},
		{errors.New("unexpected EOF"), true},
		{errors.New("context canceled"), false},
		{nil, false},
	}
	for _, tt := range tests {
		if got := isPDFCorruption(tt.err); got != tt.want {
			t.Errorf("isPDFCorruption(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestDecodePDFString(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`plain`, "plain"},
		{`with \(parens\)`, "with (parens)"},
		{`tab\there`, "tab\there"},
		{`octal\040space`, "octal space"},
		{`back\\slash`, `back\slash`},
	}
	for _, tt := range tests {
		if got := decodePDFString([]byte(tt.in)); got != tt.want {
			t.Errorf("decodePDFString(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTextFromContentStream(t *testing.T) {
	stream := strings.Join([]string{
		"BT",
		"/F1 12 Tf",
		"72 720 Td",
		"(Hello) Tj",
		"0 -14 TD",
		"(World) Tj",
		"T*",
		"[(Third) -250 (line)] TJ",
		"ET",
	}, "\n")

	got := textFromContentStream([]byte(stream))
	if !strings.Contains(got, "Hello") || !strings.Contains(got, "World") {
		t.Fatalf("expected Tj text extracted, got %q", got)
	}
	if !strings.Contains(got, "Thirdline") && !strings.Contains(got, "Third") {
		t.Errorf("expected TJ array text extracted, got %q", got)
	}
}

func TestBuildPDFSpans_MergesSameBaseline(t *testing.T) {
	items := []pdflib.Text{
		{Font: "Helvetica", FontSize: 12, X: 10, Y: 700, W: 30, S: "Hello"},
		{Font: "Helvetica", FontSize: 12, X: 45, Y: 700, W: 30, S: "world"},
		{Font: "Helvetica", FontSize: 12, X: 10, Y: 680, W: 25, S: "below"},
	}
	spans := buildPDFSpans(items)
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(spans))
	}
	if got := spans[0].text.String(); got != "Hello world" {
		t.Errorf("expected merged first line with space, got %q", got)
	}
	if got := spans[1].text.String(); got != "below" {
		t.Errorf("expected separate span for second baseline, got %q", got)
	}
}

func TestBuildPDFSpans_FontChangeStartsNewSpan(t *testing.T) {
	items := []pdflib.Text{
		{Font: "Helvetica", FontSize: 12, X: 10, Y: 700, W: 30, S: "normal "},
		{Font: "Helvetica-Bold", FontSize: 12, X: 42, Y: 700, W: 30, S: "bold"},
	}
	spans := buildPDFSpans(items)
	if len(spans) != 2 {
		t.Fatalf("expected a new span on font change, got %d spans", len(spans))
	}
}

func TestPDFTextProjection_LineGapHeuristic(t *testing.T) {
	items := []pdflib.Text{
		{FontSize: 12, X: 10, Y: 700, W: 60, S: "Line one"},
		{FontSize: 12, X: 10, Y: 688, W: 60, S: "Line two"},
		{FontSize: 12, X: 10, Y: 600, W: 60, S: "New paragraph"},
	}
	got := pdfTextProjection(items, DefaultLineGapFactor)
	want := "Line one\nLine two\n\nNew paragraph"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestPDFTextProjection_SmallDropStaysOnLine(t *testing.T) {
	// A 2pt baseline wobble at 12pt font is not a line break.
	items := []pdflib.Text{
		{FontSize: 12, X: 10, Y: 700, W: 40, S: "same"},
		{FontSize: 12, X: 55, Y: 698, W: 40, S: "line"},
	}
	got := pdfTextProjection(items, DefaultLineGapFactor)
	if got != "same line" {
		t.Errorf("expected words joined on one line, got %q", got)
	}
}

func TestPDFSpanRender_PositionAndLineHeight(t *testing.T) {
	s := &pdfSpan{x: 72, baseline: 700, size: 12, font: "Helvetica"}
	s.text.WriteString("hello")

	var b strings.Builder
	s.render(&b, 792)
	got := b.String()

	// 72pt left edge is 96px at 96 DPI; top flips through the page
	// height: (792 - 700 - 12)pt = 80pt = 106.67px.
	for _, want := range []string{
		"left:96.00px",
		"top:106.67px",
		"font-size:16.00px",
		"line-height:16.00px",
		"font-family:'Helvetica'",
		">hello</span>",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("rendered span missing %q in %s", want, got)
		}
	}
}

func TestPDFSpanScaleX(t *testing.T) {
	normal := &pdfSpan{size: 12, width: 30}
	normal.text.WriteString("hello")
	if _, ok := normal.scaleX(); ok {
		t.Error("expected no scale for a typical advance")
	}

	condensed := &pdfSpan{size: 12, width: 10}
	condensed.text.WriteString("condensed text run")
	if scale, ok := condensed.scaleX(); !ok || scale >= 1 {
		t.Errorf("expected a condensing scale below 1, got %v ok=%v", scale, ok)
	}
}
