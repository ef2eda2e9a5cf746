package parser

import (
	"html"
	"strings"
)

// splitParagraphs breaks flat text into paragraphs on blank-line
// boundaries. Lines containing only whitespace count as blank.
func splitParagraphs(text string) []string {
	var paragraphs []string
	var current []string

	flush := func() {
		if len(current) > 0 {
			paragraphs = append(paragraphs, strings.Join(current, "\n"))
			current = current[:0]
		}
	}

	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		if strings.TrimSpace(line) == "" {
			flush()
		} else {
			current = append(current, line)
		}
	}
	flush()
	return paragraphs
}

// paragraphsToHTML wraps each paragraph in <p>, escaping content and
// turning intra-paragraph line breaks into <br/>. Empty input yields a
// single empty paragraph so the fragment is never empty.
func paragraphsToHTML(paragraphs []string) string {
	if len(paragraphs) == 0 {
		return "<p></p>"
	}
	var b strings.Builder
	for _, para := range paragraphs {
		b.WriteString("<p>")
		for i, line := range strings.Split(para, "\n") {
			if i > 0 {
				b.WriteString("<br/>")
			}
			b.WriteString(html.EscapeString(line))
		}
		b.WriteString("</p>")
	}
	return b.String()
}

// flatTextHTML is the reduced-fidelity rendering shared by legacy DOC,
// ODT, and the PDF positional fallback: paragraph-wrap whatever text
// the extractor recovered.
func flatTextHTML(text string) string {
	return paragraphsToHTML(splitParagraphs(text))
}

// countLines counts newline-separated lines in the input, the way the
// metadata reports it for plain text.
func countLines(text string) int {
	if text == "" {
		return 0
	}
	return strings.Count(text, "\n") + 1
}
