package parser

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/dgallion1/docnorm/internal/assets"
	"github.com/dgallion1/docnorm/internal/normdoc"
)

// RTFParser walks an RTF document as a tree of paragraphs containing
// styled runs. Run properties (half-point font sizes, color table
// indices, font table indices) and paragraph properties (alignment,
// twip indentation) are converted to inline CSS.
type RTFParser struct{}

func (p *RTFParser) Parse(ctx context.Context, data []byte, filename string, opts Options) (*normdoc.Document, error) {
	if !strings.HasPrefix(string(data), `{\rtf`) {
		return nil, malformedf(normdoc.FormatRTF, "missing rtf header")
	}

	w := &rtfWalker{data: data, fonts: map[int]string{}}
	w.walk()

	doc := &normdoc.Document{
		Meta: normdoc.Metadata{
			Format:       normdoc.FormatRTF,
			HasStructure: true,
		},
	}

	var text strings.Builder
	var b strings.Builder
	for i, para := range w.paragraphs {
		if i > 0 {
			text.WriteString("\n\n")
		}
		b.WriteString("<p")
		if style := para.props.css(); style != "" {
			b.WriteString(` style="` + style + `"`)
		}
		b.WriteString(">")
		for _, run := range para.runs {
			renderRTFRun(&b, &text, run, w.colors, w.fonts)
		}
		b.WriteString("</p>")
	}

	doc.Text = strings.TrimSpace(text.String())
	doc.HTML = b.String()
	if len(w.paragraphs) == 0 {
		doc.HTML = "<p></p>"
		doc.Meta.Warn("rtf contains no paragraphs")
	} else if doc.Text == "" {
		doc.Meta.Warn("document contains no text")
	}
	return doc, nil
}

func renderRTFRun(b, text *strings.Builder, run rtfRun, colors []rtfColor, fonts map[int]string) {
	style := run.props.css(colors, fonts)
	if style != "" {
		b.WriteString(`<span style="` + style + `">`)
	} else {
		b.WriteString("<span>")
	}
	for i, line := range strings.Split(run.text, "\n") {
		if i > 0 {
			b.WriteString("<br/>")
			text.WriteString("\n")
		}
		b.WriteString(html.EscapeString(line))
		text.WriteString(line)
	}
	b.WriteString("</span>")
}

type rtfColor struct {
	auto    bool
	r, g, b int
}

func (c rtfColor) hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.r, c.g, c.b)
}

// rtfCharProps is the group-scoped character formatting state.
type rtfCharProps struct {
	fontSizeHalfPt int
	bold           bool
	italic         bool
	underline      bool
	strike         bool
	colorIdx       int // 0 = auto
	backIdx        int
	fontIdx        int
	rtl            bool
}

func (c rtfCharProps) css(colors []rtfColor, fonts map[int]string) string {
	var parts []string
	if c.fontSizeHalfPt > 0 {
		parts = append(parts, fmt.Sprintf("font-size:%.4gpx", assets.HalfPointsToPx(c.fontSizeHalfPt)))
	}
	if c.bold {
		parts = append(parts, "font-weight:bold")
	}
	if c.italic {
		parts = append(parts, "font-style:italic")
	}
	switch {
	case c.underline && c.strike:
		parts = append(parts, "text-decoration:underline line-through")
	case c.underline:
		parts = append(parts, "text-decoration:underline")
	case c.strike:
		parts = append(parts, "text-decoration:line-through")
	}
	if c.colorIdx > 0 && c.colorIdx < len(colors) && !colors[c.colorIdx].auto {
		parts = append(parts, "color:"+colors[c.colorIdx].hex())
	}
	if c.backIdx > 0 && c.backIdx < len(colors) && !colors[c.backIdx].auto {
		parts = append(parts, "background-color:"+colors[c.backIdx].hex())
	}
	if name := assets.SanitizeFontFamily(fonts[c.fontIdx]); name != "" {
		parts = append(parts, "font-family:'"+name+"'")
	}
	if c.rtl {
		parts = append(parts, "direction:rtl", "unicode-bidi:embed")
	}
	return strings.Join(parts, ";")
}

// rtfParaProps is the paragraph formatting state, reset by \pard.
type rtfParaProps struct {
	align       string // "", "center", "right", "justify"
	indentTwips int
	rtl         bool
}

func (p rtfParaProps) css() string {
	var parts []string
	if p.align != "" {
		parts = append(parts, "text-align:"+p.align)
	}
	if p.indentTwips > 0 {
		parts = append(parts, fmt.Sprintf("margin-left:%dpx", assets.TwipsToPx(p.indentTwips)))
	}
	if p.rtl {
		parts = append(parts, "direction:rtl")
	}
	return strings.Join(parts, ";")
}

type rtfRun struct {
	props rtfCharProps
	text  string
}

type rtfParagraph struct {
	props rtfParaProps
	runs  []rtfRun
}

// rtfWalker is a single-pass tokenizer over the raw RTF bytes. Groups
// scope character state; \pard resets paragraph state; destination
// groups (font table, color table, pictures, metadata) never leak text
// into the document body.
type rtfWalker struct {
	data []byte
	pos  int

	fonts  map[int]string
	colors []rtfColor

	paragraphs []rtfParagraph

	stack []rtfCharProps
	char  rtfCharProps
	para  rtfParaProps

	current     strings.Builder
	currentRuns []rtfRun

	// destination handling
	dest      string // "fonttbl", "colortbl", "skip"
	destDepth int

	pendingColor    rtfColor
	pendingColorSet bool
	ucSkip          int
}

func (w *rtfWalker) walk() {
	w.ucSkip = 1
	depth := 0
	for w.pos < len(w.data) {
		ch := w.data[w.pos]
		switch ch {
		case '{':
			w.pos++
			depth++
			w.stack = append(w.stack, w.char)
		case '}':
			w.pos++
			if w.dest != "" && depth == w.destDepth {
				w.dest = ""
			}
			if n := len(w.stack); n > 0 {
				w.flushRun()
				w.char = w.stack[n-1]
				w.stack = w.stack[:n-1]
			}
			depth--
		case '\\':
			w.control(depth)
		case '\r', '\n':
			w.pos++ // raw newlines are not document content
		default:
			w.pos++
			if w.dest == "fonttbl" {
				if ch == ';' {
					// font name terminated
				} else {
					w.fonts[w.char.fontIdx] += string(ch)
				}
				continue
			}
			if w.dest == "colortbl" {
				if ch == ';' {
					// A bare ';' with no rgb components is the auto color.
					if w.pendingColorSet {
						w.colors = append(w.colors, w.pendingColor)
					} else {
						w.colors = append(w.colors, rtfColor{auto: true})
					}
					w.pendingColor = rtfColor{}
					w.pendingColorSet = false
				}
				continue
			}
			if w.dest != "" {
				continue
			}
			w.current.WriteByte(ch)
		}
	}
	w.endParagraph(false)
}

// control consumes one control word or control symbol.
func (w *rtfWalker) control(depth int) {
	w.pos++ // consume the backslash
	if w.pos >= len(w.data) {
		return
	}

	ch := w.data[w.pos]
	// Control symbols.
	if !isASCIILetter(ch) {
		w.pos++
		switch ch {
		case '\\', '{', '}':
			w.writeText(string(ch))
		case '\'':
			if w.pos+2 <= len(w.data)+1 && w.pos+1 < len(w.data) {
				hi, okHi := unhex(w.data[w.pos])
				lo, okLo := unhex(w.data[w.pos+1])
				w.pos += 2
				if okHi && okLo {
					w.writeText(string(rune(hi<<4 | lo)))
				}
			}
		case '~':
			w.writeText(" ")
		case '_':
			w.writeText("-")
		case '*':
			// {\*\dest ...} — an optional destination we don't know.
			if w.dest == "" {
				w.dest = "skip"
				w.destDepth = depth
			}
		}
		return
	}

	// Control word: letters then optional signed integer.
	start := w.pos
	for w.pos < len(w.data) && isASCIILetter(w.data[w.pos]) {
		w.pos++
	}
	word := string(w.data[start:w.pos])

	hasParam := false
	param := 0
	sign := 1
	if w.pos < len(w.data) && w.data[w.pos] == '-' {
		sign = -1
		w.pos++
	}
	for w.pos < len(w.data) && w.data[w.pos] >= '0' && w.data[w.pos] <= '9' {
		hasParam = true
		param = param*10 + int(w.data[w.pos]-'0')
		w.pos++
	}
	param *= sign
	// A single space after the control word is part of it.
	if w.pos < len(w.data) && w.data[w.pos] == ' ' {
		w.pos++
	}

	w.apply(word, param, hasParam, depth)
}

func (w *rtfWalker) apply(word string, param int, hasParam bool, depth int) {
	if w.dest == "skip" {
		return
	}
	switch word {
	case "fonttbl":
		w.dest = "fonttbl"
		w.destDepth = depth
	case "colortbl":
		w.dest = "colortbl"
		w.destDepth = depth
	case "stylesheet", "info", "pict", "themedata", "object":
		w.dest = "skip"
		w.destDepth = depth

	case "red":
		w.pendingColor.r = param
		w.pendingColorSet = true
	case "green":
		w.pendingColor.g = param
		w.pendingColorSet = true
	case "blue":
		w.pendingColor.b = param
		w.pendingColorSet = true

	case "par":
		w.endParagraph(true)
	case "pard":
		w.para = rtfParaProps{}
	case "line":
		w.writeText("\n")
	case "tab":
		w.writeText("\t")

	case "qc":
		w.para.align = "center"
	case "qr":
		w.para.align = "right"
	case "qj":
		w.para.align = "justify"
	case "ql":
		w.para.align = ""
	case "li":
		w.para.indentTwips = param
	case "rtlpar":
		w.para.rtl = true
	case "ltrpar":
		w.para.rtl = false

	case "fs":
		w.styleChange(func(c *rtfCharProps) { c.fontSizeHalfPt = param })
	case "b":
		w.styleChange(func(c *rtfCharProps) { c.bold = !hasParam || param != 0 })
	case "i":
		w.styleChange(func(c *rtfCharProps) { c.italic = !hasParam || param != 0 })
	case "ul":
		w.styleChange(func(c *rtfCharProps) { c.underline = !hasParam || param != 0 })
	case "ulnone":
		w.styleChange(func(c *rtfCharProps) { c.underline = false })
	case "strike":
		w.styleChange(func(c *rtfCharProps) { c.strike = !hasParam || param != 0 })
	case "cf":
		w.styleChange(func(c *rtfCharProps) { c.colorIdx = param })
	case "cb", "highlight", "chcbpat":
		w.styleChange(func(c *rtfCharProps) { c.backIdx = param })
	case "f":
		if w.dest == "fonttbl" {
			w.char.fontIdx = param
		} else {
			w.styleChange(func(c *rtfCharProps) { c.fontIdx = param })
		}
	case "rtlch":
		w.styleChange(func(c *rtfCharProps) { c.rtl = true })
	case "ltrch":
		w.styleChange(func(c *rtfCharProps) { c.rtl = false })

	case "uc":
		w.ucSkip = param
	case "u":
		r := rune(param)
		if param < 0 {
			r = rune(param + 65536)
		}
		w.writeText(string(r))
		// Skip the fallback characters that follow \uN.
		for i := 0; i < w.ucSkip && w.pos < len(w.data); i++ {
			if w.data[w.pos] == '\\' || w.data[w.pos] == '{' || w.data[w.pos] == '}' {
				break
			}
			w.pos++
		}
	}
}

// styleChange closes the current run before mutating character state
// so each run carries exactly one style.
func (w *rtfWalker) styleChange(mutate func(*rtfCharProps)) {
	if w.dest != "" {
		mutate(&w.char)
		return
	}
	w.flushRun()
	mutate(&w.char)
}

func (w *rtfWalker) writeText(s string) {
	if w.dest != "" {
		return
	}
	w.current.WriteString(s)
}

func (w *rtfWalker) flushRun() {
	if w.current.Len() == 0 {
		return
	}
	w.currentRuns = append(w.currentRuns, rtfRun{props: w.char, text: w.current.String()})
	w.current.Reset()
}

// endParagraph closes the open paragraph. Explicit \par always emits a
// paragraph, even an empty one; the trailing implicit close only emits
// when content exists.
func (w *rtfWalker) endParagraph(explicit bool) {
	w.flushRun()
	if !explicit && len(w.currentRuns) == 0 {
		return
	}
	w.paragraphs = append(w.paragraphs, rtfParagraph{props: w.para, runs: w.currentRuns})
	w.currentRuns = nil
}

func isASCIILetter(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func unhex(ch byte) (byte, bool) {
	switch {
	case ch >= '0' && ch <= '9':
		return ch - '0', true
	case ch >= 'a' && ch <= 'f':
		return ch - 'a' + 10, true
	case ch >= 'A' && ch <= 'F':
		return ch - 'A' + 10, true
	}
	return 0, false
}
