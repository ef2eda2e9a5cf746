package normdoc

// Format identifies a supported document format.
type Format string

const (
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
	FormatCSV      Format = "csv"
	FormatXML      Format = "xml"
	FormatJSON     Format = "json"
	FormatHTML     Format = "html"
	FormatDOCX     Format = "docx"
	FormatDOC      Format = "doc"
	FormatRTF      Format = "rtf"
	FormatODT      Format = "odt"
	FormatPDF      Format = "pdf"
)

// Document is the normalized output of a single parse call. It is
// produced once and never mutated afterwards; the caller owns it.
type Document struct {
	// Text is the flattened plain-text projection. Paragraph breaks
	// are blank lines, which is what the chunking pipeline expects.
	Text string `json:"text"`

	// HTML is a well-formed fragment structurally equivalent to the
	// source, used by the review UI for in-place translation editing.
	HTML string `json:"html"`

	// Assets are extracted binaries in the same order their tokens
	// appear in HTML.
	Assets []Asset `json:"assets,omitempty"`

	Meta Metadata `json:"metadata"`
}

// Asset is an extracted embedded binary, typically an image.
type Asset struct {
	// Token is the deterministic position-derived identifier. Parsing
	// byte-identical input always yields the same token sequence.
	Token string `json:"token"`

	// AssetID is the SHA-256 of Bytes. Empty when Bytes is nil.
	// Duplicate images share an AssetID but keep distinct Tokens.
	AssetID string `json:"asset_id,omitempty"`

	// Bytes is nil for unresolved remote references; SourceURL is set
	// instead so the caller can retry resolution out-of-band.
	Bytes     []byte `json:"-"`
	SourceURL string `json:"source_url,omitempty"`

	MIME         string `json:"mime,omitempty"`
	OriginalName string `json:"original_name,omitempty"`
	AltText      string `json:"alt_text,omitempty"`
	WidthPx      int    `json:"width_px,omitempty"`
	HeightPx     int    `json:"height_px,omitempty"`

	// KeepOriginalLanguage marks assets (logos and the like) that the
	// translation workflow must leave untouched.
	KeepOriginalLanguage bool `json:"keep_original_language,omitempty"`
}

// Resolved reports whether the asset's bytes were materialized.
func (a *Asset) Resolved() bool {
	return len(a.Bytes) > 0
}

// Metadata carries the format tag, fidelity flag, and format-specific
// facts about a parse.
type Metadata struct {
	Format Format `json:"format"`

	// HasStructure is false when the parse degraded to flat text
	// (legacy DOC, ODT, PDF positional fallback).
	HasStructure bool `json:"has_structure"`

	Pages       int  `json:"pages,omitempty"`
	Lines       int  `json:"lines,omitempty"`
	Rows        int  `json:"rows,omitempty"`
	Columns     int  `json:"columns,omitempty"`
	Elements    int  `json:"elements,omitempty"`
	TopLevelArr bool `json:"top_level_array,omitempty"`

	// Warnings describe degraded extraction. A non-empty Warnings
	// list still means the parse succeeded.
	Warnings []string `json:"warnings,omitempty"`
}

// Warn appends a warning to the metadata.
func (m *Metadata) Warn(msg string) {
	m.Warnings = append(m.Warnings, msg)
}
