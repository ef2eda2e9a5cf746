package parser

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/dgallion1/docnorm/internal/assets"
	"github.com/dgallion1/docnorm/internal/normdoc"
	"github.com/fumiama/go-docx"
)

// DOCXParser handles .docx files natively: heading styles become
// <h1>-<h6>, body paragraphs become <p>, and embedded drawings are
// pulled out of the archive's media parts into the asset registry.
type DOCXParser struct{}

const docxImageKind = "docx-img"

func (p *DOCXParser) Parse(ctx context.Context, data []byte, filename string, opts Options) (*normdoc.Document, error) {
	doc, err := docx.Parse(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, malformedf(normdoc.FormatDOCX, "parse docx: %w", err)
	}

	out := &normdoc.Document{
		Meta: normdoc.Metadata{
			Format:       normdoc.FormatDOCX,
			HasStructure: true,
		},
	}

	var text strings.Builder
	var b strings.Builder
	imageIndex := 0
	skipped := 0

	for _, item := range doc.Document.Body.Items {
		para, ok := item.(*docx.Paragraph)
		if !ok {
			skipped++
			continue
		}

		paraText := docxParagraphText(para)
		level := docxHeadingLevel(para)

		if level > 0 && paraText != "" {
			fmt.Fprintf(&b, "<h%d>%s</h%d>", level, html.EscapeString(paraText), level)
		} else {
			b.WriteString("<p>")
			b.WriteString(html.EscapeString(paraText))
			p.renderImages(doc, para, &b, out, &imageIndex)
			b.WriteString("</p>")
		}

		if paraText != "" {
			if text.Len() > 0 {
				text.WriteString("\n\n")
			}
			text.WriteString(paraText)
		}
	}

	out.Text = text.String()
	out.HTML = b.String()
	if skipped > 0 {
		out.Meta.Warn(fmt.Sprintf("skipped %d unsupported body elements (tables or section breaks)", skipped))
	}
	if out.HTML == "" {
		out.HTML = "<p></p>"
		out.Meta.Warn("document contains no paragraphs")
	} else if out.Text == "" {
		out.Meta.Warn("document contains no text")
	}
	return out, nil
}

// renderImages emits an <img> per drawing in the paragraph's runs and
// registers the media bytes as assets. Missing archive parts degrade to
// a warning, never a failure.
func (p *DOCXParser) renderImages(doc *docx.Docx, para *docx.Paragraph, b *strings.Builder, out *normdoc.Document, imageIndex *int) {
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range run.Children {
			drawing, ok := rc.(*docx.Drawing)
			if !ok {
				continue
			}
			index := *imageIndex
			*imageIndex++

			asset, err := p.extractDrawing(doc, drawing, index)
			if err != nil {
				out.Meta.Warn(fmt.Sprintf("image %d: %v", index, err))
				asset = normdoc.Asset{Token: assets.Token(docxImageKind, index, "")}
			}
			out.Assets = append(out.Assets, asset)

			fmt.Fprintf(b, `<img src="asset://%s" data-asset-token="%s"`, asset.AssetID, asset.Token)
			if asset.WidthPx > 0 {
				fmt.Fprintf(b, ` width="%d"`, asset.WidthPx)
			}
			if asset.HeightPx > 0 {
				fmt.Fprintf(b, ` height="%d"`, asset.HeightPx)
			}
			b.WriteString("/>")
		}
	}
}

// extractDrawing resolves a drawing's relationship reference to the
// media part it embeds. Every pointer on the path is optional in the
// schema, so each hop is checked.
func (p *DOCXParser) extractDrawing(doc *docx.Docx, drawing *docx.Drawing, index int) (normdoc.Asset, error) {
	embedID, widthEMU, heightEMU, ok := drawingRef(drawing)
	if !ok {
		return normdoc.Asset{}, fmt.Errorf("drawing has no embedded picture reference")
	}

	target, err := doc.ReferTarget(embedID)
	if err != nil {
		return normdoc.Asset{}, fmt.Errorf("resolve relationship %s: %w", embedID, err)
	}
	name := strings.TrimPrefix(target, "media/")
	media := doc.Media(name)
	if media == nil || len(media.Data) == 0 {
		return normdoc.Asset{}, fmt.Errorf("media part %q not found in archive", target)
	}

	hash := assets.ContentHash(media.Data)
	mimeType := mimeForMediaName(name)
	asset := normdoc.Asset{
		Token:        assets.Token(docxImageKind, index, hash),
		AssetID:      hash,
		Bytes:        media.Data,
		MIME:         mimeType,
		OriginalName: assets.SanitizeFilename(name, mimeType),
	}
	if widthEMU > 0 {
		asset.WidthPx = assets.EMUToPx(widthEMU)
	}
	if heightEMU > 0 {
		asset.HeightPx = assets.EMUToPx(heightEMU)
	}
	return asset, nil
}

// drawingRef digs the r:embed id and extent out of either an inline or
// an anchored drawing.
func drawingRef(d *docx.Drawing) (embedID string, widthEMU, heightEMU int64, ok bool) {
	if d == nil {
		return "", 0, 0, false
	}
	if d.Inline != nil {
		if ext := d.Inline.Extent; ext != nil {
			widthEMU, heightEMU = ext.CX, ext.CY
		}
		embedID = blipEmbed(d.Inline.Graphic)
	} else if d.Anchor != nil {
		if ext := d.Anchor.Extent; ext != nil {
			widthEMU, heightEMU = ext.CX, ext.CY
		}
		embedID = blipEmbed(d.Anchor.Graphic)
	}
	return embedID, widthEMU, heightEMU, embedID != ""
}

func blipEmbed(g *docx.AGraphic) string {
	if g == nil || g.GraphicData == nil || g.GraphicData.Pic == nil {
		return ""
	}
	pic := g.GraphicData.Pic
	if pic.BlipFill == nil {
		return ""
	}
	return pic.BlipFill.Blip.Embed
}

func mimeForMediaName(name string) string {
	switch strings.ToLower(extOf(name)) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	case ".bmp":
		return "image/bmp"
	case ".tiff", ".tif":
		return "image/tiff"
	case ".svg":
		return "image/svg+xml"
	case ".emf":
		return "image/emf"
	case ".wmf":
		return "image/wmf"
	}
	return "application/octet-stream"
}

func extOf(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i:]
	}
	return ""
}

// docxHeadingLevel maps Word heading styles to HTML heading levels.
// Both the internal style ids ("Heading1") and the display names
// ("heading 1") occur in the wild.
func docxHeadingLevel(para *docx.Paragraph) int {
	if para.Properties == nil || para.Properties.Style == nil {
		return 0
	}
	style := strings.ToLower(strings.ReplaceAll(para.Properties.Style.Val, " ", ""))
	if !strings.HasPrefix(style, "heading") {
		return 0
	}
	switch style[len("heading"):] {
	case "1":
		return 1
	case "2":
		return 2
	case "3":
		return 3
	case "4":
		return 4
	case "5":
		return 5
	case "6":
		return 6
	}
	return 0
}

func docxParagraphText(para *docx.Paragraph) string {
	var buf strings.Builder
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range run.Children {
			if t, ok := rc.(*docx.Text); ok {
				buf.WriteString(t.Text)
			}
		}
	}
	return strings.TrimSpace(buf.String())
}
