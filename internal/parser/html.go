package parser

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/dgallion1/docnorm/internal/assets"
	"github.com/dgallion1/docnorm/internal/normdoc"
)

// HTMLParser passes source markup through mostly verbatim so that
// in-place translation stays faithful to the original structure. Two
// transformations are applied: script/style/noscript removal, and
// image extraction into the asset registry with a data-asset-token
// annotation left on each <img> for the rendering layer to resolve.
type HTMLParser struct{}

const htmlImageKind = "html-img"

func (p *HTMLParser) Parse(ctx context.Context, data []byte, filename string, opts Options) (*normdoc.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, malformedf(normdoc.FormatHTML, "parse html: %w", err)
	}

	out := &normdoc.Document{
		Meta: normdoc.Metadata{
			Format:       normdoc.FormatHTML,
			HasStructure: true,
		},
	}

	doc.Find("script, style, noscript").Remove()

	doc.Find("img").Each(func(i int, sel *goquery.Selection) {
		asset := p.resolveImage(ctx, i, sel, opts, &out.Meta)
		sel.SetAttr("data-asset-token", asset.Token)
		out.Assets = append(out.Assets, asset)
	})

	body := doc.Find("body")
	fragment, err := body.Html()
	if err != nil {
		return nil, malformedf(normdoc.FormatHTML, "render html: %w", err)
	}
	out.HTML = strings.TrimSpace(fragment)

	if nodes := body.Nodes; len(nodes) > 0 {
		out.Text = nodeText(nodes[0])
	}

	if out.Text == "" {
		out.Meta.Warn("document contains no text")
	}
	if out.HTML == "" {
		out.HTML = "<p></p>"
	}
	return out, nil
}

// resolveImage materializes one <img> into an Asset. Resolution
// failure is never fatal: the asset is kept as an unresolved reference
// with SourceURL set and the parse continues.
func (p *HTMLParser) resolveImage(ctx context.Context, index int, sel *goquery.Selection, opts Options, meta *normdoc.Metadata) normdoc.Asset {
	src, _ := sel.Attr("src")
	alt, _ := sel.Attr("alt")

	asset := normdoc.Asset{AltText: alt}
	if v, ok := sel.Attr("translate"); ok && strings.EqualFold(v, "no") {
		asset.KeepOriginalLanguage = true
	}
	if w, ok := sel.Attr("width"); ok {
		if n, err := strconv.Atoi(w); err == nil {
			asset.WidthPx = n
		}
	}
	if h, ok := sel.Attr("height"); ok {
		if n, err := strconv.Atoi(h); err == nil {
			asset.HeightPx = n
		}
	}

	switch {
	case strings.HasPrefix(src, "data:"):
		mimeType, raw, err := decodeDataURI(src, opts.maxAssetBytes())
		if err != nil {
			meta.Warn(fmt.Sprintf("image %d: undecodable data uri: %v", index, err))
		} else {
			asset.Bytes = raw
			asset.AssetID = assets.ContentHash(raw)
			asset.MIME = mimeType
			asset.OriginalName = assets.SanitizeFilename(fmt.Sprintf("inline-%d", index), mimeType)
		}

	case strings.HasPrefix(src, "http://"), strings.HasPrefix(src, "https://"):
		asset.SourceURL = src
		asset.OriginalName = assets.SanitizeFilename(urlBasename(src), "")
		if opts.Fetch != nil {
			if raw, mimeType, err := opts.Fetch(ctx, src); err != nil {
				meta.Warn(fmt.Sprintf("image %d: fetch failed, kept as reference: %v", index, err))
			} else {
				asset.Bytes = raw
				asset.AssetID = assets.ContentHash(raw)
				asset.MIME = mimeType
				asset.OriginalName = assets.SanitizeFilename(urlBasename(src), mimeType)
			}
		}

	default:
		// Relative or unscheme'd reference: nothing to resolve against.
		asset.SourceURL = src
		asset.OriginalName = assets.SanitizeFilename(urlBasename(src), "")
		if src != "" {
			meta.Warn(fmt.Sprintf("image %d: relative reference %q left unresolved", index, src))
		}
	}

	asset.Token = assets.Token(htmlImageKind, index, asset.AssetID)
	return asset
}

// decodeDataURI decodes a data: URI into (mime, bytes).
func decodeDataURI(uri string, maxBytes int64) (string, []byte, error) {
	rest := strings.TrimPrefix(uri, "data:")
	comma := strings.IndexByte(rest, ',')
	if comma < 0 {
		return "", nil, fmt.Errorf("missing comma separator")
	}
	meta, payload := rest[:comma], rest[comma+1:]

	mimeType := "text/plain"
	isBase64 := false
	for i, part := range strings.Split(meta, ";") {
		if i == 0 && part != "" {
			mimeType = part
			continue
		}
		if part == "base64" {
			isBase64 = true
		}
	}

	var raw []byte
	var err error
	if isBase64 {
		raw, err = base64.StdEncoding.DecodeString(payload)
	} else {
		var s string
		s, err = url.PathUnescape(payload)
		raw = []byte(s)
	}
	if err != nil {
		return "", nil, err
	}
	if int64(len(raw)) > maxBytes {
		return "", nil, fmt.Errorf("decoded asset exceeds %d bytes", maxBytes)
	}
	return mimeType, raw, nil
}

func urlBasename(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Path == "" || u.Path == "/" {
		return "image"
	}
	return path.Base(u.Path)
}
