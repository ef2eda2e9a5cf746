package parser

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dgallion1/docnorm/internal/extractor"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// DefaultLineGapFactor is the PDF line-break heuristic: a vertical gap
// between consecutive text items larger than this fraction of the
// current font height is treated as a line break. Empirically tuned;
// it does not claim to generalize to every font/layout combination.
const DefaultLineGapFactor = 0.8

// DefaultFetchTimeout bounds the best-effort remote image fetch.
const DefaultFetchTimeout = 10 * time.Second

// defaultMaxAssetBytes caps a single fetched or decoded asset (16 MB).
const defaultMaxAssetBytes = 16 << 20

// FetchFunc resolves a remote asset URL to bytes and a MIME type. It
// is injected so the HTML parser stays testable without network
// access; a failure degrades the asset, never the parse.
type FetchFunc func(ctx context.Context, url string) ([]byte, string, error)

// Options is the immutable per-call configuration threaded into every
// parser. Build it once (DefaultOptions) and share it; parsers never
// mutate it.
type Options struct {
	// Markdown renders GitHub-flavored markdown. Safe for concurrent use.
	Markdown goldmark.Markdown

	// Fetch materializes remote image references. Nil disables
	// fetching; such assets stay unresolved with SourceURL set.
	Fetch FetchFunc

	// DocExtractor and ODTExtractor are the external structural-text
	// extractors for legacy DOC and ODT. Nil or unavailable means the
	// format is unsupported in this deployment.
	DocExtractor extractor.TextExtractor
	ODTExtractor extractor.TextExtractor

	// LineGapFactor overrides DefaultLineGapFactor when > 0.
	LineGapFactor float64

	// MaxAssetBytes caps a single asset; <= 0 uses the default.
	MaxAssetBytes int64
}

func (o Options) lineGapFactor() float64 {
	if o.LineGapFactor > 0 {
		return o.LineGapFactor
	}
	return DefaultLineGapFactor
}

func (o Options) maxAssetBytes() int64 {
	if o.MaxAssetBytes > 0 {
		return o.MaxAssetBytes
	}
	return defaultMaxAssetBytes
}

// DefaultOptions builds the standard configuration: GFM markdown with
// soft line breaks, an HTTP fetcher with a bounded timeout, and the
// conventional external extractors (antiword, odt2txt) when present.
func DefaultOptions() Options {
	return Options{
		Markdown: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(html.WithXHTML()),
		),
		Fetch: HTTPFetcher(DefaultFetchTimeout),
		DocExtractor: &extractor.ExecExtractor{
			Command: "antiword",
			Pattern: "docnorm-*.doc",
		},
		ODTExtractor: &extractor.ExecExtractor{
			Command: "odt2txt",
			Pattern: "docnorm-*.odt",
		},
	}
}

// HTTPFetcher returns a FetchFunc backed by net/http with the given
// timeout. The response body is size-capped by the caller.
func HTTPFetcher(timeout time.Duration) FetchFunc {
	client := &http.Client{Timeout: timeout}
	return func(ctx context.Context, url string) ([]byte, string, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, "", err
		}
		resp, err := client.Do(req)
		if err != nil {
			return nil, "", err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, "", fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
		}
		data, err := io.ReadAll(io.LimitReader(resp.Body, defaultMaxAssetBytes+1))
		if err != nil {
			return nil, "", err
		}
		if int64(len(data)) > defaultMaxAssetBytes {
			return nil, "", fmt.Errorf("fetch %s: asset exceeds %d bytes", url, int64(defaultMaxAssetBytes))
		}
		return data, resp.Header.Get("Content-Type"), nil
	}
}
