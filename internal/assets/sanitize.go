package assets

import (
	"mime"
	"path/filepath"
	"strings"
)

// SanitizeFilename strips path components and characters that are not
// safe in a stored object name, and makes the extension agree with the
// asset's MIME type when one is known.
func SanitizeFilename(name, mimeType string) string {
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")

	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	name = strings.Trim(b.String(), "._")
	if name == "" {
		name = "asset"
	}

	if want := extensionFor(mimeType); want != "" {
		if !strings.EqualFold(filepath.Ext(name), want) {
			name = strings.TrimSuffix(name, filepath.Ext(name)) + want
		}
	}
	return name
}

// extensionFor picks a canonical extension for the common image MIME
// types; mime.ExtensionsByType is ambiguous for jpeg.
func extensionFor(mimeType string) string {
	switch mimeType {
	case "":
		return ""
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/svg+xml":
		return ".svg"
	case "image/webp":
		return ".webp"
	}
	if exts, err := mime.ExtensionsByType(mimeType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ""
}

// SanitizeFontFamily reduces a source font name to something safe to
// embed in a CSS font-family declaration.
func SanitizeFontFamily(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '-':
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}
