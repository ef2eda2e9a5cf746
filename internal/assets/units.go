package assets

import "math"

// Source measurement units, converted to CSS pixels at 96 DPI.
//
// twips: 1/20 of a point (RTF paragraph indents and margins).
// half-points: RTF \fs font sizes.
// EMUs: 1/914400 inch (DOCX drawing extents).
const (
	twipsPerInch = 1440.0
	emusPerInch  = 914400.0
	pxPerInch    = 96.0
	pxPerPoint   = pxPerInch / 72.0
)

// TwipsToPx converts twips to whole CSS pixels.
func TwipsToPx(twips int) int {
	return int(math.Round(float64(twips) / twipsPerInch * pxPerInch))
}

// HalfPointsToPx converts an RTF half-point font size to CSS pixels.
func HalfPointsToPx(halfPoints int) float64 {
	return float64(halfPoints) / 2.0 * pxPerPoint
}

// PointsToPx converts typographic points to CSS pixels.
func PointsToPx(points float64) float64 {
	return points * pxPerPoint
}

// EMUToPx converts DOCX English Metric Units to whole CSS pixels.
func EMUToPx(emu int64) int {
	return int(math.Round(float64(emu) / emusPerInch * pxPerInch))
}
