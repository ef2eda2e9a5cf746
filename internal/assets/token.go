// Package assets holds the pure primitives shared by all parsers:
// content hashing, deterministic token derivation, filename and font
// sanitation, and source-unit conversion. Nothing in here keeps state
// between calls, which is what keeps re-ingested parses idempotent.
package assets

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ContentHash returns the hex SHA-256 of raw asset bytes. Two
// byte-identical images anywhere in a document share this value.
func ContentHash(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Token derives the stable position identifier for an asset. It is a
// pure function of (sourceKind, index) plus a content-hash prefix when
// bytes were available, so retried parses of identical input emit
// identical token sequences.
func Token(sourceKind string, index int, contentHash string) string {
	if contentHash != "" {
		short := contentHash
		if len(short) > 12 {
			short = short[:12]
		}
		return fmt.Sprintf("%s-%d-%s", sourceKind, index, short)
	}
	return fmt.Sprintf("%s-%d", sourceKind, index)
}
