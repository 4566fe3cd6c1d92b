// Package identity derives deterministic content-addressed identifiers from
// normalized text components. Identical semantic content always yields the
// identical identifier regardless of casing, punctuation, or Unicode form,
// which is what lets a re-imported copy of an entity merge instead of
// duplicating.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// IDLength is the number of digest bytes kept for an identifier.
const IDLength = 8

// separators are collapsed to spaces before tokenizing so that
// "AC/DC", "AC-DC", and "AC DC" normalize identically.
const separators = "/\\-_.:,&+"

// Normalize lower-cases a component, applies Unicode compatibility
// decomposition (NFKD), collapses separator punctuation to spaces, strips any
// remaining non-alphanumeric runes, and rejoins the surviving tokens with
// single spaces.
func Normalize(s string) string {
	s = strings.ToLower(s)
	s = norm.NFKD.String(s)

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case strings.ContainsRune(separators, r):
			b.WriteRune(' ')
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ':
			b.WriteRune(r)
		}
		// Everything else, combining marks included, is dropped.
	}

	return strings.Join(strings.Fields(b.String()), " ")
}

// digest hashes the normalized components, NUL-separated, and returns the
// truncated digest.
func digest(components []string) []byte {
	parts := make([]string, len(components))
	for i, c := range components {
		parts[i] = Normalize(c)
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return sum[:IDLength]
}

// Binary returns the raw 8-byte identifier for the given components.
// Used as the storage key for Directory and File rows.
func Binary(components ...string) []byte {
	return digest(components)
}

// Hex returns the 16-character hex identifier for the given components.
// Used for all domain graph entities and consumed verbatim by API URLs.
func Hex(components ...string) string {
	return hex.EncodeToString(digest(components))
}
