// Package normalize provides text folding shared by every matching backend,
// so the store, the search index and in-memory filters agree on what
// "case-insensitive" means.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Fold returns s in a canonical, case-folded form suitable for
// case-insensitive comparison. Composition is normalized first so that
// "é" typed as one code point and as e + combining accent fold the same.
func Fold(s string) string {
	return cases.Fold().String(norm.NFC.String(s))
}

// ContainsFold reports whether substr occurs in s, ignoring case.
// The token is literal: no character has wildcard meaning.
func ContainsFold(s, substr string) bool {
	return strings.Contains(Fold(s), Fold(substr))
}

// IsBlank reports whether s is empty or only whitespace.
func IsBlank(s string) bool {
	return strings.TrimFunc(s, unicode.IsSpace) == ""
}

// Name trims surrounding whitespace and collapses internal runs of
// whitespace to a single space.
func Name(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
