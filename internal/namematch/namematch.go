// Package namematch fuzzy-matches player names returned by external sources
// against stored athlete names. External APIs return transliterated or
// truncated spellings ("A. Guler", "Kilicsoy"), so matching folds the
// Turkish alphabet to ASCII and compares both containment and shared tokens.
package namematch

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Turkish characters whose NFD decomposition does not reduce to ASCII
// (dotless i) or that providers transliterate inconsistently.
var turkishFold = strings.NewReplacer(
	"ğ", "g", "Ğ", "g",
	"ü", "u", "Ü", "u",
	"ş", "s", "Ş", "s",
	"ı", "i", "İ", "i",
	"ö", "o", "Ö", "o",
	"ç", "c", "Ç", "c",
)

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Fold lowercases a name and reduces it to its ASCII skeleton: Turkish
// letters are folded explicitly, then any remaining combining marks are
// stripped.
func Fold(s string) string {
	s = turkishFold.Replace(strings.TrimSpace(s))
	if out, _, err := transform.String(stripMarks, s); err == nil {
		s = out
	}
	return strings.ToLower(s)
}

// Match reports whether an external name and a stored athlete name refer to
// the same player. Either folded name containing the other matches, as does
// any shared whitespace token longer than 3 runes — this permits "A. Güler"
// vs "Arda Guler" and last-name-only API responses.
//
// Known trade-off: short common surnames can false-positive. The roster is
// a curated few dozen athletes, which keeps collisions unlikely; do not
// tighten this without revisiting that assumption.
func Match(external, stored string) bool {
	a := Fold(external)
	b := Fold(stored)
	if a == "" || b == "" {
		return false
	}

	if strings.Contains(a, b) || strings.Contains(b, a) {
		return true
	}

	bTokens := make(map[string]bool)
	for _, tok := range strings.Fields(b) {
		if len(tok) > 3 {
			bTokens[tok] = true
		}
	}
	for _, tok := range strings.Fields(a) {
		if len(tok) > 3 && bTokens[tok] {
			return true
		}
	}
	return false
}

// QueryVariants produces progressively looser search queries for a stored
// name: full name, last name alone, their ASCII-folded forms, then any
// known aliases. Duplicates are removed, order preserved, so callers can
// retry a name-search API until one query hits.
func QueryVariants(name string, aliases []string) []string {
	var variants []string
	seen := make(map[string]bool)
	add := func(v string) {
		v = strings.TrimSpace(v)
		if v != "" && !seen[v] {
			seen[v] = true
			variants = append(variants, v)
		}
	}

	add(name)
	parts := strings.Fields(name)
	if len(parts) > 1 {
		add(parts[len(parts)-1])
	}
	add(Fold(name))
	if len(parts) > 1 {
		add(Fold(parts[len(parts)-1]))
	}
	for _, alias := range aliases {
		add(alias)
	}
	return variants
}
