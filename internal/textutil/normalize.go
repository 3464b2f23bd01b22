// Package textutil canonicalizes OCR-noisy Spanish document text so the
// extraction heuristics can match against a stable form.
package textutil

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	wsRun = regexp.MustCompile(`\s+`)

	// NFD, drop combining marks, recompose.
	deaccent = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
)

// Normalize collapses all whitespace runs (including non-breaking and narrow
// variants) to single spaces, maps interpunct variants to a period, and trims.
// Empty input yields empty output.
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	r := strings.NewReplacer(
		" ", " ", // no-break space
		" ", " ", // figure space
		" ", " ", // narrow no-break space
		"·", ".", // middle dot
		"‧", ".", // hyphenation point
	)
	return strings.TrimSpace(wsRun.ReplaceAllString(r.Replace(s), " "))
}

// RemoveDiacritics strips combining marks but keeps spacing and all other
// characters intact.
func RemoveDiacritics(s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}
	out, _, err := transform.String(deaccent, s)
	if err != nil {
		return s
	}
	return out
}

// NormalizeAggressively strips diacritics, removes all whitespace and
// uppercases. Used for prefix/contains comparisons that must ignore accents
// and spacing entirely.
func NormalizeAggressively(s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}
	stripped := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, RemoveDiacritics(s))
	return strings.ToUpper(stripped)
}

// ContainsNormalized reports whether haystack contains needle once both are
// aggressively normalized.
func ContainsNormalized(haystack, needle string) bool {
	return strings.Contains(NormalizeAggressively(haystack), NormalizeAggressively(needle))
}

// StartsWithNormalized reports whether haystack starts with prefix once both
// are aggressively normalized.
func StartsWithNormalized(haystack, prefix string) bool {
	return strings.HasPrefix(NormalizeAggressively(haystack), NormalizeAggressively(prefix))
}

// SanitizeFileName replaces filesystem-invalid characters with '_' and
// collapses whitespace runs to single spaces.
func SanitizeFileName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, ch := range name {
		if ch < 0x20 || strings.ContainsRune(`<>:"/\|?*`, ch) {
			b.WriteRune('_')
			continue
		}
		b.WriteRune(ch)
	}
	return strings.TrimSpace(wsRun.ReplaceAllString(b.String(), " "))
}
