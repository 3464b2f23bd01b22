// Package plate locates Spanish vehicle-plate tokens (4 digits + 3 consonant
// letters, vowels and Q excluded) in noisy document text and in file names.
package plate

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/fleetops/multas-tracker/internal/textutil"
)

const (
	windowBefore = 120
	windowSpan   = 800
)

var (
	// 4 digits + 3 consonants, tolerant of spaces/dashes between the groups.
	rxCore = regexp.MustCompile(`\b\d{4}\s*-?\s*[BCDFGHJKLMNPRSTVWXYZ]{3}\b`)

	// Loose variant: every digit/letter may be separated (noisy sources).
	rxLoose = regexp.MustCompile(
		`\d\s*-?\s*\d\s*-?\s*\d\s*-?\s*\d\s*-?\s*[BCDFGHJKLMNPRSTVWXYZ]\s*-?\s*[BCDFGHJKLMNPRSTVWXYZ]\s*-?\s*[BCDFGHJKLMNPRSTVWXYZ]`)

	// Strict pattern over compacted text.
	rxStrictCompact = regexp.MustCompile(`\d{4}[BCDFGHJKLMNPRSTVWXYZ]{3}`)
	rxStrictExact   = regexp.MustCompile(`^\d{4}[BCDFGHJKLMNPRSTVWXYZ]{3}$`)

	rxNonAlnum = regexp.MustCompile(`[^A-Z0-9]`)

	// Plate and optional duplicate suffix encoded in a file name.
	rxFilename = regexp.MustCompile(`(\d{4}[BCDFGHJKLMNPRSTVWXYZ]{3})(_\d+)?$`)
)

func clean(raw string) string {
	return rxNonAlnum.ReplaceAllString(raw, "")
}

// Find returns the first plausible plate token in text, or "".
// It prefers hits near a MATRICULA anchor, then a global strict search, then a
// strict match over the fully compacted text.
func Find(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	norm := strings.ToUpper(textutil.Normalize(text))

	// 1) Windows around "MATRÍCULA"/"MATRICULA".
	for _, key := range []string{"MATRICULA", "MATRÍCULA"} {
		idx := strings.Index(norm, key)
		for idx >= 0 {
			start := max(0, idx-windowBefore)
			end := min(len(norm), start+windowSpan)
			if m := rxCore.FindString(norm[start:end]); m != "" {
				return clean(m)
			}
			next := strings.Index(norm[idx+len(key):], key)
			if next < 0 {
				break
			}
			idx += len(key) + next
		}
	}

	// 2) Global strict search.
	if m := rxCore.FindString(norm); m != "" {
		return clean(m)
	}

	// 3) Fallback: strict pattern over compacted text.
	compact := clean(strings.ToUpper(text))
	return rxStrictCompact.FindString(compact)
}

// FindLoose is the Benalmádena-specific variant: tolerant of arbitrary
// separators between every digit/letter. Loose hits are only accepted when
// they re-compact to a strict plate.
func FindLoose(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	norm := strings.ToUpper(textutil.RemoveDiacritics(text))

	// 1) Line by line: "MATRICULA .... 1234 BCD".
	for _, raw := range strings.Split(norm, "\n") {
		line := textutil.Normalize(raw)
		if strings.Contains(line, "MATRICULA") {
			if m := rxCore.FindString(line); m != "" {
				return clean(m)
			}
		}
	}

	// 2) Loose pattern in a window around the first anchor.
	if idx := strings.Index(norm, "MATRICULA"); idx >= 0 {
		start := max(0, idx-windowBefore)
		end := min(len(norm), start+windowSpan)
		if m := rxLoose.FindString(norm[start:end]); m != "" {
			if compact := clean(m); rxStrictExact.MatchString(compact) {
				return compact
			}
		}
	}

	// 3) Global fallback over compacted text.
	return rxStrictCompact.FindString(clean(norm))
}

// IsValid reports whether s is a canonical 7-character plate token.
func IsValid(s string) bool {
	return rxStrictExact.MatchString(s)
}

// FromFilename parses the plate and the verbatim duplicate suffix (e.g. "_2")
// encoded in a file name like "AYTO BENALMADENA_9371MGF_2.pdf".
func FromFilename(name string) (plate, dupSuffix string) {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	if m := rxFilename.FindStringSubmatch(strings.ToUpper(base)); m != nil {
		return m[1], m[2]
	}
	// Legacy shape: plate is whatever follows the last underscore.
	if i := strings.LastIndex(base, "_"); i >= 0 {
		return strings.TrimSpace(base[i+1:]), ""
	}
	return strings.TrimSpace(base), ""
}
