package extract

import (
	"regexp"
	"strings"

	"github.com/fleetops/multas-tracker/constants"
)

// Benalmadena extracts from Ayuntamiento de Benalmádena notices. The layout
// varies a lot between batches, so the strategy chain is long.
type Benalmadena struct{}

var (
	rxBenalLabel = regexp.MustCompile(
		`(?i)Fecha\s*y\s*hora\s+(\d{2}/\d{2}/\d{4})\s+(\d{1,2})[:.](\d{2})(?:\s*[A-Za-z])?`)
	rxBenalNear = regexp.MustCompile(
		`(\d{2}/\d{2}/\d{4}).{0,60}?(\d{1,2})\s*[:.]\s*(\d{2})(?:\s*[A-Za-z])?`)
)

func (Benalmadena) Name() string { return constants.AuthorityBenalmadena }

func (Benalmadena) Recognizes(fileName string) bool {
	return containsAny(fileName,
		"AYUNTAMIENTO DE BENALMÁDENA",
		"AYUNTAMIENTO DE BENALMADENA",
		"AYTO. DE BENALMÁDENA",
		"AYTO. DE BENALMADENA",
		"BENALMÁDENA",
		"BENALMADENA")
}

func (b Benalmadena) TryExtract(fullText string, lines []string) (Result, bool) {
	// 1) Label anchored in the full text: "Fecha y hora 27/07/2025 11:34".
	if r, ok := b.fromLabel(fullText); ok {
		return r, true
	}

	// 2) Same label line by line, for readers that split label and value.
	for _, line := range lines {
		if r, ok := b.fromLabel(line); ok {
			return r, true
		}
	}

	// 3) Bare date + time on the same line, with or without proximity.
	for _, line := range lines {
		ld := rxDate.FindStringSubmatch(line)
		lt := rxTime.FindStringSubmatch(line)
		if ld != nil && lt != nil {
			if t, ok := formatTime(lt[1], lt[2]); ok {
				return b.result(ld[1], t), true
			}
		}
		if near := rxBenalNear.FindStringSubmatch(line); near != nil {
			if t, ok := formatTime(near[2], near[3]); ok {
				return b.result(near[1], t), true
			}
		}
	}

	// 4) Window after an institution marker, when the text comes as one block.
	idx := strings.Index(strings.ToLower(fullText), "institución")
	if idx < 0 {
		idx = strings.Index(strings.ToLower(fullText), "institucion")
	}
	if idx >= 0 {
		end := min(len(fullText), idx+1000)
		window := fullText[idx:end]
		if r, ok := b.fromLabel(window); ok {
			return r, true
		}
		if wd := rxDate.FindStringSubmatchIndex(window); wd != nil {
			rest := window[wd[1]:]
			if wt := rxTime.FindStringSubmatch(rest); wt != nil {
				if t, ok := formatTime(wt[1], wt[2]); ok {
					return b.result(window[wd[2]:wd[3]], t), true
				}
			}
		}
	}

	return Result{}, false
}

func (b Benalmadena) fromLabel(s string) (Result, bool) {
	m := rxBenalLabel.FindStringSubmatch(s)
	if m == nil {
		return Result{}, false
	}
	t, ok := formatTime(m[2], m[3])
	if !ok {
		return Result{}, false
	}
	return b.result(m[1], t), true
}

func (b Benalmadena) result(date, t string) Result {
	return Result{Date: cleanDate(date), Time: t, Extractor: b.Name()}
}
