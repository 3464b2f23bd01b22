package extract

import (
	"regexp"

	"github.com/fleetops/multas-tracker/constants"
)

// Malaga extracts from Ayuntamiento de Málaga notices. Málaga documents carry
// no reliable label, so everything is proximity based.
type Malaga struct{}

var rxMalagaNear = regexp.MustCompile(
	`(\d{2}/\d{2}/\d{4}).{0,40}?(\d{1,2})\s*[:.]\s*(\d{2})(?:\s*[A-Za-z])?\b`)

func (Malaga) Name() string { return constants.AuthorityMalaga }

func (Malaga) Recognizes(fileName string) bool {
	return containsAny(fileName, "AYUNTAMIENTO DE MÁLAGA", "AYUNTAMIENTO DE MALAGA")
}

func (m Malaga) TryExtract(fullText string, lines []string) (Result, bool) {
	for _, line := range lines {
		ld := rxDate.FindStringSubmatch(line)
		lt := rxTime.FindStringSubmatch(line)
		if ld != nil && lt != nil {
			if t, ok := formatTime(lt[1], lt[2]); ok {
				return m.result(ld[1], t), true
			}
		}

		if near := rxMalagaNear.FindStringSubmatch(line); near != nil {
			if t, ok := formatTime(near[2], near[3]); ok {
				return m.result(near[1], t), true
			}
		}
	}

	// Fallback: a time within 240 chars after any date in the full text.
	for _, loc := range rxDate.FindAllStringSubmatchIndex(fullText, -1) {
		start := loc[1]
		if start >= len(fullText) {
			break
		}
		end := min(len(fullText), start+240)
		if tm := rxTime.FindStringSubmatch(fullText[start:end]); tm != nil {
			if t, ok := formatTime(tm[1], tm[2]); ok {
				return m.result(fullText[loc[2]:loc[3]], t), true
			}
		}
	}

	return Result{}, false
}

func (m Malaga) result(date, t string) Result {
	return Result{Date: cleanDate(date), Time: t, Extractor: m.Name()}
}
