package extract

import (
	"regexp"
	"strings"

	"github.com/fleetops/multas-tracker/constants"
)

// Fuengirola extracts from Ayuntamiento de Fuengirola notices.
type Fuengirola struct{}

var (
	rxFuenLabel = regexp.MustCompile(
		`(?i)Fecha\s*y\s*hora\s*(\d{2}/\d{2}/\d{4})\s+(\d{1,2})[:.](\d{2})`)
	rxFuenTime = regexp.MustCompile(`\b(\d{1,2})\s*[:.]\s*(\d{2})\b`)
	rxFuenNear = regexp.MustCompile(`(\d{2}/\d{2}/\d{4}).{0,60}?(\d{1,2})\s*[:.]\s*(\d{2})\b`)
)

func (Fuengirola) Name() string { return constants.AuthorityFuengirola }

func (Fuengirola) Recognizes(fileName string) bool {
	return containsAny(fileName, "AYUNTAMIENTO DE FUENGIROLA")
}

func (f Fuengirola) TryExtract(fullText string, lines []string) (Result, bool) {
	if r, ok := f.fromLabel(fullText); ok {
		return r, true
	}

	for _, line := range lines {
		if containsAny(line, "Fecha y hora") {
			if r, ok := f.fromLabel(line); ok {
				return r, true
			}
		}

		ld := rxDate.FindStringSubmatch(line)
		lt := rxFuenTime.FindStringSubmatch(line)
		if ld != nil && lt != nil {
			if t, ok := formatTime(lt[1], lt[2]); ok {
				return f.result(ld[1], t), true
			}
		}

		if near := rxFuenNear.FindStringSubmatch(line); near != nil {
			if t, ok := formatTime(near[2], near[3]); ok {
				return f.result(near[1], t), true
			}
		}
	}

	// Window after the institution header when everything comes as one block.
	idx := strings.Index(strings.ToLower(fullText), strings.ToLower("Institución Ayuntamiento de Fuengirola"))
	if idx >= 0 {
		end := min(len(fullText), idx+800)
		if r, ok := f.fromLabel(fullText[idx:end]); ok {
			return r, true
		}
	}

	return Result{}, false
}

func (f Fuengirola) fromLabel(s string) (Result, bool) {
	m := rxFuenLabel.FindStringSubmatch(s)
	if m == nil {
		return Result{}, false
	}
	t, ok := formatTime(m[2], m[3])
	if !ok {
		return Result{}, false
	}
	return f.result(m[1], t), true
}

func (f Fuengirola) result(date, t string) Result {
	return Result{Date: cleanDate(date), Time: t, Extractor: f.Name()}
}
