package extract

import (
	"regexp"

	"github.com/fleetops/multas-tracker/constants"
)

// DGT extracts from national traffic authority notices. DGT layouts are
// standardized, so a single strict anchored pattern is the whole contract:
// "FECHA Y HORA DE LA INFRACCIÓN: dd/mm/yyyy - hh:mm h".
type DGT struct{}

var rxDGT = regexp.MustCompile(
	`(?i)FECHA\s+Y\s+HORA\s+DE\s+LA\s+INFRACCI[ÓO]N:\s*(\d{2}\s*/\s*\d{2}\s*/\s*\d{4})\s*[-–—]\s*(\d{2}\s*:\s*\d{2})\s*h`)

func (DGT) Name() string { return constants.AuthorityDGT }

func (DGT) Recognizes(fileName string) bool {
	return containsAny(fileName, "DIRECCIÓN GENERAL DE TRÁFICO", "DIRECCION GENERAL DE TRAFICO")
}

func (d DGT) TryExtract(fullText string, _ []string) (Result, bool) {
	m := rxDGT.FindStringSubmatch(fullText)
	if m == nil {
		return Result{}, false
	}
	return Result{Date: cleanDate(m[1]), Time: cleanTime(m[2]), Extractor: d.Name()}, true
}
