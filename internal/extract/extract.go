// Package extract derives the (date, time) pair of a traffic infraction from
// unstructured document text. One extractor per issuing authority; each tries
// its layout heuristics in order and stops at the first hit.
package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Result is the outcome of a successful extraction.
// Date is dd/MM/yyyy, Time is HH:mm.
type Result struct {
	Date      string
	Time      string
	Extractor string
}

// Extractor is the per-authority capability: a recognition predicate over the
// document's file name, and an extraction attempt over its text.
// TryExtract must never panic on malformed input.
type Extractor interface {
	Name() string
	Recognizes(fileName string) bool
	TryExtract(fullText string, lines []string) (Result, bool)
}

var (
	wsAll  = regexp.MustCompile(`\s+`)
	rxDate = regexp.MustCompile(`\b(\d{2}/\d{2}/\d{4})\b`)
	rxTime = regexp.MustCompile(`\b(\d{1,2})\s*[:.]\s*(\d{2})(?:\s*[A-Za-z])?\b`)
)

// cleanDate removes internal whitespace and normalizes dash separators to
// slashes.
func cleanDate(s string) string {
	return strings.ReplaceAll(wsAll.ReplaceAllString(s, ""), "-", "/")
}

// cleanTime removes internal whitespace and normalizes period separators to
// colons.
func cleanTime(s string) string {
	return strings.ReplaceAll(wsAll.ReplaceAllString(s, ""), ".", ":")
}

// formatTime validates the hour range and renders HH:mm.
func formatTime(hourStr, minStr string) (string, bool) {
	h, err := strconv.Atoi(hourStr)
	if err != nil || h < 0 || h > 23 {
		return "", false
	}
	return fmt.Sprintf("%02d:%s", h, minStr), true
}

func containsAny(haystack string, needles ...string) bool {
	low := strings.ToLower(haystack)
	for _, n := range needles {
		if strings.Contains(low, strings.ToLower(n)) {
			return true
		}
	}
	return false
}
