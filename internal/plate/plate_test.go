package plate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFindAnchored(t *testing.T) {
	text := "Expediente 2025/443 MATRÍCULA: 9371 MGF Titular DESCONOCIDO"
	assert.Equal(t, "9371MGF", Find(text))
}

func TestFindToleratesSeparators(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"dash separated", "matricula 9371-MGF", "9371MGF"},
		{"spaced", "MATRICULA   9371   MGF", "9371MGF"},
		{"global without anchor", "vehículo sancionado 4812 KTR en vía urbana", "4812KTR"},
		{"compacted fallback", "m.a.t 4:8:1:2:K,T,R fin", "4812KTR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Find(tt.in))
		})
	}
}

func TestFindRejectsExcludedLetters(t *testing.T) {
	// Vowels and Q are not valid plate letters.
	assert.Equal(t, "", Find("matricula 1234 AEI"))
	assert.Equal(t, "", Find("matricula 1234 QQQ"))
	assert.Equal(t, "", Find(""))
}

func TestFindAnchoredSkipsInvalidTokens(t *testing.T) {
	// The vowel token near the anchor is not a plate; the real one wins.
	text := "ref 1111 AEI ... MATRICULA 9371 MGF"
	assert.Equal(t, "9371MGF", Find(text))
}

func TestFindLoose(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"line with label", "AYTO\nMATRÍCULA ... 9371 MGF\notros", "9371MGF"},
		{"heavily separated", "MATRICULA 9 3 7 1 - M G F", "9371MGF"},
		{"fallback compact", "sin etiqueta 4812KTR", "4812KTR"},
		{"rejects vowels", "MATRICULA 1 2 3 4 A E I", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FindLoose(tt.in))
		})
	}
}

func TestFromFilename(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		plate   string
		suffix  string
	}{
		{"plain", "AYUNTAMIENTO DE BENALMADENA_9371MGF.pdf", "9371MGF", ""},
		{"duplicate suffix", "DGT_4812KTR_2.pdf", "4812KTR", "_2"},
		{"no plate falls back to last token", "ORGANISMO_SINPLACA.pdf", "SINPLACA", ""},
		{"bare name", "documento.pdf", "documento", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, s := FromFilename(tt.file)
			assert.Equal(t, tt.plate, p)
			assert.Equal(t, tt.suffix, s)
		})
	}
}
