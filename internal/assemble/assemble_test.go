package assemble

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetops/multas-tracker/internal/reconcile"
)

func TestFolderName(t *testing.T) {
	tests := []struct {
		name string
		in   Naming
		want string
	}{
		{
			"both present with match",
			Naming{Plate: "9371MGF", Date: "27/07/2025", Time: "11:34", MatchFound: true},
			"9371MGF-27072025-1134",
		},
		{
			"no date no time",
			Naming{Plate: "9371MGF", MatchFound: true},
			"9371MGF-sin fecha ni hora",
		},
		{
			"missing date",
			Naming{Plate: "9371MGF", Time: "11:34", MatchFound: true},
			"9371MGF-sin fecha-1134",
		},
		{
			"missing time",
			Naming{Plate: "9371MGF", Date: "27/07/2025", MatchFound: true},
			"9371MGF-27072025-sin hora",
		},
		{
			"no match suffix",
			Naming{Plate: "9371MGF", Date: "27/07/2025", Time: "11:34"},
			"9371MGF-27072025-1134 - contrato no encontrado",
		},
		{
			"duplicate suffix last",
			Naming{Plate: "9371MGF", DupSuffix: "_2"},
			"9371MGF-sin fecha ni hora - contrato no encontrado_2",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FolderName(tt.in))
			// Pure function: same inputs, byte-identical output.
			assert.Equal(t, FolderName(tt.in), FolderName(tt.in))
		})
	}
}

func writeFixture(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestAssembleWithoutMatch(t *testing.T) {
	root := t.TempDir()
	infraction := filepath.Join(root, "in", "DGT_9371MGF.pdf")
	writeFixture(t, infraction, "%PDF fake")

	a := New(filepath.Join(root, "contracts"), filepath.Join(root, "out"), nil)
	res, err := a.Assemble(infraction, Naming{Plate: "9371MGF", Date: "27/07/2025", Time: "11:34"}, nil)
	require.NoError(t, err)

	assert.Equal(t, "9371MGF-27072025-1134 - contrato no encontrado", filepath.Base(res.FolderPath))
	assert.FileExists(t, filepath.Join(res.FolderPath, "DGT_9371MGF.pdf"))

	// Only the infraction PDF is present.
	entries, err := os.ReadDir(res.FolderPath)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestAssembleWithHOCMatch(t *testing.T) {
	root := t.TempDir()
	infraction := filepath.Join(root, "in", "AYTO_9371MGF.pdf")
	writeFixture(t, infraction, "%PDF fake")

	contracts := filepath.Join(root, "contracts")
	old := filepath.Join(contracts, "05_CT-700.pdf")
	newest := filepath.Join(contracts, "05_CT-881_2.pdf")
	writeFixture(t, old, "%PDF old contract")
	writeFixture(t, newest, "%PDF new contract")
	past := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(old, past, past))

	hoc := "HOC-77"
	nat := "Alemana"
	match := &reconcile.ContractMatch{
		Branch:         "05",
		Customer:       "C1002",
		ContractNumber: "CT-881",
		ProgramCode:    &hoc,
		Nationality:    &nat,
	}

	a := New(contracts, filepath.Join(root, "out"), nil)
	res, err := a.Assemble(infraction,
		Naming{Plate: "9371MGF", Date: "27/07/2025", Time: "11:34", MatchFound: true}, match)
	require.NoError(t, err)

	assert.Equal(t, "9371MGF-27072025-1134", filepath.Base(res.FolderPath))

	// Duplicate suffix stripped from the copied contract name.
	assert.Equal(t, "05_CT-881.pdf", res.ContractPDF)
	assert.FileExists(t, filepath.Join(res.FolderPath, "05_CT-881.pdf"))

	// Populated HOC note with the three expected fields.
	require.Equal(t, "es hoc.txt", res.NoteFile)
	body, err := os.ReadFile(filepath.Join(res.FolderPath, "es hoc.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(body), "contrato: CT-881")
	assert.Contains(t, string(body), "cliente: C1002")
	assert.Contains(t, string(body), "programa: HOC-77")

	// Nationality marker is an empty file named after the nationality.
	assert.Equal(t, "Alemana", res.Nationality)
	info, err := os.Stat(filepath.Join(res.FolderPath, "Alemana"))
	require.NoError(t, err)
	assert.Zero(t, info.Size())
}

func TestAssembleMatchWithoutProgramOrNationality(t *testing.T) {
	root := t.TempDir()
	infraction := filepath.Join(root, "in", "multa_4812KTR.pdf")
	writeFixture(t, infraction, "%PDF fake")

	contracts := filepath.Join(root, "contracts")
	writeFixture(t, filepath.Join(contracts, "02_CT-9.pdf"), "%PDF contract")

	match := &reconcile.ContractMatch{Branch: "02", Customer: "C77"}

	a := New(contracts, filepath.Join(root, "out"), nil)
	res, err := a.Assemble(infraction,
		Naming{Plate: "4812KTR", Date: "05/01/2024", Time: "09:15", MatchFound: true}, match)
	require.NoError(t, err)

	assert.Equal(t, "no es hoc.txt", res.NoteFile)
	body, err := os.ReadFile(filepath.Join(res.FolderPath, "no es hoc.txt"))
	require.NoError(t, err)
	assert.Empty(t, body)

	assert.Equal(t, "null", res.Nationality)
	assert.FileExists(t, filepath.Join(res.FolderPath, "null"))
}

func TestAssembleIsIdempotent(t *testing.T) {
	root := t.TempDir()
	infraction := filepath.Join(root, "in", "multa_4812KTR.pdf")
	writeFixture(t, infraction, "%PDF fake")

	a := New("", filepath.Join(root, "out"), nil)
	n := Naming{Plate: "4812KTR"}

	first, err := a.Assemble(infraction, n, nil)
	require.NoError(t, err)
	second, err := a.Assemble(infraction, n, nil)
	require.NoError(t, err)
	assert.Equal(t, first.FolderPath, second.FolderPath)
}
