package pipeline

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fleetops/multas-tracker/constants"
	"github.com/fleetops/multas-tracker/internal/assemble"
	"github.com/fleetops/multas-tracker/internal/extract"
	"github.com/fleetops/multas-tracker/internal/reconcile"
	"github.com/fleetops/multas-tracker/internal/textutil"
)

// fakeReader serves canned text per file base name.
type fakeReader struct {
	texts map[string]string
}

func (f *fakeReader) Read(_ context.Context, path string) (string, []string, error) {
	raw, ok := f.texts[filepath.Base(path)]
	if !ok {
		return "", nil, os.ErrNotExist
	}
	var lines []string
	for _, l := range strings.Split(raw, "\n") {
		if n := textutil.Normalize(l); n != "" {
			lines = append(lines, n)
		}
	}
	return textutil.Normalize(raw), lines, nil
}

type mockStore struct {
	mock.Mock
}

func (m *mockStore) FindCoveringContract(ctx context.Context, plate string, instant time.Time) (*reconcile.ContractMatch, error) {
	args := m.Called(ctx, plate, instant)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reconcile.ContractMatch), args.Error(1)
}

type env struct {
	inputDir      string
	contractsRoot string
	outputRoot    string
	audit         *bytes.Buffer
	store         *mockStore
}

func newEnv(t *testing.T) *env {
	t.Helper()
	root := t.TempDir()
	e := &env{
		inputDir:      filepath.Join(root, "in"),
		contractsRoot: filepath.Join(root, "contracts"),
		outputRoot:    filepath.Join(root, "out"),
		audit:         &bytes.Buffer{},
		store:         new(mockStore),
	}
	require.NoError(t, os.MkdirAll(e.inputDir, 0o755))
	require.NoError(t, os.MkdirAll(e.contractsRoot, 0o755))
	return e
}

func (e *env) addPDF(t *testing.T, name string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(e.inputDir, name), []byte("%PDF fake"), 0o644))
}

func (e *env) pipeline(texts map[string]string) *Pipeline {
	reader := &fakeReader{texts: texts}
	registry := extract.DefaultRegistry(nil)
	engine := reconcile.NewEngine(e.store, time.Second, nil)
	assembler := assemble.New(e.contractsRoot, e.outputRoot, nil)
	return New(e.inputDir, reader, registry, engine, assembler, e.audit, nil)
}

func TestRunMissingInputDirIsConfigError(t *testing.T) {
	e := newEnv(t)
	p := e.pipeline(nil)
	p.InputDir = filepath.Join(e.inputDir, "does-not-exist")
	_, err := p.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CONFIG_ERROR")
}

func TestRunEmptyInputDirIsNotAnError(t *testing.T) {
	e := newEnv(t)
	report, err := e.pipeline(nil).Run(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, report.Documents)
	assert.Empty(t, report.Documents)
	assert.NotEmpty(t, report.RunID)
}

func TestScenarioBenalmadenaExtraction(t *testing.T) {
	e := newEnv(t)
	e.addPDF(t, "AYUNTAMIENTO DE BENALMADENA_9371MGF.pdf")
	e.store.On("FindCoveringContract", mock.Anything, "9371MGF",
		time.Date(2025, 7, 27, 11, 34, 0, 0, time.UTC)).Return(nil, nil)

	report, err := e.pipeline(map[string]string{
		"AYUNTAMIENTO DE BENALMADENA_9371MGF.pdf": "Expediente 4/25\nFecha y hora 27/07/2025 11:34\nMATRICULA 9371 MGF",
	}).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Documents, 1)

	row := report.Documents[0]
	assert.Equal(t, "27/07/2025", row.Date)
	assert.Equal(t, "11:34", row.Time)
	assert.Equal(t, constants.AuthorityBenalmadena, row.Extractor)
	e.store.AssertExpectations(t)
}

func TestScenarioDGTExtraction(t *testing.T) {
	e := newEnv(t)
	e.addPDF(t, "DIRECCION GENERAL DE TRAFICO_4812KTR.pdf")
	e.store.On("FindCoveringContract", mock.Anything, "4812KTR", mock.Anything).Return(nil, nil)

	report, err := e.pipeline(map[string]string{
		"DIRECCION GENERAL DE TRAFICO_4812KTR.pdf": "FECHA Y HORA DE LA INFRACCIÓN: 05/01/2024 - 09:15 h",
	}).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Documents, 1)

	row := report.Documents[0]
	assert.Equal(t, "05/01/2024", row.Date)
	assert.Equal(t, "09:15", row.Time)
	assert.Equal(t, constants.AuthorityDGT, row.Extractor)
}

func TestScenarioNoContractMatch(t *testing.T) {
	e := newEnv(t)
	e.addPDF(t, "AYUNTAMIENTO DE BENALMADENA_9371MGF.pdf")
	e.store.On("FindCoveringContract", mock.Anything, "9371MGF", mock.Anything).Return(nil, nil)

	report, err := e.pipeline(map[string]string{
		"AYUNTAMIENTO DE BENALMADENA_9371MGF.pdf": "Fecha y hora 27/07/2025 11:34",
	}).Run(context.Background())
	require.NoError(t, err)

	row := report.Documents[0]
	assert.Equal(t, constants.DocAssembled, row.Status)
	assert.True(t, strings.HasSuffix(row.Folder, " - contrato no encontrado"), "folder %q", row.Folder)

	entries, err := os.ReadDir(filepath.Join(e.outputRoot, row.Folder))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "AYUNTAMIENTO DE BENALMADENA_9371MGF.pdf", entries[0].Name())

	assert.Contains(t, e.audit.String(), "matricula,fecha,hora,archivo")
	assert.Contains(t, e.audit.String(), "9371MGF,27/07/2025,11:34,")
	assert.Contains(t, e.audit.String(), "(sin coincidencias)")
}

func TestScenarioHOCMatch(t *testing.T) {
	e := newEnv(t)
	e.addPDF(t, "AYUNTAMIENTO DE BENALMADENA_9371MGF.pdf")
	require.NoError(t, os.WriteFile(
		filepath.Join(e.contractsRoot, "05_CT-881_2.pdf"), []byte("%PDF contract"), 0o644))

	hoc := "HOC-77"
	e.store.On("FindCoveringContract", mock.Anything, "9371MGF", mock.Anything).
		Return(&reconcile.ContractMatch{
			Branch: "05", Customer: "C1002", ContractNumber: "CT-881", ProgramCode: &hoc,
		}, nil)

	report, err := e.pipeline(map[string]string{
		"AYUNTAMIENTO DE BENALMADENA_9371MGF.pdf": "Fecha y hora 27/07/2025 11:34",
	}).Run(context.Background())
	require.NoError(t, err)

	row := report.Documents[0]
	assert.Equal(t, "05", row.Branch)
	assert.Equal(t, "9371MGF-27072025-1134", row.Folder)

	folder := filepath.Join(e.outputRoot, row.Folder)
	assert.FileExists(t, filepath.Join(folder, "05_CT-881.pdf")) // suffix stripped
	body, err := os.ReadFile(filepath.Join(folder, "es hoc.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(body), "contrato: CT-881")
	assert.Contains(t, string(body), "cliente: C1002")
	assert.Contains(t, string(body), "programa: HOC-77")
	assert.Contains(t, e.audit.String(), "Match: Suc=05, Cliente=C1002")
}

func TestScenarioNothingExtracted(t *testing.T) {
	e := newEnv(t)
	e.addPDF(t, "ORGANISMO RARO_9371MGF.pdf")
	// No store expectations: reconciliation must never be attempted.

	report, err := e.pipeline(map[string]string{
		"ORGANISMO RARO_9371MGF.pdf": "texto sin ninguna fecha reconocible",
	}).Run(context.Background())
	require.NoError(t, err)

	row := report.Documents[0]
	assert.Equal(t, constants.DocAssembled, row.Status)
	assert.Equal(t, "9371MGF-sin fecha ni hora - contrato no encontrado", row.Folder)
	assert.FileExists(t, filepath.Join(e.outputRoot, row.Folder, "ORGANISMO RARO_9371MGF.pdf"))
	e.store.AssertNotCalled(t, "FindCoveringContract", mock.Anything, mock.Anything, mock.Anything)
}

func TestUnreadableDocumentDoesNotHaltBatch(t *testing.T) {
	e := newEnv(t)
	e.addPDF(t, "AAA_corrupto.pdf") // fakeReader has no text for it
	e.addPDF(t, "DIRECCION GENERAL DE TRAFICO_4812KTR.pdf")
	e.store.On("FindCoveringContract", mock.Anything, "4812KTR", mock.Anything).Return(nil, nil)

	report, err := e.pipeline(map[string]string{
		"DIRECCION GENERAL DE TRAFICO_4812KTR.pdf": "FECHA Y HORA DE LA INFRACCIÓN: 05/01/2024 - 09:15 h",
	}).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Documents, 2)

	assert.Equal(t, constants.DocFailed, report.Documents[0].Status)
	assert.Equal(t, constants.DocAssembled, report.Documents[1].Status)
	assert.Equal(t, uint32(1), report.Stats.Failed)
}

func TestDuplicateSuffixCarriedIntoFolderName(t *testing.T) {
	e := newEnv(t)
	e.addPDF(t, "AYUNTAMIENTO DE BENALMADENA_9371MGF_2.pdf")
	e.store.On("FindCoveringContract", mock.Anything, "9371MGF", mock.Anything).Return(nil, nil)

	report, err := e.pipeline(map[string]string{
		"AYUNTAMIENTO DE BENALMADENA_9371MGF_2.pdf": "Fecha y hora 27/07/2025 11:34",
	}).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "9371MGF-27072025-1134 - contrato no encontrado_2", report.Documents[0].Folder)
}

func TestCancellationStopsBetweenDocuments(t *testing.T) {
	e := newEnv(t)
	e.addPDF(t, "A_9371MGF.pdf")
	e.addPDF(t, "B_4812KTR.pdf")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := e.pipeline(map[string]string{}).Run(ctx)
	require.NoError(t, err)
	assert.Empty(t, report.Documents)
}
