// Package assemble derives the destination folder for a processed infraction
// and writes the evidence files into it: the infraction PDF, the matching
// contract PDF when one exists on disk, and the metadata side-files the
// back office triages on.
package assemble

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/fleetops/multas-tracker/internal/reconcile"
	"github.com/fleetops/multas-tracker/internal/textutil"
)

// Naming carries the inputs of the folder-name function. Date is dd/MM/yyyy
// or empty, Time is HH:mm or empty; DupSuffix is the verbatim "_N" marker
// from the source file name, or empty.
type Naming struct {
	Plate      string
	Date       string
	Time       string
	MatchFound bool
	DupSuffix  string
}

// FolderName is a pure function: identical inputs always produce the same
// byte-identical name.
func FolderName(n Naming) string {
	var name string
	switch {
	case n.Date == "" && n.Time == "":
		name = fmt.Sprintf("%s-sin fecha ni hora", n.Plate)
	case n.Date == "":
		name = fmt.Sprintf("%s-sin fecha-%s", n.Plate, compactTime(n.Time))
	case n.Time == "":
		name = fmt.Sprintf("%s-%s-sin hora", n.Plate, compactDate(n.Date))
	default:
		name = fmt.Sprintf("%s-%s-%s", n.Plate, compactDate(n.Date), compactTime(n.Time))
	}
	if !n.MatchFound {
		name += " - contrato no encontrado"
	}
	return name + n.DupSuffix
}

func compactDate(d string) string { return strings.ReplaceAll(d, "/", "") }
func compactTime(t string) string { return strings.ReplaceAll(t, ":", "") }

var rxDupSuffix = regexp.MustCompile(`_(\d+)$`)

// Result records what was written for one document.
type Result struct {
	FolderPath  string
	ContractPDF string // base name of the copied contract PDF, if any
	NoteFile    string // "es hoc.txt", "no es hoc.txt" or ""
	Nationality string // name of the nationality marker file, if any
}

// Assembler writes output folders under OutputRoot and looks for contract
// PDFs under ContractsRoot.
type Assembler struct {
	ContractsRoot string
	OutputRoot    string
	logger        *slog.Logger
}

func New(contractsRoot, outputRoot string, logger *slog.Logger) *Assembler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Assembler{ContractsRoot: contractsRoot, OutputRoot: outputRoot, logger: logger}
}

// Assemble creates the folder for naming, always copies the infraction PDF
// into it, and adds the contract PDF and side-files when a match exists.
// Copies overwrite, so re-running a batch is idempotent.
func (a *Assembler) Assemble(infractionPath string, naming Naming, match *reconcile.ContractMatch) (Result, error) {
	dir := filepath.Join(a.OutputRoot, FolderName(naming))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Result{}, fmt.Errorf("create output folder: %w", err)
	}
	res := Result{FolderPath: dir}

	if err := copyFile(infractionPath, filepath.Join(dir, filepath.Base(infractionPath))); err != nil {
		return res, fmt.Errorf("copy infraction pdf: %w", err)
	}

	if match == nil {
		return res, nil
	}

	// Nationality marker: an empty file named after the sanitized nationality,
	// or the literal "null" when the store has none.
	natName := "null"
	if match.Nationality != nil && strings.TrimSpace(*match.Nationality) != "" {
		natName = textutil.SanitizeFileName(*match.Nationality)
	}
	if err := os.WriteFile(filepath.Join(dir, natName), nil, 0o644); err != nil {
		return res, fmt.Errorf("write nationality marker: %w", err)
	}
	res.Nationality = natName

	contract := a.findNewestByBranch(match.Branch)
	if contract == "" {
		a.logger.Warn("contract pdf not found on disk", "branch", match.Branch, "plate", naming.Plate)
		return res, nil
	}

	base := filepath.Base(contract)
	ext := filepath.Ext(base)
	cleanName := rxDupSuffix.ReplaceAllString(strings.TrimSuffix(base, ext), "") + ext
	if err := copyFile(contract, filepath.Join(dir, cleanName)); err != nil {
		return res, fmt.Errorf("copy contract pdf: %w", err)
	}
	res.ContractPDF = cleanName

	note, body := noteFor(match)
	if err := os.WriteFile(filepath.Join(dir, note), []byte(body), 0o644); err != nil {
		return res, fmt.Errorf("write hoc note: %w", err)
	}
	res.NoteFile = note
	return res, nil
}

// noteFor picks the HOC note: populated when the match carries an internal
// program code, an empty marker otherwise.
func noteFor(m *reconcile.ContractMatch) (name, body string) {
	if !m.HasProgram() {
		return "no es hoc.txt", ""
	}
	body = fmt.Sprintf("contrato: %s\ncliente: %s\nprograma: %s\n",
		m.ContractNumber, m.Customer, *m.ProgramCode)
	return "es hoc.txt", body
}

// findNewestByBranch returns the most recently modified "{branch}_*.pdf"
// under ContractsRoot, or "".
func (a *Assembler) findNewestByBranch(branch string) string {
	if strings.TrimSpace(branch) == "" || a.ContractsRoot == "" {
		return ""
	}
	matches, err := filepath.Glob(filepath.Join(a.ContractsRoot, branch+"_*.pdf"))
	if err != nil || len(matches) == 0 {
		return ""
	}
	newest := ""
	var newestMod int64
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil {
			continue
		}
		if mod := info.ModTime().UnixNano(); newest == "" || mod > newestMod {
			newest, newestMod = m, mod
		}
	}
	return newest
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := in.Close(); cerr != nil {
			slog.Warn("close source file", "path", src, "error", cerr)
		}
	}()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
