// Package pipeline orchestrates the per-document flow: read text, resolve
// date/time, reconcile against the contract store, assemble the output
// folder. One malformed document never halts the batch.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/fleetops/multas-tracker/constants"
	"github.com/fleetops/multas-tracker/internal/assemble"
	"github.com/fleetops/multas-tracker/internal/common"
	"github.com/fleetops/multas-tracker/internal/extract"
	"github.com/fleetops/multas-tracker/internal/pdfreader"
	"github.com/fleetops/multas-tracker/internal/plate"
	"github.com/fleetops/multas-tracker/internal/reconcile"
)

// DocReport is the per-document outcome row of a run.
type DocReport struct {
	File      string              `json:"file"`
	Plate     string              `json:"plate"`
	Date      string              `json:"date,omitempty"`
	Time      string              `json:"time,omitempty"`
	Extractor string              `json:"extractor,omitempty"`
	Status    constants.DocStatus `json:"status"`
	Folder    string              `json:"folder,omitempty"`
	Branch    string              `json:"branch,omitempty"`
	Customer  string              `json:"customer,omitempty"`
	Err       string              `json:"error,omitempty"`
}

// Stats aggregates a run.
type Stats struct {
	Scanned   uint32 `json:"scanned"`
	Extracted uint32 `json:"extracted"`
	Matched   uint32 `json:"matched"`
	Unmatched uint32 `json:"unmatched"`
	Failed    uint32 `json:"failed"`
}

// RunReport is the machine-readable summary of one pipeline run.
type RunReport struct {
	RunID      string      `json:"run_id"`
	StartedAt  time.Time   `json:"started_at"`
	FinishedAt time.Time   `json:"finished_at"`
	Stats      Stats       `json:"stats"`
	Documents  []DocReport `json:"documents"`
}

// Pipeline wires the collaborators for a run.
type Pipeline struct {
	InputDir string

	reader    pdfreader.Reader
	registry  *extract.Registry
	engine    *reconcile.Engine
	assembler *assemble.Assembler
	logger    *slog.Logger
	audit     io.Writer
}

func New(inputDir string, reader pdfreader.Reader, registry *extract.Registry,
	engine *reconcile.Engine, assembler *assemble.Assembler,
	audit io.Writer, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if audit == nil {
		audit = os.Stdout
	}
	return &Pipeline{
		InputDir:  inputDir,
		reader:    reader,
		registry:  registry,
		engine:    engine,
		assembler: assembler,
		logger:    logger,
		audit:     audit,
	}
}

// Run processes every PDF in the input directory sequentially. A missing
// input directory is a configuration error; an empty one is a normal run.
// Cancellation is checked between documents, never mid-document.
func (p *Pipeline) Run(ctx context.Context) (RunReport, error) {
	// Documents starts non-nil so an empty run still serializes as [].
	report := RunReport{RunID: uuid.NewString(), StartedAt: time.Now().UTC(), Documents: []DocReport{}}

	info, err := os.Stat(p.InputDir)
	if err != nil || !info.IsDir() {
		return report, common.NewAppError("CONFIG_ERROR",
			fmt.Sprintf("input directory does not exist: %s", p.InputDir), common.ErrInvalidInput)
	}

	pdfs, err := p.listPDFs()
	if err != nil {
		return report, err
	}
	if len(pdfs) == 0 {
		p.logger.Warn("no PDFs found in input directory", "dir", p.InputDir)
		report.FinishedAt = time.Now().UTC()
		return report, nil
	}

	fmt.Fprintln(p.audit, "matricula,fecha,hora,archivo")

	for _, path := range pdfs {
		if ctx.Err() != nil {
			p.logger.Warn("run cancelled, stopping before next document", "remaining", len(pdfs)-len(report.Documents))
			break
		}
		row := p.processOne(ctx, path)
		report.Documents = append(report.Documents, row)

		report.Stats.Scanned++
		switch row.Status {
		case constants.DocFailed:
			report.Stats.Failed++
		case constants.DocAssembled:
			if row.Date != "" && row.Time != "" {
				report.Stats.Extracted++
			}
			if row.Branch != "" {
				report.Stats.Matched++
			} else {
				report.Stats.Unmatched++
			}
		}
	}

	report.FinishedAt = time.Now().UTC()
	p.logger.Info("run complete",
		"run_id", report.RunID,
		"scanned", report.Stats.Scanned,
		"extracted", report.Stats.Extracted,
		"matched", report.Stats.Matched,
		"unmatched", report.Stats.Unmatched,
		"failed", report.Stats.Failed,
	)
	return report, nil
}

func (p *Pipeline) listPDFs() ([]string, error) {
	entries, err := os.ReadDir(p.InputDir)
	if err != nil {
		return nil, fmt.Errorf("read input directory: %w", err)
	}
	var pdfs []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if constants.AllowedExt(constants.NormalizeExt(filepath.Ext(e.Name()))) {
			pdfs = append(pdfs, filepath.Join(p.InputDir, e.Name()))
		}
	}
	sort.Strings(pdfs)
	return pdfs, nil
}

// processOne runs the whole per-document state machine. Every failure is
// captured in the returned row; panics from hostile input are contained the
// same way.
func (p *Pipeline) processOne(ctx context.Context, path string) (row DocReport) {
	fileName := filepath.Base(path)
	row = DocReport{File: fileName, Status: constants.DocDiscovered}

	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("document processing panicked", "file", fileName, "panic", r)
			row.Status = constants.DocFailed
			row.Err = fmt.Sprintf("panic: %v", r)
		}
	}()

	matricula, dupSuffix := plate.FromFilename(fileName)

	fullText, lines, err := p.reader.Read(ctx, path)
	if err != nil {
		p.logger.Error("failed to read document", "file", fileName, "error", err)
		row.Status = constants.DocFailed
		row.Err = err.Error()
		return row
	}
	row.Status = constants.DocTextRead

	// The filename token is normally the plate; fall back to the body when
	// the name carries something else.
	if !plate.IsValid(matricula) {
		if fromText := plate.Find(fullText); fromText != "" {
			matricula = fromText
		}
	}
	row.Plate = matricula

	res, found := p.registry.Dispatch(fileName, fullText, lines)
	if found {
		row.Date, row.Time, row.Extractor = res.Date, res.Time, res.Extractor
		row.Status = constants.DocDateTimeOK
	} else {
		row.Status = constants.DocDateTimeMissing
	}

	// Audit line before any output is assembled.
	fmt.Fprintf(p.audit, "%s,%s,%s,%s\n", matricula, row.Date, row.Time, fileName)

	// Reconciliation only runs with a fully resolved instant.
	var match *reconcile.ContractMatch
	if found {
		if instant, ok := reconcile.ParseDateTime(res.Date, res.Time); ok {
			match, err = p.engine.Reconcile(ctx, matricula, instant)
			if err != nil {
				p.logger.Error("reconciliation failed", "file", fileName, "error", err)
				row.Status = constants.DocFailed
				row.Err = err.Error()
				return row
			}
		} else {
			p.logger.Warn("extracted date/time unparseable", "file", fileName, "date", res.Date, "time", res.Time)
		}
	}

	if match != nil {
		row.Branch, row.Customer = match.Branch, match.Customer
		row.Status = constants.DocMatched
		fmt.Fprintf(p.audit, "  > Match: Suc=%s, Cliente=%s\n", match.Branch, match.Customer)
	} else {
		row.Status = constants.DocUnmatched
		fmt.Fprintln(p.audit, "  > (sin coincidencias)")
	}

	naming := assemble.Naming{
		Plate:      matricula,
		Date:       row.Date,
		Time:       row.Time,
		MatchFound: match != nil,
		DupSuffix:  dupSuffix,
	}
	out, err := p.assembler.Assemble(path, naming, match)
	if err != nil {
		p.logger.Error("output assembly failed", "file", fileName, "error", err)
		row.Status = constants.DocFailed
		row.Err = err.Error()
		return row
	}

	row.Folder = filepath.Base(out.FolderPath)
	row.Status = constants.DocAssembled
	p.logger.Info("pipeline.document.ok",
		"file", fileName,
		"plate", matricula,
		"date", row.Date,
		"time", row.Time,
		"folder", row.Folder,
	)
	return row
}
