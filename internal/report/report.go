// Package report renders a finished run as machine-readable artifacts: a
// schema-validated resumen.json and an XLSX workbook for the office side.
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/xuri/excelize/v2"

	"github.com/fleetops/multas-tracker/internal/pipeline"
)

// runReportSchema is the contract resumen.json is validated against before
// it is written. Keeping it as data lets tests reuse it verbatim.
var runReportSchema = map[string]any{
	"type":     "object",
	"required": []any{"run_id", "started_at", "finished_at", "stats", "documents"},
	"properties": map[string]any{
		"run_id":      map[string]any{"type": "string", "minLength": 1},
		"started_at":  map[string]any{"type": "string"},
		"finished_at": map[string]any{"type": "string"},
		"stats": map[string]any{
			"type":     "object",
			"required": []any{"scanned", "extracted", "matched", "unmatched", "failed"},
			"properties": map[string]any{
				"scanned":   map[string]any{"type": "integer", "minimum": 0},
				"extracted": map[string]any{"type": "integer", "minimum": 0},
				"matched":   map[string]any{"type": "integer", "minimum": 0},
				"unmatched": map[string]any{"type": "integer", "minimum": 0},
				"failed":    map[string]any{"type": "integer", "minimum": 0},
			},
		},
		"documents": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type":     "object",
				"required": []any{"file", "status"},
				"properties": map[string]any{
					"file":   map[string]any{"type": "string", "minLength": 1},
					"status": map[string]any{"type": "string", "minLength": 1},
				},
			},
		},
	},
}

// Writer renders run artifacts.
type Writer struct {
	logger *slog.Logger
}

func NewWriter(logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{logger: logger}
}

// validateAgainstSchema validates "data" against "schemaMap".
func validateAgainstSchema(schemaMap map[string]any, data []byte) error {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}

// WriteJSON validates the report and writes it to path as indented JSON.
func (w *Writer) WriteJSON(report pipeline.RunReport, path string) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal run report: %w", err)
	}
	if err := validateAgainstSchema(runReportSchema, data); err != nil {
		return fmt.Errorf("run report failed validation: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write run report: %w", err)
	}
	w.logger.Info("report.json.ok", "path", path, "documents", len(report.Documents))
	return nil
}

// BuildXLSX returns an XLSX workbook (as bytes) with one row per processed
// document.
func (w *Writer) BuildXLSX(report pipeline.RunReport) ([]byte, error) {
	start := time.Now()

	f := excelize.NewFile()
	const sheet = "Resumen"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)
	if defIdx, _ := f.GetSheetIndex("Sheet1"); defIdx != -1 {
		_ = f.DeleteSheet("Sheet1")
	}

	headers := []string{
		"Archivo",
		"Matrícula",
		"Fecha",
		"Hora",
		"Organismo",
		"Carpeta",
		"Sucursal",
		"Cliente",
		"Estado",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, doc := range report.Documents {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
		write(1, doc.File)
		write(2, doc.Plate)
		write(3, doc.Date)
		write(4, doc.Time)
		write(5, doc.Extractor)
		write(6, doc.Folder)
		write(7, doc.Branch)
		write(8, doc.Customer)
		write(9, string(doc.Status))
		row++
	}

	// Widen a few columns
	_ = f.SetColWidth(sheet, "A", "A", 48) // archivo
	_ = f.SetColWidth(sheet, "B", "B", 12) // matricula
	_ = f.SetColWidth(sheet, "C", "D", 12) // fecha/hora
	_ = f.SetColWidth(sheet, "E", "E", 20) // organismo
	_ = f.SetColWidth(sheet, "F", "F", 52) // carpeta
	_ = f.SetColWidth(sheet, "G", "H", 12) // sucursal/cliente
	_ = f.SetColWidth(sheet, "I", "I", 18) // estado

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	w.logger.Info("report.xlsx.ok",
		"run_id", report.RunID,
		"rows", len(report.Documents),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// WriteXLSX builds the workbook and writes it to path.
func (w *Writer) WriteXLSX(report pipeline.RunReport, path string) error {
	data, err := w.BuildXLSX(report)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
