// Package pdfreader turns an infraction PDF into the normalized full text and
// reconstructed lines the extractors work over.
package pdfreader

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/fleetops/multas-tracker/internal/textutil"
)

// Reader is the document-reader collaborator: full text plus top-to-bottom,
// left-to-right reconstructed lines.
type Reader interface {
	Read(ctx context.Context, path string) (fullText string, lines []string, err error)
}

// Config holds reader configuration.
type Config struct {
	Pdftotext string // binary name or absolute path; if empty -> "pdftotext"
}

// PdftotextReader shells out to pdftotext in layout mode. Layout mode already
// reconstructs rows by vertical position and orders fragments left-to-right,
// which is exactly the line contract the extractors need.
type PdftotextReader struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewPdftotextReader(cfg Config, logger *slog.Logger) *PdftotextReader {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = "pdftotext"
	}
	return &PdftotextReader{cfg: cfg, runner: execRunner{}, logger: logger}
}

// WithRunner swaps the command runner; used by tests.
func (r *PdftotextReader) WithRunner(runner Runner) *PdftotextReader {
	r.runner = runner
	return r
}

func (r *PdftotextReader) Read(ctx context.Context, path string) (string, []string, error) {
	// pdftotext -layout -enc UTF-8 -eol unix <path> -
	out, errb, err := r.runner.Run(ctx, r.cfg.Pdftotext, "-layout", "-enc", "UTF-8", "-eol", "unix", path, "-")
	if err != nil {
		return "", nil, fmt.Errorf("pdftotext %q: %w (%s)", path, err, strings.TrimSpace(string(errb)))
	}

	raw := string(out)
	var lines []string
	for _, l := range strings.Split(raw, "\n") {
		if n := textutil.Normalize(l); n != "" {
			lines = append(lines, n)
		}
	}

	r.logger.Debug("pdf read", "path", path, "lines", len(lines), "bytes", len(raw))
	return textutil.Normalize(raw), lines, nil
}
