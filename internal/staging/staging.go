// Package staging turns downloaded notification bundles into a clean PDF
// intake tree: every ZIP is unpacked under a per-date folder and each PDF is
// renamed after the plate found in its body, so later runs can key on the
// file name alone.
package staging

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/fleetops/multas-tracker/constants"
	"github.com/fleetops/multas-tracker/internal/common"
	"github.com/fleetops/multas-tracker/internal/pdfreader"
	"github.com/fleetops/multas-tracker/internal/plate"
	"github.com/fleetops/multas-tracker/internal/textutil"
)

var rxDupSuffix = regexp.MustCompile(`_(\d+)$`)

// Stager unpacks and renames downloaded bundles.
type Stager struct {
	cfg    common.StagingConfig
	reader pdfreader.Reader
	logger *slog.Logger
}

func New(cfg common.StagingConfig, reader pdfreader.Reader, logger *slog.Logger) *Stager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Stager{cfg: cfg, reader: reader, logger: logger}
}

// ParseFixedDate resolves the intake date as dd/MM/yyyy. An empty or
// unparseable value falls back to today.
func ParseFixedDate(raw string, now time.Time) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return now.Format("02/01/2006")
	}
	if dt, err := time.Parse("02/01/2006", raw); err == nil {
		return dt.Format("02/01/2006")
	}
	for _, layout := range []string{"2006-01-02", "2006/01/02", "02-01-2006"} {
		if dt, err := time.Parse(layout, raw); err == nil {
			return dt.Format("02/01/2006")
		}
	}
	return now.Format("02/01/2006")
}

// EnsureUniquePath appends _2, _3... before the extension until the path no
// longer exists.
func EnsureUniquePath(path string) string {
	dir := filepath.Dir(path)
	ext := filepath.Ext(path)
	name := strings.TrimSuffix(filepath.Base(path), ext)

	for dup := 2; ; dup++ {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return path
		}
		path = filepath.Join(dir, fmt.Sprintf("%s_%d%s", name, dup, ext))
	}
}

// EnsureDirectories creates the intake roots if missing.
func (s *Stager) EnsureDirectories() error {
	for _, dir := range []string{s.cfg.PdfRoot, s.cfg.DownloadDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create intake directory %s: %w", dir, err)
		}
	}
	return nil
}

// dateRoot is the per-date folder the current intake lands in, with the
// slashes of dd/MM/yyyy turned into hyphens.
func (s *Stager) dateRoot(now time.Time) string {
	fecha := ParseFixedDate(s.cfg.FixedDate, now)
	return filepath.Join(s.cfg.PdfRoot, strings.ReplaceAll(fecha, "/", "-"))
}

// ExtractZip unpacks one bundle under the dated intake folder. In
// one-PDF-per-ZIP mode the first PDF entry is written next to its siblings
// named after the bundle, and its final path is returned; otherwise the whole
// archive lands in its own subfolder and "" is returned. A bundle with no PDF
// is a warning, not an error.
func (s *Stager) ExtractZip(zipPath string, now time.Time) (string, error) {
	root := s.dateRoot(now)
	if err := os.MkdirAll(root, 0o755); err != nil {
		return "", fmt.Errorf("create dated intake folder: %w", err)
	}

	archive, err := zip.OpenReader(zipPath)
	if err != nil {
		return "", fmt.Errorf("open bundle %s: %w", filepath.Base(zipPath), err)
	}
	defer archive.Close()

	base := strings.TrimSuffix(filepath.Base(zipPath), filepath.Ext(zipPath))

	if s.cfg.OnePdfPerZip {
		var pdfEntry *zip.File
		for _, entry := range archive.File {
			if constants.AllowedExt(constants.NormalizeExt(filepath.Ext(entry.Name))) {
				pdfEntry = entry
				break
			}
		}
		if pdfEntry == nil {
			s.logger.Warn("bundle has no PDF", "zip", filepath.Base(zipPath))
			return "", nil
		}
		dest := EnsureUniquePath(filepath.Join(root, base+".pdf"))
		if err := extractEntry(pdfEntry, dest); err != nil {
			return "", err
		}
		return dest, nil
	}

	subDir := EnsureUniquePath(filepath.Join(root, base))
	if err := os.MkdirAll(subDir, 0o755); err != nil {
		return "", fmt.Errorf("create bundle folder: %w", err)
	}
	for _, entry := range archive.File {
		if entry.FileInfo().IsDir() {
			continue
		}
		name := filepath.FromSlash(entry.Name)
		if strings.Contains(name, "..") {
			s.logger.Warn("skipping suspicious archive entry", "entry", entry.Name)
			continue
		}
		dest := filepath.Join(subDir, name)
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return "", fmt.Errorf("create entry folder: %w", err)
		}
		if err := extractEntry(entry, dest); err != nil {
			return "", err
		}
	}
	return "", nil
}

func extractEntry(entry *zip.File, dest string) error {
	src, err := entry.Open()
	if err != nil {
		return fmt.Errorf("open archive entry %s: %w", entry.Name, err)
	}
	defer src.Close()

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(dest), err)
	}
	defer out.Close()

	if _, err := io.Copy(out, src); err != nil {
		return fmt.Errorf("extract %s: %w", entry.Name, err)
	}
	return nil
}

// IsExcludedOrganism reports whether the issuing body is configured to skip
// content-based renaming. Comparison ignores case, accents and whitespace.
func (s *Stager) IsExcludedOrganism(org string) bool {
	for _, pref := range s.cfg.ExcludedPdfStarts {
		if textutil.NormalizeAggressively(pref) == "" {
			continue
		}
		if textutil.ContainsNormalized(org, pref) {
			return true
		}
	}
	return false
}

// IsBenalmadena detects the one issuer whose layouts need the tolerant
// plate search.
func IsBenalmadena(org string) bool {
	return textutil.StartsWithNormalized(org, "BENALMADENA")
}

// RenameByContent reads the PDF body and renames the file to
// {base}_{plate}.pdf. Excluded issuers and bodies without a plate are left
// untouched. Returns the final path, which is the input path when no rename
// happened.
func (s *Stager) RenameByContent(ctx context.Context, pdfPath, organism string) (string, error) {
	if s.IsExcludedOrganism(organism) {
		s.logger.Info("content rename skipped, issuer excluded",
			"file", filepath.Base(pdfPath), "organism", organism)
		return pdfPath, nil
	}

	fullText, _, err := s.reader.Read(ctx, pdfPath)
	if err != nil {
		return pdfPath, fmt.Errorf("read %s: %w", filepath.Base(pdfPath), err)
	}

	var matricula string
	if IsBenalmadena(organism) {
		matricula = plate.FindLoose(fullText)
	} else {
		matricula = plate.Find(fullText)
	}
	if matricula == "" {
		s.logger.Warn("no plate found in body", "file", filepath.Base(pdfPath))
		return pdfPath, nil
	}
	return renameWithPlate(pdfPath, matricula)
}

// renameWithPlate moves the file to {base}_{plate}.pdf, stripping any
// trailing _N marker from the base first and re-deduplicating the target.
func renameWithPlate(pdfPath, matricula string) (string, error) {
	dir := filepath.Dir(pdfPath)
	ext := filepath.Ext(pdfPath)
	base := rxDupSuffix.ReplaceAllString(strings.TrimSuffix(filepath.Base(pdfPath), ext), "")

	newPath := filepath.Join(dir, fmt.Sprintf("%s_%s%s", base, matricula, ext))
	if strings.EqualFold(newPath, pdfPath) {
		return pdfPath, nil
	}

	finalPath := newPath
	for dup := 2; ; dup++ {
		if _, err := os.Stat(finalPath); os.IsNotExist(err) {
			break
		}
		finalPath = filepath.Join(dir, fmt.Sprintf("%s_%s_%d%s", base, matricula, dup, ext))
	}
	if err := os.Rename(pdfPath, finalPath); err != nil {
		return pdfPath, fmt.Errorf("rename %s: %w", filepath.Base(pdfPath), err)
	}
	return finalPath, nil
}

// Run stages every bundle waiting in the download directory: unpack, then
// rename by body content. The issuing body is taken from the bundle name,
// which intake writes as {organism}_{plate}.zip. One broken bundle never
// halts the batch.
func (s *Stager) Run(ctx context.Context) error {
	if s.cfg.DownloadDir == "" || s.cfg.PdfRoot == "" {
		return common.NewAppError("CONFIG_ERROR",
			"staging requires both the download directory and the PDF root", common.ErrInvalidInput)
	}
	if err := s.EnsureDirectories(); err != nil {
		return err
	}

	entries, err := os.ReadDir(s.cfg.DownloadDir)
	if err != nil {
		return fmt.Errorf("read download directory: %w", err)
	}

	var zips []string
	for _, e := range entries {
		if !e.IsDir() && constants.IntakeExt(constants.NormalizeExt(filepath.Ext(e.Name()))) {
			zips = append(zips, filepath.Join(s.cfg.DownloadDir, e.Name()))
		}
	}
	sort.Strings(zips)
	if len(zips) == 0 {
		s.logger.Warn("no bundles in download directory", "dir", s.cfg.DownloadDir)
		return nil
	}

	now := time.Now()
	for _, zipPath := range zips {
		if ctx.Err() != nil {
			s.logger.Warn("staging cancelled")
			return ctx.Err()
		}
		organism := organismFromBundle(zipPath)

		extracted, err := s.ExtractZip(zipPath, now)
		if err != nil {
			s.logger.Error("bundle extraction failed", "zip", filepath.Base(zipPath), "error", err)
			continue
		}
		if extracted == "" {
			continue
		}
		finalPath, err := s.RenameByContent(ctx, extracted, organism)
		if err != nil {
			s.logger.Error("content rename failed", "file", filepath.Base(extracted), "error", err)
			continue
		}
		s.logger.Info("staging.bundle.ok",
			"zip", filepath.Base(zipPath), "pdf", filepath.Base(finalPath))
	}
	return nil
}

// organismFromBundle recovers the issuing body from {organism}_{plate}.zip.
// Bundles named without a plate keep their whole base name.
func organismFromBundle(zipPath string) string {
	base := strings.TrimSuffix(filepath.Base(zipPath), filepath.Ext(zipPath))
	if idx := strings.LastIndex(base, "_"); idx > 0 {
		return base[:idx]
	}
	return base
}
