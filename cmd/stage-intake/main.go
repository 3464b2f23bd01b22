package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/joho/godotenv"

	"github.com/fleetops/multas-tracker/internal/common"
	"github.com/fleetops/multas-tracker/internal/pdfreader"
	"github.com/fleetops/multas-tracker/internal/staging"
)

func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	var (
		downloads = flag.String("downloads", "", "directory with downloaded ZIP bundles (or DOWNLOAD_DIR)")
		pdfRoot   = flag.String("pdfroot", "", "root the staged PDFs land under (or PDF_ROOT)")
		date      = flag.String("date", "", "intake date dd/MM/yyyy (or FIXED_DATE, defaults to today)")
	)
	flag.Parse()

	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if *downloads != "" {
		cfg.Staging.DownloadDir = *downloads
	}
	if *pdfRoot != "" {
		cfg.Staging.PdfRoot = *pdfRoot
	}
	if *date != "" {
		cfg.Staging.FixedDate = *date
	}
	if cfg.Staging.DownloadDir == "" || cfg.Staging.PdfRoot == "" {
		printError("Error: both -downloads and -pdfroot are required (or DOWNLOAD_DIR / PDF_ROOT)\n")
		flag.Usage()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	reader := pdfreader.NewPdftotextReader(pdfreader.Config{Pdftotext: cfg.Reader.Pdftotext}, logger)
	stager := staging.New(cfg.Staging, reader, logger)

	if err := stager.Run(ctx); err != nil {
		logger.Error("staging failed", "error", err)
		os.Exit(1)
	}
	logger.Info("staging finished")
}
