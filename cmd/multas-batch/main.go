package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"

	"github.com/fleetops/multas-tracker/internal/assemble"
	"github.com/fleetops/multas-tracker/internal/common"
	"github.com/fleetops/multas-tracker/internal/extract"
	"github.com/fleetops/multas-tracker/internal/pdfreader"
	"github.com/fleetops/multas-tracker/internal/pipeline"
	"github.com/fleetops/multas-tracker/internal/reconcile"
	"github.com/fleetops/multas-tracker/internal/report"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	// Parse CLI flags
	var (
		dir       = flag.String("dir", "", "directory with infraction PDFs (required, or INPUT_DIR)")
		out       = flag.String("out", "", "output root for assembled folders (or OUTPUT_ROOT)")
		contracts = flag.String("contracts", "", "root with contract PDFs per branch (or CONTRACTS_ROOT)")
		inmem     = flag.Bool("inmem", false, "use an in-memory SQLite contract store")
		xlsx      = flag.String("xlsx", "", "also write an XLSX summary to this path")
	)
	flag.Parse()

	// A .env next to the binary is optional.
	_ = godotenv.Load()

	// Setup logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if *dir != "" {
		cfg.Paths.InputDir = *dir
	}
	if *out != "" {
		cfg.Paths.OutputRoot = *out
	}
	if *contracts != "" {
		cfg.Paths.ContractsRoot = *contracts
	}
	if err := cfg.Validate(); err != nil {
		printError("Error: %v\n", err)
		flag.Usage()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// Contract store: Postgres when a DSN is configured, SQLite otherwise.
	var store reconcile.ContractStore
	switch {
	case *inmem || cfg.Store.DSN == "":
		sq, err := reconcile.OpenSQLite(ctx, ":memory:", logger)
		if err != nil {
			logger.Error("failed to open in-memory contract store", "error", err)
			os.Exit(1)
		}
		defer sq.Close()
		store = sq
	default:
		pg, err := reconcile.OpenPG(ctx, reconcile.PGConfig{
			DSN:             cfg.Store.DSN,
			MaxConns:        cfg.Store.MaxConns,
			MinConns:        cfg.Store.MinConns,
			MaxConnLifetime: cfg.Store.MaxConnLifetime,
			MaxConnIdleTime: cfg.Store.MaxConnIdleTime,
			DialTimeout:     cfg.Store.DialTimeout,
		}, logger)
		if err != nil {
			logger.Error("failed to open contract store", "error", err)
			os.Exit(1)
		}
		defer pg.Close()
		store = pg
	}

	reader := pdfreader.NewPdftotextReader(pdfreader.Config{Pdftotext: cfg.Reader.Pdftotext}, logger)
	registry := extract.DefaultRegistry(logger)
	engine := reconcile.NewEngine(store, cfg.Store.QueryTimeout, logger)
	assembler := assemble.New(cfg.Paths.ContractsRoot, cfg.Paths.OutputRoot, logger)

	p := pipeline.New(cfg.Paths.InputDir, reader, registry, engine, assembler, os.Stdout, logger)

	start := time.Now()
	runReport, err := p.Run(ctx)
	if err != nil {
		logger.Error("run failed", "error", err)
		os.Exit(1)
	}

	writer := report.NewWriter(logger)
	resumenPath := filepath.Join(cfg.Paths.OutputRoot, "resumen.json")
	if err := writer.WriteJSON(runReport, resumenPath); err != nil {
		logger.Error("failed to write run report", "error", err)
		os.Exit(1)
	}
	if *xlsx != "" {
		if err := writer.WriteXLSX(runReport, *xlsx); err != nil {
			logger.Error("failed to write workbook", "error", err)
			os.Exit(1)
		}
	}

	logger.Info("batch finished",
		"run_id", runReport.RunID,
		"scanned", runReport.Stats.Scanned,
		"matched", runReport.Stats.Matched,
		"failed", runReport.Stats.Failed,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	if runReport.Stats.Failed > 0 {
		os.Exit(2)
	}
}
