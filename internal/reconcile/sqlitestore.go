package reconcile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"

	"github.com/fleetops/multas-tracker/internal/common"
)

// SQLiteStore serves the same contract over a local SQLite file (or
// ":memory:"). Used for offline runs and tests; timestamps are stored as
// "2006-01-02 15:04:05" text, which compares correctly as strings.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS rental_history (
	plate           TEXT NOT NULL,
	departure_at    TEXT NOT NULL,
	return_real_at  TEXT NOT NULL,
	branch_code     TEXT NOT NULL,
	customer_code   TEXT NOT NULL,
	contract_number TEXT NOT NULL DEFAULT '',
	program_code    TEXT,
	nationality     TEXT
);
CREATE INDEX IF NOT EXISTS rental_history_plate_idx ON rental_history (plate, departure_at);`

// OpenSQLite opens (and bootstraps) a local store at path.
func OpenSQLite(ctx context.Context, path string, logger *slog.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, err
	}
	logger.Info("local contract store ready", "path", path)
	return &SQLiteStore{db: db, logger: logger}, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Ping checks connectivity.
func (s *SQLiteStore) Ping(ctx context.Context, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return s.db.PingContext(ctx)
}

const sqliteTimeLayout = "2006-01-02 15:04:05"

const sqliteQuery = `
SELECT branch_code, customer_code, contract_number, program_code, nationality
FROM rental_history
WHERE plate = ?
  AND departure_at   <= ?
  AND return_real_at >= ?
ORDER BY departure_at DESC
LIMIT 1`

func (s *SQLiteStore) FindCoveringContract(ctx context.Context, plate string, instant time.Time) (*ContractMatch, error) {
	ts := instant.Format(sqliteTimeLayout)

	var m ContractMatch
	err := s.db.QueryRowContext(ctx, sqliteQuery, plate, ts, ts).
		Scan(&m.Branch, &m.Customer, &m.ContractNumber, &m.ProgramCode, &m.Nationality)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrStore, err)
	}
	return &m, nil
}

// AddRental seeds a rental-history row; used by local mode and tests.
func (s *SQLiteStore) AddRental(ctx context.Context, plate string, departure, returnReal time.Time, m ContractMatch) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO rental_history
	(plate, departure_at, return_real_at, branch_code, customer_code, contract_number, program_code, nationality)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		plate,
		departure.Format(sqliteTimeLayout),
		returnReal.Format(sqliteTimeLayout),
		m.Branch, m.Customer, m.ContractNumber, m.ProgramCode, m.Nationality)
	return err
}
