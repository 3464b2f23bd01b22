package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fleetops/multas-tracker/internal/common"
)

// PGConfig holds contract-store connection settings.
type PGConfig struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	DialTimeout     time.Duration
}

// PGStore queries the rental-history table on Postgres.
type PGStore struct {
	pool   *pgxpool.Pool
	logger *slog.Logger

	// Older store versions lack the optional columns; once a query fails
	// with an undefined column we stay on the minimal column set.
	minimalColumns bool
}

// OpenPG creates the pgx pool and returns the store.
func OpenPG(ctx context.Context, cfg PGConfig, logger *slog.Logger) (*PGStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("connecting to contract store", "dsn", cfg.DSN)

	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, err
	}
	pc.MaxConns = cfg.MaxConns
	pc.MinConns = cfg.MinConns
	pc.MaxConnLifetime = cfg.MaxConnLifetime
	pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	pc.ConnConfig.RuntimeParams["application_name"] = "multas-tracker"

	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}
	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		logger.Error("failed to connect to contract store", "error", err)
		return nil, err
	}

	logger.Info("contract store connected")
	return &PGStore{pool: pool, logger: logger}, nil
}

// Close closes the pool.
func (s *PGStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Ping checks connectivity.
func (s *PGStore) Ping(ctx context.Context, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return s.pool.Ping(ctx)
}

const pgQueryFull = `
SELECT branch_code, customer_code, contract_number, program_code, nationality
FROM rental_history
WHERE plate = $1
  AND departure_at   <= $2
  AND return_real_at >= $2
ORDER BY departure_at DESC
LIMIT 1`

const pgQueryMinimal = `
SELECT branch_code, customer_code, contract_number
FROM rental_history
WHERE plate = $1
  AND departure_at   <= $2
  AND return_real_at >= $2
ORDER BY departure_at DESC
LIMIT 1`

func (s *PGStore) FindCoveringContract(ctx context.Context, plate string, instant time.Time) (*ContractMatch, error) {
	if !s.minimalColumns {
		m, err := s.queryFull(ctx, plate, instant)
		if err == nil {
			return m, nil
		}
		var pgErr *pgconn.PgError
		// 42703: undefined_column, an older schema without the optional
		// columns. Degrade once and keep going.
		if errors.As(err, &pgErr) && pgErr.Code == "42703" {
			s.logger.Warn("contract store lacks optional columns, using minimal set", "code", pgErr.Code)
			s.minimalColumns = true
		} else {
			return nil, err
		}
	}
	return s.queryMinimal(ctx, plate, instant)
}

func (s *PGStore) queryFull(ctx context.Context, plate string, instant time.Time) (*ContractMatch, error) {
	var m ContractMatch
	err := s.pool.QueryRow(ctx, pgQueryFull, plate, instant).
		Scan(&m.Branch, &m.Customer, &m.ContractNumber, &m.ProgramCode, &m.Nationality)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrStore, err)
	}
	return &m, nil
}

func (s *PGStore) queryMinimal(ctx context.Context, plate string, instant time.Time) (*ContractMatch, error) {
	var m ContractMatch
	err := s.pool.QueryRow(ctx, pgQueryMinimal, plate, instant).
		Scan(&m.Branch, &m.Customer, &m.ContractNumber)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrStore, err)
	}
	return &m, nil
}
