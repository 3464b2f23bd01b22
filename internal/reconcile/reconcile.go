// Package reconcile matches an extracted infraction (plate + instant) against
// the rental-contract store.
package reconcile

import (
	"context"
	"log/slog"
	"time"

	"github.com/fleetops/multas-tracker/internal/common"
)

// ContractMatch is the covering rental contract for an infraction instant.
// ProgramCode and Nationality are optional columns that older store versions
// may not carry; absence is a normal value, not an error.
type ContractMatch struct {
	Branch         string
	Customer       string
	ContractNumber string
	ProgramCode    *string
	Nationality    *string
}

// HasProgram reports whether the match carries an internal program code (HOC).
func (m *ContractMatch) HasProgram() bool {
	return m.ProgramCode != nil && *m.ProgramCode != ""
}

// ContractStore finds the single best covering contract for a plate at an
// instant. (nil, nil) is the normal no-match outcome. When several historical
// rentals overlap, the most recently started one wins.
type ContractStore interface {
	FindCoveringContract(ctx context.Context, plate string, instant time.Time) (*ContractMatch, error)
}

// ParseDateTime combines the textual extraction output (dd/MM/yyyy and HH:mm)
// into an instant. Returns false when either part is malformed; the caller
// must then skip reconciliation entirely.
func ParseDateTime(date, timeStr string) (time.Time, bool) {
	d, err := time.Parse("02/01/2006", date)
	if err != nil {
		return time.Time{}, false
	}
	t, err := time.Parse("15:04", timeStr)
	if err != nil {
		if t, err = time.Parse("3:04", timeStr); err != nil {
			return time.Time{}, false
		}
	}
	return time.Date(d.Year(), d.Month(), d.Day(), t.Hour(), t.Minute(), 0, 0, time.UTC), true
}

// Engine drives the reconciliation query with a bounded deadline.
type Engine struct {
	store   ContractStore
	timeout time.Duration
	logger  *slog.Logger
}

func NewEngine(store ContractStore, timeout time.Duration, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Engine{store: store, timeout: timeout, logger: logger}
}

// Reconcile returns the covering contract or (nil, nil) when the store has no
// match. The store round-trip is capped by the engine timeout.
func (e *Engine) Reconcile(ctx context.Context, plate string, instant time.Time) (*ContractMatch, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	m, err := e.store.FindCoveringContract(ctx, plate, instant)
	if err != nil {
		return nil, common.WrapError(err, "find covering contract for "+plate)
	}
	if m == nil {
		e.logger.Info("reconcile.no_match", "plate", plate, "instant", instant)
		return nil, nil
	}
	e.logger.Info("reconcile.match",
		"plate", plate,
		"branch", m.Branch,
		"customer", m.Customer,
		"hoc", m.HasProgram(),
	)
	return m, nil
}
