// Package store opens the configured ledger backend.
package store

import (
	"context"
	"fmt"
	"math"

	"github.com/gosuda/participa/internal/config"
	"github.com/gosuda/participa/internal/domain"
	"github.com/gosuda/participa/internal/store/postgres"
	"github.com/gosuda/participa/internal/store/sqlite"
)

// Ledger is a durable participation ledger with an explicit schema step.
type Ledger interface {
	Participations() domain.ParticipationRepository
	Initialize(ctx context.Context) error
	Close() error
}

var (
	_ Ledger = (*postgres.Store)(nil)
	_ Ledger = (*sqlite.Store)(nil)
)

// Open connects to the backend named by cfg.Driver.
func Open(ctx context.Context, cfg config.DatabaseConfig) (Ledger, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		s, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("store.Open: %w", err)
		}
		return s, nil
	case config.DriverPostgres:
		if cfg.MaxConns < 1 || cfg.MaxConns > math.MaxInt32 {
			return nil, fmt.Errorf("store.Open: max_conns %d out of int32 range", cfg.MaxConns)
		}
		s, err := postgres.New(ctx, cfg.DSN(), int32(cfg.MaxConns)) //nolint:gosec // bounds checked above
		if err != nil {
			return nil, fmt.Errorf("store.Open: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("store.Open: unknown driver %q", cfg.Driver)
	}
}
