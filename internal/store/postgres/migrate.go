package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// migrationLockKey serializes concurrent Initialize calls from several replicas.
const migrationLockKey int64 = 0x70617274696369 // "partici"

// Initialize applies every embedded migration at most once. It is safe to
// call on each startup; already-applied files are skipped.
func (s *Store) Initialize(ctx context.Context) error {
	_, err := s.pool.Exec(ctx,
		`CREATE TABLE IF NOT EXISTS schema_migrations (
			name       TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("postgres.Store.Initialize: ensure migration table: %w", err)
	}

	entries, err := fs.ReadDir(migrationFS, "migrations")
	if err != nil {
		return fmt.Errorf("postgres.Store.Initialize: read migrations: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)

	for _, name := range files {
		if applyErr := s.applyMigration(ctx, name); applyErr != nil {
			return fmt.Errorf("postgres.Store.Initialize: %w", applyErr)
		}
	}

	return nil
}

func (s *Store) applyMigration(ctx context.Context, name string) error {
	content, err := migrationFS.ReadFile("migrations/" + name)
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin %s: %w", name, err)
	}
	defer func() {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			log.Warn().Err(rbErr).Str("migration", name).Msg("rollback migration")
		}
	}()

	if _, err = tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, migrationLockKey); err != nil {
		return fmt.Errorf("lock %s: %w", name, err)
	}

	var applied bool
	err = tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE name = $1)`, name).Scan(&applied)
	if err != nil {
		return fmt.Errorf("check %s: %w", name, err)
	}
	if applied {
		return tx.Commit(ctx)
	}

	if _, err = tx.Exec(ctx, string(content)); err != nil {
		return fmt.Errorf("exec %s: %w", name, err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO schema_migrations (name, applied_at) VALUES ($1, $2)`,
		name, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("record %s: %w", name, err)
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit %s: %w", name, err)
	}

	log.Info().Str("migration", name).Msg("applied migration")
	return nil
}
