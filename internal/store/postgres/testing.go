package postgres

import (
	"context"
	"fmt"
)

// Truncate removes every ledger row. Intended for
// integration tests against a disposable database.
func (s *Store) Truncate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `TRUNCATE participations`); err != nil {
		return fmt.Errorf("postgres.Store.Truncate: %w", err)
	}
	return nil
}
