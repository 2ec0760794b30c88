package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/gosuda/participa/internal/domain"
)

// Append inserts a new record stamped with the store clock.
func (s *Store) Append(ctx context.Context, senderID, displayName, label string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	senderID, displayName, label, err := domain.NormalizeParticipant(senderID, displayName, label)
	if err != nil {
		return 0, fmt.Errorf("sqlite.Store.Append: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO participations (sender_id, display_name, recorded_at, label)
VALUES (?, ?, ?, ?)
`, senderID, displayName, toMillis(s.now()), nullableText(label))
	if err != nil {
		return 0, domain.NewStorageError("sqlite.Store.Append", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, domain.NewStorageError("sqlite.Store.Append: last insert id", err)
	}
	return id, nil
}

// ListBySender lists one sender's records newest first.
func (s *Store) ListBySender(ctx context.Context, senderID string) ([]domain.HistoryEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	senderID = domain.NormalizeSenderID(senderID)

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT recorded_at, label
FROM participations
WHERE sender_id = ?
ORDER BY recorded_at DESC, id DESC
`, senderID)
	if err != nil {
		return nil, domain.NewStorageError("sqlite.Store.ListBySender", err)
	}
	defer rows.Close()

	var entries []domain.HistoryEntry
	for rows.Next() {
		var (
			recordedAt int64
			label      sql.NullString
		)
		if err := rows.Scan(&recordedAt, &label); err != nil {
			return nil, domain.NewStorageError("sqlite.Store.ListBySender: scan", err)
		}
		entries = append(entries, domain.HistoryEntry{
			RecordedAt: fromMillis(recordedAt),
			Label:      label.String,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStorageError("sqlite.Store.ListBySender: rows", err)
	}
	return entries, nil
}

// ListRecent lists up to limit records across all senders, newest first.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]domain.RecentEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, nil
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT display_name, recorded_at, label
FROM participations
ORDER BY recorded_at DESC, id DESC
LIMIT ?
`, limit)
	if err != nil {
		return nil, domain.NewStorageError("sqlite.Store.ListRecent", err)
	}
	defer rows.Close()

	var entries []domain.RecentEntry
	for rows.Next() {
		var (
			e          domain.RecentEntry
			recordedAt int64
			label      sql.NullString
		)
		if err := rows.Scan(&e.DisplayName, &recordedAt, &label); err != nil {
			return nil, domain.NewStorageError("sqlite.Store.ListRecent: scan", err)
		}
		e.RecordedAt = fromMillis(recordedAt)
		e.Label = label.String
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStorageError("sqlite.Store.ListRecent: rows", err)
	}
	return entries, nil
}

// DeleteLatestBySender removes the newest record of senderID inside one
// write transaction and reports whether a row was deleted.
func (s *Store) DeleteLatestBySender(ctx context.Context, senderID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	senderID = domain.NormalizeSenderID(senderID)

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return false, domain.NewStorageError("sqlite.Store.DeleteLatestBySender: begin", err)
	}
	rollbackWith := func(cause error) (bool, error) {
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			return false, domain.NewStorageError("sqlite.Store.DeleteLatestBySender",
				fmt.Errorf("%w: rollback: %v", cause, rollbackErr))
		}
		return false, domain.NewStorageError("sqlite.Store.DeleteLatestBySender", cause)
	}

	var id int64
	err = tx.QueryRowContext(ctx, `
SELECT id FROM participations
WHERE sender_id = ?
ORDER BY recorded_at DESC, id DESC
LIMIT 1
`, senderID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		_ = tx.Rollback()
		return false, nil
	}
	if err != nil {
		return rollbackWith(fmt.Errorf("lookup: %w", err))
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM participations WHERE id = ?`, id)
	if err != nil {
		return rollbackWith(fmt.Errorf("delete: %w", err))
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return rollbackWith(fmt.Errorf("rows affected: %w", err))
	}

	if err := tx.Commit(); err != nil {
		return false, domain.NewStorageError("sqlite.Store.DeleteLatestBySender: commit", err)
	}
	return affected == 1, nil
}

// ListAll returns every record in insertion order.
func (s *Store) ListAll(ctx context.Context) ([]*domain.ParticipationRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT id, sender_id, display_name, recorded_at, label
FROM participations
ORDER BY id ASC
`)
	if err != nil {
		return nil, domain.NewStorageError("sqlite.Store.ListAll", err)
	}
	defer rows.Close()

	var records []*domain.ParticipationRecord
	for rows.Next() {
		var (
			rec        domain.ParticipationRecord
			recordedAt int64
			label      sql.NullString
		)
		if err := rows.Scan(&rec.ID, &rec.SenderID, &rec.DisplayName, &recordedAt, &label); err != nil {
			return nil, domain.NewStorageError("sqlite.Store.ListAll: scan", err)
		}
		rec.RecordedAt = fromMillis(recordedAt)
		rec.Label = label.String
		records = append(records, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStorageError("sqlite.Store.ListAll: rows", err)
	}
	return records, nil
}

// Count returns the number of records in the ledger.
func (s *Store) Count(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	var count int64
	if err := s.sqlDB.QueryRowContext(ctx, `SELECT COUNT(1) FROM participations`).Scan(&count); err != nil {
		return 0, domain.NewStorageError("sqlite.Store.Count", err)
	}
	return count, nil
}

func nullableText(value string) sql.NullString {
	return sql.NullString{String: value, Valid: value != ""}
}
