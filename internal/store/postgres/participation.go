package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gosuda/participa/internal/domain"
)

type ParticipationRepo struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

func NewParticipationRepo(pool *pgxpool.Pool) *ParticipationRepo {
	return &ParticipationRepo{pool: pool, now: time.Now}
}

func (r *ParticipationRepo) Append(ctx context.Context, senderID, displayName, label string) (int64, error) {
	senderID, displayName, label, err := domain.NormalizeParticipant(senderID, displayName, label)
	if err != nil {
		return 0, fmt.Errorf("participationRepo.Append: %w", err)
	}

	var id int64
	err = r.pool.QueryRow(ctx,
		`INSERT INTO participations (sender_id, display_name, recorded_at, label)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id`,
		senderID, displayName, r.now().UTC(), nullableText(label),
	).Scan(&id)
	if err != nil {
		return 0, domain.NewStorageError("participationRepo.Append", err)
	}

	return id, nil
}

func (r *ParticipationRepo) ListBySender(ctx context.Context, senderID string) ([]domain.HistoryEntry, error) {
	senderID = domain.NormalizeSenderID(senderID)
	rows, err := r.pool.Query(ctx,
		`SELECT recorded_at, label
		 FROM participations WHERE sender_id = $1
		 ORDER BY recorded_at DESC, id DESC`,
		senderID,
	)
	if err != nil {
		return nil, domain.NewStorageError("participationRepo.ListBySender", err)
	}
	defer rows.Close()

	var entries []domain.HistoryEntry
	for rows.Next() {
		var (
			e     domain.HistoryEntry
			label *string
		)
		if err = rows.Scan(&e.RecordedAt, &label); err != nil {
			return nil, domain.NewStorageError("participationRepo.ListBySender: scan", err)
		}
		e.Label = textValue(label)
		entries = append(entries, e)
	}
	if err = rows.Err(); err != nil {
		return nil, domain.NewStorageError("participationRepo.ListBySender: rows", err)
	}

	return entries, nil
}

func (r *ParticipationRepo) ListRecent(ctx context.Context, limit int) ([]domain.RecentEntry, error) {
	if limit <= 0 {
		return nil, nil
	}

	rows, err := r.pool.Query(ctx,
		`SELECT display_name, recorded_at, label
		 FROM participations
		 ORDER BY recorded_at DESC, id DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, domain.NewStorageError("participationRepo.ListRecent", err)
	}
	defer rows.Close()

	var entries []domain.RecentEntry
	for rows.Next() {
		var (
			e     domain.RecentEntry
			label *string
		)
		if err = rows.Scan(&e.DisplayName, &e.RecordedAt, &label); err != nil {
			return nil, domain.NewStorageError("participationRepo.ListRecent: scan", err)
		}
		e.Label = textValue(label)
		entries = append(entries, e)
	}
	if err = rows.Err(); err != nil {
		return nil, domain.NewStorageError("participationRepo.ListRecent: rows", err)
	}

	return entries, nil
}

// DeleteLatestBySender removes the newest record of senderID. The lookup and
// the delete run in one transaction holding a per-sender advisory lock, so
// concurrent undo requests for the same sender observe each other's commits.
func (r *ParticipationRepo) DeleteLatestBySender(ctx context.Context, senderID string) (bool, error) {
	senderID = domain.NormalizeSenderID(senderID)
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, domain.NewStorageError("participationRepo.DeleteLatestBySender: begin", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err = tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, senderID); err != nil {
		return false, domain.NewStorageError("participationRepo.DeleteLatestBySender: lock", err)
	}

	var id int64
	err = tx.QueryRow(ctx,
		`SELECT id FROM participations WHERE sender_id = $1
		 ORDER BY recorded_at DESC, id DESC
		 LIMIT 1`,
		senderID,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, domain.NewStorageError("participationRepo.DeleteLatestBySender: lookup", err)
	}

	tag, err := tx.Exec(ctx, `DELETE FROM participations WHERE id = $1`, id)
	if err != nil {
		return false, domain.NewStorageError("participationRepo.DeleteLatestBySender: delete", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return false, domain.NewStorageError("participationRepo.DeleteLatestBySender: commit", err)
	}

	return tag.RowsAffected() == 1, nil
}

func (r *ParticipationRepo) ListAll(ctx context.Context) ([]*domain.ParticipationRecord, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, sender_id, display_name, recorded_at, label
		 FROM participations
		 ORDER BY id ASC`,
	)
	if err != nil {
		return nil, domain.NewStorageError("participationRepo.ListAll", err)
	}
	defer rows.Close()

	var records []*domain.ParticipationRecord
	for rows.Next() {
		var (
			rec   domain.ParticipationRecord
			label *string
		)
		if err = rows.Scan(&rec.ID, &rec.SenderID, &rec.DisplayName, &rec.RecordedAt, &label); err != nil {
			return nil, domain.NewStorageError("participationRepo.ListAll: scan", err)
		}
		rec.Label = textValue(label)
		records = append(records, &rec)
	}
	if err = rows.Err(); err != nil {
		return nil, domain.NewStorageError("participationRepo.ListAll: rows", err)
	}

	return records, nil
}

func (r *ParticipationRepo) Count(ctx context.Context) (int64, error) {
	var count int64

	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM participations`).Scan(&count)
	if err != nil {
		return 0, domain.NewStorageError("participationRepo.Count", err)
	}

	return count, nil
}

func nullableText(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func textValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
