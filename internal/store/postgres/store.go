package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gosuda/participa/internal/domain"
)

type Store struct {
	pool           *pgxpool.Pool
	participations *ParticipationRepo
}

// Option configures optional Store parameters.
type Option func(*Store)

// WithClock overrides the clock used to stamp new records.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.participations.now = now
	}
}

func New(ctx context.Context, dsn string, maxConns int32, opts ...Option) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres.New: parse config: %w", err)
	}

	cfg.MaxConns = maxConns

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres.New: connect: %w", err)
	}

	err = pool.Ping(ctx)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres.New: ping: %w", err)
	}

	s := &Store{
		pool:           pool,
		participations: NewParticipationRepo(pool),
	}
	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func (s *Store) Participations() domain.ParticipationRepository { return s.participations }
