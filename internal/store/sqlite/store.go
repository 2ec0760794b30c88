package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/gosuda/participa/internal/domain"
)

// Store provides SQLite-backed persistence for the participation ledger.
type Store struct {
	sqlDB *sql.DB
	now   func() time.Time

	// mu serializes ledger writes within the process; the IMMEDIATE
	// transaction lock covers other processes sharing the file.
	mu sync.Mutex
}

// Option configures optional Store parameters.
type Option func(*Store)

// WithClock overrides the clock used to stamp new records.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a ledger SQLite store at the provided path. The schema is not
// touched; call Initialize once at startup.
func Open(path string, opts ...Option) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite.Open: storage path is required")
	}

	cleanPath := filepath.Clean(path)
	dsn := "file:" + cleanPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_txlock=immediate"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite.Open: open db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("sqlite.Open: ping db: %w", err)
	}

	s := &Store{sqlDB: sqlDB, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close closes the underlying SQLite database.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *Store) Participations() domain.ParticipationRepository { return s }
