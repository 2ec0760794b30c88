package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockHeld is returned by TryLock when another holder owns the lock.
var ErrLockHeld = errors.New("redis: lock held") //nolint:gochecknoglobals // sentinel error

// releaseScript deletes the key only when it still carries our token, so a
// holder whose TTL expired cannot release a successor's lock.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`) //nolint:gochecknoglobals // compiled script

// Locker is a single-key mutual-exclusion lock shared by every process that
// points at the same Redis database.
type Locker struct {
	client       redis.UniversalClient
	key          string
	ttl          time.Duration
	pollInterval time.Duration
}

// LockerOption configures optional Locker parameters.
type LockerOption func(*Locker)

// WithTTL sets how long a lock survives if its holder never releases it.
func WithTTL(d time.Duration) LockerOption {
	return func(l *Locker) {
		l.ttl = d
	}
}

// WithPollInterval sets how often Lock retries while the lock is held.
func WithPollInterval(d time.Duration) LockerOption {
	return func(l *Locker) {
		l.pollInterval = d
	}
}

func New(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis.New: ping: %w", err)
	}

	return client, nil
}

// NewLocker creates a Locker on key.
func NewLocker(client redis.UniversalClient, key string, opts ...LockerOption) *Locker {
	l := &Locker{
		client:       client,
		key:          key,
		ttl:          5 * time.Minute,
		pollInterval: 250 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// TryLock acquires the lock without waiting. It returns ErrLockHeld when
// another holder owns it.
func (l *Locker) TryLock(ctx context.Context) (func(), error) {
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis.Locker.TryLock: %w", err)
	}
	if !ok {
		return nil, ErrLockHeld
	}

	return func() {
		// Release must not depend on the caller's context, which may be done.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = releaseScript.Run(releaseCtx, l.client, []string{l.key}, token).Err()
	}, nil
}

// Lock blocks until the lock is acquired or ctx is done.
func (l *Locker) Lock(ctx context.Context) (func(), error) {
	ticker := time.NewTicker(l.pollInterval)
	defer ticker.Stop()

	for {
		unlock, err := l.TryLock(ctx)
		if err == nil {
			return unlock, nil
		}
		if !errors.Is(err, ErrLockHeld) {
			return nil, fmt.Errorf("redis.Locker.Lock: %w", err)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("redis.Locker.Lock: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

// ReportLockKey returns the Redis key guarding report generation for a
// reports directory.
func ReportLockKey(reportsDir string) string {
	return "participa:report-lock:" + reportsDir
}
