package report

import (
	"context"
)

// Locker serializes report runs. Lock blocks until the lock is held or ctx is
// done, and returns the function that releases it.
// *redis.Locker satisfies this interface for multi-replica deployments.
type Locker interface {
	Lock(ctx context.Context) (func(), error)
}

// MutexLocker is an in-process Locker.
type MutexLocker struct {
	sem chan struct{}
}

// NewMutexLocker creates an unlocked MutexLocker.
func NewMutexLocker() *MutexLocker {
	return &MutexLocker{sem: make(chan struct{}, 1)}
}

// Lock implements Locker.
func (m *MutexLocker) Lock(ctx context.Context) (func(), error) {
	select {
	case m.sem <- struct{}{}:
		return func() { <-m.sem }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
