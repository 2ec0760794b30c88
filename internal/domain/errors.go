package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the domain layer.
var (
	ErrNotFound     = errors.New("domain: not found")
	ErrInvalidInput = errors.New("domain: invalid input")
)

// StorageError reports a durable-store failure. It is fatal to the current
// invocation and is never retried by the store itself.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// NewStorageError wraps err as a StorageError for op. A nil err yields nil.
func NewStorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

// NotificationError reports an outbound delivery failure. Ledger mutations
// that already committed are not rolled back when one occurs.
type NotificationError struct {
	Platform  string
	Recipient string
	Err       error
}

func (e *NotificationError) Error() string {
	return fmt.Sprintf("notification to %s via %s: %v", e.Recipient, e.Platform, e.Err)
}

func (e *NotificationError) Unwrap() error { return e.Err }

// IsStorageError reports whether err carries a StorageError.
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}

// IsNotificationError reports whether err carries a NotificationError.
func IsNotificationError(err error) bool {
	var ne *NotificationError
	return errors.As(err, &ne)
}
