package vial

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure scenarios.
var (
	// General errors
	ErrNotFound     = errors.New("vial: not found")
	ErrInvalidInput = errors.New("vial: invalid input")

	// Store errors
	ErrStoreUnavailable = errors.New("vial: store unavailable")
	ErrStoreClosed      = errors.New("vial: store is closed")
	ErrMigrationFailed  = errors.New("vial: migration failed")

	// Policy errors
	ErrCapacityGuard = errors.New("vial: not enough insulin left for another shot")

	// Session errors
	ErrNotEditing = errors.New("vial: no record is being edited")

	// Tracker errors
	ErrTrackerStopped = errors.New("vial: tracker is stopped")
	ErrNotStarted     = errors.New("vial: tracker not started")
)

// ValidationError represents a validation failure with details.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("vial: validation failed for %s: %s", e.Field, e.Message)
}

// Unwrap lets errors.Is match ErrInvalidInput.
func (e ValidationError) Unwrap() error { return ErrInvalidInput }

// StoreError wraps a failed store call. It matches ErrStoreUnavailable and
// the underlying cause.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("vial: store %s failed: %v", e.Op, e.Err)
}

// Unwrap returns both the sentinel and the cause.
func (e *StoreError) Unwrap() []error { return []error{ErrStoreUnavailable, e.Err} }

// storeError wraps err for op, leaving nil untouched.
func storeError(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsStoreError returns true if the error came from the event store.
func IsStoreError(err error) bool {
	return errors.Is(err, ErrStoreUnavailable) ||
		errors.Is(err, ErrStoreClosed)
}

// IsPolicyRejection returns true if a save was refused without touching the store.
func IsPolicyRejection(err error) bool {
	return errors.Is(err, ErrCapacityGuard)
}

// IsRetryable returns true if the error is temporary and the operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable) && !errors.Is(err, ErrStoreClosed) && !IsNotFound(err)
}
