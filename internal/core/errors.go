package core

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a CoreError so callers can branch on failure without
// parsing messages. See SPEC_FULL.md section 7 for the full taxonomy.
type ErrorKind string

const (
	ErrNotFound            ErrorKind = "not_found"
	ErrOutOfRange          ErrorKind = "out_of_range"
	ErrAlreadyActive       ErrorKind = "already_active"
	ErrConflict            ErrorKind = "conflict"
	ErrHardwareUnavailable ErrorKind = "hardware_unavailable"
	ErrBackendNotStarted   ErrorKind = "backend_not_started"
	ErrRepositoryError     ErrorKind = "repository_error"
	ErrTimeout             ErrorKind = "timeout"
	ErrQueueOverflow       ErrorKind = "queue_overflow"
	ErrInternal            ErrorKind = "internal_error"
)

// CoreError is the typed error every command-surface method returns on
// failure. It never carries a nil Kind: an untyped failure is always wrapped
// as ErrInternal rather than surfaced bare.
type CoreError struct {
	Kind    ErrorKind
	Message string
	Err     error

	// ConflictPlaylistID is set only when Kind is ErrConflict: the ID of
	// the playlist the requested NFC tag is already bound to.
	ConflictPlaylistID string
}

func (e *CoreError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *CoreError) Unwrap() error { return e.Err }

// NewError builds a CoreError with no wrapped cause.
func NewError(kind ErrorKind, message string) *CoreError {
	return &CoreError{Kind: kind, Message: message}
}

// WrapError builds a CoreError wrapping an underlying cause.
func WrapError(kind ErrorKind, message string, err error) *CoreError {
	return &CoreError{Kind: kind, Message: message, Err: err}
}

// IsKind reports whether err is a *CoreError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var ce *CoreError
	if !errors.As(err, &ce) {
		return false
	}
	return ce.Kind == kind
}
