// Package apperr defines the error taxonomy shared by services and handlers.
package apperr

import (
	"errors"
	"fmt"
)

// Sentinel errors. Services wrap these with context via fmt.Errorf("...: %w", ...)
// and handlers map them to HTTP status codes.
var (
	ErrUnauthenticated = errors.New("not authorized to access this route")
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = errors.New("not found")
	ErrValidation      = errors.New("validation failed")
)

// UploadError rejects a multipart file part before any remote call is made.
// Reason is safe to return to the client.
type UploadError struct {
	Reason string
}

func (e *UploadError) Error() string {
	return e.Reason
}

// RemoteError reports a failed call against the remote media store.
type RemoteError struct {
	Op       string // "upload" or "remove"
	PublicID string
	Err      error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote media store %s %q: %v", e.Op, e.PublicID, e.Err)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// Validationf wraps ErrValidation with a client-visible message.
func Validationf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrValidation)...)
}

// NotFoundf wraps ErrNotFound with a client-visible message.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrNotFound)...)
}

// Forbiddenf wraps ErrForbidden with a client-visible message.
func Forbiddenf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrForbidden)...)
}
