package model

import (
	"errors"
	"fmt"
)

// Retrieval outcomes. NotFound never says whether a name was malformed or
// simply absent.
var (
	ErrNotFound     = errors.New("image not found")
	ErrForbidden    = errors.New("access to image forbidden")
	ErrUnauthorized = errors.New("authentication required")
)

// ErrTooLarge is returned when a request body exceeds the upload ceiling
// before it reaches validation.
var ErrTooLarge = errors.New("File too large")

// ValidationError is returned when an upload is rejected because of its
// name or content. Reason is safe to show to the client.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// FilesystemError is a server-side storage failure.
type FilesystemError struct {
	Op   string
	Path string
	Err  error
}

func (e *FilesystemError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FilesystemError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err carries a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
