// Package errors defines the error taxonomy shared by the archive, the record
// store, the categorizer and the lookup server, plus helpers that map those
// errors onto HTTP status codes and process exit codes.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound                = errors.New("not found")
	ErrDuplicateKey            = errors.New("duplicate key")
	ErrBrokenLink              = errors.New("broken link")
	ErrSelfReference           = errors.New("food lists itself as ingredient")
	ErrInvalidCategoryOverride = errors.New("invalid category override")
	ErrConcurrentAccess        = errors.New("archive already in use")
	ErrCorrupt                 = errors.New("archive corrupt")
	ErrClosed                  = errors.New("already closed")
	ErrInvalidInput            = errors.New("invalid input")
	ErrInternal                = errors.New("internal error")
)

type AppError struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, statusCode int, message string) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    message,
		StatusCode: statusCode,
	}
}

func Newf(sentinel error, statusCode int, format string, args ...any) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    fmt.Sprintf(format, args...),
		StatusCode: statusCode,
	}
}

// IsMissing reports whether err means "no record for this key". A broken link
// counts as missing so callers can degrade instead of aborting.
func IsMissing(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrBrokenLink)
}

func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case IsMissing(err):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicateKey):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrInvalidCategoryOverride):
		return http.StatusBadRequest
	case errors.Is(err, ErrConcurrentAccess):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// ExitCode maps err to the exit status used by the command-line tool.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrInvalidInput):
		return 2
	case errors.Is(err, ErrDuplicateKey), errors.Is(err, ErrSelfReference):
		return 3
	case errors.Is(err, ErrCorrupt), errors.Is(err, ErrBrokenLink):
		return 4
	case errors.Is(err, ErrConcurrentAccess):
		return 5
	default:
		return 1
	}
}
