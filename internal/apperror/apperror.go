package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("Validation Error")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrExhausted    = errors.New("id space exhausted")

	// Client-side transport failures. The service never returns these.
	ErrNetwork = errors.New("network error")
	ErrTimeout = errors.New("timeout")
)

type AppError struct {
	Err     error  // actual error
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// Unauthorized is returned when no credential was presented on a gated
// operation. HTTP handlers map this to 401.
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// ExhaustedIDSpace reports that the allocator gave up after the given number
// of attempts without finding a free id.
func ExhaustedIDSpace(attempts int) *AppError {
	return &AppError{
		Err:     ErrExhausted,
		Message: fmt.Sprintf("no free id found after %d attempts", attempts),
	}
}

// Network wraps a transport failure (connection refused, DNS, reset).
func Network(err error) *AppError {
	return &AppError{
		Err:     ErrNetwork,
		Message: fmt.Sprintf("network error: %v", err),
	}
}

// Timeout wraps a call that did not answer within the client's deadline.
func Timeout(err error) *AppError {
	return &AppError{
		Err:     ErrTimeout,
		Message: fmt.Sprintf("request timed out: %v", err),
	}
}

// IsUnreachable reports whether err means the service could not be reached
// at all, as opposed to the service answering with a failure.
func IsUnreachable(err error) bool {
	return errors.Is(err, ErrNetwork) || errors.Is(err, ErrTimeout)
}
