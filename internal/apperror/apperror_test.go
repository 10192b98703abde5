package apperror

import (
	"errors"
	"fmt"
	"testing"
)

// Each case checks that errors.Is() sees the sentinel through the AppError.
func TestErrorsIs(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		target    error
		wantMatch bool
	}{
		{
			name:      "NotFound wraps ErrNotFound",
			err:       NotFound("tag", "pxabc2345"),
			target:    ErrNotFound,
			wantMatch: true,
		},
		{
			name:      "ValidationFailed wraps ErrValidation",
			err:       ValidationFailed("name", "name is required"),
			target:    ErrValidation,
			wantMatch: true,
		},
		{
			name:      "Unauthorized wraps ErrUnauthorized",
			err:       Unauthorized("credential required"),
			target:    ErrUnauthorized,
			wantMatch: true,
		},
		{
			name:      "Forbidden wraps ErrForbidden",
			err:       Forbidden("admin role required"),
			target:    ErrForbidden,
			wantMatch: true,
		},
		{
			name:      "ExhaustedIDSpace wraps ErrExhausted",
			err:       ExhaustedIDSpace(10),
			target:    ErrExhausted,
			wantMatch: true,
		},
		{
			name:      "wrapped Timeout still matches through fmt.Errorf",
			err:       fmt.Errorf("getting tag: %w", Timeout(errors.New("deadline"))),
			target:    ErrTimeout,
			wantMatch: true,
		},
		{
			name:      "NotFound does NOT match ErrValidation",
			err:       NotFound("tag", "pxabc2345"),
			target:    ErrValidation,
			wantMatch: false,
		},
		{
			name:      "Forbidden does NOT match ErrUnauthorized",
			err:       Forbidden("nope"),
			target:    ErrUnauthorized,
			wantMatch: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := errors.Is(tt.err, tt.target)
			if got != tt.wantMatch {
				t.Errorf("errors.Is(%v, %v) = %v, want %v", tt.err, tt.target, got, tt.wantMatch)
			}
		})
	}
}

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name        string
		err         *AppError
		wantMessage string
	}{
		{
			name:        "NotFound message includes resource and id",
			err:         NotFound("tag", "pxabc2345"),
			wantMessage: "tag not found with id pxabc2345",
		},
		{
			name:        "ValidationFailed uses custom message",
			err:         ValidationFailed("name", "name is required"),
			wantMessage: "name is required",
		},
		{
			name:        "ExhaustedIDSpace reports attempts",
			err:         ExhaustedIDSpace(10),
			wantMessage: "no free id found after 10 attempts",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMessage {
				t.Errorf("Error() = %q, want %q", got, tt.wantMessage)
			}
		})
	}
}

func TestUnwrap(t *testing.T) {
	err := NotFound("tag", "pxabc2345")
	if unwrapped := err.Unwrap(); unwrapped != ErrNotFound {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, ErrNotFound)
	}
}

func TestValidationFailedField(t *testing.T) {
	err := ValidationFailed("url", "link url is required")
	if err.Field != "url" {
		t.Errorf("Field = %q, want %q", err.Field, "url")
	}
}

func TestIsUnreachable(t *testing.T) {
	if !IsUnreachable(Network(errors.New("connection refused"))) {
		t.Error("IsUnreachable(Network) = false, want true")
	}
	if !IsUnreachable(Timeout(errors.New("deadline exceeded"))) {
		t.Error("IsUnreachable(Timeout) = false, want true")
	}
	if IsUnreachable(NotFound("tag", "x")) {
		t.Error("IsUnreachable(NotFound) = true, want false")
	}
}
