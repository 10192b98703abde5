package handler

// RESPONSE HELPERS:
// Every error response from the API has the same shape:
//
//	{"error": "not_found", "message": "tag not found with id pxabc2345"}
//
// "error" is a stable machine-readable code; "message" is for humans.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/px/internal/apperror"
)

// ErrorResponse is the standard error format returned by all API endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`   // Machine-readable error type (e.g., "not_found")
	Message string `json:"message"` // Human-readable description
}

// OKResponse is the acknowledgment returned by mutating operations.
type OKResponse struct {
	OK bool `json:"ok"`
}

var ok = OKResponse{OK: true}

// Error codes shared with the client, which maps them back to sentinels.
const (
	CodeValidation   = "validation_error"
	CodeUnauthorized = "unauthorized"
	CodeForbidden    = "forbidden"
	CodeNotFound     = "not_found"
	CodeConflict     = "conflict"
	CodeExhausted    = "id_space_exhausted"
	CodeInternal     = "internal_error"
)

// writeJSON sends a JSON response with the given status code.
// Headers and status must be set before the body is written.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent; all we can do is log it.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// statusFor maps a domain error to a status code and error code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, apperror.ErrValidation):
		return http.StatusBadRequest, CodeValidation
	case errors.Is(err, apperror.ErrUnauthorized):
		return http.StatusUnauthorized, CodeUnauthorized
	case errors.Is(err, apperror.ErrForbidden):
		return http.StatusForbidden, CodeForbidden
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound, CodeNotFound
	case errors.Is(err, apperror.ErrConflict):
		return http.StatusConflict, CodeConflict
	case errors.Is(err, apperror.ErrExhausted):
		return http.StatusInternalServerError, CodeExhausted
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

// WriteError maps a domain error to the appropriate HTTP status code and sends it.
//
// The auth middleware uses it too, so denials share the one error shape.
//
// Only *apperror.AppError messages reach the client. Anything else is a
// storage or programming error whose text may contain SQL or file paths,
// so it becomes a generic 500.
func WriteError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		status, code := statusFor(err)
		writeJSON(w, status, ErrorResponse{
			Error:   code,
			Message: appErr.Message,
		})
		return
	}

	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:   CodeInternal,
		Message: "An internal error occurred",
	})
}

// NotFound answers unknown paths and unknown methods on known paths.
func NotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, ErrorResponse{
		Error:   CodeNotFound,
		Message: "no route for " + r.Method + " " + r.URL.Path,
	})
}
