package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/sakif/px/internal/apperror"
)

// contextKey is unexported so only this package can read or write the role.
type contextKey string

const roleKey contextKey = "role"

// APIKeyHeader is accepted when no Authorization header is present.
const APIKeyHeader = "X-API-Key"

// DenyFunc writes the response for a rejected request. err wraps
// apperror.ErrUnauthorized or apperror.ErrForbidden.
type DenyFunc func(w http.ResponseWriter, err error)

// Require is a middleware that rejects requests whose credential resolves to
// a role below min.
//
// No credential at all is apperror.Unauthorized. A credential that is present
// but resolves to a lower role (including an unknown credential) is
// apperror.Forbidden. On success the resolved role is stored in the request
// context.
func Require(gate *Gate, min Role, deny DenyFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			credential := Credential(r)
			if credential == "" {
				deny(w, apperror.Unauthorized("a credential is required"))
				return
			}

			role := gate.Resolve(credential)
			if role < min {
				deny(w, apperror.Forbidden(min.String()+" role required"))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithRole(r.Context(), role)))
		})
	}
}

// WithRole stores role in ctx.
func WithRole(ctx context.Context, role Role) context.Context {
	return context.WithValue(ctx, roleKey, role)
}

// RoleFromContext returns the role stored by Require, or RoleNone on public routes.
func RoleFromContext(ctx context.Context) Role {
	role, ok := ctx.Value(roleKey).(Role)
	if !ok {
		return RoleNone
	}
	return role
}

// Credential extracts the presented credential: "Authorization: Bearer <key>"
// first, then the X-API-Key header.
func Credential(r *http.Request) string {
	if h := strings.TrimSpace(r.Header.Get("Authorization")); h != "" {
		scheme, token, found := strings.Cut(h, " ")
		if found && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return h
	}
	return strings.TrimSpace(r.Header.Get(APIKeyHeader))
}
