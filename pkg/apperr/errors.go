// Package apperr defines the domain error taxonomy shared by services and
// HTTP handlers. Services return *Error values; handlers map them onto
// response envelopes and status codes without inspecting message text.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind classifies a domain failure.
type Kind string

const (
	KindUserNotFound         Kind = "user_not_found"
	KindInvalidLogin         Kind = "invalid_login"
	KindRefreshTokenExpired  Kind = "refresh_token_expired"
	KindFederatedLogin       Kind = "federated_login_invalid"
	KindRegistrationFailed   Kind = "registration_failed"
	KindPasswordResetFailed  Kind = "password_reset_failed"
	KindRolesNotFound        Kind = "roles_not_found"
	KindEndpointNotFound     Kind = "endpoint_not_found"
	KindRoleNotFound         Kind = "role_not_found"
	KindRoleAssignmentFailed Kind = "role_assignment_failed"
	KindUnauthorized         Kind = "unauthorized"
)

// Error is a domain error with a stable kind and a user-facing message.
type Error struct {
	Kind    Kind
	Message string
	// Reasons carries per-field failure details for aggregate failures
	// such as registration (duplicate username and duplicate email at once).
	Reasons []string
}

func (e *Error) Error() string {
	if len(e.Reasons) > 0 {
		return fmt.Sprintf("%s: %s", e.Message, strings.Join(e.Reasons, "; "))
	}
	return e.Message
}

// Is makes errors.Is match on kind, so sentinel comparisons work across
// independently constructed values.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Kind == t.Kind
}

// New creates a domain error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates a domain error with a formatted message.
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WithReasons attaches failure details to a copy of the error.
func (e *Error) WithReasons(reasons ...string) *Error {
	return &Error{Kind: e.Kind, Message: e.Message, Reasons: reasons}
}

// Sentinels for errors.Is checks. Services may return these directly or
// build richer values with New/Newf using the same kind.
var (
	ErrUserNotFound         = New(KindUserNotFound, "User not found")
	ErrInvalidLogin         = New(KindInvalidLogin, "Invalid user name or password")
	ErrRefreshTokenExpired  = New(KindRefreshTokenExpired, "Refresh token expired")
	ErrFederatedLogin       = New(KindFederatedLogin, "Invalid external authentication")
	ErrRegistrationFailed   = New(KindRegistrationFailed, "Registration failed")
	ErrPasswordResetFailed  = New(KindPasswordResetFailed, "Password could not be reset")
	ErrRolesNotFound        = New(KindRolesNotFound, "Roles not found")
	ErrEndpointNotFound     = New(KindEndpointNotFound, "Endpoint not found")
	ErrRoleNotFound         = New(KindRoleNotFound, "Role not found")
	ErrRoleAssignmentFailed = New(KindRoleAssignmentFailed, "Role assignment failed")
	ErrUnauthorized         = New(KindUnauthorized, "Unauthorized")
)

// HTTPStatus maps a domain error to the status code its envelope ships with.
// Unknown errors map to 500.
func HTTPStatus(err error) int {
	var e *Error
	if !errors.As(err, &e) {
		return http.StatusInternalServerError
	}
	switch e.Kind {
	case KindInvalidLogin, KindRefreshTokenExpired, KindFederatedLogin, KindUnauthorized:
		return http.StatusUnauthorized
	case KindUserNotFound, KindEndpointNotFound, KindRoleNotFound:
		return http.StatusNotFound
	case KindRegistrationFailed, KindPasswordResetFailed, KindRolesNotFound, KindRoleAssignmentFailed:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// KindOf extracts the kind from an error chain, or "" for non-domain errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
