package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIs_MatchesOnKind(t *testing.T) {
	err := Newf(KindUserNotFound, "user %q not found", "alice")
	assert.True(t, errors.Is(err, ErrUserNotFound))
	assert.False(t, errors.Is(err, ErrRoleNotFound))
}

func TestIs_ThroughWrapping(t *testing.T) {
	err := fmt.Errorf("login: %w", ErrInvalidLogin)
	assert.True(t, errors.Is(err, ErrInvalidLogin))
	assert.Equal(t, KindInvalidLogin, KindOf(err))
}

func TestWithReasons(t *testing.T) {
	err := ErrRegistrationFailed.WithReasons("username taken", "email taken")
	assert.True(t, errors.Is(err, ErrRegistrationFailed))
	assert.Contains(t, err.Error(), "username taken")
	assert.Contains(t, err.Error(), "email taken")
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{ErrInvalidLogin, http.StatusUnauthorized},
		{ErrRefreshTokenExpired, http.StatusUnauthorized},
		{ErrFederatedLogin, http.StatusUnauthorized},
		{ErrUnauthorized, http.StatusUnauthorized},
		{ErrUserNotFound, http.StatusNotFound},
		{ErrEndpointNotFound, http.StatusNotFound},
		{ErrRoleNotFound, http.StatusNotFound},
		{ErrRegistrationFailed, http.StatusBadRequest},
		{ErrRolesNotFound, http.StatusBadRequest},
		{ErrPasswordResetFailed, http.StatusBadRequest},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, HTTPStatus(tt.err), "for %v", tt.err)
	}
}

func TestKindOf_NonDomainError(t *testing.T) {
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
}
