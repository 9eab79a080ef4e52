package httputil

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wardenhq/warden/pkg/apperr"
)

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestWriteSuccess(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, WriteSuccess(rec, map[string]string{"accessToken": "abc"}))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	resp := decodeResponse(t, rec)
	assert.True(t, resp.IsSuccessful)
	assert.Empty(t, resp.Message)
	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "abc", data["accessToken"])
}

func TestWriteMessage(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, WriteMessage(rec, http.StatusOK, "Password updated"))

	resp := decodeResponse(t, rec)
	assert.True(t, resp.IsSuccessful)
	assert.Equal(t, "Password updated", resp.Message)
	assert.Nil(t, resp.Data)
}

func TestWriteError_DomainErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"invalid login", apperr.ErrInvalidLogin, http.StatusUnauthorized},
		{"user not found", apperr.ErrUserNotFound, http.StatusNotFound},
		{"roles not found", apperr.ErrRolesNotFound, http.StatusBadRequest},
		{"refresh expired", apperr.ErrRefreshTokenExpired, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteError(rec, tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			resp := decodeResponse(t, rec)
			assert.False(t, resp.IsSuccessful)
			assert.Equal(t, tt.err.Error(), resp.Message)
		})
	}
}

func TestWriteError_OpaqueForInternalErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, errors.New("pq: connection refused"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := decodeResponse(t, rec)
	assert.False(t, resp.IsSuccessful)
	assert.Equal(t, "An unexpected error occurred", resp.Message)
	assert.NotContains(t, resp.Message, "pq:")
}

func TestWriteUnauthorized(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteUnauthorized(rec, "Unauthorized")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	resp := decodeResponse(t, rec)
	assert.False(t, resp.IsSuccessful)
	assert.Equal(t, "Unauthorized", resp.Message)
}
