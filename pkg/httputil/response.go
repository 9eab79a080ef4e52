// Package httputil provides HTTP handler utilities: the shared response
// envelope, JSON decoding, request parsing, and middleware.
package httputil

import (
	"encoding/json"
	"net/http"

	"github.com/wardenhq/warden/pkg/apperr"
)

// Response is the envelope every API endpoint replies with.
type Response struct {
	IsSuccessful bool        `json:"isSuccessful"`
	Message      string      `json:"message,omitempty"`
	Data         interface{} `json:"data,omitempty"`
}

// WriteJSON writes a JSON response with the given status code
func WriteJSON(w http.ResponseWriter, status int, body interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(body)
}

// WriteData writes a successful envelope carrying data
func WriteData(w http.ResponseWriter, status int, data interface{}) error {
	return WriteJSON(w, status, Response{IsSuccessful: true, Data: data})
}

// WriteSuccess writes a 200 envelope carrying data
func WriteSuccess(w http.ResponseWriter, data interface{}) error {
	return WriteData(w, http.StatusOK, data)
}

// WriteCreated writes a 201 envelope carrying data
func WriteCreated(w http.ResponseWriter, data interface{}) error {
	return WriteData(w, http.StatusCreated, data)
}

// WriteMessage writes a successful envelope carrying only a message
func WriteMessage(w http.ResponseWriter, status int, message string) error {
	return WriteJSON(w, status, Response{IsSuccessful: true, Message: message})
}

// WriteErrorMessage writes a failure envelope with a custom message
func WriteErrorMessage(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, Response{IsSuccessful: false, Message: message})
}

// WriteError writes a failure envelope for a domain error, deriving the
// status code from the error kind. Non-domain errors become opaque 500s so
// internal detail never reaches clients.
func WriteError(w http.ResponseWriter, err error) {
	status := apperr.HTTPStatus(err)
	message := err.Error()
	if status == http.StatusInternalServerError && apperr.KindOf(err) == "" {
		message = "An unexpected error occurred"
	}
	WriteErrorMessage(w, status, message)
}

// WriteValidationError writes a failure envelope with 400 Bad Request
func WriteValidationError(w http.ResponseWriter, message string) {
	WriteErrorMessage(w, http.StatusBadRequest, message)
}

// WriteBadRequest writes a failure envelope with 400 Bad Request
func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteErrorMessage(w, http.StatusBadRequest, message)
}

// WriteUnauthorized writes a failure envelope with 401 Unauthorized
func WriteUnauthorized(w http.ResponseWriter, message string) {
	WriteErrorMessage(w, http.StatusUnauthorized, message)
}

// WriteNotFound writes a failure envelope with 404 Not Found
func WriteNotFound(w http.ResponseWriter, message string) {
	WriteErrorMessage(w, http.StatusNotFound, message)
}

// WriteInternalError writes an opaque failure envelope with 500
func WriteInternalError(w http.ResponseWriter) {
	WriteErrorMessage(w, http.StatusInternalServerError, "An unexpected error occurred")
}
