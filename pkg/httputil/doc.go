// Package httputil provides HTTP utilities for standardized request/response handling.
//
// # Response Envelope
//
// Every endpoint replies with the same envelope:
//
//	{"isSuccessful": true, "message": "...", "data": {...}}
//
// Success:
//
//	httputil.WriteSuccess(w, data)
//	httputil.WriteCreated(w, resource)
//	httputil.WriteMessage(w, http.StatusOK, "Password updated")
//
// Failures map domain errors onto status codes automatically:
//
//	httputil.WriteError(w, err) // *apperr.Error -> 400/401/404, else opaque 500
//	httputil.WriteUnauthorized(w, "Unauthorized")
//
// # Request Parsing
//
//	var req LoginRequest
//	if !httputil.ParseJSONOrError(w, r, &req) {
//		return // Error response already written
//	}
//	id, ok := httputil.ParsePathStringOrError(w, r, "id")
//
// # Middleware
//
//	httputil.Chain(
//		httputil.RequestIDMiddleware,
//		httputil.LoggingMiddleware(logger),
//		httputil.RecoveryMiddleware,
//		httputil.TimeoutMiddleware(30*time.Second),
//		httputil.MaxBytesMiddleware(1024*1024),
//	)
//
// # Related Packages
//
//   - pkg/authn: bearer token authentication middleware
//   - pkg/authz: endpoint authorization middleware
package httputil
