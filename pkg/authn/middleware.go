// Package authn authenticates requests from bearer access tokens and makes
// the verified caller available to downstream handlers.
package authn

import (
	"context"
	"net/http"
	"strings"

	"github.com/wardenhq/warden/pkg/contextkeys"
	"github.com/wardenhq/warden/pkg/httputil"
	"github.com/wardenhq/warden/pkg/observability"
	"github.com/wardenhq/warden/pkg/token"
)

// Principal is the authenticated caller extracted from a verified token.
type Principal struct {
	Username string
	Email    string
}

// Middleware verifies bearer tokens on incoming requests
type Middleware struct {
	issuer   *token.Issuer
	optional bool // If true, allow requests without a token
}

// NewMiddleware creates a new authentication middleware
func NewMiddleware(issuer *token.Issuer, optional bool) *Middleware {
	return &Middleware{
		issuer:   issuer,
		optional: optional,
	}
}

// Handler wraps an HTTP handler with bearer-token authentication. Requests
// with a valid token proceed with the principal in context; requests without
// one proceed anonymously when the middleware is optional and are rejected
// otherwise. A present-but-invalid token is always rejected.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			if m.optional {
				next.ServeHTTP(w, r)
				return
			}
			httputil.WriteUnauthorized(w, "Unauthorized")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			httputil.WriteUnauthorized(w, "Unauthorized")
			return
		}

		claims, err := m.issuer.Verify(parts[1])
		if err != nil {
			httputil.WriteUnauthorized(w, "Unauthorized")
			return
		}

		principal := &Principal{
			Username: claims.Name,
			Email:    claims.Email,
		}

		ctx := contextkeys.WithPrincipal(r.Context(), principal)
		ctx = observability.WithUsername(ctx, principal.Username)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// FromContext extracts the authenticated principal, or nil for anonymous
// requests.
func FromContext(ctx context.Context) *Principal {
	v := ctx.Value(contextkeys.PrincipalKey)
	if v == nil {
		return nil
	}
	principal, ok := v.(*Principal)
	if !ok {
		return nil
	}
	return principal
}

// FromRequest extracts the authenticated principal from a request.
func FromRequest(r *http.Request) *Principal {
	return FromContext(r.Context())
}
