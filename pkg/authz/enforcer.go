// Package authz enforces endpoint-level authorization. For each request that
// matched a registered action, the caller's roles are intersected with the
// roles granted to the endpoint; requests without a matching grant get a 401
// envelope.
package authz

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/wardenhq/warden/pkg/apperr"
	"github.com/wardenhq/warden/pkg/authn"
	"github.com/wardenhq/warden/pkg/httputil"
	"github.com/wardenhq/warden/pkg/observability"
	"github.com/wardenhq/warden/pkg/registry"
)

const (
	// permittedRoleCacheSize bounds the endpoint grant cache. The catalog is
	// small (one entry per guarded operation) so this is generous.
	permittedRoleCacheSize = 256
	// permittedRoleCacheTTL keeps grant changes visible within seconds while
	// absorbing the per-request lookup.
	permittedRoleCacheTTL = 30 * time.Second
)

// UserRoleSource resolves the role names held by a username.
type UserRoleSource interface {
	RoleNamesForUsername(ctx context.Context, username string) ([]string, error)
}

// EndpointRoleSource resolves the role names granted to an endpoint.
type EndpointRoleSource interface {
	RoleNamesForEndpoint(ctx context.Context, code, route string) ([]string, error)
}

// Enforcer decides per request whether the authenticated caller may invoke
// the matched action.
type Enforcer struct {
	registry      *registry.Registry
	userRoles     UserRoleSource
	endpointRoles EndpointRoleSource
	cache         *expirable.LRU[string, []string]
	logger        *observability.Logger
	metrics       *observability.Metrics
}

// NewEnforcer creates an enforcer over the action registry and role sources.
func NewEnforcer(reg *registry.Registry, userRoles UserRoleSource, endpointRoles EndpointRoleSource, logger *observability.Logger, metrics *observability.Metrics) *Enforcer {
	return &Enforcer{
		registry:      reg,
		userRoles:     userRoles,
		endpointRoles: endpointRoles,
		cache:         expirable.NewLRU[string, []string](permittedRoleCacheSize, nil, permittedRoleCacheTTL),
		logger:        logger,
		metrics:       metrics,
	}
}

// Middleware enforces authorization on requests whose mux route carries a
// registered action. Anonymous requests and unregistered routes pass
// through untouched; required authentication is the authn middleware's job.
func (e *Enforcer) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal := authn.FromRequest(r)
		if principal == nil {
			next.ServeHTTP(w, r)
			return
		}

		route := mux.CurrentRoute(r)
		if route == nil {
			next.ServeHTTP(w, r)
			return
		}
		action, ok := e.registry.Lookup(route.GetName())
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		allowed, err := e.allowed(r.Context(), principal.Username, action)
		if err != nil {
			if errors.Is(err, apperr.ErrEndpointNotFound) {
				// The catalog has no row for this action; fail closed.
				e.deny(w, r, principal.Username, action)
				return
			}
			observability.FromContext(r.Context()).WithError(err).Error("authorization check failed")
			httputil.WriteError(w, err)
			return
		}
		if !allowed {
			e.deny(w, r, principal.Username, action)
			return
		}

		e.metrics.AuthzDecisionsTotal.WithLabelValues("allow").Inc()
		next.ServeHTTP(w, r)
	})
}

func (e *Enforcer) deny(w http.ResponseWriter, r *http.Request, username string, action registry.Action) {
	e.metrics.AuthzDecisionsTotal.WithLabelValues("deny").Inc()
	observability.FromContext(r.Context()).
		WithField("username", username).
		WithField("code", action.Code()).
		WithField("route", action.Route).
		Warn("authorization denied")
	httputil.WriteUnauthorized(w, "Unauthorized")
}

func (e *Enforcer) allowed(ctx context.Context, username string, action registry.Action) (bool, error) {
	userRoles, err := e.userRoles.RoleNamesForUsername(ctx, username)
	if err != nil {
		return false, err
	}
	if len(userRoles) == 0 {
		return false, nil
	}

	permitted, err := e.permittedRoles(ctx, action)
	if err != nil {
		return false, err
	}

	granted := make(map[string]bool, len(permitted))
	for _, name := range permitted {
		granted[name] = true
	}
	for _, name := range userRoles {
		if granted[name] {
			return true, nil
		}
	}
	return false, nil
}

// permittedRoles returns the endpoint's granted role names through the
// expirable cache.
func (e *Enforcer) permittedRoles(ctx context.Context, action registry.Action) ([]string, error) {
	key := action.Route + "|" + action.Code()
	if roles, ok := e.cache.Get(key); ok {
		e.metrics.AuthzCacheHitsTotal.Inc()
		return roles, nil
	}
	e.metrics.AuthzCacheMissesTotal.Inc()

	roles, err := e.endpointRoles.RoleNamesForEndpoint(ctx, action.Code(), action.Route)
	if err != nil {
		return nil, err
	}
	e.cache.Add(key, roles)
	return roles, nil
}

// InvalidateEndpoint drops the cached grants for one action so a fresh
// assignment takes effect immediately.
func (e *Enforcer) InvalidateEndpoint(code, route string) {
	e.cache.Remove(route + "|" + code)
}
