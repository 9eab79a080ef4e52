// Package api is the HTTP surface. Handlers translate between the JSON
// envelope and the services; authorization metadata is declared next to each
// route so the catalog in the database and the enforcement table can never
// drift apart.
package api

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/wardenhq/warden/pkg/auth"
	"github.com/wardenhq/warden/pkg/authn"
	"github.com/wardenhq/warden/pkg/authz"
	"github.com/wardenhq/warden/pkg/endpoints"
	"github.com/wardenhq/warden/pkg/httputil"
	"github.com/wardenhq/warden/pkg/observability"
	"github.com/wardenhq/warden/pkg/registry"
	"github.com/wardenhq/warden/pkg/roles"
	"github.com/wardenhq/warden/pkg/token"
	"github.com/wardenhq/warden/pkg/users"
)

// Deps carries everything the server wires together.
type Deps struct {
	DB        *sql.DB
	Auth      *auth.Service
	Users     *users.Service
	Roles     *roles.Service
	Endpoints *endpoints.Store
	Issuer    *token.Issuer
	Logger    *observability.Logger
	Metrics   *observability.Metrics
}

// Server is the API server.
type Server struct {
	router        *mux.Router
	registry      *registry.Registry
	enforcer      *authz.Enforcer
	authnRequired *authn.Middleware
	db            *sql.DB
	logger        *observability.Logger
}

// NewServer builds the router, the action registry and the enforcement
// middleware in one place.
func NewServer(deps Deps) *Server {
	s := &Server{
		router:   mux.NewRouter(),
		registry: registry.New(),
		db:       deps.DB,
		logger:   deps.Logger,
	}

	s.enforcer = authz.NewEnforcer(s.registry, deps.Users, deps.Endpoints, deps.Logger, deps.Metrics)
	s.authnRequired = authn.NewMiddleware(deps.Issuer, false)

	authHandlers := NewAuthHandlers(deps.Auth, deps.Users)
	userHandlers := NewUserHandlers(deps.Users)
	roleHandlers := NewRoleHandlers(deps.Roles, s.registry)
	endpointHandlers := NewEndpointAuthorizationHandlers(deps.Endpoints, s.enforcer)

	authHandlers.RegisterRoutes(s.router)
	userHandlers.RegisterRoutes(s)
	roleHandlers.RegisterRoutes(s)
	endpointHandlers.RegisterRoutes(s.router, s.authnRequired)

	s.router.HandleFunc("/healthz", s.healthz).Methods(http.MethodGet)

	// Every request runs through optional authentication so enforcement can
	// see the caller; routes without registry metadata stay open.
	s.router.Use(authn.NewMiddleware(deps.Issuer, true).Handler, s.enforcer.Middleware)

	return s
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Router exposes the underlying mux for outer middleware.
func (s *Server) Router() *mux.Router {
	return s.router
}

// Registry exposes the action table for startup reconciliation.
func (s *Server) Registry() *registry.Registry {
	return s.registry
}

// guarded registers a route together with its authorization metadata. The
// mux route name keys the registry, so enforcement finds the action for
// exactly the route that matched. Guarded routes require authentication;
// enforcement then intersects the caller's roles with the endpoint's grants.
func (s *Server) guarded(path string, handler http.HandlerFunc, action registry.Action) {
	method := action.Method
	if method == "" {
		method = http.MethodGet
	}
	name := registry.NormalizeRoute(action.Route) + "." + action.Code()
	s.registry.Register(name, action)
	s.router.Handle(path, s.authnRequired.Handler(handler)).Methods(method).Name(name)
}

// healthz reports process and database liveness.
func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		s.logger.WithError(err).Error("health check failed")
		httputil.WriteErrorMessage(w, http.StatusServiceUnavailable, "database unreachable")
		return
	}
	httputil.WriteSuccess(w, map[string]string{"status": "ok"})
}
