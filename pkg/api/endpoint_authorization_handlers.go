package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/wardenhq/warden/pkg/authn"
	"github.com/wardenhq/warden/pkg/authz"
	"github.com/wardenhq/warden/pkg/endpoints"
	"github.com/wardenhq/warden/pkg/httputil"
)

// EndpointAuthorizationHandlers manages which roles may call which endpoint.
// These routes require a valid token but carry no authorization metadata of
// their own, so a locked-out administrator can always repair the grants.
type EndpointAuthorizationHandlers struct {
	endpoints *endpoints.Store
	enforcer  *authz.Enforcer
}

// NewEndpointAuthorizationHandlers creates the endpoint-authorization
// handler group.
func NewEndpointAuthorizationHandlers(store *endpoints.Store, enforcer *authz.Enforcer) *EndpointAuthorizationHandlers {
	return &EndpointAuthorizationHandlers{endpoints: store, enforcer: enforcer}
}

// RegisterRoutes registers endpoint-authorization routes behind required
// authentication.
func (h *EndpointAuthorizationHandlers) RegisterRoutes(router *mux.Router, required *authn.Middleware) {
	router.Handle("/api/endpoint-authorization/assign-roles-to-endpoint",
		required.Handler(http.HandlerFunc(h.assignRolesToEndpoint))).Methods(http.MethodPost)
	router.Handle("/api/endpoint-authorization/get-roles-for-endpoint",
		required.Handler(http.HandlerFunc(h.getRolesForEndpoint))).Methods(http.MethodPost)
}

// assignRolesToEndpoint handles POST
// /api/endpoint-authorization/assign-roles-to-endpoint
func (h *EndpointAuthorizationHandlers) assignRolesToEndpoint(w http.ResponseWriter, r *http.Request) {
	var req AssignRolesToEndpointRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Code, "code") {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Route, "route") {
		return
	}

	if err := h.endpoints.AssignRoles(r.Context(), req.Code, req.Route, req.Roles); err != nil {
		httputil.WriteError(w, err)
		return
	}

	// New grants apply on the next request, not after the cache TTL.
	h.enforcer.InvalidateEndpoint(req.Code, req.Route)

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		IsSuccessful: true,
		Message:      "Roles assigned to endpoint successfully.",
	})
}

// getRolesForEndpoint handles POST
// /api/endpoint-authorization/get-roles-for-endpoint
func (h *EndpointAuthorizationHandlers) getRolesForEndpoint(w http.ResponseWriter, r *http.Request) {
	var req GetRolesForEndpointRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Code, "code") {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Route, "route") {
		return
	}

	roleNames, err := h.endpoints.RoleNamesForEndpoint(r.Context(), req.Code, req.Route)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteSuccess(w, map[string][]string{"roles": roleNames})
}
