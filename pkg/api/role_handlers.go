package api

import (
	"net/http"

	"github.com/wardenhq/warden/pkg/httputil"
	"github.com/wardenhq/warden/pkg/registry"
	"github.com/wardenhq/warden/pkg/roles"
)

// RoleHandlers handles role CRUD and the discovery listing.
type RoleHandlers struct {
	roles    *roles.Service
	registry *registry.Registry
}

// NewRoleHandlers creates the role handler group.
func NewRoleHandlers(roleService *roles.Service, reg *registry.Registry) *RoleHandlers {
	return &RoleHandlers{roles: roleService, registry: reg}
}

// RegisterRoutes registers role routes, every one carrying authorization
// metadata.
func (h *RoleHandlers) RegisterRoutes(s *Server) {
	s.guarded("/api/role/create-role", h.createRole, registry.Action{
		Method:     http.MethodPost,
		Kind:       registry.Write,
		Definition: "Create Role",
		Route:      "RoleController",
	})
	s.guarded("/api/role/delete-role/{id}", h.deleteRole, registry.Action{
		Method:     http.MethodDelete,
		Kind:       registry.Delete,
		Definition: "Delete Role",
		Route:      "RoleController",
	})
	s.guarded("/api/role/get-roles", h.getRoles, registry.Action{
		Method:     http.MethodGet,
		Kind:       registry.Read,
		Definition: "Get Roles",
		Route:      "RoleController",
	})
	s.guarded("/api/role/update-role/{id}", h.updateRole, registry.Action{
		Method:     http.MethodPatch,
		Kind:       registry.Update,
		Definition: "Update Role",
		Route:      "RoleController",
	})
	s.guarded("/api/role/get-authorize-definition-endpoints", h.getAuthorizeDefinitionEndpoints, registry.Action{
		Method:     http.MethodGet,
		Kind:       registry.Read,
		Definition: "Get Authorize Definition Endpoints",
		Route:      "RoleController",
	})
}

// createRole handles POST /api/role/create-role
func (h *RoleHandlers) createRole(w http.ResponseWriter, r *http.Request) {
	var req CreateRoleRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	role, err := h.roles.Create(r.Context(), req.Name)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{
		IsSuccessful: true,
		Message:      "Role created successfully.",
		Data:         RoleResponse{ID: role.ID, Name: role.Name},
	})
}

// deleteRole handles DELETE /api/role/delete-role/{id}
func (h *RoleHandlers) deleteRole(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	if err := h.roles.Delete(r.Context(), id); err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		IsSuccessful: true,
		Message:      "Role deleted successfully.",
	})
}

// getRoles handles GET /api/role/get-roles
func (h *RoleHandlers) getRoles(w http.ResponseWriter, r *http.Request) {
	list, err := h.roles.List(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	out := make([]RoleResponse, 0, len(list))
	for _, role := range list {
		out = append(out, RoleResponse{ID: role.ID, Name: role.Name})
	}
	httputil.WriteSuccess(w, map[string]interface{}{"roles": out})
}

// updateRole handles PATCH /api/role/update-role/{id}
func (h *RoleHandlers) updateRole(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	var req UpdateRoleRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	if err := h.roles.Update(r.Context(), id, req.Name); err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		IsSuccessful: true,
		Message:      "Role updated successfully.",
	})
}

// getAuthorizeDefinitionEndpoints handles GET
// /api/role/get-authorize-definition-endpoints. It lists what this build of
// the server declares, straight from the in-process table.
func (h *RoleHandlers) getAuthorizeDefinitionEndpoints(w http.ResponseWriter, r *http.Request) {
	httputil.WriteSuccess(w, map[string]interface{}{"menus": h.registry.Menus()})
}
