package api

import (
	"net/http"

	"github.com/wardenhq/warden/pkg/httputil"
	"github.com/wardenhq/warden/pkg/registry"
	"github.com/wardenhq/warden/pkg/users"
)

// UserHandlers handles the user directory surface.
type UserHandlers struct {
	users *users.Service
}

// NewUserHandlers creates the user handler group.
func NewUserHandlers(userService *users.Service) *UserHandlers {
	return &UserHandlers{users: userService}
}

// RegisterRoutes registers user routes. Password updates stay anonymous (the
// reset token is the credential); the role operations carry authorization
// metadata.
func (h *UserHandlers) RegisterRoutes(s *Server) {
	s.router.HandleFunc("/api/user/update-password", h.updatePassword).Methods(http.MethodPost)

	s.guarded("/api/user/get-user-roles/{userNameOrUserId}", h.getUserRoles, registry.Action{
		Method:     http.MethodGet,
		Kind:       registry.Read,
		Definition: "Get User Roles",
		Route:      "UserController",
	})
	s.guarded("/api/user/assign-user-roles", h.assignUserRoles, registry.Action{
		Method:     http.MethodPost,
		Kind:       registry.Write,
		Definition: "Assign User Roles",
		Route:      "UserController",
	})
}

// updatePassword handles POST /api/user/update-password
func (h *UserHandlers) updatePassword(w http.ResponseWriter, r *http.Request) {
	var req UpdatePasswordRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	err := h.users.UpdatePassword(r.Context(), req.UserID, req.ResetToken, req.Password, req.PasswordConfirm)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		IsSuccessful: true,
		Message:      "Password updated successfully.",
	})
}

// getUserRoles handles GET /api/user/get-user-roles/{userNameOrUserId}
func (h *UserHandlers) getUserRoles(w http.ResponseWriter, r *http.Request) {
	idOrName, ok := httputil.ParsePathStringOrError(w, r, "userNameOrUserId")
	if !ok {
		return
	}

	roleNames, err := h.users.UserRoles(r.Context(), idOrName)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteSuccess(w, map[string][]string{"roles": roleNames})
}

// assignUserRoles handles POST /api/user/assign-user-roles
func (h *UserHandlers) assignUserRoles(w http.ResponseWriter, r *http.Request) {
	var req AssignUserRolesRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.UserNameOrUserID, "userNameOrUserId") {
		return
	}

	if err := h.users.AssignUserRoles(r.Context(), req.UserNameOrUserID, req.Roles); err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		IsSuccessful: true,
		Message:      "User roles assigned successfully.",
	})
}
