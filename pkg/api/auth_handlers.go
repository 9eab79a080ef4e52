package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/wardenhq/warden/pkg/auth"
	"github.com/wardenhq/warden/pkg/httputil"
	"github.com/wardenhq/warden/pkg/users"
)

// AuthHandlers handles registration and the authentication lifecycle. All of
// these routes are anonymous.
type AuthHandlers struct {
	auth  *auth.Service
	users *users.Service
}

// NewAuthHandlers creates the auth handler group.
func NewAuthHandlers(authService *auth.Service, userService *users.Service) *AuthHandlers {
	return &AuthHandlers{auth: authService, users: userService}
}

// RegisterRoutes registers authentication routes
func (h *AuthHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/auth/register", h.register).Methods(http.MethodPost)
	router.HandleFunc("/api/auth/login", h.login).Methods(http.MethodPost)
	router.HandleFunc("/api/auth/refresh", h.refresh).Methods(http.MethodPost)
	router.HandleFunc("/api/auth/login-google", h.loginGoogle).Methods(http.MethodPost)
	router.HandleFunc("/api/auth/reset-password", h.resetPassword).Methods(http.MethodPost)
	router.HandleFunc("/api/auth/verify-reset-token", h.verifyResetToken).Methods(http.MethodPost)
}

// register handles POST /api/auth/register
func (h *AuthHandlers) register(w http.ResponseWriter, r *http.Request) {
	var req users.RegisterRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	user, err := h.users.Register(r.Context(), req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{
		IsSuccessful: true,
		Message:      "User created successfully.",
		Data:         newUserResponse(user),
	})
}

// login handles POST /api/auth/login
func (h *AuthHandlers) login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	pair, err := h.auth.Login(r.Context(), req.UsernameOrEmail, req.Password)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		IsSuccessful: true,
		Message:      "User login successfully.",
		Data:         map[string]interface{}{"token": pair},
	})
}

// refresh handles POST /api/auth/refresh
func (h *AuthHandlers) refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	pair, err := h.auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		IsSuccessful: true,
		Message:      "User refresh successfully.",
		Data:         map[string]interface{}{"token": pair},
	})
}

// loginGoogle handles POST /api/auth/login-google
func (h *AuthHandlers) loginGoogle(w http.ResponseWriter, r *http.Request) {
	var req auth.GoogleLoginRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	pair, err := h.auth.LoginGoogle(r.Context(), req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		IsSuccessful: true,
		Message:      "User login successfully.",
		Data:         map[string]interface{}{"token": pair},
	})
}

// resetPassword handles POST /api/auth/reset-password. The answer is the
// same whether or not the address exists.
func (h *AuthHandlers) resetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Email, "email") {
		return
	}

	if err := h.auth.RequestPasswordReset(r.Context(), req.Email); err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		IsSuccessful: true,
		Message:      "Email sent if the address exists.",
	})
}

// verifyResetToken handles POST /api/auth/verify-reset-token
func (h *AuthHandlers) verifyResetToken(w http.ResponseWriter, r *http.Request) {
	var req VerifyResetTokenRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	verified, err := h.auth.VerifyResetToken(r.Context(), req.UserID, req.ResetToken)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		IsSuccessful: true,
		Data:         map[string]bool{"verified": verified},
	})
}
