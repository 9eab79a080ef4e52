package api

import "github.com/wardenhq/warden/pkg/identity"

// LoginRequest is a local credential login.
type LoginRequest struct {
	UsernameOrEmail string `json:"usernameOrEmail"`
	Password        string `json:"password"`
}

// RefreshRequest exchanges a refresh token for a new pair.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// ResetPasswordRequest asks for a reset mail.
type ResetPasswordRequest struct {
	Email string `json:"email"`
}

// VerifyResetTokenRequest checks a reset token before showing the form.
type VerifyResetTokenRequest struct {
	UserID     string `json:"userId"`
	ResetToken string `json:"resetToken"`
}

// UpdatePasswordRequest sets a new password through a reset token.
type UpdatePasswordRequest struct {
	UserID          string `json:"userId"`
	ResetToken      string `json:"resetToken"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
}

// AssignUserRolesRequest replaces a user's role set.
type AssignUserRolesRequest struct {
	UserNameOrUserID string   `json:"userNameOrUserId"`
	Roles            []string `json:"roles"`
}

// CreateRoleRequest adds a role.
type CreateRoleRequest struct {
	Name string `json:"name"`
}

// UpdateRoleRequest renames a role.
type UpdateRoleRequest struct {
	Name string `json:"name"`
}

// AssignRolesToEndpointRequest grants roles to one endpoint code.
type AssignRolesToEndpointRequest struct {
	Roles []string `json:"roles"`
	Code  string   `json:"code"`
	Route string   `json:"route"`
}

// GetRolesForEndpointRequest identifies one endpoint code.
type GetRolesForEndpointRequest struct {
	Code  string `json:"code"`
	Route string `json:"route"`
}

// UserResponse is the public view of a user.
type UserResponse struct {
	ID       string  `json:"id"`
	Username string  `json:"username"`
	Email    string  `json:"email"`
	Name     string  `json:"name"`
	Surname  string  `json:"surname"`
	PhotoURL *string `json:"photoUrl,omitempty"`
}

// RoleResponse is the public view of a role.
type RoleResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func newUserResponse(user *identity.User) UserResponse {
	return UserResponse{
		ID:       user.ID.String(),
		Username: user.Username,
		Email:    user.Email,
		Name:     user.Name,
		Surname:  user.Surname,
		PhotoURL: user.PhotoURL,
	}
}
