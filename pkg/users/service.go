// Package users is the user directory service: registration, password
// updates through reset tokens, user lookup, and user-role assignment. It
// also answers the permission question enforcement asks on every guarded
// request.
package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wardenhq/warden/pkg/apperr"
	"github.com/wardenhq/warden/pkg/endpoints"
	"github.com/wardenhq/warden/pkg/identity"
	"github.com/wardenhq/warden/pkg/observability"
)

// RegisterRequest carries a new local account.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Surname  string `json:"surname"`
	Password string `json:"password"`
}

// Service exposes directory operations over the identity stores.
type Service struct {
	users       *identity.UserStore
	roles       *identity.RoleStore
	endpoints   *endpoints.Store
	resetTokens *identity.ResetTokenGenerator
	logger      *observability.Logger
}

// NewService creates the user directory service.
func NewService(users *identity.UserStore, roles *identity.RoleStore, endpointStore *endpoints.Store, resetTokens *identity.ResetTokenGenerator, logger *observability.Logger) *Service {
	return &Service{
		users:       users,
		roles:       roles,
		endpoints:   endpointStore,
		resetTokens: resetTokens,
		logger:      logger,
	}
}

// Register creates a local account. Both duplicate username and duplicate
// email are reported together so the form can show every problem at once.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*identity.User, error) {
	var reasons []string
	if strings.TrimSpace(req.Username) == "" {
		reasons = append(reasons, "Username is required")
	}
	if strings.TrimSpace(req.Email) == "" {
		reasons = append(reasons, "Email is required")
	}
	if req.Password == "" {
		reasons = append(reasons, "Password is required")
	}
	if len(reasons) > 0 {
		return nil, apperr.ErrRegistrationFailed.WithReasons(reasons...)
	}

	if _, err := s.users.GetByUsername(ctx, req.Username); err == nil {
		reasons = append(reasons, fmt.Sprintf("Username '%s' is already taken", req.Username))
	} else if !errors.Is(err, identity.ErrNotFound) {
		return nil, err
	}
	if _, err := s.users.GetByEmail(ctx, req.Email); err == nil {
		reasons = append(reasons, fmt.Sprintf("Email '%s' is already taken", req.Email))
	} else if !errors.Is(err, identity.ErrNotFound) {
		return nil, err
	}
	if len(reasons) > 0 {
		return nil, apperr.ErrRegistrationFailed.WithReasons(reasons...)
	}

	hash, err := identity.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &identity.User{
		Username:      req.Username,
		Email:         req.Email,
		Name:          req.Name,
		Surname:       req.Surname,
		PasswordHash:  hash,
		SecurityStamp: identity.NewSecurityStamp(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		// A racing registration can still trip the store's own checks.
		if errors.Is(err, identity.ErrDuplicateUsername) || errors.Is(err, identity.ErrDuplicateEmail) {
			return nil, apperr.ErrRegistrationFailed.WithReasons(err.Error())
		}
		return nil, err
	}

	s.logger.WithField("username", user.Username).Info("user registered")
	return user, nil
}

// UpdatePassword sets a new password for a user holding a valid reset token.
// The security stamp rotates with the password, so every other outstanding
// reset token dies here.
func (s *Service) UpdatePassword(ctx context.Context, userID, resetToken, password, passwordConfirm string) error {
	if password == "" || password != passwordConfirm {
		return apperr.New(apperr.KindPasswordResetFailed, "Passwords do not match")
	}

	id, err := uuid.Parse(userID)
	if err != nil {
		return apperr.ErrUserNotFound
	}
	user, err := s.users.GetByID(ctx, id)
	if errors.Is(err, identity.ErrNotFound) {
		return apperr.ErrUserNotFound
	}
	if err != nil {
		return err
	}

	if !s.resetTokens.Verify(resetToken, user.ID, user.SecurityStamp, time.Now()) {
		return apperr.New(apperr.KindPasswordResetFailed, "Reset token is invalid or expired")
	}

	hash, err := identity.HashPassword(password)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash, identity.NewSecurityStamp()); err != nil {
		return err
	}

	s.logger.WithField("username", user.Username).Info("password updated")
	return nil
}

// GetUser resolves a user by id when the argument parses as a UUID,
// otherwise by username.
func (s *Service) GetUser(ctx context.Context, idOrName string) (*identity.User, error) {
	var user *identity.User
	var err error

	if id, parseErr := uuid.Parse(idOrName); parseErr == nil {
		user, err = s.users.GetByID(ctx, id)
	} else {
		user, err = s.users.GetByUsername(ctx, idOrName)
	}
	if errors.Is(err, identity.ErrNotFound) {
		return nil, apperr.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// UserRoles returns the role names assigned to a user identified by id or
// username.
func (s *Service) UserRoles(ctx context.Context, idOrName string) ([]string, error) {
	user, err := s.GetUser(ctx, idOrName)
	if err != nil {
		return nil, err
	}
	return s.roles.RolesForUser(ctx, user.ID)
}

// RoleNamesForUsername resolves roles for enforcement, which only knows the
// username from the token.
func (s *Service) RoleNamesForUsername(ctx context.Context, username string) ([]string, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if errors.Is(err, identity.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s.roles.RolesForUser(ctx, user.ID)
}

// AssignUserRoles makes the user's role set exactly the given names: missing
// assignments are added and assignments not in the list are removed, in one
// transaction. Unknown names fail the whole request before anything changes.
func (s *Service) AssignUserRoles(ctx context.Context, idOrName string, roleNames []string) error {
	user, err := s.GetUser(ctx, idOrName)
	if err != nil {
		return err
	}

	desired, missing, err := s.roles.FindByNames(ctx, roleNames)
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		return apperr.Newf(apperr.KindRolesNotFound,
			"Roles not found: %s", strings.Join(missing, ", ")).WithReasons(missing...)
	}

	currentNames, err := s.roles.RolesForUser(ctx, user.ID)
	if err != nil {
		return err
	}
	current, _, err := s.roles.FindByNames(ctx, currentNames)
	if err != nil {
		return err
	}

	desiredIDs := make(map[int64]bool, len(desired))
	for _, role := range desired {
		desiredIDs[role.ID] = true
	}
	currentIDs := make(map[int64]bool, len(current))
	for _, role := range current {
		currentIDs[role.ID] = true
	}

	var addIDs, removeIDs []int64
	for _, role := range desired {
		if !currentIDs[role.ID] {
			addIDs = append(addIDs, role.ID)
		}
	}
	for _, role := range current {
		if !desiredIDs[role.ID] {
			removeIDs = append(removeIDs, role.ID)
		}
	}

	if err := s.roles.ReplaceUserRoles(ctx, user.ID, addIDs, removeIDs); err != nil {
		return apperr.ErrRoleAssignmentFailed.WithReasons(err.Error())
	}

	s.logger.WithField("username", user.Username).
		WithField("roles", roleNames).
		Info("user roles assigned")
	return nil
}

// HasPermission reports whether the user holds any role granted to the
// endpoint. A user with no roles is denied without touching the catalog.
func (s *Service) HasPermission(ctx context.Context, username, code, route string) (bool, error) {
	userRoles, err := s.RoleNamesForUsername(ctx, username)
	if err != nil {
		return false, err
	}
	if len(userRoles) == 0 {
		return false, nil
	}

	permitted, err := s.endpoints.RoleNamesForEndpoint(ctx, code, route)
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
