// Package roles wraps role CRUD with domain error mapping.
package roles

import (
	"context"
	"errors"
	"strings"

	"github.com/wardenhq/warden/pkg/apperr"
	"github.com/wardenhq/warden/pkg/identity"
	"github.com/wardenhq/warden/pkg/observability"
)

// Service exposes role management over the role store.
type Service struct {
	roles  *identity.RoleStore
	logger *observability.Logger
}

// NewService creates the role service.
func NewService(roles *identity.RoleStore, logger *observability.Logger) *Service {
	return &Service{roles: roles, logger: logger}
}

// Create adds a role with a unique, case-insensitive name.
func (s *Service) Create(ctx context.Context, name string) (*identity.Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.New(apperr.KindRoleAssignmentFailed, "Role name is required")
	}

	role, err := s.roles.Create(ctx, name)
	if errors.Is(err, identity.ErrDuplicateRole) {
		return nil, apperr.Newf(apperr.KindRoleAssignmentFailed, "Role '%s' already exists", name)
	}
	if err != nil {
		return nil, err
	}

	s.logger.WithField("role", role.Name).Info("role created")
	return role, nil
}

// Update renames a role.
func (s *Service) Update(ctx context.Context, id int64, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return apperr.New(apperr.KindRoleAssignmentFailed, "Role name is required")
	}

	err := s.roles.Update(ctx, id, name)
	if errors.Is(err, identity.ErrNotFound) {
		return apperr.ErrRoleNotFound
	}
	if errors.Is(err, identity.ErrDuplicateRole) {
		return apperr.Newf(apperr.KindRoleAssignmentFailed, "Role '%s' already exists", name)
	}
	return err
}

// Delete removes a role. Existing user and endpoint assignments referencing
// it are removed by the schema's cascading constraints.
func (s *Service) Delete(ctx context.Context, id int64) error {
	err := s.roles.Delete(ctx, id)
	if errors.Is(err, identity.ErrNotFound) {
		return apperr.ErrRoleNotFound
	}
	return err
}

// List returns every role ordered by name.
func (s *Service) List(ctx context.Context) ([]identity.Role, error) {
	return s.roles.List(ctx)
}
