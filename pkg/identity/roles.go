package identity

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// RoleStore handles role persistence and user-role assignments
type RoleStore struct {
	db *sql.DB
}

// NewRoleStore creates a new role store
func NewRoleStore(db *sql.DB) *RoleStore {
	return &RoleStore{db: db}
}

// Create inserts a new role. Names collide case-insensitively.
func (s *RoleStore) Create(ctx context.Context, name string) (*Role, error) {
	var taken bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM roles WHERE LOWER(name) = LOWER($1))`,
		name,
	).Scan(&taken)
	if err != nil {
		return nil, fmt.Errorf("failed to check role name: %w", err)
	}
	if taken {
		return nil, ErrDuplicateRole
	}

	now := time.Now()
	var role Role
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO roles (name, created_at, updated_at) VALUES ($1, $2, $3) RETURNING id
	`, name, now, now).Scan(&role.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create role: %w", err)
	}

	role.Name = name
	role.CreatedAt = now
	role.UpdatedAt = now
	return &role, nil
}

// Update renames a role
func (s *RoleStore) Update(ctx context.Context, id int64, name string) error {
	var taken bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM roles WHERE LOWER(name) = LOWER($1) AND id <> $2)`,
		name, id,
	).Scan(&taken)
	if err != nil {
		return fmt.Errorf("failed to check role name: %w", err)
	}
	if taken {
		return ErrDuplicateRole
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE roles SET name = $1, updated_at = $2 WHERE id = $3
	`, name, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update role: %w", err)
	}
	return requireRowAffected(result)
}

// Delete removes a role; assignments cascade away with it
func (s *RoleStore) Delete(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM roles WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete role: %w", err)
	}
	return requireRowAffected(result)
}

// GetByID retrieves a role by id
func (s *RoleStore) GetByID(ctx context.Context, id int64) (*Role, error) {
	return s.getBy(ctx, "id = $1", id)
}

// GetByName retrieves a role by name, case-insensitively
func (s *RoleStore) GetByName(ctx context.Context, name string) (*Role, error) {
	return s.getBy(ctx, "LOWER(name) = LOWER($1)", name)
}

func (s *RoleStore) getBy(ctx context.Context, where string, arg interface{}) (*Role, error) {
	var role Role
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, created_at, updated_at FROM roles WHERE `+where, arg,
	).Scan(&role.ID, &role.Name, &role.CreatedAt, &role.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get role: %w", err)
	}
	return &role, nil
}

// List returns all roles ordered by name
func (s *RoleStore) List(ctx context.Context) ([]Role, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, created_at, updated_at FROM roles ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}
	defer rows.Close()

	var roles []Role
	for rows.Next() {
		var role Role
		if err := rows.Scan(&role.ID, &role.Name, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan role: %w", err)
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

// FindByNames resolves role names case-insensitively and reports the names
// that matched nothing, preserving the caller's order for the misses.
func (s *RoleStore) FindByNames(ctx context.Context, names []string) ([]Role, []string, error) {
	found := make([]Role, 0, len(names))
	var missing []string
	seen := make(map[string]bool, len(names))

	for _, name := range names {
		key := strings.ToLower(strings.TrimSpace(name))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true

		role, err := s.GetByName(ctx, name)
		if err == ErrNotFound {
			missing = append(missing, name)
			continue
		}
		if err != nil {
			return nil, nil, err
		}
		found = append(found, *role)
	}

	return found, missing, nil
}

// RolesForUser returns the role names assigned to a user
func (s *RoleStore) RolesForUser(ctx context.Context, userID uuid.UUID) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.name
		FROM user_roles ur
		JOIN roles r ON r.id = ur.role_id
		WHERE ur.user_id = $1
		ORDER BY r.name ASC
	`, userID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to get user roles: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan role name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// ReplaceUserRoles applies a full-replace assignment in one transaction:
// the additions are inserted and the removals deleted atomically.
func (s *RoleStore) ReplaceUserRoles(ctx context.Context, userID uuid.UUID, addIDs, removeIDs []int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	for _, roleID := range addIDs {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO user_roles (user_id, role_id, granted_at) VALUES ($1, $2, $3)
			ON CONFLICT (user_id, role_id) DO NOTHING
		`, userID.String(), roleID, now); err != nil {
			return fmt.Errorf("failed to assign role %d: %w", roleID, err)
		}
	}

	for _, roleID := range removeIDs {
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM user_roles WHERE user_id = $1 AND role_id = $2
		`, userID.String(), roleID); err != nil {
			return fmt.Errorf("failed to remove role %d: %w", roleID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit role assignment: %w", err)
	}
	return nil
}
