// Package endpoints persists the endpoint-authorization catalog: routes,
// their action codes, and which roles may call each code. The catalog is
// reconciled from the in-process action registry at startup and consulted
// by enforcement on every guarded request.
package endpoints

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/wardenhq/warden/pkg/apperr"
	"github.com/wardenhq/warden/pkg/observability"
	"github.com/wardenhq/warden/pkg/registry"
)

// Store handles endpoint-authorization persistence
type Store struct {
	db *sql.DB
}

// NewStore creates a new endpoint-authorization store
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// ReconcileResult reports what a reconciliation pass inserted.
type ReconcileResult struct {
	RoutesAdded    int
	EndpointsAdded int
}

// Reconcile makes the stored catalog a superset of the registered menus.
// Missing routes and endpoints are inserted; existing rows and any stale
// rows no longer registered are left untouched. The whole pass runs in one
// transaction and is idempotent: a second run inserts nothing.
func (s *Store) Reconcile(ctx context.Context, menus []registry.Menu, logger *observability.Logger) (ReconcileResult, error) {
	var result ReconcileResult

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return result, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	for _, menu := range menus {
		var routeID int64
		err := tx.QueryRowContext(ctx, `SELECT id FROM routes WHERE name = $1`, menu.Route).Scan(&routeID)
		if err == sql.ErrNoRows {
			err = tx.QueryRowContext(ctx,
				`INSERT INTO routes (name, created_at) VALUES ($1, $2) RETURNING id`,
				menu.Route, now,
			).Scan(&routeID)
			if err != nil {
				return result, fmt.Errorf("failed to seed route %q: %w", menu.Route, err)
			}
			result.RoutesAdded++
			logger.WithField("route", menu.Route).Info("seeded route")
		} else if err != nil {
			return result, fmt.Errorf("failed to look up route %q: %w", menu.Route, err)
		}

		for _, code := range menu.Codes {
			var exists bool
			err := tx.QueryRowContext(ctx,
				`SELECT EXISTS(SELECT 1 FROM endpoints WHERE code = $1 AND route_id = $2)`,
				code, routeID,
			).Scan(&exists)
			if err != nil {
				return result, fmt.Errorf("failed to look up endpoint %q: %w", code, err)
			}
			if exists {
				continue
			}

			if _, err := tx.ExecContext(ctx,
				`INSERT INTO endpoints (code, route_id, created_at) VALUES ($1, $2, $3)`,
				code, routeID, now,
			); err != nil {
				return result, fmt.Errorf("failed to seed endpoint %q: %w", code, err)
			}
			result.EndpointsAdded++
			logger.WithField("route", menu.Route).WithField("code", code).Info("seeded endpoint")
		}
	}

	if err := tx.Commit(); err != nil {
		return result, fmt.Errorf("failed to commit reconciliation: %w", err)
	}
	return result, nil
}

// endpointID resolves an endpoint by exact code within a route name.
func (s *Store) endpointID(ctx context.Context, code, route string) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
		SELECT e.id
		FROM endpoints e
		JOIN routes r ON r.id = e.route_id
		WHERE e.code = $1 AND r.name = $2
	`, code, route).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, apperr.ErrEndpointNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to look up endpoint: %w", err)
	}
	return id, nil
}

// AssignRoles grants the named roles permission to call the endpoint.
// Assignment is additive only: roles already granted stay granted, and no
// role is ever removed here. If any name resolves to no role, nothing is
// applied and the missing names are reported.
func (s *Store) AssignRoles(ctx context.Context, code, route string, roleNames []string) error {
	roleIDs := make([]int64, 0, len(roleNames))
	var missing []string
	seen := make(map[string]bool, len(roleNames))

	for _, name := range roleNames {
		key := strings.ToLower(strings.TrimSpace(name))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true

		var id int64
		err := s.db.QueryRowContext(ctx,
			`SELECT id FROM roles WHERE LOWER(name) = LOWER($1)`, name,
		).Scan(&id)
		if err == sql.ErrNoRows {
			missing = append(missing, name)
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to look up role %q: %w", name, err)
		}
		roleIDs = append(roleIDs, id)
	}

	if len(missing) > 0 {
		return apperr.Newf(apperr.KindRolesNotFound,
			"Roles not found: %s", strings.Join(missing, ", ")).WithReasons(missing...)
	}

	endpointID, err := s.endpointID(ctx, code, route)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	for _, roleID := range roleIDs {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO role_endpoints (role_id, endpoint_id, granted_at) VALUES ($1, $2, $3)
			ON CONFLICT (role_id, endpoint_id) DO NOTHING
		`, roleID, endpointID, now); err != nil {
			return fmt.Errorf("failed to grant role %d: %w", roleID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit role grants: %w", err)
	}
	return nil
}

// RoleNamesForEndpoint returns the names of roles permitted to call the
// endpoint. An endpoint with no grants returns an empty slice.
func (s *Store) RoleNamesForEndpoint(ctx context.Context, code, route string) ([]string, error) {
	endpointID, err := s.endpointID(ctx, code, route)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT r.name
		FROM role_endpoints re
		JOIN roles r ON r.id = re.role_id
		WHERE re.endpoint_id = $1
		ORDER BY r.name ASC
	`, endpointID)
	if err != nil {
		return nil, fmt.Errorf("failed to get endpoint roles: %w", err)
	}
	defer rows.Close()

	names := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan role name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// ListMenus returns the stored catalog grouped by route, mirroring the shape
// the registry produces. Used by the discovery listing endpoint.
func (s *Store) ListMenus(ctx context.Context) ([]registry.Menu, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.name, e.code
		FROM endpoints e
		JOIN routes r ON r.id = e.route_id
		ORDER BY r.id ASC, e.id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list endpoints: %w", err)
	}
	defer rows.Close()

	var menus []registry.Menu
	index := make(map[string]int)
	for rows.Next() {
		var route, code string
		if err := rows.Scan(&route, &code); err != nil {
			return nil, fmt.Errorf("failed to scan endpoint: %w", err)
		}
		i, ok := index[route]
		if !ok {
			i = len(menus)
			index[route] = i
			menus = append(menus, registry.Menu{Route: route})
		}
		menus[i].Codes = append(menus[i].Codes, code)
	}
	return menus, rows.Err()
}
