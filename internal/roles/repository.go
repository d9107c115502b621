package roles

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atelier-crm/atelier-crm/internal/authz"
	"github.com/atelier-crm/atelier-crm/internal/platform/db"
	"github.com/atelier-crm/atelier-crm/internal/shared"
	"github.com/atelier-crm/atelier-crm/internal/users"
)

// Repository provides PostgreSQL backed persistence for the role registry.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ResolveRole performs the single lookup the evaluator contract requires,
// keyed by id or name according to the ref's tag.
func (r *Repository) ResolveRole(ctx context.Context, ref authz.RoleRef) (*authz.Role, error) {
	var row pgx.Row
	if ref.ByName() {
		row = r.pool.QueryRow(ctx,
			`SELECT id, name, description, permissions FROM employee_roles WHERE name = $1`, ref.Name())
	} else {
		row = r.pool.QueryRow(ctx,
			`SELECT id, name, description, permissions FROM employee_roles WHERE id = $1`, ref.ID())
	}
	role, err := scanRole(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, authz.ErrRoleNotFound
		}
		return nil, err
	}
	return &authz.Role{ID: role.ID, Name: role.Name, Description: role.Description, Permissions: role.Permissions}, nil
}

// ListRoles returns all roles ordered by name.
func (r *Repository) ListRoles(ctx context.Context) ([]Role, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, description, permissions, created_at, updated_at FROM employee_roles ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []Role
	for rows.Next() {
		var role Role
		var permissions []byte
		if err := rows.Scan(&role.ID, &role.Name, &role.Description, &permissions, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, err
		}
		if err := decodeMatrix(permissions, &role.Permissions); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

// GetRole fetches a role by id.
func (r *Repository) GetRole(ctx context.Context, id uuid.UUID) (*Role, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, name, description, permissions FROM employee_roles WHERE id = $1`, id)
	role, err := scanRole(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return role, nil
}

// CreateRole inserts a new role.
func (r *Repository) CreateRole(ctx context.Context, name, description string, permissions authz.Matrix) (*Role, error) {
	encoded, err := json.Marshal(permissions)
	if err != nil {
		return nil, err
	}
	var role Role
	role.Permissions = permissions
	err = r.pool.QueryRow(ctx, `
		INSERT INTO employee_roles (id, name, description, permissions, created_at, updated_at)
		VALUES ($1, $2, $3, $4, now(), now())
		RETURNING id, name, description, created_at, updated_at`,
		uuid.New(), name, description, encoded).
		Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, shared.ErrAlreadyExists
		}
		return nil, err
	}
	return &role, nil
}

// UpdateRole replaces a role's name, description and matrix.
func (r *Repository) UpdateRole(ctx context.Context, id uuid.UUID, name, description string, permissions authz.Matrix) error {
	encoded, err := json.Marshal(permissions)
	if err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE employee_roles SET name = $2, description = $3, permissions = $4, updated_at = now()
		WHERE id = $1`,
		id, name, description, encoded)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return shared.ErrAlreadyExists
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// DeleteRole removes a role unless profiles still reference it. The check
// and the delete run in one transaction so a concurrent assignment cannot
// slip between them.
func (r *Repository) DeleteRole(ctx context.Context, id uuid.UUID) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var inUse int
		if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM user_profiles WHERE role_id = $1`, id).Scan(&inUse); err != nil {
			return err
		}
		if inUse > 0 {
			return fmt.Errorf("%w: role assigned to %d profiles", shared.ErrAlreadyExists, inUse)
		}
		tag, err := tx.Exec(ctx, `DELETE FROM employee_roles WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

// RoleOptions lists id/name pairs for user-management forms.
func (r *Repository) RoleOptions(ctx context.Context) ([]users.RoleOption, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name FROM employee_roles ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var options []users.RoleOption
	for rows.Next() {
		var opt users.RoleOption
		if err := rows.Scan(&opt.ID, &opt.Name); err != nil {
			return nil, err
		}
		options = append(options, opt)
	}
	return options, rows.Err()
}

func scanRole(row pgx.Row) (*Role, error) {
	var role Role
	var permissions []byte
	if err := row.Scan(&role.ID, &role.Name, &role.Description, &permissions); err != nil {
		return nil, err
	}
	if err := decodeMatrix(permissions, &role.Permissions); err != nil {
		return nil, err
	}
	return &role, nil
}

// decodeMatrix tolerates a malformed permissions column by degrading to an
// empty (all-deny) matrix instead of failing the lookup open.
func decodeMatrix(data []byte, m *authz.Matrix) error {
	if len(data) == 0 {
		*m = authz.Matrix{}
		return nil
	}
	if err := json.Unmarshal(data, m); err != nil {
		*m = authz.Matrix{}
	}
	return nil
}

var _ authz.RoleDirectory = (*Repository)(nil)
var _ users.RoleLister = (*Repository)(nil)
