package users

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atelier-crm/atelier-crm/internal/authz"
	"github.com/atelier-crm/atelier-crm/internal/shared"
)

// Repository provides PostgreSQL backed persistence for profiles.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const profileColumns = `p.id, p.first_name, p.last_name, p.email, p.phone, p.role_id,
	COALESCE(r.name, ''), p.avatar_url, p.active, p.created_at, p.updated_at`

// ListProfiles returns all profiles with their role names, newest first.
func (r *Repository) ListProfiles(ctx context.Context) ([]Profile, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+profileColumns+`
		FROM user_profiles p
		LEFT JOIN employee_roles r ON r.id = p.role_id
		ORDER BY p.created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var profiles []Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

// GetProfile fetches one profile by id.
func (r *Repository) GetProfile(ctx context.Context, id uuid.UUID) (*Profile, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+profileColumns+`
		FROM user_profiles p
		LEFT JOIN employee_roles r ON r.id = p.role_id
		WHERE p.id = $1`, id)
	p, err := scanProfile(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// CreateProfile inserts a profile row bound to an existing identity id.
func (r *Repository) CreateProfile(ctx context.Context, p Profile) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO user_profiles (id, first_name, last_name, email, phone, role_id, avatar_url, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())`,
		p.ID, p.FirstName, p.LastName, p.Email, p.Phone, p.RoleID, p.AvatarURL, p.Active)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return shared.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// SetRole reassigns the profile's role.
func (r *Repository) SetRole(ctx context.Context, id, roleID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE user_profiles SET role_id = $2, updated_at = now() WHERE id = $1`, id, roleID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// SetActive flips the activation flag.
func (r *Repository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE user_profiles SET active = $2, updated_at = now() WHERE id = $1`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// RoleBinding resolves a principal to its role id and activation flag. It
// satisfies the operation guard's ProfileResolver contract.
func (r *Repository) RoleBinding(ctx context.Context, principalID uuid.UUID) (authz.Binding, error) {
	var binding authz.Binding
	err := r.pool.QueryRow(ctx,
		`SELECT role_id, active FROM user_profiles WHERE id = $1`, principalID).
		Scan(&binding.RoleID, &binding.Active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return authz.Binding{}, authz.ErrProfileNotFound
		}
		return authz.Binding{}, err
	}
	return binding, nil
}

func scanProfile(row pgx.Row) (Profile, error) {
	var p Profile
	err := row.Scan(&p.ID, &p.FirstName, &p.LastName, &p.Email, &p.Phone, &p.RoleID,
		&p.RoleName, &p.AvatarURL, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

var _ authz.ProfileResolver = (*Repository)(nil)
