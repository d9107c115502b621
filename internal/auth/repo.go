package auth

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atelier-crm/atelier-crm/internal/shared"
)

// Repository defines persistence operations for the auth module.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (*Identity, error)
	FindByID(ctx context.Context, id uuid.UUID) (*Identity, error)
	CreateIdentity(ctx context.Context, identity Identity) error
	DeleteIdentity(ctx context.Context, id uuid.UUID) error
	CreateSession(ctx context.Context, id string, identityID uuid.UUID, expiresAt time.Time, ip, ua string) error
	DeleteSession(ctx context.Context, id string) error
	CreatePasswordReset(ctx context.Context, identityID uuid.UUID, tokenHash string, expiresAt time.Time) error
	ConsumePasswordReset(ctx context.Context, tokenHash string) (uuid.UUID, error)
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error
}

// PGRepository implements Repository against PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// FindByEmail fetches an identity by email.
func (r *PGRepository) FindByEmail(ctx context.Context, email string) (*Identity, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, email, password_hash, metadata, created_at, updated_at FROM identities WHERE email = $1`, email)
	return scanIdentity(row)
}

// FindByID fetches an identity by primary key.
func (r *PGRepository) FindByID(ctx context.Context, id uuid.UUID) (*Identity, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, email, password_hash, metadata, created_at, updated_at FROM identities WHERE id = $1`, id)
	return scanIdentity(row)
}

// CreateIdentity inserts a new identity row.
func (r *PGRepository) CreateIdentity(ctx context.Context, identity Identity) error {
	metadata, err := json.Marshal(identity.Metadata)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO identities (id, email, password_hash, metadata, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, now(), now())`,
		identity.ID, identity.Email, identity.PasswordHash, metadata)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return shared.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// DeleteIdentity removes an identity row.
func (r *PGRepository) DeleteIdentity(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM identities WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// CreateSession persists a login session row for auditing.
func (r *PGRepository) CreateSession(ctx context.Context, id string, identityID uuid.UUID, expiresAt time.Time, ip, ua string) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO auth_sessions (id, identity_id, created_at, expires_at, ip, ua)
		 VALUES ($1, $2, now(), $3, NULLIF($4, ''), NULLIF($5, ''))`,
		id, identityID, expiresAt.UTC(), ip, ua)
	return err
}

// DeleteSession removes a session row.
func (r *PGRepository) DeleteSession(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM auth_sessions WHERE id = $1`, id)
	return err
}

// CreatePasswordReset stores a hashed reset token.
func (r *PGRepository) CreatePasswordReset(ctx context.Context, identityID uuid.UUID, tokenHash string, expiresAt time.Time) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO password_resets (token_hash, identity_id, created_at, expires_at)
		 VALUES ($1, $2, now(), $3)`,
		tokenHash, identityID, expiresAt.UTC())
	return err
}

// ConsumePasswordReset deletes an unexpired reset token and returns the
// identity it belonged to.
func (r *PGRepository) ConsumePasswordReset(ctx context.Context, tokenHash string) (uuid.UUID, error) {
	var identityID uuid.UUID
	err := r.pool.QueryRow(ctx,
		`DELETE FROM password_resets WHERE token_hash = $1 AND expires_at > now() RETURNING identity_id`,
		tokenHash).Scan(&identityID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, shared.ErrNotFound
		}
		return uuid.Nil, err
	}
	return identityID, nil
}

// UpdatePasswordHash replaces the stored password hash.
func (r *PGRepository) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE identities SET password_hash = $2, updated_at = now() WHERE id = $1`, id, hash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func scanIdentity(row pgx.Row) (*Identity, error) {
	var identity Identity
	var metadata []byte
	err := row.Scan(&identity.ID, &identity.Email, &identity.PasswordHash, &metadata, &identity.CreatedAt, &identity.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	if len(metadata) > 0 {
		_ = json.Unmarshal(metadata, &identity.Metadata)
	}
	return &identity, nil
}

var _ Repository = (*PGRepository)(nil)
