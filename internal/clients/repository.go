package clients

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atelier-crm/atelier-crm/internal/shared"
)

// Repository defines persistence operations for clients.
type Repository interface {
	Get(ctx context.Context, id uuid.UUID) (*Client, error)
	List(ctx context.Context, req ListClientsRequest) ([]Client, int, error)
	Create(ctx context.Context, client Client) (uuid.UUID, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error
	Delete(ctx context.Context, id uuid.UUID) error
	Count(ctx context.Context) (int, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const clientColumns = `id, first_name, last_name, email, phone, birthdate, preferences, tags, notes, address, created_by, created_at, updated_at`

func (r *repository) Get(ctx context.Context, id uuid.UUID) (*Client, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+clientColumns+` FROM clients WHERE id = $1`, id)
	client, err := scanClient(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return client, nil
}

func (r *repository) List(ctx context.Context, req ListClientsRequest) ([]Client, int, error) {
	where := ""
	args := []interface{}{}
	if req.Search != "" {
		where = `WHERE first_name ILIKE $1 OR last_name ILIKE $1 OR email ILIKE $1`
		args = append(args, "%"+req.Search+"%")
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM clients `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 50
	}
	query := fmt.Sprintf(`SELECT %s FROM clients %s ORDER BY last_name, first_name LIMIT $%d OFFSET $%d`,
		clientColumns, where, len(args)+1, len(args)+2)
	args = append(args, limit, req.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var list []Client
	for rows.Next() {
		client, err := scanClient(rows)
		if err != nil {
			return nil, 0, err
		}
		list = append(list, *client)
	}
	return list, total, rows.Err()
}

func (r *repository) Create(ctx context.Context, client Client) (uuid.UUID, error) {
	id := uuid.New()
	preferences, address, err := encodeJSONFields(client)
	if err != nil {
		return uuid.Nil, err
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO clients (id, first_name, last_name, email, phone, birthdate, preferences, tags, notes, address, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, now(), now())`,
		id, client.FirstName, client.LastName, client.Email, client.Phone, client.Birthdate,
		preferences, client.Tags, client.Notes, address, client.CreatedBy)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return uuid.Nil, shared.ErrAlreadyExists
		}
		return uuid.Nil, err
	}
	return id, nil
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	set := ""
	args := []interface{}{id}
	i := 2
	for col, val := range updates {
		if set != "" {
			set += ", "
		}
		set += fmt.Sprintf("%s = $%d", col, i)
		args = append(args, val)
		i++
	}
	tag, err := r.pool.Exec(ctx, fmt.Sprintf(`UPDATE clients SET %s, updated_at = now() WHERE id = $1`, set), args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM clients WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM clients`).Scan(&count)
	return count, err
}

func scanClient(row pgx.Row) (*Client, error) {
	var c Client
	var preferences, address []byte
	err := row.Scan(&c.ID, &c.FirstName, &c.LastName, &c.Email, &c.Phone, &c.Birthdate,
		&preferences, &c.Tags, &c.Notes, &address, &c.CreatedBy, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(preferences) > 0 {
		_ = json.Unmarshal(preferences, &c.Preferences)
	}
	if len(address) > 0 {
		_ = json.Unmarshal(address, &c.Address)
	}
	return &c, nil
}

func encodeJSONFields(client Client) ([]byte, []byte, error) {
	var preferences, address []byte
	var err error
	if client.Preferences != nil {
		if preferences, err = json.Marshal(client.Preferences); err != nil {
			return nil, nil, err
		}
	}
	if client.Address != nil {
		if address, err = json.Marshal(client.Address); err != nil {
			return nil, nil, err
		}
	}
	return preferences, address, nil
}
