package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atelier-crm/atelier-crm/internal/shared"
)

// Repository defines persistence operations for products.
type Repository interface {
	Get(ctx context.Context, id uuid.UUID) (*Product, error)
	List(ctx context.Context, req ListProductsRequest) ([]Product, int, error)
	Create(ctx context.Context, product Product) (uuid.UUID, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error
	Delete(ctx context.Context, id uuid.UUID) error
	LowStock(ctx context.Context, threshold, limit int) ([]Product, error)
	Count(ctx context.Context) (int, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const productColumns = `id, name, sku, description, price, sale_price, cost, quantity, category, tags, image_url, vendor_id, active, created_at, updated_at`

func (r *repository) Get(ctx context.Context, id uuid.UUID) (*Product, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	product, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return product, nil
}

func (r *repository) List(ctx context.Context, req ListProductsRequest) ([]Product, int, error) {
	where := ""
	args := []interface{}{}
	if req.Search != "" {
		where = `WHERE (name ILIKE $1 OR sku ILIKE $1)`
		args = append(args, "%"+req.Search+"%")
	}
	if req.Category != "" {
		if where == "" {
			where = fmt.Sprintf(`WHERE category = $%d`, len(args)+1)
		} else {
			where += fmt.Sprintf(` AND category = $%d`, len(args)+1)
		}
		args = append(args, req.Category)
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 50
	}
	query := fmt.Sprintf(`SELECT %s FROM products %s ORDER BY name LIMIT $%d OFFSET $%d`,
		productColumns, where, len(args)+1, len(args)+2)
	args = append(args, limit, req.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var list []Product
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		list = append(list, *product)
	}
	return list, total, rows.Err()
}

func (r *repository) Create(ctx context.Context, product Product) (uuid.UUID, error) {
	id := uuid.New()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO products (id, name, sku, description, price, sale_price, cost, quantity, category, tags, image_url, vendor_id, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, now(), now())`,
		id, product.Name, product.SKU, product.Description, product.Price, product.SalePrice, product.Cost,
		product.Quantity, product.Category, product.Tags, product.ImageURL, product.VendorID, product.Active)
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
	tag, err := r.pool.Exec(ctx, fmt.Sprintf(`UPDATE products SET %s, updated_at = now() WHERE id = $1`, set), args...)
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

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) LowStock(ctx context.Context, threshold, limit int) ([]Product, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+productColumns+` FROM products
		WHERE active AND quantity < $1
		ORDER BY quantity ASC
		LIMIT $2`, threshold, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []Product
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *product)
	}
	return list, rows.Err()
}

func (r *repository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products WHERE active`).Scan(&count)
	return count, err
}

func scanProduct(row pgx.Row) (*Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.SKU, &p.Description, &p.Price, &p.SalePrice, &p.Cost,
		&p.Quantity, &p.Category, &p.Tags, &p.ImageURL, &p.VendorID, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
