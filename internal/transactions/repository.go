package transactions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atelier-crm/atelier-crm/internal/shared"
)

// Repository defines persistence operations for transactions.
type Repository interface {
	Get(ctx context.Context, id uuid.UUID) (*Transaction, error)
	List(ctx context.Context, req ListTransactionsRequest) ([]Transaction, int, error)
	Create(ctx context.Context, tx Transaction) (uuid.UUID, error)
	SetStatus(ctx context.Context, id uuid.UUID, status Status) error
	Recent(ctx context.Context, limit int) ([]Transaction, error)
	RevenueSince(ctx context.Context, since time.Time) (float64, error)
	Count(ctx context.Context) (int, error)
}

// ListTransactionsRequest filters and paginates the listing.
type ListTransactionsRequest struct {
	Type     Type
	Status   Status
	ClientID *uuid.UUID
	Limit    int
	Offset   int
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const transactionColumns = `t.id, t.type, t.status, t.client_id,
	COALESCE(c.first_name || ' ' || c.last_name, 'Walk-in'),
	t.items, t.amount, t.tax, t.payment_method, t.notes, t.created_by,
	t.transaction_date, t.created_at, t.updated_at`

const transactionFrom = `FROM transactions t LEFT JOIN clients c ON c.id = t.client_id`

func (r *repository) Get(ctx context.Context, id uuid.UUID) (*Transaction, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+transactionColumns+` `+transactionFrom+` WHERE t.id = $1`, id)
	tx, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return tx, nil
}

func (r *repository) List(ctx context.Context, req ListTransactionsRequest) ([]Transaction, int, error) {
	where := ""
	args := []interface{}{}
	appendClause := func(clause string, val interface{}) {
		if where == "" {
			where = "WHERE "
		} else {
			where += " AND "
		}
		where += fmt.Sprintf(clause, len(args)+1)
		args = append(args, val)
	}
	if req.Type != "" {
		appendClause("t.type = $%d", string(req.Type))
	}
	if req.Status != "" {
		appendClause("t.status = $%d", string(req.Status))
	}
	if req.ClientID != nil {
		appendClause("t.client_id = $%d", *req.ClientID)
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) `+transactionFrom+` `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 50
	}
	query := fmt.Sprintf(`SELECT %s %s %s ORDER BY t.transaction_date DESC LIMIT $%d OFFSET $%d`,
		transactionColumns, transactionFrom, where, len(args)+1, len(args)+2)
	args = append(args, limit, req.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	list, err := collectTransactions(rows)
	if err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func (r *repository) Create(ctx context.Context, tx Transaction) (uuid.UUID, error) {
	id := uuid.New()
	items, err := json.Marshal(tx.Items)
	if err != nil {
		return uuid.Nil, fmt.Errorf("encode items: %w", err)
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO transactions (id, type, status, client_id, items, amount, tax, payment_method, notes, created_by, transaction_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, now(), now())`,
		id, string(tx.Type), string(tx.Status), tx.ClientID, items, tx.Amount, tx.Tax,
		tx.PaymentMethod, tx.Notes, tx.CreatedBy, tx.TransactionDate)
	if err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

func (r *repository) SetStatus(ctx context.Context, id uuid.UUID, status Status) error {
	tag, err := r.pool.Exec(ctx, `UPDATE transactions SET status = $2, updated_at = now() WHERE id = $1`, id, string(status))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) Recent(ctx context.Context, limit int) ([]Transaction, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+transactionColumns+` `+transactionFrom+` ORDER BY t.transaction_date DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTransactions(rows)
}

func (r *repository) RevenueSince(ctx context.Context, since time.Time) (float64, error) {
	var revenue float64
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0) FROM transactions
		WHERE type = $1 AND status = $2 AND transaction_date >= $3`,
		string(TypeSale), string(StatusCompleted), since).Scan(&revenue)
	return revenue, err
}

func (r *repository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM transactions`).Scan(&count)
	return count, err
}

func collectTransactions(rows pgx.Rows) ([]Transaction, error) {
	var list []Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *tx)
	}
	return list, rows.Err()
}

func scanTransaction(row pgx.Row) (*Transaction, error) {
	var t Transaction
	var items []byte
	err := row.Scan(&t.ID, &t.Type, &t.Status, &t.ClientID, &t.ClientName, &items,
		&t.Amount, &t.Tax, &t.PaymentMethod, &t.Notes, &t.CreatedBy,
		&t.TransactionDate, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(items) > 0 {
		if err := json.Unmarshal(items, &t.Items); err != nil {
			return nil, fmt.Errorf("decode items: %w", err)
		}
	}
	return &t, nil
}
