package transactions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/atelier-crm/atelier-crm/internal/catalog"
)

// Service errors.
var (
	ErrNoItems           = errors.New("transaction needs at least one item")
	ErrUnknownType       = errors.New("unknown transaction type")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Catalog prices transaction lines and keeps stock in step with
// completed sales and refunds. Satisfied by catalog.Service.
type Catalog interface {
	Get(ctx context.Context, id uuid.UUID) (*catalog.Product, error)
	AdjustStock(ctx context.Context, id uuid.UUID, delta int) error
}

// LineInput is one requested product line.
type LineInput struct {
	ProductID uuid.UUID
	Quantity  int
}

// CreateTransactionRequest carries a validated create form.
type CreateTransactionRequest struct {
	Type          Type
	ClientID      *uuid.UUID
	Lines         []LineInput
	Tax           *float64
	PaymentMethod *string
	Notes         *string
	CreatedBy     *uuid.UUID
}

// Service provides business logic for transactions.
type Service struct {
	repo    Repository
	catalog Catalog
	now     func() time.Time
}

// NewService constructs a transaction service.
func NewService(repo Repository, cat Catalog) *Service {
	return &Service{repo: repo, catalog: cat, now: time.Now}
}

// Create prices the requested lines from the catalog and records a new
// pending transaction. The amount is always recomputed server-side.
func (s *Service) Create(ctx context.Context, req CreateTransactionRequest) (*Transaction, error) {
	if !req.Type.Valid() {
		return nil, ErrUnknownType
	}

	var items []Item
	for _, line := range req.Lines {
		if line.Quantity <= 0 {
			continue
		}
		product, err := s.catalog.Get(ctx, line.ProductID)
		if err != nil {
			return nil, fmt.Errorf("price line %s: %w", line.ProductID, err)
		}
		price := product.Price
		if product.SalePrice != nil {
			price = *product.SalePrice
		}
		items = append(items, Item{
			ProductID:   product.ID,
			ProductName: product.Name,
			Quantity:    line.Quantity,
			UnitPrice:   price,
		})
	}
	if len(items) == 0 {
		return nil, ErrNoItems
	}

	tx := Transaction{
		Type:            req.Type,
		Status:          StatusPending,
		ClientID:        req.ClientID,
		Items:           items,
		Tax:             req.Tax,
		PaymentMethod:   req.PaymentMethod,
		Notes:           req.Notes,
		CreatedBy:       req.CreatedBy,
		TransactionDate: s.now(),
	}
	tx.Amount = tx.Total()

	id, err := s.repo.Create(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("create transaction: %w", err)
	}
	tx.ID = id
	return &tx, nil
}

// SetStatus moves a pending transaction to completed or cancelled.
// Completing a sale decrements stock for every line; completing a
// refund puts the pieces back.
func (s *Service) SetStatus(ctx context.Context, id uuid.UUID, status Status) error {
	if !status.Valid() || status == StatusPending {
		return ErrInvalidTransition
	}
	tx, err := s.repo.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("get transaction: %w", err)
	}
	if tx.Status != StatusPending {
		return fmt.Errorf("%w: %s is already %s", ErrInvalidTransition, id, tx.Status)
	}
	if err := s.repo.SetStatus(ctx, id, status); err != nil {
		return fmt.Errorf("set status: %w", err)
	}
	if status == StatusCompleted {
		s.applyStock(ctx, tx)
	}
	return nil
}

func (s *Service) applyStock(ctx context.Context, tx *Transaction) {
	direction := 0
	switch tx.Type {
	case TypeSale:
		direction = -1
	case TypeRefund:
		direction = 1
	default:
		return
	}
	for _, item := range tx.Items {
		// Stock drift is tolerable here; the transaction stays completed.
		_ = s.catalog.AdjustStock(ctx, item.ProductID, direction*item.Quantity)
	}
}

// Get returns a single transaction.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Transaction, error) {
	return s.repo.Get(ctx, id)
}

// List returns transactions matching the request plus a total count.
func (s *Service) List(ctx context.Context, req ListTransactionsRequest) ([]Transaction, int, error) {
	return s.repo.List(ctx, req)
}

// Recent returns the latest transactions, newest first.
func (s *Service) Recent(ctx context.Context, limit int) ([]Transaction, error) {
	return s.repo.Recent(ctx, limit)
}

// RevenueSince sums completed sales from the given instant.
func (s *Service) RevenueSince(ctx context.Context, since time.Time) (float64, error) {
	return s.repo.RevenueSince(ctx, since)
}
