package transactions

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atelier-crm/atelier-crm/internal/catalog"
	"github.com/atelier-crm/atelier-crm/internal/shared"
)

type stubRepo struct {
	stored map[uuid.UUID]*Transaction
	status Status
}

func (s *stubRepo) Get(_ context.Context, id uuid.UUID) (*Transaction, error) {
	if tx, ok := s.stored[id]; ok {
		return tx, nil
	}
	return nil, shared.ErrNotFound
}

func (s *stubRepo) List(_ context.Context, _ ListTransactionsRequest) ([]Transaction, int, error) {
	return nil, 0, nil
}

func (s *stubRepo) Create(_ context.Context, tx Transaction) (uuid.UUID, error) {
	id := uuid.New()
	tx.ID = id
	s.stored[id] = &tx
	return id, nil
}

func (s *stubRepo) SetStatus(_ context.Context, id uuid.UUID, status Status) error {
	if _, ok := s.stored[id]; !ok {
		return shared.ErrNotFound
	}
	s.status = status
	s.stored[id].Status = status
	return nil
}

func (s *stubRepo) Recent(_ context.Context, _ int) ([]Transaction, error) { return nil, nil }

func (s *stubRepo) RevenueSince(_ context.Context, _ time.Time) (float64, error) { return 0, nil }

func (s *stubRepo) Count(_ context.Context) (int, error) { return len(s.stored), nil }

type stubCatalog struct {
	products    map[uuid.UUID]*catalog.Product
	adjustments map[uuid.UUID]int
}

func (s *stubCatalog) Get(_ context.Context, id uuid.UUID) (*catalog.Product, error) {
	if p, ok := s.products[id]; ok {
		return p, nil
	}
	return nil, shared.ErrNotFound
}

func (s *stubCatalog) AdjustStock(_ context.Context, id uuid.UUID, delta int) error {
	s.adjustments[id] += delta
	return nil
}

func newStubs() (*stubRepo, *stubCatalog) {
	return &stubRepo{stored: map[uuid.UUID]*Transaction{}},
		&stubCatalog{products: map[uuid.UUID]*catalog.Product{}, adjustments: map[uuid.UUID]int{}}
}

func TestCreateRecomputesAmount(t *testing.T) {
	repo, cat := newStubs()
	ringID := uuid.New()
	sale := 899.0
	cat.products[ringID] = &catalog.Product{ID: ringID, Name: "Gold Ring", Price: 999, SalePrice: &sale}
	svc := NewService(repo, cat)

	tax := 50.0
	tx, err := svc.Create(context.Background(), CreateTransactionRequest{
		Type:  TypeSale,
		Lines: []LineInput{{ProductID: ringID, Quantity: 2}},
		Tax:   &tax,
	})
	require.NoError(t, err)
	assert.Equal(t, StatusPending, tx.Status)
	assert.InDelta(t, 2*899.0+50.0, tx.Amount, 0.001)
	assert.Equal(t, "Gold Ring", tx.Items[0].ProductName)
}

func TestCreateRequiresItems(t *testing.T) {
	repo, cat := newStubs()
	svc := NewService(repo, cat)

	_, err := svc.Create(context.Background(), CreateTransactionRequest{Type: TypeSale})
	assert.ErrorIs(t, err, ErrNoItems)

	_, err = svc.Create(context.Background(), CreateTransactionRequest{
		Type:  TypeSale,
		Lines: []LineInput{{ProductID: uuid.New(), Quantity: 0}},
	})
	assert.ErrorIs(t, err, ErrNoItems)
}

func TestCreateRejectsUnknownType(t *testing.T) {
	repo, cat := newStubs()
	svc := NewService(repo, cat)

	_, err := svc.Create(context.Background(), CreateTransactionRequest{Type: Type("barter")})
	assert.ErrorIs(t, err, ErrUnknownType)
}

func TestCompletingSaleDecrementsStock(t *testing.T) {
	repo, cat := newStubs()
	ringID := uuid.New()
	cat.products[ringID] = &catalog.Product{ID: ringID, Name: "Gold Ring", Price: 999}
	svc := NewService(repo, cat)

	tx, err := svc.Create(context.Background(), CreateTransactionRequest{
		Type:  TypeSale,
		Lines: []LineInput{{ProductID: ringID, Quantity: 3}},
	})
	require.NoError(t, err)

	require.NoError(t, svc.SetStatus(context.Background(), tx.ID, StatusCompleted))
	assert.Equal(t, -3, cat.adjustments[ringID])
}

func TestCompletingRefundRestocks(t *testing.T) {
	repo, cat := newStubs()
	ringID := uuid.New()
	cat.products[ringID] = &catalog.Product{ID: ringID, Name: "Gold Ring", Price: 999}
	svc := NewService(repo, cat)

	tx, err := svc.Create(context.Background(), CreateTransactionRequest{
		Type:  TypeRefund,
		Lines: []LineInput{{ProductID: ringID, Quantity: 1}},
	})
	require.NoError(t, err)

	require.NoError(t, svc.SetStatus(context.Background(), tx.ID, StatusCompleted))
	assert.Equal(t, 1, cat.adjustments[ringID])
}

func TestStatusTransitionsOnlyFromPending(t *testing.T) {
	repo, cat := newStubs()
	ringID := uuid.New()
	cat.products[ringID] = &catalog.Product{ID: ringID, Name: "Gold Ring", Price: 999}
	svc := NewService(repo, cat)

	tx, err := svc.Create(context.Background(), CreateTransactionRequest{
		Type:  TypeSale,
		Lines: []LineInput{{ProductID: ringID, Quantity: 1}},
	})
	require.NoError(t, err)

	require.NoError(t, svc.SetStatus(context.Background(), tx.ID, StatusCancelled))
	err = svc.SetStatus(context.Background(), tx.ID, StatusCompleted)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	err = svc.SetStatus(context.Background(), tx.ID, StatusPending)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}
