package catalog

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atelier-crm/atelier-crm/internal/shared"
)

type stubRepo struct {
	stored  map[uuid.UUID]*Product
	updates map[string]interface{}
}

func (s *stubRepo) Get(_ context.Context, id uuid.UUID) (*Product, error) {
	if p, ok := s.stored[id]; ok {
		return p, nil
	}
	return nil, shared.ErrNotFound
}

func (s *stubRepo) List(_ context.Context, _ ListProductsRequest) ([]Product, int, error) {
	return nil, 0, nil
}

func (s *stubRepo) Create(_ context.Context, product Product) (uuid.UUID, error) {
	id := uuid.New()
	product.ID = id
	s.stored[id] = &product
	return id, nil
}

func (s *stubRepo) Update(_ context.Context, id uuid.UUID, updates map[string]interface{}) error {
	if _, ok := s.stored[id]; !ok {
		return shared.ErrNotFound
	}
	s.updates = updates
	return nil
}

func (s *stubRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(s.stored, id)
	return nil
}

func (s *stubRepo) LowStock(_ context.Context, threshold, _ int) ([]Product, error) {
	var list []Product
	for _, p := range s.stored {
		if p.LowStock(threshold) {
			list = append(list, *p)
		}
	}
	return list, nil
}

func (s *stubRepo) Count(_ context.Context) (int, error) { return len(s.stored), nil }

func TestCreateStartsActive(t *testing.T) {
	repo := &stubRepo{stored: map[uuid.UUID]*Product{}}
	svc := NewService(repo)

	product, err := svc.Create(context.Background(), CreateProductRequest{
		Name:     "Sapphire Ring",
		Price:    1299.00,
		Quantity: 3,
	})
	require.NoError(t, err)
	assert.True(t, product.Active)
	assert.Equal(t, 3, product.Quantity)
}

func TestCreateRejectsNegativePrice(t *testing.T) {
	svc := NewService(&stubRepo{stored: map[uuid.UUID]*Product{}})

	_, err := svc.Create(context.Background(), CreateProductRequest{Name: "Ring", Price: -1})
	require.Error(t, err)
}

func TestAdjustStockFloorsAtZero(t *testing.T) {
	repo := &stubRepo{stored: map[uuid.UUID]*Product{}}
	svc := NewService(repo)

	product, err := svc.Create(context.Background(), CreateProductRequest{Name: "Ring", Price: 10, Quantity: 2})
	require.NoError(t, err)

	require.NoError(t, svc.AdjustStock(context.Background(), product.ID, -5))
	assert.Equal(t, map[string]interface{}{"quantity": 0}, repo.updates)
}

func TestLowStockFlagsActiveOnly(t *testing.T) {
	active := Product{Active: true, Quantity: 2}
	inactive := Product{Active: false, Quantity: 2}

	assert.True(t, active.LowStock(DefaultLowStockThreshold))
	assert.False(t, inactive.LowStock(DefaultLowStockThreshold))
}
