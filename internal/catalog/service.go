package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// DefaultLowStockThreshold flags pieces running out on the dashboard.
const DefaultLowStockThreshold = 5

// Service provides business logic for the product catalog.
type Service struct {
	repo     Repository
	validate *validator.Validate
}

// NewService constructs a catalog service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, validate: validator.New()}
}

// Create validates and stores a new product. New products start active.
func (s *Service) Create(ctx context.Context, req CreateProductRequest) (*Product, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("validate product: %w", err)
	}
	product := Product{
		Name:        strings.TrimSpace(req.Name),
		SKU:         req.SKU,
		Description: req.Description,
		Price:       req.Price,
		SalePrice:   req.SalePrice,
		Cost:        req.Cost,
		Quantity:    req.Quantity,
		Category:    req.Category,
		Tags:        normalizeTags(req.Tags),
		ImageURL:    req.ImageURL,
		VendorID:    req.VendorID,
		Active:      true,
	}
	id, err := s.repo.Create(ctx, product)
	if err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	product.ID = id
	return &product, nil
}

// Update applies a partial update to an existing product.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req UpdateProductRequest) error {
	if err := s.validate.Struct(req); err != nil {
		return fmt.Errorf("validate product: %w", err)
	}
	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = strings.TrimSpace(*req.Name)
	}
	if req.SKU != nil {
		updates["sku"] = *req.SKU
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Price != nil {
		updates["price"] = *req.Price
	}
	if req.SalePrice != nil {
		updates["sale_price"] = *req.SalePrice
	}
	if req.Cost != nil {
		updates["cost"] = *req.Cost
	}
	if req.Quantity != nil {
		updates["quantity"] = *req.Quantity
	}
	if req.Category != nil {
		updates["category"] = *req.Category
	}
	if req.Tags != nil {
		updates["tags"] = normalizeTags(req.Tags)
	}
	if req.ImageURL != nil {
		updates["image_url"] = *req.ImageURL
	}
	if req.VendorID != nil {
		updates["vendor_id"] = *req.VendorID
	}
	if req.Active != nil {
		updates["active"] = *req.Active
	}
	if err := s.repo.Update(ctx, id, updates); err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	return nil
}

// Get returns a single product.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Product, error) {
	return s.repo.Get(ctx, id)
}

// List returns products matching the request plus a total count.
func (s *Service) List(ctx context.Context, req ListProductsRequest) ([]Product, int, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, 0, fmt.Errorf("validate listing: %w", err)
	}
	return s.repo.List(ctx, req)
}

// Delete removes a product record.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

// AdjustStock changes on-hand quantity by delta; the result never goes negative.
func (s *Service) AdjustStock(ctx context.Context, id uuid.UUID, delta int) error {
	product, err := s.repo.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("get product: %w", err)
	}
	quantity := product.Quantity + delta
	if quantity < 0 {
		quantity = 0
	}
	if err := s.repo.Update(ctx, id, map[string]interface{}{"quantity": quantity}); err != nil {
		return fmt.Errorf("adjust stock: %w", err)
	}
	return nil
}

// Count returns the number of active products.
func (s *Service) Count(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}

// LowStock returns active products under the threshold, lowest first.
func (s *Service) LowStock(ctx context.Context, limit int) ([]Product, error) {
	return s.repo.LowStock(ctx, DefaultLowStockThreshold, limit)
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag != "" {
			out = append(out, tag)
		}
	}
	return out
}
