package vendors

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/atelier-crm/atelier-crm/internal/catalog"
)

// CreateVendorRequest carries a validated create form.
type CreateVendorRequest struct {
	Name         string  `validate:"required,max=200"`
	ContactName  *string `validate:"omitempty,max=200"`
	Email        *string `validate:"omitempty,email"`
	Phone        *string `validate:"omitempty,max=50"`
	Website      *string `validate:"omitempty,url"`
	PaymentTerms *string `validate:"omitempty,max=200"`
	Notes        *string `validate:"omitempty"`
}

// UpdateVendorRequest carries a partial update; nil fields are untouched.
type UpdateVendorRequest struct {
	Name         *string `validate:"omitempty,max=200"`
	ContactName  *string `validate:"omitempty,max=200"`
	Email        *string `validate:"omitempty,email"`
	Phone        *string `validate:"omitempty,max=50"`
	Website      *string `validate:"omitempty,url"`
	PaymentTerms *string `validate:"omitempty,max=200"`
	Notes        *string `validate:"omitempty"`
	Active       *bool
}

// Service provides business logic for vendor records.
type Service struct {
	repo     Repository
	validate *validator.Validate
}

// NewService constructs a vendor service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, validate: validator.New()}
}

// Create validates and stores a new vendor. New vendors start active.
func (s *Service) Create(ctx context.Context, req CreateVendorRequest) (*Vendor, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("validate vendor: %w", err)
	}
	vendor := Vendor{
		Name:         strings.TrimSpace(req.Name),
		ContactName:  req.ContactName,
		Email:        req.Email,
		Phone:        req.Phone,
		Website:      req.Website,
		PaymentTerms: req.PaymentTerms,
		Notes:        req.Notes,
		Active:       true,
	}
	id, err := s.repo.Create(ctx, vendor)
	if err != nil {
		return nil, fmt.Errorf("create vendor: %w", err)
	}
	vendor.ID = id
	return &vendor, nil
}

// Update applies a partial update to an existing vendor.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req UpdateVendorRequest) error {
	if err := s.validate.Struct(req); err != nil {
		return fmt.Errorf("validate vendor: %w", err)
	}
	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = strings.TrimSpace(*req.Name)
	}
	if req.ContactName != nil {
		updates["contact_name"] = *req.ContactName
	}
	if req.Email != nil {
		updates["email"] = *req.Email
	}
	if req.Phone != nil {
		updates["phone"] = *req.Phone
	}
	if req.Website != nil {
		updates["website"] = *req.Website
	}
	if req.PaymentTerms != nil {
		updates["payment_terms"] = *req.PaymentTerms
	}
	if req.Notes != nil {
		updates["notes"] = *req.Notes
	}
	if req.Active != nil {
		updates["active"] = *req.Active
	}
	if err := s.repo.Update(ctx, id, updates); err != nil {
		return fmt.Errorf("update vendor: %w", err)
	}
	return nil
}

// Get returns a single vendor.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Vendor, error) {
	return s.repo.Get(ctx, id)
}

// List returns vendors ordered by name.
func (s *Service) List(ctx context.Context, includeInactive bool) ([]Vendor, error) {
	return s.repo.List(ctx, includeInactive)
}

// Delete removes a vendor record.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

// Count returns the number of active vendors.
func (s *Service) Count(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}

// VendorOptions lists active vendors for product forms.
func (s *Service) VendorOptions(ctx context.Context) ([]catalog.VendorOption, error) {
	list, err := s.repo.List(ctx, false)
	if err != nil {
		return nil, err
	}
	options := make([]catalog.VendorOption, 0, len(list))
	for _, vendor := range list {
		options = append(options, catalog.VendorOption{ID: vendor.ID, Name: vendor.Name})
	}
	return options, nil
}
