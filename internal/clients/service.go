package clients

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Service provides business logic for client records.
type Service struct {
	repo     Repository
	validate *validator.Validate
}

// NewService constructs a client service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, validate: validator.New()}
}

// Create validates and stores a new client.
func (s *Service) Create(ctx context.Context, req CreateClientRequest) (*Client, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("validate client: %w", err)
	}
	client := Client{
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Email:     strings.ToLower(strings.TrimSpace(req.Email)),
		Phone:     req.Phone,
		Birthdate: req.Birthdate,
		Tags:      normalizeTags(req.Tags),
		Notes:     req.Notes,
		Address:   req.Address,
		CreatedBy: req.CreatedBy,
	}
	id, err := s.repo.Create(ctx, client)
	if err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}
	client.ID = id
	return &client, nil
}

// Update applies a partial update to an existing client.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req UpdateClientRequest) error {
	if err := s.validate.Struct(req); err != nil {
		return fmt.Errorf("validate client: %w", err)
	}
	updates := map[string]interface{}{}
	if req.FirstName != nil {
		updates["first_name"] = strings.TrimSpace(*req.FirstName)
	}
	if req.LastName != nil {
		updates["last_name"] = strings.TrimSpace(*req.LastName)
	}
	if req.Email != nil {
		updates["email"] = strings.ToLower(strings.TrimSpace(*req.Email))
	}
	if req.Phone != nil {
		updates["phone"] = *req.Phone
	}
	if req.Birthdate != nil {
		updates["birthdate"] = *req.Birthdate
	}
	if req.Tags != nil {
		updates["tags"] = normalizeTags(req.Tags)
	}
	if req.Notes != nil {
		updates["notes"] = *req.Notes
	}
	if req.Address != nil {
		updates["address"] = *req.Address
	}
	if err := s.repo.Update(ctx, id, updates); err != nil {
		return fmt.Errorf("update client: %w", err)
	}
	return nil
}

// Get returns a single client.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Client, error) {
	return s.repo.Get(ctx, id)
}

// List returns clients matching the request plus a total count.
func (s *Service) List(ctx context.Context, req ListClientsRequest) ([]Client, int, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, 0, fmt.Errorf("validate listing: %w", err)
	}
	return s.repo.List(ctx, req)
}

// Delete removes a client record.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

// Count returns the total number of clients.
func (s *Service) Count(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
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
