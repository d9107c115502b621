package roles

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/atelier-crm/atelier-crm/internal/authz"
)

// RepositoryPort defines data access methods for roles.
type RepositoryPort interface {
	ListRoles(ctx context.Context) ([]Role, error)
	GetRole(ctx context.Context, id uuid.UUID) (*Role, error)
	CreateRole(ctx context.Context, name, description string, permissions authz.Matrix) (*Role, error)
	UpdateRole(ctx context.Context, id uuid.UUID, name, description string, permissions authz.Matrix) error
	DeleteRole(ctx context.Context, id uuid.UUID) error
}

// Service handles role business logic.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// ListRoles returns all roles.
func (s *Service) ListRoles(ctx context.Context) ([]Role, error) {
	return s.repo.ListRoles(ctx)
}

// GetRole fetches one role by id.
func (s *Service) GetRole(ctx context.Context, id uuid.UUID) (*Role, error) {
	return s.repo.GetRole(ctx, id)
}

// CreateRole inserts a new role with the given matrix.
func (s *Service) CreateRole(ctx context.Context, name, description string, permissions authz.Matrix) (*Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("roles: name required")
	}
	if permissions == nil {
		permissions = authz.Matrix{}
	}
	return s.repo.CreateRole(ctx, name, strings.TrimSpace(description), permissions)
}

// UpdateRole replaces a role's name, description and matrix. Edits take
// effect on the next authorization check; verdicts are never cached.
func (s *Service) UpdateRole(ctx context.Context, id uuid.UUID, name, description string, permissions authz.Matrix) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("roles: name required")
	}
	if permissions == nil {
		permissions = authz.Matrix{}
	}
	return s.repo.UpdateRole(ctx, id, name, strings.TrimSpace(description), permissions)
}

// DeleteRole removes a role.
func (s *Service) DeleteRole(ctx context.Context, id uuid.UUID) error {
	return s.repo.DeleteRole(ctx, id)
}
