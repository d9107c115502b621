package users

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/atelier-crm/atelier-crm/internal/authz"
)

// ErrIdentityOrphaned reports a failed registration whose compensating
// identity delete also failed: an identity row now exists without a profile.
// It is surfaced distinctly from validation errors so an operator can detect
// the inconsistent state; the background sweep job repairs it.
var ErrIdentityOrphaned = errors.New("users: orphaned identity left behind")

// IdentityProvider is the slice of the identity collaborator the saga needs.
type IdentityProvider interface {
	CreateIdentity(ctx context.Context, email, password string, metadata map[string]string) (uuid.UUID, error)
	DeleteIdentity(ctx context.Context, id uuid.UUID) error
}

// RepositoryPort defines data access methods for profiles.
type RepositoryPort interface {
	ListProfiles(ctx context.Context) ([]Profile, error)
	GetProfile(ctx context.Context, id uuid.UUID) (*Profile, error)
	CreateProfile(ctx context.Context, p Profile) error
	SetRole(ctx context.Context, id, roleID uuid.UUID) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
}

// Notifier receives lifecycle events for out-of-band delivery.
type Notifier interface {
	UserRegistered(ctx context.Context, email, firstName string) error
}

// RegisterInput carries a registration request.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Phone     *string
	RoleName  string
}

// Service handles profile business logic, including the two-system
// registration transaction.
type Service struct {
	repo     RepositoryPort
	identity IdentityProvider
	roles    authz.RoleDirectory
	notifier Notifier
	logger   *slog.Logger
}

// NewService builds a Service instance. notifier may be nil.
func NewService(repo RepositoryPort, identity IdentityProvider, roles authz.RoleDirectory, notifier Notifier, logger *slog.Logger) *Service {
	return &Service{repo: repo, identity: identity, roles: roles, notifier: notifier, logger: logger}
}

// Register creates an identity and its profile. The two writes hit different
// systems and are not atomic: the identity write must succeed before the
// profile write is attempted, and a profile failure triggers a compensating
// identity delete. When the compensation itself fails the returned error
// wraps ErrIdentityOrphaned instead of masking the state as a plain failure.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Profile, error) {
	role, err := s.roles.ResolveRole(ctx, authz.RoleByName(in.RoleName))
	if err != nil {
		return nil, fmt.Errorf("users: resolve role %q: %w", in.RoleName, err)
	}

	principalID, err := s.identity.CreateIdentity(ctx, in.Email, in.Password, map[string]string{
		"first_name": in.FirstName,
		"last_name":  in.LastName,
	})
	if err != nil {
		return nil, fmt.Errorf("users: create identity: %w", err)
	}

	profile := Profile{
		ID:        principalID,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Email:     in.Email,
		Phone:     in.Phone,
		RoleID:    role.ID,
		RoleName:  role.Name,
		Active:    true,
	}
	if err := s.repo.CreateProfile(ctx, profile); err != nil {
		if compErr := s.identity.DeleteIdentity(ctx, principalID); compErr != nil {
			return nil, fmt.Errorf("%w: principal %s (profile: %v, compensation: %v)",
				ErrIdentityOrphaned, principalID, err, compErr)
		}
		return nil, fmt.Errorf("users: create profile: %w", err)
	}

	if s.notifier != nil {
		if err := s.notifier.UserRegistered(ctx, in.Email, in.FirstName); err != nil && s.logger != nil {
			s.logger.Warn("enqueue registration notification", slog.Any("error", err))
		}
	}
	return &profile, nil
}

// ListProfiles returns all profiles.
func (s *Service) ListProfiles(ctx context.Context) ([]Profile, error) {
	return s.repo.ListProfiles(ctx)
}

// GetProfile fetches one profile.
func (s *Service) GetProfile(ctx context.Context, id uuid.UUID) (*Profile, error) {
	return s.repo.GetProfile(ctx, id)
}

// AssignRole reassigns a profile's role. Takes effect on the person's next
// authorization check; in-flight sessions are not revoked.
func (s *Service) AssignRole(ctx context.Context, id, roleID uuid.UUID) error {
	return s.repo.SetRole(ctx, id, roleID)
}

// Deactivate flips a profile inactive. Profiles are never hard-deleted.
func (s *Service) Deactivate(ctx context.Context, id uuid.UUID) error {
	return s.repo.SetActive(ctx, id, false)
}

// Activate re-enables a deactivated profile.
func (s *Service) Activate(ctx context.Context, id uuid.UUID) error {
	return s.repo.SetActive(ctx, id, true)
}
