package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/atelier-crm/atelier-crm/internal/shared"
)

const resetTokenTTL = 2 * time.Hour

// Service wraps authentication business rules. It is the concrete identity
// provider: credential verification, identity lifecycle and password resets.
type Service struct {
	repo Repository
}

// NewService constructs a new Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Authenticate validates email/password credentials. Every failure mode maps
// to ErrInvalidCredentials so callers cannot distinguish unknown accounts
// from wrong passwords.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*Identity, error) {
	identity, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(identity.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	return identity, nil
}

// CreateIdentity provisions a new identity and returns its id. The id is
// shared with the user profile created alongside it.
func (s *Service) CreateIdentity(ctx context.Context, email, password string, metadata map[string]string) (uuid.UUID, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return uuid.Nil, fmt.Errorf("auth: hash password: %w", err)
	}
	id := uuid.New()
	identity := Identity{
		ID:           id,
		Email:        email,
		PasswordHash: string(hash),
		Metadata:     metadata,
	}
	if err := s.repo.CreateIdentity(ctx, identity); err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

// DeleteIdentity removes an identity. Used as the compensating action when
// profile creation fails after the identity write succeeded.
func (s *Service) DeleteIdentity(ctx context.Context, id uuid.UUID) error {
	return s.repo.DeleteIdentity(ctx, id)
}

// RegisterSession persists the session metadata in postgres.
func (s *Service) RegisterSession(ctx context.Context, id string, identityID uuid.UUID, expiresAt time.Time, ip, ua string) error {
	return s.repo.CreateSession(ctx, id, identityID, expiresAt, ip, ua)
}

// RemoveSession deletes a session record from postgres.
func (s *Service) RemoveSession(ctx context.Context, id string) error {
	return s.repo.DeleteSession(ctx, id)
}

// StartPasswordReset issues a reset token for the account, returning the
// plaintext token to be mailed. An unknown email returns ErrNotFound; the
// handler treats that the same as success to avoid account enumeration.
func (s *Service) StartPasswordReset(ctx context.Context, email string) (string, error) {
	identity, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("auth: generate reset token: %w", err)
	}
	token := base64.RawURLEncoding.EncodeToString(raw)
	if err := s.repo.CreatePasswordReset(ctx, identity.ID, hashToken(token), time.Now().Add(resetTokenTTL)); err != nil {
		return "", err
	}
	return token, nil
}

// ResetPassword consumes a reset token and replaces the password.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	identityID, err := s.repo.ConsumePasswordReset(ctx, hashToken(token))
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return shared.ErrInvalidCredentials
		}
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("auth: hash password: %w", err)
	}
	return s.repo.UpdatePasswordHash(ctx, identityID, string(hash))
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
