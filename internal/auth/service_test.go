package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/atelier-crm/atelier-crm/internal/shared"
)

type memoryRepo struct {
	identities map[string]*Identity
	resets     map[string]uuid.UUID // token hash -> identity
	deleted    []uuid.UUID
	passwords  map[uuid.UUID]string
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		identities: make(map[string]*Identity),
		resets:     make(map[string]uuid.UUID),
		passwords:  make(map[uuid.UUID]string),
	}
}

func (r *memoryRepo) FindByEmail(_ context.Context, email string) (*Identity, error) {
	identity, ok := r.identities[email]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return identity, nil
}

func (r *memoryRepo) FindByID(_ context.Context, id uuid.UUID) (*Identity, error) {
	for _, identity := range r.identities {
		if identity.ID == id {
			return identity, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memoryRepo) CreateIdentity(_ context.Context, identity Identity) error {
	if _, exists := r.identities[identity.Email]; exists {
		return shared.ErrAlreadyExists
	}
	r.identities[identity.Email] = &identity
	return nil
}

func (r *memoryRepo) DeleteIdentity(_ context.Context, id uuid.UUID) error {
	r.deleted = append(r.deleted, id)
	for email, identity := range r.identities {
		if identity.ID == id {
			delete(r.identities, email)
		}
	}
	return nil
}

func (r *memoryRepo) CreateSession(context.Context, string, uuid.UUID, time.Time, string, string) error {
	return nil
}

func (r *memoryRepo) DeleteSession(context.Context, string) error { return nil }

func (r *memoryRepo) CreatePasswordReset(_ context.Context, identityID uuid.UUID, tokenHash string, _ time.Time) error {
	r.resets[tokenHash] = identityID
	return nil
}

func (r *memoryRepo) ConsumePasswordReset(_ context.Context, tokenHash string) (uuid.UUID, error) {
	id, ok := r.resets[tokenHash]
	if !ok {
		return uuid.Nil, shared.ErrNotFound
	}
	delete(r.resets, tokenHash)
	return id, nil
}

func (r *memoryRepo) UpdatePasswordHash(_ context.Context, id uuid.UUID, hash string) error {
	r.passwords[id] = hash
	for _, identity := range r.identities {
		if identity.ID == id {
			identity.PasswordHash = hash
		}
	}
	return nil
}

func seedIdentity(t *testing.T, repo *memoryRepo, email, password string) uuid.UUID {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	id := uuid.New()
	repo.identities[email] = &Identity{ID: id, Email: email, PasswordHash: string(hash)}
	return id
}

func TestAuthenticateValidCredentials(t *testing.T) {
	repo := newMemoryRepo()
	id := seedIdentity(t, repo, "owner@atelier.test", "velvet-box-42")
	svc := NewService(repo)

	identity, err := svc.Authenticate(context.Background(), "owner@atelier.test", "velvet-box-42")
	require.NoError(t, err)
	assert.Equal(t, id, identity.ID)
}

func TestAuthenticateFailuresAreIndistinguishable(t *testing.T) {
	repo := newMemoryRepo()
	seedIdentity(t, repo, "owner@atelier.test", "velvet-box-42")
	svc := NewService(repo)

	_, unknownErr := svc.Authenticate(context.Background(), "ghost@atelier.test", "velvet-box-42")
	_, wrongErr := svc.Authenticate(context.Background(), "owner@atelier.test", "wrong")

	assert.ErrorIs(t, unknownErr, shared.ErrInvalidCredentials)
	assert.ErrorIs(t, wrongErr, shared.ErrInvalidCredentials)
	assert.Equal(t, unknownErr, wrongErr, "unknown account and wrong password must look the same")
}

func TestCreateIdentityHashesPassword(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)

	id, err := svc.CreateIdentity(context.Background(), "new@atelier.test", "velvet-box-42", map[string]string{"first_name": "Ana"})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, id)

	stored := repo.identities["new@atelier.test"]
	require.NotNil(t, stored)
	assert.NotEqual(t, "velvet-box-42", stored.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("velvet-box-42")))
}

func TestPasswordResetRoundTrip(t *testing.T) {
	repo := newMemoryRepo()
	id := seedIdentity(t, repo, "owner@atelier.test", "velvet-box-42")
	svc := NewService(repo)

	token, err := svc.StartPasswordReset(context.Background(), "owner@atelier.test")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	// The plaintext token is never stored; only its digest is.
	_, rawStored := repo.resets[token]
	assert.False(t, rawStored)

	require.NoError(t, svc.ResetPassword(context.Background(), token, "new-secret-pass"))
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.passwords[id]), []byte("new-secret-pass")))

	// Tokens are single use.
	err = svc.ResetPassword(context.Background(), token, "another-pass")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestStartPasswordResetUnknownEmail(t *testing.T) {
	svc := NewService(newMemoryRepo())
	_, err := svc.StartPasswordReset(context.Background(), "ghost@atelier.test")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestSafeReturnPath(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"/dashboard", "/dashboard"},
		{"/clients?page=2", "/clients?page=2"},
		{"", ""},
		{"https://evil.example/phish", ""},
		{"//evil.example", ""},
		{"dashboard", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, safeReturnPath(tc.in), "input %q", tc.in)
	}
}
