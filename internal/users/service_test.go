package users

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atelier-crm/atelier-crm/internal/authz"
)

type stubRepo struct {
	created   []Profile
	createErr error
	roleSet   map[uuid.UUID]uuid.UUID
	activeSet map[uuid.UUID]bool
	profiles  map[uuid.UUID]*Profile
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		roleSet:   make(map[uuid.UUID]uuid.UUID),
		activeSet: make(map[uuid.UUID]bool),
		profiles:  make(map[uuid.UUID]*Profile),
	}
}

func (r *stubRepo) ListProfiles(context.Context) ([]Profile, error) { return r.created, nil }

func (r *stubRepo) GetProfile(_ context.Context, id uuid.UUID) (*Profile, error) {
	p, ok := r.profiles[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return p, nil
}

func (r *stubRepo) CreateProfile(_ context.Context, p Profile) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.created = append(r.created, p)
	return nil
}

func (r *stubRepo) SetRole(_ context.Context, id, roleID uuid.UUID) error {
	r.roleSet[id] = roleID
	return nil
}

func (r *stubRepo) SetActive(_ context.Context, id uuid.UUID, active bool) error {
	r.activeSet[id] = active
	return nil
}

type stubIdentity struct {
	nextID    uuid.UUID
	createErr error
	deleteErr error
	created   int
	deleted   []uuid.UUID
}

func (i *stubIdentity) CreateIdentity(context.Context, string, string, map[string]string) (uuid.UUID, error) {
	if i.createErr != nil {
		return uuid.Nil, i.createErr
	}
	i.created++
	return i.nextID, nil
}

func (i *stubIdentity) DeleteIdentity(_ context.Context, id uuid.UUID) error {
	if i.deleteErr != nil {
		return i.deleteErr
	}
	i.deleted = append(i.deleted, id)
	return nil
}

type stubRoles struct {
	role *authz.Role
	err  error
}

func (r *stubRoles) ResolveRole(context.Context, authz.RoleRef) (*authz.Role, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.role, nil
}

type stubNotifier struct {
	emails []string
	err    error
}

func (n *stubNotifier) UserRegistered(_ context.Context, email, _ string) error {
	n.emails = append(n.emails, email)
	return n.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func registerInput() RegisterInput {
	return RegisterInput{
		Email:     "maya@atelier.test",
		Password:  "correct horse battery",
		FirstName: "Maya",
		LastName:  "Lindgren",
		RoleName:  "Employee",
	}
}

func TestRegisterCreatesIdentityThenProfile(t *testing.T) {
	roleID := uuid.New()
	principal := uuid.New()
	repo := newStubRepo()
	identity := &stubIdentity{nextID: principal}
	notifier := &stubNotifier{}
	svc := NewService(repo, identity, &stubRoles{role: &authz.Role{ID: roleID, Name: "Employee"}}, notifier, testLogger())

	profile, err := svc.Register(context.Background(), registerInput())
	require.NoError(t, err)

	assert.Equal(t, principal, profile.ID, "profile id must be the identity's principal id")
	assert.Equal(t, roleID, profile.RoleID)
	assert.True(t, profile.Active)
	require.Len(t, repo.created, 1)
	assert.Equal(t, []string{"maya@atelier.test"}, notifier.emails)
}

func TestRegisterResolvesRoleBeforeAnyWrite(t *testing.T) {
	repo := newStubRepo()
	identity := &stubIdentity{nextID: uuid.New()}
	svc := NewService(repo, identity, &stubRoles{err: authz.ErrRoleNotFound}, nil, testLogger())

	_, err := svc.Register(context.Background(), registerInput())
	require.Error(t, err)
	assert.ErrorIs(t, err, authz.ErrRoleNotFound)
	assert.Zero(t, identity.created, "no identity may be created when the role does not resolve")
	assert.Empty(t, repo.created)
}

func TestRegisterIdentityFailureCreatesNothing(t *testing.T) {
	repo := newStubRepo()
	identity := &stubIdentity{createErr: errors.New("email already registered")}
	svc := NewService(repo, identity, &stubRoles{role: &authz.Role{ID: uuid.New(), Name: "Employee"}}, nil, testLogger())

	_, err := svc.Register(context.Background(), registerInput())
	require.Error(t, err)
	assert.Empty(t, repo.created)
	assert.Empty(t, identity.deleted, "nothing to compensate when the first write fails")
}

func TestRegisterProfileFailureCompensatesIdentity(t *testing.T) {
	principal := uuid.New()
	repo := newStubRepo()
	repo.createErr = errors.New("connection reset")
	identity := &stubIdentity{nextID: principal}
	notifier := &stubNotifier{}
	svc := NewService(repo, identity, &stubRoles{role: &authz.Role{ID: uuid.New(), Name: "Employee"}}, notifier, testLogger())

	_, err := svc.Register(context.Background(), registerInput())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrIdentityOrphaned)
	assert.Equal(t, []uuid.UUID{principal}, identity.deleted, "the identity must be deleted after the profile write fails")
	assert.Empty(t, notifier.emails)
}

func TestRegisterSurfacesOrphanWhenCompensationFails(t *testing.T) {
	principal := uuid.New()
	repo := newStubRepo()
	repo.createErr = errors.New("connection reset")
	identity := &stubIdentity{nextID: principal, deleteErr: errors.New("identity store down")}
	svc := NewService(repo, identity, &stubRoles{role: &authz.Role{ID: uuid.New(), Name: "Employee"}}, nil, testLogger())

	_, err := svc.Register(context.Background(), registerInput())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrIdentityOrphaned)
	assert.Contains(t, err.Error(), principal.String())
}

func TestRegisterNotifierFailureIsNotFatal(t *testing.T) {
	repo := newStubRepo()
	identity := &stubIdentity{nextID: uuid.New()}
	notifier := &stubNotifier{err: errors.New("queue full")}
	svc := NewService(repo, identity, &stubRoles{role: &authz.Role{ID: uuid.New(), Name: "Employee"}}, notifier, testLogger())

	_, err := svc.Register(context.Background(), registerInput())
	assert.NoError(t, err, "a lost welcome email must not fail the registration")
}

func TestDeactivateNeverDeletes(t *testing.T) {
	repo := newStubRepo()
	svc := NewService(repo, &stubIdentity{}, &stubRoles{}, nil, testLogger())

	id := uuid.New()
	require.NoError(t, svc.Deactivate(context.Background(), id))
	active, ok := repo.activeSet[id]
	require.True(t, ok)
	assert.False(t, active)

	require.NoError(t, svc.Activate(context.Background(), id))
	assert.True(t, repo.activeSet[id])
}

func TestAssignRole(t *testing.T) {
	repo := newStubRepo()
	svc := NewService(repo, &stubIdentity{}, &stubRoles{}, nil, testLogger())

	id, roleID := uuid.New(), uuid.New()
	require.NoError(t, svc.AssignRole(context.Background(), id, roleID))
	assert.Equal(t, roleID, repo.roleSet[id])
}
