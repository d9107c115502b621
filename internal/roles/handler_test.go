package roles

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atelier-crm/atelier-crm/internal/authz"
)

type stubRepo struct {
	roles       map[uuid.UUID]*Role
	lastCreated *Role
}

func newStubRepo() *stubRepo {
	return &stubRepo{roles: make(map[uuid.UUID]*Role)}
}

func (r *stubRepo) ListRoles(context.Context) ([]Role, error) {
	out := make([]Role, 0, len(r.roles))
	for _, role := range r.roles {
		out = append(out, *role)
	}
	return out, nil
}

func (r *stubRepo) GetRole(_ context.Context, id uuid.UUID) (*Role, error) {
	role, ok := r.roles[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return role, nil
}

func (r *stubRepo) CreateRole(_ context.Context, name, description string, permissions authz.Matrix) (*Role, error) {
	role := &Role{ID: uuid.New(), Name: name, Description: description, Permissions: permissions}
	r.roles[role.ID] = role
	r.lastCreated = role
	return role, nil
}

func (r *stubRepo) UpdateRole(_ context.Context, id uuid.UUID, name, description string, permissions authz.Matrix) error {
	role, ok := r.roles[id]
	if !ok {
		return errors.New("not found")
	}
	role.Name, role.Description, role.Permissions = name, description, permissions
	return nil
}

func (r *stubRepo) DeleteRole(_ context.Context, id uuid.UUID) error {
	delete(r.roles, id)
	return nil
}

func formRequest(values url.Values) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/settings/roles", strings.NewReader(values.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return r
}

func TestMatrixFromFormUncheckedBoxesDeny(t *testing.T) {
	form := url.Values{}
	form.Set("perm_clients_read", "on")
	form.Set("perm_clients_create", "on")
	form.Set("perm_products_read", "on")

	matrix := matrixFromForm(formRequest(form))

	assert.True(t, matrix.Allows(authz.ResourceClients, authz.ActionRead))
	assert.True(t, matrix.Allows(authz.ResourceClients, authz.ActionCreate))
	assert.False(t, matrix.Allows(authz.ResourceClients, authz.ActionDelete))
	assert.False(t, matrix.Allows(authz.ResourceUsers, authz.ActionRead))
	assert.False(t, matrix.Allows(authz.ResourceTransactions, authz.ActionCreate))
}

func TestMatrixFromFormIgnoresUnknownFields(t *testing.T) {
	form := url.Values{}
	form.Set("perm_reports_read", "on")
	form.Set("name", "Custom")

	matrix := matrixFromForm(formRequest(form))

	for _, resource := range authz.AllResources() {
		for _, action := range authz.AllActions() {
			assert.False(t, matrix.Allows(resource, action))
		}
	}
}

func TestCreateRoleRequiresName(t *testing.T) {
	svc := NewService(newStubRepo())
	_, err := svc.CreateRole(context.Background(), "   ", "desc", nil)
	assert.Error(t, err)
}

func TestCreateRoleTrimsAndDefaultsMatrix(t *testing.T) {
	repo := newStubRepo()
	svc := NewService(repo)

	role, err := svc.CreateRole(context.Background(), "  Vendor  ", " external catalog viewer ", nil)
	require.NoError(t, err)

	assert.Equal(t, "Vendor", role.Name)
	assert.Equal(t, "external catalog viewer", role.Description)
	require.NotNil(t, role.Permissions)
	assert.False(t, role.Permissions.Allows(authz.ResourceProducts, authz.ActionRead), "an empty matrix denies everything")
}

func TestUpdateRoleReplacesMatrix(t *testing.T) {
	repo := newStubRepo()
	svc := NewService(repo)

	role, err := svc.CreateRole(context.Background(), "Employee", "", authz.Matrix{
		authz.ResourceClients: {Read: true, Create: true, Update: true},
	})
	require.NoError(t, err)

	err = svc.UpdateRole(context.Background(), role.ID, "Employee", "", authz.Matrix{
		authz.ResourceClients: {Read: true},
	})
	require.NoError(t, err)

	updated, err := svc.GetRole(context.Background(), role.ID)
	require.NoError(t, err)
	assert.False(t, updated.Permissions.Allows(authz.ResourceClients, authz.ActionCreate), "revoked grants must not linger")
}
