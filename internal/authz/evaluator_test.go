package authz

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

type stubDirectory struct {
	roles map[string]*Role
	err   error
	calls int
}

func (d *stubDirectory) ResolveRole(_ context.Context, ref RoleRef) (*Role, error) {
	d.calls++
	if d.err != nil {
		return nil, d.err
	}
	role, ok := d.roles[ref.String()]
	if !ok {
		return nil, ErrRoleNotFound
	}
	return role, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestEvaluatorAllowsGrantedAction(t *testing.T) {
	roleID := uuid.New()
	dir := &stubDirectory{roles: map[string]*Role{
		RoleByID(roleID).String(): {
			ID:   roleID,
			Name: "Employee",
			Permissions: Matrix{
				ResourceClients: {Read: true, Create: true, Update: true},
			},
		},
	}}
	ev := NewEvaluator(dir, discardLogger())

	assert.True(t, ev.CanPerform(context.Background(), RoleByID(roleID), ResourceClients, ActionUpdate))
	assert.False(t, ev.CanPerform(context.Background(), RoleByID(roleID), ResourceClients, ActionDelete))
	assert.False(t, ev.CanPerform(context.Background(), RoleByID(roleID), ResourceUsers, ActionRead))
}

func TestEvaluatorDeniesUnknownRole(t *testing.T) {
	ev := NewEvaluator(&stubDirectory{roles: map[string]*Role{}}, discardLogger())
	assert.False(t, ev.CanPerform(context.Background(), RoleByName("Ghost"), ResourceClients, ActionRead))
}

func TestEvaluatorDeniesOnDirectoryError(t *testing.T) {
	ev := NewEvaluator(&stubDirectory{err: errors.New("connection refused")}, discardLogger())
	assert.False(t, ev.CanPerform(context.Background(), RoleByName("Admin"), ResourceUsers, ActionRead))
}

func TestEvaluatorReadsDirectoryEveryCheck(t *testing.T) {
	roleID := uuid.New()
	dir := &stubDirectory{roles: map[string]*Role{
		RoleByID(roleID).String(): {ID: roleID, Name: "Admin", Permissions: FullAccess()},
	}}
	ev := NewEvaluator(dir, discardLogger())

	ev.CanPerform(context.Background(), RoleByID(roleID), ResourceUsers, ActionRead)
	ev.CanPerform(context.Background(), RoleByID(roleID), ResourceUsers, ActionDelete)
	assert.Equal(t, 2, dir.calls, "verdicts must not be cached between checks")
}

func TestDecideCarriesVerdictContext(t *testing.T) {
	roleID := uuid.New()
	dir := &stubDirectory{roles: map[string]*Role{
		RoleByID(roleID).String(): {
			ID:          roleID,
			Name:        "Inventory Manager",
			Permissions: Matrix{ResourceProducts: {Read: true, Create: true, Update: true, Delete: true}},
		},
	}}
	ev := NewEvaluator(dir, discardLogger())

	d := ev.Decide(context.Background(), RoleByID(roleID), ResourceProducts, ActionDelete)
	assert.True(t, d.Allowed)
	assert.Equal(t, roleID, d.RoleID)
	assert.Equal(t, "Inventory Manager", d.RoleName)
	assert.Equal(t, ResourceProducts, d.Resource)
	assert.Equal(t, ActionDelete, d.Action)

	denied := ev.Decide(context.Background(), RoleByName("missing"), ResourceProducts, ActionRead)
	assert.False(t, denied.Allowed)
	assert.Equal(t, uuid.Nil, denied.RoleID)
}

func TestEvaluatorRoleName(t *testing.T) {
	roleID := uuid.New()
	dir := &stubDirectory{roles: map[string]*Role{
		RoleByID(roleID).String(): {ID: roleID, Name: "IT Team", Permissions: FullAccess()},
	}}
	ev := NewEvaluator(dir, discardLogger())

	name, err := ev.RoleName(context.Background(), RoleByID(roleID))
	assert.NoError(t, err)
	assert.Equal(t, "IT Team", name)

	_, err = ev.RoleName(context.Background(), RoleByName("missing"))
	assert.ErrorIs(t, err, ErrRoleNotFound)
}

func TestRoleRefString(t *testing.T) {
	id := uuid.New()
	assert.Equal(t, "id:"+id.String(), RoleByID(id).String())
	assert.Equal(t, "name:Admin", RoleByName("Admin").String())
	assert.True(t, RoleByName("Admin").ByName())
	assert.False(t, RoleByID(id).ByName())
}
