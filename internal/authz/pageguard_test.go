package authz

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestPageGuardStartsPendingAndNeverRendersEarly(t *testing.T) {
	g := NewPageGuard([]string{"Admin"})

	assert.Equal(t, PhasePending, g.State().Phase)
	assert.False(t, g.ShouldRender())

	g.Begin()
	assert.Equal(t, PhaseChecking, g.State().Phase)
	assert.False(t, g.ShouldRender(), "content must not render while the check is in flight")
}

func TestPageGuardAuthorizesAllowedRole(t *testing.T) {
	g := NewPageGuard([]string{"Admin", "IT Team"})
	gen := g.Begin()

	res := g.Complete(gen, &Identity{Principal: uuid.New(), RoleName: "IT Team"}, "/users")
	assert.Equal(t, PhaseAuthorized, res.Phase)
	assert.Empty(t, res.RedirectTo)
	assert.True(t, g.ShouldRender())
}

func TestPageGuardDeniesExcludedRole(t *testing.T) {
	g := NewPageGuard([]string{"Admin"})
	gen := g.Begin()

	res := g.Complete(gen, &Identity{Principal: uuid.New(), RoleName: "Employee"}, "/users")
	assert.Equal(t, PhaseDenied, res.Phase)
	assert.Equal(t, "/unauthorized", res.RedirectTo)
	assert.False(t, g.ShouldRender())
}

func TestPageGuardRedirectsAnonymousToLoginWithReturnURL(t *testing.T) {
	g := NewPageGuard([]string{"Admin"})
	gen := g.Begin()

	res := g.Complete(gen, nil, "/users?page=2")
	assert.Equal(t, PhaseDenied, res.Phase)
	assert.Equal(t, "/auth/login?returnUrl=%2Fusers%3Fpage%3D2", res.RedirectTo)
}

func TestPageGuardDiscardsStaleCompletion(t *testing.T) {
	g := NewPageGuard([]string{"Admin"})

	stale := g.Begin()
	fresh := g.Begin()

	// The slow earlier check resolves after a newer one started: its
	// verdict must not move the guard out of Checking.
	res := g.Complete(stale, &Identity{Principal: uuid.New(), RoleName: "Admin"}, "/settings")
	assert.Equal(t, PhaseChecking, res.Phase)
	assert.False(t, g.ShouldRender())

	res = g.Complete(fresh, &Identity{Principal: uuid.New(), RoleName: "Admin"}, "/settings")
	assert.Equal(t, PhaseAuthorized, res.Phase)
}

func TestPageGuardStaleAuthorizationCannotLeakAcrossIdentityChange(t *testing.T) {
	g := NewPageGuard([]string{"Admin"})

	first := g.Begin()
	g.Complete(first, &Identity{Principal: uuid.New(), RoleName: "Admin"}, "/settings")
	assert.True(t, g.ShouldRender())

	// Sign-out restarts the check; the old Authorized state is gone.
	second := g.Begin()
	assert.False(t, g.ShouldRender())

	// The admin's old completion arrives again with the stale token.
	g.Complete(first, &Identity{Principal: uuid.New(), RoleName: "Admin"}, "/settings")
	assert.False(t, g.ShouldRender())

	res := g.Complete(second, nil, "/settings")
	assert.Equal(t, PhaseDenied, res.Phase)
}

func TestPageGuardSetAllowedRolesRestartsCheck(t *testing.T) {
	g := NewPageGuard([]string{"Admin"})
	gen := g.Begin()
	g.Complete(gen, &Identity{Principal: uuid.New(), RoleName: "Admin"}, "/settings")
	assert.True(t, g.ShouldRender())

	gen = g.SetAllowedRoles([]string{"IT Team"})
	assert.False(t, g.ShouldRender())

	res := g.Complete(gen, &Identity{Principal: uuid.New(), RoleName: "Admin"}, "/settings")
	assert.Equal(t, PhaseDenied, res.Phase)
}

func TestPageGuardOptionOverrides(t *testing.T) {
	g := NewPageGuard(nil, WithLoginPath("/signin"), WithFallbackPath("/denied"))
	gen := g.Begin()

	res := g.Complete(gen, nil, "/vendors")
	assert.Equal(t, "/signin?returnUrl=%2Fvendors", res.RedirectTo)

	gen = g.Begin()
	res = g.Complete(gen, &Identity{Principal: uuid.New(), RoleName: "Employee"}, "/vendors")
	assert.Equal(t, "/denied", res.RedirectTo)
}
