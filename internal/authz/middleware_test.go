package authz

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/atelier-crm/atelier-crm/internal/shared"
)

type stubProfiles struct {
	bindings map[uuid.UUID]Binding
	err      error
}

func (p *stubProfiles) RoleBinding(_ context.Context, principalID uuid.UUID) (Binding, error) {
	if p.err != nil {
		return Binding{}, p.err
	}
	binding, ok := p.bindings[principalID]
	if !ok {
		return Binding{}, ErrProfileNotFound
	}
	return binding, nil
}

type denialLog struct {
	denials []string
}

func (d *denialLog) RecordDenial(resource, action string) {
	d.denials = append(d.denials, resource+"/"+action)
}

func guardFixture(t *testing.T) (Middleware, uuid.UUID, uuid.UUID, *denialLog) {
	t.Helper()
	roleID := uuid.New()
	principal := uuid.New()
	dir := &stubDirectory{roles: map[string]*Role{
		RoleByID(roleID).String(): {
			ID:   roleID,
			Name: "Employee",
			Permissions: Matrix{
				ResourceClients:      {Read: true, Create: true, Update: true},
				ResourceTransactions: {Read: true, Create: true},
			},
		},
	}}
	recorder := &denialLog{}
	m := Middleware{
		Evaluator:      NewEvaluator(dir, discardLogger()),
		Profiles:       &stubProfiles{bindings: map[uuid.UUID]Binding{principal: {RoleID: roleID, Active: true}}},
		Logger:         discardLogger(),
		DenialRecorder: recorder,
	}
	return m, principal, roleID, recorder
}

func guardedRequest(path, userID, accept string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, path, nil)
	if accept != "" {
		r.Header.Set("Accept", accept)
	}
	if userID != "" {
		sess := &shared.Session{}
		sess.SetUser(userID)
		r = r.WithContext(shared.ContextWithSession(r.Context(), sess))
	}
	return r
}

func serveGuarded(m Middleware, resource Resource, action Action, r *http.Request) (*httptest.ResponseRecorder, *bool) {
	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		called = true
		w.WriteHeader(http.StatusNoContent)
	})
	rec := httptest.NewRecorder()
	m.Require(resource, action)(next).ServeHTTP(rec, r)
	return rec, &called
}

func TestRequireAllowsGrantedOperation(t *testing.T) {
	m, principal, _, recorder := guardFixture(t)

	rec, called := serveGuarded(m, ResourceClients, ActionCreate, guardedRequest("/clients", principal.String(), "text/html"))

	assert.True(t, *called)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, recorder.denials)
}

func TestRequireDeniesMissingGrant(t *testing.T) {
	m, principal, _, recorder := guardFixture(t)

	rec, called := serveGuarded(m, ResourceClients, ActionDelete, guardedRequest("/clients/x/delete", principal.String(), "text/html"))

	assert.False(t, *called, "handler must not run before the guard decides")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/unauthorized", rec.Header().Get("Location"))
	assert.Equal(t, []string{"clients/delete"}, recorder.denials)
}

func TestRequireRedirectsAnonymousBrowserToLogin(t *testing.T) {
	m, _, _, _ := guardFixture(t)

	rec, called := serveGuarded(m, ResourceClients, ActionRead, guardedRequest("/clients", "", "text/html"))

	assert.False(t, *called)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/auth/login?redirectTo=%2Fclients", rec.Header().Get("Location"))
}

func TestRequireReturnsUnauthorizedForNonHTMLClients(t *testing.T) {
	m, _, _, _ := guardFixture(t)

	rec, called := serveGuarded(m, ResourceClients, ActionRead, guardedRequest("/clients", "", "application/json"))

	assert.False(t, *called)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireDeniesDeactivatedProfile(t *testing.T) {
	m, principal, roleID, recorder := guardFixture(t)
	m.Profiles = &stubProfiles{bindings: map[uuid.UUID]Binding{principal: {RoleID: roleID, Active: false}}}

	rec, called := serveGuarded(m, ResourceClients, ActionRead, guardedRequest("/clients", principal.String(), "text/html"))

	assert.False(t, *called)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/unauthorized", rec.Header().Get("Location"))
	assert.Equal(t, []string{"clients/read"}, recorder.denials)
}

func TestRequireDeniesWhenProfileMissing(t *testing.T) {
	m, _, _, _ := guardFixture(t)

	rec, called := serveGuarded(m, ResourceClients, ActionRead, guardedRequest("/clients", uuid.NewString(), "application/json"))

	assert.False(t, *called)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireDeniesOnProfileLookupError(t *testing.T) {
	m, principal, _, _ := guardFixture(t)
	m.Profiles = &stubProfiles{err: errors.New("database unavailable")}

	rec, called := serveGuarded(m, ResourceClients, ActionRead, guardedRequest("/clients", principal.String(), "application/json"))

	assert.False(t, *called, "an unreadable profile must fail closed")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestPageAccessAllowsListedRole(t *testing.T) {
	m, principal, _, _ := guardFixture(t)

	rec, called := servePageGuarded(m, []string{"Admin", "Employee"}, guardedRequest("/users", principal.String(), "text/html"))

	assert.True(t, *called)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestPageAccessDeniesExcludedRole(t *testing.T) {
	m, principal, _, _ := guardFixture(t)

	rec, called := servePageGuarded(m, []string{"Admin", "IT Team"}, guardedRequest("/users", principal.String(), "text/html"))

	assert.False(t, *called, "excluded roles must never reach the guarded screen")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/unauthorized", rec.Header().Get("Location"))
}

func TestPageAccessSendsAnonymousToLoginWithReturnURL(t *testing.T) {
	m, _, _, _ := guardFixture(t)

	rec, called := servePageGuarded(m, []string{"Admin"}, guardedRequest("/settings", "", "text/html"))

	assert.False(t, *called)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/auth/login?returnUrl=%2Fsettings", rec.Header().Get("Location"))
}

func TestPageAccessDeniesDeactivatedProfile(t *testing.T) {
	m, principal, roleID, _ := guardFixture(t)
	m.Profiles = &stubProfiles{bindings: map[uuid.UUID]Binding{principal: {RoleID: roleID, Active: false}}}

	rec, called := servePageGuarded(m, []string{"Employee"}, guardedRequest("/users", principal.String(), "text/html"))

	assert.False(t, *called, "a deactivated profile carries no role name and fails the allow-list")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/unauthorized", rec.Header().Get("Location"))
}

func servePageGuarded(m Middleware, allowed []string, r *http.Request) (*httptest.ResponseRecorder, *bool) {
	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		called = true
		w.WriteHeader(http.StatusNoContent)
	})
	rec := httptest.NewRecorder()
	m.PageAccess(allowed...)(next).ServeHTTP(rec, r)
	return rec, &called
}

func TestRequireDeniesMalformedPrincipalID(t *testing.T) {
	m, _, _, _ := guardFixture(t)

	rec, called := serveGuarded(m, ResourceClients, ActionRead, guardedRequest("/clients", "not-a-uuid", "application/json"))

	assert.False(t, *called)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
