package authz

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/atelier-crm/atelier-crm/internal/shared"
)

func boundaryRequest(t *testing.T, path string, userID string) *http.Request {
	t.Helper()
	r := httptest.NewRequest(http.MethodGet, path, nil)
	if userID != "" {
		sess := &shared.Session{}
		sess.SetUser(userID)
		r = r.WithContext(shared.ContextWithSession(r.Context(), sess))
	}
	return r
}

func TestBoundaryRedirectsAnonymousFromProtectedPrefix(t *testing.T) {
	b := DefaultBoundary()
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("protected handler must not run for anonymous requests")
	})

	rec := httptest.NewRecorder()
	b.Middleware(next).ServeHTTP(rec, boundaryRequest(t, "/clients/new", ""))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/auth/login?redirectTo=%2Fclients%2Fnew", rec.Header().Get("Location"))
}

func TestBoundaryRedirectsAuthenticatedFromAuthOnlyPath(t *testing.T) {
	b := DefaultBoundary()
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("login page must not render for an authenticated principal")
	})

	rec := httptest.NewRecorder()
	b.Middleware(next).ServeHTTP(rec, boundaryRequest(t, "/auth/login", uuid.NewString()))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/dashboard", rec.Header().Get("Location"))
}

func TestBoundaryPassesThroughEverythingElse(t *testing.T) {
	b := DefaultBoundary()

	cases := []struct {
		name string
		path string
		user string
	}{
		{"anonymous public page", "/welcome", ""},
		{"anonymous sibling of a protected prefix", "/clientsmith", ""},
		{"anonymous login page", "/auth/login", ""},
		{"authenticated protected page", "/transactions", uuid.NewString()},
		{"authenticated logout", "/auth/logout", uuid.NewString()},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			called := false
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true })
			rec := httptest.NewRecorder()
			b.Middleware(next).ServeHTTP(rec, boundaryRequest(t, tc.path, tc.user))
			assert.True(t, called)
		})
	}
}

func TestBoundaryMatchesByPrefixNotExactPath(t *testing.T) {
	b := DefaultBoundary()
	rec := httptest.NewRecorder()
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("nested protected path must be guarded")
	})
	b.Middleware(next).ServeHTTP(rec, boundaryRequest(t, "/settings/roles", ""))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
}
