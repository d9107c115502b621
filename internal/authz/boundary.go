package authz

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/atelier-crm/atelier-crm/internal/shared"
)

// Boundary is the request-time guard at the router edge. It is coarser than
// the evaluator: only path shape and session presence matter here, and the
// permission matrix is never consulted. Fine-grained checks happen inside
// the route groups it fronts.
type Boundary struct {
	// ProtectedPrefixes require an authenticated session.
	ProtectedPrefixes []string
	// AuthOnlyPaths must not be visited by an authenticated principal.
	AuthOnlyPaths []string
	// LoginPath receives unauthenticated visitors of protected paths.
	LoginPath string
	// LandingPath receives authenticated visitors of auth-only paths.
	LandingPath string
}

// DefaultBoundary returns the boundary configured for the CRM's route map.
func DefaultBoundary() Boundary {
	return Boundary{
		ProtectedPrefixes: []string{
			"/dashboard",
			"/clients",
			"/products",
			"/vendors",
			"/transactions",
			"/settings",
			"/users",
		},
		AuthOnlyPaths: []string{
			"/auth/login",
			"/auth/register",
			"/auth/forgot-password",
			"/auth/reset-password",
		},
		LoginPath:   "/auth/login",
		LandingPath: "/dashboard",
	}
}

// Middleware enforces the boundary before any protected response is
// produced. Unauthenticated requests to protected prefixes redirect to the
// login page with the original path attached as redirectTo; authenticated
// requests to auth-only paths redirect to the landing page; everything else
// passes through unmodified.
func (b Boundary) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		authenticated := false
		if sess := shared.SessionFromContext(r.Context()); sess != nil && sess.User() != "" {
			authenticated = true
		}

		if !authenticated && b.matchesProtected(path) {
			target := b.LoginPath + "?redirectTo=" + url.QueryEscape(path)
			http.Redirect(w, r, target, http.StatusSeeOther)
			return
		}
		if authenticated && b.matchesAuthOnly(path) {
			http.Redirect(w, r, b.LandingPath, http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (b Boundary) matchesProtected(path string) bool {
	for _, prefix := range b.ProtectedPrefixes {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	return false
}

func (b Boundary) matchesAuthOnly(path string) bool {
	for _, p := range b.AuthOnlyPaths {
		if path == p {
			return true
		}
	}
	return false
}
