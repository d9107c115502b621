package authz

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/atelier-crm/atelier-crm/internal/shared"
)

// ErrProfileNotFound indicates that no profile row exists for a principal.
var ErrProfileNotFound = errors.New("authz: profile not found")

// Binding is a principal's resolved role membership.
type Binding struct {
	RoleID uuid.UUID
	Active bool
}

// ProfileResolver maps an authenticated principal to its role binding.
type ProfileResolver interface {
	RoleBinding(ctx context.Context, principalID uuid.UUID) (Binding, error)
}

// Middleware wires the operation-level guard for HTTP handlers. The check
// composes the session principal, the profile binding and the evaluator, and
// runs strictly before the wrapped handler so a denied mutation is never
// issued.
type Middleware struct {
	Evaluator *Evaluator
	Profiles  ProfileResolver
	Logger    *slog.Logger

	// DenialRecorder, when set, counts denied operations.
	DenialRecorder interface {
		RecordDenial(resource, action string)
	}
}

// Require permits the request only when the current principal's role grants
// action on resource. A missing session redirects to login with the original
// path as returnUrl; every other failure mode (profile missing, deactivated
// profile, directory error, matrix denial) is a denial.
func (m Middleware) Require(resource Resource, action Action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := m.currentPrincipal(r)
			if !ok {
				m.redirectToLogin(w, r)
				return
			}
			binding, err := m.Profiles.RoleBinding(r.Context(), principal)
			if err != nil {
				if !errors.Is(err, ErrProfileNotFound) && m.Logger != nil {
					m.Logger.Error("authz resolve binding",
						slog.String("principal", principal.String()),
						slog.Any("error", err))
				}
				m.deny(w, r, resource, action)
				return
			}
			if !binding.Active {
				m.deny(w, r, resource, action)
				return
			}
			if !m.Evaluator.CanPerform(r.Context(), RoleByID(binding.RoleID), resource, action) {
				m.deny(w, r, resource, action)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// PageAccess gates a whole route group on a role-name allow-list, running
// the page guard lifecycle per request. Identity resolution feeds Complete
// and anything short of Authorized follows the guard's redirect, so the
// guarded screens never render for a viewer outside the list.
func (m Middleware) PageAccess(allowedRoles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			guard := NewPageGuard(allowedRoles)
			gen := guard.Begin()
			res := guard.Complete(gen, m.pageIdentity(r), r.URL.Path)
			if res.Phase != PhaseAuthorized {
				http.Redirect(w, r, res.RedirectTo, http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// pageIdentity resolves the viewer for the page guard. No session resolves
// to nil (login redirect); a principal whose binding is missing, inactive or
// unreadable resolves to an identity with no role name, which fails every
// allow-list.
func (m Middleware) pageIdentity(r *http.Request) *Identity {
	principal, ok := m.currentPrincipal(r)
	if !ok {
		return nil
	}
	identity := &Identity{Principal: principal}
	binding, err := m.Profiles.RoleBinding(r.Context(), principal)
	if err != nil {
		if !errors.Is(err, ErrProfileNotFound) && m.Logger != nil {
			m.Logger.Error("authz resolve binding",
				slog.String("principal", principal.String()),
				slog.Any("error", err))
		}
		return identity
	}
	if !binding.Active {
		return identity
	}
	name, err := m.Evaluator.RoleName(r.Context(), RoleByID(binding.RoleID))
	if err != nil {
		if !errors.Is(err, ErrRoleNotFound) && m.Logger != nil {
			m.Logger.Error("authz resolve role name",
				slog.String("principal", principal.String()),
				slog.Any("error", err))
		}
		return identity
	}
	identity.RoleName = name
	return identity
}

func (m Middleware) currentPrincipal(r *http.Request) (uuid.UUID, bool) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		return uuid.Nil, false
	}
	raw := strings.TrimSpace(sess.User())
	if raw == "" {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		if m.Logger != nil {
			m.Logger.Error("authz parse principal id", slog.String("value", raw))
		}
		return uuid.Nil, false
	}
	return id, true
}

func (m Middleware) redirectToLogin(w http.ResponseWriter, r *http.Request) {
	if wantsHTML(r) {
		http.Redirect(w, r, "/auth/login?redirectTo="+url.QueryEscape(r.URL.Path), http.StatusSeeOther)
		return
	}
	http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
}

func (m Middleware) deny(w http.ResponseWriter, r *http.Request, resource Resource, action Action) {
	if m.DenialRecorder != nil {
		m.DenialRecorder.RecordDenial(string(resource), string(action))
	}
	if wantsHTML(r) {
		http.Redirect(w, r, "/unauthorized", http.StatusSeeOther)
		return
	}
	http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
}

func wantsHTML(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}
