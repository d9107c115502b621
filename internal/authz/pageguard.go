package authz

import (
	"net/url"
	"sync"

	"github.com/google/uuid"
)

// GuardPhase is the lifecycle state of a page-level access check.
type GuardPhase int

const (
	// PhasePending means identity resolution has not completed yet.
	PhasePending GuardPhase = iota
	// PhaseChecking means the identity is resolved and membership is being
	// evaluated.
	PhaseChecking
	// PhaseAuthorized is terminal: the protected content may render.
	PhaseAuthorized
	// PhaseDenied is terminal: the viewer must be redirected.
	PhaseDenied
)

// Identity is the guard's snapshot of the current viewer. A nil *Identity
// means identity resolution completed with no session.
type Identity struct {
	Principal uuid.UUID
	RoleName  string
}

// GuardResult pairs the terminal phase with the redirect target computed for
// a denial. The guard only decides; navigation is the caller's effect.
type GuardResult struct {
	Phase      GuardPhase
	RedirectTo string
}

// PageGuard gates a protected page on membership of the viewer's role name
// in an allow-list. It deliberately renders no verdict while a check is in
// flight, and discards results from checks that were superseded by an
// identity change, so a slow earlier check can never authorize a different
// viewer.
type PageGuard struct {
	mu        sync.Mutex
	allowed   map[string]struct{}
	loginPath string
	fallback  string

	phase      GuardPhase
	generation uint64
	redirectTo string
}

// PageGuardOption customises guard construction.
type PageGuardOption func(*PageGuard)

// WithLoginPath overrides the login redirect target.
func WithLoginPath(path string) PageGuardOption {
	return func(g *PageGuard) { g.loginPath = path }
}

// WithFallbackPath overrides the denied redirect target.
func WithFallbackPath(path string) PageGuardOption {
	return func(g *PageGuard) { g.fallback = path }
}

// NewPageGuard builds a guard for the given role-name allow-list.
func NewPageGuard(allowedRoles []string, opts ...PageGuardOption) *PageGuard {
	g := &PageGuard{
		allowed:   make(map[string]struct{}, len(allowedRoles)),
		loginPath: "/auth/login",
		fallback:  "/unauthorized",
		phase:     PhasePending,
	}
	for _, role := range allowedRoles {
		g.allowed[role] = struct{}{}
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Begin moves the guard into Checking and returns the generation token the
// eventual Complete call must present. Calling Begin again (identity change,
// sign-out, allow-list edit) invalidates any check still in flight.
func (g *PageGuard) Begin() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.generation++
	g.phase = PhaseChecking
	g.redirectTo = ""
	return g.generation
}

// Complete applies the outcome of identity resolution for the check started
// by Begin. Results carrying a stale generation are discarded. requestedPath
// is attached as returnUrl on the login redirect so the viewer lands back
// where they started after authenticating.
func (g *PageGuard) Complete(generation uint64, identity *Identity, requestedPath string) GuardResult {
	g.mu.Lock()
	defer g.mu.Unlock()
	if generation != g.generation {
		// A newer check superseded this one; keep the current state.
		return GuardResult{Phase: g.phase, RedirectTo: g.redirectTo}
	}
	if identity == nil {
		g.phase = PhaseDenied
		g.redirectTo = g.loginPath + "?returnUrl=" + url.QueryEscape(requestedPath)
		return GuardResult{Phase: g.phase, RedirectTo: g.redirectTo}
	}
	if _, ok := g.allowed[identity.RoleName]; ok {
		g.phase = PhaseAuthorized
		g.redirectTo = ""
	} else {
		g.phase = PhaseDenied
		g.redirectTo = g.fallback
	}
	return GuardResult{Phase: g.phase, RedirectTo: g.redirectTo}
}

// SetAllowedRoles replaces the allow-list and restarts the check, returning
// the new generation token.
func (g *PageGuard) SetAllowedRoles(roles []string) uint64 {
	g.mu.Lock()
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}
	g.allowed = allowed
	g.mu.Unlock()
	return g.Begin()
}

// State returns the current phase and redirect target.
func (g *PageGuard) State() GuardResult {
	g.mu.Lock()
	defer g.mu.Unlock()
	return GuardResult{Phase: g.phase, RedirectTo: g.redirectTo}
}

// ShouldRender is the render gate: protected content renders only once the
// guard is Authorized. Pending and Checking render nothing so protected UI
// never flashes before the verdict.
func (g *PageGuard) ShouldRender() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.phase == PhaseAuthorized
}
