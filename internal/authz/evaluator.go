package authz

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
)

// ErrRoleNotFound indicates that the directory holds no role for the ref.
var ErrRoleNotFound = errors.New("authz: role not found")

// Role is the directory's view of a role: identity plus its permission
// matrix. Profiles reference roles by ID; page allow-lists by Name.
type Role struct {
	ID          uuid.UUID
	Name        string
	Description string
	Permissions Matrix
}

// RoleDirectory resolves a RoleRef to its role. Implementations perform a
// single lookup keyed by the ref's tag and return ErrRoleNotFound when no
// role matches.
type RoleDirectory interface {
	ResolveRole(ctx context.Context, ref RoleRef) (*Role, error)
}

// Evaluator renders allow/deny verdicts from the role directory. It holds no
// state of its own: every check is a fresh directory read, so role edits take
// effect on the next check.
type Evaluator struct {
	directory RoleDirectory
	logger    *slog.Logger
}

// NewEvaluator constructs an Evaluator.
func NewEvaluator(directory RoleDirectory, logger *slog.Logger) *Evaluator {
	return &Evaluator{directory: directory, logger: logger}
}

// Decision is the ephemeral outcome of one authorization check. It is never
// cached or persisted.
type Decision struct {
	Resource Resource
	Action   Action
	RoleID   uuid.UUID
	RoleName string
	Allowed  bool
}

// CanPerform reports whether the referenced role grants action on resource.
// Every failure mode resolves to false: an unknown ref, an unreachable
// directory, or a matrix without the resource all deny. A lookup failure is
// never interpreted as unrestricted access.
func (e *Evaluator) CanPerform(ctx context.Context, ref RoleRef, resource Resource, action Action) bool {
	return e.Decide(ctx, ref, resource, action).Allowed
}

// RoleName resolves the ref to its role name. Page allow-lists are written
// in names while profiles bind by id; this is the bridge between the two.
func (e *Evaluator) RoleName(ctx context.Context, ref RoleRef) (string, error) {
	role, err := e.directory.ResolveRole(ctx, ref)
	if err != nil {
		return "", err
	}
	return role.Name, nil
}

// Decide resolves the ref and evaluates the matrix, returning the full
// decision value for callers that need the verdict context.
func (e *Evaluator) Decide(ctx context.Context, ref RoleRef, resource Resource, action Action) Decision {
	decision := Decision{Resource: resource, Action: action}
	role, err := e.directory.ResolveRole(ctx, ref)
	if err != nil {
		if !errors.Is(err, ErrRoleNotFound) && e.logger != nil {
			e.logger.Error("authz resolve role",
				slog.String("role", ref.String()),
				slog.Any("error", err))
		}
		return decision
	}
	decision.RoleID = role.ID
	decision.RoleName = role.Name
	decision.Allowed = role.Permissions.Allows(resource, action)
	return decision
}
