package authz

import "github.com/google/uuid"

// RoleRef identifies a role either by its unique id or its unique name.
// Different call sites use different identification schemes: session-bound
// profiles carry a role id, while page allow-lists are written in role names.
// A ref resolves through a single directory lookup keyed by its tag; there is
// no fallback search across both fields.
type RoleRef struct {
	id     uuid.UUID
	name   string
	byName bool
}

// RoleByID builds a ref resolved against the role's primary key.
func RoleByID(id uuid.UUID) RoleRef {
	return RoleRef{id: id}
}

// RoleByName builds a ref resolved against the role's unique name.
func RoleByName(name string) RoleRef {
	return RoleRef{name: name, byName: true}
}

// ByName reports whether the ref carries a name rather than an id.
func (r RoleRef) ByName() bool { return r.byName }

// ID returns the role id; only meaningful when ByName is false.
func (r RoleRef) ID() uuid.UUID { return r.id }

// Name returns the role name; only meaningful when ByName is true.
func (r RoleRef) Name() string { return r.name }

// String renders the ref for log output.
func (r RoleRef) String() string {
	if r.byName {
		return "name:" + r.name
	}
	return "id:" + r.id.String()
}
