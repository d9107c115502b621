package authz

import "encoding/json"

// Resource identifies a guarded CRM resource.
type Resource string

// Action identifies an operation on a resource.
type Action string

// Resources recognised by the permission model.
const (
	ResourceUsers        Resource = "users"
	ResourceClients      Resource = "clients"
	ResourceProducts     Resource = "products"
	ResourceVendors      Resource = "vendors"
	ResourceTransactions Resource = "transactions"
)

// Actions recognised by the permission model.
const (
	ActionRead   Action = "read"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// AllResources lists every resource a role matrix may grant.
func AllResources() []Resource {
	return []Resource{ResourceUsers, ResourceClients, ResourceProducts, ResourceVendors, ResourceTransactions}
}

// AllActions lists the four supported actions.
func AllActions() []Action {
	return []Action{ActionRead, ActionCreate, ActionUpdate, ActionDelete}
}

// ActionSet holds the per-action grants for one resource.
type ActionSet struct {
	Read   bool `json:"read"`
	Create bool `json:"create"`
	Update bool `json:"update"`
	Delete bool `json:"delete"`
}

// Allows reports whether the set grants the action. Unknown actions are
// always denied.
func (s ActionSet) Allows(action Action) bool {
	switch action {
	case ActionRead:
		return s.Read
	case ActionCreate:
		return s.Create
	case ActionUpdate:
		return s.Update
	case ActionDelete:
		return s.Delete
	default:
		return false
	}
}

// Matrix maps resources to their granted actions. The zero value denies
// everything: a resource absent from the map is denied for every action, so a
// partially migrated or malformed role record can only under-grant.
type Matrix map[Resource]ActionSet

// Allows reports whether the matrix grants action on resource.
func (m Matrix) Allows(resource Resource, action Action) bool {
	set, ok := m[resource]
	if !ok {
		return false
	}
	return set.Allows(action)
}

// UnmarshalJSON decodes the jsonb permissions column. Unknown resource keys
// are dropped rather than rejected; missing action keys decode to false.
func (m *Matrix) UnmarshalJSON(data []byte) error {
	var raw map[string]ActionSet
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	known := make(map[Resource]struct{}, 5)
	for _, r := range AllResources() {
		known[r] = struct{}{}
	}
	out := make(Matrix, len(raw))
	for key, set := range raw {
		if _, ok := known[Resource(key)]; !ok {
			continue
		}
		out[Resource(key)] = set
	}
	*m = out
	return nil
}

// FullAccess returns a matrix granting every action on every resource.
// Used when seeding the Admin role.
func FullAccess() Matrix {
	m := make(Matrix, 5)
	for _, r := range AllResources() {
		m[r] = ActionSet{Read: true, Create: true, Update: true, Delete: true}
	}
	return m
}
