package roles

import (
	"time"

	"github.com/google/uuid"

	"github.com/atelier-crm/atelier-crm/internal/authz"
)

// Role is a named bundle of permissions. Each staff profile references
// exactly one role; the permissions matrix is stored as jsonb.
type Role struct {
	ID          uuid.UUID
	Name        string
	Description string
	Permissions authz.Matrix
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Seeded role names. The registry is free-form beyond these; they exist so
// fixtures and the registration form agree on spelling.
const (
	NameAdmin            = "Admin"
	NameEmployee         = "Employee"
	NameInventoryManager = "Inventory Manager"
	NameITTeam           = "IT Team"
	NameVendor           = "Vendor"
)
