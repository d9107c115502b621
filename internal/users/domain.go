package users

import (
	"time"

	"github.com/google/uuid"
)

// Profile is a CRM staff account. Its id shares the identity provider's
// value space: profile and identity are created as a pair at registration.
// Profiles are never hard-deleted; deactivation flips Active off.
type Profile struct {
	ID        uuid.UUID
	FirstName string
	LastName  string
	Email     string
	Phone     *string
	RoleID    uuid.UUID
	RoleName  string
	AvatarURL *string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// FullName joins the profile's names for display.
func (p Profile) FullName() string {
	if p.FirstName == "" {
		return p.LastName
	}
	if p.LastName == "" {
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}
