package auth

import (
	"time"

	"github.com/google/uuid"
)

// Identity is an authentication record: credentials only, no role. The CRM
// profile referencing it lives in the users module and shares the same id
// value space.
type Identity struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	Metadata     map[string]string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
