package vendors

import (
	"time"

	"github.com/google/uuid"
)

// Vendor is a jewelry supplier or consignment partner.
type Vendor struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	ContactName  *string   `json:"contact_name,omitempty" db:"contact_name"`
	Email        *string   `json:"email,omitempty" db:"email"`
	Phone        *string   `json:"phone,omitempty" db:"phone"`
	Website      *string   `json:"website,omitempty" db:"website"`
	PaymentTerms *string   `json:"payment_terms,omitempty" db:"payment_terms"`
	Notes        *string   `json:"notes,omitempty" db:"notes"`
	Active       bool      `json:"active" db:"active"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}
