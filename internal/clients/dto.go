package clients

import (
	"time"

	"github.com/google/uuid"
)

// CreateClientRequest carries a validated create form.
type CreateClientRequest struct {
	FirstName string     `validate:"required,max=100"`
	LastName  string     `validate:"required,max=100"`
	Email     string     `validate:"required,email"`
	Phone     *string    `validate:"omitempty,max=50"`
	Birthdate *time.Time `validate:"omitempty"`
	Tags      []string   `validate:"omitempty,dive,max=50"`
	Notes     *string    `validate:"omitempty"`
	Address   *Address   `validate:"omitempty"`
	CreatedBy *uuid.UUID
}

// UpdateClientRequest carries a partial update; nil fields are untouched.
type UpdateClientRequest struct {
	FirstName *string    `validate:"omitempty,max=100"`
	LastName  *string    `validate:"omitempty,max=100"`
	Email     *string    `validate:"omitempty,email"`
	Phone     *string    `validate:"omitempty,max=50"`
	Birthdate *time.Time `validate:"omitempty"`
	Tags      []string   `validate:"omitempty,dive,max=50"`
	Notes     *string    `validate:"omitempty"`
	Address   *Address   `validate:"omitempty"`
}

// ListClientsRequest filters and paginates the listing.
type ListClientsRequest struct {
	Search string `validate:"omitempty,max=200"`
	Limit  int    `validate:"gte=0,lte=1000"`
	Offset int    `validate:"gte=0"`
}
