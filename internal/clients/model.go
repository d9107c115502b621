package clients

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Client is a jewelry customer record.
type Client struct {
	ID          uuid.UUID         `json:"id" db:"id"`
	FirstName   string            `json:"first_name" db:"first_name"`
	LastName    string            `json:"last_name" db:"last_name"`
	Email       string            `json:"email" db:"email"`
	Phone       *string           `json:"phone,omitempty" db:"phone"`
	Birthdate   *time.Time        `json:"birthdate,omitempty" db:"birthdate"`
	Preferences map[string]string `json:"preferences,omitempty" db:"preferences"`
	Tags        []string          `json:"tags,omitempty" db:"tags"`
	Notes       *string           `json:"notes,omitempty" db:"notes"`
	Address     *Address          `json:"address,omitempty" db:"address"`
	CreatedBy   *uuid.UUID        `json:"created_by,omitempty" db:"created_by"`
	CreatedAt   time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at" db:"updated_at"`
}

// Address is stored as jsonb alongside the client row.
type Address struct {
	Street     string `json:"street"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// TagsCSV renders tags for form rebinding.
func (c Client) TagsCSV() string {
	return strings.Join(c.Tags, ", ")
}
