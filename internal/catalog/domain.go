package catalog

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Product is a catalog item, typically a jewelry piece or material lot.
type Product struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	Name        string     `json:"name" db:"name"`
	SKU         *string    `json:"sku,omitempty" db:"sku"`
	Description *string    `json:"description,omitempty" db:"description"`
	Price       float64    `json:"price" db:"price"`
	SalePrice   *float64   `json:"sale_price,omitempty" db:"sale_price"`
	Cost        *float64   `json:"cost,omitempty" db:"cost"`
	Quantity    int        `json:"quantity" db:"quantity"`
	Category    *string    `json:"category,omitempty" db:"category"`
	Tags        []string   `json:"tags,omitempty" db:"tags"`
	ImageURL    *string    `json:"image_url,omitempty" db:"image_url"`
	VendorID    *uuid.UUID `json:"vendor_id,omitempty" db:"vendor_id"`
	Active      bool       `json:"active" db:"active"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

// TagsCSV renders tags for form rebinding.
func (p Product) TagsCSV() string {
	return strings.Join(p.Tags, ", ")
}

// LowStock reports whether the on-hand quantity fell below the threshold.
func (p Product) LowStock(threshold int) bool {
	return p.Active && p.Quantity < threshold
}
