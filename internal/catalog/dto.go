package catalog

import "github.com/google/uuid"

// CreateProductRequest carries a validated create form.
type CreateProductRequest struct {
	Name        string     `validate:"required,max=200"`
	SKU         *string    `validate:"omitempty,max=100"`
	Description *string    `validate:"omitempty"`
	Price       float64    `validate:"gte=0"`
	SalePrice   *float64   `validate:"omitempty,gte=0"`
	Cost        *float64   `validate:"omitempty,gte=0"`
	Quantity    int        `validate:"gte=0"`
	Category    *string    `validate:"omitempty,max=100"`
	Tags        []string   `validate:"omitempty,dive,max=50"`
	ImageURL    *string    `validate:"omitempty,url"`
	VendorID    *uuid.UUID
}

// UpdateProductRequest carries a partial update; nil fields are untouched.
type UpdateProductRequest struct {
	Name        *string    `validate:"omitempty,max=200"`
	SKU         *string    `validate:"omitempty,max=100"`
	Description *string    `validate:"omitempty"`
	Price       *float64   `validate:"omitempty,gte=0"`
	SalePrice   *float64   `validate:"omitempty,gte=0"`
	Cost        *float64   `validate:"omitempty,gte=0"`
	Quantity    *int       `validate:"omitempty,gte=0"`
	Category    *string    `validate:"omitempty,max=100"`
	Tags        []string   `validate:"omitempty,dive,max=50"`
	ImageURL    *string    `validate:"omitempty,url"`
	VendorID    *uuid.UUID
	Active      *bool
}

// ListProductsRequest filters and paginates the listing.
type ListProductsRequest struct {
	Search   string `validate:"omitempty,max=200"`
	Category string `validate:"omitempty,max=100"`
	Limit    int    `validate:"gte=0,lte=1000"`
	Offset   int    `validate:"gte=0"`
}
