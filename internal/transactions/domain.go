package transactions

import (
	"time"

	"github.com/google/uuid"
)

// Type classifies a transaction.
type Type string

// Transaction types.
const (
	TypeSale        Type = "sale"
	TypeRefund      Type = "refund"
	TypeRepair      Type = "repair"
	TypeCustomOrder Type = "custom_order"
)

// Valid reports whether t is a known transaction type.
func (t Type) Valid() bool {
	switch t {
	case TypeSale, TypeRefund, TypeRepair, TypeCustomOrder:
		return true
	}
	return false
}

// Status tracks a transaction through its lifecycle.
type Status string

// Transaction statuses.
const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Item is a single product line, stored as jsonb on the transaction row.
type Item struct {
	ProductID   uuid.UUID `json:"product_id"`
	ProductName string    `json:"product_name"`
	Quantity    int       `json:"quantity"`
	UnitPrice   float64   `json:"unit_price"`
}

// Subtotal is the line total.
func (i Item) Subtotal() float64 {
	return float64(i.Quantity) * i.UnitPrice
}

// Transaction is a sale, refund, repair or custom order.
type Transaction struct {
	ID              uuid.UUID  `json:"id" db:"id"`
	Type            Type       `json:"type" db:"type"`
	Status          Status     `json:"status" db:"status"`
	ClientID        *uuid.UUID `json:"client_id,omitempty" db:"client_id"`
	ClientName      string     `json:"client_name" db:"client_name"`
	Items           []Item     `json:"items" db:"items"`
	Amount          float64    `json:"amount" db:"amount"`
	Tax             *float64   `json:"tax,omitempty" db:"tax"`
	PaymentMethod   *string    `json:"payment_method,omitempty" db:"payment_method"`
	Notes           *string    `json:"notes,omitempty" db:"notes"`
	CreatedBy       *uuid.UUID `json:"created_by,omitempty" db:"created_by"`
	TransactionDate time.Time  `json:"transaction_date" db:"transaction_date"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at" db:"updated_at"`
}

// Total recomputes the amount from the item lines plus tax. The stored
// amount column is always this value; it is never accepted from a form.
func (t Transaction) Total() float64 {
	total := 0.0
	for _, item := range t.Items {
		total += item.Subtotal()
	}
	if t.Tax != nil {
		total += *t.Tax
	}
	return total
}
