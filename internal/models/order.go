package models

import (
	"time"

	"github.com/uptrace/bun"
)

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderPreparing OrderStatus = "preparing"
	OrderReady     OrderStatus = "ready"
	OrderCompleted OrderStatus = "completed"
	OrderCancelled OrderStatus = "cancelled"
)

// Terminal reports whether no further status transitions are allowed.
func (s OrderStatus) Terminal() bool {
	return s == OrderCompleted || s == OrderCancelled
}

// Order is a customer pickup order created from a cart snapshot at
// checkout. It has no table concept; the pickup code identifies it at the
// counter.
type Order struct {
	bun.BaseModel `bun:"table:orders"`

	ID            string      `bun:"id,pk" json:"id"`
	PickupCode    string      `bun:"pickup_code,notnull" json:"pickupCode"`
	CustomerID    string      `bun:"customer_id,notnull" json:"customerId"`
	CustomerEmail string      `bun:"customer_email,nullzero" json:"customerEmail,omitempty"`
	CustomerName  string      `bun:"customer_name,nullzero" json:"customerName,omitempty"`
	Status        OrderStatus `bun:"status,notnull" json:"status"`
	Items         []LineItem  `bun:"items,type:jsonb" json:"items"`
	Subtotal      float64     `bun:"subtotal,notnull" json:"subtotal"`
	Tax           float64     `bun:"tax,notnull" json:"tax"`
	Total         float64     `bun:"total,notnull" json:"total"`
	Version       int64       `bun:"version,notnull" json:"version"`
	CreatedAt     time.Time   `bun:"created_at,notnull" json:"createdAt"`
	UpdatedAt     time.Time   `bun:"updated_at,notnull" json:"updatedAt"`
	ReadyAt       *time.Time  `bun:"ready_at" json:"readyAt,omitempty"`
	CompletedAt   *time.Time  `bun:"completed_at" json:"completedAt,omitempty"`
}
