package models

import (
	"time"

	"github.com/uptrace/bun"
)

type TicketKind string

const (
	TicketKindTable TicketKind = "table"
	TicketKindTogo  TicketKind = "togo"
)

type TicketStatus string

const (
	TicketOpen   TicketStatus = "open"
	TicketClosed TicketStatus = "closed"
)

// KitchenStatus marks the front-of-house to kitchen hand-off. Re-sending
// after further edits simply re-marks sent.
type KitchenStatus string

const (
	KitchenPending KitchenStatus = "pending"
	KitchenSent    KitchenStatus = "sent"
)

// Ticket is one open tab: table-typed (bound to a table number) or
// togo-typed (bound to a customer name). Totals are derived from the item
// list and recomputed on every structural change. Version guards the
// whole-row optimistic updates.
type Ticket struct {
	bun.BaseModel `bun:"table:tickets"`

	ID            string        `bun:"id,pk" json:"id"`
	Kind          TicketKind    `bun:"kind,notnull" json:"kind"`
	TableNumber   int           `bun:"table_number,nullzero" json:"tableNumber,omitempty"`
	CustomerName  string        `bun:"customer_name,nullzero" json:"customerName,omitempty"`
	StaffID       string        `bun:"staff_id,notnull" json:"staffId"`
	StaffName     string        `bun:"staff_name,nullzero" json:"staffName,omitempty"`
	Status        TicketStatus  `bun:"status,notnull" json:"status"`
	KitchenStatus KitchenStatus `bun:"kitchen_status,notnull" json:"kitchenStatus"`
	Items         []LineItem    `bun:"items,type:jsonb" json:"items"`
	Subtotal      float64       `bun:"subtotal,notnull" json:"subtotal"`
	Tax           float64       `bun:"tax,notnull" json:"tax"`
	Total         float64       `bun:"total,notnull" json:"total"`
	Version       int64         `bun:"version,notnull" json:"version"`
	CreatedAt     time.Time     `bun:"created_at,notnull" json:"createdAt"`
	UpdatedAt     time.Time     `bun:"updated_at,notnull" json:"updatedAt"`
	ClosedAt      *time.Time    `bun:"closed_at" json:"closedAt,omitempty"`
}

func (t *Ticket) IsOpen() bool {
	return t.Status == TicketOpen
}
