package models

import (
	"time"

	"github.com/uptrace/bun"
)

type TableStatus string

const (
	TableAvailable TableStatus = "available"
	TableOccupied  TableStatus = "occupied"
	TableReserved  TableStatus = "reserved"
)

// Table is a physical table. An occupied table references exactly one open
// ticket; clearing nulls both references together with the status flip.
type Table struct {
	bun.BaseModel `bun:"table:tables"`

	TableNumber     int         `bun:"table_number,pk" json:"tableNumber"`
	Status          TableStatus `bun:"status,notnull" json:"status"`
	CurrentTicketID *string     `bun:"current_ticket_id" json:"currentTicketId,omitempty"`
	AssignedStaffID *string     `bun:"assigned_staff_id" json:"assignedStaffId,omitempty"`
	LastUpdated     time.Time   `bun:"last_updated,notnull" json:"lastUpdated"`
}
