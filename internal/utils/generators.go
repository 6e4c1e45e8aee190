package utils

import (
	"github.com/google/uuid"
)

// GenerateTicketID creates a new ticket identifier.
func GenerateTicketID() string {
	return "tkt_" + uuid.NewString()
}

// GenerateOrderID creates a new pickup order identifier.
func GenerateOrderID() string {
	return "ord_" + uuid.NewString()
}

// GenerateItemID creates a stable line-item identifier. Items are
// addressed by this ID in mutation APIs, never by list position.
func GenerateItemID() string {
	return "itm_" + uuid.NewString()
}
