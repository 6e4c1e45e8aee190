package sse

import "fmt"

// Subscription keys. Every dashboard subscription maps to one key; the
// engines emit a full replacement snapshot under the key after each
// acknowledged write.
const (
	KeyAllTables    = "tables"
	KeyTogoTickets  = "tickets:togo"
	KeyExpoTickets  = "tickets:expo"
	KeyActiveOrders = "orders:active"
)

func KeyTable(tableNumber int) string {
	return fmt.Sprintf("tables:%d", tableNumber)
}

func KeyTicket(ticketID string) string {
	return "tickets:" + ticketID
}

func KeyTableTickets(tableNumber int) string {
	return fmt.Sprintf("tickets:table:%d", tableNumber)
}

func KeyOrder(orderID string) string {
	return "orders:" + orderID
}

func KeyCustomerOrders(customerID string) string {
	return "orders:customer:" + customerID
}
