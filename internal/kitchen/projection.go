package kitchen

import (
	"context"

	"ms-tableside/internal/models"
)

// OrderSource and TicketSource are the read-only slices of the engines
// the kitchen/expo dashboards consume.
type OrderSource interface {
	ListActive(ctx context.Context) ([]models.Order, error)
}

type TicketSource interface {
	ListOpenSent(ctx context.Context) ([]models.Ticket, error)
	ListOpenTogo(ctx context.Context) ([]models.Ticket, error)
}

// Projection aggregates live kitchen/expo views. It holds no state of its
// own; every call re-reads the backing stores.
type Projection struct {
	Orders  OrderSource
	Tickets TicketSource
}

func NewProjection(orders OrderSource, tickets TicketSource) *Projection {
	return &Projection{Orders: orders, Tickets: tickets}
}

// ActiveOrders returns pending/preparing/ready pickup orders oldest
// first. Item statuses written before status tracking existed are
// normalized to received.
func (p *Projection) ActiveOrders(ctx context.Context) ([]models.Order, error) {
	orders, err := p.Orders.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		normalizeItems(orders[i].Items)
	}
	return orders, nil
}

// ExpoTickets returns open table tickets handed off to the kitchen.
func (p *Projection) ExpoTickets(ctx context.Context) ([]models.Ticket, error) {
	tickets, err := p.Tickets.ListOpenSent(ctx)
	if err != nil {
		return nil, err
	}
	for i := range tickets {
		normalizeItems(tickets[i].Items)
	}
	return tickets, nil
}

// TogoTickets returns open to-go tickets oldest first. The hand-off
// marker is not required: staff may keep a to-go ticket local until
// it is ready to send.
func (p *Projection) TogoTickets(ctx context.Context) ([]models.Ticket, error) {
	tickets, err := p.Tickets.ListOpenTogo(ctx)
	if err != nil {
		return nil, err
	}
	for i := range tickets {
		normalizeItems(tickets[i].Items)
	}
	return tickets, nil
}

func normalizeItems(items []models.LineItem) {
	for i := range items {
		items[i].Status = items[i].EffectiveStatus()
	}
}
