package tickets

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ms-tableside/internal/lifecycle"
	"ms-tableside/internal/models"
	"ms-tableside/internal/sse"
	"ms-tableside/internal/utils"
)

// maxMutationRetries bounds the optimistic read-compute-write loop for
// item-list mutations.
const maxMutationRetries = 3

type DBLayer interface {
	CreateTicket(ctx context.Context, ticket *models.Ticket) error
	GetTicketByID(ctx context.Context, ticketID string) (*models.Ticket, error)
	UpdateTicketGuarded(ctx context.Context, ticket *models.Ticket, expectedVersion int64) error
	CloseTableTicket(ctx context.Context, ticket *models.Ticket, expectedVersion int64) error
	DeleteTicket(ctx context.Context, ticketID string) error
	ListOpenByTable(ctx context.Context, tableNumber int) ([]models.Ticket, error)
	ListByStaff(ctx context.Context, staffID string) ([]models.Ticket, error)
	ListOpenTogo(ctx context.Context) ([]models.Ticket, error)
	ListOpenSent(ctx context.Context) ([]models.Ticket, error)
}

// TableRegistry is the slice of the table registry the ticket engine
// needs: binding a new ticket to its table and refreshing table
// subscribers after a transactional close.
type TableRegistry interface {
	Assign(ctx context.Context, tableNumber int, ticketID, staffID string) error
	BroadcastState(ctx context.Context, tableNumber int)
}

// Catalog is the read-only menu view used to snapshot prices at add-time.
type Catalog interface {
	GetMenuItem(ctx context.Context, menuItemID string) (*models.MenuItem, error)
}

type Broadcaster interface {
	Emit(key string, snapshot interface{})
}

type Events interface {
	PublishTicketUpdated(ticket models.Ticket) error
}

// Service owns the ticket lifecycle: the line-item list, totals, the
// kitchen hand-off marker, and the open/closed transition.
type Service struct {
	DB        DBLayer
	Tables    TableRegistry
	Catalog   Catalog
	Broadcast Broadcaster
	Kafka     Events
	TaxRate   float64
}

func NewService(db DBLayer, tables TableRegistry, catalog Catalog, broadcast Broadcaster, kafka Events, taxRate float64) *Service {
	return &Service{DB: db, Tables: tables, Catalog: catalog, Broadcast: broadcast, Kafka: kafka, TaxRate: taxRate}
}

// Create opens a new empty ticket. Table tickets are bound to their table
// as part of creation; a missing table rolls the insert back.
func (s *Service) Create(ctx context.Context, kind models.TicketKind, tableNumber int, customerName, staffID, staffName string) (*models.Ticket, error) {
	switch kind {
	case models.TicketKindTable:
		if tableNumber < 1 {
			return nil, fmt.Errorf("table number %d: %w", tableNumber, lifecycle.ErrInvalidArgument)
		}
	case models.TicketKindTogo:
		if customerName == "" {
			return nil, fmt.Errorf("togo ticket needs a customer name: %w", lifecycle.ErrInvalidArgument)
		}
		tableNumber = 0
	default:
		return nil, fmt.Errorf("ticket kind %q: %w", kind, lifecycle.ErrInvalidArgument)
	}

	now := time.Now()
	ticket := &models.Ticket{
		ID:            utils.GenerateTicketID(),
		Kind:          kind,
		TableNumber:   tableNumber,
		CustomerName:  customerName,
		StaffID:       staffID,
		StaffName:     staffName,
		Status:        models.TicketOpen,
		KitchenStatus: models.KitchenPending,
		Items:         []models.LineItem{},
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.DB.CreateTicket(ctx, ticket); err != nil {
		return nil, fmt.Errorf("create ticket: %w", err)
	}

	if kind == models.TicketKindTable {
		if err := s.Tables.Assign(ctx, tableNumber, ticket.ID, staffID); err != nil {
			_ = s.DB.DeleteTicket(ctx, ticket.ID)
			return nil, err
		}
	}

	s.notify(ctx, ticket)
	return ticket, nil
}

func (s *Service) Get(ctx context.Context, ticketID string) (*models.Ticket, error) {
	return s.DB.GetTicketByID(ctx, ticketID)
}

func (s *Service) ListOpenForTable(ctx context.Context, tableNumber int) ([]models.Ticket, error) {
	return s.DB.ListOpenByTable(ctx, tableNumber)
}

func (s *Service) ListForStaff(ctx context.Context, staffID string) ([]models.Ticket, error) {
	return s.DB.ListByStaff(ctx, staffID)
}

func (s *Service) ListOpenTogo(ctx context.Context) ([]models.Ticket, error) {
	return s.DB.ListOpenTogo(ctx)
}

func (s *Service) ListSentToExpo(ctx context.Context) ([]models.Ticket, error) {
	return s.DB.ListOpenSent(ctx)
}

// AddItem snapshots the menu item's current price and the selected
// customizations into a new line item, then recomputes totals.
func (s *Service) AddItem(ctx context.Context, ticketID string, req models.CartItem, staffID string) (*models.Ticket, error) {
	if req.Quantity < 1 {
		return nil, fmt.Errorf("quantity %d: %w", req.Quantity, lifecycle.ErrInvalidArgument)
	}

	menuItem, err := s.Catalog.GetMenuItem(ctx, req.MenuItemID)
	if err != nil {
		return nil, err
	}

	customizations, err := resolveCustomizations(menuItem, req.Customizations)
	if err != nil {
		return nil, err
	}

	item := models.LineItem{
		ItemID:         utils.GenerateItemID(),
		MenuItemID:     menuItem.ID,
		Name:           menuItem.Name,
		UnitPrice:      menuItem.BasePrice,
		Quantity:       req.Quantity,
		Customizations: customizations,
		Status:         models.ItemReceived,
		AddedBy:        staffID,
		AddedAt:        time.Now(),
	}

	return s.mutate(ctx, ticketID, func(t *models.Ticket) error {
		t.Items = append(t.Items, item)
		return nil
	})
}

// RemoveItem removes a line item by its stable ID.
func (s *Service) RemoveItem(ctx context.Context, ticketID, itemID string) (*models.Ticket, error) {
	return s.mutate(ctx, ticketID, func(t *models.Ticket) error {
		idx, err := indexOf(t.Items, itemID)
		if err != nil {
			return err
		}
		t.Items = append(t.Items[:idx], t.Items[idx+1:]...)
		return nil
	})
}

// RemoveItemAt removes a line item by list position. Positions shift on
// every removal, so concurrent callers should prefer RemoveItem.
func (s *Service) RemoveItemAt(ctx context.Context, ticketID string, index int) (*models.Ticket, error) {
	return s.mutate(ctx, ticketID, func(t *models.Ticket) error {
		if index < 0 || index >= len(t.Items) {
			return fmt.Errorf("index %d of %d items: %w", index, len(t.Items), lifecycle.ErrIndexOutOfRange)
		}
		t.Items = append(t.Items[:index], t.Items[index+1:]...)
		return nil
	})
}

// SetItemQuantity replaces an item's quantity. A quantity of zero or less
// removes the item instead of storing zero.
func (s *Service) SetItemQuantity(ctx context.Context, ticketID, itemID string, quantity int) (*models.Ticket, error) {
	if quantity <= 0 {
		return s.RemoveItem(ctx, ticketID, itemID)
	}
	return s.mutate(ctx, ticketID, func(t *models.Ticket) error {
		idx, err := indexOf(t.Items, itemID)
		if err != nil {
			return err
		}
		t.Items[idx].Quantity = quantity
		return nil
	})
}

// SetItemStatus advances an item along the normal fulfillment path
// (received -> cooking -> ready -> served, canceled from any non-terminal
// state). Out-of-order jumps go through SetItemStatusOverride.
func (s *Service) SetItemStatus(ctx context.Context, ticketID, itemID string, status models.ItemStatus) (*models.Ticket, error) {
	if !validItemStatus(status) {
		return nil, fmt.Errorf("item status %q: %w", status, lifecycle.ErrInvalidArgument)
	}
	return s.mutate(ctx, ticketID, func(t *models.Ticket) error {
		idx, err := indexOf(t.Items, itemID)
		if err != nil {
			return err
		}
		from := t.Items[idx].EffectiveStatus()
		if !forwardStep(from, status) {
			return fmt.Errorf("item status %s -> %s: %w", from, status, lifecycle.ErrIllegalTransition)
		}
		t.Items[idx].Status = status
		return nil
	})
}

// SetItemStatusOverride sets any item status directly. This is the
// explicit staff/kitchen override for out-of-order corrections.
func (s *Service) SetItemStatusOverride(ctx context.Context, ticketID, itemID string, status models.ItemStatus) (*models.Ticket, error) {
	if !validItemStatus(status) {
		return nil, fmt.Errorf("item status %q: %w", status, lifecycle.ErrInvalidArgument)
	}
	return s.mutate(ctx, ticketID, func(t *models.Ticket) error {
		idx, err := indexOf(t.Items, itemID)
		if err != nil {
			return err
		}
		t.Items[idx].Status = status
		return nil
	})
}

// SendToKitchen marks the ticket sent. Re-sending after further edits is
// allowed and simply re-marks it.
func (s *Service) SendToKitchen(ctx context.Context, ticketID string) (*models.Ticket, error) {
	return s.mutate(ctx, ticketID, func(t *models.Ticket) error {
		t.KitchenStatus = models.KitchenSent
		return nil
	})
}

// Close transitions the ticket to closed, which is terminal. Table
// tickets clear their table in the same transaction.
func (s *Service) Close(ctx context.Context, ticketID string) (*models.Ticket, error) {
	var lastErr error
	for attempt := 0; attempt < maxMutationRetries; attempt++ {
		ticket, err := s.DB.GetTicketByID(ctx, ticketID)
		if err != nil {
			return nil, err
		}
		if !ticket.IsOpen() {
			return nil, fmt.Errorf("ticket %s: %w", ticketID, lifecycle.ErrTicketClosed)
		}

		expected := ticket.Version
		now := time.Now()
		ticket.Status = models.TicketClosed
		ticket.ClosedAt = &now

		if ticket.Kind == models.TicketKindTable {
			err = s.DB.CloseTableTicket(ctx, ticket, expected)
		} else {
			err = s.DB.UpdateTicketGuarded(ctx, ticket, expected)
		}
		if errors.Is(err, lifecycle.ErrConcurrentUpdate) {
			lastErr = err
			continue
		}
		if err != nil {
			return nil, err
		}

		if ticket.Kind == models.TicketKindTable {
			s.Tables.BroadcastState(ctx, ticket.TableNumber)
		}
		s.notify(ctx, ticket)
		return ticket, nil
	}
	return nil, lastErr
}

// Delete discards a ticket outright, e.g. one opened by mistake before
// any items were sent.
func (s *Service) Delete(ctx context.Context, ticketID string) error {
	ticket, err := s.DB.GetTicketByID(ctx, ticketID)
	if err != nil {
		return err
	}
	if err := s.DB.DeleteTicket(ctx, ticketID); err != nil {
		return err
	}
	if ticket.Kind == models.TicketKindTable {
		s.Tables.BroadcastState(ctx, ticket.TableNumber)
	}
	return nil
}

// mutate runs the optimistic read-compute-write cycle: fetch the current
// row, apply the transformation, recompute totals, and write conditioned
// on the version being unchanged since the read. Conflicts restart the
// whole cycle so no concurrent edit is ever silently dropped.
func (s *Service) mutate(ctx context.Context, ticketID string, fn func(*models.Ticket) error) (*models.Ticket, error) {
	var lastErr error
	for attempt := 0; attempt < maxMutationRetries; attempt++ {
		ticket, err := s.DB.GetTicketByID(ctx, ticketID)
		if err != nil {
			return nil, err
		}
		if !ticket.IsOpen() {
			return nil, fmt.Errorf("ticket %s: %w", ticketID, lifecycle.ErrTicketClosed)
		}

		expected := ticket.Version
		if err := fn(ticket); err != nil {
			return nil, err
		}
		s.recompute(ticket)

		err = s.DB.UpdateTicketGuarded(ctx, ticket, expected)
		if errors.Is(err, lifecycle.ErrConcurrentUpdate) {
			lastErr = err
			continue
		}
		if err != nil {
			return nil, err
		}

		s.notify(ctx, ticket)
		return ticket, nil
	}
	return nil, lastErr
}

// recompute derives subtotal, tax, and total from the current item list.
func (s *Service) recompute(t *models.Ticket) {
	for i := range t.Items {
		t.Items[i].ItemTotal = t.Items[i].LineTotal()
	}
	t.Subtotal = models.SumLineTotals(t.Items)
	t.Tax = t.Subtotal * s.TaxRate
	t.Total = t.Subtotal + t.Tax
}

// notify pushes full fresh snapshots to every subscription the ticket
// belongs to, and feeds the outward kafka stream.
func (s *Service) notify(ctx context.Context, ticket *models.Ticket) {
	if s.Broadcast != nil {
		s.Broadcast.Emit(sse.KeyTicket(ticket.ID), ticket)

		if ticket.Kind == models.TicketKindTable {
			if open, err := s.DB.ListOpenByTable(ctx, ticket.TableNumber); err == nil {
				s.Broadcast.Emit(sse.KeyTableTickets(ticket.TableNumber), open)
			}
			if sent, err := s.DB.ListOpenSent(ctx); err == nil {
				s.Broadcast.Emit(sse.KeyExpoTickets, sent)
			}
		} else {
			if togo, err := s.DB.ListOpenTogo(ctx); err == nil {
				s.Broadcast.Emit(sse.KeyTogoTickets, togo)
			}
		}
	}

	if s.Kafka != nil {
		_ = s.Kafka.PublishTicketUpdated(*ticket)
	}
}

func indexOf(items []models.LineItem, itemID string) (int, error) {
	for i := range items {
		if items[i].ItemID == itemID {
			return i, nil
		}
	}
	return 0, fmt.Errorf("item %s: %w", itemID, lifecycle.ErrItemNotFound)
}

// resolveCustomizations matches the requested customizations against the
// catalog's offerings by name and snapshots the catalog price, so a
// client cannot invent price deltas.
func resolveCustomizations(menuItem *models.MenuItem, requested []models.Customization) ([]models.Customization, error) {
	if len(requested) == 0 {
		return nil, nil
	}

	resolved := make([]models.Customization, 0, len(requested))
	for _, req := range requested {
		found := false
		for _, offered := range menuItem.Customizations {
			if offered.Name == req.Name {
				resolved = append(resolved, offered)
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("customization %q not offered for %s: %w", req.Name, menuItem.Name, lifecycle.ErrInvalidArgument)
		}
	}
	return resolved, nil
}

func validItemStatus(status models.ItemStatus) bool {
	switch status {
	case models.ItemReceived, models.ItemCooking, models.ItemReady, models.ItemServed, models.ItemCanceled:
		return true
	}
	return false
}

// forwardStep reports whether to is a legal next step from from on the
// normal fulfillment path. Setting the same status again is a no-op, not
// an error.
func forwardStep(from, to models.ItemStatus) bool {
	if from == to {
		return true
	}
	switch from {
	case models.ItemReceived:
		return to == models.ItemCooking || to == models.ItemCanceled
	case models.ItemCooking:
		return to == models.ItemReady || to == models.ItemCanceled
	case models.ItemReady:
		return to == models.ItemServed || to == models.ItemCanceled
	default:
		return false
	}
}
