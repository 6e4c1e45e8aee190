package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ms-tableside/internal/lifecycle"
	"ms-tableside/internal/models"
	"ms-tableside/internal/sse"
	"ms-tableside/internal/utils"

	qrcode "github.com/skip2/go-qrcode"
)

const maxMutationRetries = 3

type DBLayer interface {
	CreateOrder(ctx context.Context, order *models.Order) error
	GetOrderByID(ctx context.Context, orderID string) (*models.Order, error)
	UpdateOrderGuarded(ctx context.Context, order *models.Order, expectedVersion int64) error
	CodeInUse(ctx context.Context, code string) (bool, error)
	ListByCustomer(ctx context.Context, customerID string) ([]models.Order, error)
	ListActive(ctx context.Context) ([]models.Order, error)
	ListActiveByCustomer(ctx context.Context, customerID string) ([]models.Order, error)
	ListAll(ctx context.Context) ([]models.Order, error)
}

type Catalog interface {
	GetMenuItem(ctx context.Context, menuItemID string) (*models.MenuItem, error)
}

type CodeAllocator interface {
	Allocate(ctx context.Context) (string, error)
}

// CodeReleaser frees a reserved pickup code when checkout fails after
// allocation. Optional; reservations also expire on their own.
type CodeReleaser interface {
	ReleaseCode(ctx context.Context, code string) error
}

type Broadcaster interface {
	Emit(key string, snapshot interface{})
}

type Events interface {
	PublishOrderCreated(order models.Order) error
	PublishOrderStatus(order models.Order) error
}

// Service owns customer pickup orders: creation from a cart snapshot,
// the status state machine, and per-item fulfillment updates.
type Service struct {
	DB        DBLayer
	Catalog   Catalog
	Allocator CodeAllocator
	Guard     CodeReleaser
	Broadcast Broadcaster
	Kafka     Events
	TaxRate   float64
}

func NewService(db DBLayer, catalog Catalog, allocator CodeAllocator, guard CodeReleaser, broadcast Broadcaster, kafka Events, taxRate float64) *Service {
	return &Service{DB: db, Catalog: catalog, Allocator: allocator, Guard: guard, Broadcast: broadcast, Kafka: kafka, TaxRate: taxRate}
}

// CreateFromCart snapshots each cart item's catalog price and
// customizations into immutable order items, computes totals, allocates
// a pickup code, and persists the order in a single insert. The cart
// itself is the caller's to clear after success.
func (s *Service) CreateFromCart(ctx context.Context, customerID, customerEmail string, cartItems []models.CartItem, customerName string) (*models.Order, error) {
	if customerID == "" {
		return nil, fmt.Errorf("customer id required: %w", lifecycle.ErrInvalidArgument)
	}
	if len(cartItems) == 0 {
		return nil, fmt.Errorf("empty cart: %w", lifecycle.ErrInvalidArgument)
	}

	now := time.Now()
	items := make([]models.LineItem, 0, len(cartItems))
	for _, cartItem := range cartItems {
		if cartItem.Quantity < 1 {
			return nil, fmt.Errorf("quantity %d for %s: %w", cartItem.Quantity, cartItem.MenuItemID, lifecycle.ErrInvalidArgument)
		}

		menuItem, err := s.Catalog.GetMenuItem(ctx, cartItem.MenuItemID)
		if err != nil {
			return nil, err
		}
		customizations, err := resolveCustomizations(menuItem, cartItem.Customizations)
		if err != nil {
			return nil, err
		}

		item := models.LineItem{
			ItemID:         utils.GenerateItemID(),
			MenuItemID:     menuItem.ID,
			Name:           menuItem.Name,
			UnitPrice:      menuItem.BasePrice,
			Quantity:       cartItem.Quantity,
			Customizations: customizations,
			Status:         models.ItemReceived,
			AddedAt:        now,
		}
		item.ItemTotal = item.LineTotal()
		items = append(items, item)
	}

	code, err := s.Allocator.Allocate(ctx)
	if err != nil {
		return nil, err
	}

	subtotal := models.SumLineTotals(items)
	tax := subtotal * s.TaxRate
	order := &models.Order{
		ID:            utils.GenerateOrderID(),
		PickupCode:    code,
		CustomerID:    customerID,
		CustomerEmail: customerEmail,
		CustomerName:  customerName,
		Status:        models.OrderPending,
		Items:         items,
		Subtotal:      subtotal,
		Tax:           tax,
		Total:         subtotal + tax,
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.DB.CreateOrder(ctx, order); err != nil {
		if s.Guard != nil {
			_ = s.Guard.ReleaseCode(ctx, code)
		}
		return nil, fmt.Errorf("create order: %w", err)
	}

	if s.Kafka != nil {
		_ = s.Kafka.PublishOrderCreated(*order)
	}
	s.broadcast(ctx, order)
	return order, nil
}

func (s *Service) Get(ctx context.Context, orderID string) (*models.Order, error) {
	return s.DB.GetOrderByID(ctx, orderID)
}

func (s *Service) ListForCustomer(ctx context.Context, customerID string) ([]models.Order, error) {
	return s.DB.ListByCustomer(ctx, customerID)
}

// ListActiveForCustomer returns a customer's non-terminal orders. The
// customer-orders subscription is defined over this set: its initial
// snapshot and every pushed snapshot must describe the same orders.
func (s *Service) ListActiveForCustomer(ctx context.Context, customerID string) ([]models.Order, error) {
	return s.DB.ListActiveByCustomer(ctx, customerID)
}

func (s *Service) ListActive(ctx context.Context) ([]models.Order, error) {
	return s.DB.ListActive(ctx)
}

func (s *Service) ListAll(ctx context.Context) ([]models.Order, error) {
	return s.DB.ListAll(ctx)
}

// SetStatus advances the order state machine: pending -> preparing ->
// ready -> completed, with cancelled reachable from any non-terminal
// state. Entering ready or completed stamps the matching timestamp.
func (s *Service) SetStatus(ctx context.Context, orderID string, status models.OrderStatus) (*models.Order, error) {
	if !validOrderStatus(status) {
		return nil, fmt.Errorf("order status %q: %w", status, lifecycle.ErrInvalidArgument)
	}

	var lastErr error
	for attempt := 0; attempt < maxMutationRetries; attempt++ {
		order, err := s.DB.GetOrderByID(ctx, orderID)
		if err != nil {
			return nil, err
		}
		if order.Status == status {
			return order, nil
		}
		if order.Status.Terminal() {
			return nil, fmt.Errorf("order %s is %s: %w", orderID, order.Status, lifecycle.ErrOrderTerminal)
		}
		if !legalTransition(order.Status, status) {
			return nil, fmt.Errorf("order status %s -> %s: %w", order.Status, status, lifecycle.ErrIllegalTransition)
		}

		expected := order.Version
		now := time.Now()
		order.Status = status
		switch status {
		case models.OrderReady:
			order.ReadyAt = &now
		case models.OrderCompleted:
			order.CompletedAt = &now
		}

		err = s.DB.UpdateOrderGuarded(ctx, order, expected)
		if errors.Is(err, lifecycle.ErrConcurrentUpdate) {
			lastErr = err
			continue
		}
		if err != nil {
			return nil, err
		}

		if s.Kafka != nil {
			_ = s.Kafka.PublishOrderStatus(*order)
		}
		s.broadcast(ctx, order)
		return order, nil
	}
	return nil, lastErr
}

// SetItemStatus advances one item along the normal fulfillment path.
func (s *Service) SetItemStatus(ctx context.Context, orderID, itemID string, status models.ItemStatus) (*models.Order, error) {
	return s.setItemStatus(ctx, orderID, itemID, status, false)
}

// SetItemStatusOverride sets any item status directly, for out-of-order
// kitchen corrections.
func (s *Service) SetItemStatusOverride(ctx context.Context, orderID, itemID string, status models.ItemStatus) (*models.Order, error) {
	return s.setItemStatus(ctx, orderID, itemID, status, true)
}

func (s *Service) setItemStatus(ctx context.Context, orderID, itemID string, status models.ItemStatus, override bool) (*models.Order, error) {
	if !validItemStatus(status) {
		return nil, fmt.Errorf("item status %q: %w", status, lifecycle.ErrInvalidArgument)
	}

	var lastErr error
	for attempt := 0; attempt < maxMutationRetries; attempt++ {
		order, err := s.DB.GetOrderByID(ctx, orderID)
		if err != nil {
			return nil, err
		}
		if order.Status.Terminal() {
			return nil, fmt.Errorf("order %s is %s: %w", orderID, order.Status, lifecycle.ErrOrderTerminal)
		}

		idx := -1
		for i := range order.Items {
			if order.Items[i].ItemID == itemID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, fmt.Errorf("item %s: %w", itemID, lifecycle.ErrItemNotFound)
		}

		from := order.Items[idx].EffectiveStatus()
		if !override && !forwardStep(from, status) {
			return nil, fmt.Errorf("item status %s -> %s: %w", from, status, lifecycle.ErrIllegalTransition)
		}

		expected := order.Version
		order.Items[idx].Status = status

		err = s.DB.UpdateOrderGuarded(ctx, order, expected)
		if errors.Is(err, lifecycle.ErrConcurrentUpdate) {
			lastErr = err
			continue
		}
		if err != nil {
			return nil, err
		}

		if s.Kafka != nil {
			_ = s.Kafka.PublishOrderStatus(*order)
		}
		s.broadcast(ctx, order)
		return order, nil
	}
	return nil, lastErr
}

// PickupQR renders the order's pickup code as a PNG for the confirmation
// screen.
func (s *Service) PickupQR(order *models.Order) ([]byte, error) {
	return qrcode.Encode(order.PickupCode, qrcode.Medium, 256)
}

// broadcast pushes full fresh snapshots for the order and the listings it
// appears in.
func (s *Service) broadcast(ctx context.Context, order *models.Order) {
	if s.Broadcast == nil {
		return
	}

	s.Broadcast.Emit(sse.KeyOrder(order.ID), order)

	if active, err := s.DB.ListActive(ctx); err == nil {
		s.Broadcast.Emit(sse.KeyActiveOrders, active)
	}
	if mine, err := s.DB.ListActiveByCustomer(ctx, order.CustomerID); err == nil {
		s.Broadcast.Emit(sse.KeyCustomerOrders(order.CustomerID), mine)
	}
}

func validOrderStatus(status models.OrderStatus) bool {
	switch status {
	case models.OrderPending, models.OrderPreparing, models.OrderReady, models.OrderCompleted, models.OrderCancelled:
		return true
	}
	return false
}

// legalTransition encodes the order state machine. Terminal states are
// rejected before this is consulted.
func legalTransition(from, to models.OrderStatus) bool {
	if to == models.OrderCancelled {
		return true
	}
	switch from {
	case models.OrderPending:
		return to == models.OrderPreparing
	case models.OrderPreparing:
		return to == models.OrderReady
	case models.OrderReady:
		return to == models.OrderCompleted
	default:
		return false
	}
}

func validItemStatus(status models.ItemStatus) bool {
	switch status {
	case models.ItemReceived, models.ItemCooking, models.ItemReady, models.ItemServed, models.ItemCanceled:
		return true
	}
	return false
}

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
