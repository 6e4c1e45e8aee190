package orders_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"ms-tableside/internal/lifecycle"
	"ms-tableside/internal/models"
	"ms-tableside/internal/orders"
	orders_db "ms-tableside/internal/orders/db"
	"ms-tableside/internal/pickup"
	"ms-tableside/internal/sse"
)

type stubCatalog struct {
	items map[string]*models.MenuItem
}

func (s *stubCatalog) GetMenuItem(_ context.Context, menuItemID string) (*models.MenuItem, error) {
	item, ok := s.items[menuItemID]
	if !ok {
		return nil, lifecycle.ErrMenuItemNotFound
	}
	return item, nil
}

type recordingBroadcaster struct {
	last map[string]interface{}
}

func (r *recordingBroadcaster) Emit(key string, snapshot interface{}) {
	if r.last == nil {
		r.last = make(map[string]interface{})
	}
	r.last[key] = snapshot
}

func setupService(t *testing.T) (*orders.Service, *orders_db.DB) {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, "file::memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)
	t.Cleanup(func() { sqldb.Close() })

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	require.NoError(t, bunDB.ResetModel(context.Background(), (*models.Order)(nil)))

	db := &orders_db.DB{Bun: bunDB}
	catalog := &stubCatalog{items: map[string]*models.MenuItem{
		"menu_burger": {
			ID:        "menu_burger",
			Name:      "Classic Burger",
			BasePrice: 90.0,
			Customizations: []models.Customization{
				{Name: "Add Bacon", Price: 10.0},
			},
		},
		"menu_fries": {
			ID:        "menu_fries",
			Name:      "House Fries",
			BasePrice: 5.0,
		},
	}}

	allocator := pickup.NewAllocator(db, nil)
	return orders.NewService(db, catalog, allocator, nil, nil, nil, 0.08), db
}

func TestCreateFromCartComputesTotals(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	order, err := svc.CreateFromCart(ctx, "cust_1", "dana@example.com", []models.CartItem{
		{
			MenuItemID:     "menu_burger",
			Quantity:       3,
			Customizations: []models.Customization{{Name: "Add Bacon"}},
		},
	}, "Dana")
	require.NoError(t, err)

	assert.Equal(t, models.OrderPending, order.Status)
	assert.Len(t, order.PickupCode, pickup.CodeLength)
	assert.InDelta(t, 300.0, order.Subtotal, 1e-9)
	assert.InDelta(t, 24.0, order.Tax, 1e-9)
	assert.InDelta(t, 324.0, order.Total, 1e-9)

	require.Len(t, order.Items, 1)
	assert.InDelta(t, 300.0, order.Items[0].ItemTotal, 1e-9)
	assert.Equal(t, models.ItemReceived, order.Items[0].Status)
}

func TestCreateFromCartValidation(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	_, err := svc.CreateFromCart(ctx, "", "", []models.CartItem{{MenuItemID: "menu_fries", Quantity: 1}}, "")
	assert.ErrorIs(t, err, lifecycle.ErrInvalidArgument)

	_, err = svc.CreateFromCart(ctx, "cust_1", "", nil, "Dana")
	assert.ErrorIs(t, err, lifecycle.ErrInvalidArgument)

	_, err = svc.CreateFromCart(ctx, "cust_1", "", []models.CartItem{{MenuItemID: "menu_fries", Quantity: 0}}, "Dana")
	assert.ErrorIs(t, err, lifecycle.ErrInvalidArgument)

	_, err = svc.CreateFromCart(ctx, "cust_1", "", []models.CartItem{{MenuItemID: "menu_unknown", Quantity: 1}}, "Dana")
	assert.ErrorIs(t, err, lifecycle.ErrMenuItemNotFound)
}

func TestStatusStateMachine(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	order, err := svc.CreateFromCart(ctx, "cust_1", "", []models.CartItem{{MenuItemID: "menu_fries", Quantity: 1}}, "Dana")
	require.NoError(t, err)

	// Skipping preparing is illegal.
	_, err = svc.SetStatus(ctx, order.ID, models.OrderReady)
	assert.ErrorIs(t, err, lifecycle.ErrIllegalTransition)

	order, err = svc.SetStatus(ctx, order.ID, models.OrderPreparing)
	require.NoError(t, err)
	assert.Nil(t, order.ReadyAt)

	order, err = svc.SetStatus(ctx, order.ID, models.OrderReady)
	require.NoError(t, err)
	assert.NotNil(t, order.ReadyAt)

	order, err = svc.SetStatus(ctx, order.ID, models.OrderCompleted)
	require.NoError(t, err)
	assert.NotNil(t, order.CompletedAt)

	// Completed is terminal.
	_, err = svc.SetStatus(ctx, order.ID, models.OrderPreparing)
	assert.ErrorIs(t, err, lifecycle.ErrOrderTerminal)
}

func TestSetStatusSameStatusIsNoOp(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	order, err := svc.CreateFromCart(ctx, "cust_1", "", []models.CartItem{{MenuItemID: "menu_fries", Quantity: 1}}, "Dana")
	require.NoError(t, err)

	same, err := svc.SetStatus(ctx, order.ID, models.OrderPending)
	require.NoError(t, err)
	assert.Equal(t, order.Version, same.Version)
}

func TestCancelFromAnyActiveState(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	order, err := svc.CreateFromCart(ctx, "cust_1", "", []models.CartItem{{MenuItemID: "menu_fries", Quantity: 1}}, "Dana")
	require.NoError(t, err)

	_, err = svc.SetStatus(ctx, order.ID, models.OrderPreparing)
	require.NoError(t, err)

	cancelled, err := svc.SetStatus(ctx, order.ID, models.OrderCancelled)
	require.NoError(t, err)
	assert.Equal(t, models.OrderCancelled, cancelled.Status)

	_, err = svc.SetStatus(ctx, order.ID, models.OrderPending)
	assert.ErrorIs(t, err, lifecycle.ErrOrderTerminal)
}

func TestItemStatusOnTerminalOrder(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	order, err := svc.CreateFromCart(ctx, "cust_1", "", []models.CartItem{{MenuItemID: "menu_fries", Quantity: 1}}, "Dana")
	require.NoError(t, err)
	itemID := order.Items[0].ItemID

	order, err = svc.SetItemStatus(ctx, order.ID, itemID, models.ItemCooking)
	require.NoError(t, err)
	assert.Equal(t, models.ItemCooking, order.Items[0].Status)

	_, err = svc.SetStatus(ctx, order.ID, models.OrderCancelled)
	require.NoError(t, err)

	_, err = svc.SetItemStatus(ctx, order.ID, itemID, models.ItemReady)
	assert.ErrorIs(t, err, lifecycle.ErrOrderTerminal)
}

func TestItemStatusOverrideJumps(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	order, err := svc.CreateFromCart(ctx, "cust_1", "", []models.CartItem{{MenuItemID: "menu_fries", Quantity: 1}}, "Dana")
	require.NoError(t, err)
	itemID := order.Items[0].ItemID

	_, err = svc.SetItemStatus(ctx, order.ID, itemID, models.ItemServed)
	assert.ErrorIs(t, err, lifecycle.ErrIllegalTransition)

	order, err = svc.SetItemStatusOverride(ctx, order.ID, itemID, models.ItemServed)
	require.NoError(t, err)
	assert.Equal(t, models.ItemServed, order.Items[0].Status)
}

func TestPickupCodeReleasedOnTerminalStatus(t *testing.T) {
	svc, db := setupService(t)
	ctx := context.Background()

	order, err := svc.CreateFromCart(ctx, "cust_1", "", []models.CartItem{{MenuItemID: "menu_fries", Quantity: 1}}, "Dana")
	require.NoError(t, err)

	inUse, err := db.CodeInUse(ctx, order.PickupCode)
	require.NoError(t, err)
	assert.True(t, inUse)

	_, err = svc.SetStatus(ctx, order.ID, models.OrderCancelled)
	require.NoError(t, err)

	// A cancelled order no longer holds its pickup code.
	inUse, err = db.CodeInUse(ctx, order.PickupCode)
	require.NoError(t, err)
	assert.False(t, inUse)
}

func TestCustomerSubscriptionSnapshotsAgree(t *testing.T) {
	svc, _ := setupService(t)
	rec := &recordingBroadcaster{}
	svc.Broadcast = rec
	ctx := context.Background()

	cancelled, err := svc.CreateFromCart(ctx, "cust_1", "", []models.CartItem{{MenuItemID: "menu_fries", Quantity: 1}}, "Dana")
	require.NoError(t, err)
	active, err := svc.CreateFromCart(ctx, "cust_1", "", []models.CartItem{{MenuItemID: "menu_fries", Quantity: 2}}, "Dana")
	require.NoError(t, err)

	_, err = svc.SetStatus(ctx, cancelled.ID, models.OrderCancelled)
	require.NoError(t, err)

	// The set a new subscriber reads first must equal the set the engine
	// pushed after the last write under the same key.
	initial, err := svc.ListActiveForCustomer(ctx, "cust_1")
	require.NoError(t, err)

	pushed, ok := rec.last[sse.KeyCustomerOrders("cust_1")].([]models.Order)
	require.True(t, ok, "no snapshot pushed for the customer-orders key")

	require.Len(t, initial, 1)
	require.Len(t, pushed, 1)
	assert.Equal(t, active.ID, initial[0].ID)
	assert.Equal(t, initial[0].ID, pushed[0].ID)
}

func TestListActiveExcludesTerminalOrders(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	first, err := svc.CreateFromCart(ctx, "cust_1", "", []models.CartItem{{MenuItemID: "menu_fries", Quantity: 1}}, "Dana")
	require.NoError(t, err)
	second, err := svc.CreateFromCart(ctx, "cust_2", "", []models.CartItem{{MenuItemID: "menu_fries", Quantity: 2}}, "Riley")
	require.NoError(t, err)

	_, err = svc.SetStatus(ctx, first.ID, models.OrderCancelled)
	require.NoError(t, err)

	active, err := svc.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, second.ID, active[0].ID)

	all, err := svc.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
