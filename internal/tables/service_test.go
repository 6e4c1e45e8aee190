package tables_test

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
	"ms-tableside/internal/tables"
	tables_db "ms-tableside/internal/tables/db"
)

type stubTicketLookup struct {
	statuses map[string]models.TicketStatus
}

func (s *stubTicketLookup) GetTicketStatus(_ context.Context, ticketID string) (models.TicketStatus, error) {
	status, ok := s.statuses[ticketID]
	if !ok {
		return "", lifecycle.ErrTicketNotFound
	}
	return status, nil
}

func setupService(t *testing.T, lookup tables.TicketLookup) *tables.Service {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, "file::memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)
	t.Cleanup(func() { sqldb.Close() })

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	require.NoError(t, bunDB.ResetModel(context.Background(), (*models.Table)(nil)))

	return tables.NewService(&tables_db.DB{Bun: bunDB}, lookup, nil, nil)
}

func TestInitializeIsIdempotent(t *testing.T) {
	svc := setupService(t, &stubTicketLookup{})
	ctx := context.Background()

	require.NoError(t, svc.Initialize(ctx, 5))

	ticketID := "tkt_abc"
	require.NoError(t, svc.Assign(ctx, 3, ticketID, "staff_1"))

	// Re-running initialization must not reset existing tables.
	require.NoError(t, svc.Initialize(ctx, 5))

	table, err := svc.Get(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, models.TableOccupied, table.Status)
	require.NotNil(t, table.CurrentTicketID)
	assert.Equal(t, ticketID, *table.CurrentTicketID)
}

func TestAssignAndClear(t *testing.T) {
	svc := setupService(t, &stubTicketLookup{})
	ctx := context.Background()
	require.NoError(t, svc.Initialize(ctx, 3))

	require.NoError(t, svc.Assign(ctx, 2, "tkt_1", "staff_1"))

	table, err := svc.Get(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, models.TableOccupied, table.Status)
	require.NotNil(t, table.AssignedStaffID)
	assert.Equal(t, "staff_1", *table.AssignedStaffID)

	require.NoError(t, svc.Clear(ctx, 2))

	table, err = svc.Get(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, models.TableAvailable, table.Status)
	assert.Nil(t, table.CurrentTicketID)
	assert.Nil(t, table.AssignedStaffID)

	// Clearing an already-available table is a no-op, not an error.
	require.NoError(t, svc.Clear(ctx, 2))
}

func TestGetUnknownTable(t *testing.T) {
	svc := setupService(t, &stubTicketLookup{})
	ctx := context.Background()
	require.NoError(t, svc.Initialize(ctx, 3))

	_, err := svc.Get(ctx, 99)
	assert.ErrorIs(t, err, lifecycle.ErrTableNotFound)

	err = svc.Clear(ctx, 99)
	assert.ErrorIs(t, err, lifecycle.ErrTableNotFound)
}

func TestListForStaff(t *testing.T) {
	svc := setupService(t, &stubTicketLookup{})
	ctx := context.Background()
	require.NoError(t, svc.Initialize(ctx, 4))

	require.NoError(t, svc.Assign(ctx, 1, "tkt_1", "staff_a"))
	require.NoError(t, svc.Assign(ctx, 4, "tkt_2", "staff_a"))
	require.NoError(t, svc.Assign(ctx, 2, "tkt_3", "staff_b"))

	mine, err := svc.ListForStaff(ctx, "staff_a")
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, 1, mine[0].TableNumber)
	assert.Equal(t, 4, mine[1].TableNumber)
}

func TestReconcileOrphansClearsClosedAndMissingTickets(t *testing.T) {
	lookup := &stubTicketLookup{statuses: map[string]models.TicketStatus{
		"tkt_open":   models.TicketOpen,
		"tkt_closed": models.TicketClosed,
	}}
	svc := setupService(t, lookup)
	ctx := context.Background()
	require.NoError(t, svc.Initialize(ctx, 4))

	require.NoError(t, svc.Assign(ctx, 1, "tkt_open", "staff_1"))
	require.NoError(t, svc.Assign(ctx, 2, "tkt_closed", "staff_1"))
	require.NoError(t, svc.Assign(ctx, 3, "tkt_gone", "staff_1"))

	cleared, err := svc.ReconcileOrphans(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int{2, 3}, cleared)

	table, err := svc.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, models.TableOccupied, table.Status)

	table, err = svc.Get(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, models.TableAvailable, table.Status)
	assert.Nil(t, table.CurrentTicketID)
}
