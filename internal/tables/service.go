package tables

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ms-tableside/internal/lifecycle"
	"ms-tableside/internal/models"
	"ms-tableside/internal/sse"
)

type DBLayer interface {
	InsertIgnore(ctx context.Context, table *models.Table) error
	GetTable(ctx context.Context, tableNumber int) (*models.Table, error)
	ListTables(ctx context.Context) ([]models.Table, error)
	ListTablesByStaff(ctx context.Context, staffID string) ([]models.Table, error)
	UpdateTable(ctx context.Context, tableNumber int, status *models.TableStatus, ticketID **string, staffID **string) error
}

// TicketLookup is the narrow view of the ticket store the reconcile sweep
// needs: the registry never mutates tickets.
type TicketLookup interface {
	GetTicketStatus(ctx context.Context, ticketID string) (models.TicketStatus, error)
}

type Broadcaster interface {
	Emit(key string, snapshot interface{})
}

type Events interface {
	PublishTableUpdated(table models.Table) error
}

// Service is the table registry: it exclusively owns table rows and the
// occupied/ticket link.
type Service struct {
	DB        DBLayer
	Tickets   TicketLookup
	Broadcast Broadcaster
	Kafka     Events
}

func NewService(db DBLayer, tickets TicketLookup, broadcast Broadcaster, kafka Events) *Service {
	return &Service{DB: db, Tickets: tickets, Broadcast: broadcast, Kafka: kafka}
}

// Initialize creates tables 1..count, all available. Safe to run on every
// startup: existing rows are left untouched.
func (s *Service) Initialize(ctx context.Context, count int) error {
	if count <= 0 {
		return fmt.Errorf("table count %d: %w", count, lifecycle.ErrInvalidArgument)
	}

	for i := 1; i <= count; i++ {
		table := &models.Table{
			TableNumber: i,
			Status:      models.TableAvailable,
			LastUpdated: time.Now(),
		}
		if err := s.DB.InsertIgnore(ctx, table); err != nil {
			return fmt.Errorf("initialize table %d: %w", i, err)
		}
	}
	return nil
}

func (s *Service) Get(ctx context.Context, tableNumber int) (*models.Table, error) {
	return s.DB.GetTable(ctx, tableNumber)
}

func (s *Service) ListAll(ctx context.Context) ([]models.Table, error) {
	return s.DB.ListTables(ctx)
}

func (s *Service) ListForStaff(ctx context.Context, staffID string) ([]models.Table, error) {
	return s.DB.ListTablesByStaff(ctx, staffID)
}

// SetStatus applies a partial update: only supplied fields change.
func (s *Service) SetStatus(ctx context.Context, tableNumber int, status models.TableStatus, ticketID, staffID *string) error {
	var ticketRef, staffRef **string
	if ticketID != nil {
		ticketRef = &ticketID
	}
	if staffID != nil {
		staffRef = &staffID
	}

	if err := s.DB.UpdateTable(ctx, tableNumber, &status, ticketRef, staffRef); err != nil {
		return err
	}

	s.notify(ctx, tableNumber)
	return nil
}

// Assign marks the table occupied and attaches the ticket and staff
// references.
func (s *Service) Assign(ctx context.Context, tableNumber int, ticketID, staffID string) error {
	return s.SetStatus(ctx, tableNumber, models.TableOccupied, &ticketID, &staffID)
}

// Clear marks the table available and nulls both references
// unconditionally in a single update. Callers are responsible for
// ordering clear-after-close; Clear itself is idempotent.
func (s *Service) Clear(ctx context.Context, tableNumber int) error {
	status := models.TableAvailable
	var nullRef *string
	ticketRef := &nullRef
	staffRef := &nullRef

	if err := s.DB.UpdateTable(ctx, tableNumber, &status, ticketRef, staffRef); err != nil {
		return err
	}

	s.notify(ctx, tableNumber)
	return nil
}

// ReconcileOrphans clears occupied tables whose referenced ticket is
// closed or missing. A crash between a ticket close and its table clear
// leaves this state behind; the sweep is the documented recovery job.
func (s *Service) ReconcileOrphans(ctx context.Context) ([]int, error) {
	allTables, err := s.DB.ListTables(ctx)
	if err != nil {
		return nil, err
	}

	var cleared []int
	for _, table := range allTables {
		if table.Status != models.TableOccupied || table.CurrentTicketID == nil {
			continue
		}

		status, err := s.Tickets.GetTicketStatus(ctx, *table.CurrentTicketID)
		orphaned := false
		switch {
		case errors.Is(err, lifecycle.ErrTicketNotFound):
			orphaned = true
		case err != nil:
			return cleared, fmt.Errorf("reconcile table %d: %w", table.TableNumber, err)
		case status == models.TicketClosed:
			orphaned = true
		}

		if orphaned {
			if err := s.Clear(ctx, table.TableNumber); err != nil {
				return cleared, err
			}
			cleared = append(cleared, table.TableNumber)
		}
	}
	return cleared, nil
}

// BroadcastState re-publishes the current snapshot of a table. The ticket
// engine calls this after a transactional close touches the table row
// outside the registry.
func (s *Service) BroadcastState(ctx context.Context, tableNumber int) {
	s.notify(ctx, tableNumber)
}

// notify pushes fresh snapshots for the table and the all-tables list,
// and feeds the outward kafka stream. Snapshots are re-read after the
// write so subscribers never see state the store does not hold.
func (s *Service) notify(ctx context.Context, tableNumber int) {
	table, err := s.DB.GetTable(ctx, tableNumber)
	if err != nil {
		return
	}

	if s.Broadcast != nil {
		s.Broadcast.Emit(sse.KeyTable(tableNumber), table)
		if allTables, err := s.DB.ListTables(ctx); err == nil {
			s.Broadcast.Emit(sse.KeyAllTables, allTables)
		}
	}

	if s.Kafka != nil {
		_ = s.Kafka.PublishTableUpdated(*table)
	}
}
