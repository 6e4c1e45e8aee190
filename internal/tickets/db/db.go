package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ms-tableside/internal/lifecycle"
	"ms-tableside/internal/models"

	"github.com/uptrace/bun"
)

type DB struct {
	Bun *bun.DB
}

// CreateTicket inserts a new ticket row.
func (d *DB) CreateTicket(ctx context.Context, ticket *models.Ticket) error {
	_, err := d.Bun.NewInsert().Model(ticket).Exec(ctx)
	return err
}

// GetTicketByID fetches one ticket by its ID.
func (d *DB) GetTicketByID(ctx context.Context, ticketID string) (*models.Ticket, error) {
	var ticket models.Ticket
	err := d.Bun.NewSelect().
		Model(&ticket).
		Where("id = ?", ticketID).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("ticket %s: %w", ticketID, lifecycle.ErrTicketNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

// GetTicketStatus returns just the lifecycle status of a ticket. The
// table registry's reconcile sweep uses this.
func (d *DB) GetTicketStatus(ctx context.Context, ticketID string) (models.TicketStatus, error) {
	ticket, err := d.GetTicketByID(ctx, ticketID)
	if err != nil {
		return "", err
	}
	return ticket.Status, nil
}

// UpdateTicketGuarded writes the whole ticket row conditioned on the
// version observed at read time. The caller owns the read-compute-write
// retry loop; a conflict surfaces as ErrConcurrentUpdate.
func (d *DB) UpdateTicketGuarded(ctx context.Context, ticket *models.Ticket, expectedVersion int64) error {
	ticket.Version = expectedVersion + 1
	ticket.UpdatedAt = time.Now()

	res, err := d.Bun.NewUpdate().
		Model(ticket).
		WherePK().
		Where("version = ?", expectedVersion).
		Exec(ctx)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		// Distinguish a lost race from a vanished row.
		if _, getErr := d.GetTicketByID(ctx, ticket.ID); getErr != nil {
			return getErr
		}
		return fmt.Errorf("ticket %s: %w", ticket.ID, lifecycle.ErrConcurrentUpdate)
	}
	return nil
}

// CloseTableTicket closes a table ticket and clears its table in one
// transaction so a crash cannot leave the table occupied with a closed
// ticket.
func (d *DB) CloseTableTicket(ctx context.Context, ticket *models.Ticket, expectedVersion int64) error {
	return d.Bun.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		ticket.Version = expectedVersion + 1
		ticket.UpdatedAt = time.Now()

		res, err := tx.NewUpdate().
			Model(ticket).
			WherePK().
			Where("version = ?", expectedVersion).
			Exec(ctx)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return fmt.Errorf("ticket %s: %w", ticket.ID, lifecycle.ErrConcurrentUpdate)
		}

		_, err = tx.NewUpdate().
			Model((*models.Table)(nil)).
			Set("status = ?", models.TableAvailable).
			Set("current_ticket_id = NULL").
			Set("assigned_staff_id = NULL").
			Set("last_updated = ?", time.Now()).
			Where("table_number = ?", ticket.TableNumber).
			Exec(ctx)
		return err
	})
}

// DeleteTicket removes a ticket row outright.
func (d *DB) DeleteTicket(ctx context.Context, ticketID string) error {
	_, err := d.Bun.NewDelete().
		Model((*models.Ticket)(nil)).
		Where("id = ?", ticketID).
		Exec(ctx)
	return err
}

// ListOpenByTable returns all open tickets for a table, newest first.
func (d *DB) ListOpenByTable(ctx context.Context, tableNumber int) ([]models.Ticket, error) {
	var tickets []models.Ticket
	err := d.Bun.NewSelect().
		Model(&tickets).
		Where("kind = ?", models.TicketKindTable).
		Where("table_number = ?", tableNumber).
		Where("status = ?", models.TicketOpen).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return tickets, nil
}

// ListByStaff returns all tickets a staff member opened, newest first.
func (d *DB) ListByStaff(ctx context.Context, staffID string) ([]models.Ticket, error) {
	var tickets []models.Ticket
	err := d.Bun.NewSelect().
		Model(&tickets).
		Where("staff_id = ?", staffID).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return tickets, nil
}

// ListOpenTogo returns open to-go tickets, oldest first so the counter
// works first-in-first-served.
func (d *DB) ListOpenTogo(ctx context.Context) ([]models.Ticket, error) {
	var tickets []models.Ticket
	err := d.Bun.NewSelect().
		Model(&tickets).
		Where("kind = ?", models.TicketKindTogo).
		Where("status = ?", models.TicketOpen).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return tickets, nil
}

// ListOpenSent returns open table tickets handed off to the kitchen,
// oldest first.
func (d *DB) ListOpenSent(ctx context.Context) ([]models.Ticket, error) {
	var tickets []models.Ticket
	err := d.Bun.NewSelect().
		Model(&tickets).
		Where("kind = ?", models.TicketKindTable).
		Where("status = ?", models.TicketOpen).
		Where("kitchen_status = ?", models.KitchenSent).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return tickets, nil
}
