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

// InsertIgnore creates the table row if it does not already exist, making
// bulk initialization idempotent by id.
func (d *DB) InsertIgnore(ctx context.Context, table *models.Table) error {
	_, err := d.Bun.NewInsert().
		Model(table).
		On("CONFLICT (table_number) DO NOTHING").
		Exec(ctx)
	return err
}

// GetTable fetches one table by number.
func (d *DB) GetTable(ctx context.Context, tableNumber int) (*models.Table, error) {
	var table models.Table
	err := d.Bun.NewSelect().
		Model(&table).
		Where("table_number = ?", tableNumber).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("table %d: %w", tableNumber, lifecycle.ErrTableNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &table, nil
}

// ListTables returns all tables ordered by table number ascending.
func (d *DB) ListTables(ctx context.Context) ([]models.Table, error) {
	var tables []models.Table
	err := d.Bun.NewSelect().
		Model(&tables).
		Order("table_number ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return tables, nil
}

// ListTablesByStaff returns the tables currently assigned to a staff
// member, ordered by table number.
func (d *DB) ListTablesByStaff(ctx context.Context, staffID string) ([]models.Table, error) {
	var tables []models.Table
	err := d.Bun.NewSelect().
		Model(&tables).
		Where("assigned_staff_id = ?", staffID).
		Order("table_number ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return tables, nil
}

// UpdateTable applies a partial update: only the supplied columns change.
// The ticket and staff references use double pointers so callers can
// distinguish "leave alone" (nil) from "set to NULL" (*nil).
func (d *DB) UpdateTable(ctx context.Context, tableNumber int, status *models.TableStatus, ticketID **string, staffID **string) error {
	q := d.Bun.NewUpdate().
		Model((*models.Table)(nil)).
		Set("last_updated = ?", time.Now()).
		Where("table_number = ?", tableNumber)

	if status != nil {
		q = q.Set("status = ?", *status)
	}
	if ticketID != nil {
		q = q.Set("current_ticket_id = ?", *ticketID)
	}
	if staffID != nil {
		q = q.Set("assigned_staff_id = ?", *staffID)
	}

	res, err := q.Exec(ctx)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("table %d: %w", tableNumber, lifecycle.ErrTableNotFound)
	}
	return nil
}
