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

// CreateOrder inserts a new pickup order.
func (d *DB) CreateOrder(ctx context.Context, order *models.Order) error {
	_, err := d.Bun.NewInsert().Model(order).Exec(ctx)
	return err
}

// GetOrderByID fetches one order by its ID.
func (d *DB) GetOrderByID(ctx context.Context, orderID string) (*models.Order, error) {
	var order models.Order
	err := d.Bun.NewSelect().
		Model(&order).
		Where("id = ?", orderID).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("order %s: %w", orderID, lifecycle.ErrOrderNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// UpdateOrderGuarded writes the whole order row conditioned on the
// version observed at read time.
func (d *DB) UpdateOrderGuarded(ctx context.Context, order *models.Order, expectedVersion int64) error {
	order.Version = expectedVersion + 1
	order.UpdatedAt = time.Now()

	res, err := d.Bun.NewUpdate().
		Model(order).
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
		if _, getErr := d.GetOrderByID(ctx, order.ID); getErr != nil {
			return getErr
		}
		return fmt.Errorf("order %s: %w", order.ID, lifecycle.ErrConcurrentUpdate)
	}
	return nil
}

// CodeInUse reports whether a live (non-terminal) order already holds the
// pickup code. Completed and cancelled orders release their codes.
func (d *DB) CodeInUse(ctx context.Context, code string) (bool, error) {
	count, err := d.Bun.NewSelect().
		Model((*models.Order)(nil)).
		Where("pickup_code = ?", code).
		Where("status NOT IN (?)", bun.In([]models.OrderStatus{models.OrderCompleted, models.OrderCancelled})).
		Count(ctx)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListByCustomer returns all orders a customer has placed, newest first.
func (d *DB) ListByCustomer(ctx context.Context, customerID string) ([]models.Order, error) {
	var orders []models.Order
	err := d.Bun.NewSelect().
		Model(&orders).
		Where("customer_id = ?", customerID).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// ListActive returns pending/preparing/ready orders oldest first, so the
// kitchen works first-in-first-served.
func (d *DB) ListActive(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	err := d.Bun.NewSelect().
		Model(&orders).
		Where("status IN (?)", bun.In([]models.OrderStatus{models.OrderPending, models.OrderPreparing, models.OrderReady})).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// ListActiveByCustomer returns a customer's non-terminal orders, oldest
// first.
func (d *DB) ListActiveByCustomer(ctx context.Context, customerID string) ([]models.Order, error) {
	var orders []models.Order
	err := d.Bun.NewSelect().
		Model(&orders).
		Where("customer_id = ?", customerID).
		Where("status IN (?)", bun.In([]models.OrderStatus{models.OrderPending, models.OrderPreparing, models.OrderReady})).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// ListAll returns every order, newest first.
func (d *DB) ListAll(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	err := d.Bun.NewSelect().
		Model(&orders).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return orders, nil
}
