package menu

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"ms-tableside/internal/lifecycle"
	"ms-tableside/internal/models"

	"github.com/uptrace/bun"
)

// DB is the read-only catalog view. Menu CRUD lives elsewhere; the
// lifecycle engines only snapshot name/price/customizations from here.
type DB struct {
	Bun *bun.DB
}

func (d *DB) GetMenuItem(ctx context.Context, menuItemID string) (*models.MenuItem, error) {
	var item models.MenuItem
	err := d.Bun.NewSelect().
		Model(&item).
		Where("id = ?", menuItemID).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("menu item %s: %w", menuItemID, lifecycle.ErrMenuItemNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (d *DB) ListAvailable(ctx context.Context) ([]models.MenuItem, error) {
	var items []models.MenuItem
	err := d.Bun.NewSelect().
		Model(&items).
		Where("available = ?", true).
		Order("category ASC", "name ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return items, nil
}
