package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/erazemk/trgovina/internal/model"
)

const itemColumns = `uuid, name, price, description, category, availability, created_at, updated_at`

// CreateItem adds a catalog item. The UUID is assigned here.
func CreateItem(ctx context.Context, db *sql.DB, item model.Item) (*model.Item, error) {
	if err := item.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	id := uuid.NewString()
	_, err := db.ExecContext(ctx,
		`INSERT INTO items (uuid, name, price, description, category, availability)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id, item.Name, item.Price.String(), item.Description, item.Category, item.Availability,
	)
	if err != nil {
		return nil, fmt.Errorf("creating item: %w", err)
	}

	return GetItem(ctx, db, id)
}

// GetItem returns an item by UUID, or nil if it does not exist.
func GetItem(ctx context.Context, db *sql.DB, id string) (*model.Item, error) {
	item, err := scanItem(db.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM items WHERE uuid = ?`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}
	return item, nil
}

// ListItems returns all items ordered by name, optionally filtered by category.
func ListItems(ctx context.Context, db *sql.DB, category string) ([]model.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items`
	var args []any
	if category != "" {
		query += ` WHERE category = ?`
		args = append(args, category)
	}
	query += ` ORDER BY name`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	defer rows.Close()

	return scanItems(rows)
}

// UpdateItem replaces an item's catalog fields. Returns ErrNotFound if the item
// does not exist.
func UpdateItem(ctx context.Context, db *sql.DB, id string, item model.Item) (*model.Item, error) {
	if err := item.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	result, err := db.ExecContext(ctx,
		`UPDATE items
		 SET name = ?, price = ?, description = ?, category = ?, availability = ?,
		     updated_at = CURRENT_TIMESTAMP
		 WHERE uuid = ?`,
		item.Name, item.Price.String(), item.Description, item.Category, item.Availability, id,
	)
	if err != nil {
		return nil, fmt.Errorf("updating item: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("item %s: %w", id, ErrNotFound)
	}

	return GetItem(ctx, db, id)
}

// DeleteItem removes an item together with its pictures and favorites. Fails
// with ErrConflict while any order line still references the item.
func DeleteItem(ctx context.Context, db *sql.DB, id string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var count int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM order_items WHERE item_uuid = ?`, id,
	).Scan(&count)
	if err != nil {
		return fmt.Errorf("checking item orders: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("%w: item is referenced by %d order lines", ErrConflict, count)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM items WHERE uuid = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting item: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("item %s: %w", id, ErrNotFound)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing item deletion: %w", err)
	}
	return nil
}

// findItems resolves ids in one query. The result holds only the items that
// exist, keyed by UUID.
func findItems(ctx context.Context, q querier, ids []string) (map[string]model.Item, error) {
	found := make(map[string]model.Item, len(ids))
	if len(ids) == 0 {
		return found, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := q.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM items WHERE uuid IN (`+placeholders+`)`, args...,
	)
	if err != nil {
		return nil, fmt.Errorf("finding items: %w", err)
	}
	defer rows.Close()

	items, err := scanItems(rows)
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		found[item.UUID] = item
	}
	return found, nil
}

// reserveStock takes qty units of an item. The decrement only applies while
// enough stock remains, so a concurrent reservation can never push
// availability below zero.
func reserveStock(ctx context.Context, tx *sql.Tx, id string, qty int) error {
	result, err := tx.ExecContext(ctx,
		`UPDATE items SET availability = availability - ?, updated_at = CURRENT_TIMESTAMP
		 WHERE uuid = ? AND availability >= ?`,
		qty, id, qty,
	)
	if err != nil {
		return fmt.Errorf("reserving stock: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("reserving stock: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: item %s", ErrInsufficientStock, id)
	}
	return nil
}

// releaseStock returns qty units of an item to the catalog.
func releaseStock(ctx context.Context, tx *sql.Tx, id string, qty int) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE items SET availability = availability + ?, updated_at = CURRENT_TIMESTAMP
		 WHERE uuid = ?`,
		qty, id,
	)
	if err != nil {
		return fmt.Errorf("releasing stock: %w", err)
	}
	return nil
}

func scanItem(row *sql.Row) (*model.Item, error) {
	item := &model.Item{}
	err := row.Scan(&item.UUID, &item.Name, &item.Price, &item.Description, &item.Category,
		&item.Availability, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return item, nil
}

func scanItems(rows *sql.Rows) ([]model.Item, error) {
	var items []model.Item
	for rows.Next() {
		var item model.Item
		if err := rows.Scan(&item.UUID, &item.Name, &item.Price, &item.Description, &item.Category,
			&item.Availability, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
