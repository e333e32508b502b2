package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/trgovina/internal/model"
)

// AddFavorite marks an item as a favorite of a user.
func AddFavorite(ctx context.Context, db *sql.DB, userID, itemID string) error {
	item, err := GetItem(ctx, db, itemID)
	if err != nil {
		return err
	}
	if item == nil {
		return fmt.Errorf("%w: item %s does not exist", ErrInvalidItemReference, itemID)
	}

	_, err = db.ExecContext(ctx,
		`INSERT INTO favorites (user_uuid, item_uuid) VALUES (?, ?)`, userID, itemID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: item is already a favorite", ErrConflict)
		}
		return fmt.Errorf("adding favorite: %w", err)
	}
	return nil
}

// ListFavoriteItems returns the items a user marked as favorites.
func ListFavoriteItems(ctx context.Context, db *sql.DB, userID string) ([]model.Item, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT i.uuid, i.name, i.price, i.description, i.category, i.availability,
		        i.created_at, i.updated_at
		 FROM favorites f
		 JOIN items i ON i.uuid = f.item_uuid
		 WHERE f.user_uuid = ?
		 ORDER BY f.created_at, i.name`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing favorites: %w", err)
	}
	defer rows.Close()

	return scanItems(rows)
}

// RemoveFavorite unmarks an item. Returns ErrNotFound if it was not a favorite.
func RemoveFavorite(ctx context.Context, db *sql.DB, userID, itemID string) error {
	result, err := db.ExecContext(ctx,
		`DELETE FROM favorites WHERE user_uuid = ? AND item_uuid = ?`, userID, itemID,
	)
	if err != nil {
		return fmt.Errorf("removing favorite: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("favorite %s: %w", itemID, ErrNotFound)
	}
	return nil
}
