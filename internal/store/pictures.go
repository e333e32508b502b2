package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/erazemk/trgovina/internal/model"
)

// CreatePicture stores an already processed image for an item.
func CreatePicture(ctx context.Context, db *sql.DB, itemID string, data []byte, mime string, width, height int) (*model.Picture, error) {
	item, err := GetItem(ctx, db, itemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, fmt.Errorf("item %s: %w", itemID, ErrNotFound)
	}

	id := uuid.NewString()
	_, err = db.ExecContext(ctx,
		`INSERT INTO pictures (uuid, item_uuid, data, mime, width, height) VALUES (?, ?, ?, ?, ?, ?)`,
		id, itemID, data, mime, width, height,
	)
	if err != nil {
		return nil, fmt.Errorf("creating picture: %w", err)
	}

	return GetPicture(ctx, db, id)
}

// GetPicture returns a picture including its image data.
func GetPicture(ctx context.Context, db *sql.DB, id string) (*model.Picture, error) {
	p := &model.Picture{}
	err := db.QueryRowContext(ctx,
		`SELECT uuid, item_uuid, data, mime, width, height, created_at FROM pictures WHERE uuid = ?`, id,
	).Scan(&p.UUID, &p.ItemUUID, &p.Data, &p.MIME, &p.Width, &p.Height, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting picture: %w", err)
	}
	return p, nil
}

// ListItemPictures returns picture metadata for an item, without image data.
func ListItemPictures(ctx context.Context, db *sql.DB, itemID string) ([]model.Picture, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT uuid, item_uuid, mime, width, height, created_at
		 FROM pictures WHERE item_uuid = ? ORDER BY created_at, uuid`, itemID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing pictures: %w", err)
	}
	defer rows.Close()

	var pictures []model.Picture
	for rows.Next() {
		var p model.Picture
		if err := rows.Scan(&p.UUID, &p.ItemUUID, &p.MIME, &p.Width, &p.Height, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning picture: %w", err)
		}
		pictures = append(pictures, p)
	}
	return pictures, rows.Err()
}

// DeletePicture removes a picture.
func DeletePicture(ctx context.Context, db *sql.DB, id string) error {
	result, err := db.ExecContext(ctx, `DELETE FROM pictures WHERE uuid = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting picture: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("picture %s: %w", id, ErrNotFound)
	}
	return nil
}
