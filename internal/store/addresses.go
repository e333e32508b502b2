package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/erazemk/trgovina/internal/model"
)

const addressColumns = `uuid, user_uuid, nation, city, postal_code, local_address, phone, created_at`

// CreateAddress adds a shipping address for a.UserUUID.
func CreateAddress(ctx context.Context, db *sql.DB, a model.Address) (*model.Address, error) {
	if err := a.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	user, err := GetUser(ctx, db, a.UserUUID)
	if err != nil {
		return nil, err
	}
	if !user.Active() {
		return nil, fmt.Errorf("%w: %s", ErrUserNotFound, a.UserUUID)
	}

	id := uuid.NewString()
	_, err = db.ExecContext(ctx,
		`INSERT INTO addresses (uuid, user_uuid, nation, city, postal_code, local_address, phone)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, a.UserUUID, a.Nation, a.City, a.PostalCode, a.LocalAddress, a.Phone,
	)
	if err != nil {
		return nil, fmt.Errorf("creating address: %w", err)
	}

	return GetAddress(ctx, db, id)
}

// GetAddress returns an address by UUID, or nil if it does not exist.
func GetAddress(ctx context.Context, db *sql.DB, id string) (*model.Address, error) {
	a := &model.Address{}
	err := db.QueryRowContext(ctx,
		`SELECT `+addressColumns+` FROM addresses WHERE uuid = ?`, id,
	).Scan(&a.UUID, &a.UserUUID, &a.Nation, &a.City, &a.PostalCode, &a.LocalAddress, &a.Phone, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting address: %w", err)
	}
	return a, nil
}

// ListAddresses returns the addresses of a user. An empty userID lists all.
func ListAddresses(ctx context.Context, db *sql.DB, userID string) ([]model.Address, error) {
	query := `SELECT ` + addressColumns + ` FROM addresses`
	var args []any
	if userID != "" {
		query += ` WHERE user_uuid = ?`
		args = append(args, userID)
	}
	query += ` ORDER BY created_at, uuid`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing addresses: %w", err)
	}
	defer rows.Close()

	var addresses []model.Address
	for rows.Next() {
		var a model.Address
		if err := rows.Scan(&a.UUID, &a.UserUUID, &a.Nation, &a.City, &a.PostalCode,
			&a.LocalAddress, &a.Phone, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning address: %w", err)
		}
		addresses = append(addresses, a)
	}
	return addresses, rows.Err()
}

// UpdateAddress replaces an address's fields. The owner cannot change.
func UpdateAddress(ctx context.Context, db *sql.DB, id string, a model.Address) (*model.Address, error) {
	if err := a.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	result, err := db.ExecContext(ctx,
		`UPDATE addresses SET nation = ?, city = ?, postal_code = ?, local_address = ?, phone = ?
		 WHERE uuid = ?`,
		a.Nation, a.City, a.PostalCode, a.LocalAddress, a.Phone, id,
	)
	if err != nil {
		return nil, fmt.Errorf("updating address: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("address %s: %w", id, ErrNotFound)
	}

	return GetAddress(ctx, db, id)
}

// DeleteAddress removes an address.
func DeleteAddress(ctx context.Context, db *sql.DB, id string) error {
	result, err := db.ExecContext(ctx, `DELETE FROM addresses WHERE uuid = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting address: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("address %s: %w", id, ErrNotFound)
	}
	return nil
}
