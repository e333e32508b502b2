package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/erazemk/trgovina/internal/model"
)

// CreatePasswordReset issues a reset code for a user, valid for ttl.
func CreatePasswordReset(ctx context.Context, db *sql.DB, userID string, ttl time.Duration) (*model.PasswordReset, error) {
	r := &model.PasswordReset{
		Code:      uuid.NewString(),
		UserUUID:  userID,
		ExpiresAt: time.Now().UTC().Add(ttl),
		Enabled:   true,
	}

	_, err := db.ExecContext(ctx,
		`INSERT INTO password_resets (code, user_uuid, expires_at, enabled) VALUES (?, ?, ?, 1)`,
		r.Code, r.UserUUID, r.ExpiresAt,
	)
	if err != nil {
		return nil, fmt.Errorf("creating password reset: %w", err)
	}
	return r, nil
}

// GetPasswordReset returns a reset by code, or nil if it does not exist.
func GetPasswordReset(ctx context.Context, db *sql.DB, code string) (*model.PasswordReset, error) {
	return getPasswordReset(ctx, db, code)
}

func getPasswordReset(ctx context.Context, q querier, code string) (*model.PasswordReset, error) {
	r := &model.PasswordReset{}
	err := q.QueryRowContext(ctx,
		`SELECT code, user_uuid, expires_at, enabled FROM password_resets WHERE code = ?`, code,
	).Scan(&r.Code, &r.UserUUID, &r.ExpiresAt, &r.Enabled)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting password reset: %w", err)
	}
	return r, nil
}

// ConsumePasswordReset sets a new password hash using a reset code and
// disables the code. Unknown, disabled and expired codes yield ErrNotFound.
func ConsumePasswordReset(ctx context.Context, db *sql.DB, code, passwordHash string) (string, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	r, err := getPasswordReset(ctx, tx, code)
	if err != nil {
		return "", err
	}
	if !r.Usable(time.Now()) {
		return "", fmt.Errorf("password reset: %w", ErrNotFound)
	}

	if err := updateUserPassword(ctx, tx, r.UserUUID, passwordHash); err != nil {
		return "", err
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE password_resets SET enabled = 0 WHERE code = ?`, code,
	); err != nil {
		return "", fmt.Errorf("disabling password reset: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("committing password reset: %w", err)
	}
	return r.UserUUID, nil
}

// PurgeExpiredResets deletes codes past their expiry and returns how many
// were removed.
func PurgeExpiredResets(ctx context.Context, db *sql.DB, now time.Time) (int64, error) {
	result, err := db.ExecContext(ctx,
		`DELETE FROM password_resets WHERE expires_at < ?`, now.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("purging password resets: %w", err)
	}
	return result.RowsAffected()
}
