package store

import (
	"context"
	"database/sql"
	"errors"
)

// Errors returned by store operations. Callers match them with errors.Is; the
// wrapped message carries the detail.
var (
	ErrNotFound             = errors.New("not found")
	ErrOrderNotFound        = errors.New("order not found")
	ErrUserNotFound         = errors.New("user not found")
	ErrInvalidItemReference = errors.New("invalid item reference")
	ErrInsufficientStock    = errors.New("insufficient stock")
	ErrValidation           = errors.New("validation failed")
	ErrConflict             = errors.New("conflict")
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}
