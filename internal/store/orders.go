package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/erazemk/trgovina/internal/model"
)

// ValidateLines checks a requested item list without touching the store: the
// list must be non-empty, every item id a UUID listed once, every quantity
// positive.
func ValidateLines(lines []model.LineRequest) error {
	if len(lines) == 0 {
		return fmt.Errorf("%w: item list must not be empty", ErrValidation)
	}

	seen := make(map[string]bool, len(lines))
	for _, l := range lines {
		if _, err := uuid.Parse(l.ItemUUID); err != nil {
			return fmt.Errorf("%w: invalid item id %q", ErrValidation, l.ItemUUID)
		}
		if l.Quantity <= 0 {
			return fmt.Errorf("%w: quantity for item %s must be positive", ErrValidation, l.ItemUUID)
		}
		if seen[l.ItemUUID] {
			return fmt.Errorf("%w: item %s listed more than once", ErrValidation, l.ItemUUID)
		}
		seen[l.ItemUUID] = true
	}
	return nil
}

func lineIDs(lines []model.LineRequest) []string {
	ids := make([]string, len(lines))
	for i, l := range lines {
		ids[i] = l.ItemUUID
	}
	return ids
}

// resolveLines looks up every requested item and fails unless all of them
// exist.
func resolveLines(ctx context.Context, q querier, lines []model.LineRequest) (map[string]model.Item, error) {
	items, err := findItems(ctx, q, lineIDs(lines))
	if err != nil {
		return nil, err
	}
	if len(items) != len(lines) {
		for _, l := range lines {
			if _, ok := items[l.ItemUUID]; !ok {
				return nil, fmt.Errorf("%w: item %s does not exist", ErrInvalidItemReference, l.ItemUUID)
			}
		}
	}
	return items, nil
}

// checkStock compares requested quantities with availability. The check is
// advisory outside a transaction; reserveStock enforces it.
func checkStock(lines []model.LineRequest, items map[string]model.Item) error {
	for _, l := range lines {
		if item := items[l.ItemUUID]; l.Quantity > item.Availability {
			return fmt.Errorf("%w: item %s has %d available, %d requested",
				ErrInsufficientStock, l.ItemUUID, item.Availability, l.Quantity)
		}
	}
	return nil
}

// reserveLines reserves stock for each line and inserts the order lines.
// It returns the order total.
func reserveLines(ctx context.Context, tx *sql.Tx, orderID string, lines []model.LineRequest, items map[string]model.Item) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, l := range lines {
		item := items[l.ItemUUID]
		subtotal := item.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))

		if err := reserveStock(ctx, tx, l.ItemUUID, l.Quantity); err != nil {
			return decimal.Zero, err
		}

		_, err := tx.ExecContext(ctx,
			`INSERT INTO order_items (order_uuid, item_uuid, quantity, subtotal) VALUES (?, ?, ?, ?)`,
			orderID, l.ItemUUID, l.Quantity, subtotal.String(),
		)
		if err != nil {
			return decimal.Zero, fmt.Errorf("recording order line: %w", err)
		}

		total = total.Add(subtotal)
	}
	return total, nil
}

// releaseLines restores stock for every line of an order and deletes the
// lines.
func releaseLines(ctx context.Context, tx *sql.Tx, orderID string) error {
	rows, err := tx.QueryContext(ctx,
		`SELECT item_uuid, quantity FROM order_items WHERE order_uuid = ?`, orderID,
	)
	if err != nil {
		return fmt.Errorf("loading order lines: %w", err)
	}
	var old []model.LineRequest
	for rows.Next() {
		var l model.LineRequest
		if err := rows.Scan(&l.ItemUUID, &l.Quantity); err != nil {
			rows.Close()
			return fmt.Errorf("scanning order line: %w", err)
		}
		old = append(old, l)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("loading order lines: %w", err)
	}
	rows.Close()

	for _, l := range old {
		if err := releaseStock(ctx, tx, l.ItemUUID, l.Quantity); err != nil {
			return err
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM order_items WHERE order_uuid = ?`, orderID); err != nil {
		return fmt.Errorf("deleting order lines: %w", err)
	}
	return nil
}

// orderExists reports whether an order row is present.
func orderExists(ctx context.Context, q querier, id string) (bool, error) {
	var n int
	err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders WHERE uuid = ?`, id).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking order: %w", err)
	}
	return n > 0, nil
}

// CreateOrder places an order for userID, reserving stock for every line in a
// single transaction. Nothing is written unless every line can be reserved.
func CreateOrder(ctx context.Context, db *sql.DB, userID string, lines []model.LineRequest) (*model.Order, error) {
	if err := ValidateLines(lines); err != nil {
		return nil, err
	}

	user, err := GetUser(ctx, db, userID)
	if err != nil {
		return nil, err
	}
	if !user.Active() {
		return nil, fmt.Errorf("%w: %s", ErrUserNotFound, userID)
	}

	items, err := resolveLines(ctx, db, lines)
	if err != nil {
		return nil, err
	}
	if err := checkStock(lines, items); err != nil {
		return nil, err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	// The account, prices and stock may have changed since the checks above.
	user, err = getUser(ctx, tx, userID)
	if err != nil {
		return nil, err
	}
	if !user.Active() {
		return nil, fmt.Errorf("%w: %s", ErrUserNotFound, userID)
	}

	items, err = resolveLines(ctx, tx, lines)
	if err != nil {
		return nil, err
	}

	orderID := uuid.NewString()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO orders (uuid, user_uuid, total_price) VALUES (?, ?, '0')`,
		orderID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("creating order: %w", err)
	}

	total, err := reserveLines(ctx, tx, orderID, lines, items)
	if err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE orders SET total_price = ? WHERE uuid = ?`, total.String(), orderID,
	)
	if err != nil {
		return nil, fmt.Errorf("setting order total: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing order: %w", err)
	}

	return GetOrder(ctx, db, orderID)
}

// UpdateOrder replaces all lines of an order. The previous reservation is
// released before the new one is checked, so reducing the quantity of an item
// already in the order always succeeds.
func UpdateOrder(ctx context.Context, db *sql.DB, orderID string, lines []model.LineRequest) (*model.Order, error) {
	if err := ValidateLines(lines); err != nil {
		return nil, err
	}

	exists, err := orderExists(ctx, db, orderID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
	}

	if _, err := resolveLines(ctx, db, lines); err != nil {
		return nil, err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	exists, err = orderExists(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
	}

	if err := releaseLines(ctx, tx, orderID); err != nil {
		return nil, err
	}

	items, err := resolveLines(ctx, tx, lines)
	if err != nil {
		return nil, err
	}
	if err := checkStock(lines, items); err != nil {
		return nil, err
	}

	total, err := reserveLines(ctx, tx, orderID, lines, items)
	if err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE orders SET total_price = ?, updated_at = CURRENT_TIMESTAMP WHERE uuid = ?`,
		total.String(), orderID,
	)
	if err != nil {
		return nil, fmt.Errorf("updating order total: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing order update: %w", err)
	}

	return GetOrder(ctx, db, orderID)
}

// DeleteOrder removes an order and returns its reserved stock to the catalog.
func DeleteOrder(ctx context.Context, db *sql.DB, orderID string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	exists, err := orderExists(ctx, tx, orderID)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
	}

	if err := releaseLines(ctx, tx, orderID); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM orders WHERE uuid = ?`, orderID); err != nil {
		return fmt.Errorf("deleting order: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing order deletion: %w", err)
	}
	return nil
}

// GetOrder returns an order with its lines, or nil if it does not exist.
func GetOrder(ctx context.Context, db *sql.DB, id string) (*model.Order, error) {
	o := &model.Order{}
	err := db.QueryRowContext(ctx,
		`SELECT uuid, user_uuid, total_price, created_at, updated_at FROM orders WHERE uuid = ?`, id,
	).Scan(&o.UUID, &o.UserUUID, &o.TotalPrice, &o.CreatedAt, &o.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting order: %w", err)
	}

	lines, err := loadOrderLines(ctx, db, `o.uuid = ?`, id)
	if err != nil {
		return nil, err
	}
	o.Items = lines[id]
	return o, nil
}

// ListOrders returns every order with its lines, newest first.
func ListOrders(ctx context.Context, db *sql.DB) ([]model.Order, error) {
	return listOrders(ctx, db, "")
}

// ListOrdersByUser returns the orders placed by userID, newest first.
func ListOrdersByUser(ctx context.Context, db *sql.DB, userID string) ([]model.Order, error) {
	return listOrders(ctx, db, userID)
}

func listOrders(ctx context.Context, db *sql.DB, userID string) ([]model.Order, error) {
	query := `SELECT uuid, user_uuid, total_price, created_at, updated_at FROM orders o`
	var filter string
	var args []any
	if userID != "" {
		filter = `o.user_uuid = ?`
		args = append(args, userID)
		query += ` WHERE ` + filter
	}
	query += ` ORDER BY created_at DESC, uuid`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}

	var orders []model.Order
	for rows.Next() {
		var o model.Order
		if err := rows.Scan(&o.UUID, &o.UserUUID, &o.TotalPrice, &o.CreatedAt, &o.UpdatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	rows.Close()

	if len(orders) == 0 {
		return orders, nil
	}

	lines, err := loadOrderLines(ctx, db, filter, args...)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].Items = lines[orders[i].UUID]
	}
	return orders, nil
}

// loadOrderLines returns the lines of the orders matching filter, a
// condition on the orders table aliased as o, keyed by order UUID. An empty
// filter loads the lines of every order.
func loadOrderLines(ctx context.Context, q querier, filter string, args ...any) (map[string][]model.OrderItem, error) {
	query := `SELECT oi.order_uuid, oi.item_uuid, i.name, oi.quantity, oi.subtotal
		 FROM order_items oi
		 JOIN orders o ON o.uuid = oi.order_uuid
		 JOIN items i ON i.uuid = oi.item_uuid`
	if filter != "" {
		query += ` WHERE ` + filter
	}
	query += ` ORDER BY i.name, oi.item_uuid`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("loading order lines: %w", err)
	}
	defer rows.Close()

	lines := make(map[string][]model.OrderItem)
	for rows.Next() {
		var orderID string
		var l model.OrderItem
		if err := rows.Scan(&orderID, &l.ItemUUID, &l.Name, &l.Quantity, &l.Subtotal); err != nil {
			return nil, fmt.Errorf("scanning order line: %w", err)
		}
		lines[orderID] = append(lines[orderID], l)
	}
	return lines, rows.Err()
}
