package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Order is a purchase placed by a user. TotalPrice always equals the sum of
// the line subtotals.
type Order struct {
	UUID       string          `json:"uuid"`
	TotalPrice decimal.Decimal `json:"total_price"`
	UserUUID   string          `json:"user"`
	Items      []OrderItem     `json:"items"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// OrderItem is one line of an order. Subtotal is the item price at the time
// of reservation multiplied by Quantity.
type OrderItem struct {
	ItemUUID string          `json:"uuid"`
	Name     string          `json:"name"`
	Quantity int             `json:"quantity"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

// LineRequest is a requested (item, quantity) pair. On the wire it is a
// two-element array: ["<item uuid>", <quantity>].
type LineRequest struct {
	ItemUUID string
	Quantity int
}

// UnmarshalJSON decodes the two-element array form.
func (l *LineRequest) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("line must be an [item, quantity] pair")
	}
	if len(pair) != 2 {
		return fmt.Errorf("line must have exactly two elements, got %d", len(pair))
	}
	if err := json.Unmarshal(pair[0], &l.ItemUUID); err != nil {
		return fmt.Errorf("item id must be a string")
	}
	if err := json.Unmarshal(pair[1], &l.Quantity); err != nil {
		return fmt.Errorf("quantity must be an integer")
	}
	return nil
}

// MarshalJSON encodes the two-element array form.
func (l LineRequest) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{l.ItemUUID, l.Quantity})
}

// LineList is the item list of an order request. It accepts either a JSON
// array of lines or a string holding that array, which is how form-encoded
// clients send it.
type LineList []LineRequest

// UnmarshalJSON decodes either representation.
func (ll *LineList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		return ParseLineList(s, ll)
	}

	var lines []LineRequest
	if err := json.Unmarshal(data, &lines); err != nil {
		return err
	}
	*ll = lines
	return nil
}

// ParseLineList decodes a JSON array of lines held in a string.
func ParseLineList(s string, ll *LineList) error {
	var lines []LineRequest
	if err := json.Unmarshal([]byte(s), &lines); err != nil {
		return fmt.Errorf("items must be a JSON array of [item, quantity] pairs: %w", err)
	}
	*ll = lines
	return nil
}
