package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Prices are JSON numbers on the wire.
	decimal.MarshalJSONWithoutQuotes = true
}

// Item represents a catalog entry with its available stock.
type Item struct {
	UUID         string          `json:"uuid"`
	Name         string          `json:"name"`
	Price        decimal.Decimal `json:"price"`
	Description  string          `json:"description"`
	Category     string          `json:"category"`
	Availability int             `json:"availability"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// Validate checks the fields a catalog write must satisfy.
func (i *Item) Validate() error {
	if strings.TrimSpace(i.Name) == "" {
		return fmt.Errorf("name required")
	}
	if strings.TrimSpace(i.Category) == "" {
		return fmt.Errorf("category required")
	}
	if i.Price.IsNegative() {
		return fmt.Errorf("price must not be negative")
	}
	if i.Availability < 0 {
		return fmt.Errorf("availability must not be negative")
	}
	return nil
}
