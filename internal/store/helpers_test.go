package store

import (
	"context"
	"database/sql"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/erazemk/trgovina/internal/model"
)

func mustCreateUser(t *testing.T, database *sql.DB, email string) *model.User {
	t.Helper()
	u, err := CreateUser(context.Background(), database, "Test", "User", email, "hash", model.RoleUser)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	return u
}

func mustCreateItem(t *testing.T, database *sql.DB, name, price string, availability int) *model.Item {
	t.Helper()
	item, err := CreateItem(context.Background(), database, model.Item{
		Name:         name,
		Price:        decimal.RequireFromString(price),
		Description:  name + " description",
		Category:     "general",
		Availability: availability,
	})
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	return item
}

func availabilityOf(t *testing.T, database *sql.DB, id string) int {
	t.Helper()
	item, err := GetItem(context.Background(), database, id)
	if err != nil || item == nil {
		t.Fatalf("GetItem(%s): %v", id, err)
	}
	return item.Availability
}
