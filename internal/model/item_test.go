package model

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestItemValidate(t *testing.T) {
	valid := Item{Name: "Widget", Price: decimal.NewFromInt(3), Category: "tools", Availability: 1}
	if err := valid.Validate(); err != nil {
		t.Fatalf("expected valid item, got %v", err)
	}

	free := valid
	free.Price = decimal.Zero
	free.Availability = 0
	if err := free.Validate(); err != nil {
		t.Errorf("zero price and stock must be allowed: %v", err)
	}

	tests := map[string]func(*Item){
		"blank name":            func(i *Item) { i.Name = "  " },
		"blank category":        func(i *Item) { i.Category = "" },
		"negative price":        func(i *Item) { i.Price = decimal.RequireFromString("-0.01") },
		"negative availability": func(i *Item) { i.Availability = -1 },
	}
	for name, mutate := range tests {
		item := valid
		mutate(&item)
		if err := item.Validate(); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestAddressValidate(t *testing.T) {
	a := Address{Nation: "SI", City: "Koper", PostalCode: "6000", LocalAddress: "Pristaniska 1", Phone: "051000000"}
	if err := a.Validate(); err != nil {
		t.Fatalf("expected valid address, got %v", err)
	}

	a.Phone = ""
	if err := a.Validate(); err == nil {
		t.Error("expected error for missing phone")
	}
}
