package model

import (
	"fmt"
	"strings"
	"time"
)

// Address is a shipping address belonging to a user. A user may hold several.
type Address struct {
	UUID         string    `json:"uuid"`
	UserUUID     string    `json:"user"`
	Nation       string    `json:"nation"`
	City         string    `json:"city"`
	PostalCode   string    `json:"postal_code"`
	LocalAddress string    `json:"local_address"`
	Phone        string    `json:"phone"`
	CreatedAt    time.Time `json:"created_at"`
}

// Validate checks that every address field is filled in.
func (a *Address) Validate() error {
	fields := []struct {
		name, value string
	}{
		{"nation", a.Nation},
		{"city", a.City},
		{"postal_code", a.PostalCode},
		{"local_address", a.LocalAddress},
		{"phone", a.Phone},
	}
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			return fmt.Errorf("%s required", f.name)
		}
	}
	return nil
}
