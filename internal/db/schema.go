package db

import (
	"database/sql"
	"fmt"
)

// schema is the full database schema. Money columns hold decimal strings.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    uuid          TEXT PRIMARY KEY,
    first_name    TEXT NOT NULL,
    last_name     TEXT NOT NULL,
    email         TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    role          TEXT NOT NULL DEFAULT 'user' CHECK (role IN ('admin', 'user')),
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at    DATETIME
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email_active
    ON users(email) WHERE deleted_at IS NULL;

CREATE TABLE IF NOT EXISTS items (
    uuid         TEXT PRIMARY KEY,
    name         TEXT NOT NULL CHECK (name <> ''),
    price        TEXT NOT NULL CHECK (CAST(price AS REAL) >= 0),
    description  TEXT NOT NULL DEFAULT '',
    category     TEXT NOT NULL,
    availability INTEGER NOT NULL CHECK (availability >= 0),
    created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS orders (
    uuid        TEXT PRIMARY KEY,
    user_uuid   TEXT NOT NULL REFERENCES users(uuid),
    total_price TEXT NOT NULL,
    created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_orders_user ON orders(user_uuid);

CREATE TABLE IF NOT EXISTS order_items (
    order_uuid TEXT NOT NULL REFERENCES orders(uuid),
    item_uuid  TEXT NOT NULL REFERENCES items(uuid),
    quantity   INTEGER NOT NULL CHECK (quantity > 0),
    subtotal   TEXT NOT NULL,
    PRIMARY KEY (order_uuid, item_uuid)
);

CREATE INDEX IF NOT EXISTS idx_order_items_item ON order_items(item_uuid);

CREATE TABLE IF NOT EXISTS addresses (
    uuid          TEXT PRIMARY KEY,
    user_uuid     TEXT NOT NULL REFERENCES users(uuid),
    nation        TEXT NOT NULL,
    city          TEXT NOT NULL,
    postal_code   TEXT NOT NULL,
    local_address TEXT NOT NULL,
    phone         TEXT NOT NULL,
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS favorites (
    user_uuid  TEXT NOT NULL REFERENCES users(uuid),
    item_uuid  TEXT NOT NULL REFERENCES items(uuid) ON DELETE CASCADE,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (user_uuid, item_uuid)
);

CREATE TABLE IF NOT EXISTS pictures (
    uuid       TEXT PRIMARY KEY,
    item_uuid  TEXT NOT NULL REFERENCES items(uuid) ON DELETE CASCADE,
    data       BLOB NOT NULL,
    mime       TEXT NOT NULL,
    width      INTEGER NOT NULL,
    height     INTEGER NOT NULL,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS password_resets (
    code       TEXT PRIMARY KEY,
    user_uuid  TEXT NOT NULL REFERENCES users(uuid),
    expires_at DATETIME NOT NULL,
    enabled    INTEGER NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS revoked_tokens (
    jti        TEXT PRIMARY KEY,
    expires_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`

// migrations is a list of statements applied in order after schema creation.
// Each migration must be idempotent. Append new migrations at the end.
var migrations = []string{
	`CREATE INDEX IF NOT EXISTS idx_items_category ON items(category)`,
	`CREATE INDEX IF NOT EXISTS idx_addresses_user ON addresses(user_uuid)`,
}

// EnsureSchema creates all tables and indexes if they don't already exist.
func EnsureSchema(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}

	for i, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("running migration %d: %w", i+1, err)
		}
	}

	return nil
}
