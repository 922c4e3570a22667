package sqlite

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS medicines (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL DEFAULT '',
		quantity INTEGER NOT NULL CHECK (quantity >= 0),
		unit TEXT NOT NULL DEFAULT '',
		manufacturer TEXT NOT NULL DEFAULT '',
		batch_number TEXT NOT NULL DEFAULT '',
		purchase_date TEXT NOT NULL DEFAULT '',
		expiry_date TEXT NOT NULL,
		price TEXT,
		created_at TEXT NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS transactions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		code TEXT NOT NULL UNIQUE,
		medicine_id INTEGER NOT NULL REFERENCES medicines(id) ON DELETE CASCADE,
		transaction_type TEXT NOT NULL CHECK (transaction_type IN ('add', 'remove')),
		quantity INTEGER NOT NULL CHECK (quantity > 0),
		transaction_date TEXT NOT NULL,
		notes TEXT NOT NULL DEFAULT ''
	);`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_medicine ON transactions (medicine_id);`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_date ON transactions (transaction_date);`,
	`CREATE TABLE IF NOT EXISTS suppliers (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		contact_person TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		address TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);`,
}

// Migrate creates the tables required by the ledger and supplier stores.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("platform/sqlite: migrate: %w", err)
		}
	}
	return nil
}
