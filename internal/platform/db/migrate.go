package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS medicines (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL DEFAULT '',
		quantity BIGINT NOT NULL CHECK (quantity >= 0),
		unit TEXT NOT NULL DEFAULT '',
		manufacturer TEXT NOT NULL DEFAULT '',
		batch_number TEXT NOT NULL DEFAULT '',
		purchase_date TEXT NOT NULL DEFAULT '',
		expiry_date TEXT NOT NULL,
		price NUMERIC(12,2) CHECK (price >= 0),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_medicines_name ON medicines (name)`,
	`CREATE TABLE IF NOT EXISTS transactions (
		id BIGSERIAL PRIMARY KEY,
		code TEXT NOT NULL UNIQUE,
		medicine_id BIGINT NOT NULL REFERENCES medicines(id) ON DELETE CASCADE,
		transaction_type TEXT NOT NULL CHECK (transaction_type IN ('add', 'remove')),
		quantity BIGINT NOT NULL CHECK (quantity > 0),
		transaction_date TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		notes TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_medicine ON transactions (medicine_id)`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_date ON transactions (transaction_date DESC)`,
	`CREATE TABLE IF NOT EXISTS suppliers (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		contact_person TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		address TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS audit_logs (
		id BIGSERIAL PRIMARY KEY,
		action TEXT NOT NULL,
		entity TEXT NOT NULL,
		entity_id TEXT NOT NULL,
		meta JSONB,
		occurred_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

// Migrate applies the schema idempotently.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	return WithTx(ctx, pool, func(tx pgx.Tx) error {
		for _, stmt := range schema {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("platform/db: migrate: %w", err)
			}
		}
		return nil
	})
}
