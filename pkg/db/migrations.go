package db

import (
	"context"
	"database/sql"
	"fmt"
)

// u64 values (timestamps, nonces) do not fit BIGINT, hence NUMERIC(20,0).
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS subscriptions (
		id                 UUID PRIMARY KEY,
		expiration_time    NUMERIC(20,0) NOT NULL,
		cur_nonce          NUMERIC(20,0) NOT NULL DEFAULT 0,
		max_nonce          NUMERIC(20,0) NOT NULL,
		authorized_pub_key TEXT NOT NULL DEFAULT '',
		owner_hash         TEXT NOT NULL,
		version            BIGINT NOT NULL DEFAULT 1,
		created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS subscriptions_expiration_idx ON subscriptions (expiration_time)`,
	`CREATE TABLE IF NOT EXISTS used_nonces (
		nonce       NUMERIC(20,0) PRIMARY KEY,
		consumed_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

// Apply creates the schema. Every statement is idempotent.
func Apply(ctx context.Context, db *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
	}
	return nil
}
