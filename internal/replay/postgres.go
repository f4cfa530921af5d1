package replay

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
)

// PostgresGuard stores consumed nonces in the used_nonces table. The primary
// key makes the insert the test-and-set.
type PostgresGuard struct {
	db *sql.DB
}

func NewPostgresGuard(db *sql.DB) *PostgresGuard {
	return &PostgresGuard{db: db}
}

func (g *PostgresGuard) TryConsume(ctx context.Context, nonce uint64) (bool, error) {
	res, err := g.db.ExecContext(ctx,
		`INSERT INTO used_nonces (nonce) VALUES ($1) ON CONFLICT DO NOTHING`,
		strconv.FormatUint(nonce, 10))
	if err != nil {
		return false, fmt.Errorf("insert nonce: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
