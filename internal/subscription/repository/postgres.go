package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"priceoracle/internal/apperr"
	"priceoracle/internal/subscription"
)

const selectColumns = `SELECT id, expiration_time, cur_nonce, max_nonce, authorized_pub_key, owner_hash, version, created_at
	FROM subscriptions`

// subscriptionRow mirrors the subscriptions table. The NUMERIC(20,0) columns
// come back as decimal strings.
type subscriptionRow struct {
	ID               string    `db:"id"`
	ExpirationTime   string    `db:"expiration_time"`
	CurNonce         string    `db:"cur_nonce"`
	MaxNonce         string    `db:"max_nonce"`
	AuthorizedPubKey string    `db:"authorized_pub_key"`
	OwnerHash        string    `db:"owner_hash"`
	Version          int64     `db:"version"`
	CreatedAt        time.Time `db:"created_at"`
}

type SubscriptionRepository struct {
	db *sqlx.DB
}

func NewSubscriptionRepository(db *sqlx.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

func (r *SubscriptionRepository) Create(ctx context.Context, sub *subscription.Subscription) error {
	sub.ID = uuid.NewString()
	sub.Version = 1

	err := r.db.QueryRowContext(ctx,
		`INSERT INTO subscriptions (id, expiration_time, cur_nonce, max_nonce, authorized_pub_key, owner_hash, version)
		 VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING created_at`,
		sub.ID, u64(sub.ExpirationTime), u64(sub.CurNonce), u64(sub.MaxNonce),
		sub.AuthorizedPubKey, sub.OwnerHash, sub.Version).
		Scan(&sub.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert subscription: %w", err)
	}
	return nil
}

func (r *SubscriptionRepository) GetByID(ctx context.Context, id string) (*subscription.Subscription, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperr.ErrNotFound
	}
	var row subscriptionRow
	if err := r.db.GetContext(ctx, &row, selectColumns+` WHERE id = $1`, id); err != nil {
		return nil, notFound(err)
	}
	return row.toModel()
}

// Update locks the row, applies fn and writes the result back in one
// transaction. fn returning an error rolls everything back.
func (r *SubscriptionRepository) Update(ctx context.Context, id string, fn func(*subscription.Subscription) error) (*subscription.Subscription, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperr.ErrNotFound
	}

	tx, err := r.beginTransaction(ctx)
	if err != nil {
		return nil, err
	}

	var row subscriptionRow
	if err := tx.GetContext(ctx, &row, selectColumns+` WHERE id = $1 FOR UPDATE`, id); err != nil {
		r.rollback(tx)
		return nil, notFound(err)
	}
	sub, err := row.toModel()
	if err != nil {
		r.rollback(tx)
		return nil, err
	}

	prev := sub.Version
	if err := fn(sub); err != nil {
		r.rollback(tx)
		return nil, err
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE subscriptions
		 SET expiration_time = $2, cur_nonce = $3, max_nonce = $4, authorized_pub_key = $5, version = version + 1
		 WHERE id = $1 AND version = $6`,
		id, u64(sub.ExpirationTime), u64(sub.CurNonce), u64(sub.MaxNonce), sub.AuthorizedPubKey, prev)
	if err != nil {
		r.rollback(tx)
		return nil, fmt.Errorf("update subscription: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil || n != 1 {
		r.rollback(tx)
		return nil, fmt.Errorf("update subscription %s: version %d is stale", id, prev)
	}

	if err := r.commit(tx); err != nil {
		return nil, fmt.Errorf("commit subscription update: %w", err)
	}
	sub.ID = id
	sub.Version = prev + 1
	return sub, nil
}

func (r *SubscriptionRepository) CountByState(ctx context.Context, now uint64) (map[subscription.State]int, error) {
	var counts struct {
		Active  int `db:"active"`
		Expired int `db:"expired"`
	}
	err := r.db.GetContext(ctx, &counts,
		`SELECT COUNT(*) FILTER (WHERE expiration_time >= $1) AS active,
		        COUNT(*) FILTER (WHERE expiration_time < $1) AS expired
		 FROM subscriptions`, u64(now))
	if err != nil {
		return nil, fmt.Errorf("count subscriptions: %w", err)
	}
	return map[subscription.State]int{
		subscription.StateActive:  counts.Active,
		subscription.StateExpired: counts.Expired,
	}, nil
}

func (r *SubscriptionRepository) beginTransaction(ctx context.Context) (*sqlx.Tx, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return tx, nil
}

func (r *SubscriptionRepository) rollback(tx *sqlx.Tx) {
	if tx != nil {
		tx.Rollback()
	}
}

func (r *SubscriptionRepository) commit(tx *sqlx.Tx) error {
	if tx != nil {
		return tx.Commit()
	}
	return nil
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.ErrNotFound
	}
	return err
}

func (row subscriptionRow) toModel() (*subscription.Subscription, error) {
	sub := &subscription.Subscription{
		ID:               row.ID,
		AuthorizedPubKey: row.AuthorizedPubKey,
		OwnerHash:        row.OwnerHash,
		Version:          row.Version,
		CreatedAt:        row.CreatedAt,
	}
	var err error
	if sub.ExpirationTime, err = strconv.ParseUint(row.ExpirationTime, 10, 64); err != nil {
		return nil, fmt.Errorf("expiration_time %q: %w", row.ExpirationTime, err)
	}
	if sub.CurNonce, err = strconv.ParseUint(row.CurNonce, 10, 64); err != nil {
		return nil, fmt.Errorf("cur_nonce %q: %w", row.CurNonce, err)
	}
	if sub.MaxNonce, err = strconv.ParseUint(row.MaxNonce, 10, 64); err != nil {
		return nil, fmt.Errorf("max_nonce %q: %w", row.MaxNonce, err)
	}
	return sub, nil
}

// u64 passes an unsigned value to a NUMERIC column; database/sql rejects
// uint64 values with the high bit set.
func u64(v uint64) string {
	return strconv.FormatUint(v, 10)
}
