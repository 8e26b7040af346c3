package postgres

import (
	"context"
	"errors"
	"fmt"

	"wallet-ledger/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// IdempotencyRepo stores the durable copy of Idempotency-Key claims.
type IdempotencyRepo struct {
	pool Pool
}

func NewIdempotencyRepo(pool Pool) *IdempotencyRepo {
	return &IdempotencyRepo{pool: pool}
}

// Create claims entry.Key inside tx. A key that is already claimed, or that a
// concurrent transaction claims first, yields domain.ErrDuplicate; the insert
// never raises a constraint error, so tx stays usable for the caller's rollback.
func (r *IdempotencyRepo) Create(ctx context.Context, tx pgx.Tx, entry *domain.IdempotencyLog) error {
	tag, err := tx.Exec(ctx, `INSERT INTO idempotency_logs (key, transaction_id, response_json, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (key) DO NOTHING`,
		entry.Key, entry.TransactionID, entry.ResponseJSON, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("claim idempotency key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrDuplicate
	}
	return nil
}

// Get returns the claim for key, or nil when the key is unused.
func (r *IdempotencyRepo) Get(ctx context.Context, key string) (*domain.IdempotencyLog, error) {
	entry := &domain.IdempotencyLog{}
	err := r.pool.QueryRow(ctx,
		`SELECT key, transaction_id, response_json, created_at FROM idempotency_logs WHERE key = $1`, key,
	).Scan(&entry.Key, &entry.TransactionID, &entry.ResponseJSON, &entry.CreatedAt)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("get idempotency log: %w", err)
	}
	return entry, nil
}
