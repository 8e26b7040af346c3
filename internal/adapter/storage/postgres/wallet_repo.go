package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"wallet-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const walletColumns = `id, owner_id, balance::text, currency, status, created_at, updated_at`

// WalletRepo implements ports.WalletRepository.
type WalletRepo struct {
	pool Pool
}

// NewWalletRepo creates a new WalletRepo.
func NewWalletRepo(pool Pool) *WalletRepo {
	return &WalletRepo{pool: pool}
}

// GetOrCreate returns the owner's wallet, inserting an empty ACTIVE one on first use.
// Concurrent callers converge on the same row through the owner_id unique constraint.
func (r *WalletRepo) GetOrCreate(ctx context.Context, ownerID uuid.UUID, currency string) (*domain.Wallet, error) {
	if currency == "" {
		currency = domain.DefaultCurrency
	}
	query := `INSERT INTO wallets (id, owner_id, balance, currency, status, created_at, updated_at)
		VALUES ($1, $2, 0, $3, $4, $5, $5)
		ON CONFLICT (owner_id) DO NOTHING`

	_, err := r.pool.Exec(ctx, query, uuid.New(), ownerID, currency, domain.WalletStatusActive, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("insert wallet: %w", err)
	}

	w, err := r.GetByOwnerID(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if w == nil {
		return nil, fmt.Errorf("wallet for owner %s vanished after insert", ownerID)
	}
	return w, nil
}

// GetByOwnerID fetches the wallet owned by ownerID (non-locking read).
func (r *WalletRepo) GetByOwnerID(ctx context.Context, ownerID uuid.UUID) (*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE owner_id = $1`

	w, err := scanWallet(r.pool.QueryRow(ctx, query, ownerID))
	if err != nil {
		return nil, fmt.Errorf("get wallet by owner id: %w", err)
	}
	return w, nil
}

// GetByID fetches a wallet by its UUID (without locking).
func (r *WalletRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE id = $1`

	w, err := scanWallet(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("get wallet by id: %w", err)
	}
	return w, nil
}

// GetByIDForUpdate fetches a wallet by ID with pessimistic locking.
// This MUST be called within a transaction.
func (r *WalletRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE id = $1 FOR UPDATE`

	w, err := scanWallet(tx.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("get wallet for update by id: %w", err)
	}
	return w, nil
}

// AdjustBalance adds delta to the wallet balance in a single conditional update.
// The row is left untouched when the result would go below zero.
func (r *WalletRepo) AdjustBalance(ctx context.Context, tx pgx.Tx, id uuid.UUID, delta decimal.Decimal) (*domain.Wallet, error) {
	query := `UPDATE wallets SET balance = balance + $1::numeric, updated_at = NOW()
		WHERE id = $2 AND balance + $1::numeric >= 0
		RETURNING ` + walletColumns

	w, err := scanWallet(tx.QueryRow(ctx, query, delta.String(), id))
	if err != nil {
		return nil, fmt.Errorf("adjust wallet balance: %w", err)
	}
	if w != nil {
		return w, nil
	}

	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM wallets WHERE id = $1)`, id).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check wallet exists: %w", err)
	}
	if !exists {
		return nil, domain.ErrNotFound
	}
	return nil, domain.ErrInsufficientBalance
}

// UpdateStatus sets the administrative status of a wallet. The CLOSED guard
// is part of the UPDATE so a concurrent close cannot be overwritten.
func (r *WalletRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.WalletStatus) error {
	query := `UPDATE wallets SET status = $1, updated_at = NOW() WHERE id = $2 AND status <> $3`

	tag, err := r.pool.Exec(ctx, query, status, id, domain.WalletStatusClosed)
	if err != nil {
		return fmt.Errorf("update wallet status: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM wallets WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("check wallet exists: %w", err)
	}
	if !exists {
		return domain.ErrNotFound
	}
	return domain.ErrWalletClosed
}

// scanWallet returns nil, nil when the row does not exist.
func scanWallet(row pgx.Row) (*domain.Wallet, error) {
	w := &domain.Wallet{}
	var balance string
	err := row.Scan(&w.ID, &w.OwnerID, &balance, &w.Currency, &w.Status, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if w.Balance, err = decimal.NewFromString(balance); err != nil {
		return nil, fmt.Errorf("parse balance %q: %w", balance, err)
	}
	return w, nil
}
