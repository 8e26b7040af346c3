package memory

import (
	"context"
	"time"

	"wallet-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// WalletRepo implements ports.WalletRepository.
type WalletRepo struct {
	s *Store
}

// NewWalletRepo creates a WalletRepo over s.
func NewWalletRepo(s *Store) *WalletRepo {
	return &WalletRepo{s: s}
}

func cloneWallet(w *domain.Wallet) *domain.Wallet {
	c := *w
	return &c
}

// GetOrCreate returns the owner's wallet, creating an empty one on first use.
func (r *WalletRepo) GetOrCreate(ctx context.Context, ownerID uuid.UUID, currency string) (*domain.Wallet, error) {
	if w, _ := r.GetByOwnerID(ctx, ownerID); w != nil {
		return w, nil
	}

	var out *domain.Wallet
	err := r.s.write(ctx, func() error {
		if id, ok := r.s.walletByOwner[ownerID]; ok {
			out = cloneWallet(r.s.wallets[id])
			return nil
		}
		w := domain.NewWallet(ownerID, currency)
		r.s.wallets[w.ID] = w
		r.s.walletByOwner[ownerID] = w.ID
		out = cloneWallet(w)
		return nil
	})
	return out, err
}

// GetByOwnerID returns nil, nil when the owner has no wallet yet.
func (r *WalletRepo) GetByOwnerID(_ context.Context, ownerID uuid.UUID) (*domain.Wallet, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	id, ok := r.s.walletByOwner[ownerID]
	if !ok {
		return nil, nil
	}
	return cloneWallet(r.s.wallets[id]), nil
}

// GetByID returns nil, nil when the wallet does not exist.
func (r *WalletRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Wallet, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	w, ok := r.s.wallets[id]
	if !ok {
		return nil, nil
	}
	return cloneWallet(w), nil
}

// GetByIDForUpdate reads the wallet inside tx. The open transaction already
// excludes other writers.
func (r *WalletRepo) GetByIDForUpdate(ctx context.Context, _ pgx.Tx, id uuid.UUID) (*domain.Wallet, error) {
	return r.GetByID(ctx, id)
}

// AdjustBalance adds delta to the balance unless the result would be negative.
func (r *WalletRepo) AdjustBalance(_ context.Context, tx pgx.Tx, id uuid.UUID, delta decimal.Decimal) (*domain.Wallet, error) {
	var out *domain.Wallet
	err := r.s.mutate(tx, func() (func(), error) {
		w, ok := r.s.wallets[id]
		if !ok {
			return nil, domain.ErrNotFound
		}
		next := w.Balance.Add(delta)
		if next.IsNegative() {
			return nil, domain.ErrInsufficientBalance
		}
		prevBalance, prevUpdated := w.Balance, w.UpdatedAt
		w.Balance = next
		w.UpdatedAt = time.Now().UTC()
		out = cloneWallet(w)
		return func() {
			w.Balance = prevBalance
			w.UpdatedAt = prevUpdated
		}, nil
	})
	return out, err
}

// UpdateStatus sets the administrative status of a wallet.
func (r *WalletRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.WalletStatus) error {
	return r.s.write(ctx, func() error {
		w, ok := r.s.wallets[id]
		if !ok {
			return domain.ErrNotFound
		}
		if w.Status == domain.WalletStatusClosed {
			return domain.ErrWalletClosed
		}
		w.Status = status
		w.UpdatedAt = time.Now().UTC()
		return nil
	})
}
