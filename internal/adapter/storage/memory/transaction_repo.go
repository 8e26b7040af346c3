package memory

import (
	"context"
	"fmt"
	"slices"
	"time"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// TransactionRepo implements ports.TransactionRepository.
type TransactionRepo struct {
	s *Store
}

// NewTransactionRepo creates a TransactionRepo over s.
func NewTransactionRepo(s *Store) *TransactionRepo {
	return &TransactionRepo{s: s}
}

func cloneTransaction(t *domain.Transaction) *domain.Transaction {
	c := *t
	return &c
}

// Create stores t inside tx.
func (r *TransactionRepo) Create(_ context.Context, tx pgx.Tx, t *domain.Transaction) error {
	return r.s.mutate(tx, func() (func(), error) {
		if _, exists := r.s.txns[t.ID]; exists {
			return nil, fmt.Errorf("insert transaction %s: %w", t.ID, domain.ErrDuplicate)
		}
		r.s.txns[t.ID] = cloneTransaction(t)
		return func() { delete(r.s.txns, t.ID) }, nil
	})
}

// GetByID returns nil, nil when the transaction does not exist.
func (r *TransactionRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Transaction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	t, ok := r.s.txns[id]
	if !ok {
		return nil, nil
	}
	return cloneTransaction(t), nil
}

// GetByIDForUpdate reads the transaction inside tx.
func (r *TransactionRepo) GetByIDForUpdate(ctx context.Context, _ pgx.Tx, id uuid.UUID) (*domain.Transaction, error) {
	return r.GetByID(ctx, id)
}

// UpdateStatus persists status, admin note and settled timestamp.
func (r *TransactionRepo) UpdateStatus(_ context.Context, tx pgx.Tx, id uuid.UUID, status domain.TransactionStatus, adminNote *string, settledAt *time.Time) error {
	return r.s.mutate(tx, func() (func(), error) {
		t, ok := r.s.txns[id]
		if !ok {
			return nil, domain.ErrNotFound
		}
		prev := *t
		t.Status = status
		if adminNote != nil {
			t.AdminNote = adminNote
		}
		t.SettledAt = settledAt
		t.UpdatedAt = time.Now().UTC()
		return func() { *t = prev }, nil
	})
}

// UpdateDetails applies administrator overrides.
func (r *TransactionRepo) UpdateDetails(_ context.Context, tx pgx.Tx, id uuid.UUID, o domain.Overrides) error {
	if o.IsEmpty() {
		return nil
	}
	return r.s.mutate(tx, func() (func(), error) {
		t, ok := r.s.txns[id]
		if !ok {
			return nil, domain.ErrNotFound
		}
		prev := *t
		o.Apply(t)
		t.UpdatedAt = time.Now().UTC()
		return func() { *t = prev }, nil
	})
}

// List filters, orders by date then creation time (newest first) and paginates.
func (r *TransactionRepo) List(_ context.Context, params ports.TransactionListParams) ([]domain.Transaction, int64, error) {
	r.s.mu.RLock()
	result := make([]domain.Transaction, 0)
	for _, t := range r.s.txns {
		if !matches(t, params) {
			continue
		}
		result = append(result, *t)
	}
	r.s.mu.RUnlock()

	slices.SortStableFunc(result, func(a, b domain.Transaction) int {
		if c := b.Date.Compare(a.Date); c != 0 {
			return c
		}
		return b.CreatedAt.Compare(a.CreatedAt)
	})

	total := int64(len(result))
	start := (params.Page - 1) * params.PageSize
	if start < 0 || start >= len(result) {
		return []domain.Transaction{}, total, nil
	}
	end := min(start+params.PageSize, len(result))
	return result[start:end], total, nil
}

func matches(t *domain.Transaction, p ports.TransactionListParams) bool {
	switch {
	case p.WalletID != nil && t.WalletID != *p.WalletID:
		return false
	case p.OwnerID != nil && t.OwnerID != *p.OwnerID:
		return false
	case p.Status != nil && t.Status != *p.Status:
		return false
	case p.Type != nil && t.Type != *p.Type:
		return false
	case p.From != nil && t.Date.Before(*p.From):
		return false
	case p.To != nil && t.Date.After(*p.To):
		return false
	}
	return true
}

// GetStats aggregates the wallet's transactions.
func (r *TransactionRepo) GetStats(_ context.Context, walletID uuid.UUID) (*ports.TransactionStats, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	stats := &ports.TransactionStats{TotalDeposited: decimal.Zero, TotalWithdrawn: decimal.Zero}
	for _, t := range r.s.txns {
		if t.WalletID != walletID {
			continue
		}
		stats.TotalTransactions++
		switch t.Status {
		case domain.TransactionStatusPending:
			stats.Pending++
		case domain.TransactionStatusProcessing:
			stats.Processing++
		case domain.TransactionStatusCompleted:
			stats.Completed++
		case domain.TransactionStatusFailed:
			stats.Failed++
		case domain.TransactionStatusCancelled:
			stats.Cancelled++
		}
		if !t.Status.IsSettled() {
			continue
		}
		switch t.Type {
		case domain.TransactionTypeDeposit:
			stats.TotalDeposited = stats.TotalDeposited.Add(t.Amount)
		case domain.TransactionTypeWithdrawal:
			stats.TotalWithdrawn = stats.TotalWithdrawn.Add(t.Total())
		}
	}
	return stats, nil
}

// SumSettledEffects returns the net effect of all COMPLETED transactions.
func (r *TransactionRepo) SumSettledEffects(_ context.Context, walletID uuid.UUID) (decimal.Decimal, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	sum := decimal.Zero
	for _, t := range r.s.txns {
		if t.WalletID != walletID || !t.Status.IsSettled() {
			continue
		}
		d, err := t.BalanceDelta(domain.EffectApply)
		if err != nil {
			return decimal.Zero, err
		}
		sum = sum.Add(d)
	}
	return sum, nil
}
