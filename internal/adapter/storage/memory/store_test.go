package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPendingDeposit(w *domain.Wallet, amount string) *domain.Transaction {
	now := time.Now().UTC()
	return &domain.Transaction{
		ID:        uuid.New(),
		WalletID:  w.ID,
		OwnerID:   w.OwnerID,
		Type:      domain.TransactionTypeDeposit,
		Status:    domain.TransactionStatusPending,
		Amount:    decimal.RequireFromString(amount),
		Fee:       decimal.Zero,
		Reference: "WTX-" + uuid.NewString(),
		Date:      now,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestWalletRepo_GetOrCreate(t *testing.T) {
	s := NewStore()
	repo := NewWalletRepo(s)
	ctx := context.Background()
	owner := uuid.New()

	first, err := repo.GetOrCreate(ctx, owner, "USD")
	require.NoError(t, err)
	second, err := repo.GetOrCreate(ctx, owner, "EUR")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "USD", second.Currency)

	missing, err := repo.GetByOwnerID(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestWalletRepo_ReturnsCopies(t *testing.T) {
	s := NewStore()
	repo := NewWalletRepo(s)
	ctx := context.Background()

	w, err := repo.GetOrCreate(ctx, uuid.New(), "USD")
	require.NoError(t, err)
	w.Balance = decimal.NewFromInt(1000)

	stored, err := repo.GetByID(ctx, w.ID)
	require.NoError(t, err)
	assert.True(t, stored.Balance.IsZero())
}

func TestWalletRepo_AdjustBalance(t *testing.T) {
	s := NewStore()
	repo := NewWalletRepo(s)
	ctx := context.Background()
	w, err := repo.GetOrCreate(ctx, uuid.New(), "USD")
	require.NoError(t, err)

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	updated, err := repo.AdjustBalance(ctx, tx, w.ID, decimal.RequireFromString("25.50"))
	require.NoError(t, err)
	assert.Equal(t, "25.5", updated.Balance.String())

	_, err = repo.AdjustBalance(ctx, tx, w.ID, decimal.RequireFromString("-30"))
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)

	_, err = repo.AdjustBalance(ctx, tx, uuid.New(), decimal.NewFromInt(1))
	assert.ErrorIs(t, err, domain.ErrNotFound)
	require.NoError(t, tx.Commit(ctx))

	stored, _ := repo.GetByID(ctx, w.ID)
	assert.Equal(t, "25.5", stored.Balance.String())
}

func TestWalletRepo_UpdateStatusKeepsClosed(t *testing.T) {
	s := NewStore()
	repo := NewWalletRepo(s)
	ctx := context.Background()
	w, err := repo.GetOrCreate(ctx, uuid.New(), "USD")
	require.NoError(t, err)

	require.NoError(t, repo.UpdateStatus(ctx, w.ID, domain.WalletStatusClosed))
	assert.ErrorIs(t, repo.UpdateStatus(ctx, w.ID, domain.WalletStatusSuspended), domain.ErrWalletClosed)
	assert.ErrorIs(t, repo.UpdateStatus(ctx, uuid.New(), domain.WalletStatusActive), domain.ErrNotFound)

	stored, err := repo.GetByID(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.WalletStatusClosed, stored.Status)
}

func TestStore_RollbackRestoresState(t *testing.T) {
	s := NewStore()
	wallets := NewWalletRepo(s)
	txns := NewTransactionRepo(s)
	ctx := context.Background()
	w, err := wallets.GetOrCreate(ctx, uuid.New(), "USD")
	require.NoError(t, err)
	txn := newPendingDeposit(w, "100")

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, txns.Create(ctx, tx, txn))
	_, err = wallets.AdjustBalance(ctx, tx, w.ID, txn.Amount)
	require.NoError(t, err)
	now := time.Now().UTC()
	require.NoError(t, txns.UpdateStatus(ctx, tx, txn.ID, domain.TransactionStatusCompleted, nil, &now))
	require.NoError(t, tx.Rollback(ctx))

	stored, err := txns.GetByID(ctx, txn.ID)
	require.NoError(t, err)
	assert.Nil(t, stored)
	wallet, _ := wallets.GetByID(ctx, w.ID)
	assert.True(t, wallet.Balance.IsZero())

	assert.ErrorIs(t, tx.Commit(ctx), pgx.ErrTxClosed)
	assert.ErrorIs(t, tx.Rollback(ctx), pgx.ErrTxClosed)
}

func TestStore_BeginWaitsForOpenTransaction(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	tx, err := s.Begin(ctx)
	require.NoError(t, err)

	waitCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	_, err = s.Begin(waitCtx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, tx.Commit(ctx))
	next, err := s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, next.Rollback(ctx))
}

func TestStore_ConcurrentAdjustmentsNeverOverdraw(t *testing.T) {
	s := NewStore()
	wallets := NewWalletRepo(s)
	ctx := context.Background()
	w, err := wallets.GetOrCreate(ctx, uuid.New(), "USD")
	require.NoError(t, err)

	seed, _ := s.Begin(ctx)
	_, err = wallets.AdjustBalance(ctx, seed, w.ID, decimal.NewFromInt(100))
	require.NoError(t, err)
	require.NoError(t, seed.Commit(ctx))

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tx, err := s.Begin(ctx)
			if err != nil {
				return
			}
			defer tx.Rollback(ctx) //nolint:errcheck
			if _, err := wallets.AdjustBalance(ctx, tx, w.ID, decimal.NewFromInt(-30)); err != nil {
				return
			}
			if tx.Commit(ctx) == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	final, _ := wallets.GetByID(ctx, w.ID)
	assert.Equal(t, 3, succeeded)
	assert.Equal(t, "10", final.Balance.String())
}

func TestStore_ForeignTransactionRejected(t *testing.T) {
	a, b := NewStore(), NewStore()
	ctx := context.Background()
	w, err := NewWalletRepo(b).GetOrCreate(ctx, uuid.New(), "USD")
	require.NoError(t, err)

	tx, err := a.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx) //nolint:errcheck

	_, err = NewWalletRepo(b).AdjustBalance(ctx, tx, w.ID, decimal.NewFromInt(1))
	assert.Error(t, err)
}

func TestTransactionRepo_ListAndStats(t *testing.T) {
	s := NewStore()
	wallets := NewWalletRepo(s)
	txns := NewTransactionRepo(s)
	ctx := context.Background()
	w, _ := wallets.GetOrCreate(ctx, uuid.New(), "USD")

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	deposit := newPendingDeposit(w, "200")
	deposit.Date = base
	deposit.Status = domain.TransactionStatusCompleted
	withdrawal := newPendingDeposit(w, "50")
	withdrawal.Type = domain.TransactionTypeWithdrawal
	withdrawal.Fee = decimal.RequireFromString("1.50")
	withdrawal.Date = base.Add(time.Hour)
	withdrawal.Status = domain.TransactionStatusCompleted
	pending := newPendingDeposit(w, "10")
	pending.Date = base.Add(2 * time.Hour)

	tx, _ := s.Begin(ctx)
	for _, txn := range []*domain.Transaction{deposit, withdrawal, pending} {
		require.NoError(t, txns.Create(ctx, tx, txn))
	}
	require.NoError(t, tx.Commit(ctx))

	page, total, err := txns.List(ctx, ports.TransactionListParams{WalletID: &w.ID, Page: 1, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, page, 2)
	assert.Equal(t, pending.ID, page[0].ID)
	assert.Equal(t, withdrawal.ID, page[1].ID)

	status := domain.TransactionStatusPending
	filtered, total, err := txns.List(ctx, ports.TransactionListParams{Status: &status, Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, pending.ID, filtered[0].ID)

	empty, total, err := txns.List(ctx, ports.TransactionListParams{Page: 5, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Empty(t, empty)

	stats, err := txns.GetStats(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.TotalTransactions)
	assert.Equal(t, int64(1), stats.Pending)
	assert.Equal(t, int64(2), stats.Completed)
	assert.Equal(t, "200", stats.TotalDeposited.String())
	assert.Equal(t, "51.5", stats.TotalWithdrawn.String())

	sum, err := txns.SumSettledEffects(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, "148.5", sum.String())
}

func TestTransactionRepo_UpdateDetails(t *testing.T) {
	s := NewStore()
	wallets := NewWalletRepo(s)
	txns := NewTransactionRepo(s)
	ctx := context.Background()
	w, _ := wallets.GetOrCreate(ctx, uuid.New(), "USD")
	txn := newPendingDeposit(w, "10")

	tx, _ := s.Begin(ctx)
	require.NoError(t, txns.Create(ctx, tx, txn))
	amount := decimal.RequireFromString("12.25")
	desc := "corrected"
	require.NoError(t, txns.UpdateDetails(ctx, tx, txn.ID, domain.Overrides{Amount: &amount, Description: &desc}))
	assert.ErrorIs(t, txns.UpdateDetails(ctx, tx, uuid.New(), domain.Overrides{Description: &desc}), domain.ErrNotFound)
	require.NoError(t, tx.Commit(ctx))

	stored, _ := txns.GetByID(ctx, txn.ID)
	assert.Equal(t, "12.25", stored.Amount.String())
	assert.Equal(t, "corrected", stored.Description)
}

func TestUserRepo_DuplicateUsername(t *testing.T) {
	repo := NewUserRepo(NewStore())
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &domain.User{ID: uuid.New(), Username: "alice", Role: domain.RoleUser}))
	err := repo.Create(ctx, &domain.User{ID: uuid.New(), Username: "alice", Role: domain.RoleUser})
	assert.True(t, errors.Is(err, domain.ErrDuplicate))

	u, err := repo.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)
}

func TestNotificationRepo(t *testing.T) {
	repo := NewNotificationRepo(NewStore())
	ctx := context.Background()
	owner := uuid.New()
	base := time.Now().UTC()

	older := &domain.WalletNotification{ID: uuid.New(), OwnerID: owner, Title: "old", CreatedAt: base}
	newer := &domain.WalletNotification{ID: uuid.New(), OwnerID: owner, Title: "new", CreatedAt: base.Add(time.Minute)}
	other := &domain.WalletNotification{ID: uuid.New(), OwnerID: uuid.New(), CreatedAt: base}
	for _, n := range []*domain.WalletNotification{older, newer, other} {
		require.NoError(t, repo.Create(ctx, n))
	}

	list, err := repo.List(ctx, owner, false, 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "new", list[0].Title)

	assert.ErrorIs(t, repo.MarkRead(ctx, owner, other.ID), domain.ErrNotFound)
	require.NoError(t, repo.MarkRead(ctx, owner, newer.ID))

	unread, err := repo.List(ctx, owner, true, 10)
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Equal(t, older.ID, unread[0].ID)

	n, err := repo.MarkAllRead(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	count, _ := repo.CountUnread(ctx, owner)
	assert.Zero(t, count)
}

func TestNotificationRepo_CreateKeepsFirstCopy(t *testing.T) {
	repo := NewNotificationRepo(NewStore())
	ctx := context.Background()
	owner := uuid.New()
	n := &domain.WalletNotification{ID: uuid.New(), OwnerID: owner, Title: "Deposit approved", CreatedAt: time.Now().UTC()}

	require.NoError(t, repo.Create(ctx, n))
	require.NoError(t, repo.MarkRead(ctx, owner, n.ID))
	require.NoError(t, repo.Create(ctx, n))

	list, err := repo.List(ctx, owner, false, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].Read)
}

func TestIdempotencyRepo_RollbackForgetsKey(t *testing.T) {
	s := NewStore()
	repo := NewIdempotencyRepo(s)
	ctx := context.Background()
	entry := &domain.IdempotencyLog{Key: "owner:k1", TransactionID: uuid.New(), ResponseJSON: []byte(`{}`)}

	tx, _ := s.Begin(ctx)
	require.NoError(t, repo.Create(ctx, tx, entry))
	assert.ErrorIs(t, repo.Create(ctx, tx, entry), domain.ErrDuplicate)
	require.NoError(t, tx.Rollback(ctx))

	got, err := repo.Get(ctx, "owner:k1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestAuditRepo(t *testing.T) {
	repo := NewAuditRepo(NewStore())
	require.NoError(t, repo.Create(context.Background(), &domain.AuditLog{ID: uuid.New(), Action: domain.AuditActionSettle}))
	assert.Len(t, repo.Entries(), 1)
}
