package ports

import (
	"context"
	"time"

	"wallet-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

//go:generate mockgen -destination=mocks/mock_repositories.go -package=mocks wallet-ledger/internal/core/ports WalletRepository,TransactionRepository,UserRepository,NotificationRepository,IdempotencyRepository,AuditRepository,DBTransactor

// WalletRepository defines persistence operations for wallets.
// Methods accepting pgx.Tx are used inside transaction blocks for pessimistic locking.
type WalletRepository interface {
	GetOrCreate(ctx context.Context, ownerID uuid.UUID, currency string) (*domain.Wallet, error)
	GetByOwnerID(ctx context.Context, ownerID uuid.UUID) (*domain.Wallet, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Wallet, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Wallet, error)
	// AdjustBalance adds delta to the balance and returns the updated wallet.
	// It fails with domain.ErrInsufficientBalance when the result would be negative.
	AdjustBalance(ctx context.Context, tx pgx.Tx, id uuid.UUID, delta decimal.Decimal) (*domain.Wallet, error)
	// UpdateStatus never rewrites a CLOSED wallet; it returns
	// domain.ErrWalletClosed instead, even when another writer closed it
	// after the caller last read it.
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.WalletStatus) error
}

// TransactionRepository defines persistence operations for wallet transactions.
type TransactionRepository interface {
	Create(ctx context.Context, tx pgx.Tx, transaction *domain.Transaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Transaction, error)
	// UpdateStatus persists the status, admin note and settled timestamp. It never touches the balance.
	UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.TransactionStatus, adminNote *string, settledAt *time.Time) error
	UpdateDetails(ctx context.Context, tx pgx.Tx, id uuid.UUID, overrides domain.Overrides) error
	// Reporting queries
	List(ctx context.Context, params TransactionListParams) ([]domain.Transaction, int64, error)
	GetStats(ctx context.Context, walletID uuid.UUID) (*TransactionStats, error)
	SumSettledEffects(ctx context.Context, walletID uuid.UUID) (decimal.Decimal, error)
}

// TransactionListParams holds filter + pagination for listing transactions.
type TransactionListParams struct {
	WalletID *uuid.UUID
	OwnerID  *uuid.UUID
	Status   *domain.TransactionStatus
	Type     *domain.TransactionType
	From     *time.Time
	To       *time.Time
	Page     int
	PageSize int
}

// TransactionStats holds aggregated statistics for one wallet.
type TransactionStats struct {
	TotalTransactions int64           `json:"total_transactions"`
	Pending           int64           `json:"pending"`
	Processing        int64           `json:"processing"`
	Completed         int64           `json:"completed"`
	Failed            int64           `json:"failed"`
	Cancelled         int64           `json:"cancelled"`
	TotalDeposited    decimal.Decimal `json:"total_deposited"` // Sum of completed deposit amounts
	TotalWithdrawn    decimal.Decimal `json:"total_withdrawn"` // Sum of completed withdrawal amount+fee
}

// UserRepository defines persistence operations for API users.
type UserRepository interface {
	// Create fails with domain.ErrDuplicate when the username is taken.
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
}

// NotificationRepository defines persistence for owner notifications.
type NotificationRepository interface {
	Create(ctx context.Context, n *domain.WalletNotification) error
	List(ctx context.Context, ownerID uuid.UUID, unreadOnly bool, limit int) ([]domain.WalletNotification, error)
	// MarkRead returns domain.ErrNotFound when the notification does not belong to the owner.
	MarkRead(ctx context.Context, ownerID, id uuid.UUID) error
	MarkAllRead(ctx context.Context, ownerID uuid.UUID) (int64, error)
	CountUnread(ctx context.Context, ownerID uuid.UUID) (int64, error)
}

// IdempotencyRepository defines persistence for idempotency logs (DB backup).
type IdempotencyRepository interface {
	Create(ctx context.Context, tx pgx.Tx, log *domain.IdempotencyLog) error
	Get(ctx context.Context, key string) (*domain.IdempotencyLog, error)
}

// AuditRepository persists audit trail entries.
type AuditRepository interface {
	Create(ctx context.Context, entry *domain.AuditLog) error
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
