package ports

import (
	"context"
	"time"

	"wallet-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

//go:generate mockgen -destination=mocks/mock_services.go -package=mocks wallet-ledger/internal/core/ports HashService,TokenService,IdempotencyCache,EventPublisher,NotificationPusher,SettlementMetrics,SettlementService,IntakeService,WalletService,ReportingService,NotificationService,AuthService,AuditService

// HashService handles password hashing (Argon2id).
type HashService interface {
	Hash(password string) (string, error)
	Verify(password string, hash string) (bool, error)
}

// TokenService handles JWT token operations.
type TokenService interface {
	Generate(userID uuid.UUID, role domain.Role) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	UserID uuid.UUID
	Role   domain.Role
}

// IdempotencyCache is the Redis-layer idempotency check (fast path).
type IdempotencyCache interface {
	Get(ctx context.Context, key string) ([]byte, error) // Returns cached response JSON or nil
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// --- Event plumbing ---

// EventPublisher emits settlement events to subscribers.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.TransactionSettled) error
}

// EventHandler consumes a single settlement event.
type EventHandler func(ctx context.Context, event domain.TransactionSettled)

// EventSubscriber registers handlers for settlement events.
type EventSubscriber interface {
	Subscribe(ctx context.Context, handler EventHandler) error
}

// NotificationPusher delivers a notification to an owner's live connections.
type NotificationPusher interface {
	Push(ownerID uuid.UUID, n *domain.WalletNotification) int
}

// Settlement result labels reported to SettlementMetrics.
const (
	SettleResultApplied  = "applied"
	SettleResultNoop     = "noop"
	SettleResultRejected = "rejected"
	SettleResultError    = "error"
)

// SettlementMetrics records settlement outcomes.
type SettlementMetrics interface {
	ObserveSettlement(mode domain.SettlementMode, result string, elapsed time.Duration)
	ObserveIntake(txType domain.TransactionType)
}

// --- Service Ports (Business Logic) ---

// SettlementService moves transactions through their status workflow and
// keeps the wallet balance in step with the effective state.
type SettlementService interface {
	Settle(ctx context.Context, req SettleRequest) (*SettlementResult, error)
	Reverse(ctx context.Context, req ReverseRequest) (*SettlementResult, error)
}

// SettleRequest holds validated input for an approval-workflow transition.
type SettleRequest struct {
	Actor         domain.Actor
	TransactionID uuid.UUID
	Status        string
	Overrides     domain.Overrides
	AdminNote     *string
}

// ReverseRequest holds validated input for reversing a completed transaction.
type ReverseRequest struct {
	Actor         domain.Actor
	TransactionID uuid.UUID
	Status        string
	AdminNote     *string
}

// SettlementResult reports the outcome of a settlement.
type SettlementResult struct {
	Transaction   *domain.Transaction
	WalletUpdated bool
	NewBalance    *decimal.Decimal
}

// IntakeService records new deposit and withdrawal requests.
type IntakeService interface {
	CreateDeposit(ctx context.Context, req IntakeRequest) (*domain.Transaction, error)
	CreateWithdrawal(ctx context.Context, req IntakeRequest) (*domain.Transaction, error)
	Create(ctx context.Context, txType string, req IntakeRequest) (*domain.Transaction, error)
}

// IntakeRequest holds validated input for a new transaction.
type IntakeRequest struct {
	OwnerID        uuid.UUID
	Amount         decimal.Decimal
	Currency       string // optional; must match the wallet currency when set
	Description    string
	Location       *string
	Date           *time.Time
	BankAccountID  *string
	IdempotencyKey string
}

// WalletService exposes wallet lookup and administration.
type WalletService interface {
	GetWallet(ctx context.Context, ownerID uuid.UUID) (*domain.Wallet, error)
	SetWalletStatus(ctx context.Context, actor domain.Actor, walletID uuid.UUID, status string) (*domain.Wallet, error)
}

// ReportingService defines listing and reporting business logic.
type ReportingService interface {
	ListTransactions(ctx context.Context, params TransactionListParams) ([]domain.Transaction, int64, error)
	GetTransaction(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Transaction, error)
	GetStats(ctx context.Context, walletID uuid.UUID) (*TransactionStats, error)
	Reconcile(ctx context.Context, walletID uuid.UUID) (*Reconciliation, error)
}

// Reconciliation compares the stored balance with the sum of settled effects.
type Reconciliation struct {
	WalletID      uuid.UUID       `json:"wallet_id"`
	StoredBalance decimal.Decimal `json:"stored_balance"`
	SettledSum    decimal.Decimal `json:"settled_sum"`
	Drift         decimal.Decimal `json:"drift"`
	Consistent    bool            `json:"consistent"`
}

// NotificationService renders settlement events into owner notifications.
type NotificationService interface {
	HandleSettled(ctx context.Context, event domain.TransactionSettled)
	List(ctx context.Context, ownerID uuid.UUID, unreadOnly bool, limit int) ([]domain.WalletNotification, error)
	MarkRead(ctx context.Context, ownerID, id uuid.UUID) error
	MarkAllRead(ctx context.Context, ownerID uuid.UUID) (int64, error)
	UnreadCount(ctx context.Context, ownerID uuid.UUID) (int64, error)
}

// AuthService defines authentication business logic.
type AuthService interface {
	Register(ctx context.Context, req RegisterRequest) (*domain.User, error)
	Login(ctx context.Context, username, password string) (string, time.Time, error) // token, expiry, error
	EnsureAdmin(ctx context.Context, username, password string) (*domain.User, error)
}

// RegisterRequest holds input for user registration.
type RegisterRequest struct {
	Username string
	Password string
}

// AuditService records audit trail entries.
type AuditService interface {
	Log(ctx context.Context, entry *domain.AuditLog)
}

// HealthChecker reports the reachability of one backing dependency.
type HealthChecker interface {
	Ping(ctx context.Context) error
	Name() string
}
