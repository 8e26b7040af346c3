package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultCurrency is used when a wallet is created without an explicit currency.
const DefaultCurrency = "USD"

// WalletStatus represents the administrative state of a wallet.
type WalletStatus string

const (
	WalletStatusActive    WalletStatus = "ACTIVE"
	WalletStatusSuspended WalletStatus = "SUSPENDED"
	WalletStatusClosed    WalletStatus = "CLOSED"
)

// IsValid reports whether s is a known wallet status.
func (s WalletStatus) IsValid() bool {
	switch s {
	case WalletStatusActive, WalletStatusSuspended, WalletStatusClosed:
		return true
	}
	return false
}

// Wallet is the single running balance held for one owner.
type Wallet struct {
	ID        uuid.UUID       `json:"id"`
	OwnerID   uuid.UUID       `json:"owner_id"`
	Balance   decimal.Decimal `json:"balance"`
	Currency  string          `json:"currency"`
	Status    WalletStatus    `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// NewWallet builds a fresh ACTIVE wallet with a zero balance.
func NewWallet(ownerID uuid.UUID, currency string) *Wallet {
	if currency == "" {
		currency = DefaultCurrency
	}
	now := time.Now().UTC()
	return &Wallet{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		Balance:   decimal.Zero,
		Currency:  currency,
		Status:    WalletStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsActive returns true if the wallet accepts new transactions.
func (w *Wallet) IsActive() bool {
	return w.Status == WalletStatusActive
}

// CanTransitionTo reports whether an administrator may move the wallet to next.
// CLOSED is terminal.
func (w *Wallet) CanTransitionTo(next WalletStatus) bool {
	if !next.IsValid() {
		return false
	}
	return w.Status != WalletStatusClosed
}
