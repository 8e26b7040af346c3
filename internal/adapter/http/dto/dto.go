package dto

import (
	"time"

	"wallet-ledger/internal/core/domain"

	"github.com/shopspring/decimal"
)

// RegisterRequest is the request body for user registration.
type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50,safe_id"`
	Password string `json:"password" binding:"required,min=8,max=128"`
}

// LoginRequest is the request body for login.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// UserResponse is the public view of a user.
type UserResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// LoginResponse is the response body for successful login.
type LoginResponse struct {
	Token  string `json:"token"`
	Expiry int64  `json:"expiry"` // Unix timestamp
}

// IntakeRequest is the body of a deposit or withdrawal request.
type IntakeRequest struct {
	Amount        *decimal.Decimal `json:"amount" binding:"required,money"`
	Currency      string           `json:"currency" binding:"omitempty,currency"`
	Description   string           `json:"description" binding:"max=255"`
	Location      *string          `json:"location,omitempty" binding:"omitempty,max=100"`
	Date          *time.Time       `json:"date,omitempty"`
	BankAccountID *string          `json:"bankAccountId,omitempty" binding:"omitempty,max=64,safe_id"`
}

// CreateTransactionRequest is the body of POST /wallet/transactions.
type CreateTransactionRequest struct {
	Type string `json:"type" binding:"required"`
	IntakeRequest
}

// SettleRequest is the body of an admin status change. Every field except
// status is an optional override.
type SettleRequest struct {
	Status      string           `json:"status" binding:"required"`
	Amount      *decimal.Decimal `json:"amount,omitempty" binding:"omitempty,money"`
	Description *string          `json:"description,omitempty" binding:"omitempty,max=255"`
	Location    *string          `json:"location,omitempty" binding:"omitempty,max=100"`
	Date        *time.Time       `json:"date,omitempty"`
	AdminNote   *string          `json:"adminNote,omitempty" binding:"omitempty,max=500"`
}

// ReverseRequest is the body of POST /admin/transactions/:id/reverse.
type ReverseRequest struct {
	Status    string  `json:"status" binding:"required"`
	AdminNote *string `json:"adminNote,omitempty" binding:"omitempty,max=500"`
}

// WalletStatusRequest is the body of PATCH /admin/wallets/:id/status.
type WalletStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=ACTIVE SUSPENDED CLOSED"`
}

// SettlementResponse reports the result of a settlement.
type SettlementResponse struct {
	Transaction   *domain.Transaction `json:"transaction"`
	WalletUpdated bool                `json:"walletUpdated"`
	NewBalance    *decimal.Decimal    `json:"newBalance,omitempty"`
}

// TransactionListQuery holds the list filters accepted on the query string.
type TransactionListQuery struct {
	Status   string     `form:"status"`
	Type     string     `form:"type"`
	OwnerID  string     `form:"owner_id" binding:"omitempty,uuid"`
	WalletID string     `form:"wallet_id" binding:"omitempty,uuid"`
	From     *time.Time `form:"from" time_format:"2006-01-02T15:04:05Z07:00"`
	To       *time.Time `form:"to" time_format:"2006-01-02T15:04:05Z07:00"`
	Page     int        `form:"page" binding:"omitempty,min=1"`
	PageSize int        `form:"page_size" binding:"omitempty,min=1"`
}

// NotificationListQuery holds the notification list filters.
type NotificationListQuery struct {
	Unread bool `form:"unread"`
	Limit  int  `form:"limit" binding:"omitempty,min=1"`
}

// NotificationListResponse is a page of notifications plus the unread count.
type NotificationListResponse struct {
	Items  []domain.WalletNotification `json:"items"`
	Unread int64                       `json:"unread"`
}

// MarkAllReadResponse reports how many notifications were marked read.
type MarkAllReadResponse struct {
	Marked int64 `json:"marked"`
}
