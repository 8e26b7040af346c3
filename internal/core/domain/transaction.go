package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType represents the kind of wallet movement.
type TransactionType string

const (
	TransactionTypeDeposit    TransactionType = "DEPOSIT"
	TransactionTypeWithdrawal TransactionType = "WITHDRAWAL"
	TransactionTypeTransfer   TransactionType = "TRANSFER"
	TransactionTypeFee        TransactionType = "FEE"
	TransactionTypeRefund     TransactionType = "REFUND"
)

// ParseTransactionType converts a raw string into a known TransactionType.
func ParseTransactionType(s string) (TransactionType, bool) {
	t := TransactionType(s)
	switch t {
	case TransactionTypeDeposit, TransactionTypeWithdrawal, TransactionTypeTransfer,
		TransactionTypeFee, TransactionTypeRefund:
		return t, true
	}
	return "", false
}

// TransactionStatus represents the lifecycle state of a wallet transaction.
type TransactionStatus string

const (
	TransactionStatusPending    TransactionStatus = "PENDING"
	TransactionStatusProcessing TransactionStatus = "PROCESSING"
	TransactionStatusCompleted  TransactionStatus = "COMPLETED"
	TransactionStatusFailed     TransactionStatus = "FAILED"
	TransactionStatusCancelled  TransactionStatus = "CANCELLED"
)

// ParseTransactionStatus converts a raw string into a known TransactionStatus.
func ParseTransactionStatus(s string) (TransactionStatus, bool) {
	st := TransactionStatus(s)
	if st.IsValid() {
		return st, true
	}
	return "", false
}

// IsValid reports whether s is a member of the status enum.
func (s TransactionStatus) IsValid() bool {
	switch s {
	case TransactionStatusPending, TransactionStatusProcessing, TransactionStatusCompleted,
		TransactionStatusFailed, TransactionStatusCancelled:
		return true
	}
	return false
}

// IsSettled reports whether the balance effect of a transaction in this
// status is live on the wallet.
func (s TransactionStatus) IsSettled() bool {
	return s == TransactionStatusCompleted
}

// IsTerminal returns true for statuses that end the normal workflow.
// COMPLETED can still leave through an administrative reversal.
func (s TransactionStatus) IsTerminal() bool {
	switch s {
	case TransactionStatusCompleted, TransactionStatusFailed, TransactionStatusCancelled:
		return true
	}
	return false
}

// IsRejection reports whether s ends a transaction without a balance effect.
func (s TransactionStatus) IsRejection() bool {
	return s == TransactionStatusFailed || s == TransactionStatusCancelled
}

// Transaction is a balance-affecting request against a wallet.
// Amount is always positive; the direction comes from Type.
type Transaction struct {
	ID            uuid.UUID         `json:"id"`
	WalletID      uuid.UUID         `json:"wallet_id"`
	OwnerID       uuid.UUID         `json:"owner_id"`
	Type          TransactionType   `json:"type"`
	Status        TransactionStatus `json:"status"`
	Amount        decimal.Decimal   `json:"amount"`
	Fee           decimal.Decimal   `json:"fee"`
	Reference     string            `json:"reference"`
	Description   string            `json:"description"`
	Location      *string           `json:"location,omitempty"`
	BankAccountID *string           `json:"bank_account_id,omitempty"`
	AdminNote     *string           `json:"admin_note,omitempty"`
	Date          time.Time         `json:"date"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
	SettledAt     *time.Time        `json:"settled_at,omitempty"`
}

// Total returns amount plus fee, the figure debited by a completed withdrawal.
func (t *Transaction) Total() decimal.Decimal {
	return t.Amount.Add(t.Fee)
}

// Overrides carries administrator edits applied while approving a transaction.
type Overrides struct {
	Amount      *decimal.Decimal
	Description *string
	Location    *string
	Date        *time.Time
}

// IsEmpty returns true when no field is overridden.
func (o Overrides) IsEmpty() bool {
	return o.Amount == nil && o.Description == nil && o.Location == nil && o.Date == nil
}

// Apply copies the overridden fields onto t.
func (o Overrides) Apply(t *Transaction) {
	if o.Amount != nil {
		t.Amount = *o.Amount
	}
	if o.Description != nil {
		t.Description = *o.Description
	}
	if o.Location != nil {
		t.Location = o.Location
	}
	if o.Date != nil {
		t.Date = *o.Date
	}
}
