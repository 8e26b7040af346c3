package domain

import (
	"time"

	"github.com/google/uuid"
)

// NotificationOutcome summarizes a settlement from the owner's point of view.
type NotificationOutcome string

const (
	OutcomeApproved NotificationOutcome = "APPROVED"
	OutcomeRejected NotificationOutcome = "REJECTED"
	OutcomeReversed NotificationOutcome = "REVERSED"
)

// WalletNotification is a message addressed to a wallet owner.
type WalletNotification struct {
	ID            uuid.UUID           `json:"id"`
	OwnerID       uuid.UUID           `json:"owner_id"`
	TransactionID uuid.UUID           `json:"transaction_id"`
	Outcome       NotificationOutcome `json:"outcome"`
	Title         string              `json:"title"`
	Message       string              `json:"message"`
	Read          bool                `json:"read"`
	CreatedAt     time.Time           `json:"created_at"`
	ReadAt        *time.Time          `json:"read_at,omitempty"`
}
