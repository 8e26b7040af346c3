package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionSettled is published after a settlement commits a status
// change that the owner should hear about.
type TransactionSettled struct {
	TransactionID uuid.UUID           `json:"transaction_id"`
	OwnerID       uuid.UUID           `json:"owner_id"`
	WalletID      uuid.UUID           `json:"wallet_id"`
	Type          TransactionType     `json:"type"`
	FromStatus    TransactionStatus   `json:"from_status"`
	Status        TransactionStatus   `json:"status"`
	Outcome       NotificationOutcome `json:"outcome"`
	Amount        decimal.Decimal     `json:"amount"`
	Fee           decimal.Decimal     `json:"fee"`
	Currency      string              `json:"currency"`
	AdminNote     *string             `json:"admin_note,omitempty"`
	OccurredAt    time.Time           `json:"occurred_at"`
}

// notificationNamespace seeds the name based UUIDs of notifications.
var notificationNamespace = uuid.MustParse("6f1c2a7e-4b1d-4f0e-9a53-2d8c41e0b7a4")

// Validate rejects events that could not have come from a committed
// settlement, such as payloads read off a shared channel.
func (e TransactionSettled) Validate() error {
	if e.TransactionID == uuid.Nil || e.OwnerID == uuid.Nil {
		return fmt.Errorf("%w: missing transaction or owner id", ErrInvalidEvent)
	}
	if _, ok := ParseTransactionType(string(e.Type)); !ok {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidEvent, e.Type)
	}
	if !e.Status.IsValid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidEvent, e.Status)
	}
	return nil
}

// NotificationID derives the id of the notification for this event. Every
// subscriber computes the same id for the same settlement, so the store
// keeps one row however many instances handle the event.
func (e TransactionSettled) NotificationID() uuid.UUID {
	key := e.TransactionID.String() + ":" + string(e.Status) + ":" + e.OccurredAt.UTC().Format(time.RFC3339Nano)
	return uuid.NewSHA1(notificationNamespace, []byte(key))
}

// OutcomeFor maps a committed transition onto a notification outcome.
// The second result is false when the transition is not worth notifying,
// e.g. PENDING -> PROCESSING.
func OutcomeFor(from, to TransactionStatus) (NotificationOutcome, bool) {
	switch {
	case from.IsSettled() && to.IsRejection():
		return OutcomeReversed, true
	case to.IsSettled():
		return OutcomeApproved, true
	case to.IsRejection():
		return OutcomeRejected, true
	}
	return "", false
}
