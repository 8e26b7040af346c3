package domain

import (
	"time"

	"github.com/google/uuid"
)

// IdempotencyLog remembers the transaction created for a client-supplied
// idempotency key so a retried request returns the original result.
type IdempotencyLog struct {
	Key           string    `json:"key"` // Format: "owner_id:idempotency_key"
	TransactionID uuid.UUID `json:"transaction_id"`
	ResponseJSON  []byte    `json:"response_json"`
	CreatedAt     time.Time `json:"created_at"`
}

// BuildIdempotencyKey scopes a client key to its owner.
func BuildIdempotencyKey(ownerID uuid.UUID, key string) string {
	return ownerID.String() + ":" + key
}
