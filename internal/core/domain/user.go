package domain

import (
	"time"

	"github.com/google/uuid"
)

// Role controls which operations a caller may perform.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
	// RoleSystem is used for actions the service takes on its own behalf,
	// such as auto-approving deposits. It is never issued in a token.
	RoleSystem Role = "SYSTEM"
)

// IsValid reports whether r can be carried by an access token.
func (r Role) IsValid() bool {
	return r == RoleUser || r == RoleAdmin
}

// CanSettle reports whether r may move transactions through the workflow.
func (r Role) CanSettle() bool {
	return r == RoleAdmin || r == RoleSystem
}

// User is an account that owns a wallet and authenticates to the API.
type User struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Actor identifies who is performing an operation.
type Actor struct {
	ID   uuid.UUID
	Role Role
}

// SystemActor is the identity used for automatic settlements.
var SystemActor = Actor{ID: uuid.Nil, Role: RoleSystem}

// IsAdmin reports whether the actor holds the ADMIN role.
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}
