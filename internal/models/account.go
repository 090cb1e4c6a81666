package models

import (
	"time"

	"github.com/google/uuid"
)

// Account is a ledger-service account as reported by the ledger gateway.
// The gateway owns it; this service never mutates balances directly.
type Account struct {
	AccountID    uuid.UUID `json:"accountId"`
	Balance      int64     `json:"balance"`
	CanOverdraft bool      `json:"canOverdraft"`
}

// User is a platform member holding a ledger account.
type User struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	AccountID uuid.UUID `json:"accountId"`
	CreatedAt time.Time `json:"createdAt"`
}

// Project is a campus project that bills users and pays out rewards.
type Project struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	OwnerUserID uuid.UUID `json:"ownerUserId"`
	AccountID   uuid.UUID `json:"accountId"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}
