// Package gateway is the client side of the remote ledger service: the system
// of record for account balances. Everything here is read-only except
// Transfer and CreateAccount; local stores only mirror what the ledger
// confirms.
package gateway

import (
	"context"

	"github.com/google/uuid"

	"github.com/campusmint/backend/internal/models"
)

// Ledger is the contract this service consumes from the remote ledger.
type Ledger interface {
	// GetAccount returns the account or a NotFound taxonomy error.
	GetAccount(ctx context.Context, accountID uuid.UUID) (*models.Account, error)

	// GetAccounts resolves a batch of accounts. Unknown ids are simply
	// absent from the result.
	GetAccounts(ctx context.Context, accountIDs []uuid.UUID) ([]models.Account, error)

	// Transfer moves amount between accounts. The idempotency key must be
	// generated fresh per logical attempt; the ledger applies each key at
	// most once. Failures map to the taxonomy: insufficient balance ->
	// BadRequest, missing account -> NotFound, outage -> Unavailable.
	Transfer(ctx context.Context, from, to uuid.UUID, amount int64, idempotencyKey, description string) error

	// CreateAccount opens a new ledger account.
	CreateAccount(ctx context.Context, canOverdraft bool) (*models.Account, error)
}
