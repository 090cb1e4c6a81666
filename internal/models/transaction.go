package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TransactionType classifies a completed money movement.
type TransactionType string

const (
	// TransactionTransfer is a project-to-user payout.
	TransactionTransfer TransactionType = "TRANSFER"
	// TransactionBillPayment is a user paying a project's bill.
	TransactionBillPayment TransactionType = "BILL_PAYMENT"
	// TransactionSystem is a platform-issued grant or adjustment.
	TransactionSystem TransactionType = "SYSTEM"
)

// ParseTransactionType maps a stored string back to a TransactionType.
func ParseTransactionType(s string) (TransactionType, error) {
	switch TransactionType(s) {
	case TransactionTransfer, TransactionBillPayment, TransactionSystem:
		return TransactionType(s), nil
	}
	return "", fmt.Errorf("unknown transaction type %q", s)
}

// Transaction is an immutable record of a ledger-confirmed transfer.
// Rows are append-only: never updated or deleted after insertion.
type Transaction struct {
	ID          uuid.UUID       `json:"id"`
	Type        TransactionType `json:"type"`
	Amount      int64           `json:"amount"`
	ProjectID   *uuid.UUID      `json:"projectId,omitempty"`
	UserID      *uuid.UUID      `json:"userId,omitempty"`
	Description string          `json:"description,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// NewTransaction builds a transaction record. A non-positive amount is a
// caller bug, not a business-rule violation, so it surfaces as a plain error.
func NewTransaction(txType TransactionType, amount int64, projectID, userID *uuid.UUID, description string, createdAt time.Time) (Transaction, error) {
	if amount <= 0 {
		return Transaction{}, fmt.Errorf("transaction amount must be positive, got %d", amount)
	}
	return Transaction{
		ID:          NewID(),
		Type:        txType,
		Amount:      amount,
		ProjectID:   projectID,
		UserID:      userID,
		Description: description,
		CreatedAt:   createdAt,
	}, nil
}
