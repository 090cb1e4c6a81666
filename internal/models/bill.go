package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// BillStatus is the lifecycle state of a bill.
type BillStatus string

const (
	// BillPending awaits the billed user's decision.
	BillPending BillStatus = "PENDING"
	// BillProcessing has been approved and is being settled against the ledger.
	BillProcessing BillStatus = "PROCESSING"
	// BillCompleted settled successfully; a BILL_PAYMENT transaction exists.
	BillCompleted BillStatus = "COMPLETED"
	// BillRejected was declined by the user or cancelled by the project.
	BillRejected BillStatus = "REJECTED"
	// BillFailed entered processing but the ledger transfer failed. Terminal.
	BillFailed BillStatus = "FAILED"
)

// ParseBillStatus maps a stored string back to a BillStatus.
func ParseBillStatus(s string) (BillStatus, error) {
	switch BillStatus(s) {
	case BillPending, BillProcessing, BillCompleted, BillRejected, BillFailed:
		return BillStatus(s), nil
	}
	return "", fmt.Errorf("unknown bill status %q", s)
}

// Expected state-machine failures. These are business outcomes, not faults:
// transition methods return them instead of panicking so callers can translate
// them into the API error taxonomy.
var (
	// ErrBillAlreadyProcessed means the bill left PENDING before this call.
	ErrBillAlreadyProcessed = errors.New("bill has already been processed")
	// ErrBillNotProcessing means the bill is not in PROCESSING.
	ErrBillNotProcessing = errors.New("bill is not being processed")
)

// Bill is a pending request for a user to pay a project. Transitions return
// a fresh copy; the receiver is never mutated.
type Bill struct {
	ID          uuid.UUID  `json:"id"`
	Amount      int64      `json:"amount"`
	UserID      uuid.UUID  `json:"userId"`
	ProjectID   uuid.UUID  `json:"projectId"`
	Description string     `json:"description,omitempty"`
	Status      BillStatus `json:"status"`
	// IdempotencyKey is set when the bill enters PROCESSING. It identifies
	// the ledger transfer attempt, so a recovery sweep can ask the ledger
	// what happened to a bill stuck mid-settlement.
	IdempotencyKey string    `json:"-"`
	CreatedAt      time.Time `json:"createdAt"`
}

// NewBill builds a PENDING bill. A non-positive amount is rejected at
// construction time.
func NewBill(amount int64, userID, projectID uuid.UUID, description string, createdAt time.Time) (Bill, error) {
	if amount <= 0 {
		return Bill{}, fmt.Errorf("bill amount must be positive, got %d", amount)
	}
	return Bill{
		ID:          NewID(),
		Amount:      amount,
		UserID:      userID,
		ProjectID:   projectID,
		Description: description,
		Status:      BillPending,
		CreatedAt:   createdAt,
	}, nil
}

// IsPending reports whether the bill awaits a decision.
func (b Bill) IsPending() bool { return b.Status == BillPending }

// IsProcessing reports whether the bill is mid-settlement.
func (b Bill) IsProcessing() bool { return b.Status == BillProcessing }

// IsTerminal reports whether no further transition may leave this state.
func (b Bill) IsTerminal() bool {
	return b.Status == BillCompleted || b.Status == BillRejected || b.Status == BillFailed
}

// Approve moves PENDING -> PROCESSING and records the idempotency key the
// upcoming ledger transfer will carry.
func (b Bill) Approve(idempotencyKey string) (Bill, error) {
	if !b.IsPending() {
		return Bill{}, ErrBillAlreadyProcessed
	}
	next := b.withStatus(BillProcessing)
	next.IdempotencyKey = idempotencyKey
	return next, nil
}

// Complete moves PROCESSING -> COMPLETED after the ledger transfer succeeds.
func (b Bill) Complete() (Bill, error) {
	if !b.IsProcessing() {
		return Bill{}, ErrBillNotProcessing
	}
	return b.withStatus(BillCompleted), nil
}

// Decline moves PENDING -> REJECTED. Both the billed user declining and the
// issuing project cancelling land here; only the actor differs.
func (b Bill) Decline() (Bill, error) {
	if !b.IsPending() {
		return Bill{}, ErrBillAlreadyProcessed
	}
	return b.withStatus(BillRejected), nil
}

// MarkAsFailed moves PROCESSING -> FAILED when the ledger transfer fails.
// FAILED is terminal; the caller must issue a new bill to retry.
func (b Bill) MarkAsFailed() (Bill, error) {
	if !b.IsProcessing() {
		return Bill{}, ErrBillNotProcessing
	}
	return b.withStatus(BillFailed), nil
}

func (b Bill) withStatus(s BillStatus) Bill {
	next := b
	next.Status = s
	return next
}
