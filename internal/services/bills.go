package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/campusmint/backend/internal/apperr"
	"github.com/campusmint/backend/internal/gateway"
	"github.com/campusmint/backend/internal/models"
	"github.com/campusmint/backend/internal/observability"
	"github.com/campusmint/backend/internal/store"
)

// BillService runs the bill lifecycle, including settlement against the
// remote ledger.
//
// ApproveBill is the critical path. The PROCESSING state is persisted and
// committed before the ledger transfer starts, so a crash mid-settlement
// leaves a visibly in-flight bill instead of a silently re-approvable one.
// The transfer itself runs outside any database transaction; its outcome is
// then recorded in a second transaction.
type BillService struct {
	uow          UnitOfWork
	bills        BillStore
	transactions TransactionStore
	users        UserStore
	projects     ProjectStore
	ledger       gateway.Ledger
	log          zerolog.Logger
	metrics      *observability.Metrics
	now          func() time.Time
}

// NewBillService wires the settlement orchestrator. metrics may be nil in tests.
func NewBillService(
	uow UnitOfWork,
	bills BillStore,
	transactions TransactionStore,
	users UserStore,
	projects ProjectStore,
	ledger gateway.Ledger,
	log zerolog.Logger,
	metrics *observability.Metrics,
) *BillService {
	return &BillService{
		uow:          uow,
		bills:        bills,
		transactions: transactions,
		users:        users,
		projects:     projects,
		ledger:       ledger,
		log:          log,
		metrics:      metrics,
		now:          time.Now,
	}
}

// CreateBill issues a PENDING bill from the acting project to a user.
func (s *BillService) CreateBill(ctx context.Context, projectID, userID uuid.UUID, amount int64, description string) (models.Bill, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return models.Bill{}, err
	}
	if user == nil {
		return models.Bill{}, apperr.NotFound("user not found")
	}

	bill, err := models.NewBill(amount, userID, projectID, description, s.now())
	if err != nil {
		return models.Bill{}, apperr.BadRequest("%v", err)
	}

	if err := s.bills.Save(ctx, bill); err != nil {
		return models.Bill{}, err
	}

	s.log.Info().
		Str("bill_id", bill.ID.String()).
		Str("project_id", projectID.String()).
		Str("user_id", userID.String()).
		Int64("amount", amount).
		Msg("bill created")
	return bill, nil
}

// GetBill returns a bill visible to the acting user or project. A bill that
// exists but belongs to someone else reads as not found.
func (s *BillService) GetBill(ctx context.Context, billID uuid.UUID, actorUserID, actorProjectID *uuid.UUID) (models.Bill, error) {
	bill, err := s.bills.FindByID(ctx, billID)
	if err != nil {
		return models.Bill{}, err
	}
	if bill == nil || !billVisibleTo(*bill, actorUserID, actorProjectID) {
		return models.Bill{}, apperr.NotFound("bill not found")
	}
	return *bill, nil
}

// ListUserBills pages through the bills addressed to the acting user.
func (s *BillService) ListUserBills(ctx context.Context, userID uuid.UUID, query store.BillQuery) (store.BillPage, error) {
	return s.bills.FindByUser(ctx, userID, query)
}

// ListProjectBills pages through the bills the acting project has issued.
func (s *BillService) ListProjectBills(ctx context.Context, projectID uuid.UUID, query store.BillQuery) (store.BillPage, error) {
	return s.bills.FindByProject(ctx, projectID, query)
}

// ApproveBill settles a bill on behalf of the billed user: the bill moves to
// PROCESSING durably, the ledger transfer runs, and the outcome lands as
// COMPLETED plus a BILL_PAYMENT transaction, or FAILED.
func (s *BillService) ApproveBill(ctx context.Context, billID, userID uuid.UUID) (models.Bill, error) {
	var (
		processing models.Bill
		user       *models.User
		project    *models.Project
	)

	// Fresh key per logical attempt, committed with the PROCESSING row so a
	// crash between commit and transfer leaves enough to query the ledger
	// for the attempt's outcome.
	idempotencyKey := models.NewID().String()

	err := s.uow.RunInTransaction(ctx, func(ctx context.Context) error {
		bill, err := s.loadOwnedByUser(ctx, billID, userID)
		if err != nil {
			return err
		}

		processing, err = bill.Approve(idempotencyKey)
		if errors.Is(err, models.ErrBillAlreadyProcessed) {
			return apperr.Conflict("bill has already been processed")
		}
		if err != nil {
			return err
		}

		if user, err = s.users.FindByID(ctx, userID); err != nil {
			return err
		}
		if user == nil {
			return apperr.NotFound("bill not found")
		}
		if project, err = s.projects.FindByID(ctx, bill.ProjectID); err != nil {
			return err
		}
		if project == nil {
			return apperr.NotFound("bill not found")
		}

		return s.bills.Save(ctx, processing)
	})
	if err != nil {
		return models.Bill{}, err
	}

	transferErr := s.ledger.Transfer(ctx,
		user.AccountID, project.AccountID,
		processing.Amount, idempotencyKey, processing.Description)

	if transferErr != nil {
		failed, err := processing.MarkAsFailed()
		if err != nil {
			return models.Bill{}, err
		}
		if err := s.bills.Save(ctx, failed); err != nil {
			return models.Bill{}, err
		}

		s.countSettlement("approve", "failed")
		s.log.Warn().Err(transferErr).
			Str("bill_id", billID.String()).
			Str("status", string(failed.Status)).
			Msg("bill settlement failed")
		return models.Bill{}, transferErr
	}

	var completed models.Bill
	err = s.uow.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		if completed, err = processing.Complete(); err != nil {
			return err
		}
		if err := s.bills.Save(ctx, completed); err != nil {
			return err
		}

		payment, err := models.NewTransaction(models.TransactionBillPayment,
			completed.Amount, &completed.ProjectID, &completed.UserID,
			completed.Description, s.now())
		if err != nil {
			return err
		}
		return s.transactions.Save(ctx, payment)
	})
	if err != nil {
		// The ledger transfer went through but the local record did not.
		// Surface loudly; the transaction mirror is now behind the ledger.
		s.countSettlement("approve", "record_error")
		s.log.Error().Err(err).
			Str("bill_id", billID.String()).
			Msg("settled on ledger but local completion failed")
		return models.Bill{}, err
	}

	s.countSettlement("approve", "completed")
	s.log.Info().
		Str("bill_id", billID.String()).
		Int64("amount", completed.Amount).
		Msg("bill settled")
	return completed, nil
}

// DeclineBill rejects a pending bill on behalf of the billed user.
func (s *BillService) DeclineBill(ctx context.Context, billID, userID uuid.UUID) (models.Bill, error) {
	return s.reject(ctx, billID, func(ctx context.Context) (models.Bill, error) {
		return s.loadOwnedByUser(ctx, billID, userID)
	})
}

// CancelBill withdraws a pending bill on behalf of the issuing project.
func (s *BillService) CancelBill(ctx context.Context, billID, projectID uuid.UUID) (models.Bill, error) {
	return s.reject(ctx, billID, func(ctx context.Context) (models.Bill, error) {
		bill, err := s.bills.FindByID(ctx, billID)
		if err != nil {
			return models.Bill{}, err
		}
		if bill == nil || bill.ProjectID != projectID {
			return models.Bill{}, apperr.NotFound("bill not found")
		}
		return *bill, nil
	})
}

func (s *BillService) reject(ctx context.Context, billID uuid.UUID, load func(ctx context.Context) (models.Bill, error)) (models.Bill, error) {
	var rejected models.Bill
	err := s.uow.RunInTransaction(ctx, func(ctx context.Context) error {
		bill, err := load(ctx)
		if err != nil {
			return err
		}

		rejected, err = bill.Decline()
		if errors.Is(err, models.ErrBillAlreadyProcessed) {
			return apperr.Conflict("bill has already been processed")
		}
		if err != nil {
			return err
		}
		return s.bills.Save(ctx, rejected)
	})
	if err != nil {
		return models.Bill{}, err
	}

	s.log.Info().Str("bill_id", billID.String()).Msg("bill rejected")
	return rejected, nil
}

// loadOwnedByUser fetches a bill addressed to the given user. A bill owned
// by someone else is reported exactly like a missing one.
func (s *BillService) loadOwnedByUser(ctx context.Context, billID, userID uuid.UUID) (models.Bill, error) {
	bill, err := s.bills.FindByID(ctx, billID)
	if err != nil {
		return models.Bill{}, err
	}
	if bill == nil || bill.UserID != userID {
		return models.Bill{}, apperr.NotFound("bill not found")
	}
	return *bill, nil
}

func (s *BillService) countSettlement(operation, outcome string) {
	if s.metrics != nil {
		s.metrics.SettlementsTotal.WithLabelValues(operation, outcome).Inc()
	}
}

func billVisibleTo(bill models.Bill, actorUserID, actorProjectID *uuid.UUID) bool {
	if actorUserID != nil && bill.UserID == *actorUserID {
		return true
	}
	if actorProjectID != nil && bill.ProjectID == *actorProjectID {
		return true
	}
	return false
}
