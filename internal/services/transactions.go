package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/campusmint/backend/internal/apperr"
	"github.com/campusmint/backend/internal/gateway"
	"github.com/campusmint/backend/internal/models"
	"github.com/campusmint/backend/internal/observability"
	"github.com/campusmint/backend/internal/store"
)

// TransactionService serves the transaction mirror and runs direct
// project-to-user payouts.
type TransactionService struct {
	transactions TransactionStore
	users        UserStore
	projects     ProjectStore
	ledger       gateway.Ledger
	log          zerolog.Logger
	metrics      *observability.Metrics
	now          func() time.Time
}

// NewTransactionService wires the transfer flow. metrics may be nil in tests.
func NewTransactionService(
	transactions TransactionStore,
	users UserStore,
	projects ProjectStore,
	ledger gateway.Ledger,
	log zerolog.Logger,
	metrics *observability.Metrics,
) *TransactionService {
	return &TransactionService{
		transactions: transactions,
		users:        users,
		projects:     projects,
		ledger:       ledger,
		log:          log,
		metrics:      metrics,
		now:          time.Now,
	}
}

// Transfer pays a user from the acting project's account. Unlike bill
// settlement there is no intermediate state: the ledger transfer either
// happens or it does not, and only a confirmed transfer is recorded.
func (s *TransactionService) Transfer(ctx context.Context, projectID, userID uuid.UUID, amount int64, description string) (models.Transaction, error) {
	if amount <= 0 {
		return models.Transaction{}, apperr.BadRequest("transfer amount must be positive, got %d", amount)
	}

	project, err := s.projects.FindByID(ctx, projectID)
	if err != nil {
		return models.Transaction{}, err
	}
	if project == nil {
		return models.Transaction{}, apperr.NotFound("project not found")
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return models.Transaction{}, err
	}
	if user == nil {
		return models.Transaction{}, apperr.NotFound("user not found")
	}

	idempotencyKey := models.NewID().String()
	err = s.ledger.Transfer(ctx, project.AccountID, user.AccountID, amount, idempotencyKey, description)
	if err != nil {
		s.countSettlement("transfer", "failed")
		s.log.Warn().Err(err).
			Str("project_id", projectID.String()).
			Str("user_id", userID.String()).
			Msg("transfer failed")
		return models.Transaction{}, err
	}

	payout, err := models.NewTransaction(models.TransactionTransfer, amount,
		&projectID, &userID, description, s.now())
	if err != nil {
		return models.Transaction{}, err
	}
	if err := s.transactions.Save(ctx, payout); err != nil {
		s.countSettlement("transfer", "record_error")
		s.log.Error().Err(err).
			Str("transaction_id", payout.ID.String()).
			Msg("transferred on ledger but local record failed")
		return models.Transaction{}, err
	}

	s.countSettlement("transfer", "completed")
	s.log.Info().
		Str("transaction_id", payout.ID.String()).
		Int64("amount", amount).
		Msg("transfer completed")
	return payout, nil
}

// GetTransaction returns one transaction record.
func (s *TransactionService) GetTransaction(ctx context.Context, id uuid.UUID) (models.Transaction, error) {
	tx, err := s.transactions.FindByID(ctx, id)
	if err != nil {
		return models.Transaction{}, err
	}
	if tx == nil {
		return models.Transaction{}, apperr.NotFound("transaction not found")
	}
	return *tx, nil
}

// ListTransactions pages through every recorded movement, newest first.
func (s *TransactionService) ListTransactions(ctx context.Context, query store.TransactionQuery) (store.TransactionPage, error) {
	return s.transactions.FindAll(ctx, query)
}

// ListUserTransactions pages through one user's movements.
func (s *TransactionService) ListUserTransactions(ctx context.Context, userID uuid.UUID, query store.TransactionQuery) (store.TransactionPage, error) {
	return s.transactions.FindByUser(ctx, userID, query)
}

// ListProjectTransactions pages through one project's movements.
func (s *TransactionService) ListProjectTransactions(ctx context.Context, projectID uuid.UUID, query store.TransactionQuery) (store.TransactionPage, error) {
	return s.transactions.FindByProject(ctx, projectID, query)
}

func (s *TransactionService) countSettlement(operation, outcome string) {
	if s.metrics != nil {
		s.metrics.SettlementsTotal.WithLabelValues(operation, outcome).Inc()
	}
}
