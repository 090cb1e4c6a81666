package handlers

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/campusmint/backend/internal/models"
	"github.com/campusmint/backend/internal/store"
)

// The handler layer depends on these narrow views of the services, so tests
// can stand in for them without a database or ledger.

// BillAPI is the bill lifecycle as the handlers consume it. Satisfied by
// services.BillService.
type BillAPI interface {
	CreateBill(ctx context.Context, projectID, userID uuid.UUID, amount int64, description string) (models.Bill, error)
	GetBill(ctx context.Context, billID uuid.UUID, actorUserID, actorProjectID *uuid.UUID) (models.Bill, error)
	ListUserBills(ctx context.Context, userID uuid.UUID, query store.BillQuery) (store.BillPage, error)
	ListProjectBills(ctx context.Context, projectID uuid.UUID, query store.BillQuery) (store.BillPage, error)
	ApproveBill(ctx context.Context, billID, userID uuid.UUID) (models.Bill, error)
	DeclineBill(ctx context.Context, billID, userID uuid.UUID) (models.Bill, error)
	CancelBill(ctx context.Context, billID, projectID uuid.UUID) (models.Bill, error)
}

// TransactionAPI is satisfied by services.TransactionService.
type TransactionAPI interface {
	Transfer(ctx context.Context, projectID, userID uuid.UUID, amount int64, description string) (models.Transaction, error)
	GetTransaction(ctx context.Context, id uuid.UUID) (models.Transaction, error)
	ListUserTransactions(ctx context.Context, userID uuid.UUID, query store.TransactionQuery) (store.TransactionPage, error)
	ListProjectTransactions(ctx context.Context, projectID uuid.UUID, query store.TransactionQuery) (store.TransactionPage, error)
}

// StatsAPI is satisfied by services.StatsService.
type StatsAPI interface {
	SystemStats(ctx context.Context, term models.Term) (models.SystemStats, error)
	UsersStats(ctx context.Context, term models.Term) (models.AggregateStats, error)
	ProjectsStats(ctx context.Context, term models.Term) (models.AggregateStats, error)
	UserStats(ctx context.Context, term models.Term, userID uuid.UUID) (models.IndividualStats, error)
	ProjectStats(ctx context.Context, term models.Term, projectID uuid.UUID) (models.IndividualStats, error)
	UserRankings(ctx context.Context, term models.Term, rankingType models.RankingType, query store.RankingQuery) (store.RankingPage, error)
	ProjectRankings(ctx context.Context, term models.Term, rankingType models.RankingType, query store.RankingQuery) (store.RankingPage, error)
	UserBalanceAt(ctx context.Context, userID uuid.UUID, at time.Time) (int64, error)
	ProjectBalanceAt(ctx context.Context, projectID uuid.UUID, at time.Time) (int64, error)
}
