// Package services holds the application layer: the settlement orchestrator,
// the statistics read side and recompute job, transfers, and auth. Services
// depend on narrow store interfaces so tests can swap in mocks; the concrete
// implementations live in internal/store.
package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/campusmint/backend/internal/models"
	"github.com/campusmint/backend/internal/store"
)

// UnitOfWork scopes a sequence of store writes to one transaction.
type UnitOfWork interface {
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type BillStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Bill, error)
	FindByUser(ctx context.Context, userID uuid.UUID, query store.BillQuery) (store.BillPage, error)
	FindByProject(ctx context.Context, projectID uuid.UUID, query store.BillQuery) (store.BillPage, error)
	Save(ctx context.Context, bill models.Bill) error
}

type TransactionStore interface {
	Save(ctx context.Context, tx models.Transaction) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
	FindAll(ctx context.Context, query store.TransactionQuery) (store.TransactionPage, error)
	FindByUser(ctx context.Context, userID uuid.UUID, query store.TransactionQuery) (store.TransactionPage, error)
	FindByProject(ctx context.Context, projectID uuid.UUID, query store.TransactionQuery) (store.TransactionPage, error)
	UserBalanceChangeAfter(ctx context.Context, userID uuid.UUID, after time.Time) (store.BalanceChange, error)
	ProjectBalanceChangeAfter(ctx context.Context, projectID uuid.UUID, after time.Time) (store.BalanceChange, error)
}

type UserStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindAll(ctx context.Context) ([]models.User, error)
	Save(ctx context.Context, user models.User) error
}

type ProjectStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Project, error)
	FindAll(ctx context.Context) ([]models.Project, error)
	Save(ctx context.Context, project models.Project) error
}

type StatsStore interface {
	SaveSystemStats(ctx context.Context, stats models.SystemStats) error
	SaveUsersStats(ctx context.Context, stats models.AggregateStats) error
	SaveProjectsStats(ctx context.Context, stats models.AggregateStats) error
	GetSystemStats(ctx context.Context, term models.Term) (*models.SystemStats, error)
	GetUsersStats(ctx context.Context, term models.Term) (*models.AggregateStats, error)
	GetProjectsStats(ctx context.Context, term models.Term) (*models.AggregateStats, error)

	UserRanks(ctx context.Context, term models.Term, rankingType models.RankingType) (map[uuid.UUID]int64, error)
	ProjectRanks(ctx context.Context, term models.Term, rankingType models.RankingType) (map[uuid.UUID]int64, error)
	ClearUserRankings(ctx context.Context, term models.Term, rankingType models.RankingType) error
	ClearProjectRankings(ctx context.Context, term models.Term, rankingType models.RankingType) error
	SaveUserRankings(ctx context.Context, entries []models.RankingEntry) error
	SaveProjectRankings(ctx context.Context, entries []models.RankingEntry) error
	GetUserRankings(ctx context.Context, term models.Term, rankingType models.RankingType, query store.RankingQuery) (store.RankingPage, error)
	GetProjectRankings(ctx context.Context, term models.Term, rankingType models.RankingType, query store.RankingQuery) (store.RankingPage, error)
	GetUserRankingEntry(ctx context.Context, term models.Term, rankingType models.RankingType, userID uuid.UUID) (*models.RankingEntry, error)
	GetProjectRankingEntry(ctx context.Context, term models.Term, rankingType models.RankingType, projectID uuid.UUID) (*models.RankingEntry, error)
	GetUserIndividualStats(ctx context.Context, term models.Term, userID uuid.UUID) (*models.IndividualStats, error)
	GetProjectIndividualStats(ctx context.Context, term models.Term, projectID uuid.UUID) (*models.IndividualStats, error)
}

type APIKeyStore interface {
	Save(ctx context.Context, key models.APIKey) error
	FindByKeyID(ctx context.Context, keyID uuid.UUID) (*models.APIKey, error)
	DeleteByProject(ctx context.Context, projectID uuid.UUID) error
}
