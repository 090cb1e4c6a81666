package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/campusmint/backend/internal/models"
	"github.com/campusmint/backend/internal/store"
)

// MockUnitOfWork records the call and runs the function directly;
// transactional boundaries are invisible to unit tests.
type MockUnitOfWork struct {
	mock.Mock
}

func (m *MockUnitOfWork) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.Called(ctx)
	return fn(ctx)
}

type MockBillStore struct {
	mock.Mock
}

func (m *MockBillStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Bill, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Bill), args.Error(1)
}

func (m *MockBillStore) FindByUser(ctx context.Context, userID uuid.UUID, query store.BillQuery) (store.BillPage, error) {
	args := m.Called(ctx, userID, query)
	return args.Get(0).(store.BillPage), args.Error(1)
}

func (m *MockBillStore) FindByProject(ctx context.Context, projectID uuid.UUID, query store.BillQuery) (store.BillPage, error) {
	args := m.Called(ctx, projectID, query)
	return args.Get(0).(store.BillPage), args.Error(1)
}

func (m *MockBillStore) Save(ctx context.Context, bill models.Bill) error {
	args := m.Called(ctx, bill)
	return args.Error(0)
}

type MockTransactionStore struct {
	mock.Mock
}

func (m *MockTransactionStore) Save(ctx context.Context, tx models.Transaction) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *MockTransactionStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Transaction), args.Error(1)
}

func (m *MockTransactionStore) FindAll(ctx context.Context, query store.TransactionQuery) (store.TransactionPage, error) {
	args := m.Called(ctx, query)
	return args.Get(0).(store.TransactionPage), args.Error(1)
}

func (m *MockTransactionStore) FindByUser(ctx context.Context, userID uuid.UUID, query store.TransactionQuery) (store.TransactionPage, error) {
	args := m.Called(ctx, userID, query)
	return args.Get(0).(store.TransactionPage), args.Error(1)
}

func (m *MockTransactionStore) FindByProject(ctx context.Context, projectID uuid.UUID, query store.TransactionQuery) (store.TransactionPage, error) {
	args := m.Called(ctx, projectID, query)
	return args.Get(0).(store.TransactionPage), args.Error(1)
}

func (m *MockTransactionStore) UserBalanceChangeAfter(ctx context.Context, userID uuid.UUID, after time.Time) (store.BalanceChange, error) {
	args := m.Called(ctx, userID, after)
	return args.Get(0).(store.BalanceChange), args.Error(1)
}

func (m *MockTransactionStore) ProjectBalanceChangeAfter(ctx context.Context, projectID uuid.UUID, after time.Time) (store.BalanceChange, error) {
	args := m.Called(ctx, projectID, after)
	return args.Get(0).(store.BalanceChange), args.Error(1)
}

type MockUserStore struct {
	mock.Mock
}

func (m *MockUserStore) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserStore) FindAll(ctx context.Context) ([]models.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.User), args.Error(1)
}

func (m *MockUserStore) Save(ctx context.Context, user models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

type MockProjectStore struct {
	mock.Mock
}

func (m *MockProjectStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Project), args.Error(1)
}

func (m *MockProjectStore) FindAll(ctx context.Context) ([]models.Project, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Project), args.Error(1)
}

func (m *MockProjectStore) Save(ctx context.Context, project models.Project) error {
	args := m.Called(ctx, project)
	return args.Error(0)
}

type MockLedger struct {
	mock.Mock
}

func (m *MockLedger) GetAccount(ctx context.Context, accountID uuid.UUID) (*models.Account, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *MockLedger) GetAccounts(ctx context.Context, accountIDs []uuid.UUID) ([]models.Account, error) {
	args := m.Called(ctx, accountIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Account), args.Error(1)
}

func (m *MockLedger) Transfer(ctx context.Context, from, to uuid.UUID, amount int64, idempotencyKey, description string) error {
	args := m.Called(ctx, from, to, amount, idempotencyKey, description)
	return args.Error(0)
}

func (m *MockLedger) CreateAccount(ctx context.Context, canOverdraft bool) (*models.Account, error) {
	args := m.Called(ctx, canOverdraft)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

type MockAPIKeyStore struct {
	mock.Mock
}

func (m *MockAPIKeyStore) Save(ctx context.Context, key models.APIKey) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockAPIKeyStore) FindByKeyID(ctx context.Context, keyID uuid.UUID) (*models.APIKey, error) {
	args := m.Called(ctx, keyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.APIKey), args.Error(1)
}

func (m *MockAPIKeyStore) DeleteByProject(ctx context.Context, projectID uuid.UUID) error {
	args := m.Called(ctx, projectID)
	return args.Error(0)
}

type MockStatsStore struct {
	mock.Mock
}

func (m *MockStatsStore) SaveSystemStats(ctx context.Context, stats models.SystemStats) error {
	args := m.Called(ctx, stats)
	return args.Error(0)
}

func (m *MockStatsStore) SaveUsersStats(ctx context.Context, stats models.AggregateStats) error {
	args := m.Called(ctx, stats)
	return args.Error(0)
}

func (m *MockStatsStore) SaveProjectsStats(ctx context.Context, stats models.AggregateStats) error {
	args := m.Called(ctx, stats)
	return args.Error(0)
}

func (m *MockStatsStore) GetSystemStats(ctx context.Context, term models.Term) (*models.SystemStats, error) {
	args := m.Called(ctx, term)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SystemStats), args.Error(1)
}

func (m *MockStatsStore) GetUsersStats(ctx context.Context, term models.Term) (*models.AggregateStats, error) {
	args := m.Called(ctx, term)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AggregateStats), args.Error(1)
}

func (m *MockStatsStore) GetProjectsStats(ctx context.Context, term models.Term) (*models.AggregateStats, error) {
	args := m.Called(ctx, term)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AggregateStats), args.Error(1)
}

func (m *MockStatsStore) UserRanks(ctx context.Context, term models.Term, rankingType models.RankingType) (map[uuid.UUID]int64, error) {
	args := m.Called(ctx, term, rankingType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[uuid.UUID]int64), args.Error(1)
}

func (m *MockStatsStore) ProjectRanks(ctx context.Context, term models.Term, rankingType models.RankingType) (map[uuid.UUID]int64, error) {
	args := m.Called(ctx, term, rankingType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[uuid.UUID]int64), args.Error(1)
}

func (m *MockStatsStore) ClearUserRankings(ctx context.Context, term models.Term, rankingType models.RankingType) error {
	args := m.Called(ctx, term, rankingType)
	return args.Error(0)
}

func (m *MockStatsStore) ClearProjectRankings(ctx context.Context, term models.Term, rankingType models.RankingType) error {
	args := m.Called(ctx, term, rankingType)
	return args.Error(0)
}

func (m *MockStatsStore) SaveUserRankings(ctx context.Context, entries []models.RankingEntry) error {
	args := m.Called(ctx, entries)
	return args.Error(0)
}

func (m *MockStatsStore) SaveProjectRankings(ctx context.Context, entries []models.RankingEntry) error {
	args := m.Called(ctx, entries)
	return args.Error(0)
}

func (m *MockStatsStore) GetUserRankings(ctx context.Context, term models.Term, rankingType models.RankingType, query store.RankingQuery) (store.RankingPage, error) {
	args := m.Called(ctx, term, rankingType, query)
	return args.Get(0).(store.RankingPage), args.Error(1)
}

func (m *MockStatsStore) GetProjectRankings(ctx context.Context, term models.Term, rankingType models.RankingType, query store.RankingQuery) (store.RankingPage, error) {
	args := m.Called(ctx, term, rankingType, query)
	return args.Get(0).(store.RankingPage), args.Error(1)
}

func (m *MockStatsStore) GetUserRankingEntry(ctx context.Context, term models.Term, rankingType models.RankingType, userID uuid.UUID) (*models.RankingEntry, error) {
	args := m.Called(ctx, term, rankingType, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RankingEntry), args.Error(1)
}

func (m *MockStatsStore) GetProjectRankingEntry(ctx context.Context, term models.Term, rankingType models.RankingType, projectID uuid.UUID) (*models.RankingEntry, error) {
	args := m.Called(ctx, term, rankingType, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RankingEntry), args.Error(1)
}

func (m *MockStatsStore) GetUserIndividualStats(ctx context.Context, term models.Term, userID uuid.UUID) (*models.IndividualStats, error) {
	args := m.Called(ctx, term, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.IndividualStats), args.Error(1)
}

func (m *MockStatsStore) GetProjectIndividualStats(ctx context.Context, term models.Term, projectID uuid.UUID) (*models.IndividualStats, error) {
	args := m.Called(ctx, term, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.IndividualStats), args.Error(1)
}
