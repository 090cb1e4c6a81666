package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/campusmint/backend/internal/models"
	"github.com/campusmint/backend/internal/store"
)

func TestRankingEntries(t *testing.T) {
	now := time.Now()
	a, b, c := models.NewID(), models.NewID(), models.NewID()
	stats := []models.EntityStats{
		{EntityID: a, Balance: 100},
		{EntityID: b, Balance: 300},
		{EntityID: c, Balance: 200},
	}

	t.Run("sorts descending and ranks from one", func(t *testing.T) {
		entries := rankingEntries(models.Term7Days, models.RankingBalance, stats, nil, now)
		require.Len(t, entries, 3)
		assert.Equal(t, b, entries[0].EntityID)
		assert.Equal(t, int64(1), entries[0].Rank)
		assert.Equal(t, int64(300), entries[0].Value)
		assert.Equal(t, c, entries[1].EntityID)
		assert.Equal(t, a, entries[2].EntityID)
	})

	t.Run("first run has no rank movement", func(t *testing.T) {
		entries := rankingEntries(models.Term7Days, models.RankingBalance, stats, nil, now)
		for _, e := range entries {
			assert.Equal(t, int64(0), e.Difference)
		}
	})

	t.Run("second run over unchanged data has difference zero", func(t *testing.T) {
		first := rankingEntries(models.Term7Days, models.RankingBalance, stats, nil, now)
		previous := make(map[uuid.UUID]int64, len(first))
		for _, e := range first {
			previous[e.EntityID] = e.Rank
		}
		second := rankingEntries(models.Term7Days, models.RankingBalance, stats, previous, now)
		for i, e := range second {
			assert.Equal(t, first[i].EntityID, e.EntityID)
			assert.Equal(t, int64(0), e.Difference)
		}
	})

	t.Run("climbing from fifth to second reads plus three", func(t *testing.T) {
		entries := rankingEntries(models.Term7Days, models.RankingBalance, stats,
			map[uuid.UUID]int64{c: 5}, now)
		// c holds rank 2 now.
		assert.Equal(t, c, entries[1].EntityID)
		assert.Equal(t, int64(3), entries[1].Difference)
	})

	t.Run("ties keep input order", func(t *testing.T) {
		tied := []models.EntityStats{
			{EntityID: a, Balance: 100},
			{EntityID: b, Balance: 100},
		}
		entries := rankingEntries(models.Term7Days, models.RankingBalance, tied, nil, now)
		assert.Equal(t, a, entries[0].EntityID)
		assert.Equal(t, b, entries[1].EntityID)
	})
}

func TestBuildEntityStats(t *testing.T) {
	userID := models.NewID()
	projectID := models.NewID()
	txs := []models.Transaction{
		{Type: models.TransactionTransfer, Amount: 1000, UserID: &userID, ProjectID: &projectID},
		{Type: models.TransactionSystem, Amount: 500, UserID: &userID},
		{Type: models.TransactionBillPayment, Amount: 600, UserID: &userID, ProjectID: &projectID},
	}

	t.Run("user direction", func(t *testing.T) {
		s := buildEntityStats(userID, 1900, txs, userInflow)
		assert.Equal(t, int64(1500), s.InAmount)
		assert.Equal(t, int64(600), s.OutAmount)
		assert.Equal(t, int64(3), s.Count)
		assert.Equal(t, int64(2100), s.Total)
		assert.Equal(t, int64(900), s.Difference)
		// Net 900 against a starting balance of 1000.
		assert.Equal(t, int64(90), s.Ratio)
	})

	t.Run("project direction mirrors the user side", func(t *testing.T) {
		s := buildEntityStats(projectID, 0, txs, projectInflow)
		assert.Equal(t, int64(1100), s.InAmount)
		assert.Equal(t, int64(1000), s.OutAmount)
	})

	t.Run("zero starting balance yields ratio zero", func(t *testing.T) {
		s := buildEntityStats(userID, 900, txs, userInflow)
		assert.Equal(t, int64(900), s.Difference)
		assert.Equal(t, int64(0), s.Ratio)
	})

	t.Run("no transactions", func(t *testing.T) {
		s := buildEntityStats(userID, 250, nil, userInflow)
		assert.Equal(t, int64(250), s.Balance)
		assert.Equal(t, int64(0), s.Count)
		assert.Equal(t, int64(0), s.Ratio)
	})
}

func TestSystemAggregate(t *testing.T) {
	userID := models.NewID()
	projectID := models.NewID()
	snap := termSnapshot{
		now: time.Now(),
		balances: map[uuid.UUID]int64{
			models.NewID(): 3000,
			models.NewID(): 2000,
		},
		window: []models.Transaction{
			// Internal moves cancel out of the economy-wide net change.
			{Type: models.TransactionTransfer, Amount: 700, UserID: &userID, ProjectID: &projectID},
			{Type: models.TransactionBillPayment, Amount: 300, UserID: &userID, ProjectID: &projectID},
			{Type: models.TransactionSystem, Amount: 1000, UserID: &userID},
		},
	}

	agg := systemAggregate(models.Term30Days, snap)
	assert.Equal(t, int64(5000), agg.Balance)
	assert.Equal(t, int64(1000), agg.Difference)
	assert.Equal(t, int64(3), agg.Count)
	assert.Equal(t, int64(2000), agg.Total)
	assert.Equal(t, int64(25), agg.Ratio)
}

func TestClassAggregate(t *testing.T) {
	userID := models.NewID()
	otherUser := models.NewID()
	projectID := models.NewID()
	snap := termSnapshot{
		now: time.Now(),
		window: []models.Transaction{
			{Type: models.TransactionTransfer, Amount: 500, UserID: &userID, ProjectID: &projectID},
			{Type: models.TransactionSystem, Amount: 200, UserID: &otherUser},
			// Pure project grant stays out of the user-class slice.
			{Type: models.TransactionSystem, Amount: 900, ProjectID: &projectID},
		},
	}
	userStats := []models.EntityStats{
		{EntityID: userID, Balance: 800, InAmount: 500},
		{EntityID: otherUser, Balance: 200, InAmount: 200},
	}

	agg := classAggregate(models.Term24Hours, snap, userStats, func(tx models.Transaction) bool {
		return tx.UserID != nil
	})
	assert.Equal(t, int64(2), agg.Number)
	assert.Equal(t, int64(1000), agg.Balance)
	assert.Equal(t, int64(700), agg.Difference)
	assert.Equal(t, int64(2), agg.Count)
	assert.Equal(t, int64(700), agg.Total)
}

func TestStatsUpdater_UpdateAll(t *testing.T) {
	ctx := context.Background()

	t.Run("recomputes aggregates and rankings for every term", func(t *testing.T) {
		uow := &MockUnitOfWork{}
		stats := &MockStatsStore{}
		transactions := &MockTransactionStore{}
		users := &MockUserStore{}
		projects := &MockProjectStore{}
		ledger := &MockLedger{}

		user := models.User{ID: models.NewID(), Name: "ada", AccountID: models.NewID()}
		project := models.Project{ID: models.NewID(), Name: "cafeteria", AccountID: models.NewID()}
		userID, projectID := user.ID, project.ID

		uow.On("RunInTransaction", mock.Anything).Return()
		users.On("FindAll", mock.Anything).Return([]models.User{user}, nil)
		projects.On("FindAll", mock.Anything).Return([]models.Project{project}, nil)
		ledger.On("GetAccounts", mock.Anything, mock.Anything).Return([]models.Account{
			{AccountID: user.AccountID, Balance: 1500},
			{AccountID: project.AccountID, Balance: 4000},
		}, nil)
		transactions.On("FindAll", mock.Anything, mock.MatchedBy(func(q store.TransactionQuery) bool {
			return q.Limit == -1 && !q.Since.IsZero()
		})).Return(store.TransactionPage{Items: []models.Transaction{
			{Type: models.TransactionBillPayment, Amount: 400, UserID: &userID, ProjectID: &projectID},
		}}, nil)

		stats.On("SaveSystemStats", mock.Anything, mock.MatchedBy(func(s models.SystemStats) bool {
			return s.Balance == 5500 && s.Difference == 0 && s.Count == 1
		})).Return(nil)
		stats.On("SaveUsersStats", mock.Anything, mock.MatchedBy(func(s models.AggregateStats) bool {
			return s.Number == 1 && s.Difference == -400
		})).Return(nil)
		stats.On("SaveProjectsStats", mock.Anything, mock.MatchedBy(func(s models.AggregateStats) bool {
			return s.Number == 1 && s.Difference == 400
		})).Return(nil)
		stats.On("UserRanks", mock.Anything, mock.Anything, mock.Anything).Return(map[uuid.UUID]int64{}, nil)
		stats.On("ProjectRanks", mock.Anything, mock.Anything, mock.Anything).Return(map[uuid.UUID]int64{}, nil)
		stats.On("ClearUserRankings", mock.Anything, mock.Anything, mock.Anything).Return(nil)
		stats.On("ClearProjectRankings", mock.Anything, mock.Anything, mock.Anything).Return(nil)
		stats.On("SaveUserRankings", mock.Anything, mock.MatchedBy(func(entries []models.RankingEntry) bool {
			return len(entries) == 1 && entries[0].Rank == 1
		})).Return(nil)
		stats.On("SaveProjectRankings", mock.Anything, mock.Anything).Return(nil)

		job := NewStatsUpdater(uow, stats, transactions, users, projects, ledger,
			time.Minute, zerolog.Nop(), nil)
		job.UpdateAll(ctx)

		// Four terms, each writing three aggregates and seven rankings a side.
		stats.AssertNumberOfCalls(t, "SaveSystemStats", len(models.Terms))
		stats.AssertNumberOfCalls(t, "SaveUserRankings", len(models.Terms)*len(models.RankingTypes))
		stats.AssertNumberOfCalls(t, "ClearProjectRankings", len(models.Terms)*len(models.RankingTypes))
	})

	t.Run("a failing term does not stop the others", func(t *testing.T) {
		uow := &MockUnitOfWork{}
		stats := &MockStatsStore{}
		transactions := &MockTransactionStore{}
		users := &MockUserStore{}
		projects := &MockProjectStore{}
		ledger := &MockLedger{}

		users.On("FindAll", mock.Anything).Return(nil, errors.New("db down"))

		job := NewStatsUpdater(uow, stats, transactions, users, projects, ledger,
			time.Minute, zerolog.Nop(), nil)
		job.UpdateAll(ctx)

		// Every term was still attempted.
		users.AssertNumberOfCalls(t, "FindAll", len(models.Terms))
		stats.AssertNotCalled(t, "SaveSystemStats", mock.Anything, mock.Anything)
	})
}

func TestStatsUpdater_RunStopsOnContextCancel(t *testing.T) {
	uow := &MockUnitOfWork{}
	stats := &MockStatsStore{}
	transactions := &MockTransactionStore{}
	users := &MockUserStore{}
	projects := &MockProjectStore{}
	ledger := &MockLedger{}

	uow.On("RunInTransaction", mock.Anything).Return()
	users.On("FindAll", mock.Anything).Return([]models.User{}, nil)
	projects.On("FindAll", mock.Anything).Return([]models.Project{}, nil)
	ledger.On("GetAccounts", mock.Anything, mock.Anything).Return([]models.Account{}, nil)
	transactions.On("FindAll", mock.Anything, mock.Anything).Return(store.TransactionPage{}, nil)
	stats.On("SaveSystemStats", mock.Anything, mock.Anything).Return(nil)
	stats.On("SaveUsersStats", mock.Anything, mock.Anything).Return(nil)
	stats.On("SaveProjectsStats", mock.Anything, mock.Anything).Return(nil)
	stats.On("UserRanks", mock.Anything, mock.Anything, mock.Anything).Return(map[uuid.UUID]int64{}, nil)
	stats.On("ProjectRanks", mock.Anything, mock.Anything, mock.Anything).Return(map[uuid.UUID]int64{}, nil)
	stats.On("ClearUserRankings", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	stats.On("ClearProjectRankings", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	stats.On("SaveUserRankings", mock.Anything, mock.Anything).Return(nil)
	stats.On("SaveProjectRankings", mock.Anything, mock.Anything).Return(nil)

	job := NewStatsUpdater(uow, stats, transactions, users, projects, ledger,
		time.Hour, zerolog.Nop(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		job.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("updater did not stop after context cancellation")
	}

	// The immediate tick ran before the loop observed cancellation.
	stats.AssertNumberOfCalls(t, "SaveSystemStats", len(models.Terms))
}
