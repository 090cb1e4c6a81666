package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/campusmint/backend/internal/apperr"
	"github.com/campusmint/backend/internal/gateway"
	"github.com/campusmint/backend/internal/models"
	"github.com/campusmint/backend/internal/store"
)

// StatsService is the read side of the statistics cache. It never writes the
// cache; only the updater job does.
type StatsService struct {
	stats        StatsStore
	transactions TransactionStore
	users        UserStore
	projects     ProjectStore
	ledger       gateway.Ledger
}

func NewStatsService(
	stats StatsStore,
	transactions TransactionStore,
	users UserStore,
	projects ProjectStore,
	ledger gateway.Ledger,
) *StatsService {
	return &StatsService{
		stats:        stats,
		transactions: transactions,
		users:        users,
		projects:     projects,
		ledger:       ledger,
	}
}

// SystemStats returns the cached economy-wide aggregate for the term.
func (s *StatsService) SystemStats(ctx context.Context, term models.Term) (models.SystemStats, error) {
	stats, err := s.stats.GetSystemStats(ctx, term)
	if err != nil {
		return models.SystemStats{}, err
	}
	if stats == nil {
		return models.SystemStats{}, apperr.NotFound("stats not computed yet for term %s", term)
	}
	return *stats, nil
}

// UsersStats returns the cached all-users aggregate for the term.
func (s *StatsService) UsersStats(ctx context.Context, term models.Term) (models.AggregateStats, error) {
	return s.aggregate(ctx, term, s.stats.GetUsersStats)
}

// ProjectsStats returns the cached all-projects aggregate for the term.
func (s *StatsService) ProjectsStats(ctx context.Context, term models.Term) (models.AggregateStats, error) {
	return s.aggregate(ctx, term, s.stats.GetProjectsStats)
}

func (s *StatsService) aggregate(ctx context.Context, term models.Term, get func(context.Context, models.Term) (*models.AggregateStats, error)) (models.AggregateStats, error) {
	stats, err := get(ctx, term)
	if err != nil {
		return models.AggregateStats{}, err
	}
	if stats == nil {
		return models.AggregateStats{}, apperr.NotFound("stats not computed yet for term %s", term)
	}
	return *stats, nil
}

// UserRankings pages through one cached user leaderboard.
func (s *StatsService) UserRankings(ctx context.Context, term models.Term, rankingType models.RankingType, query store.RankingQuery) (store.RankingPage, error) {
	return s.stats.GetUserRankings(ctx, term, rankingType, query)
}

// ProjectRankings pages through one cached project leaderboard.
func (s *StatsService) ProjectRankings(ctx context.Context, term models.Term, rankingType models.RankingType, query store.RankingQuery) (store.RankingPage, error) {
	return s.stats.GetProjectRankings(ctx, term, rankingType, query)
}

// UserStats returns one user's position in every ranking for the term.
func (s *StatsService) UserStats(ctx context.Context, term models.Term, userID uuid.UUID) (models.IndividualStats, error) {
	stats, err := s.stats.GetUserIndividualStats(ctx, term, userID)
	if err != nil {
		return models.IndividualStats{}, err
	}
	if stats == nil {
		return models.IndividualStats{}, apperr.NotFound("stats not computed yet for user")
	}
	return *stats, nil
}

// ProjectStats returns one project's position in every ranking for the term.
func (s *StatsService) ProjectStats(ctx context.Context, term models.Term, projectID uuid.UUID) (models.IndividualStats, error) {
	stats, err := s.stats.GetProjectIndividualStats(ctx, term, projectID)
	if err != nil {
		return models.IndividualStats{}, err
	}
	if stats == nil {
		return models.IndividualStats{}, apperr.NotFound("stats not computed yet for project")
	}
	return *stats, nil
}

// UserBalanceAt reconstructs a user's balance at an instant: the current
// ledger balance minus the net movement recorded after that instant. Exact
// as long as the transaction mirror is complete for the interval.
func (s *StatsService) UserBalanceAt(ctx context.Context, userID uuid.UUID, at time.Time) (int64, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return 0, err
	}
	if user == nil {
		return 0, apperr.NotFound("user not found")
	}

	account, err := s.ledger.GetAccount(ctx, user.AccountID)
	if err != nil {
		return 0, err
	}
	change, err := s.transactions.UserBalanceChangeAfter(ctx, userID, at)
	if err != nil {
		return 0, err
	}
	return account.Balance - change.Net(), nil
}

// ProjectBalanceAt reconstructs a project's balance at an instant.
func (s *StatsService) ProjectBalanceAt(ctx context.Context, projectID uuid.UUID, at time.Time) (int64, error) {
	project, err := s.projects.FindByID(ctx, projectID)
	if err != nil {
		return 0, err
	}
	if project == nil {
		return 0, apperr.NotFound("project not found")
	}

	account, err := s.ledger.GetAccount(ctx, project.AccountID)
	if err != nil {
		return 0, err
	}
	change, err := s.transactions.ProjectBalanceChangeAfter(ctx, projectID, at)
	if err != nil {
		return 0, err
	}
	return account.Balance - change.Net(), nil
}
