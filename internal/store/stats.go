package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/campusmint/backend/internal/cursor"
	"github.com/campusmint/backend/internal/models"
)

// RankingQuery pages through one cached ranking.
type RankingQuery struct {
	// Descending orders by rank N..1 when true; the default reads the
	// leaderboard from rank 1.
	Descending bool
	// Limit caps the page size; 0 means the default.
	Limit int
	// Cursor resumes a previous page. Malformed cursors are ignored.
	Cursor string
}

// RankingPage is one page of ranking entries plus the next-page token.
type RankingPage struct {
	Items      []models.RankingEntry
	NextCursor string
}

// StatsStore is the persisted statistics cache. Only the stats update job
// writes it; read paths never do. Aggregate rows are keyed by term, ranking
// rows by (term, ranking type, entity).
type StatsStore struct {
	db *sql.DB
}

func NewStatsStore(db *sql.DB) *StatsStore {
	return &StatsStore{db: db}
}

const (
	userRankingsTable    = "stats_user_rankings"
	projectRankingsTable = "stats_project_rankings"
)

// --- Aggregate rows ---

// SaveSystemStats upserts the economy-wide row for the term.
func (s *StatsStore) SaveSystemStats(ctx context.Context, stats models.SystemStats) error {
	_, err := q(ctx, s.db).ExecContext(ctx, `
		INSERT INTO stats_system (term, balance, difference, count, total, ratio, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (term) DO UPDATE SET
			balance = EXCLUDED.balance, difference = EXCLUDED.difference,
			count = EXCLUDED.count, total = EXCLUDED.total,
			ratio = EXCLUDED.ratio, updated_at = EXCLUDED.updated_at`,
		string(stats.Term), stats.Balance, stats.Difference,
		stats.Count, stats.Total, stats.Ratio, stats.UpdatedAt)
	if err != nil {
		return fmt.Errorf("saving system stats for %s: %w", stats.Term, err)
	}
	return nil
}

// SaveUsersStats upserts the all-users aggregate row for the term.
func (s *StatsStore) SaveUsersStats(ctx context.Context, stats models.AggregateStats) error {
	return s.saveAggregate(ctx, "stats_users", stats)
}

// SaveProjectsStats upserts the all-projects aggregate row for the term.
func (s *StatsStore) SaveProjectsStats(ctx context.Context, stats models.AggregateStats) error {
	return s.saveAggregate(ctx, "stats_projects", stats)
}

func (s *StatsStore) saveAggregate(ctx context.Context, table string, stats models.AggregateStats) error {
	_, err := q(ctx, s.db).ExecContext(ctx, `
		INSERT INTO `+table+` (term, number, balance, difference, count, total, ratio, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (term) DO UPDATE SET
			number = EXCLUDED.number, balance = EXCLUDED.balance,
			difference = EXCLUDED.difference, count = EXCLUDED.count,
			total = EXCLUDED.total, ratio = EXCLUDED.ratio,
			updated_at = EXCLUDED.updated_at`,
		string(stats.Term), stats.Number, stats.Balance, stats.Difference,
		stats.Count, stats.Total, stats.Ratio, stats.UpdatedAt)
	if err != nil {
		return fmt.Errorf("saving aggregate stats for %s: %w", stats.Term, err)
	}
	return nil
}

// GetSystemStats returns the cached economy-wide row, or nil before the
// first job run.
func (s *StatsStore) GetSystemStats(ctx context.Context, term models.Term) (*models.SystemStats, error) {
	row := q(ctx, s.db).QueryRowContext(ctx, `
		SELECT balance, difference, count, total, ratio, updated_at
		FROM stats_system WHERE term = $1`, string(term))

	stats := models.SystemStats{Term: term}
	err := row.Scan(&stats.Balance, &stats.Difference, &stats.Count,
		&stats.Total, &stats.Ratio, &stats.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading system stats for %s: %w", term, err)
	}
	return &stats, nil
}

// GetUsersStats returns the cached all-users aggregate, or nil.
func (s *StatsStore) GetUsersStats(ctx context.Context, term models.Term) (*models.AggregateStats, error) {
	return s.getAggregate(ctx, "stats_users", term)
}

// GetProjectsStats returns the cached all-projects aggregate, or nil.
func (s *StatsStore) GetProjectsStats(ctx context.Context, term models.Term) (*models.AggregateStats, error) {
	return s.getAggregate(ctx, "stats_projects", term)
}

func (s *StatsStore) getAggregate(ctx context.Context, table string, term models.Term) (*models.AggregateStats, error) {
	row := q(ctx, s.db).QueryRowContext(ctx, `
		SELECT number, balance, difference, count, total, ratio, updated_at
		FROM `+table+` WHERE term = $1`, string(term))

	stats := models.AggregateStats{Term: term}
	err := row.Scan(&stats.Number, &stats.Balance, &stats.Difference,
		&stats.Count, &stats.Total, &stats.Ratio, &stats.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading aggregate stats for %s: %w", term, err)
	}
	return &stats, nil
}

// --- Ranking rows ---

// UserRanks returns every cached user rank for one (term, ranking type) in a
// single query, for the job's rank-diff step.
func (s *StatsStore) UserRanks(ctx context.Context, term models.Term, rankingType models.RankingType) (map[uuid.UUID]int64, error) {
	return s.ranks(ctx, userRankingsTable, term, rankingType)
}

// ProjectRanks returns every cached project rank for one (term, ranking type).
func (s *StatsStore) ProjectRanks(ctx context.Context, term models.Term, rankingType models.RankingType) (map[uuid.UUID]int64, error) {
	return s.ranks(ctx, projectRankingsTable, term, rankingType)
}

func (s *StatsStore) ranks(ctx context.Context, table string, term models.Term, rankingType models.RankingType) (map[uuid.UUID]int64, error) {
	rows, err := q(ctx, s.db).QueryContext(ctx, `
		SELECT entity_id, rank FROM `+table+`
		WHERE term = $1 AND ranking_type = $2`,
		string(term), string(rankingType))
	if err != nil {
		return nil, fmt.Errorf("reading cached ranks: %w", err)
	}
	defer rows.Close()

	ranks := make(map[uuid.UUID]int64)
	for rows.Next() {
		var (
			id   uuid.UUID
			rank int64
		)
		if err := rows.Scan(&id, &rank); err != nil {
			return nil, fmt.Errorf("scanning cached rank: %w", err)
		}
		ranks[id] = rank
	}
	return ranks, rows.Err()
}

// ClearUserRankings deletes the user ranking rows for one (term, ranking type).
func (s *StatsStore) ClearUserRankings(ctx context.Context, term models.Term, rankingType models.RankingType) error {
	return s.clearRankings(ctx, userRankingsTable, term, rankingType)
}

// ClearProjectRankings deletes the project ranking rows for one (term, ranking type).
func (s *StatsStore) ClearProjectRankings(ctx context.Context, term models.Term, rankingType models.RankingType) error {
	return s.clearRankings(ctx, projectRankingsTable, term, rankingType)
}

func (s *StatsStore) clearRankings(ctx context.Context, table string, term models.Term, rankingType models.RankingType) error {
	_, err := q(ctx, s.db).ExecContext(ctx,
		"DELETE FROM "+table+" WHERE term = $1 AND ranking_type = $2",
		string(term), string(rankingType))
	if err != nil {
		return fmt.Errorf("clearing rankings: %w", err)
	}
	return nil
}

// SaveUserRankings bulk-inserts replacement user ranking rows.
func (s *StatsStore) SaveUserRankings(ctx context.Context, entries []models.RankingEntry) error {
	return s.saveRankings(ctx, userRankingsTable, entries)
}

// SaveProjectRankings bulk-inserts replacement project ranking rows.
func (s *StatsStore) SaveProjectRankings(ctx context.Context, entries []models.RankingEntry) error {
	return s.saveRankings(ctx, projectRankingsTable, entries)
}

func (s *StatsStore) saveRankings(ctx context.Context, table string, entries []models.RankingEntry) error {
	if len(entries) == 0 {
		return nil
	}

	var (
		placeholders strings.Builder
		args         = make([]any, 0, len(entries)*7)
	)
	for i, e := range entries {
		if i > 0 {
			placeholders.WriteString(", ")
		}
		base := i * 7
		fmt.Fprintf(&placeholders, "($%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7)
		args = append(args, string(e.Term), string(e.RankingType), e.EntityID,
			e.Rank, e.Value, e.Difference, e.UpdatedAt)
	}

	_, err := q(ctx, s.db).ExecContext(ctx, `
		INSERT INTO `+table+` (term, ranking_type, entity_id, rank, value, difference, updated_at)
		VALUES `+placeholders.String(), args...)
	if err != nil {
		return fmt.Errorf("saving rankings: %w", err)
	}
	return nil
}

// GetUserRankings pages through one cached user ranking.
func (s *StatsStore) GetUserRankings(ctx context.Context, term models.Term, rankingType models.RankingType, query RankingQuery) (RankingPage, error) {
	return s.pageRankings(ctx, userRankingsTable, term, rankingType, query)
}

// GetProjectRankings pages through one cached project ranking.
func (s *StatsStore) GetProjectRankings(ctx context.Context, term models.Term, rankingType models.RankingType, query RankingQuery) (RankingPage, error) {
	return s.pageRankings(ctx, projectRankingsTable, term, rankingType, query)
}

func (s *StatsStore) pageRankings(ctx context.Context, table string, term models.Term, rankingType models.RankingType, query RankingQuery) (RankingPage, error) {
	limit := query.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}

	sqlQuery := `SELECT entity_id, rank, value, difference, updated_at FROM ` + table +
		` WHERE term = $1 AND ranking_type = $2`
	args := []any{string(term), string(rankingType)}

	if rank, _, ok := cursor.DecodeRank(query.Cursor); ok {
		op := ">"
		if query.Descending {
			op = "<"
		}
		sqlQuery += fmt.Sprintf(" AND rank %s $%d", op, len(args)+1)
		args = append(args, rank)
	}

	order := " ORDER BY rank ASC"
	if query.Descending {
		order = " ORDER BY rank DESC"
	}
	sqlQuery += order + fmt.Sprintf(" LIMIT $%d", len(args)+1)
	args = append(args, limit+1)

	rows, err := q(ctx, s.db).QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return RankingPage{}, fmt.Errorf("listing rankings: %w", err)
	}
	defer rows.Close()

	var items []models.RankingEntry
	for rows.Next() {
		entry := models.RankingEntry{Term: term, RankingType: rankingType}
		err := rows.Scan(&entry.EntityID, &entry.Rank, &entry.Value,
			&entry.Difference, &entry.UpdatedAt)
		if err != nil {
			return RankingPage{}, fmt.Errorf("scanning ranking entry: %w", err)
		}
		items = append(items, entry)
	}
	if err := rows.Err(); err != nil {
		return RankingPage{}, fmt.Errorf("listing rankings: %w", err)
	}

	page := RankingPage{Items: items}
	if len(items) > limit {
		page.Items = items[:limit]
		last := page.Items[limit-1]
		page.NextCursor = cursor.EncodeRank(last.Rank, last.EntityID)
	}
	return page, nil
}

// GetUserRankingEntry returns one user's row in one ranking, or nil.
func (s *StatsStore) GetUserRankingEntry(ctx context.Context, term models.Term, rankingType models.RankingType, userID uuid.UUID) (*models.RankingEntry, error) {
	return s.rankingEntry(ctx, userRankingsTable, term, rankingType, userID)
}

// GetProjectRankingEntry returns one project's row in one ranking, or nil.
func (s *StatsStore) GetProjectRankingEntry(ctx context.Context, term models.Term, rankingType models.RankingType, projectID uuid.UUID) (*models.RankingEntry, error) {
	return s.rankingEntry(ctx, projectRankingsTable, term, rankingType, projectID)
}

func (s *StatsStore) rankingEntry(ctx context.Context, table string, term models.Term, rankingType models.RankingType, entityID uuid.UUID) (*models.RankingEntry, error) {
	row := q(ctx, s.db).QueryRowContext(ctx, `
		SELECT rank, value, difference, updated_at FROM `+table+`
		WHERE term = $1 AND ranking_type = $2 AND entity_id = $3`,
		string(term), string(rankingType), entityID)

	entry := models.RankingEntry{Term: term, RankingType: rankingType, EntityID: entityID}
	err := row.Scan(&entry.Rank, &entry.Value, &entry.Difference, &entry.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading ranking entry: %w", err)
	}
	return &entry, nil
}

// GetUserIndividualStats assembles one user's position in every ranking for
// a term. Returns nil if the user is missing from any ranking, which can
// happen transiently while the job is replacing rows.
func (s *StatsStore) GetUserIndividualStats(ctx context.Context, term models.Term, userID uuid.UUID) (*models.IndividualStats, error) {
	return s.individualStats(ctx, userRankingsTable, term, userID)
}

// GetProjectIndividualStats assembles one project's position in every
// ranking for a term.
func (s *StatsStore) GetProjectIndividualStats(ctx context.Context, term models.Term, projectID uuid.UUID) (*models.IndividualStats, error) {
	return s.individualStats(ctx, projectRankingsTable, term, projectID)
}

func (s *StatsStore) individualStats(ctx context.Context, table string, term models.Term, entityID uuid.UUID) (*models.IndividualStats, error) {
	rows, err := q(ctx, s.db).QueryContext(ctx, `
		SELECT ranking_type, rank, value, difference FROM `+table+`
		WHERE term = $1 AND entity_id = $2`,
		string(term), entityID)
	if err != nil {
		return nil, fmt.Errorf("reading individual stats: %w", err)
	}
	defer rows.Close()

	positions := make(map[models.RankingType]models.RankingPosition)
	for rows.Next() {
		var (
			rankingType string
			pos         models.RankingPosition
		)
		if err := rows.Scan(&rankingType, &pos.Rank, &pos.Value, &pos.Difference); err != nil {
			return nil, fmt.Errorf("scanning individual stats: %w", err)
		}
		positions[models.RankingType(rankingType)] = pos
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading individual stats: %w", err)
	}

	if len(positions) < len(models.RankingTypes) {
		return nil, nil
	}

	return &models.IndividualStats{
		Balance:    positions[models.RankingBalance],
		Difference: positions[models.RankingDifference],
		InAmount:   positions[models.RankingIn],
		OutAmount:  positions[models.RankingOut],
		Count:      positions[models.RankingCount],
		Total:      positions[models.RankingTotal],
		Ratio:      positions[models.RankingRatio],
	}, nil
}
