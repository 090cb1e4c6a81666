package store

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusmint/backend/internal/cursor"
	"github.com/campusmint/backend/internal/models"
)

func TestStatsStore_Aggregates(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewStatsStore(db)
	ctx := context.Background()

	t.Run("save system stats", func(t *testing.T) {
		stats := models.SystemStats{
			Term: models.Term7Days, Balance: 10000, Difference: 250,
			Count: 12, Total: 3400, Ratio: 2, UpdatedAt: time.Now(),
		}

		mock.ExpectExec("INSERT INTO stats_system").
			WithArgs("7days", stats.Balance, stats.Difference, stats.Count,
				stats.Total, stats.Ratio, stats.UpdatedAt).
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, store.SaveSystemStats(ctx, stats))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("read system stats before first run", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM stats_system WHERE term = \\$1").
			WithArgs("24hours").
			WillReturnRows(sqlmock.NewRows([]string{"balance", "difference", "count", "total", "ratio", "updated_at"}))

		stats, err := store.GetSystemStats(ctx, models.Term24Hours)
		assert.NoError(t, err)
		assert.Nil(t, stats)
	})

	t.Run("read users aggregate", func(t *testing.T) {
		updatedAt := time.Now().UTC()

		mock.ExpectQuery("SELECT (.+) FROM stats_users WHERE term = \\$1").
			WithArgs("30days").
			WillReturnRows(sqlmock.NewRows([]string{"number", "balance", "difference", "count", "total", "ratio", "updated_at"}).
				AddRow(40, 8000, -120, 55, 9100, -1, updatedAt))

		stats, err := store.GetUsersStats(ctx, models.Term30Days)
		assert.NoError(t, err)
		require.NotNil(t, stats)
		assert.Equal(t, models.Term30Days, stats.Term)
		assert.Equal(t, int64(40), stats.Number)
		assert.Equal(t, int64(-120), stats.Difference)
	})
}

func TestStatsStore_Rankings(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewStatsStore(db)
	ctx := context.Background()

	t.Run("ranks come back as one map", func(t *testing.T) {
		first := models.NewID()
		second := models.NewID()

		mock.ExpectQuery("SELECT entity_id, rank FROM stats_user_rankings WHERE term = \\$1 AND ranking_type = \\$2").
			WithArgs("24hours", "balance").
			WillReturnRows(sqlmock.NewRows([]string{"entity_id", "rank"}).
				AddRow(first.String(), 1).
				AddRow(second.String(), 2))

		ranks, err := store.UserRanks(ctx, models.Term24Hours, models.RankingBalance)
		assert.NoError(t, err)
		assert.Equal(t, map[uuid.UUID]int64{first: 1, second: 2}, ranks)
	})

	t.Run("clear then bulk insert", func(t *testing.T) {
		mock.ExpectExec("DELETE FROM stats_project_rankings WHERE term = \\$1 AND ranking_type = \\$2").
			WithArgs("7days", "total").
			WillReturnResult(sqlmock.NewResult(0, 3))

		entries := []models.RankingEntry{
			{Term: models.Term7Days, RankingType: models.RankingTotal, EntityID: models.NewID(), Rank: 1, Value: 900, Difference: 2, UpdatedAt: time.Now()},
			{Term: models.Term7Days, RankingType: models.RankingTotal, EntityID: models.NewID(), Rank: 2, Value: 400, Difference: -1, UpdatedAt: time.Now()},
		}
		mock.ExpectExec("INSERT INTO stats_project_rankings").
			WithArgs(
				"7days", "total", entries[0].EntityID, int64(1), int64(900), int64(2), entries[0].UpdatedAt,
				"7days", "total", entries[1].EntityID, int64(2), int64(400), int64(-1), entries[1].UpdatedAt,
			).
			WillReturnResult(sqlmock.NewResult(0, 2))

		assert.NoError(t, store.ClearProjectRankings(ctx, models.Term7Days, models.RankingTotal))
		assert.NoError(t, store.SaveProjectRankings(ctx, entries))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty bulk insert is a no-op", func(t *testing.T) {
		assert.NoError(t, store.SaveUserRankings(ctx, nil))
	})
}

func TestStatsStore_GetUserRankings(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewStatsStore(db)
	ctx := context.Background()
	rankingCols := []string{"entity_id", "rank", "value", "difference", "updated_at"}

	t.Run("full page emits rank cursor", func(t *testing.T) {
		rows := sqlmock.NewRows(rankingCols)
		ids := make([]uuid.UUID, 3)
		for i := range ids {
			ids[i] = models.NewID()
			rows.AddRow(ids[i].String(), i+1, int64(1000-i*100), 0, time.Now())
		}

		mock.ExpectQuery("SELECT (.+) FROM stats_user_rankings WHERE term = \\$1 AND ranking_type = \\$2 ORDER BY rank ASC LIMIT \\$3").
			WithArgs("24hours", "balance", 3).
			WillReturnRows(rows)

		page, err := store.GetUserRankings(ctx, models.Term24Hours, models.RankingBalance,
			RankingQuery{Limit: 2})
		assert.NoError(t, err)
		assert.Len(t, page.Items, 2)
		assert.Equal(t, int64(2), page.Items[1].Rank)
		assert.Equal(t, cursor.EncodeRank(2, ids[1]), page.NextCursor)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("cursor resumes past the token rank", func(t *testing.T) {
		token := cursor.EncodeRank(20, models.NewID())

		mock.ExpectQuery("SELECT (.+) FROM stats_user_rankings WHERE term = \\$1 AND ranking_type = \\$2 AND rank > \\$3 ORDER BY rank ASC LIMIT \\$4").
			WithArgs("24hours", "balance", int64(20), 21).
			WillReturnRows(sqlmock.NewRows(rankingCols))

		page, err := store.GetUserRankings(ctx, models.Term24Hours, models.RankingBalance,
			RankingQuery{Cursor: token})
		assert.NoError(t, err)
		assert.Empty(t, page.Items)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("descending reverses the order", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM stats_user_rankings WHERE term = \\$1 AND ranking_type = \\$2 ORDER BY rank DESC LIMIT \\$3").
			WithArgs("7days", "ratio", 21).
			WillReturnRows(sqlmock.NewRows(rankingCols))

		_, err := store.GetUserRankings(ctx, models.Term7Days, models.RankingRatio,
			RankingQuery{Descending: true})
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestStatsStore_IndividualStats(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewStatsStore(db)
	ctx := context.Background()
	userID := models.NewID()
	cols := []string{"ranking_type", "rank", "value", "difference"}

	t.Run("assembles every ranking position", func(t *testing.T) {
		rows := sqlmock.NewRows(cols)
		for i, rt := range models.RankingTypes {
			rows.AddRow(string(rt), i+1, int64(100*(i+1)), i)
		}

		mock.ExpectQuery("SELECT ranking_type, rank, value, difference FROM stats_user_rankings WHERE term = \\$1 AND entity_id = \\$2").
			WithArgs("365days", userID).
			WillReturnRows(rows)

		stats, err := store.GetUserIndividualStats(ctx, models.Term365Days, userID)
		assert.NoError(t, err)
		require.NotNil(t, stats)
		assert.Equal(t, int64(1), stats.Balance.Rank)
		assert.Equal(t, int64(700), stats.Ratio.Value)
	})

	t.Run("partial rows read as absent", func(t *testing.T) {
		mock.ExpectQuery("SELECT ranking_type, rank, value, difference FROM stats_user_rankings").
			WithArgs("365days", userID).
			WillReturnRows(sqlmock.NewRows(cols).AddRow("balance", 1, 100, 0))

		stats, err := store.GetUserIndividualStats(ctx, models.Term365Days, userID)
		assert.NoError(t, err)
		assert.Nil(t, stats)
	})
}
