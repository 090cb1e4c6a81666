package services

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/campusmint/backend/internal/gateway"
	"github.com/campusmint/backend/internal/models"
	"github.com/campusmint/backend/internal/observability"
	"github.com/campusmint/backend/internal/store"
)

// StatsUpdater is the background job that recomputes every aggregate and
// ranking, for every term, on a fixed interval. It is the only writer of the
// stats cache.
//
// Each tick runs term by term, metric by metric, with no internal
// parallelism. A term that fails is logged and skipped; the remaining terms
// still run. Rank differences come from the previously cached rows, not from
// the previous window's data, so two runs over unchanged data always yield
// difference 0.
type StatsUpdater struct {
	uow          UnitOfWork
	stats        StatsStore
	transactions TransactionStore
	users        UserStore
	projects     ProjectStore
	ledger       gateway.Ledger
	log          zerolog.Logger
	metrics      *observability.Metrics
	interval     time.Duration
	now          func() time.Time
}

// NewStatsUpdater wires the recompute job. metrics may be nil in tests.
func NewStatsUpdater(
	uow UnitOfWork,
	stats StatsStore,
	transactions TransactionStore,
	users UserStore,
	projects ProjectStore,
	ledger gateway.Ledger,
	interval time.Duration,
	log zerolog.Logger,
	metrics *observability.Metrics,
) *StatsUpdater {
	return &StatsUpdater{
		uow:          uow,
		stats:        stats,
		transactions: transactions,
		users:        users,
		projects:     projects,
		ledger:       ledger,
		log:          log,
		metrics:      metrics,
		interval:     interval,
		now:          time.Now,
	}
}

// Run ticks immediately, then on every interval until the context ends.
func (j *StatsUpdater) Run(ctx context.Context) {
	j.log.Info().Dur("interval", j.interval).Msg("stats update job started")
	j.UpdateAll(ctx)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			j.log.Info().Msg("stats update job stopped")
			return
		case <-ticker.C:
			j.UpdateAll(ctx)
		}
	}
}

// UpdateAll recomputes every term once. Failures are contained per term.
func (j *StatsUpdater) UpdateAll(ctx context.Context) {
	start := time.Now()

	for _, term := range models.Terms {
		if err := j.updateTerm(ctx, term); err != nil {
			if j.metrics != nil {
				j.metrics.StatsTermErrors.WithLabelValues(string(term)).Inc()
			}
			j.log.Error().Err(err).Str("term", string(term)).Msg("stats recomputation failed for term")
		}
	}

	if j.metrics != nil {
		j.metrics.StatsRunDuration.Observe(time.Since(start).Seconds())
		j.metrics.StatsLastRunUnix.SetToCurrentTime()
	}
	j.log.Info().Dur("took", time.Since(start)).Msg("stats update completed")
}

// termSnapshot is everything one term's recomputation reads: the entity
// populations, their current ledger balances, and the window's transactions.
type termSnapshot struct {
	users    []models.User
	projects []models.Project
	balances map[uuid.UUID]int64 // by accountID
	window   []models.Transaction
	now      time.Time
	since    time.Time
}

func (j *StatsUpdater) updateTerm(ctx context.Context, term models.Term) error {
	now := j.now()
	snap, err := j.loadSnapshot(ctx, now, now.Add(-term.Duration()))
	if err != nil {
		return err
	}

	userStats := buildUserStats(snap)
	projectStats := buildProjectStats(snap)

	if err := j.saveAggregates(ctx, term, snap, userStats, projectStats); err != nil {
		return err
	}
	if err := j.updateRankings(ctx, term, userStats, snap.now,
		j.stats.UserRanks, j.stats.ClearUserRankings, j.stats.SaveUserRankings); err != nil {
		return err
	}
	return j.updateRankings(ctx, term, projectStats, snap.now,
		j.stats.ProjectRanks, j.stats.ClearProjectRankings, j.stats.SaveProjectRankings)
}

func (j *StatsUpdater) loadSnapshot(ctx context.Context, now, since time.Time) (termSnapshot, error) {
	snap := termSnapshot{now: now, since: since, balances: make(map[uuid.UUID]int64)}

	var err error
	if snap.users, err = j.users.FindAll(ctx); err != nil {
		return snap, err
	}
	if snap.projects, err = j.projects.FindAll(ctx); err != nil {
		return snap, err
	}

	accountIDs := make([]uuid.UUID, 0, len(snap.users)+len(snap.projects))
	for _, u := range snap.users {
		accountIDs = append(accountIDs, u.AccountID)
	}
	for _, p := range snap.projects {
		accountIDs = append(accountIDs, p.AccountID)
	}
	accounts, err := j.ledger.GetAccounts(ctx, accountIDs)
	if err != nil {
		return snap, err
	}
	for _, a := range accounts {
		snap.balances[a.AccountID] = a.Balance
	}

	page, err := j.transactions.FindAll(ctx, store.TransactionQuery{Limit: -1, Since: since})
	if err != nil {
		return snap, err
	}
	snap.window = page.Items
	return snap, nil
}

// userInflow reports whether a transaction credits its user side.
// TRANSFER and SYSTEM credit users; BILL_PAYMENT debits them. The project
// side is the mirror image.
func userInflow(t models.TransactionType) bool {
	return t == models.TransactionTransfer || t == models.TransactionSystem
}

func projectInflow(t models.TransactionType) bool {
	return t == models.TransactionBillPayment || t == models.TransactionSystem
}

func buildUserStats(snap termSnapshot) []models.EntityStats {
	byUser := make(map[uuid.UUID][]models.Transaction)
	for _, tx := range snap.window {
		if tx.UserID != nil {
			byUser[*tx.UserID] = append(byUser[*tx.UserID], tx)
		}
	}

	stats := make([]models.EntityStats, 0, len(snap.users))
	for _, u := range snap.users {
		stats = append(stats, buildEntityStats(u.ID, snap.balances[u.AccountID], byUser[u.ID], userInflow))
	}
	return stats
}

func buildProjectStats(snap termSnapshot) []models.EntityStats {
	byProject := make(map[uuid.UUID][]models.Transaction)
	for _, tx := range snap.window {
		if tx.ProjectID != nil {
			byProject[*tx.ProjectID] = append(byProject[*tx.ProjectID], tx)
		}
	}

	stats := make([]models.EntityStats, 0, len(snap.projects))
	for _, p := range snap.projects {
		stats = append(stats, buildEntityStats(p.ID, snap.balances[p.AccountID], byProject[p.ID], projectInflow))
	}
	return stats
}

func buildEntityStats(entityID uuid.UUID, balance int64, txs []models.Transaction, inflow func(models.TransactionType) bool) models.EntityStats {
	var in, out int64
	for _, tx := range txs {
		if inflow(tx.Type) {
			in += tx.Amount
		} else {
			out += tx.Amount
		}
	}

	net := in - out
	return models.EntityStats{
		EntityID:   entityID,
		Balance:    balance,
		InAmount:   in,
		OutAmount:  out,
		Count:      int64(len(txs)),
		Total:      in + out,
		Difference: net,
		Ratio:      ratioOf(net, balance-net),
	}
}

// ratioOf is net change as a percentage of the balance at window start.
// A zero starting balance yields 0, not an error.
func ratioOf(net, balanceAtStart int64) int64 {
	if balanceAtStart == 0 {
		return 0
	}
	return net * 100 / balanceAtStart
}

func (j *StatsUpdater) saveAggregates(ctx context.Context, term models.Term, snap termSnapshot, userStats, projectStats []models.EntityStats) error {
	return j.uow.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := j.stats.SaveSystemStats(ctx, systemAggregate(term, snap)); err != nil {
			return err
		}
		if err := j.stats.SaveUsersStats(ctx, classAggregate(term, snap, userStats, func(t models.Transaction) bool { return t.UserID != nil })); err != nil {
			return err
		}
		return j.stats.SaveProjectsStats(ctx, classAggregate(term, snap, projectStats, func(t models.Transaction) bool { return t.ProjectID != nil }))
	})
}

// systemAggregate covers every account combined. Transfers and bill payments
// move money inside the system, so the economy-wide net change is exactly
// the SYSTEM issuance in the window.
func systemAggregate(term models.Term, snap termSnapshot) models.SystemStats {
	var balance int64
	for _, b := range snap.balances {
		balance += b
	}

	var total, issued int64
	for _, tx := range snap.window {
		total += tx.Amount
		if tx.Type == models.TransactionSystem {
			issued += tx.Amount
		}
	}

	return models.SystemStats{
		Term:       term,
		Balance:    balance,
		Difference: issued,
		Count:      int64(len(snap.window)),
		Total:      total,
		Ratio:      ratioOf(issued, balance-issued),
		UpdatedAt:  snap.now,
	}
}

func classAggregate(term models.Term, snap termSnapshot, entityStats []models.EntityStats, involves func(models.Transaction) bool) models.AggregateStats {
	var balance, in, out int64
	for _, s := range entityStats {
		balance += s.Balance
		in += s.InAmount
		out += s.OutAmount
	}

	var count, total int64
	for _, tx := range snap.window {
		if involves(tx) {
			count++
			total += tx.Amount
		}
	}

	net := in - out
	return models.AggregateStats{
		Term:       term,
		Number:     int64(len(entityStats)),
		Balance:    balance,
		Difference: net,
		Count:      count,
		Total:      total,
		Ratio:      ratioOf(net, balance-net),
		UpdatedAt:  snap.now,
	}
}

func (j *StatsUpdater) updateRankings(
	ctx context.Context,
	term models.Term,
	entityStats []models.EntityStats,
	now time.Time,
	ranks func(context.Context, models.Term, models.RankingType) (map[uuid.UUID]int64, error),
	clear func(context.Context, models.Term, models.RankingType) error,
	save func(context.Context, []models.RankingEntry) error,
) error {
	for _, rankingType := range models.RankingTypes {
		previousRanks, err := ranks(ctx, term, rankingType)
		if err != nil {
			return err
		}
		entries := rankingEntries(term, rankingType, entityStats, previousRanks, now)

		// Clear and insert commit together, so readers see either the old
		// ranking or the new one, never an empty table.
		err = j.uow.RunInTransaction(ctx, func(ctx context.Context) error {
			if err := clear(ctx, term, rankingType); err != nil {
				return err
			}
			return save(ctx, entries)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func rankingEntries(term models.Term, rankingType models.RankingType, entityStats []models.EntityStats, previousRanks map[uuid.UUID]int64, now time.Time) []models.RankingEntry {
	sorted := make([]models.EntityStats, len(entityStats))
	copy(sorted, entityStats)
	// Stable keeps store order for ties, so repeated runs over unchanged
	// data produce identical rankings.
	sort.SliceStable(sorted, func(i, k int) bool {
		return rankingType.ValueOf(sorted[i]) > rankingType.ValueOf(sorted[k])
	})

	entries := make([]models.RankingEntry, 0, len(sorted))
	for i, s := range sorted {
		rank := int64(i + 1)
		var diff int64
		if previous, ok := previousRanks[s.EntityID]; ok {
			diff = previous - rank
		}
		entries = append(entries, models.RankingEntry{
			Term:        term,
			RankingType: rankingType,
			EntityID:    s.EntityID,
			Rank:        rank,
			Value:       rankingType.ValueOf(s),
			Difference:  diff,
			UpdatedAt:   now,
		})
	}
	return entries
}
