package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/campusmint/backend/internal/apperr"
	"github.com/campusmint/backend/internal/models"
	"github.com/campusmint/backend/internal/store"
)

// StatsHandler serves the precomputed statistics cache. Everything here is
// read-only; the stats update job is the sole writer.
type StatsHandler struct {
	stats StatsAPI
	log   zerolog.Logger
}

func NewStatsHandler(stats StatsAPI, log zerolog.Logger) *StatsHandler {
	return &StatsHandler{stats: stats, log: log}
}

type rankingPageResponse struct {
	Items      []models.RankingEntry `json:"items"`
	NextCursor string                `json:"nextCursor,omitempty"`
}

// Mount registers the stats routes. They are public reads.
func (h *StatsHandler) Mount(r chi.Router) {
	r.Route("/stats/{term}", func(r chi.Router) {
		r.Get("/", h.systemStats)
		r.Get("/users", h.usersStats)
		r.Get("/projects", h.projectsStats)
		r.Get("/users/{entityID}", h.userStats)
		r.Get("/projects/{entityID}", h.projectStats)
	})
	r.Route("/rankings/{term}", func(r chi.Router) {
		r.Get("/users/{rankingType}", h.userRankings)
		r.Get("/projects/{rankingType}", h.projectRankings)
	})
	r.Get("/users/{entityID}/balance-at", h.userBalanceAt)
	r.Get("/projects/{entityID}/balance-at", h.projectBalanceAt)
}

func (h *StatsHandler) systemStats(w http.ResponseWriter, r *http.Request) {
	term, err := pathTerm(r)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	stats, err := h.stats.SystemStats(r.Context(), term)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *StatsHandler) usersStats(w http.ResponseWriter, r *http.Request) {
	h.aggregateStats(w, r, h.stats.UsersStats)
}

func (h *StatsHandler) projectsStats(w http.ResponseWriter, r *http.Request) {
	h.aggregateStats(w, r, h.stats.ProjectsStats)
}

func (h *StatsHandler) aggregateStats(w http.ResponseWriter, r *http.Request,
	get func(ctx context.Context, term models.Term) (models.AggregateStats, error)) {
	term, err := pathTerm(r)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	stats, err := get(r.Context(), term)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *StatsHandler) userStats(w http.ResponseWriter, r *http.Request) {
	h.individualStats(w, r, h.stats.UserStats)
}

func (h *StatsHandler) projectStats(w http.ResponseWriter, r *http.Request) {
	h.individualStats(w, r, h.stats.ProjectStats)
}

func (h *StatsHandler) individualStats(w http.ResponseWriter, r *http.Request,
	get func(ctx context.Context, term models.Term, entityID uuid.UUID) (models.IndividualStats, error)) {
	term, err := pathTerm(r)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	entityID, err := pathID(r, "entityID")
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	stats, err := get(r.Context(), term, entityID)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *StatsHandler) userRankings(w http.ResponseWriter, r *http.Request) {
	h.rankings(w, r, h.stats.UserRankings)
}

func (h *StatsHandler) projectRankings(w http.ResponseWriter, r *http.Request) {
	h.rankings(w, r, h.stats.ProjectRankings)
}

func (h *StatsHandler) rankings(w http.ResponseWriter, r *http.Request,
	get func(ctx context.Context, term models.Term, rankingType models.RankingType, query store.RankingQuery) (store.RankingPage, error)) {
	term, err := pathTerm(r)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	rankingType, err := models.ParseRankingType(chi.URLParam(r, "rankingType"))
	if err != nil {
		writeError(w, h.log, apperr.BadRequest("unknown ranking type"))
		return
	}

	query := store.RankingQuery{
		Limit:      queryLimit(r),
		Cursor:     r.URL.Query().Get("cursor"),
		Descending: r.URL.Query().Get("order") == "desc",
	}

	page, err := get(r.Context(), term, rankingType, query)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, rankingPageResponse{Items: page.Items, NextCursor: page.NextCursor})
}

func (h *StatsHandler) userBalanceAt(w http.ResponseWriter, r *http.Request) {
	h.balanceAt(w, r, h.stats.UserBalanceAt)
}

func (h *StatsHandler) projectBalanceAt(w http.ResponseWriter, r *http.Request) {
	h.balanceAt(w, r, h.stats.ProjectBalanceAt)
}

func (h *StatsHandler) balanceAt(w http.ResponseWriter, r *http.Request,
	get func(ctx context.Context, entityID uuid.UUID, at time.Time) (int64, error)) {
	entityID, err := pathID(r, "entityID")
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	at, err := time.Parse(time.RFC3339, r.URL.Query().Get("at"))
	if err != nil {
		writeError(w, h.log, apperr.BadRequest("at must be RFC 3339"))
		return
	}

	balance, err := get(r.Context(), entityID, at)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"balance": balance, "at": at})
}

func pathTerm(r *http.Request) (models.Term, error) {
	term, err := models.ParseTerm(chi.URLParam(r, "term"))
	if err != nil {
		return "", apperr.BadRequest("unknown term")
	}
	return term, nil
}
