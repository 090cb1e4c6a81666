package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/campusmint/backend/internal/middleware"
	"github.com/campusmint/backend/internal/observability"
)

// RouterDeps carries everything the HTTP surface needs.
type RouterDeps struct {
	Bills        BillAPI
	Transactions TransactionAPI
	Stats        StatsAPI
	Auth         middleware.Verifier
	Log          zerolog.Logger
	Metrics      *observability.Metrics
	Registry     prometheus.Gatherer
}

// NewRouter assembles the full route tree: public stats reads, the
// user-token group and the project-key group, plus health and metrics.
func NewRouter(deps RouterDeps) http.Handler {
	bills := NewBillHandler(deps.Bills, deps.Log)
	transactions := NewTransactionHandler(deps.Transactions, deps.Log)
	stats := NewStatsHandler(deps.Stats, deps.Log)

	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(deps.Log, deps.Metrics))
	r.Use(middleware.Recoverer(deps.Log))
	r.Use(chimiddleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key"},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})
	if deps.Registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		// Public stats reads.
		stats.Mount(r)

		// Acting as a user.
		r.Group(func(r chi.Router) {
			r.Use(middleware.UserAuth(deps.Auth))
			bills.MountUserRoutes(r)
			transactions.MountUserRoutes(r)
		})

		// Acting as a project.
		r.Route("/project", func(r chi.Router) {
			r.Use(middleware.ProjectAuth(deps.Auth))
			bills.MountProjectRoutes(r)
			transactions.MountProjectRoutes(r)
		})
	})

	return r
}
