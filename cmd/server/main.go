package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/campusmint/backend/internal/config"
	"github.com/campusmint/backend/internal/database"
	"github.com/campusmint/backend/internal/gateway"
	"github.com/campusmint/backend/internal/handlers"
	"github.com/campusmint/backend/internal/observability"
	"github.com/campusmint/backend/internal/services"
	"github.com/campusmint/backend/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := observability.NewLogger("main", "error")
		boot.Fatal().Err(err).Msg("loading configuration")
	}

	log := observability.NewLogger("server", cfg.LogLevel)

	db, err := database.InitPostgres(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("connecting to postgres")
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	redisClient, err := database.InitRedis(ctx, cfg.Redis)
	if err != nil {
		// The caches degrade to direct DB reads without Redis.
		log.Warn().Err(err).Msg("redis unavailable, caching disabled")
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)

	ledger := gateway.NewClient(cfg.Ledger.BaseURL, cfg.Ledger.APIKey, cfg.Ledger.Timeout,
		observability.NewLogger("ledger-gateway", cfg.LogLevel), metrics)

	uow := store.NewUnitOfWork(db)
	billStore := store.NewBillStore(db)
	transactionStore := store.NewTransactionStore(db)
	userStore := store.NewUserStore(db, redisClient, cfg.Redis.EntryTTL)
	projectStore := store.NewProjectStore(db, redisClient, cfg.Redis.EntryTTL)
	statsStore := store.NewStatsStore(db)
	apiKeyStore := store.NewAPIKeyStore(db)

	billService := services.NewBillService(uow, billStore, transactionStore, userStore,
		projectStore, ledger, observability.NewLogger("bills", cfg.LogLevel), metrics)
	transactionService := services.NewTransactionService(transactionStore, userStore,
		projectStore, ledger, observability.NewLogger("transactions", cfg.LogLevel), metrics)
	statsService := services.NewStatsService(statsStore, transactionStore, userStore,
		projectStore, ledger)
	authService := services.NewAuthService(apiKeyStore, cfg.Auth,
		observability.NewLogger("auth", cfg.LogLevel))

	statsUpdater := services.NewStatsUpdater(uow, statsStore, transactionStore, userStore,
		projectStore, ledger, cfg.Stats.UpdateInterval,
		observability.NewLogger("stats-updater", cfg.LogLevel), metrics)
	go statsUpdater.Run(ctx)

	router := handlers.NewRouter(handlers.RouterDeps{
		Bills:        billService,
		Transactions: transactionService,
		Stats:        statsService,
		Auth:         authService,
		Log:          observability.NewLogger("http", cfg.LogLevel),
		Metrics:      metrics,
		Registry:     registry,
	})

	server := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("server shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
		os.Exit(1)
	}
	log.Info().Msg("server stopped")
}
