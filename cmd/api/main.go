package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/baharkarakas/strichliste-backend/internal/api"
	"github.com/baharkarakas/strichliste-backend/internal/config"
	"github.com/baharkarakas/strichliste-backend/internal/db"
	"github.com/baharkarakas/strichliste-backend/internal/events"
	"github.com/baharkarakas/strichliste-backend/internal/logger"
	"github.com/baharkarakas/strichliste-backend/internal/metrics"
	"github.com/baharkarakas/strichliste-backend/internal/repository"
	"github.com/baharkarakas/strichliste-backend/internal/repository/bolt"
	"github.com/baharkarakas/strichliste-backend/internal/repository/postgres"
	"github.com/baharkarakas/strichliste-backend/internal/services"
	"github.com/baharkarakas/strichliste-backend/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config", "err", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Env)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg)
	if err != nil {
		log.Error("storage", "driver", cfg.StorageDriver, "err", err)
		os.Exit(1)
	}
	defer store.Close()

	var pub events.Publisher = events.LogPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		pub = events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		log.Info("publishing ledger events to kafka", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}
	defer pub.Close()

	wp := worker.NewPool(cfg.WorkerCount, 0)
	defer wp.Stop()

	clock := services.SystemClock{}
	ledgerSvc := services.NewLedgerService(
		store,
		clock,
		services.GracePolicy{Period: cfg.GracePeriod},
		services.WithOperationTimeout(cfg.OperationTimeout),
		services.WithHistoryLimit(cfg.HistoryLimit),
		services.WithEvents(wp, pub),
	)
	userSvc := services.NewUserService(store, cfg.OperationTimeout)
	articleSvc := services.NewArticleService(store, cfg.OperationTimeout)

	metrics.Init()
	r := api.NewRouter(api.RouterDeps{
		Cfg:        cfg,
		UserSvc:    userSvc,
		LedgerSvc:  ledgerSvc,
		ArticleSvc: articleSvc,
		Clock:      clock,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("server starting", "port", cfg.HTTPPort, "storage", cfg.StorageDriver, "grace_period", cfg.GracePeriod)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown", "err", err)
	}
}

func openStore(ctx context.Context, cfg config.Config) (repository.Store, error) {
	if cfg.StorageDriver == "bolt" {
		s, err := bolt.Open(cfg.BoltPath)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns)
	if err != nil {
		return nil, err
	}
	if cfg.Migrate {
		if err := db.RunMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
	}
	return postgres.New(pool, cfg.DBLockTimeout), nil
}
