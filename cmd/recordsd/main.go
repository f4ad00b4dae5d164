// Command recordsd runs the runsheet data service: batch ingestion, demo
// state control, and the dashboard read API.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/runsheet-systems/runsheet-data/internal/baseline"
	"github.com/runsheet-systems/runsheet-data/internal/config"
	"github.com/runsheet-systems/runsheet-data/internal/demo"
	"github.com/runsheet-systems/runsheet-data/internal/handlers"
	"github.com/runsheet-systems/runsheet-data/internal/ingest"
	"github.com/runsheet-systems/runsheet-data/internal/logging"
	"github.com/runsheet-systems/runsheet-data/internal/notify"
	"github.com/runsheet-systems/runsheet-data/internal/server"
	"github.com/runsheet-systems/runsheet-data/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Default().Error("load config", logging.Error(err))
		os.Exit(1)
	}

	log := logging.New(logging.ParseLevel(cfg.Logging.Level), cfg.Logging.Format).
		With(logging.Service("recordsd"))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := store.NewOpenSearchStore(cfg.OpenSearch)
	if err != nil {
		log.Error("connect to opensearch", logging.Error(err))
		os.Exit(1)
	}
	if err := st.Initialize(ctx); err != nil {
		log.Error("initialize indices", logging.Error(err))
		os.Exit(1)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Error("connect to redis", "addr", cfg.Redis.Addr, logging.Error(err))
		os.Exit(1)
	}
	defer redisClient.Close()

	tracker := demo.NewTracker(redisClient, cfg.Redis.ResetLockTTL)

	baselineMgr, err := baseline.NewManager(st, tracker, nil, log)
	if err != nil {
		log.Error("load baseline fixtures", logging.Error(err))
		os.Exit(1)
	}
	if cfg.Ingest.SeedOnStart {
		if err := baselineMgr.Seed(ctx); err != nil {
			log.Error("seed baseline data", logging.Error(err))
			os.Exit(1)
		}
	}

	var publisher *notify.Publisher
	if cfg.NATS.Enabled {
		publisher, err = notify.NewPublisher(cfg.NATS.URL)
		if err != nil {
			log.Warn("nats unavailable, events disabled", "url", cfg.NATS.URL, logging.Error(err))
		} else {
			defer publisher.Close()
		}
	}

	resolver := ingest.NewResolver(st, cfg.Resolver)
	enveloper := ingest.NewEnveloper(nil)
	coordinator := ingest.NewCoordinator(enveloper, resolver, cfg.Batch, log)

	handler := handlers.New(st, coordinator, tracker, baselineMgr, publisher, log,
		cfg.Ingest.MaxUploadBytes, cfg.Ingest.SheetsSeed)

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      server.NewRouter(handler),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info("data service listening", "addr", cfg.Server.Addr())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", logging.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutdown signal received")

	shutdownTimeout := cfg.Server.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 15 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", logging.Error(err))
	}
}
