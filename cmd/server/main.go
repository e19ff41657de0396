package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"audittrail/internal/audit/broadcast"
	"audittrail/internal/audit/retention"
	"audittrail/internal/audit/schema"
	"audittrail/internal/audit/service"
	pgstore "audittrail/internal/audit/store/postgres"
	"audittrail/internal/audit/stream"
	"audittrail/internal/platform/config"
	"audittrail/internal/platform/httpserver"
	"audittrail/internal/platform/logger"
	"audittrail/internal/platform/metrics"
	"audittrail/internal/platform/postgres"
	platformredis "audittrail/internal/platform/redis"
	httptransport "audittrail/internal/transport/http"
)

// Startup budget for the backing store: the database container is often
// still booting when this process comes up.
const (
	initAttempts = 30
	initBackoff  = 2 * time.Second
)

// main wires the dependencies and keeps the server lifecycle small: nothing
// is reachable until the schema is ensured, and shutdown drains the server
// before releasing the sweeper, broker, and pool.
func main() {
	_ = godotenv.Load()
	cfg := config.FromEnv()
	log := logger.New()
	ctx := context.Background()

	validator, err := schema.NewFromFile(cfg.SchemaPath)
	if err != nil {
		log.Error("load audit schema", "path", cfg.SchemaPath, "error", err.Error())
		os.Exit(1)
	}

	db, err := postgres.Open(ctx, cfg.Database.DSN(), initAttempts, initBackoff, log)
	if err != nil {
		log.Error("connect postgres", "error", err.Error())
		os.Exit(1)
	}
	defer db.Close()

	eventStore := pgstore.New(db)
	if err := eventStore.EnsureSchema(ctx, initAttempts, initBackoff, log); err != nil {
		log.Error("ensure event store schema", "error", err.Error())
		os.Exit(1)
	}

	redisClient, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		log.Error("connect redis", "error", err.Error())
		os.Exit(1)
	}
	defer redisClient.Close()

	m := metrics.New()
	broadcaster := broadcast.NewRedis(redisClient.Client, cfg.Redis.Channel)
	events := service.New(validator, eventStore, broadcaster, log, m)
	streams := stream.New(broadcaster, log, m)

	sweeper := retention.New(eventStore, log, m)
	if err := sweeper.Start(); err != nil {
		log.Error("start retention sweeper", "error", err.Error())
		os.Exit(1)
	}

	handler := httptransport.NewHandler(events, streams, log, map[string]httptransport.HealthCheck{
		"postgres": db.PingContext,
		"redis":    redisClient.Health,
	})
	srv := httpserver.New(cfg.Addr, httptransport.NewRouter(handler))

	log.Info("starting audittrail", "addr", cfg.Addr, "channel", cfg.Redis.Channel)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err.Error())
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err.Error())
	}
	sweeper.Stop()
}
