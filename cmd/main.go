package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"mailflare/internal/api"
	"mailflare/internal/config"
	"mailflare/internal/db"
	"mailflare/internal/dispatch"
	"mailflare/internal/handlers"
	"mailflare/internal/mailer"
	"mailflare/internal/render"
	"mailflare/internal/store"
	"mailflare/internal/tasks"
	"mailflare/internal/tracking"
	"mailflare/internal/workers"
)

func main() {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			log.Fatalf("Failed to load environment variables: %v", err)
		}
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	if err := db.Connect(cfg); err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("failed to close database connection", zap.Error(err))
		}
	}()

	dbInstance := db.GetDB()

	campaignStore := store.NewCampaignStore(dbInstance)
	jobStore := store.NewJobStore(dbInstance)
	sendLog := store.NewSendLog(dbInstance)
	trackingStore := store.NewTrackingStore(dbInstance)

	codec := render.NewTokenCodec(cfg.Tracker.JWTSecret, cfg.Tracker.TokenTTL)
	processor := render.NewProcessor(codec, cfg.Tracker.BaseURL)

	recorder := tracking.NewRecorder(trackingStore, logger)
	winners := tracking.NewWinnerSelector(trackingStore, logger)

	transport := mailer.NewSMTPTransport(cfg.SMTP)
	executor := mailer.NewExecutor(campaignStore, sendLog, jobStore, winners, processor, transport, logger)
	orchestrator := dispatch.NewOrchestrator(jobStore, executor, logger)

	taskClient := tasks.NewTaskClient(cfg.Redis, logger)
	defer taskClient.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// In queue mode the poller only enqueues sweep tasks and this server
	// works them; in cron mode the poller runs sweeps in-process.
	var taskServer *tasks.Server
	if cfg.Dispatch.Mode == "queue" {
		taskHandler := tasks.NewTaskHandler(orchestrator, executor, logger)
		taskServer = tasks.NewServer(cfg.Redis, cfg.Dispatch.Concurrency, taskHandler, logger)
		if err := taskServer.Start(); err != nil {
			logger.Fatal("failed to start task server", zap.Error(err))
		}
	}

	poller := workers.NewPoller(cfg.Dispatch, orchestrator, taskClient, logger)
	if err := poller.Start(ctx); err != nil {
		logger.Fatal("failed to start dispatch poller", zap.Error(err))
	}

	trackingHandler := handlers.NewTrackingHandler(codec, recorder, trackingStore, campaignStore, logger)
	campaignHandler := handlers.NewCampaignHandler(executor, taskClient, logger)
	apiServer := api.NewServer(cfg, trackingHandler, campaignHandler, logger)

	go func() {
		if err := apiServer.Start(); err != nil {
			logger.Error("api server stopped", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	poller.Stop()
	if taskServer != nil {
		taskServer.Shutdown()
	}
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown api server", zap.Error(err))
	}

	logger.Info("shutdown complete")
}
