package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/tajer-app/locations/internal/cache"
	"github.com/tajer-app/locations/internal/config"
	"github.com/tajer-app/locations/internal/db"
	"github.com/tajer-app/locations/internal/partner"
	"github.com/tajer-app/locations/internal/queue/asynqserver"
	"github.com/tajer-app/locations/internal/queue/client"
	"github.com/tajer-app/locations/internal/repository"
	"github.com/tajer-app/locations/internal/service"
	"github.com/tajer-app/locations/internal/worker"
	"github.com/tajer-app/locations/pkg/email"
	"github.com/tajer-app/locations/pkg/email/smtp"
	"github.com/tajer-app/locations/pkg/logger"
)

func main() {
	cfg := config.MustLoad()

	logger.SetupLogger(cfg.Env, cfg.LogLevel)
	defer logger.Sync()

	logger.Info("starting locations worker", zap.String("env", cfg.Env))

	dbConn, err := db.New(cfg.Database)
	if err != nil {
		logger.Fatal("db connect problem", zap.String("driver", cfg.Database.Driver), zap.Error(err))
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("error when closing db", zap.Error(err))
		}
	}()

	if cfg.Database.Migrate {
		if err := db.Migrate(context.Background(), dbConn); err != nil {
			logger.Fatal("db migrate failed", zap.Error(err))
		}
	}

	redisClient, err := cache.NewRedis(cfg.Cache)
	if err != nil {
		logger.Fatal("redis connect problem", zap.Error(err))
	}
	defer redisClient.Close()

	catalog, err := partner.LoadCatalog(cfg.Partners.CatalogFile)
	if err != nil {
		logger.Fatal("partner catalog load failed", zap.Error(err))
	}
	proxy := partner.NewHTTPProxy(cfg.Partners.ProxyURL, cfg.Partners.ProxyKey, cfg.Partners.Timeout, cfg.Partners.RPS)

	var emailSender email.Sender
	if cfg.Email.Enabled {
		emailSender, err = smtp.NewSMTPSender(cfg.SMTP.From, cfg.SMTP.Pass, cfg.SMTP.Host, cfg.SMTP.Port)
		if err != nil {
			logger.Fatal("smtp sender creation failed", zap.Error(err))
		}
	}

	asynqClient := client.New(cfg.Cache)
	defer asynqClient.Close()
	inspector := client.NewInspector(cfg.Cache)
	defer inspector.Close()

	repos := repository.NewRepositories(dbConn)
	services := service.NewServices(service.Deps{
		Config:    cfg,
		Repos:     repos,
		Catalog:   catalog,
		Enqueuer:  asynqClient,
		Inspector: inspector,
	})

	workers := worker.NewWorkers(worker.Deps{
		Repos:         repos,
		Fetcher:       partner.NewFetcher(proxy, catalog),
		Locker:        cache.NewLocker(redisClient, "locations:lock:"),
		Publisher:     cache.NewNotifier(redisClient),
		Enqueuer:      asynqClient,
		EmailProvider: emailSender,
		Config:        cfg,
	})

	srv, mux := asynqserver.New(cfg, workers, services.Sync)
	if err := srv.Start(mux); err != nil {
		logger.Fatal("asynq server start failed", zap.Error(err))
	}
	defer srv.Shutdown()

	scheduler, err := asynqserver.NewScheduler(cfg)
	if err != nil {
		logger.Fatal("asynq scheduler creation failed", zap.Error(err))
	}
	if scheduler != nil {
		if err := scheduler.Start(); err != nil {
			logger.Fatal("asynq scheduler start failed", zap.Error(err))
		}
		defer scheduler.Shutdown()
		logger.Info("scheduled syncs enabled", zap.String("schedule", cfg.Sync.Schedule))
	}

	logger.Info("worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	<-quit

	logger.Info("worker stopped")
}
