package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/tajer-app/locations/internal/ai"
	apiHttp "github.com/tajer-app/locations/internal/api/http"
	"github.com/tajer-app/locations/internal/cache"
	"github.com/tajer-app/locations/internal/config"
	"github.com/tajer-app/locations/internal/db"
	"github.com/tajer-app/locations/internal/partner"
	"github.com/tajer-app/locations/internal/queue/client"
	"github.com/tajer-app/locations/internal/repository"
	"github.com/tajer-app/locations/internal/server"
	"github.com/tajer-app/locations/internal/service"
	"github.com/tajer-app/locations/pkg/auth"
	"github.com/tajer-app/locations/pkg/logger"
)

func main() {
	// Init cfg from environment variables
	cfg := config.MustLoad()

	logger.SetupLogger(cfg.Env, cfg.LogLevel)
	defer logger.Sync()

	logger.Info("starting locations api", zap.String("env", cfg.Env))
	logger.Debug("debug messages are enabled")

	// Init database
	dbConn, err := db.New(cfg.Database)
	if err != nil {
		logger.Fatal("db connect problem", zap.String("driver", cfg.Database.Driver), zap.Error(err))
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("error when closing db", zap.Error(err))
		}
	}()
	logger.Info("db connection done", zap.String("driver", cfg.Database.Driver))

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

	generator, err := ai.New(cfg.AI)
	if err != nil {
		logger.Fatal("ai client creation failed", zap.Error(err))
	}
	if generator == nil {
		logger.Warn("ai api key is not set, resolver uses deterministic matching only")
	}

	tokenManager, err := auth.NewManager(cfg.Auth.JWT)
	if err != nil {
		logger.Fatal("auth manager creation err", zap.Error(err))
	}

	asynqClient := client.New(cfg.Cache)
	defer asynqClient.Close()
	inspector := client.NewInspector(cfg.Cache)
	defer inspector.Close()

	// Services, Repos & API Handlers
	repos := repository.NewRepositories(dbConn)
	services := service.NewServices(service.Deps{
		Config:    cfg,
		Repos:     repos,
		Catalog:   catalog,
		Enqueuer:  asynqClient,
		Inspector: inspector,
		Notifier:  cache.NewNotifier(redisClient),
		Generator: generator,
	})

	appCtx, stopApp := context.WithCancel(context.Background())
	defer stopApp()

	go func() {
		if err := services.Locations.Init(appCtx); err != nil {
			logger.Error("initial locations load failed, retrying on first request", zap.Error(err))
		}
	}()
	services.Locations.Listen(appCtx)
	defer services.Locations.Teardown()

	handlers := apiHttp.NewHandlers(services, tokenManager, cfg)

	// HTTP Server
	srv := server.NewServer(cfg, handlers.Init(cfg))
	go func() {
		if err := srv.Run(); !errors.Is(err, http.ErrServerClosed) {
			logger.Error("error occurred while running http server", zap.Error(err))
		}
	}()
	logger.Info("server started", zap.String("addr", srv.Addr()))

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	<-quit

	const timeout = 5 * time.Second

	ctx, shutdown := context.WithTimeout(context.Background(), timeout)
	defer shutdown()

	if err := srv.Stop(ctx); err != nil {
		logger.Error("failed to stop server", zap.Error(err))
	}

	logger.Info("app stopped")
}
