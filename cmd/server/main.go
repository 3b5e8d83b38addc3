package main

import (
	"context"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"prmanager/internal/config"
	"prmanager/internal/repository"
	"prmanager/internal/selector"
	"prmanager/internal/service"
	"prmanager/internal/transport"
)

type App struct {
	Server     *http.Server
	Repository *repository.Repository
}

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	app := &App{}

	cfg, err := config.NewConfig()
	if err != nil {
		zap.L().Fatal("failed to get config", zap.Error(err))
	}

	repo, err := repository.NewRepository(cfg.PostgresCfg)
	if err != nil {
		zap.L().Fatal("failed to create repository", zap.Error(err))
	}
	app.Repository = repo

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	svc := service.NewService(repo, selector.New(rng))

	zap.L().Info("starting server...", zap.String("port", cfg.HTTPPort))
	app.Server = transport.StartServer(cfg, svc)

	app.gracefulShutdown()
}

func (app *App) gracefulShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	<-quit
	zap.L().Info("shutdown signal received")

	const defaultShutdownTTL = time.Second * 10
	shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTTL)
	defer cancel()

	zap.L().Info("shutting down HTTP server...")
	if err := app.Server.Shutdown(shutdownCtx); err != nil {
		zap.L().Error("failed to shutdown HTTP server", zap.Error(err))
	}

	zap.L().Info("closing database connection...")
	app.Repository.CloseConnection()

	zap.L().Info("app shutdown completed")
}
