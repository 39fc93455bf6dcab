package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/mentiond/mentiond/pkg/config"
	"github.com/mentiond/mentiond/pkg/service"
	"github.com/mentiond/mentiond/pkg/utils"
)

func main() {
	// Load environment overrides from a .env file if one exists.
	if err := godotenv.Load(); err == nil {
		utils.GetLogger().Info("loaded environment from .env")
	}

	utils.InitLogger()
	logger := utils.GetLogger()

	if _, err := config.EnsureDefaultConfig(); err != nil {
		logger.Warn("could not write default config", "error", err)
	}
	cfg, configFile, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger.Info("config loaded", "file", configFile)

	server, err := NewServer(cfg)
	if err != nil {
		logger.Error("failed to build server", "error", err)
		os.Exit(1)
	}

	retention := service.NewRetentionService(server.store, cfg.RetentionDays())
	if err := retention.Start(); err != nil {
		logger.Error("failed to start retention scheduler", "error", err)
		os.Exit(1)
	}
	defer retention.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := server.Start(ctx); err != nil {
		logger.Error("failed to start server", "error", err)
		os.Exit(1)
	}

	// Block until asked to stop, then let the context unwind the HTTP
	// server and persistence worker.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")
	cancel()
}
