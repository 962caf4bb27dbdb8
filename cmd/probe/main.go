// Package main is the entry point for the demo probe server.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/vyrodovalexey/mimosa-toolkit/internal/config"
	"github.com/vyrodovalexey/mimosa-toolkit/internal/handler"
	"github.com/vyrodovalexey/mimosa-toolkit/internal/logging"
	"github.com/vyrodovalexey/mimosa-toolkit/internal/server"
	"github.com/vyrodovalexey/mimosa-toolkit/internal/spawn"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		// Use a basic logger for startup errors
		basicLogger, _ := zap.NewProduction()
		basicLogger.Error("failed to load configuration", zap.Error(err))
		return 1
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, logging.OutputStdout)
	if err != nil {
		basicLogger, _ := zap.NewProduction()
		basicLogger.Error("failed to initialize logger", zap.Error(err))
		return 1
	}
	defer func() {
		_ = logger.Sync()
	}()

	logger.Info("configuration loaded",
		zap.Int("server_port", cfg.ServerPort),
		zap.String("log_level", cfg.LogLevel),
		zap.Duration("shutdown_timeout", cfg.ShutdownTimeout),
		zap.Bool("metrics_enabled", cfg.MetricsEnabled),
		zap.Duration("spawn_timeout", cfg.SpawnTimeout),
		zap.String("spawn_shell", cfg.SpawnShell),
	)

	srv := newServer(cfg, logger)

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- srv.Start()
	}()

	// Wait for shutdown signal
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Error("server error", zap.Error(err))
		return 1
	case sig := <-shutdown:
		logger.Info("shutdown signal received", zap.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("graceful shutdown failed", zap.Error(err))
			return 1
		}
	}

	logger.Info("server stopped")
	return 0
}

// newServer wires the spawn runner and probe routes into an HTTP server.
func newServer(cfg *config.Config, logger *zap.Logger) *server.Server {
	runner := spawn.NewRunner(logger, spawn.WithShell(cfg.SpawnShell))
	probe := handler.NewProbeHandler(runner, cfg.SpawnTimeout, logger)
	return server.New("probe", cfg.Address(), cfg, logger, probe)
}
