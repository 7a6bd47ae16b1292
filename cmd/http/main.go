package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rafaelleal24/inventory/internal/adapters/config"
	"github.com/rafaelleal24/inventory/internal/app"
	"github.com/rafaelleal24/inventory/internal/core/logger"
)

// @title       Inventory API
// @version     1.0
// @description Inventory and order management API

// @host     localhost:8080
// @BasePath /

// @securityDefinitions.apikey BearerAuth
// @in                         header
// @name                       Authorization

//go:generate swag init -d ../.. -g cmd/http/main.go -o ../../docs --parseInternal

func main() {
	cfg := config.NewConfig()
	if err := logger.Initialize(cfg.Logger.Endpoint, cfg.Logger.ServiceName, cfg.Logger.IsProduction); err != nil {
		// logger not available yet, fall back to stderr
		fmt.Fprintln(os.Stderr, "failed to initialize logger: "+err.Error())
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cfg.Validate(); err != nil {
		logger.Fatal(ctx, "Invalid configuration", err, nil)
		shutdownLogger()
		os.Exit(1)
	}

	application, err := app.New(ctx, cfg)
	if err != nil {
		logger.Fatal(ctx, "Failed to start", err, nil)
		shutdownLogger()
		os.Exit(1)
	}

	runErr := application.Run(ctx)
	logger.Info(ctx, "Shutting down", nil)

	if err := application.Close(); err != nil {
		logger.Error(ctx, "Failed to release resources", err, nil)
	}
	if runErr != nil {
		logger.Fatal(ctx, "HTTP server failed", runErr, nil)
	}
	shutdownLogger()
	if runErr != nil {
		os.Exit(1)
	}
}

func shutdownLogger() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := logger.Shutdown(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "logger shutdown error: "+err.Error())
	}
}
