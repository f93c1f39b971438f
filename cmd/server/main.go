package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ZertGraf/pr-readiness/internal/bootstrap"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

const shutdownTimeout = 30 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "pr-readiness: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New()
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	// Init releases whatever it opened before failing
	if err = app.Init(ctx); err != nil {
		app.Logger.Error("failed to establish connections", "error", err)
		return err
	}

	app.Logger.Info("pr-readiness service started",
		"version", version,
		"environment", app.Config.Environment,
		"storage", app.Config.StorageDriver,
		"log_level", app.Config.LogLevel)

	<-ctx.Done()
	stop()
	app.Logger.Info("received shutdown signal, initiating graceful shutdown")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err = app.Shutdown(shutdownCtx); err != nil {
		app.Logger.Error("application shutdown failed", "error", err)
		return err
	}

	app.Logger.Info("service stopped gracefully")
	return nil
}
