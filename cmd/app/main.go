package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"snowalert.app/internal/app"
	"snowalert.app/pkg/logger"
)

func main() {
	// Load environment variables from .env.local if present
	if err := godotenv.Load(".env.local"); err != nil {
		slog.Info("No .env.local file found, using process environment")
	}

	slog.SetDefault(logger.NewWithLevel(logger.ParseLevel(os.Getenv("LOG_LEVEL"))).Logger)

	// Create application with dependency injection
	application, err := app.NewApplication()
	if err != nil {
		slog.Error("Failed to initialize application", "error", err)
		os.Exit(1)
	}

	cfg := application.Config()
	slog.Info("Configuration loaded successfully")
	slog.Info("Forecast configuration",
		"location", cfg.Weather.Location,
		"days", cfg.Weather.Days,
		"times", cfg.Scheduler.Times,
		"timezone", cfg.Scheduler.Timezone,
		"recipients", len(cfg.Email.Recipients))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	setupGracefulShutdown(cancel, application)

	slog.Info("Starting Snow Alert...")
	if err := application.Start(ctx); err != nil {
		slog.Error("Scheduler stopped with error", "error", err)
		os.Exit(1)
	}
}

func setupGracefulShutdown(cancel context.CancelFunc, app *app.Application) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		slog.Info("Received shutdown signal...")

		// Bound how long shutdown waits for the scheduler loop to exit
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := app.Shutdown(shutdownCtx); err != nil {
			slog.Error("Error during graceful shutdown", "error", err)
		}

		cancel()
	}()
}
