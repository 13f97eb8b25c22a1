package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/fakhrymubarak/farm-weather/internal/app"
	"github.com/fakhrymubarak/farm-weather/internal/config"
)

func main() {
	settings := config.Load()
	logger := config.SetupLogger(settings.LogFile)
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := app.New(ctx, settings, logger)
	if err := a.StartJanitor(); err != nil {
		logger.Fatalw("Invalid cache prune schedule", "schedule", settings.PruneSchedule, "error", err)
	}
	if err := a.Run(ctx); err != nil {
		logger.Fatalw("Server error", "error", err)
	}
	logger.Infow("Server stopped")
}
