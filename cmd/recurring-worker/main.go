package main

import (
	"context"
	"os"
	"time"

	"github.com/robfig/cron/v3"

	"casalfinance/internal/cli"
	"casalfinance/internal/log"
	"casalfinance/internal/services"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(log.ComponentRecurrence, os.Getenv("LOG_LEVEL"))
	logger.Info("Starting recurring-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	be := cli.InitBackend(context.Background(), logger, cfg)

	processor := services.NewRolloverProcessor(be.Store, be.Publisher())

	run := func(ctx context.Context, label string) {
		count, err := processor.ProcessHouseholds(ctx, time.Now())
		if err != nil {
			logger.Error(label+" processing failed", log.FieldError, err)
			return
		}
		logger.Info(label+" processing complete", "expenses_created", count)
	}

	scheduler := cron.New()
	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		<-scheduler.Stop().Done()
		cli.CleanupLogger(logger, "backend", be.Cleanup)()
	})

	logger.Info("Running initial month rollover...")
	run(ctx, "Initial")

	if _, err := scheduler.AddFunc(cfg.RecurringSchedule, func() { run(ctx, "Scheduled") }); err != nil {
		// Validate already parsed the schedule
		logger.Error("Failed to schedule rollover", log.FieldError, err)
		os.Exit(1)
	}
	scheduler.Start()

	logger.Info("Month rollover scheduled",
		"schedule", cfg.RecurringSchedule,
		"data_backend", cfg.DataBackend)

	cli.WaitForShutdown(ctx, done)
}
