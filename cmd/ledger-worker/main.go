package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"casalfinance/internal/cli"
	"casalfinance/internal/log"
	"casalfinance/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(log.ComponentWorker, os.Getenv("LOG_LEVEL"))
	logger.Info("Starting ledger-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	be := cli.InitBackend(context.Background(), logger, cfg)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, cli.CleanupLogger(logger, "backend", be.Cleanup))

	var syncWorker *worker.SyncWorker
	if be.Syncer != nil {
		syncWorker = worker.NewSyncWorker(be.Store, be.Syncer, cfg.SyncConcurrency)

		// An empty local store is restored from the sync backend first
		keys, err := be.Store.List(ctx, cfg.HouseholdID)
		if err != nil {
			logger.Error("Failed to list local records", log.FieldError, err)
		} else if len(keys) == 0 {
			logger.Info("Local store empty, restoring household from sync backend",
				log.FieldHousehold, cfg.HouseholdID)
			n, err := syncWorker.PullHousehold(ctx, cfg.HouseholdID, be.Household(cfg.HouseholdID))
			if err != nil {
				logger.Error("Failed to restore household", log.FieldError, err)
			}
			logger.Info("Household restore complete", log.FieldCount, n)
		}

		// On startup, push any records whose notifications might have been missed
		logger.Info("Performing startup sync check...", log.FieldOperation, log.OpStartup)
		if err := syncWorker.StartupSyncCheck(ctx); err != nil {
			logger.Error("Failed startup sync check", log.FieldError, err)
			// Don't exit - continue with normal operation
		}
	} else {
		logger.Info("Skipping cloud sync operations - SYNC_BACKEND is none")
	}

	g, gctx := errgroup.WithContext(ctx)

	if syncWorker != nil && be.AMQP != nil {
		g.Go(func() error {
			err := be.AMQP.ConsumeLedgerSync(gctx, syncWorker.HandleSyncMessage)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	} else {
		logger.Info("Skipping AMQP message consumption - no sync worker or AMQP client available")
	}

	g.Go(func() error {
		return be.Caches.Run(gctx, cfg.CacheCleanupInterval)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Worker stopped with error", log.FieldError, err)
		be.Cleanup()
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
}
