// Command granabox-worker exports item events to the ledger spreadsheet.
package main

import (
	"context"
	"errors"
	"os"
	"time"

	"granabox/internal/amqp"
	"granabox/internal/backend"
	"granabox/internal/cache"
	"granabox/internal/cli"
	applog "granabox/internal/log"
	"granabox/internal/worker"
)

func main() {
	logger := cli.SetupLogger(applog.ComponentWorker)
	cli.LoadEnvFile(logger)
	cfg := cli.LoadAndValidateConfig(logger)

	if !cfg.AMQPEnabled() {
		logger.Error("AMQP_URL is required for the ledger worker")
		os.Exit(1)
	}

	ctx, stop := cli.ShutdownContext(logger)
	defer stop()

	ledgerCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid ledger configuration", applog.FieldError, err)
		os.Exit(1)
	}
	ledger, err := backend.NewFactory(logger.WithComponent(applog.ComponentSheets)).CreateLedger(ctx, ledgerCfg)
	if err != nil {
		logger.Error("Failed to initialize ledger", applog.FieldError, err, "ledger", ledgerCfg.Type.String())
		os.Exit(1)
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
		os.Exit(1)
	}
	defer client.Close()

	w := worker.NewLedgerWorker(ledger.Ledger, logger)
	cacheManager := cache.NewManager(logger)
	cacheManager.Register(w.Cache())
	cacheManager.StartCleanup(10 * time.Minute)
	defer cacheManager.Stop()

	logger.Info("Starting granabox worker",
		"ledger", ledger.Type.String(),
		"queue", cfg.AMQPQueue,
		applog.FieldOperation, applog.OpStartup)

	if err := client.Consume(ctx, w.HandleItemEvent); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", applog.FieldError, err)
		os.Exit(1)
	}

	s := w.Stats()
	logger.Info("Worker stopped gracefully",
		"processed", s.Processed,
		"skipped", s.Skipped,
		"failed", s.Failed,
		applog.FieldOperation, applog.OpShutdown)
}
