// Command granabox-api is the reference REST backend: SQLite storage with
// optional item events on RabbitMQ.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"granabox/internal/amqp"
	"granabox/internal/cli"
	applog "granabox/internal/log"
	"granabox/internal/restapi"
	"granabox/internal/services"
)

func main() {
	logger := cli.SetupLogger(applog.ComponentApp)
	cli.LoadEnvFile(logger)
	cfg := cli.LoadAndValidateConfig(logger)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)

	// Only a live client may become the publisher; a nil *amqp.Client in the
	// interface would not compare equal to nil.
	var publisher services.Publisher
	if cfg.AMQPEnabled() {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without item events", applog.FieldError, err)
		} else {
			publisher = client
			logger.Info("Initialized AMQP client", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	items := services.NewItemService(repo, publisher, logger.WithComponent(applog.ComponentStorage))
	defer func() {
		if err := items.Close(); err != nil {
			logger.Error("Failed to close item service", applog.FieldError, err)
		}
	}()
	recurrences := services.NewRecurrenceExpander(items, cfg.RecurringMonths)

	srv, err := restapi.NewServer(restapi.Options{
		Addr:           ":" + cfg.APIPort,
		HandlerTimeout: cfg.HandlerTimeout,
		Location:       cfg.Location(),
	}, items, recurrences, logger)
	if err != nil {
		logger.Error("Failed to create REST server", applog.FieldError, err)
		os.Exit(1)
	}

	ctx, stop := cli.ShutdownContext(logger)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
	}()

	logger.Info("Starting granabox API",
		"port", cfg.APIPort,
		"db_path", cfg.SQLiteDBPath,
		"amqp_enabled", publisher != nil,
		applog.FieldOperation, applog.OpStartup)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.APIPort)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully", applog.FieldOperation, applog.OpShutdown)
}
