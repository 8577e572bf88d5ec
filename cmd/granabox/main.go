// Command granabox serves the dashboard and forwards every change to the REST
// backend.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"granabox/internal/amqp"
	"granabox/internal/api"
	"granabox/internal/cache"
	"granabox/internal/cli"
	"granabox/internal/dashboard"
	apphttp "granabox/internal/http"
	"granabox/internal/lifecycle"
	applog "granabox/internal/log"
	"granabox/internal/websocket"
)

func main() {
	logger := cli.SetupLogger(applog.ComponentApp)
	cli.LoadEnvFile(logger)
	cfg := cli.LoadAndValidateConfig(logger)
	loc := cfg.Location()

	client, err := api.New(api.Config{
		BaseURL:  cfg.BackendURL,
		Timeout:  cfg.BackendTimeout,
		Location: loc,
		Logger:   logger,
	})
	if err != nil {
		logger.Error("Failed to create backend client", applog.FieldError, err, applog.FieldBackendURL, cfg.BackendURL)
		os.Exit(1)
	}

	hub := websocket.NewHub(logger)
	dash := dashboard.New(client, dashboard.Config{
		TTL:      cfg.SnapshotCacheTTL,
		Size:     cfg.SnapshotCacheSize,
		Debounce: cfg.RefreshDebounce,
		Notify: func(periods []string) {
			hub.Broadcast(websocket.RefreshMessage(periods))
		},
		Logger: logger,
	})
	defer dash.Close()

	controller := lifecycle.New(client,
		lifecycle.WithRefresher(dash),
		lifecycle.WithRecurringMonths(cfg.RecurringMonths),
		lifecycle.WithLogger(logger))

	cacheManager := cache.NewManager(logger)
	cacheManager.Register(dash.Cache())
	cacheManager.StartCleanup(time.Minute)
	defer cacheManager.Stop()

	srv, err := apphttp.NewServer(apphttp.Options{
		Addr:               ":" + cfg.Port,
		HandlerTimeout:     cfg.HandlerTimeout,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Location:           loc,
	}, apphttp.Deps{
		Backend:    client,
		Controller: controller,
		Dashboard:  dash,
		Hub:        hub,
		Logger:     logger,
	})
	if err != nil {
		logger.Error("Failed to create HTTP server", applog.FieldError, err)
		os.Exit(1)
	}

	ctx, stop := cli.ShutdownContext(logger)
	defer stop()

	// Changes made by other dashboards or tools arrive as item events.
	if cfg.AMQPEnabled() {
		events, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, "", logger)
		if err != nil {
			logger.Warn("AMQP unavailable, live refresh limited to this instance", applog.FieldError, err)
		} else {
			defer events.Close()
			go func() {
				err := events.Subscribe(ctx, func(_ context.Context, e *amqp.ItemEvent) error {
					dash.InvalidateKeys(e.Periods...)
					return nil
				})
				if err != nil && !errors.Is(err, context.Canceled) {
					logger.Error("Item event subscription stopped", applog.FieldError, err)
				}
			}()
		}
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
	}()

	logger.Info("Starting granabox dashboard",
		"port", cfg.Port,
		applog.FieldBackendURL, cfg.BackendURL,
		"amqp_enabled", cfg.AMQPEnabled(),
		applog.FieldOperation, applog.OpStartup)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully", applog.FieldOperation, applog.OpShutdown)
}
