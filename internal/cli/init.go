// Package cli holds the start-up steps shared by the binaries under cmd/.
package cli

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"granabox/internal/config"
	applog "granabox/internal/log"
	"granabox/internal/storage"
)

// LoadEnvFile loads .env files for local development. A missing file is fine.
func LoadEnvFile(logger *applog.Logger, files ...string) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			logger.Warn("Failed to load env file", "file", f, applog.FieldError, err)
		}
	}
}

// SetupLogger builds the process logger from LOG_LEVEL and LOG_FORMAT and
// installs it as the slog default.
func SetupLogger(component string) *applog.Logger {
	logger := applog.New(applog.Config{
		Level:     applog.ParseLevel(os.Getenv("LOG_LEVEL")),
		Format:    os.Getenv("LOG_FORMAT"),
		Component: component,
	})
	applog.SetDefault(logger)
	return logger
}

// LoadAndValidateConfig loads configuration and exits the process when it is invalid.
func LoadAndValidateConfig(logger *applog.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", applog.FieldError, err,
			applog.FieldErrorType, applog.ErrorTypeConfiguration)
		os.Exit(1)
	}
	return cfg
}

// InitSQLite opens the repository or exits the process.
func InitSQLite(logger *applog.Logger, dbPath string) *storage.SQLiteRepository {
	repo, err := storage.NewSQLiteRepository(dbPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", applog.FieldError, err, "path", dbPath)
		os.Exit(1)
	}
	return repo
}

// ShutdownContext returns a context cancelled on SIGINT or SIGTERM.
func ShutdownContext(logger *applog.Logger) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ctx.Done()
		logger.Info("Shutdown signal received", applog.FieldOperation, applog.OpShutdown)
	}()
	return ctx, stop
}
