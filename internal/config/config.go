package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Dashboard server
	Port               string
	HandlerTimeout     time.Duration
	RateLimitPerMinute int
	DisplayTimezone    string

	// REST backend the dashboard talks to
	BackendURL     string
	BackendTimeout time.Duration

	// Reference backend
	APIPort         string
	SQLiteDBPath    string
	RecurringMonths int

	// Dashboard refresh loop
	SnapshotCacheTTL  time.Duration
	SnapshotCacheSize int
	RefreshDebounce   time.Duration

	// AMQP (empty URL disables item events)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Ledger export
	GoogleSpreadsheetID string
	GoogleLedgerSheet   string

	// Logging
	LogLevel  string
	LogFormat string
}

func Load() *Config {
	return &Config{
		Port:               getEnv("PORT", "8080"),
		HandlerTimeout:     getEnvDuration("HANDLER_TIMEOUT", 7*time.Second),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
		DisplayTimezone:    getEnv("DISPLAY_TIMEZONE", "America/Sao_Paulo"),

		BackendURL:     getEnv("BACKEND_URL", "http://127.0.0.1:5000"),
		BackendTimeout: getEnvDuration("BACKEND_TIMEOUT", 10*time.Second),

		APIPort:         getEnv("API_PORT", "5000"),
		SQLiteDBPath:    getEnv("SQLITE_DB_PATH", "./data/granabox.db"),
		RecurringMonths: getEnvInt("RECURRING_MONTHS", 12),

		SnapshotCacheTTL:  getEnvDuration("SNAPSHOT_CACHE_TTL", 2*time.Minute),
		SnapshotCacheSize: getEnvInt("SNAPSHOT_CACHE_SIZE", 48),
		RefreshDebounce:   getEnvDuration("REFRESH_DEBOUNCE", 300*time.Millisecond),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "granabox"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "item_events"),

		GoogleSpreadsheetID: getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleLedgerSheet:   getEnv("GOOGLE_LEDGER_SHEET_NAME", "Ledger"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}
}

// Location returns the display time zone, UTC when it cannot be loaded.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.DisplayTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// AMQPEnabled reports whether item events should be published and consumed.
func (c *Config) AMQPEnabled() bool {
	return c.AMQPURL != ""
}

// Validate checks every setting and reports all problems at once.
func (c *Config) Validate() error {
	var errors []string

	errors = append(errors, validatePort("port", c.Port)...)
	errors = append(errors, validatePort("API port", c.APIPort)...)

	if parsedURL, err := url.Parse(c.BackendURL); err != nil || c.BackendURL == "" {
		errors = append(errors, fmt.Sprintf("invalid backend URL '%s'", c.BackendURL))
	} else if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		errors = append(errors, fmt.Sprintf("invalid backend URL scheme '%s': must be 'http' or 'https'", parsedURL.Scheme))
	}

	if c.BackendTimeout < 100*time.Millisecond || c.BackendTimeout > 2*time.Minute {
		errors = append(errors, fmt.Sprintf("invalid backend timeout %v: must be between 100ms and 2m", c.BackendTimeout))
	}
	if c.HandlerTimeout < time.Second || c.HandlerTimeout > 5*time.Minute {
		errors = append(errors, fmt.Sprintf("invalid handler timeout %v: must be between 1s and 5m", c.HandlerTimeout))
	}

	if _, err := time.LoadLocation(c.DisplayTimezone); err != nil {
		errors = append(errors, fmt.Sprintf("invalid display timezone '%s': %v", c.DisplayTimezone, err))
	}

	if c.SQLiteDBPath == "" {
		errors = append(errors, "SQLite database path cannot be empty")
	}
	if c.RecurringMonths < 1 || c.RecurringMonths > 120 {
		errors = append(errors, fmt.Sprintf("invalid recurring months %d: must be between 1 and 120", c.RecurringMonths))
	}

	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1", c.RateLimitPerMinute))
	}
	if c.SnapshotCacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid snapshot cache size %d: must be at least 1", c.SnapshotCacheSize))
	}
	if c.SnapshotCacheTTL < time.Second {
		errors = append(errors, fmt.Sprintf("invalid snapshot cache TTL %v: must be at least 1 second", c.SnapshotCacheTTL))
	}
	if c.RefreshDebounce < 0 || c.RefreshDebounce > 10*time.Second {
		errors = append(errors, fmt.Sprintf("invalid refresh debounce %v: must be between 0 and 10s", c.RefreshDebounce))
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.GoogleSpreadsheetID != "" && c.GoogleLedgerSheet == "" {
		errors = append(errors, "Google ledger sheet name is required when a spreadsheet is configured")
	}

	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.LogFormat))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

func validatePort(name, value string) []string {
	port, err := strconv.Atoi(value)
	if err != nil {
		return []string{fmt.Sprintf("invalid %s '%s': must be a number", name, value)}
	}
	if port < 1 || port > 65535 {
		return []string{fmt.Sprintf("invalid %s %d: must be between 1 and 65535", name, port)}
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
