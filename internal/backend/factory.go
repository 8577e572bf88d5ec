package backend

import (
	"context"
	"fmt"

	applog "granabox/internal/log"
	"granabox/internal/sheets/google"
	"granabox/internal/sheets/memory"
)

// DefaultFactory implements the Factory interface.
type DefaultFactory struct {
	logger *applog.Logger
}

func NewFactory(logger *applog.Logger) Factory {
	if logger == nil {
		logger = applog.Wrap(nil, applog.ComponentSheets)
	}
	return &DefaultFactory{logger: logger}
}

// CreateLedger implements Factory.CreateLedger.
func (f *DefaultFactory) CreateLedger(ctx context.Context, config Config) (*LedgerResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case GoogleLedger:
		return f.createGoogleLedger(ctx, config)
	case MemoryLedger:
		f.logger.WarnContext(ctx, "No spreadsheet configured, ledger rows are kept in memory only")
		return &LedgerResult{Ledger: memory.New(), Type: MemoryLedger}, nil
	default:
		return nil, fmt.Errorf("unsupported ledger type: %s", config.Type)
	}
}

func (f *DefaultFactory) createGoogleLedger(ctx context.Context, config Config) (*LedgerResult, error) {
	ledger, err := google.NewFromEnv(ctx, google.Config{
		SpreadsheetID: config.GoogleSpreadsheetID,
		SheetName:     config.GoogleSheetName,
		Location:      config.Location,
	}, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets ledger: %w", err)
	}
	// A missing header is cosmetic; rows are still appended.
	if err := ledger.EnsureHeader(ctx); err != nil {
		f.logger.WarnContext(ctx, "Could not write ledger header", applog.FieldError, err)
	}

	f.logger.InfoContext(ctx, "Initialized Google Sheets ledger",
		"spreadsheet_id", config.GoogleSpreadsheetID,
		"sheet", config.GoogleSheetName)
	return &LedgerResult{Ledger: ledger, Type: GoogleLedger}, nil
}
