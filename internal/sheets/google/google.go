// Package google appends ledger rows to a Google Sheets spreadsheet through a
// service account.
package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	applog "granabox/internal/log"
	"granabox/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// DefaultSheetName is the tab the ledger is written to.
const DefaultSheetName = "Ledger"

// ledgerColumns is the A1 column span of sheets.Header.
const ledgerColumns = "A:J"

var _ sheets.LedgerWriter = (*Ledger)(nil)

type Config struct {
	SpreadsheetID string
	SheetName     string
	// Location is used to render event timestamps. Defaults to UTC.
	Location *time.Location
}

type Ledger struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheet         string
	loc           *time.Location
	logger        *applog.Logger
}

// NewFromEnv creates a ledger authenticated with the service account found in
// GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or
// GOOGLE_APPLICATION_CREDENTIALS.
func NewFromEnv(ctx context.Context, cfg Config, logger *applog.Logger) (*Ledger, error) {
	credentials, err := credentialsFromEnv(ctx, logger)
	if err != nil {
		return nil, err
	}
	return New(ctx, cfg, logger,
		goption.WithCredentialsJSON(credentials),
		goption.WithScopes(gsheet.SpreadsheetsScope))
}

// New creates a ledger with explicit client options.
func New(ctx context.Context, cfg Config, logger *applog.Logger, opts ...goption.ClientOption) (*Ledger, error) {
	if logger == nil {
		logger = applog.Wrap(nil, applog.ComponentSheets)
	}
	id := strings.TrimSpace(cfg.SpreadsheetID)
	if id == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	sheet := strings.TrimSpace(cfg.SheetName)
	if sheet == "" {
		sheet = DefaultSheetName
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}

	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	logger.InfoContext(ctx, "Google Sheets ledger ready", "spreadsheet_id", id, "sheet", sheet)
	return &Ledger{svc: svc, spreadsheetID: id, sheet: sheet, loc: loc, logger: logger}, nil
}

func credentialsFromEnv(ctx context.Context, logger *applog.Logger) ([]byte, error) {
	if logger == nil {
		logger = applog.Wrap(nil, applog.ComponentSheets)
	}
	inline := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	file := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if inline == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	switch {
	case inline != "":
		logger.DebugContext(ctx, "Using inline service account credentials")
		return []byte(inline), nil
	case file != "":
		logger.DebugContext(ctx, "Reading service account credentials", "path", file)
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

// EnsureHeader writes the column titles to the first row when it is empty.
func (l *Ledger) EnsureHeader(ctx context.Context) error {
	headerRange := fmt.Sprintf("%s!A1:J1", l.sheet)
	resp, err := l.svc.Spreadsheets.Values.Get(l.spreadsheetID, headerRange).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read ledger header: %w", err)
	}
	if len(resp.Values) > 0 && len(resp.Values[0]) > 0 {
		return nil
	}
	vr := &gsheet.ValueRange{Values: [][]any{sheets.Header()}}
	if _, err := l.svc.Spreadsheets.Values.Update(l.spreadsheetID, headerRange, vr).
		ValueInputOption("RAW").Context(ctx).Do(); err != nil {
		return fmt.Errorf("write ledger header: %w", err)
	}
	l.logger.InfoContext(ctx, "Ledger header written", "sheet", l.sheet)
	return nil
}

// AppendRow appends the row after the last used row and returns the updated
// A1 range.
func (l *Ledger) AppendRow(ctx context.Context, row sheets.LedgerRow) (string, error) {
	vr := &gsheet.ValueRange{Values: [][]any{row.Values(l.loc)}}
	resp, err := l.svc.Spreadsheets.Values.Append(l.spreadsheetID, l.sheet+"!"+ledgerColumns, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("append ledger row: %w", err)
	}

	ref := ""
	if resp.Updates != nil {
		ref = resp.Updates.UpdatedRange
	}
	l.logger.DebugContext(ctx, "Ledger row appended",
		"range", ref,
		applog.FieldItemID, row.ItemID,
		applog.FieldOperation, applog.OpAppend)
	return ref, nil
}
