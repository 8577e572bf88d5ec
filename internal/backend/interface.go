// Package backend selects the ledger the worker exports item events to.
package backend

import (
	"context"
	"time"

	"granabox/internal/sheets"
)

// Factory creates ledgers based on configuration.
type Factory interface {
	CreateLedger(ctx context.Context, config Config) (*LedgerResult, error)
}

// LedgerResult holds the ledger and the backend that was chosen.
type LedgerResult struct {
	Ledger sheets.LedgerWriter
	Type   LedgerType
}

// Config holds configuration for ledger creation.
type Config struct {
	Type LedgerType

	// Google Sheets specific. Credentials come from the environment.
	GoogleSpreadsheetID string
	GoogleSheetName     string

	// Location renders row timestamps.
	Location *time.Location
}

// LedgerType represents the type of ledger.
type LedgerType string

const (
	GoogleLedger LedgerType = "google"
	MemoryLedger LedgerType = "memory"
)

func (t LedgerType) String() string {
	return string(t)
}

// IsValid returns true if the ledger type is known.
func (t LedgerType) IsValid() bool {
	switch t {
	case GoogleLedger, MemoryLedger:
		return true
	default:
		return false
	}
}
