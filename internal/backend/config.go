package backend

import (
	"fmt"

	"granabox/internal/config"
)

// FromAppConfig picks the Google ledger when a spreadsheet is configured and
// the in-memory ledger otherwise.
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	t := MemoryLedger
	if appConfig.GoogleSpreadsheetID != "" {
		t = GoogleLedger
	}
	return Config{
		Type:                t,
		GoogleSpreadsheetID: appConfig.GoogleSpreadsheetID,
		GoogleSheetName:     appConfig.GoogleLedgerSheet,
		Location:            appConfig.Location(),
	}, nil
}

func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid ledger type: %s", c.Type)
	}
	if c.Type == GoogleLedger && c.GoogleSpreadsheetID == "" {
		return fmt.Errorf("Google Spreadsheet ID is required for the google ledger")
	}
	return nil
}

// GetLedgerTypes returns all valid ledger types.
func GetLedgerTypes() []LedgerType {
	return []LedgerType{GoogleLedger, MemoryLedger}
}
