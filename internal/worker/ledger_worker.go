// Package worker exports item events to the ledger.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"granabox/internal/amqp"
	"granabox/internal/cache"
	applog "granabox/internal/log"
	"granabox/internal/sheets"
)

const (
	seenEventsSize = 4096
	seenEventsTTL  = 24 * time.Hour
)

// LedgerWorker appends one ledger row per item event. Redelivered events
// that were already written are skipped.
type LedgerWorker struct {
	ledger sheets.LedgerWriter
	seen   *cache.LRUCache[string]
	logger *applog.Logger

	processed atomic.Uint64
	skipped   atomic.Uint64
	failed    atomic.Uint64
}

// Stats counts handled events since start.
type Stats struct {
	Processed uint64 `json:"processed"`
	Skipped   uint64 `json:"skipped"`
	Failed    uint64 `json:"failed"`
}

func NewLedgerWorker(ledger sheets.LedgerWriter, logger *applog.Logger) *LedgerWorker {
	if logger == nil {
		logger = applog.Wrap(nil, applog.ComponentWorker)
	}
	return &LedgerWorker{
		ledger: ledger,
		seen:   cache.NewLRUCache[string](seenEventsSize, seenEventsTTL),
		logger: logger,
	}
}

// Cache exposes the seen-events cache for periodic cleanup.
func (w *LedgerWorker) Cache() cache.Cleaner {
	return w.seen
}

// HandleItemEvent is an amqp.Handler. A returned error makes the broker
// redeliver the event once.
func (w *LedgerWorker) HandleItemEvent(ctx context.Context, event *amqp.ItemEvent) error {
	if event == nil || event.ID == "" {
		w.failed.Add(1)
		return errors.New("item event without id")
	}
	if ref, ok := w.seen.Get(event.ID); ok {
		w.skipped.Add(1)
		w.logger.InfoContext(ctx, "Item event already in ledger",
			"event_id", event.ID,
			"range", ref)
		return nil
	}

	row := RowFromEvent(event)
	ref, err := w.ledger.AppendRow(ctx, row)
	if err != nil {
		w.failed.Add(1)
		w.logger.ErrorContext(ctx, "Failed to append ledger row", applog.NewFields().
			WithError(err).
			WithOperation(applog.OpAppend).
			WithItem(row.ItemID, string(row.Type), row.Label, row.Amount.Cents).
			ToSlice()...)
		return fmt.Errorf("append ledger row for event %s: %w", event.ID, err)
	}
	w.seen.Set(event.ID, ref)
	w.processed.Add(1)

	w.logger.InfoContext(ctx, "Item event written to ledger", applog.NewFields().
		WithOperation(applog.OpAppend).
		WithItem(row.ItemID, string(row.Type), row.Label, row.Amount.Cents).
		ToSlice()...)
	return nil
}

func (w *LedgerWorker) Stats() Stats {
	return Stats{
		Processed: w.processed.Load(),
		Skipped:   w.skipped.Load(),
		Failed:    w.failed.Load(),
	}
}

// RowFromEvent flattens an event into a ledger row.
func RowFromEvent(event *amqp.ItemEvent) sheets.LedgerRow {
	count := event.Count
	if count < 1 {
		count = 1
	}
	return sheets.LedgerRow{
		EventID:     event.ID,
		Timestamp:   event.Timestamp,
		Action:      event.Action,
		ItemID:      event.Item.ID,
		Type:        event.Item.Type,
		Label:       event.Item.Label,
		Description: event.Item.Description,
		Amount:      event.Item.Amount,
		DueDate:     event.Item.DueDate,
		Count:       count,
	}
}
