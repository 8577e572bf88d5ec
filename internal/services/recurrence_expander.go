package services

import (
	"context"
	"fmt"

	"granabox/internal/amqp"
	"granabox/internal/core"
	applog "granabox/internal/log"
)

// RecurrenceExpander manages monthly series: one recurrence row and one item
// per month.
type RecurrenceExpander struct {
	items         *ItemService
	defaultMonths int
}

func NewRecurrenceExpander(items *ItemService, defaultMonths int) *RecurrenceExpander {
	if defaultMonths < 1 {
		defaultMonths = core.DefaultRecurringMonths
	}
	return &RecurrenceExpander{items: items, defaultMonths: defaultMonths}
}

// Create stores months monthly items starting at the input's due date, the
// day clamped to each month's end. months < 1 uses the default.
func (e *RecurrenceExpander) Create(ctx context.Context, in core.ItemInput, months int) ([]core.Item, error) {
	if months < 1 {
		months = e.defaultMonths
	}
	in, err := e.items.validate(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("create recurring item: %w", err)
	}
	in.Recurrence = core.RecurrenceMonthly

	created, err := e.items.repo.CreateSeries(ctx, in, months, e.items.transactedAt(in.Type))
	if err != nil {
		return nil, err
	}

	periods := make([]core.Period, len(created))
	for i, it := range created {
		periods[i] = it.Period()
	}
	e.items.logger.InfoContext(ctx, "Recurring item created",
		applog.FieldItemID, created[0].ID,
		"months", months,
		applog.FieldOperation, applog.OpCreate)
	e.items.publish(ctx, amqp.ActionSeriesCreated, created[0], len(created), periods...)
	return created, nil
}

// Update applies label, description, amount and day of month to the item and
// every later item of its series. A one-off item is updated alone.
func (e *RecurrenceExpander) Update(ctx context.Context, id int64, in core.ItemInput) error {
	current, err := e.items.repo.GetItem(ctx, id)
	if err != nil {
		return err
	}
	in, err = e.items.validate(ctx, in)
	if err != nil {
		return fmt.Errorf("update recurring item %d: %w", id, err)
	}

	changed, err := e.items.repo.UpdateSeriesFrom(ctx, current, in)
	if err != nil {
		return err
	}

	updated, err := e.items.repo.GetItem(ctx, id)
	if err != nil {
		return err
	}
	periods := []core.Period{current.Period()}
	for n := range changed {
		periods = append(periods,
			core.PeriodOf(current.DueDate.AddMonths(n).Time),
			core.PeriodOf(in.DueDate.AddMonths(n).Time))
	}
	e.items.logger.InfoContext(ctx, "Recurring item updated",
		applog.FieldItemID, id,
		"changed", len(changed),
		applog.FieldOperation, applog.OpUpdate)
	e.items.publish(ctx, amqp.ActionSeriesUpdated, updated, len(changed), periods...)
	return nil
}

// End removes the items of the series due after the selected one and turns
// the selected item into a one-off.
func (e *RecurrenceExpander) End(ctx context.Context, id int64) error {
	current, err := e.items.repo.GetItem(ctx, id)
	if err != nil {
		return err
	}
	deleted, err := e.items.repo.EndSeries(ctx, current)
	if err != nil {
		return err
	}

	periods := make([]core.Period, 0, deleted)
	for n := 1; n <= int(deleted); n++ {
		periods = append(periods, core.PeriodOf(current.DueDate.AddMonths(n).Time))
	}
	detached := current
	detached.RecurrenceID = nil
	detached.Recurrence = core.RecurrenceOnce
	detached.Months = 0

	e.items.logger.InfoContext(ctx, "Recurring item ended",
		applog.FieldItemID, id,
		"deleted", deleted,
		applog.FieldOperation, applog.OpDelete)
	e.items.publish(ctx, amqp.ActionSeriesEnded, detached, int(deleted)+1, periods...)
	return nil
}
