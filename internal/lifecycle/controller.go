// Package lifecycle runs the create, edit, delete and move flows of dashboard
// items against the backend.
package lifecycle

import (
	"context"
	"errors"
	"fmt"

	"granabox/internal/core"
	applog "granabox/internal/log"
)

// Backend is the part of the API client the flows need.
type Backend interface {
	ListLabels(ctx context.Context) ([]core.Label, error)
	CreateLabel(ctx context.Context, name string, isDefault bool) (core.Label, error)
	GetItem(ctx context.Context, id int64) (core.Item, error)
	CreateItem(ctx context.Context, in core.ItemInput) (core.Item, error)
	CreateRecurringItem(ctx context.Context, in core.ItemInput, months int) ([]core.Item, error)
	UpdateItem(ctx context.Context, id int64, in core.ItemInput) error
	UpdateRecurringItem(ctx context.Context, id int64, in core.ItemInput) error
	UpdateItemStatus(ctx context.Context, id int64, status core.Status) error
	DeleteItem(ctx context.Context, id int64) error
	DeleteRecurringItem(ctx context.Context, id int64) error
}

// Refresher is told which months changed after a successful flow.
type Refresher interface {
	Invalidate(periods ...core.Period)
	InvalidateAll()
}

type nopRefresher struct{}

func (nopRefresher) Invalidate(...core.Period) {}
func (nopRefresher) InvalidateAll()            {}

// Controller orchestrates item flows.
type Controller struct {
	backend   Backend
	refresher Refresher
	months    int
	logger    *applog.Logger
}

// Option configures a Controller.
type Option func(*Controller)

// WithRefresher sets who is notified after mutations.
func WithRefresher(r Refresher) Option {
	return func(c *Controller) {
		if r != nil {
			c.refresher = r
		}
	}
}

// WithRecurringMonths sets how many months a new series spans.
func WithRecurringMonths(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.months = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *applog.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l.WithComponent(applog.ComponentLifecycle)
		}
	}
}

func New(backend Backend, opts ...Option) *Controller {
	c := &Controller{
		backend:   backend,
		refresher: nopRefresher{},
		months:    core.DefaultRecurringMonths,
		logger:    applog.Wrap(nil, applog.ComponentLifecycle),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ResolveLabel returns the id of the draft's label, creating the category
// when the form adds a new one that does not exist yet.
func (c *Controller) ResolveLabel(ctx context.Context, v core.ValidDraft) (int64, error) {
	labels, err := c.backend.ListLabels(ctx)
	if err != nil {
		return 0, fmt.Errorf("list labels: %w", err)
	}
	if label, ok := core.FindLabel(labels, v.LabelName); ok {
		return label.ID, nil
	}
	if !v.IsNewLabel {
		return 0, core.ErrLabelNotFound
	}

	label, err := c.backend.CreateLabel(ctx, v.LabelName, false)
	if err != nil {
		return 0, fmt.Errorf("create label %q: %w", v.LabelName, err)
	}
	c.logger.InfoContext(ctx, "Label created", applog.FieldLabel, label.Name, applog.FieldOperation, applog.OpCreate)
	if label.ID == 0 {
		// Some backends answer without the new id.
		labels, err := c.backend.ListLabels(ctx)
		if err != nil {
			return 0, fmt.Errorf("list labels: %w", err)
		}
		found, ok := core.FindLabel(labels, v.LabelName)
		if !ok {
			return 0, core.ErrLabelNotFound
		}
		return found.ID, nil
	}
	return label.ID, nil
}

// Create validates the draft and creates a one-off item or a monthly series.
func (c *Controller) Create(ctx context.Context, d core.Draft) ([]core.Item, error) {
	v, err := d.Validate()
	if err != nil {
		return nil, err
	}
	labelID, err := c.ResolveLabel(ctx, v)
	if err != nil {
		return nil, err
	}
	in := v.Input(labelID)

	created, err := c.run(ctx, core.PlanCreate(v.Recurrence), 0, in)
	if err != nil {
		return nil, fmt.Errorf("create item: %w", err)
	}

	c.logger.InfoContext(ctx, "Item created", applog.NewFields().
		WithItem(0, string(in.Type), v.LabelName, in.Amount.Cents).
		WithOperation(applog.OpCreate).ToSlice()...)

	if v.Recurrence.IsRecurring() {
		c.refresher.InvalidateAll()
	} else {
		c.refresher.Invalidate(core.PeriodOf(in.DueDate.Time))
	}
	return created, nil
}

// Edit saves the draft over item id, switching the item between one-off and
// monthly when the recurrence changed.
func (c *Controller) Edit(ctx context.Context, id int64, d core.Draft) error {
	current, err := c.backend.GetItem(ctx, id)
	if err != nil {
		return fmt.Errorf("load item %d: %w", id, err)
	}
	v, err := d.Validate()
	if err != nil {
		return err
	}
	labelID, err := c.ResolveLabel(ctx, v)
	if err != nil {
		return err
	}
	in := v.Input(labelID)

	steps := core.PlanEdit(current.Recurrence, v.Recurrence)
	if _, err := c.run(ctx, steps, id, in); err != nil {
		if errors.Is(err, ErrItemRemoved) {
			c.logger.ErrorContext(ctx, "Item removed but series not created",
				applog.FieldItemID, id,
				applog.FieldOperation, applog.OpUpdate,
				applog.FieldError, err)
			c.refresher.Invalidate(current.Period())
		}
		return fmt.Errorf("edit item %d: %w", id, err)
	}

	c.logger.InfoContext(ctx, "Item updated",
		applog.FieldItemID, id,
		applog.FieldRecurrence, string(v.Recurrence),
		"steps", len(steps),
		applog.FieldOperation, applog.OpUpdate)

	if current.Recurrence.IsRecurring() || v.Recurrence.IsRecurring() {
		c.refresher.InvalidateAll()
	} else {
		c.refresher.Invalidate(current.Period(), core.PeriodOf(in.DueDate.Time))
	}
	return nil
}

// Delete removes item id. Items of a series end the series first; when that
// fails the item is kept.
func (c *Controller) Delete(ctx context.Context, id int64) error {
	current, err := c.backend.GetItem(ctx, id)
	if err != nil {
		return fmt.Errorf("load item %d: %w", id, err)
	}

	if _, err := c.run(ctx, core.PlanDelete(current.Recurrence), id, current.Input()); err != nil {
		return fmt.Errorf("delete item %d: %w", id, err)
	}

	c.logger.InfoContext(ctx, "Item deleted", applog.FieldItemID, id, applog.FieldOperation, applog.OpDelete)

	if current.Recurrence.IsRecurring() {
		c.refresher.InvalidateAll()
	} else {
		c.refresher.Invalidate(current.Period())
	}
	return nil
}

// Move applies a drop of item id onto target and returns the resulting status.
func (c *Controller) Move(ctx context.Context, id int64, target core.Column) (core.Status, error) {
	current, err := c.backend.GetItem(ctx, id)
	if err != nil {
		return "", fmt.Errorf("load item %d: %w", id, err)
	}

	next, changed, err := core.ResolveDrop(current.Type, target)
	if err != nil {
		c.logger.WarnContext(ctx, "Drop rejected",
			applog.FieldItemID, id,
			applog.FieldItemType, string(current.Type),
			applog.FieldColumn, string(target),
			applog.FieldError, err)
		return current.Type, err
	}
	if !changed {
		return current.Type, nil
	}

	if err := c.backend.UpdateItemStatus(ctx, id, next); err != nil {
		return current.Type, fmt.Errorf("move item %d: %w", id, err)
	}

	c.logger.InfoContext(ctx, "Item moved",
		applog.FieldItemID, id,
		"from", string(current.Type),
		"to", string(next),
		applog.FieldOperation, applog.OpMove)

	c.refresher.Invalidate(current.Period())
	return next, nil
}

var errUnknownStep = errors.New("unknown step")

// ErrItemRemoved marks a flow that deleted the item and then failed, so the
// item is gone and its replacement was not created.
var ErrItemRemoved = errors.New("item removed; series not created")

// run executes the steps in order and stops at the first failure.
func (c *Controller) run(ctx context.Context, steps []core.Step, id int64, in core.ItemInput) ([]core.Item, error) {
	var created []core.Item
	removed := false
	for _, step := range steps {
		var err error
		switch step {
		case core.StepCreateItem:
			in.Recurrence = core.RecurrenceOnce
			var item core.Item
			item, err = c.backend.CreateItem(ctx, in)
			if err == nil {
				created = append(created, item)
			}
		case core.StepCreateRecurring:
			in.Recurrence = core.RecurrenceMonthly
			var items []core.Item
			items, err = c.backend.CreateRecurringItem(ctx, in, c.months)
			created = append(created, items...)
		case core.StepUpdateItem:
			err = c.backend.UpdateItem(ctx, id, in)
		case core.StepUpdateRecurring:
			err = c.backend.UpdateRecurringItem(ctx, id, in)
		case core.StepDeleteItem:
			err = c.backend.DeleteItem(ctx, id)
		case core.StepDeleteRecurring:
			err = c.backend.DeleteRecurringItem(ctx, id)
		default:
			err = fmt.Errorf("%w: %s", errUnknownStep, step)
		}
		if err != nil {
			if removed {
				return created, fmt.Errorf("%w: %s: %w", ErrItemRemoved, step, err)
			}
			return created, fmt.Errorf("%s: %w", step, err)
		}
		if step == core.StepDeleteItem {
			removed = true
		}
		c.logger.DebugContext(ctx, "Step done", "step", string(step), applog.FieldItemID, id)
	}
	return created, nil
}
