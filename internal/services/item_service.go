package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"granabox/internal/amqp"
	"granabox/internal/core"
	applog "granabox/internal/log"
)

// Repository is the storage the services work on.
type Repository interface {
	CreateLabel(ctx context.Context, name string, isDefault bool) (core.Label, error)
	GetLabel(ctx context.Context, id int64) (core.Label, error)
	ListLabels(ctx context.Context) ([]core.Label, error)
	CreateItem(ctx context.Context, in core.ItemInput, transactedAt *time.Time) (core.Item, error)
	CreateSeries(ctx context.Context, in core.ItemInput, months int, transactedAt *time.Time) ([]core.Item, error)
	GetItem(ctx context.Context, id int64) (core.Item, error)
	ListItems(ctx context.Context) ([]core.Item, error)
	ListItemsByPeriod(ctx context.Context, p core.Period, status *core.Status) ([]core.Item, error)
	UpdateItem(ctx context.Context, id int64, in core.ItemInput) error
	UpdateItemStatus(ctx context.Context, id int64, status core.Status, transactedAt *time.Time) error
	DeleteItem(ctx context.Context, id int64) error
	UpdateSeriesFrom(ctx context.Context, item core.Item, in core.ItemInput) ([]int64, error)
	EndSeries(ctx context.Context, item core.Item) (int64, error)
	YearRange(ctx context.Context) (core.YearRange, error)
	Overview(ctx context.Context, p core.Period) (core.Overview, error)
	Ping(ctx context.Context) error
}

// Publisher sends item events to other processes.
type Publisher interface {
	PublishItemEvent(ctx context.Context, event *amqp.ItemEvent) error
}

// ItemService orchestrates item operations across storage and AMQP. Storage
// is the source of truth: a failed publish is logged and the operation still
// succeeds.
type ItemService struct {
	repo      Repository
	publisher Publisher
	logger    *applog.Logger
	now       func() time.Time
}

func NewItemService(repo Repository, publisher Publisher, logger *applog.Logger) *ItemService {
	if logger == nil {
		logger = applog.Wrap(nil, applog.ComponentStorage)
	}
	return &ItemService{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *ItemService) publish(ctx context.Context, action string, item core.Item, count int, periods ...core.Period) {
	if s.publisher == nil {
		s.logger.DebugContext(ctx, "AMQP publisher not available, skipping item event", "action", action)
		return
	}
	event := amqp.NewItemEvent(action, item, count, periods...)
	if err := s.publisher.PublishItemEvent(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish item event",
			applog.FieldError, err,
			"action", action,
			applog.FieldItemID, item.ID)
	}
}

// today returns the current calendar day in loc.
func (s *ItemService) today(loc *time.Location) core.Date {
	if loc == nil {
		loc = time.UTC
	}
	now := s.now().In(loc)
	return core.NewDate(now.Year(), int(now.Month()), now.Day())
}

// transactedAt stamps paid expenses and income; pending expenses have no
// transaction date.
func (s *ItemService) transactedAt(status core.Status) *time.Time {
	if status == core.StatusToPay {
		return nil
	}
	now := s.now().UTC()
	return &now
}

func (s *ItemService) withDueStatus(items []core.Item, loc *time.Location) []core.Item {
	today := s.today(loc)
	for i := range items {
		items[i].DueStatus = DueStatus(items[i], today)
	}
	return items
}

// CreateLabel validates and stores a category. An existing name is returned
// as is.
func (s *ItemService) CreateLabel(ctx context.Context, name string, isDefault bool) (core.Label, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return core.Label{}, core.ErrMissingFields
	}
	if utf8.RuneCountInString(name) > core.MaxLabelLength {
		return core.Label{}, core.ErrLabelTooLong
	}
	return s.repo.CreateLabel(ctx, name, isDefault)
}

func (s *ItemService) ListLabels(ctx context.Context) ([]core.Label, error) {
	labels, err := s.repo.ListLabels(ctx)
	if err != nil {
		return nil, err
	}
	if labels == nil {
		labels = []core.Label{}
	}
	return labels, nil
}

// validate normalizes the input and checks that its label exists.
func (s *ItemService) validate(ctx context.Context, in core.ItemInput) (core.ItemInput, error) {
	status, err := core.ParseStatus(string(in.Type))
	if err != nil {
		return in, err
	}
	in.Type = status
	in.Description = strings.TrimSpace(in.Description)
	if in.Description == "" || in.DueDate.IsZero() || in.LabelID == 0 || in.Amount.IsZero() {
		return in, core.ErrMissingFields
	}
	if utf8.RuneCountInString(in.Description) > core.MaxDescriptionLength {
		return in, core.ErrDescriptionTooLong
	}
	if in.Amount.IsNegative() {
		return in, core.ErrInvalidAmount
	}
	if _, err := s.repo.GetLabel(ctx, in.LabelID); err != nil {
		return in, err
	}
	return in, nil
}

// CreateItem stores a one-off item.
func (s *ItemService) CreateItem(ctx context.Context, in core.ItemInput) (core.Item, error) {
	in, err := s.validate(ctx, in)
	if err != nil {
		return core.Item{}, fmt.Errorf("create item: %w", err)
	}
	item, err := s.repo.CreateItem(ctx, in, s.transactedAt(in.Type))
	if err != nil {
		return core.Item{}, err
	}
	s.logger.InfoContext(ctx, "Item created", applog.NewFields().
		WithOperation(applog.OpCreate).
		WithItem(item.ID, string(item.Type), item.Label, item.Amount.Cents).ToSlice()...)
	s.publish(ctx, amqp.ActionCreated, item, 1)
	return item, nil
}

// GetItem returns the item with its due status on the current day in loc.
func (s *ItemService) GetItem(ctx context.Context, id int64, loc *time.Location) (core.Item, error) {
	item, err := s.repo.GetItem(ctx, id)
	if err != nil {
		return core.Item{}, err
	}
	return s.withDueStatus([]core.Item{item}, loc)[0], nil
}

func (s *ItemService) ListItems(ctx context.Context, loc *time.Location) ([]core.Item, error) {
	items, err := s.repo.ListItems(ctx)
	if err != nil {
		return nil, err
	}
	return s.withDueStatus(items, loc), nil
}

// ItemsByPeriod returns the items due in p, optionally of one type only.
func (s *ItemService) ItemsByPeriod(ctx context.Context, p core.Period, status *core.Status, loc *time.Location) ([]core.Item, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	items, err := s.repo.ListItemsByPeriod(ctx, p, status)
	if err != nil {
		return nil, err
	}
	return s.withDueStatus(items, loc), nil
}

// UpdateItem saves the editable fields of one item. A type change also moves
// its transaction date.
func (s *ItemService) UpdateItem(ctx context.Context, id int64, in core.ItemInput) error {
	current, err := s.repo.GetItem(ctx, id)
	if err != nil {
		return err
	}
	in, err = s.validate(ctx, in)
	if err != nil {
		return fmt.Errorf("update item %d: %w", id, err)
	}
	if err := s.repo.UpdateItem(ctx, id, in); err != nil {
		return err
	}
	if current.Type != in.Type {
		if err := s.repo.UpdateItemStatus(ctx, id, in.Type, s.transactedAt(in.Type)); err != nil {
			return err
		}
	}

	updated, err := s.repo.GetItem(ctx, id)
	if err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Item updated", applog.FieldItemID, id, applog.FieldOperation, applog.OpUpdate)
	s.publish(ctx, amqp.ActionUpdated, updated, 1, current.Period())
	return nil
}

// UpdateItemStatus moves an item to another type. Paid expenses and income
// get the current time as transaction date; going back to A Pagar clears it.
func (s *ItemService) UpdateItemStatus(ctx context.Context, id int64, status core.Status) error {
	status, err := core.ParseStatus(string(status))
	if err != nil {
		return fmt.Errorf("update item %d status: %w", id, err)
	}
	if err := s.repo.UpdateItemStatus(ctx, id, status, s.transactedAt(status)); err != nil {
		return err
	}
	item, err := s.repo.GetItem(ctx, id)
	if err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Item status changed",
		applog.FieldItemID, id,
		applog.FieldItemType, string(status),
		applog.FieldOperation, applog.OpMove)
	s.publish(ctx, amqp.ActionStatusChanged, item, 1)
	return nil
}

func (s *ItemService) DeleteItem(ctx context.Context, id int64) error {
	item, err := s.repo.GetItem(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteItem(ctx, id); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Item deleted", applog.FieldItemID, id, applog.FieldOperation, applog.OpDelete)
	s.publish(ctx, amqp.ActionDeleted, item, 1)
	return nil
}

// YearRange returns the span of years with items; zero when there are none.
func (s *ItemService) YearRange(ctx context.Context) (core.YearRange, error) {
	return s.repo.YearRange(ctx)
}

// Overview totals the month: income is Rendimentos, expenses are A Pagar and
// Pago, savings is their difference.
func (s *ItemService) Overview(ctx context.Context, p core.Period) (core.Overview, error) {
	if err := p.Validate(); err != nil {
		return core.Overview{}, err
	}
	return s.repo.Overview(ctx, p)
}

func (s *ItemService) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

// Close closes storage and the publisher when they support it.
func (s *ItemService) Close() error {
	var errs []error
	if c, ok := s.repo.(io.Closer); ok && c != nil {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}
	if c, ok := s.publisher.(io.Closer); ok && c != nil {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close item service: %w", errors.Join(errs...))
	}
	return nil
}
