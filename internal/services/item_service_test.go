package services

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"granabox/internal/amqp"
	"granabox/internal/core"
	"granabox/internal/storage"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []*amqp.ItemEvent
	err    error
}

func (p *recordingPublisher) PublishItemEvent(_ context.Context, e *amqp.ItemEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) actions() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Action
	}
	return out
}

func (p *recordingPublisher) last() *amqp.ItemEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.events) == 0 {
		return nil
	}
	return p.events[len(p.events)-1]
}

var fixedNow = time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, pub Publisher) (*ItemService, core.Label) {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "services.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository() error = %v", err)
	}
	svc := NewItemService(repo, pub, nil)
	svc.now = func() time.Time { return fixedNow }
	t.Cleanup(func() { svc.Close() })

	label, err := svc.CreateLabel(context.Background(), "Habitação", true)
	if err != nil {
		t.Fatalf("CreateLabel() error = %v", err)
	}
	return svc, label
}

func itemInput(labelID int64, st core.Status, due core.Date) core.ItemInput {
	return core.ItemInput{
		LabelID:     labelID,
		Type:        st,
		Description: "Conta de luz",
		Amount:      core.Money{Cents: 23050},
		DueDate:     due,
	}
}

func TestCreateItem(t *testing.T) {
	pub := &recordingPublisher{}
	svc, label := newTestService(t, pub)
	ctx := context.Background()

	t.Run("pending expense", func(t *testing.T) {
		item, err := svc.CreateItem(ctx, itemInput(label.ID, core.StatusToPay, core.NewDate(2025, 3, 12)))
		if err != nil {
			t.Fatalf("CreateItem() error = %v", err)
		}
		if item.TransactionDate != nil {
			t.Errorf("TransactionDate = %v, want nil", item.TransactionDate)
		}
		if e := pub.last(); e == nil || e.Action != amqp.ActionCreated || e.Item.ID != item.ID {
			t.Errorf("last event = %+v", e)
		}
	})

	t.Run("income is stamped", func(t *testing.T) {
		item, err := svc.CreateItem(ctx, itemInput(label.ID, "rendimentos", core.NewDate(2025, 3, 5)))
		if err != nil {
			t.Fatalf("CreateItem() error = %v", err)
		}
		if item.Type != core.StatusIncome {
			t.Errorf("Type = %q, want Rendimentos", item.Type)
		}
		if item.TransactionDate == nil || !item.TransactionDate.Equal(fixedNow) {
			t.Errorf("TransactionDate = %v, want %v", item.TransactionDate, fixedNow)
		}
	})

	tests := []struct {
		name string
		in   core.ItemInput
		want error
	}{
		{name: "unknown type", in: itemInput(label.ID, "Outro", core.NewDate(2025, 3, 1)), want: core.ErrInvalidStatus},
		{name: "missing date", in: itemInput(label.ID, core.StatusToPay, core.Date{}), want: core.ErrMissingFields},
		{name: "unknown label", in: itemInput(999, core.StatusToPay, core.NewDate(2025, 3, 1)), want: core.ErrLabelNotFound},
		{
			name: "negative amount",
			in: func() core.ItemInput {
				in := itemInput(label.ID, core.StatusToPay, core.NewDate(2025, 3, 1))
				in.Amount = core.Money{Cents: -1}
				return in
			}(),
			want: core.ErrInvalidAmount,
		},
		{
			name: "zero amount",
			in: func() core.ItemInput {
				in := itemInput(label.ID, core.StatusToPay, core.NewDate(2025, 3, 1))
				in.Amount = core.Money{}
				return in
			}(),
			want: core.ErrMissingFields,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.CreateItem(ctx, tt.in); !errors.Is(err, tt.want) {
				t.Errorf("CreateItem() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestItemsByPeriodDueStatus(t *testing.T) {
	svc, label := newTestService(t, nil)
	ctx := context.Background()

	for _, in := range []core.ItemInput{
		itemInput(label.ID, core.StatusToPay, core.NewDate(2025, 3, 9)),
		itemInput(label.ID, core.StatusToPay, core.NewDate(2025, 3, 10)),
		itemInput(label.ID, core.StatusToPay, core.NewDate(2025, 3, 11)),
		itemInput(label.ID, core.StatusPaid, core.NewDate(2025, 3, 20)),
	} {
		if _, err := svc.CreateItem(ctx, in); err != nil {
			t.Fatalf("CreateItem() error = %v", err)
		}
	}

	items, err := svc.ItemsByPeriod(ctx, core.Period{Year: 2025, Month: 3}, nil, time.UTC)
	if err != nil {
		t.Fatalf("ItemsByPeriod() error = %v", err)
	}
	want := []string{"VENCIDO", "VENCE HOJE", "VENCE AMANHÃ", "PAGO"}
	if len(items) != len(want) {
		t.Fatalf("ItemsByPeriod() = %d items, want %d", len(items), len(want))
	}
	for i, it := range items {
		if it.DueStatus != want[i] {
			t.Errorf("item %d due status = %q, want %q", i, it.DueStatus, want[i])
		}
	}

	// 01:00 UTC on the 11th is still the 10th in Sao Paulo.
	svc.now = func() time.Time { return time.Date(2025, 3, 11, 1, 0, 0, 0, time.UTC) }
	loc, err := time.LoadLocation("America/Sao_Paulo")
	if err != nil {
		t.Skipf("time zone data unavailable: %v", err)
	}
	items, err = svc.ItemsByPeriod(ctx, core.Period{Year: 2025, Month: 3}, nil, loc)
	if err != nil {
		t.Fatalf("ItemsByPeriod() error = %v", err)
	}
	if items[1].DueStatus != "VENCE HOJE" {
		t.Errorf("due status in Sao Paulo = %q, want VENCE HOJE", items[1].DueStatus)
	}

	if _, err := svc.ItemsByPeriod(ctx, core.Period{Year: 2025, Month: 13}, nil, time.UTC); err == nil {
		t.Error("ItemsByPeriod(invalid month) error = nil")
	}
}

func TestUpdateItemStatus(t *testing.T) {
	pub := &recordingPublisher{}
	svc, label := newTestService(t, pub)
	ctx := context.Background()

	item, err := svc.CreateItem(ctx, itemInput(label.ID, core.StatusToPay, core.NewDate(2025, 3, 12)))
	if err != nil {
		t.Fatalf("CreateItem() error = %v", err)
	}

	if err := svc.UpdateItemStatus(ctx, item.ID, core.StatusPaid); err != nil {
		t.Fatalf("UpdateItemStatus(paid) error = %v", err)
	}
	got, _ := svc.GetItem(ctx, item.ID, time.UTC)
	if got.Type != core.StatusPaid || got.TransactionDate == nil || got.DueStatus != "PAGO" {
		t.Errorf("paid item = %+v", got)
	}

	if err := svc.UpdateItemStatus(ctx, item.ID, core.StatusToPay); err != nil {
		t.Fatalf("UpdateItemStatus(to pay) error = %v", err)
	}
	got, _ = svc.GetItem(ctx, item.ID, time.UTC)
	if got.TransactionDate != nil {
		t.Errorf("TransactionDate = %v, want nil", got.TransactionDate)
	}

	if err := svc.UpdateItemStatus(ctx, item.ID, "Outro"); !errors.Is(err, core.ErrInvalidStatus) {
		t.Errorf("UpdateItemStatus(invalid) error = %v", err)
	}
	if err := svc.UpdateItemStatus(ctx, 999, core.StatusPaid); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("UpdateItemStatus(missing) error = %v", err)
	}

	want := []string{amqp.ActionCreated, amqp.ActionStatusChanged, amqp.ActionStatusChanged}
	if got := pub.actions(); len(got) != len(want) {
		t.Errorf("events = %v, want %v", got, want)
	}
}

func TestUpdateAndDeleteItem(t *testing.T) {
	pub := &recordingPublisher{}
	svc, label := newTestService(t, pub)
	ctx := context.Background()

	item, err := svc.CreateItem(ctx, itemInput(label.ID, core.StatusToPay, core.NewDate(2025, 3, 12)))
	if err != nil {
		t.Fatalf("CreateItem() error = %v", err)
	}

	in := item.Input()
	in.Description = "Conta de água"
	in.DueDate = core.NewDate(2025, 4, 2)
	in.Type = core.StatusPaid
	if err := svc.UpdateItem(ctx, item.ID, in); err != nil {
		t.Fatalf("UpdateItem() error = %v", err)
	}
	got, _ := svc.GetItem(ctx, item.ID, time.UTC)
	if got.Description != "Conta de água" || got.TransactionDate == nil {
		t.Errorf("updated item = %+v", got)
	}
	if e := pub.last(); len(e.Periods) != 2 {
		t.Errorf("update event periods = %v, want both months", e.Periods)
	}

	if err := svc.DeleteItem(ctx, item.ID); err != nil {
		t.Fatalf("DeleteItem() error = %v", err)
	}
	if e := pub.last(); e.Action != amqp.ActionDeleted || e.Item.Description != "Conta de água" {
		t.Errorf("delete event = %+v", e)
	}
	if err := svc.DeleteItem(ctx, item.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("DeleteItem(again) error = %v, want ErrNotFound", err)
	}
}

func TestPublishFailureDoesNotFailOperation(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	svc, label := newTestService(t, pub)

	if _, err := svc.CreateItem(context.Background(), itemInput(label.ID, core.StatusToPay, core.NewDate(2025, 3, 12))); err != nil {
		t.Fatalf("CreateItem() error = %v", err)
	}
	if len(pub.actions()) != 1 {
		t.Errorf("events = %v, want one attempt", pub.actions())
	}
}

func TestOverviewAndYearRange(t *testing.T) {
	svc, label := newTestService(t, nil)
	ctx := context.Background()

	for _, in := range []core.ItemInput{
		itemInput(label.ID, core.StatusIncome, core.NewDate(2025, 3, 1)),
		itemInput(label.ID, core.StatusToPay, core.NewDate(2025, 3, 2)),
		itemInput(label.ID, core.StatusPaid, core.NewDate(2026, 1, 2)),
	} {
		if _, err := svc.CreateItem(ctx, in); err != nil {
			t.Fatalf("CreateItem() error = %v", err)
		}
	}

	o, err := svc.Overview(ctx, core.Period{Year: 2025, Month: 3})
	if err != nil {
		t.Fatalf("Overview() error = %v", err)
	}
	if o.TotalIncome.Cents != 23050 || o.TotalExpenses.Cents != 23050 || o.Savings.Cents != 0 {
		t.Errorf("Overview() = %+v", o)
	}

	yr, err := svc.YearRange(ctx)
	if err != nil {
		t.Fatalf("YearRange() error = %v", err)
	}
	if yr != (core.YearRange{Min: 2025, Max: 2026}) {
		t.Errorf("YearRange() = %+v", yr)
	}
}

func TestCreateLabelValidation(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	if _, err := svc.CreateLabel(ctx, "  ", false); !errors.Is(err, core.ErrMissingFields) {
		t.Errorf("CreateLabel(blank) error = %v", err)
	}
	if _, err := svc.CreateLabel(ctx, "Uma categoria com nome longo demais", false); !errors.Is(err, core.ErrLabelTooLong) {
		t.Errorf("CreateLabel(long) error = %v", err)
	}
	labels, err := svc.ListLabels(ctx)
	if err != nil || len(labels) != 1 {
		t.Errorf("ListLabels() = %v, %v", labels, err)
	}
}
