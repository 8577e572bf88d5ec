package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"granabox/internal/core"
	applog "granabox/internal/log"

	_ "modernc.org/sqlite"
)

// transactionLayout is how transaction dates are stored.
const transactionLayout = time.RFC3339

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	logger  *applog.Logger
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows a single writer; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	version, err := RunMigrations(dbPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	logger := applog.Wrap(nil, applog.ComponentStorage)
	logger.Info("SQLite repository ready", "path", dbPath, "schema_version", version)

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		logger:  logger,
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// withTx runs fn in a transaction, rolling back when it fails.
func (r *SQLiteRepository) withTx(ctx context.Context, fn func(q *Queries) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(r.queries.WithTx(tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			r.logger.ErrorContext(ctx, "Rollback failed", applog.FieldError, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// CreateLabel inserts a label. A label with the same name, ignoring case, is
// returned unchanged instead.
func (r *SQLiteRepository) CreateLabel(ctx context.Context, name string, isDefault bool) (core.Label, error) {
	row, err := r.queries.CreateLabel(ctx, CreateLabelParams{Name: name, IsDefault: isDefault})
	if errors.Is(err, sql.ErrNoRows) {
		row, err = r.queries.GetLabelByName(ctx, name)
	}
	if err != nil {
		return core.Label{}, fmt.Errorf("create label %q: %w", name, err)
	}
	return toLabel(row), nil
}

func (r *SQLiteRepository) GetLabel(ctx context.Context, id int64) (core.Label, error) {
	row, err := r.queries.GetLabel(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Label{}, fmt.Errorf("label %d: %w", id, core.ErrLabelNotFound)
	}
	if err != nil {
		return core.Label{}, fmt.Errorf("get label %d: %w", id, err)
	}
	return toLabel(row), nil
}

func (r *SQLiteRepository) ListLabels(ctx context.Context) ([]core.Label, error) {
	rows, err := r.queries.ListLabels(ctx)
	if err != nil {
		return nil, fmt.Errorf("list labels: %w", err)
	}
	labels := make([]core.Label, len(rows))
	for i, row := range rows {
		labels[i] = toLabel(row)
	}
	return labels, nil
}

// CreateItem inserts a one-off item. Paid and income items get transactedAt
// as their transaction date.
func (r *SQLiteRepository) CreateItem(ctx context.Context, in core.ItemInput, transactedAt *time.Time) (core.Item, error) {
	id, err := r.queries.CreateItem(ctx, createParams(in, sql.NullInt64{}, transactedAt))
	if err != nil {
		return core.Item{}, fmt.Errorf("create item: %w", err)
	}
	return r.GetItem(ctx, id)
}

// CreateSeries inserts a recurrence and one item per month starting at the
// input's due date. Days past a month's end are clamped to its last day.
func (r *SQLiteRepository) CreateSeries(ctx context.Context, in core.ItemInput, months int, transactedAt *time.Time) ([]core.Item, error) {
	if months < 1 {
		return nil, fmt.Errorf("create series: invalid months %d", months)
	}
	var ids []int64
	err := r.withTx(ctx, func(q *Queries) error {
		rec, err := q.CreateRecurrence(ctx, CreateRecurrenceParams{
			Months: int64(months),
			Day:    int64(in.DueDate.Day()),
		})
		if err != nil {
			return fmt.Errorf("create recurrence: %w", err)
		}
		recurrenceID := sql.NullInt64{Int64: rec.ID, Valid: true}
		for n := 0; n < months; n++ {
			next := in
			next.DueDate = in.DueDate.AddMonths(n)
			id, err := q.CreateItem(ctx, createParams(next, recurrenceID, transactedAt))
			if err != nil {
				return fmt.Errorf("create series item %d: %w", n+1, err)
			}
			ids = append(ids, id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	items := make([]core.Item, 0, len(ids))
	for _, id := range ids {
		item, err := r.GetItem(ctx, id)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func (r *SQLiteRepository) GetItem(ctx context.Context, id int64) (core.Item, error) {
	row, err := r.queries.GetItem(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Item{}, fmt.Errorf("item %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Item{}, fmt.Errorf("get item %d: %w", id, err)
	}
	return toItem(row)
}

func (r *SQLiteRepository) ListItems(ctx context.Context) ([]core.Item, error) {
	rows, err := r.queries.ListItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	return toItems(rows)
}

// ListItemsByPeriod returns the items due in p, optionally of one type only.
func (r *SQLiteRepository) ListItemsByPeriod(ctx context.Context, p core.Period, status *core.Status) ([]core.Item, error) {
	from, to := periodBounds(p)
	arg := ListItemsByDueRangeParams{From: from, To: to}
	if status != nil {
		arg.Type = string(*status)
	}
	rows, err := r.queries.ListItemsByDueRange(ctx, arg)
	if err != nil {
		return nil, fmt.Errorf("list items for %s: %w", p.Key(), err)
	}
	return toItems(rows)
}

func (r *SQLiteRepository) UpdateItem(ctx context.Context, id int64, in core.ItemInput) error {
	n, err := r.queries.UpdateItem(ctx, UpdateItemParams{
		ID:          id,
		LabelID:     in.LabelID,
		Type:        string(in.Type),
		Description: in.Description,
		AmountCents: in.Amount.Cents,
		DueDate:     in.DueDate.String(),
	})
	if err != nil {
		return fmt.Errorf("update item %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("update item %d: %w", id, core.ErrNotFound)
	}
	return nil
}

// UpdateItemStatus changes the item type. A nil transactedAt clears the
// transaction date.
func (r *SQLiteRepository) UpdateItemStatus(ctx context.Context, id int64, status core.Status, transactedAt *time.Time) error {
	n, err := r.queries.UpdateItemStatus(ctx, UpdateItemStatusParams{
		ID:              id,
		Type:            string(status),
		TransactionDate: nullTime(transactedAt),
	})
	if err != nil {
		return fmt.Errorf("update item %d status: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("update item %d status: %w", id, core.ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) DeleteItem(ctx context.Context, id int64) error {
	n, err := r.queries.DeleteItem(ctx, id)
	if err != nil {
		return fmt.Errorf("delete item %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("delete item %d: %w", id, core.ErrNotFound)
	}
	return nil
}

// UpdateSeriesFrom applies label, type, description, amount and day of month
// to item and every later item of its series. The returned slice holds the
// ids that changed.
func (r *SQLiteRepository) UpdateSeriesFrom(ctx context.Context, item core.Item, in core.ItemInput) ([]int64, error) {
	if item.RecurrenceID == nil {
		if err := r.UpdateItem(ctx, item.ID, in); err != nil {
			return nil, err
		}
		return []int64{item.ID}, nil
	}

	recurrenceID := *item.RecurrenceID
	day := in.DueDate.Day()
	var changed []int64
	err := r.withTx(ctx, func(q *Queries) error {
		rows, err := q.ListSeriesFrom(ctx, ListSeriesFromParams{
			RecurrenceID: recurrenceID,
			DueDate:      item.DueDate.String(),
		})
		if err != nil {
			return fmt.Errorf("list series %d: %w", recurrenceID, err)
		}
		for _, row := range rows {
			due, err := core.ParseDate(row.DueDate)
			if err != nil {
				return fmt.Errorf("item %d: %w", row.ID, err)
			}
			// The selected item may also move to another month.
			if row.ID == item.ID {
				due = in.DueDate
			} else {
				due = due.WithDay(day)
			}
			if _, err := q.UpdateItem(ctx, UpdateItemParams{
				ID:          row.ID,
				LabelID:     in.LabelID,
				Type:        seriesType(row.Type, row.ID == item.ID, in.Type),
				Description: in.Description,
				AmountCents: in.Amount.Cents,
				DueDate:     due.String(),
			}); err != nil {
				return fmt.Errorf("update series item %d: %w", row.ID, err)
			}
			changed = append(changed, row.ID)
		}
		return q.UpdateRecurrenceDay(ctx, recurrenceID, int64(day))
	})
	if err != nil {
		return nil, err
	}
	return changed, nil
}

// seriesType keeps the paid state of later items unless the item type
// switches between income and expense.
func seriesType(current string, selected bool, next core.Status) string {
	if selected {
		return string(next)
	}
	st := core.Status(current)
	if st.IsIncome() != next.IsIncome() {
		return string(next)
	}
	return current
}

// EndSeries deletes the items of the series due after item and detaches item,
// which becomes a one-off. It returns how many items were deleted.
func (r *SQLiteRepository) EndSeries(ctx context.Context, item core.Item) (int64, error) {
	if item.RecurrenceID == nil {
		return 0, nil
	}
	var deleted int64
	err := r.withTx(ctx, func(q *Queries) error {
		n, err := q.DeleteSeriesAfter(ctx, DeleteSeriesAfterParams{
			RecurrenceID: *item.RecurrenceID,
			DueDate:      item.DueDate.String(),
		})
		if err != nil {
			return fmt.Errorf("delete series %d: %w", *item.RecurrenceID, err)
		}
		deleted = n
		return q.DetachItem(ctx, item.ID)
	})
	return deleted, err
}

// YearRange returns the first and last year with items, zero when empty.
func (r *SQLiteRepository) YearRange(ctx context.Context) (core.YearRange, error) {
	lo, hi, err := r.queries.YearRange(ctx)
	if err != nil {
		return core.YearRange{}, fmt.Errorf("year range: %w", err)
	}
	return core.YearRange{Min: int(lo.Int64), Max: int(hi.Int64)}, nil
}

// Overview totals the period: income is Rendimentos, expenses are A Pagar
// and Pago.
func (r *SQLiteRepository) Overview(ctx context.Context, p core.Period) (core.Overview, error) {
	from, to := periodBounds(p)
	totals, err := r.queries.SumByType(ctx, from, to)
	if err != nil {
		return core.Overview{}, fmt.Errorf("overview %s: %w", p.Key(), err)
	}
	var o core.Overview
	for _, t := range totals {
		amount := core.Money{Cents: t.Total}
		if core.Status(t.Type).IsIncome() {
			o.TotalIncome = o.TotalIncome.Add(amount)
		} else {
			o.TotalExpenses = o.TotalExpenses.Add(amount)
		}
	}
	o.Savings = o.TotalIncome.Sub(o.TotalExpenses)
	return o, nil
}

func periodBounds(p core.Period) (string, string) {
	start := p.Start()
	return start.String(), start.AddMonths(1).String()
}

func createParams(in core.ItemInput, recurrenceID sql.NullInt64, transactedAt *time.Time) CreateItemParams {
	return CreateItemParams{
		RecurrenceID:    recurrenceID,
		LabelID:         in.LabelID,
		Type:            string(in.Type),
		Description:     in.Description,
		AmountCents:     in.Amount.Cents,
		DueDate:         in.DueDate.String(),
		TransactionDate: nullTime(transactedAt),
	}
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(transactionLayout), Valid: true}
}

func toLabel(row LabelRow) core.Label {
	return core.Label{ID: row.ID, Name: row.Name, IsDefault: row.IsDefault}
}

func toItems(rows []ItemRow) ([]core.Item, error) {
	items := make([]core.Item, 0, len(rows))
	for _, row := range rows {
		item, err := toItem(row)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func toItem(row ItemRow) (core.Item, error) {
	due, err := core.ParseDate(row.DueDate)
	if err != nil {
		return core.Item{}, fmt.Errorf("item %d due date: %w", row.ID, err)
	}
	item := core.Item{
		ID:          row.ID,
		Recurrence:  core.RecurrenceOnce,
		Type:        core.Status(row.Type),
		Description: row.Description,
		Amount:      core.Money{Cents: row.AmountCents},
		DueDate:     due,
		Label:       row.Label,
		LabelID:     row.LabelID,
	}
	if row.RecurrenceID.Valid {
		id := row.RecurrenceID.Int64
		item.RecurrenceID = &id
		item.Recurrence = core.RecurrenceMonthly
		item.Months = int(row.Months.Int64)
	}
	if row.TransactionDate.Valid {
		ts, err := core.ParseTimestamp(row.TransactionDate.String)
		if err != nil {
			return core.Item{}, fmt.Errorf("item %d transaction date: %w", row.ID, err)
		}
		item.TransactionDate = &ts
	}
	return item, nil
}
