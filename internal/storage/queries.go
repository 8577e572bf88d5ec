package storage

import (
	"context"
	"database/sql"
)

const createLabel = `INSERT INTO labels (name, is_default) VALUES (?, ?)
ON CONFLICT(name) DO NOTHING
RETURNING id, name, is_default`

type CreateLabelParams struct {
	Name      string
	IsDefault bool
}

// CreateLabel returns sql.ErrNoRows when a label with the same name exists.
func (q *Queries) CreateLabel(ctx context.Context, arg CreateLabelParams) (LabelRow, error) {
	row := q.db.QueryRowContext(ctx, createLabel, arg.Name, arg.IsDefault)
	var l LabelRow
	err := row.Scan(&l.ID, &l.Name, &l.IsDefault)
	return l, err
}

const getLabel = `SELECT id, name, is_default FROM labels WHERE id = ?`

func (q *Queries) GetLabel(ctx context.Context, id int64) (LabelRow, error) {
	row := q.db.QueryRowContext(ctx, getLabel, id)
	var l LabelRow
	err := row.Scan(&l.ID, &l.Name, &l.IsDefault)
	return l, err
}

const getLabelByName = `SELECT id, name, is_default FROM labels WHERE name = ?`

func (q *Queries) GetLabelByName(ctx context.Context, name string) (LabelRow, error) {
	row := q.db.QueryRowContext(ctx, getLabelByName, name)
	var l LabelRow
	err := row.Scan(&l.ID, &l.Name, &l.IsDefault)
	return l, err
}

const listLabels = `SELECT id, name, is_default FROM labels ORDER BY id`

func (q *Queries) ListLabels(ctx context.Context) ([]LabelRow, error) {
	rows, err := q.db.QueryContext(ctx, listLabels)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []LabelRow
	for rows.Next() {
		var l LabelRow
		if err := rows.Scan(&l.ID, &l.Name, &l.IsDefault); err != nil {
			return nil, err
		}
		items = append(items, l)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const createRecurrence = `INSERT INTO recurrences (months, day) VALUES (?, ?)
RETURNING id, months, day`

type CreateRecurrenceParams struct {
	Months int64
	Day    int64
}

func (q *Queries) CreateRecurrence(ctx context.Context, arg CreateRecurrenceParams) (RecurrenceRow, error) {
	row := q.db.QueryRowContext(ctx, createRecurrence, arg.Months, arg.Day)
	var r RecurrenceRow
	err := row.Scan(&r.ID, &r.Months, &r.Day)
	return r, err
}

const updateRecurrenceDay = `UPDATE recurrences SET day = ? WHERE id = ?`

func (q *Queries) UpdateRecurrenceDay(ctx context.Context, id, day int64) error {
	_, err := q.db.ExecContext(ctx, updateRecurrenceDay, day, id)
	return err
}

const itemColumns = `i.id, i.recurrence_id, i.label_id, l.name, r.months, i.type,
i.description, i.amount_cents, i.due_date, i.transaction_date
FROM items i
JOIN labels l ON l.id = i.label_id
LEFT JOIN recurrences r ON r.id = i.recurrence_id`

func scanItem(s interface{ Scan(...any) error }) (ItemRow, error) {
	var i ItemRow
	err := s.Scan(
		&i.ID,
		&i.RecurrenceID,
		&i.LabelID,
		&i.Label,
		&i.Months,
		&i.Type,
		&i.Description,
		&i.AmountCents,
		&i.DueDate,
		&i.TransactionDate,
	)
	return i, err
}

func (q *Queries) listItems(ctx context.Context, query string, args ...any) ([]ItemRow, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ItemRow
	for rows.Next() {
		i, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const createItem = `INSERT INTO items (
    recurrence_id, label_id, type, description, amount_cents, due_date, transaction_date
) VALUES (?, ?, ?, ?, ?, ?, ?)
RETURNING id`

type CreateItemParams struct {
	RecurrenceID    sql.NullInt64
	LabelID         int64
	Type            string
	Description     string
	AmountCents     int64
	DueDate         string
	TransactionDate sql.NullString
}

func (q *Queries) CreateItem(ctx context.Context, arg CreateItemParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, createItem,
		arg.RecurrenceID,
		arg.LabelID,
		arg.Type,
		arg.Description,
		arg.AmountCents,
		arg.DueDate,
		arg.TransactionDate,
	)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const getItem = `SELECT ` + itemColumns + ` WHERE i.id = ?`

func (q *Queries) GetItem(ctx context.Context, id int64) (ItemRow, error) {
	return scanItem(q.db.QueryRowContext(ctx, getItem, id))
}

const listItems = `SELECT ` + itemColumns + ` ORDER BY i.due_date, i.id`

func (q *Queries) ListItems(ctx context.Context) ([]ItemRow, error) {
	return q.listItems(ctx, listItems)
}

const listItemsByDueRange = `SELECT ` + itemColumns + `
WHERE i.due_date >= ? AND i.due_date < ? AND (? = '' OR i.type = ?)
ORDER BY i.due_date, i.id`

type ListItemsByDueRangeParams struct {
	From string
	To   string
	Type string
}

// ListItemsByDueRange returns items due in [From, To). An empty Type matches
// every type.
func (q *Queries) ListItemsByDueRange(ctx context.Context, arg ListItemsByDueRangeParams) ([]ItemRow, error) {
	return q.listItems(ctx, listItemsByDueRange, arg.From, arg.To, arg.Type, arg.Type)
}

const listSeriesFrom = `SELECT ` + itemColumns + `
WHERE i.recurrence_id = ? AND i.due_date >= ?
ORDER BY i.due_date, i.id`

type ListSeriesFromParams struct {
	RecurrenceID int64
	DueDate      string
}

func (q *Queries) ListSeriesFrom(ctx context.Context, arg ListSeriesFromParams) ([]ItemRow, error) {
	return q.listItems(ctx, listSeriesFrom, arg.RecurrenceID, arg.DueDate)
}

const updateItem = `UPDATE items
SET label_id = ?, type = ?, description = ?, amount_cents = ?, due_date = ?,
    updated_at = CURRENT_TIMESTAMP
WHERE id = ?`

type UpdateItemParams struct {
	ID          int64
	LabelID     int64
	Type        string
	Description string
	AmountCents int64
	DueDate     string
}

func (q *Queries) UpdateItem(ctx context.Context, arg UpdateItemParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateItem,
		arg.LabelID,
		arg.Type,
		arg.Description,
		arg.AmountCents,
		arg.DueDate,
		arg.ID,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const updateItemStatus = `UPDATE items
SET type = ?, transaction_date = ?, updated_at = CURRENT_TIMESTAMP
WHERE id = ?`

type UpdateItemStatusParams struct {
	ID              int64
	Type            string
	TransactionDate sql.NullString
}

func (q *Queries) UpdateItemStatus(ctx context.Context, arg UpdateItemStatusParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateItemStatus, arg.Type, arg.TransactionDate, arg.ID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deleteItem = `DELETE FROM items WHERE id = ?`

func (q *Queries) DeleteItem(ctx context.Context, id int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteItem, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deleteSeriesAfter = `DELETE FROM items WHERE recurrence_id = ? AND due_date > ?`

type DeleteSeriesAfterParams struct {
	RecurrenceID int64
	DueDate      string
}

func (q *Queries) DeleteSeriesAfter(ctx context.Context, arg DeleteSeriesAfterParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteSeriesAfter, arg.RecurrenceID, arg.DueDate)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const detachItem = `UPDATE items SET recurrence_id = NULL, updated_at = CURRENT_TIMESTAMP WHERE id = ?`

func (q *Queries) DetachItem(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, detachItem, id)
	return err
}

const yearRange = `SELECT
    CAST(MIN(substr(due_date, 1, 4)) AS INTEGER),
    CAST(MAX(substr(due_date, 1, 4)) AS INTEGER)
FROM items`

func (q *Queries) YearRange(ctx context.Context) (sql.NullInt64, sql.NullInt64, error) {
	var lo, hi sql.NullInt64
	err := q.db.QueryRowContext(ctx, yearRange).Scan(&lo, &hi)
	return lo, hi, err
}

const sumByType = `SELECT type, COALESCE(SUM(amount_cents), 0)
FROM items
WHERE due_date >= ? AND due_date < ?
GROUP BY type`

func (q *Queries) SumByType(ctx context.Context, from, to string) ([]TypeTotal, error) {
	rows, err := q.db.QueryContext(ctx, sumByType, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var totals []TypeTotal
	for rows.Next() {
		var t TypeTotal
		if err := rows.Scan(&t.Type, &t.Total); err != nil {
			return nil, err
		}
		totals = append(totals, t)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	return totals, rows.Err()
}
