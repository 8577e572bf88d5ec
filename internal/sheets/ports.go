// Package sheets defines the ledger the worker exports item events to.
package sheets

import (
	"context"
	"strconv"
	"time"

	"granabox/internal/core"
)

// LedgerWriter appends rows to a ledger and returns a reference to the row.
type LedgerWriter interface {
	AppendRow(ctx context.Context, row LedgerRow) (rowRef string, err error)
}

// LedgerRow is one exported item event.
type LedgerRow struct {
	EventID     string
	Timestamp   time.Time
	Action      string
	ItemID      int64
	Type        core.Status
	Label       string
	Description string
	Amount      core.Money
	DueDate     core.Date
	Count       int
}

// Header names the ledger columns in Values order.
func Header() []any {
	return []any{"Data", "Ação", "Item", "Tipo", "Categoria", "Descrição", "Valor", "Vencimento", "Itens", "Evento"}
}

// Values renders the row for a spreadsheet. The timestamp is shown in loc.
func (r LedgerRow) Values(loc *time.Location) []any {
	if loc == nil {
		loc = time.UTC
	}
	return []any{
		r.Timestamp.In(loc).Format("2006-01-02 15:04:05"),
		r.Action,
		strconv.FormatInt(r.ItemID, 10),
		string(r.Type),
		r.Label,
		r.Description,
		r.Amount.Float64(),
		r.DueDate.String(),
		r.Count,
		r.EventID,
	}
}
