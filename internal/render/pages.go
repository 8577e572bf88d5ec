package render

import (
	"strconv"

	"granabox/internal/core"
)

// Page is the data of the full index page.
type Page struct {
	Dashboard
	ShowWelcome bool
	Notice      *Notification
}

// Notification is a toast shown after an action.
type Notification struct {
	Kind    string
	Message string
}

func Success(msg string) *Notification { return &Notification{Kind: "success", Message: msg} }
func Failure(msg string) *Notification { return &Notification{Kind: "error", Message: msg} }

// ItemForm is the add/edit modal.
type ItemForm struct {
	ID          int64
	Editing     bool
	Title       string
	Action      string
	Column      core.Column
	Types       []Option
	Labels      []Option
	Recurrences []Option
	NewLabel    string
	Description string
	Amount      string
	DueDate     string
	Months      int
	Error       string
}

// NewItemForm builds an empty form for a new item dropped into column c.
func NewItemForm(c core.Column, labels []core.Label, p core.Period) ItemForm {
	return ItemForm{
		Title:       "Adicionar item",
		Action:      "/ui/items",
		Column:      c,
		Types:       TypeOptions(c.Status()),
		Labels:      LabelOptions(labels, ""),
		Recurrences: RecurrenceOptions(core.RecurrenceOnce),
		DueDate:     p.Start().String(),
		Months:      core.DefaultRecurringMonths,
	}
}

// EditItemForm builds a form pre-filled with it.
func EditItemForm(it core.Item, labels []core.Label) ItemForm {
	return ItemForm{
		ID:          it.ID,
		Editing:     true,
		Title:       "Editar item",
		Action:      "/ui/items/" + strconv.FormatInt(it.ID, 10),
		Column:      it.Column(),
		Types:       TypeOptions(it.Type),
		Labels:      LabelOptions(labels, it.Label),
		Recurrences: RecurrenceOptions(it.Recurrence),
		Description: it.Description,
		Amount:      it.Amount.String(),
		DueDate:     it.DueDate.String(),
		Months:      it.Months,
	}
}

// Refill keeps what the user typed after a failed submission.
func (f ItemForm) Refill(d core.Draft, labels []core.Label, err error) ItemForm {
	if st, perr := core.ParseStatus(string(d.Type)); perr == nil {
		f.Types = TypeOptions(st)
	}
	f.Labels = LabelOptions(labels, d.Label)
	f.NewLabel = d.NewLabel
	if rec, rerr := core.ParseRecurrence(string(d.Recurrence)); rerr == nil {
		f.Recurrences = RecurrenceOptions(rec)
	}
	f.Description = d.Description
	f.Amount = d.Amount
	f.DueDate = d.DueDate
	if err != nil {
		f.Error = err.Error()
	}
	return f
}

// DeleteConfirm is the delete confirmation modal.
type DeleteConfirm struct {
	ID          int64
	Description string
	Amount      string
	Recurring   bool
}

func NewDeleteConfirm(it core.Item) DeleteConfirm {
	return DeleteConfirm{
		ID:          it.ID,
		Description: it.Description,
		Amount:      it.Amount.BRL(),
		Recurring:   it.Recurrence.IsRecurring(),
	}
}
