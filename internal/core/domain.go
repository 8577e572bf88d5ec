package core

import (
	"errors"
	"strings"
)

// Status is the item type as the backend stores it.
type Status string

const (
	StatusToPay  Status = "A Pagar"
	StatusPaid   Status = "Pago"
	StatusIncome Status = "Rendimentos"
)

// Column is a dashboard column key.
type Column string

const (
	ColumnToPay  Column = "expenses-to-pay"
	ColumnPaid   Column = "paid-expenses"
	ColumnIncome Column = "income"
)

// Recurrence tells whether an item repeats monthly or happens once.
type Recurrence string

const (
	RecurrenceOnce    Recurrence = "Única"
	RecurrenceMonthly Recurrence = "Mensal"
)

// NewLabelOption is the label select value that asks for a new category.
const NewLabelOption = "Adicionar Opção"

const (
	MaxLabelLength         = 28
	MaxDescriptionLength   = 84
	DefaultRecurringMonths = 12
)

var (
	ErrInvalidAmount      = errors.New("Invalid amount format.")
	ErrMissingFields      = errors.New("Todos os campos são requeridos.")
	ErrLabelNotFound      = errors.New("Label não encontrado.")
	ErrInvalidLabelName   = errors.New("O nome da categoria deve conter apenas letras e espaços.")
	ErrLabelTooLong       = errors.New("O nome da categoria deve ter no máximo 28 caracteres.")
	ErrDescriptionTooLong = errors.New("A descrição deve ter no máximo 84 caracteres.")
	ErrInvalidDate        = errors.New("invalid date")
	ErrInvalidStatus      = errors.New("invalid item type")
	ErrInvalidRecurrence  = errors.New("invalid recurrence")
	ErrInvalidColumn      = errors.New("invalid column")
	ErrCrossColumnMove    = errors.New("income and expenses cannot be moved between each other's columns")
	ErrNotFound           = errors.New("not found")
)

var validationErrors = []error{
	ErrInvalidAmount, ErrMissingFields, ErrLabelNotFound, ErrInvalidLabelName,
	ErrLabelTooLong, ErrDescriptionTooLong, ErrInvalidDate, ErrInvalidStatus,
	ErrInvalidRecurrence, ErrInvalidColumn,
}

// IsValidation reports whether err is a problem with user input rather than
// with the backend.
func IsValidation(err error) bool {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// DefaultLabels are created on first use when the backend does not have them.
var DefaultLabels = []string{
	"Habitação",
	"Saúde",
	"Transporte",
	"Carro",
	"Despesas Pessoais",
	"Lazer",
	"Cartões de Crédito",
	"Dependentes",
	"Salário",
	"Investimento",
	"Honorário",
}

var statuses = []Status{StatusToPay, StatusPaid, StatusIncome}

// Statuses lists every item type in column order.
func Statuses() []Status {
	return append([]Status(nil), statuses...)
}

// ParseStatus accepts a status name or a column key, ignoring case.
func ParseStatus(s string) (Status, error) {
	s = strings.TrimSpace(s)
	for _, st := range statuses {
		if strings.EqualFold(s, string(st)) || strings.EqualFold(s, string(StatusColumn(st))) {
			return st, nil
		}
	}
	return "", ErrInvalidStatus
}

func (s Status) IsIncome() bool {
	return strings.EqualFold(string(s), string(StatusIncome))
}

func (s Status) IsExpense() bool {
	return !s.IsIncome()
}

// Column maps a status to its column. Unknown statuses land in the to-pay column.
func (s Status) Column() Column {
	return StatusColumn(s)
}

func StatusColumn(s Status) Column {
	switch strings.ToLower(string(s)) {
	case "pago":
		return ColumnPaid
	case "rendimentos":
		return ColumnIncome
	default:
		return ColumnToPay
	}
}

// Columns lists the item columns in display order.
func Columns() []Column {
	return []Column{ColumnToPay, ColumnPaid, ColumnIncome}
}

func ParseColumn(s string) (Column, error) {
	c := Column(strings.ToLower(strings.TrimSpace(s)))
	switch c {
	case ColumnToPay, ColumnPaid, ColumnIncome:
		return c, nil
	}
	return "", ErrInvalidColumn
}

// Status returns the item type stored for items dropped in the column.
func (c Column) Status() Status {
	switch c {
	case ColumnPaid:
		return StatusPaid
	case ColumnIncome:
		return StatusIncome
	default:
		return StatusToPay
	}
}

// SectionClass is the CSS class of the column's section.
func (c Column) SectionClass() string {
	return "section-" + string(c)
}

// ParseRecurrence accepts "Única"/"Mensal" with or without accents and in any
// case. An empty value means a one-off item.
func ParseRecurrence(s string) (Recurrence, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "única", "unica":
		return RecurrenceOnce, nil
	case "mensal":
		return RecurrenceMonthly, nil
	}
	return "", ErrInvalidRecurrence
}

// IsRecurring reports whether the item belongs to a series. Anything set and
// different from Única counts as recurring.
func (r Recurrence) IsRecurring() bool {
	if r == "" {
		return false
	}
	parsed, err := ParseRecurrence(string(r))
	if err != nil {
		return true
	}
	return parsed != RecurrenceOnce
}

// Normalize maps empty and accent-less spellings to the canonical value.
func (r Recurrence) Normalize() Recurrence {
	if parsed, err := ParseRecurrence(string(r)); err == nil {
		return parsed
	}
	return r
}

type Label struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	IsDefault bool   `json:"is_default"`
}

// FindLabel looks a label up by name, ignoring case and surrounding spaces.
func FindLabel(labels []Label, name string) (Label, bool) {
	name = strings.TrimSpace(name)
	for _, l := range labels {
		if strings.EqualFold(strings.TrimSpace(l.Name), name) {
			return l, true
		}
	}
	return Label{}, false
}

// MissingDefaultLabels returns the default labels absent from labels.
func MissingDefaultLabels(labels []Label) []string {
	var missing []string
	for _, name := range DefaultLabels {
		if _, ok := FindLabel(labels, name); !ok {
			missing = append(missing, name)
		}
	}
	return missing
}

// Item is a dashboard entry: an expense to pay, a paid expense or an income.
type Item struct {
	ID              int64      `json:"id"`
	RecurrenceID    *int64     `json:"recurrence_id"`
	Recurrence      Recurrence `json:"recurrence"`
	Months          int        `json:"months"`
	Type            Status     `json:"type"`
	Description     string     `json:"description"`
	Amount          Money      `json:"amount"`
	DueDate         Date       `json:"due_date"`
	DueStatus       string     `json:"due_status"`
	TransactionDate *Timestamp `json:"transaction_date"`
	Label           string     `json:"label"`
	LabelID         int64      `json:"label_id"`
}

// Column returns the dashboard column the item is shown in.
func (i Item) Column() Column {
	return i.Type.Column()
}

// Period returns the month the item is due in.
func (i Item) Period() Period {
	return PeriodOf(i.DueDate.Time)
}

// ItemInput carries the editable fields sent to the backend.
type ItemInput struct {
	LabelID     int64
	Type        Status
	Description string
	Amount      Money
	DueDate     Date
	Recurrence  Recurrence
}

// Input returns the editable fields of the item.
func (i Item) Input() ItemInput {
	return ItemInput{
		LabelID:     i.LabelID,
		Type:        i.Type,
		Description: i.Description,
		Amount:      i.Amount,
		DueDate:     i.DueDate,
		Recurrence:  i.Recurrence.Normalize(),
	}
}
