// Package render turns backend data into dashboard view models and HTML.
package render

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"granabox/internal/core"
)

// Section is one block of the dashboard.
type Section struct {
	Key    string
	Title  string
	Class  string
	Column core.Column
	// IsColumn marks the item columns that accept drops and new items.
	IsColumn bool
}

var sections = []Section{
	{Key: "expenses-to-pay", Title: "A Pagar", Class: core.ColumnToPay.SectionClass(), Column: core.ColumnToPay, IsColumn: true},
	{Key: "paid-expenses", Title: "Pago", Class: core.ColumnPaid.SectionClass(), Column: core.ColumnPaid, IsColumn: true},
	{Key: "income", Title: "Rendimentos", Class: core.ColumnIncome.SectionClass(), Column: core.ColumnIncome, IsColumn: true},
	{Key: "overview", Title: "Visão Geral", Class: "financial-progress"},
	{Key: "transactions", Title: "Transações", Class: "recent-transactions"},
}

// Sections lists the dashboard sections in display order.
func Sections() []Section {
	return append([]Section(nil), sections...)
}

// SectionFor returns the section of an item column.
func SectionFor(c core.Column) Section {
	for _, s := range sections {
		if s.IsColumn && s.Column == c {
			return s
		}
	}
	return sections[0]
}

// TypeClass is the short class of an item type: paid, income or pending.
func TypeClass(s core.Status) string {
	switch strings.ToLower(string(s)) {
	case "pago":
		return "paid"
	case "rendimentos":
		return "income"
	default:
		return "pending"
	}
}

// ItemCard is an item as shown inside a column.
type ItemCard struct {
	ID          int64
	Column      core.Column
	Type        string
	TypeClass   string
	Description string
	Label       string
	Amount      string
	DueDate     string
	DueStatus   string
	DueClass    string
	Recurrence  string
	Recurring   bool
	Months      int
}

func NewItemCard(it core.Item) ItemCard {
	recurrence := it.Recurrence.Normalize()
	return ItemCard{
		ID:          it.ID,
		Column:      it.Column(),
		Type:        string(it.Type),
		TypeClass:   TypeClass(it.Type),
		Description: it.Description,
		Label:       it.Label,
		Amount:      it.Amount.BRL(),
		DueDate:     it.DueDate.Display(),
		DueStatus:   it.DueStatus,
		DueClass:    core.DueClass(it.DueStatus),
		Recurrence:  string(recurrence),
		Recurring:   recurrence.IsRecurring(),
		Months:      it.Months,
	}
}

// ColumnView is an item column with its cards.
type ColumnView struct {
	Section
	Items []ItemCard
	Total string
}

// Columns buckets items into the three item columns.
func Columns(items []core.Item) []ColumnView {
	cols := make([]ColumnView, 0, 3)
	index := make(map[core.Column]int, 3)
	totals := make([]core.Money, 3)
	for _, c := range core.Columns() {
		index[c] = len(cols)
		cols = append(cols, ColumnView{Section: SectionFor(c)})
	}
	for _, it := range items {
		i := index[it.Column()]
		cols[i].Items = append(cols[i].Items, NewItemCard(it))
		totals[i] = totals[i].Add(it.Amount)
	}
	for i := range cols {
		cols[i].Total = totals[i].BRL()
	}
	return cols
}

// ProgressBar is one row of the overview widget.
type ProgressBar struct {
	Label   string
	Class   string
	Amount  string
	Total   string
	Percent decimal.Decimal
}

// Width is the CSS width percentage, e.g. "42.5".
func (p ProgressBar) Width() string {
	return p.Percent.String()
}

// ProgressBars builds the Renda, Despesa and Economia rows. Bars are scaled
// to the larger of income and expenses; savings never go below zero.
func ProgressBars(o core.Overview) []ProgressBar {
	maxTotal := o.TotalIncome
	if o.TotalExpenses.Cents > maxTotal.Cents {
		maxTotal = o.TotalExpenses
	}
	hundred := decimal.NewFromInt(100)

	pctIncome := decimal.Zero
	if o.TotalIncome.Cents > 0 {
		pctIncome = core.Percent(o.TotalIncome, maxTotal)
	}
	pctExpenses := decimal.Zero
	if o.TotalExpenses.Cents > 0 {
		pctExpenses = core.Percent(o.TotalExpenses, maxTotal)
	}
	pctSavings := decimal.Zero
	if o.Savings.Cents > 0 || o.TotalIncome.Cents > 0 {
		pctSavings = core.Percent(o.Savings, maxTotal)
	}
	if pctSavings.IsNegative() {
		pctSavings = decimal.Zero
	}
	if pctSavings.GreaterThan(hundred) {
		pctSavings = hundred
	}

	total := o.TotalIncome.BRL()
	return []ProgressBar{
		{Label: "Renda", Class: "income", Amount: o.TotalIncome.BRL(), Total: total, Percent: pctIncome},
		{Label: "Despesa", Class: "expenses", Amount: o.TotalExpenses.BRL(), Total: total, Percent: pctExpenses},
		{Label: "Economia", Class: "savings", Amount: o.Savings.BRL(), Total: total, Percent: pctSavings},
	}
}

// Transaction is a line of the recent transactions list.
type Transaction struct {
	ItemID int64
	Verb   string
	Class  string
	Amount string
	Label  string
	When   string
}

// Text is the sentence shown for the transaction.
func (t Transaction) Text() string {
	return t.Verb + " " + t.Amount + " de " + t.Label
}

// Transactions lists paid expenses ("Pago") and then income ("Adicionado").
// Times are shown in loc; items without a transaction date show their due date.
func Transactions(items []core.Item, loc *time.Location) []Transaction {
	if loc == nil {
		loc = time.UTC
	}
	var paid, income []Transaction
	for _, it := range items {
		var verb string
		switch {
		case strings.EqualFold(string(it.Type), string(core.StatusPaid)):
			verb = "Pago"
		case it.Type.IsIncome():
			verb = "Adicionado"
		default:
			continue
		}
		when := it.DueDate.Display()
		if it.TransactionDate != nil && !it.TransactionDate.IsZero() {
			when = it.TransactionDate.In(loc).Format("02/01/2006 15:04:05")
		}
		tx := Transaction{
			ItemID: it.ID,
			Verb:   verb,
			Class:  TypeClass(it.Type),
			Amount: it.Amount.BRL(),
			Label:  it.Label,
			When:   when,
		}
		if verb == "Pago" {
			paid = append(paid, tx)
		} else {
			income = append(income, tx)
		}
	}
	return append(paid, income...)
}

// Option is a select option.
type Option struct {
	Value    string
	Label    string
	Selected bool
}

var monthNames = [...]string{
	"Janeiro", "Fevereiro", "Março", "Abril", "Maio", "Junho",
	"Julho", "Agosto", "Setembro", "Outubro", "Novembro", "Dezembro",
}

// MonthName returns the Portuguese month name, or "" when out of range.
func MonthName(month int) string {
	if month < 1 || month > 12 {
		return ""
	}
	return monthNames[month-1]
}

// DateSelector is the month and year pickers.
type DateSelector struct {
	Months []Option
	Years  []Option
	Period core.Period
}

// NewDateSelector offers every month and the years from the first year with
// items to two years past the last one.
func NewDateSelector(r core.YearRange, selected core.Period) DateSelector {
	ds := DateSelector{Period: selected}
	for m := 1; m <= 12; m++ {
		p := core.Period{Year: selected.Year, Month: m}
		ds.Months = append(ds.Months, Option{Value: p.MonthValue(), Label: monthNames[m-1], Selected: m == selected.Month})
	}
	last := r.Max + 2
	if selected.Year > last {
		last = selected.Year
	}
	first := r.Min
	if selected.Year < first {
		first = selected.Year
	}
	for y := first; y <= last; y++ {
		v := strconv.Itoa(y)
		ds.Years = append(ds.Years, Option{Value: v, Label: v, Selected: y == selected.Year})
	}
	return ds
}

// LabelOptions lists the categories for the item form, ending with the
// option that adds a new one.
func LabelOptions(labels []core.Label, selected string) []Option {
	opts := make([]Option, 0, len(labels)+1)
	for _, l := range labels {
		opts = append(opts, Option{Value: l.Name, Label: l.Name, Selected: strings.EqualFold(l.Name, selected)})
	}
	return append(opts, Option{Value: core.NewLabelOption, Label: core.NewLabelOption, Selected: selected == core.NewLabelOption})
}

// TypeOptions lists the item types for the form.
func TypeOptions(selected core.Status) []Option {
	var opts []Option
	for _, s := range core.Statuses() {
		opts = append(opts, Option{Value: string(s), Label: string(s), Selected: s == selected})
	}
	return opts
}

// RecurrenceOptions lists Única and Mensal.
func RecurrenceOptions(selected core.Recurrence) []Option {
	selected = selected.Normalize()
	return []Option{
		{Value: string(core.RecurrenceOnce), Label: string(core.RecurrenceOnce), Selected: selected != core.RecurrenceMonthly},
		{Value: string(core.RecurrenceMonthly), Label: string(core.RecurrenceMonthly), Selected: selected == core.RecurrenceMonthly},
	}
}

// Dashboard is the full dashboard body.
type Dashboard struct {
	Period       core.Period
	MonthName    string
	Selector     DateSelector
	Columns      []ColumnView
	Overview     core.Overview
	Progress     []ProgressBar
	Transactions []Transaction
}

// BuildDashboard assembles the dashboard body for one month.
func BuildDashboard(p core.Period, o core.Overview, items []core.Item, years core.YearRange, loc *time.Location) Dashboard {
	return Dashboard{
		Period:       p,
		MonthName:    MonthName(p.Month),
		Selector:     NewDateSelector(years, p),
		Columns:      Columns(items),
		Overview:     o,
		Progress:     ProgressBars(o),
		Transactions: Transactions(items, loc),
	}
}
