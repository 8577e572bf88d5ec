package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"granabox/internal/core"
)

var (
	successSymbol = "✓"
	infoSymbol    = "→"

	successStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#00875F", Dark: "#00D787"})
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#005FAF", Dark: "#5FAFFF"})
	headerStyle  = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
)

func printSuccess(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, "%s %s\n", successStyle.Render(successSymbol), fmt.Sprintf(format, args...))
}

func printInfo(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, "%s %s\n", infoStyle.Render(infoSymbol), fmt.Sprintf(format, args...))
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
}

func printLabels(w io.Writer, labels []core.Label) {
	t := newTable("ID", "Categoria", "Padrão")
	for _, l := range labels {
		def := ""
		if l.IsDefault {
			def = "sim"
		}
		t.Row(strconv.FormatInt(l.ID, 10), l.Name, def)
	}
	_, _ = fmt.Fprintln(w, t.Render())
}

func printItems(w io.Writer, items []core.Item) {
	t := newTable("ID", "Vencimento", "Tipo", "Categoria", "Descrição", "Valor", "Situação", "Recorrência")
	for _, it := range items {
		t.Row(
			strconv.FormatInt(it.ID, 10),
			it.DueDate.Display(),
			string(it.Type),
			it.Label,
			it.Description,
			it.Amount.BRL(),
			it.DueStatus,
			string(it.Recurrence.Normalize()),
		)
	}
	_, _ = fmt.Fprintln(w, t.Render())
}

func printOverview(w io.Writer, p core.Period, o core.Overview) {
	t := newTable("Mês", "Rendimentos", "Despesas", "Saldo")
	t.Row(p.Key(), o.TotalIncome.BRL(), o.TotalExpenses.BRL(), o.Savings.BRL())
	_, _ = fmt.Fprintln(w, t.Render())
}
