package core

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestParseStatus(t *testing.T) {
	cases := map[string]Status{
		"A Pagar":         StatusToPay,
		"a pagar":         StatusToPay,
		"Pago":            StatusPaid,
		"PAGO":            StatusPaid,
		"rendimentos":     StatusIncome,
		"expenses-to-pay": StatusToPay,
		"paid-expenses":   StatusPaid,
		"income":          StatusIncome,
	}
	for in, want := range cases {
		got, err := ParseStatus(in)
		if err != nil || got != want {
			t.Errorf("ParseStatus(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseStatus("Talvez"); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("expected ErrInvalidStatus, got %v", err)
	}
}

func TestStatusColumn(t *testing.T) {
	cases := []struct {
		status Status
		column Column
	}{
		{StatusToPay, ColumnToPay},
		{StatusPaid, ColumnPaid},
		{"pago", ColumnPaid},
		{StatusIncome, ColumnIncome},
		{"RENDIMENTOS", ColumnIncome},
		{"qualquer", ColumnToPay},
	}
	for _, tc := range cases {
		if got := tc.status.Column(); got != tc.column {
			t.Errorf("%q.Column() = %q, want %q", tc.status, got, tc.column)
		}
	}
	if ColumnPaid.SectionClass() != "section-paid-expenses" {
		t.Errorf("SectionClass = %q", ColumnPaid.SectionClass())
	}
}

func TestParseRecurrence(t *testing.T) {
	cases := []struct {
		in   string
		want Recurrence
		ok   bool
	}{
		{"", RecurrenceOnce, true},
		{"Única", RecurrenceOnce, true},
		{"unica", RecurrenceOnce, true},
		{"Mensal", RecurrenceMonthly, true},
		{"MENSAL", RecurrenceMonthly, true},
		{"Anual", "", false},
	}
	for _, tc := range cases {
		got, err := ParseRecurrence(tc.in)
		if tc.ok && (err != nil || got != tc.want) {
			t.Errorf("ParseRecurrence(%q) = %q, %v", tc.in, got, err)
		}
		if !tc.ok && !errors.Is(err, ErrInvalidRecurrence) {
			t.Errorf("ParseRecurrence(%q) expected error, got %v", tc.in, err)
		}
	}
}

func TestRecurrenceIsRecurring(t *testing.T) {
	cases := map[Recurrence]bool{
		"":                false,
		RecurrenceOnce:    false,
		"unica":           false,
		RecurrenceMonthly: true,
		"Semanal":         true,
	}
	for r, want := range cases {
		if got := r.IsRecurring(); got != want {
			t.Errorf("%q.IsRecurring() = %v, want %v", r, got, want)
		}
	}
}

func TestMissingDefaultLabels(t *testing.T) {
	existing := []Label{{ID: 1, Name: "habitação"}, {ID: 2, Name: " Lazer "}, {ID: 3, Name: "Viagem"}}
	missing := MissingDefaultLabels(existing)
	if len(missing) != len(DefaultLabels)-2 {
		t.Fatalf("expected %d missing labels, got %d: %v", len(DefaultLabels)-2, len(missing), missing)
	}
	for _, name := range missing {
		if name == "Habitação" || name == "Lazer" {
			t.Errorf("%q should not be missing", name)
		}
	}
}

func TestSummarize(t *testing.T) {
	items := []Item{
		{Type: StatusIncome, Amount: Money{Cents: 500000}},
		{Type: StatusPaid, Amount: Money{Cents: 120000}},
		{Type: StatusToPay, Amount: Money{Cents: 30000}},
	}
	o := Summarize(items)
	if o.TotalIncome.Cents != 500000 || o.TotalExpenses.Cents != 150000 || o.Savings.Cents != 350000 {
		t.Fatalf("unexpected overview %+v", o)
	}
}

func TestDateHelpers(t *testing.T) {
	d := NewDate(2025, 1, 31)
	if got := d.AddMonths(1).String(); got != "2025-02-28" {
		t.Errorf("AddMonths(1) = %s", got)
	}
	if got := d.AddMonths(13).String(); got != "2026-02-28" {
		t.Errorf("AddMonths(13) = %s", got)
	}
	if got := NewDate(2024, 2, 10).WithDay(31).String(); got != "2024-02-29" {
		t.Errorf("WithDay(31) = %s", got)
	}
	if got := d.Display(); got != "31/01/2025" {
		t.Errorf("Display = %s", got)
	}

	for _, in := range []string{"2025-03-04", "Tue, 04 Mar 2025 00:00:00 GMT", "2025-03-04T10:00:00Z"} {
		got, err := ParseDate(in)
		if err != nil || got.String() != "2025-03-04" {
			t.Errorf("ParseDate(%q) = %s, %v", in, got, err)
		}
	}
	if _, err := ParseDate("04/03/2025"); !errors.Is(err, ErrInvalidDate) {
		t.Errorf("expected ErrInvalidDate, got %v", err)
	}
}

func TestYearRangeNormalize(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		in, want YearRange
	}{
		{YearRange{}, YearRange{Min: 2025, Max: 2025}},
		{YearRange{Min: 2023}, YearRange{Min: 2023, Max: 2023}},
		{YearRange{Min: 2026, Max: 2022}, YearRange{Min: 2022, Max: 2026}},
		{YearRange{Min: 2022, Max: 2024}, YearRange{Min: 2022, Max: 2024}},
	}
	for _, tc := range cases {
		if got := tc.in.Normalize(now); got != tc.want {
			t.Errorf("Normalize(%+v) = %+v, want %+v", tc.in, got, tc.want)
		}
	}
}

func TestDueClass(t *testing.T) {
	cases := map[string]string{
		"VENCIDO":            DueClassOverdue,
		"VENCE HOJE":         DueClassSoon,
		"VENCE AMANHÃ":       DueClassSoon,
		"A VENCER EM 3 DIAS": DueClassSoon,
		"A VENCER":           DueClassPending,
		"PAGO":               DueClassPaid,
		"pago":               DueClassPaid,
		"RECEBIDO":           DueClassPending,
		"":                   DueClassPending,
	}
	for in, want := range cases {
		if got := DueClass(in); got != want {
			t.Errorf("DueClass(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestIsValidation(t *testing.T) {
	if !IsValidation(fmt.Errorf("create: %w", ErrMissingFields)) {
		t.Error("wrapped validation error not recognised")
	}
	if IsValidation(ErrNotFound) || IsValidation(ErrCrossColumnMove) || IsValidation(nil) {
		t.Error("non-validation errors reported as validation")
	}
}
