package core

import (
	"errors"
	"strings"
	"testing"
)

func validDraft() Draft {
	return Draft{
		Type:        StatusToPay,
		Label:       "Lazer",
		Description: "Cinema",
		Amount:      "45,90",
		DueDate:     "2025-03-10",
		Recurrence:  RecurrenceOnce,
	}
}

func TestDraftValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(d *Draft)
		err    error
	}{
		{"valid", func(d *Draft) {}, nil},
		{"new label", func(d *Draft) { d.Label = NewLabelOption; d.NewLabel = "Educação" }, nil},
		{"new label with digits", func(d *Draft) { d.Label = NewLabelOption; d.NewLabel = "Casa 2" }, ErrInvalidLabelName},
		{"new label empty", func(d *Draft) { d.Label = NewLabelOption; d.NewLabel = "  " }, ErrInvalidLabelName},
		{"new label too long", func(d *Draft) { d.Label = NewLabelOption; d.NewLabel = strings.Repeat("a", 29) }, ErrLabelTooLong},
		{"missing label", func(d *Draft) { d.Label = "" }, ErrMissingFields},
		{"missing description", func(d *Draft) { d.Description = " " }, ErrMissingFields},
		{"missing date", func(d *Draft) { d.DueDate = "" }, ErrMissingFields},
		{"missing amount", func(d *Draft) { d.Amount = "" }, ErrMissingFields},
		{"zero amount", func(d *Draft) { d.Amount = "0,00" }, ErrMissingFields},
		{"bad amount", func(d *Draft) { d.Amount = "quarenta" }, ErrInvalidAmount},
		{"negative amount", func(d *Draft) { d.Amount = "-1" }, ErrInvalidAmount},
		{"overflowing amount", func(d *Draft) { d.Amount = "1000000000000000000000" }, ErrInvalidAmount},
		{"long description", func(d *Draft) { d.Description = strings.Repeat("é", 85) }, ErrDescriptionTooLong},
		{"bad date", func(d *Draft) { d.DueDate = "10/03/2025" }, ErrInvalidDate},
		{"bad type", func(d *Draft) { d.Type = "Talvez" }, ErrInvalidStatus},
		{"bad recurrence", func(d *Draft) { d.Recurrence = "Anual" }, ErrInvalidRecurrence},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := validDraft()
			tc.mutate(&d)
			_, err := d.Validate()
			if !errors.Is(err, tc.err) {
				t.Fatalf("Validate() error = %v, want %v", err, tc.err)
			}
		})
	}
}

func TestDraftValidateResult(t *testing.T) {
	d := validDraft()
	d.Label = NewLabelOption
	d.NewLabel = " Educação "
	d.Recurrence = "mensal"
	d.Type = "paid-expenses"

	v, err := d.Validate()
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if !v.IsNewLabel || v.LabelName != "Educação" {
		t.Errorf("label = %q (new=%v)", v.LabelName, v.IsNewLabel)
	}
	if v.Amount.Cents != 4590 || v.DueDate.String() != "2025-03-10" {
		t.Errorf("amount/date = %d/%s", v.Amount.Cents, v.DueDate)
	}
	if v.Recurrence != RecurrenceMonthly || v.Type != StatusPaid {
		t.Errorf("recurrence/type = %q/%q", v.Recurrence, v.Type)
	}

	in := v.Input(7)
	if in.LabelID != 7 || in.Description != "Cinema" {
		t.Errorf("Input() = %+v", in)
	}
}
