package core

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var labelNamePattern = regexp.MustCompile(`^[A-Za-zÀ-ÿ\s]+$`)

// Draft is the item form as submitted.
type Draft struct {
	Type        Status
	Label       string
	NewLabel    string
	Description string
	Amount      string
	DueDate     string
	Recurrence  Recurrence
}

// ValidDraft is a draft that passed validation.
type ValidDraft struct {
	Type        Status
	LabelName   string
	IsNewLabel  bool
	Description string
	Amount      Money
	DueDate     Date
	Recurrence  Recurrence
}

// AddsLabel reports whether the form asks for a new category.
func (d Draft) AddsLabel() bool {
	return strings.TrimSpace(d.Label) == NewLabelOption
}

// Validate checks the draft in the order the form reports problems: the new
// category name, required fields, amount, lengths, date.
func (d Draft) Validate() (ValidDraft, error) {
	v := ValidDraft{
		Description: strings.TrimSpace(d.Description),
		LabelName:   strings.TrimSpace(d.Label),
	}

	if d.AddsLabel() {
		name := strings.TrimSpace(d.NewLabel)
		if name == "" || !labelNamePattern.MatchString(name) {
			return ValidDraft{}, ErrInvalidLabelName
		}
		if utf8.RuneCountInString(name) > MaxLabelLength {
			return ValidDraft{}, ErrLabelTooLong
		}
		v.LabelName = name
		v.IsNewLabel = true
	}

	if v.LabelName == "" || v.Description == "" || strings.TrimSpace(d.DueDate) == "" || strings.TrimSpace(d.Amount) == "" {
		return ValidDraft{}, ErrMissingFields
	}

	amount, err := ParseMoney(d.Amount)
	if err != nil || amount.IsNegative() {
		return ValidDraft{}, ErrInvalidAmount
	}
	if amount.IsZero() {
		return ValidDraft{}, ErrMissingFields
	}
	v.Amount = amount

	if utf8.RuneCountInString(v.Description) > MaxDescriptionLength {
		return ValidDraft{}, ErrDescriptionTooLong
	}

	due, err := ParseDate(d.DueDate)
	if err != nil {
		return ValidDraft{}, ErrInvalidDate
	}
	v.DueDate = due

	status, err := ParseStatus(string(d.Type))
	if err != nil {
		return ValidDraft{}, err
	}
	v.Type = status

	recurrence, err := ParseRecurrence(string(d.Recurrence))
	if err != nil {
		return ValidDraft{}, err
	}
	v.Recurrence = recurrence

	return v, nil
}

// Input builds the backend payload once the label id is known.
func (v ValidDraft) Input(labelID int64) ItemInput {
	return ItemInput{
		LabelID:     labelID,
		Type:        v.Type,
		Description: v.Description,
		Amount:      v.Amount,
		DueDate:     v.DueDate,
		Recurrence:  v.Recurrence,
	}
}
