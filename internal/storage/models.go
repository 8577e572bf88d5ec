package storage

import "database/sql"

type LabelRow struct {
	ID        int64
	Name      string
	IsDefault bool
}

type RecurrenceRow struct {
	ID     int64
	Months int64
	Day    int64
}

// ItemRow is an item joined with its label name and series length.
type ItemRow struct {
	ID              int64
	RecurrenceID    sql.NullInt64
	LabelID         int64
	Label           string
	Months          sql.NullInt64
	Type            string
	Description     string
	AmountCents     int64
	DueDate         string
	TransactionDate sql.NullString
}

type TypeTotal struct {
	Type  string
	Total int64
}
