// Package services holds the business logic of the reference backend.
//
// Due statuses follow a strategy per item type: paid expenses and income have
// a fixed label, pending expenses count the days to their due date.
package services

import (
	"fmt"
	"strings"

	"granabox/internal/core"
)

// DueStatusStrategy computes the due status label of an item on a given day.
type DueStatusStrategy interface {
	DueStatus(item core.Item, today core.Date) string
}

// FixedStatus always reports the same label.
type FixedStatus string

func (s FixedStatus) DueStatus(core.Item, core.Date) string {
	return string(s)
}

// PendingStatus counts days until the due date. Up to SoonDays days ahead the
// label names the count.
type PendingStatus struct {
	SoonDays int
}

func (s PendingStatus) DueStatus(item core.Item, today core.Date) string {
	days := DaysUntil(today, item.DueDate)
	switch {
	case days < 0:
		return core.DueOverdue
	case days == 0:
		return core.DueToday
	case days == 1:
		return core.DueTomorrow
	case days <= s.SoonDays:
		return fmt.Sprintf("%s %d DIAS", core.DueSoonPrefix, days)
	default:
		return core.DueUpcoming
	}
}

// DaysUntil returns the calendar days from today to due, negative when due
// is in the past.
func DaysUntil(today, due core.Date) int {
	a := core.NewDate(today.Year(), int(today.Month()), today.Day())
	b := core.NewDate(due.Year(), int(due.Month()), due.Day())
	return int(b.Sub(a.Time).Hours() / 24)
}

var dueStatusStrategies = map[core.Status]DueStatusStrategy{
	core.StatusPaid:   FixedStatus(core.DuePaid),
	core.StatusIncome: FixedStatus(core.DueReceived),
	core.StatusToPay:  PendingStatus{SoonDays: core.DueSoonMaxDays},
}

// strategyKey folds known statuses and their column keys onto the canonical
// status; other types are keyed case-insensitively.
func strategyKey(status core.Status) core.Status {
	if st, err := core.ParseStatus(string(status)); err == nil {
		return st
	}
	return core.Status(strings.ToLower(strings.TrimSpace(string(status))))
}

// GetDueStatusStrategy returns the strategy registered for the item type.
func GetDueStatusStrategy(status core.Status) (DueStatusStrategy, error) {
	if strategy, ok := dueStatusStrategies[strategyKey(status)]; ok {
		return strategy, nil
	}
	return nil, fmt.Errorf("%w: %q", core.ErrInvalidStatus, status)
}

// RegisterDueStatusStrategy replaces or adds the strategy of an item type.
// Keys differing only in case name the same type.
// It is not safe to call concurrently with DueStatus.
func RegisterDueStatusStrategy(status core.Status, strategy DueStatusStrategy) {
	dueStatusStrategies[strategyKey(status)] = strategy
}

// DueStatus labels item on today. Unknown types are treated as pending.
func DueStatus(item core.Item, today core.Date) string {
	strategy, err := GetDueStatusStrategy(item.Type)
	if err != nil {
		strategy = PendingStatus{SoonDays: core.DueSoonMaxDays}
	}
	return strategy.DueStatus(item, today)
}
