package core

import "strings"

// Due status labels computed by the backend.
const (
	DuePaid        = "PAGO"
	DueReceived    = "RECEBIDO"
	DueOverdue     = "VENCIDO"
	DueToday       = "VENCE HOJE"
	DueTomorrow    = "VENCE AMANHÃ"
	DueSoonPrefix  = "A VENCER EM"
	DueUpcoming    = "A VENCER"
	DueSoonMaxDays = 7
)

// Due status CSS classes.
const (
	DueClassOverdue = "overdue"
	DueClassSoon    = "due-soon"
	DueClassPaid    = "paid-status"
	DueClassPending = "payment-due"
)

// DueClass maps a due status label to the class used to highlight it.
func DueClass(status string) string {
	s := strings.ToUpper(strings.TrimSpace(status))
	switch {
	case s == DueOverdue:
		return DueClassOverdue
	case s == DueToday, s == DueTomorrow, strings.HasPrefix(s, DueSoonPrefix):
		return DueClassSoon
	case s == DuePaid:
		return DueClassPaid
	default:
		return DueClassPending
	}
}
