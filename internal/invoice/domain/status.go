package domain

import "time"

// DisplayStatus derives the user-visible status of an invoice for a given
// "today". Paid wins unconditionally; a pending invoice whose due date is
// strictly before today (day granularity, UTC) is overdue. Every list,
// filter and render site must go through this one function.
func DisplayStatus(inv Invoice, today time.Time) InvoiceStatus {
	if inv.Status == InvoiceStatusPaid {
		return InvoiceStatusPaid
	}
	if TruncateToDay(inv.DueDate).Before(TruncateToDay(today)) {
		return InvoiceStatusOverdue
	}
	return InvoiceStatusPending
}

// TruncateToDay drops the time-of-day component, in UTC.
func TruncateToDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
