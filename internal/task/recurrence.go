package task

import "time"

// Recurrence values. Empty means one-shot.
const (
	RecurNone    = ""
	RecurDaily   = "daily"
	RecurWeekly  = "weekly"
	RecurMonthly = "monthly"
)

// ValidRecurrence reports whether r is an accepted recurrence value.
func ValidRecurrence(r string) bool {
	switch r {
	case RecurNone, RecurDaily, RecurWeekly, RecurMonthly:
		return true
	}
	return false
}

// NextDue returns the next occurrence after a completion, or nil for
// one-shot tasks. Monthly uses AddDate, so Jan 31 rolls into early March
// the way the standard library normalizes it.
func NextDue(recurrence string, completedAt time.Time) *time.Time {
	var next time.Time
	switch recurrence {
	case RecurDaily:
		next = completedAt.AddDate(0, 0, 1)
	case RecurWeekly:
		next = completedAt.AddDate(0, 0, 7)
	case RecurMonthly:
		next = completedAt.AddDate(0, 1, 0)
	default:
		return nil
	}
	return &next
}
