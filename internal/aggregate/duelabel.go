package aggregate

import (
	"time"
)

type DueKind int

const (
	DueOn DueKind = iota
	DueToday
	Overdue
)

func (k DueKind) String() string {
	switch k {
	case Overdue:
		return "Overdue"
	case DueToday:
		return "Due today"
	default:
		return "Due"
	}
}

type DueStatus struct {
	Kind DueKind
	// Date is the due calendar day at local midnight.
	Date time.Time
}

// DueLabel classifies a due timestamp against the reference time's calendar
// day: a strictly earlier day is Overdue, the same day is DueToday, a later
// day is DueOn. The comparison is by calendar date in now's location, never
// by raw millisecond difference, so a 9am deadline is not "overdue" at 10am
// the same day.
func DueLabel(dueMillis int64, now time.Time) DueStatus {
	due := time.UnixMilli(dueMillis).In(now.Location())
	dueDay := time.Date(due.Year(), due.Month(), due.Day(), 0, 0, 0, 0, now.Location())
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	switch {
	case dueDay.Before(today):
		return DueStatus{Kind: Overdue, Date: dueDay}
	case dueDay.Equal(today):
		return DueStatus{Kind: DueToday, Date: dueDay}
	default:
		return DueStatus{Kind: DueOn, Date: dueDay}
	}
}
