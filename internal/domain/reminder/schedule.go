package reminder

import (
	"fmt"
	"math"
	"time"
)

// DateOnly normalizes a timestamp to midnight of its calendar date in loc.
// All day arithmetic in this package goes through it so sub-day components
// and DST shifts cannot produce off-by-one day counts.
func DateOnly(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

// DaysUntilDue returns the whole-day difference between the due date and
// today, both taken as calendar dates in loc. Negative means overdue.
func DaysUntilDue(due, today time.Time, loc *time.Location) int {
	d := DateOnly(due, loc).Sub(DateOnly(today, loc))
	return int(math.Round(d.Hours() / 24))
}

// SameDay reports whether both timestamps fall on the same calendar date
// in loc.
func SameDay(a, b time.Time, loc *time.Location) bool {
	return DateOnly(a, loc).Equal(DateOnly(b, loc))
}

// HourAllowed reports whether hour falls inside the operating window
// [startHour, endHour).
func HourAllowed(hour, startHour, endHour int) bool {
	return hour >= startHour && hour < endHour
}

// Urgent reports whether a credit is due today or tomorrow. Urgent credits
// override the weekday rotation and go out every day of the week.
func Urgent(daysUntilDue int) bool {
	return daysUntilDue == 0 || daysUntilDue == 1
}

// ShouldSendToday decides whether a credit gets a reminder on the given
// weekday. Sundays are reserved for urgent credits only. The remaining
// weekdays are split by credit id parity to bound daily volume: even ids
// send Mon/Wed/Fri, odd ids send Tue/Thu/Sat.
func ShouldSendToday(weekday time.Weekday, daysUntilDue int, creditID int64) bool {
	if weekday == time.Sunday {
		return Urgent(daysUntilDue)
	}
	if Urgent(daysUntilDue) {
		return true
	}

	even := creditID%2 == 0
	switch weekday {
	case time.Monday, time.Wednesday, time.Friday:
		return even
	case time.Tuesday, time.Thursday, time.Saturday:
		return !even
	}
	return false
}

// DueStatusLine renders the per-credit status line used in grouped
// messages.
func DueStatusLine(daysUntilDue int) string {
	switch {
	case daysUntilDue < 0:
		return fmt.Sprintf("Vencido hace %d días", -daysUntilDue)
	case daysUntilDue == 0:
		return "Vence hoy"
	case daysUntilDue == 1:
		return "Vence mañana"
	default:
		return fmt.Sprintf("Vence en %d días", daysUntilDue)
	}
}
