package lesson

import "time"

// advance returns the start of the occurrence following `from`.
// Weekly and biweekly add whole days, keeping the wall-clock time across DST changes.
// Monthly adds one calendar month and lands on anchorDay, clipped to the length of the target month.
func advance(from time.Time, cadence Cadence, anchorDay int) time.Time {
	switch cadence {
	case Weekly:
		return from.AddDate(0, 0, 7)
	case Biweekly:
		return from.AddDate(0, 0, 14)
	case Monthly:
		return nextMonth(from, anchorDay)
	}
	panic("lesson: advance called with unknown cadence " + string(cadence))
}

// nextMonth never overflows into the month after: Jan 31 + 1 month is Feb 28/29, not Mar 2/3.
func nextMonth(from time.Time, anchorDay int) time.Time {
	y, m, _ := from.Date()
	y, m = normalizeMonth(y, m+1)
	day := anchorDay
	if last := daysIn(y, m); day > last {
		day = last
	}
	return time.Date(y, m, day, from.Hour(), from.Minute(), from.Second(), from.Nanosecond(), from.Location())
}

func normalizeMonth(y int, m time.Month) (int, time.Month) {
	if m > time.December {
		return y + 1, m - 12
	}
	return y, m
}

func daysIn(year int, month time.Month) int {
	// day 0 of the next month is the last day of this one
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// seriesAnchorDay is the day-of-month a monthly series aims for.
// Clipped occurrences sit on an earlier day, so the largest stored day wins.
func seriesAnchorDay(occs []Lesson) int {
	var day int
	for _, occ := range occs {
		if d := occ.Start.Day(); d > day {
			day = d
		}
	}
	return day
}

// monthlyTail returns the trailing run of occs that sits on one monthly anchor day.
// Earlier starts left by another cadence, e.g. before a weekly series turned monthly, are cut off.
func monthlyTail(occs []Lesson) []Lesson {
	i := len(occs) - 1
	for i > 0 && onSameAnchor(occs[i-1].Start, occs[i].Start) {
		i--
	}
	if i < 0 {
		return occs
	}
	return occs[i:]
}

// onSameAnchor reports whether a and b, a in an earlier month, can both be monthly steps towards one anchor day.
// A day clipped to the end of its month stands for any anchor past it.
func onSameAnchor(a, b time.Time) bool {
	ya, ma, da := a.Date()
	yb, mb, db := b.Date()
	if yb*12+int(mb) <= ya*12+int(ma) {
		return false
	}
	switch {
	case da == db:
		return true
	case da < db:
		return da == daysIn(ya, ma)
	default:
		return db == daysIn(yb, mb)
	}
}
