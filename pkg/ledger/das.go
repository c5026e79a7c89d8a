package ledger

import (
	"math"
	"time"
)

// NextDASDue is the next DAS due date on or after the calendar day of now
// in loc. A due day past the end of a month falls on its last day.
func NextDASDue(dueDay int, now time.Time, loc *time.Location) time.Time {
	local := now.In(loc)
	y, m, d := local.Date()
	due := dueDate(y, m, dueDay, loc)
	if d > due.Day() {
		due = dueDate(y, m+1, dueDay, loc)
	}
	return due
}

// DaysUntilDAS counts calendar days from now to the next due date.
// Zero means the DAS is due today.
func DaysUntilDAS(dueDay int, now time.Time, loc *time.Location) int {
	y, m, d := now.In(loc).Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, loc)
	return int(math.Round(NextDASDue(dueDay, now, loc).Sub(today).Hours() / 24))
}

func dueDate(y int, m time.Month, day int, loc *time.Location) time.Time {
	last := time.Date(y, m+1, 0, 0, 0, 0, 0, loc).Day()
	if day > last {
		day = last
	}
	if day < 1 {
		day = 1
	}
	return time.Date(y, m, day, 0, 0, 0, 0, loc)
}

// DaysUntilDAS is DaysUntilDAS at the service clock and timezone.
func (s *Service) DaysUntilDAS(dueDay int) int {
	return DaysUntilDAS(dueDay, s.now(), s.loc)
}
