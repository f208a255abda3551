package utils

import "time"

// Now is the clock used for every "today" computation. Tests override it to
// pin the current day.
var Now = time.Now

// DayWindow returns the server-local [midnight, next midnight) window
// containing t.
func DayWindow(t time.Time) (start, end time.Time) {
	start = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	end = start.AddDate(0, 0, 1)
	return start, end
}

// Today returns the day window of the current time.
func Today() (start, end time.Time) {
	return DayWindow(Now())
}

// Midnight normalizes t to server-local midnight.
func Midnight(t time.Time) time.Time {
	start, _ := DayWindow(t)
	return start
}

// ParseDateRange interprets optional "2006-01-02" start/end strings as an
// inclusive day range, defaulting to today. The returned end is the exclusive
// upper bound (midnight after the end day).
func ParseDateRange(startStr, endStr string) (start, end time.Time, err error) {
	now := Now()

	start = Midnight(now)
	if startStr != "" {
		d, perr := time.ParseInLocation("2006-01-02", startStr, now.Location())
		if perr != nil {
			return time.Time{}, time.Time{}, perr
		}
		start = d
	}

	endDay := Midnight(now)
	if endStr != "" {
		d, perr := time.ParseInLocation("2006-01-02", endStr, now.Location())
		if perr != nil {
			return time.Time{}, time.Time{}, perr
		}
		endDay = d
	}

	return start, endDay.AddDate(0, 0, 1), nil
}
