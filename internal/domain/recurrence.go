package domain

import (
	"fmt"
	"time"
)

// NextOccurrence computes the instant the next occurrence of a series fires,
// given the instant the previous one fired. last must carry the location the
// series is anchored to: arithmetic happens on the local calendar and the
// result is rebuilt in that location, so the local wall-clock time is
// preserved across DST transitions (a 9am daily reminder stays at 9am).
//
// Month steps preserve the day-of-month and clamp to the last valid day when
// the target month is shorter (31 Jan + 1 month is 28 or 29 Feb, never
// 2/3 Mar).
func NextOccurrence(last time.Time, unit Unit, interval int) (time.Time, error) {
	if interval <= 0 {
		return time.Time{}, fmt.Errorf("%w: interval %d", ErrInvalidRecurrence, interval)
	}

	year, month, day := last.Date()
	hour, minute, sec := last.Clock()
	loc := last.Location()

	switch unit {
	case UnitDay:
		return time.Date(year, month, day+interval, hour, minute, sec, 0, loc), nil
	case UnitWeek:
		return time.Date(year, month, day+7*interval, hour, minute, sec, 0, loc), nil
	case UnitMonth:
		// Normalize the target month manually instead of letting time.Date
		// roll overflowing days into the following month.
		m := int(month) + interval
		y := year + (m-1)/12
		m = (m-1)%12 + 1
		if dim := daysIn(y, time.Month(m)); day > dim {
			day = dim
		}
		return time.Date(y, time.Month(m), day, hour, minute, sec, 0, loc), nil
	default:
		return time.Time{}, fmt.Errorf("%w: unit %q", ErrInvalidRecurrence, unit)
	}
}

// daysIn returns the number of days in the given month.
func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
