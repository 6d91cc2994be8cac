package domain

import (
	"errors"
	"fmt"
	"time"
)

var ErrInvalidTimezone = errors.New("invalid timezone")

// ResolveLocal converts a wall-clock date and time in the named IANA zone
// into an absolute instant. The zone offset applied is the one valid at that
// local date and time, not the offset in effect now, so instants scheduled
// across a DST boundary resolve correctly.
func ResolveLocal(year int, month time.Month, day, hour, minute int, tz string) (time.Time, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTimezone, tz)
	}
	return time.Date(year, month, day, hour, minute, 0, 0, loc), nil
}

// ValidateTZ checks that tz is a valid IANA location and returns its
// canonical name.
func ValidateTZ(tz string) (string, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidTimezone, tz)
	}
	return loc.String(), nil
}

// FormatLocal renders t in the given timezone as "02 Jan 2006 at 03:04 PM".
func FormatLocal(t time.Time, tz string) string {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		loc = time.UTC
	}
	return t.In(loc).Format("02 Jan 2006 at 03:04 PM")
}
