package domain

import (
	"errors"
	"testing"
	"time"
)

// helper: build a local time in the given tz
func mustLocal(t *testing.T, tz string, y int, m time.Month, d, hh, mm int) time.Time {
	t.Helper()
	loc, err := time.LoadLocation(tz)
	if err != nil {
		t.Fatalf("load tz: %v", err)
	}
	return time.Date(y, m, d, hh, mm, 0, 0, loc)
}

func TestNextOccurrence_DayAndWeek(t *testing.T) {
	last := mustLocal(t, "UTC", 2025, time.March, 10, 9, 0)

	next, err := NextOccurrence(last, UnitDay, 1)
	if err != nil {
		t.Fatalf("day: %v", err)
	}
	if want := mustLocal(t, "UTC", 2025, time.March, 11, 9, 0); !next.Equal(want) {
		t.Fatalf("day: want %v, got %v", want, next)
	}

	next, err = NextOccurrence(last, UnitWeek, 2)
	if err != nil {
		t.Fatalf("week: %v", err)
	}
	if want := mustLocal(t, "UTC", 2025, time.March, 24, 9, 0); !next.Equal(want) {
		t.Fatalf("week: want %v, got %v", want, next)
	}
}

func TestNextOccurrence_MonthClampsToLastDay(t *testing.T) {
	// 31 Jan + 1 month must land on the last day of February, never March.
	last := mustLocal(t, "UTC", 2025, time.January, 31, 9, 0)
	next, err := NextOccurrence(last, UnitMonth, 1)
	if err != nil {
		t.Fatalf("month: %v", err)
	}
	if want := mustLocal(t, "UTC", 2025, time.February, 28, 9, 0); !next.Equal(want) {
		t.Fatalf("want %v, got %v", want, next)
	}

	// Leap year keeps the 29th.
	last = mustLocal(t, "UTC", 2024, time.January, 31, 9, 0)
	next, err = NextOccurrence(last, UnitMonth, 1)
	if err != nil {
		t.Fatalf("month: %v", err)
	}
	if want := mustLocal(t, "UTC", 2024, time.February, 29, 9, 0); !next.Equal(want) {
		t.Fatalf("leap: want %v, got %v", want, next)
	}
}

func TestNextOccurrence_MonthCrossesYear(t *testing.T) {
	last := mustLocal(t, "UTC", 2025, time.November, 30, 18, 30)
	next, err := NextOccurrence(last, UnitMonth, 3)
	if err != nil {
		t.Fatalf("month: %v", err)
	}
	// Nov 30 + 3 months -> Feb 28 (2026 is not a leap year).
	if want := mustLocal(t, "UTC", 2026, time.February, 28, 18, 30); !next.Equal(want) {
		t.Fatalf("want %v, got %v", want, next)
	}
}

func TestNextOccurrence_PreservesLocalClockAcrossDST(t *testing.T) {
	// US DST starts 2025-03-09. A daily 9am reminder on the 8th must fire at
	// local 9am on the 9th even though the UTC offset changed.
	last := mustLocal(t, "America/New_York", 2025, time.March, 8, 9, 0)
	next, err := NextOccurrence(last, UnitDay, 1)
	if err != nil {
		t.Fatalf("day: %v", err)
	}
	loc, _ := time.LoadLocation("America/New_York")
	if got := next.In(loc).Format("15:04"); got != "09:00" {
		t.Fatalf("local clock drifted: want 09:00, got %s", got)
	}
	// The absolute gap is only 23h because one local hour was skipped.
	if gap := next.Sub(last); gap != 23*time.Hour {
		t.Fatalf("want 23h absolute gap across spring forward, got %s", gap)
	}
}

func TestNextOccurrence_InvalidInput(t *testing.T) {
	last := mustLocal(t, "UTC", 2025, time.March, 10, 9, 0)
	if _, err := NextOccurrence(last, UnitNone, 1); !errors.Is(err, ErrInvalidRecurrence) {
		t.Fatalf("unit none: want ErrInvalidRecurrence, got %v", err)
	}
	if _, err := NextOccurrence(last, UnitDay, 0); !errors.Is(err, ErrInvalidRecurrence) {
		t.Fatalf("zero interval: want ErrInvalidRecurrence, got %v", err)
	}
}

func TestParsedReminderValidate(t *testing.T) {
	p := &ParsedReminder{RecurUnit: UnitDay, RecurInterval: 1}
	if err := p.Validate(); err != nil {
		t.Fatalf("valid recurrence rejected: %v", err)
	}
	p = &ParsedReminder{RecurUnit: UnitDay}
	if err := p.Validate(); !errors.Is(err, ErrInvalidRecurrence) {
		t.Fatalf("missing interval: want ErrInvalidRecurrence, got %v", err)
	}
	p = &ParsedReminder{RecurInterval: 2}
	if err := p.Validate(); !errors.Is(err, ErrInvalidRecurrence) {
		t.Fatalf("interval without unit: want ErrInvalidRecurrence, got %v", err)
	}
}
