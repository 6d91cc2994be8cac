package telegram

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/siddhucsk/telegram-reminder-bot/internal/domain"
)

// ErrNoReminders means the text contained no block with both a time and a
// message.
var ErrNoReminders = errors.New("no valid reminders in text")

var everyNRe = regexp.MustCompile(`^every\s+(\d+)\s+(day|week|month)s?$`)

var clockLayouts = []string{"3:04PM", "3:04 PM", "15:04"}

// parseClock accepts 12-hour ("9:00am", "2:30 pm") and 24-hour ("14:30")
// clock values.
func parseClock(s string) (hour, minute int, err error) {
	up := strings.ToUpper(strings.TrimSpace(s))
	for _, layout := range clockLayouts {
		if t, perr := time.Parse(layout, up); perr == nil {
			return t.Hour(), t.Minute(), nil
		}
	}
	return 0, 0, errors.New("unrecognized time " + strconv.Quote(s))
}

// parseDate accepts DD/MM/YYYY.
func parseDate(s string) (time.Time, error) {
	return time.Parse("02/01/2006", strings.TrimSpace(s))
}

// parseRepeat accepts "daily", "weekly", "monthly", "every day|week|month"
// and "every N days|weeks|months".
func parseRepeat(s string) (domain.Unit, int, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "daily", "every day":
		return domain.UnitDay, 1, nil
	case "weekly", "every week":
		return domain.UnitWeek, 1, nil
	case "monthly", "every month":
		return domain.UnitMonth, 1, nil
	}
	m := everyNRe.FindStringSubmatch(strings.ToLower(strings.TrimSpace(s)))
	if m == nil {
		return domain.UnitNone, 0, errors.New("unrecognized repeat " + strconv.Quote(s))
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return domain.UnitNone, 0, errors.New("repeat interval must be positive")
	}
	return domain.Unit(m[2]), n, nil
}

// block accumulates one reminder while scanning lines.
type block struct {
	hour, minute  int
	hasTime       bool
	date          time.Time
	hasDate       bool
	priority      domain.Priority
	recurUnit     domain.Unit
	recurInterval int
	message       []string
}

func (b *block) complete() bool { return b.hasTime && len(b.message) > 0 }

func (b *block) build(now time.Time) domain.ParsedReminder {
	y, m, d := now.Date()
	if b.hasDate {
		y, m, d = b.date.Date()
	}
	// A bare clock that already passed today means tomorrow; an explicit
	// date is taken literally and rejected later if past.
	if !b.hasDate {
		at := time.Date(y, m, d, b.hour, b.minute, 0, 0, now.Location())
		if !at.After(now) {
			y, m, d = at.AddDate(0, 0, 1).Date()
		}
	}
	return domain.ParsedReminder{
		Message:       strings.Join(b.message, " "),
		Year:          y,
		Month:         m,
		Day:           d,
		Hour:          b.hour,
		Minute:        b.minute,
		Priority:      b.priority,
		RecurUnit:     b.recurUnit,
		RecurInterval: b.recurInterval,
	}
}

// ParseReminders parses the structured reminder format: a "time:" line, an
// optional "date:"/"priority:"/"repeat:" line, then message text. A second
// "time:" or "date:" line after a complete block starts the next reminder,
// so one message can carry several. now must be in the user's location; it
// anchors blocks that omit the date.
func ParseReminders(text string, now time.Time) ([]domain.ParsedReminder, error) {
	var (
		out []domain.ParsedReminder
		cur block
	)
	flush := func() {
		if cur.complete() {
			out = append(out, cur.build(now))
		}
		cur = block{}
	}

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		key, val, found := strings.Cut(line, ":")
		lowKey := strings.ToLower(strings.TrimSpace(key))

		switch {
		case found && lowKey == "time":
			if cur.complete() {
				flush()
			}
			h, m, err := parseClock(val)
			if err != nil {
				return nil, err
			}
			cur.hour, cur.minute, cur.hasTime = h, m, true

		case found && lowKey == "date":
			if cur.complete() {
				flush()
			}
			d, err := parseDate(val)
			if err != nil {
				return nil, errors.New("invalid date " + strconv.Quote(strings.TrimSpace(val)) + ", use DD/MM/YYYY")
			}
			cur.date, cur.hasDate = d, true

		case found && lowKey == "priority":
			p, ok := domain.ParsePriority(strings.TrimSpace(val))
			if !ok {
				return nil, errors.New("unknown priority " + strconv.Quote(strings.TrimSpace(val)))
			}
			cur.priority = p

		case found && lowKey == "repeat":
			unit, interval, err := parseRepeat(val)
			if err != nil {
				return nil, err
			}
			cur.recurUnit, cur.recurInterval = unit, interval

		case strings.EqualFold(line, "reminder") || strings.EqualFold(line, "remind"):
			// Leading keyword line, not part of any message.

		case cur.hasTime:
			cur.message = append(cur.message, line)
		}
	}
	flush()

	if len(out) == 0 {
		return nil, ErrNoReminders
	}
	return out, nil
}

// looksStructured reports whether text should go through ParseReminders
// rather than being treated as a timezone name or stray chatter.
func looksStructured(text string) bool {
	low := strings.ToLower(text)
	return strings.Contains(low, "time:") || strings.Contains(low, "date:")
}

// parseTimeSpec parses a single edit-flow time value: "3:00pm", "15:00" or
// "25/02/2024 3:00pm". A bare clock that already passed today rolls to
// tomorrow.
func parseTimeSpec(text string, now time.Time) (time.Time, error) {
	text = strings.TrimSpace(text)

	if first, rest, found := strings.Cut(text, " "); found && strings.Contains(first, "/") {
		d, err := parseDate(first)
		if err != nil {
			return time.Time{}, errors.New("invalid date, use DD/MM/YYYY")
		}
		h, m, err := parseClock(rest)
		if err != nil {
			return time.Time{}, err
		}
		return time.Date(d.Year(), d.Month(), d.Day(), h, m, 0, 0, now.Location()), nil
	}

	h, m, err := parseClock(text)
	if err != nil {
		return time.Time{}, err
	}
	at := time.Date(now.Year(), now.Month(), now.Day(), h, m, 0, 0, now.Location())
	if !at.After(now) {
		at = at.AddDate(0, 0, 1)
	}
	return at, nil
}
