package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a reminder row. Only pending reminders
// are live; completed and cancelled are terminal.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Priority of a reminder.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Emoji returns the marker shown in front of reminder texts.
func (p Priority) Emoji() string {
	switch p {
	case PriorityHigh:
		return "🔴"
	case PriorityLow:
		return "🟢"
	default:
		return "🟡"
	}
}

// ParsePriority maps user-facing keywords to a Priority.
func ParsePriority(s string) (Priority, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high", "urgent", "important":
		return PriorityHigh, true
	case "medium", "normal", "":
		return PriorityMedium, true
	case "low":
		return PriorityLow, true
	}
	return "", false
}

// Unit is the recurrence unit of a reminder series. UnitNone marks a
// one-shot reminder.
type Unit string

const (
	UnitNone  Unit = ""
	UnitDay   Unit = "day"
	UnitWeek  Unit = "week"
	UnitMonth Unit = "month"
)

var ErrInvalidRecurrence = errors.New("invalid recurrence")

// Reminder is a single scheduled delivery. A recurring series is a chain of
// rows linked through ParentID; only the next occurrence exists at any time.
type Reminder struct {
	ID            string
	UserID        int64
	Message       string
	FireAt        time.Time // absolute instant, second precision
	Status        Status
	Priority      Priority
	RecurUnit     Unit
	RecurInterval int        // > 0 iff RecurUnit != UnitNone
	RecurEnd      *time.Time // optional series bound
	ParentID      string     // id of the occurrence this one was spawned from
	CreatedAt     time.Time
}

// Recurring reports whether the reminder spawns successors on fire.
func (r *Reminder) Recurring() bool { return r.RecurUnit != UnitNone }

// User holds per-user settings. A row exists only once the user has set a
// timezone, so every reminder owner has one.
type User struct {
	UserID        int64
	Timezone      string // IANA name
	MaxReminders  int
	ReminderCount int // cached count of pending rows, trigger-maintained
	CreatedAt     time.Time
	LastActiveAt  time.Time
}

// ParsedReminder is the contract the chat layer's parser produces: a message
// plus a local wall-clock date and time to be resolved in the owner's
// timezone.
type ParsedReminder struct {
	Message       string
	Year          int
	Month         time.Month
	Day           int
	Hour          int
	Minute        int
	Priority      Priority
	RecurUnit     Unit
	RecurInterval int
	RecurEnd      *time.Time
}

// Validate checks the recurrence invariant: interval > 0 exactly when a
// unit is set.
func (p *ParsedReminder) Validate() error {
	switch p.RecurUnit {
	case UnitNone:
		if p.RecurInterval != 0 {
			return ErrInvalidRecurrence
		}
	case UnitDay, UnitWeek, UnitMonth:
		if p.RecurInterval <= 0 {
			return ErrInvalidRecurrence
		}
	default:
		return ErrInvalidRecurrence
	}
	return nil
}

// NewReminderID allocates a short opaque reminder token.
func NewReminderID() string {
	return uuid.New().String()[:8]
}
