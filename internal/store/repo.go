package store

import (
	"context"
	"errors"
	"time"

	"github.com/siddhucsk/telegram-reminder-bot/internal/domain"
)

var (
	// ErrNotFound marks a missing user or reminder row.
	ErrNotFound = errors.New("not found")
	// ErrQuotaExceeded marks a create rejected because the user already has
	// max_reminders pending rows.
	ErrQuotaExceeded = errors.New("reminder quota exceeded")
	// ErrStorageUnavailable wraps a storage failure that survived the
	// bounded retries. Callers must not swallow it.
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// ReminderUpdate is a partial update of a pending reminder. Nil fields are
// left untouched. Setting RecurUnit to UnitNone clears the recurrence.
type ReminderUpdate struct {
	Message       *string
	FireAt        *time.Time
	Priority      *domain.Priority
	RecurUnit     *domain.Unit
	RecurInterval *int
}

// PendingReminder is a pending row joined with its owner's timezone, as the
// recovery sweep consumes it.
type PendingReminder struct {
	domain.Reminder
	Timezone string
}

// Repo defines storage operations for users and reminders.
type Repo interface {
	// SetTimezone creates the user row on first contact; maxReminders only
	// applies at creation.
	SetTimezone(ctx context.Context, userID int64, tz string, maxReminders int) error
	GetUser(ctx context.Context, userID int64) (*domain.User, error)

	// CreateReminder inserts a pending row, enforcing the owner's quota in
	// the same transaction.
	CreateReminder(ctx context.Context, r *domain.Reminder) error
	// GetReminder returns the reminder iff it is still pending. ownerID 0
	// skips the owner filter.
	GetReminder(ctx context.Context, id string, ownerID int64) (*domain.Reminder, error)
	// ListPending returns a user's pending reminders ordered by fire time.
	ListPending(ctx context.Context, userID int64) ([]domain.Reminder, error)
	// ListAllPending returns every pending reminder joined with the owner's
	// timezone, ordered by fire time. Used only by the recovery sweep.
	ListAllPending(ctx context.Context) ([]PendingReminder, error)
	// UpdateReminder applies a partial update to a pending row and reports
	// whether a row changed. ownerID 0 skips the owner filter.
	UpdateReminder(ctx context.Context, id string, ownerID int64, upd ReminderUpdate) (bool, error)
	// SetStatus moves a pending row to a terminal status with a single
	// conditional update and reports whether this call won the transition.
	// ownerID 0 skips the owner filter.
	SetStatus(ctx context.Context, id string, ownerID int64, status domain.Status) (bool, error)
	// DeleteOldTerminal removes completed/cancelled rows whose fire time is
	// before the cutoff and returns how many were removed.
	DeleteOldTerminal(ctx context.Context, before time.Time) (int64, error)

	Close() error
}
