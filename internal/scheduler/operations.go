package scheduler

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/siddhucsk/telegram-reminder-bot/internal/domain"
	"github.com/siddhucsk/telegram-reminder-bot/internal/store"
)

// ErrPastTime rejects a reminder whose resolved fire time is not in the
// future.
var ErrPastTime = errors.New("reminder time is in the past")

// ScheduleNew persists and arms a freshly parsed reminder for the user,
// resolving its local date and time in the user's timezone. The row is
// persisted before the timer is armed, never the other way around.
func (s *Scheduler) ScheduleNew(ctx context.Context, userID, chatID int64, p domain.ParsedReminder) (string, error) {
	if err := p.Validate(); err != nil {
		return "", err
	}
	u, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return "", err
	}
	fireAt, err := domain.ResolveLocal(p.Year, p.Month, p.Day, p.Hour, p.Minute, u.Timezone)
	if err != nil {
		return "", err
	}
	if !fireAt.After(time.Now()) {
		return "", ErrPastTime
	}

	priority := p.Priority
	if priority == "" {
		priority = domain.PriorityMedium
	}
	rem := &domain.Reminder{
		ID:            domain.NewReminderID(),
		UserID:        userID,
		Message:       p.Message,
		FireAt:        fireAt,
		Status:        domain.StatusPending,
		Priority:      priority,
		RecurUnit:     p.RecurUnit,
		RecurInterval: p.RecurInterval,
		RecurEnd:      p.RecurEnd,
	}
	if err := s.repo.CreateReminder(ctx, rem); err != nil {
		return "", err
	}

	s.Schedule(EntrySpec{
		ReminderID:    rem.ID,
		UserID:        userID,
		ChatID:        chatID,
		Message:       rem.Message,
		Priority:      rem.Priority,
		FireAt:        fireAt,
		Timezone:      u.Timezone,
		RecurUnit:     rem.RecurUnit,
		RecurInterval: rem.RecurInterval,
		RecurEnd:      rem.RecurEnd,
	})
	return rem.ID, nil
}

// ListActive returns the user's pending reminders ordered by fire time.
func (s *Scheduler) ListActive(ctx context.Context, userID int64) ([]domain.Reminder, error) {
	return s.repo.ListPending(ctx, userID)
}

// CancelReminder moves the row to cancelled and disarms its timer. The store
// transition goes first: if a fire already claimed the row, this reports
// false and the timer side is a no-op.
func (s *Scheduler) CancelReminder(ctx context.Context, id string, userID int64) (bool, error) {
	changed, err := s.repo.SetStatus(ctx, id, userID, domain.StatusCancelled)
	if err != nil {
		return false, err
	}
	if changed {
		s.Cancel(id)
	}
	return changed, nil
}

// EditReminder applies a partial update to a pending reminder and re-arms
// its timer from the persisted row, so the in-memory entry always matches
// the store. Reports whether a row was changed.
func (s *Scheduler) EditReminder(ctx context.Context, id string, userID, chatID int64, upd store.ReminderUpdate) (bool, error) {
	changed, err := s.repo.UpdateReminder(ctx, id, userID, upd)
	if err != nil || !changed {
		return changed, err
	}

	rem, err := s.repo.GetReminder(ctx, id, userID)
	if err != nil {
		// The update landed but the row vanished underneath us (fired or
		// cancelled in between); nothing left to arm.
		s.log.Warn("edited reminder no longer pending", zap.String("id", id), zap.Error(err))
		return true, nil
	}
	u, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return true, err
	}

	s.Schedule(EntrySpec{
		ReminderID:    rem.ID,
		UserID:        userID,
		ChatID:        chatID,
		Message:       rem.Message,
		Priority:      rem.Priority,
		FireAt:        rem.FireAt,
		Timezone:      u.Timezone,
		RecurUnit:     rem.RecurUnit,
		RecurInterval: rem.RecurInterval,
		RecurEnd:      rem.RecurEnd,
	})
	return true, nil
}
