package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/siddhucsk/telegram-reminder-bot/internal/domain"
)

// Recover reconciles persisted pending reminders with the timer table. It
// runs exactly once, synchronously, before the bot starts accepting updates:
// reminders whose time passed while the process was down are delivered with
// a missed framing and completed (advancing their series), the rest are
// armed normally. After the sweep no pending row is left orphaned.
//
// Running it again is harmless: missed rows are terminal by then and
// re-arming a future reminder replaces its timer instead of duplicating it.
func (s *Scheduler) Recover(ctx context.Context) error {
	rows, err := s.repo.ListAllPending(ctx)
	if err != nil {
		return err
	}

	now := time.Now()
	var armed, missed int
	for _, row := range rows {
		// Rows carry no chat of their own; reminders are delivered to the
		// owner's private chat, whose id equals the user id.
		sp := EntrySpec{
			ReminderID:    row.ID,
			UserID:        row.UserID,
			ChatID:        row.UserID,
			Message:       row.Message,
			Priority:      row.Priority,
			FireAt:        row.FireAt,
			Timezone:      row.Timezone,
			RecurUnit:     row.RecurUnit,
			RecurInterval: row.RecurInterval,
			RecurEnd:      row.RecurEnd,
		}

		if row.FireAt.After(now) {
			s.Schedule(sp)
			armed++
			continue
		}

		missed++
		if err := s.sender.SendMessage(sp.ChatID, renderMissed(sp)); err != nil {
			s.log.Error("missed delivery failed",
				zap.String("id", row.ID),
				zap.Int64("chat", sp.ChatID),
				zap.Error(err),
			)
		}
		completed, err := s.repo.SetStatus(ctx, row.ID, 0, domain.StatusCompleted)
		if err != nil {
			s.log.Error("complete missed reminder failed", zap.String("id", row.ID), zap.Error(err))
			continue
		}
		if completed && sp.RecurUnit != domain.UnitNone {
			s.advance(ctx, sp, true)
		}
	}

	s.log.Info("recovery sweep finished",
		zap.Int("armed", armed),
		zap.Int("missed", missed),
	)
	return nil
}
