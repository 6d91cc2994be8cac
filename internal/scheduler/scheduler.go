package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/siddhucsk/telegram-reminder-bot/internal/domain"
	"github.com/siddhucsk/telegram-reminder-bot/internal/store"
)

// Store calls made from timer callbacks run detached from any request
// context; bound them so a wedged database cannot leak goroutines.
const storeTimeout = 15 * time.Second

// Sender is a minimal interface the scheduler needs to deliver a rendered
// reminder text. telegram.Sender implements it.
type Sender interface {
	SendMessage(chatID int64, text string) error
}

// EntrySpec describes one armed delivery. It mirrors the pending row it was
// built from plus the chat to deliver to and the owner's timezone, which the
// recurrence arithmetic needs to keep local wall-clock times stable.
type EntrySpec struct {
	ReminderID    string
	UserID        int64
	ChatID        int64
	Message       string
	Priority      domain.Priority
	FireAt        time.Time
	Timezone      string
	RecurUnit     domain.Unit
	RecurInterval int
	RecurEnd      *time.Time
}

type entry struct {
	timer *time.Timer
	spec  EntrySpec
}

// Scheduler owns the in-memory table of armed deliveries. Entries are
// ephemeral: the recovery sweep rebuilds them from the store on restart.
// All mutation of the table happens under mu; a firing callback claims its
// entry (removes it under the lock) before doing anything else, so a cancel
// racing a fire resolves to exactly one of the two.
type Scheduler struct {
	repo   store.Repo
	log    *zap.Logger
	sender Sender

	mu      sync.Mutex
	entries map[string]*entry
}

// New creates a Scheduler. Nothing is armed until Schedule or Recover runs.
func New(repo store.Repo, log *zap.Logger, sender Sender) *Scheduler {
	return &Scheduler{
		repo:    repo,
		log:     log,
		sender:  sender,
		entries: make(map[string]*entry),
	}
}

// Schedule arms a single-shot delayed callback for the entry. Re-scheduling
// an id that is already armed disarms the previous timer first, so re-arming
// can never produce a duplicate firing. A fire time at or before now is
// treated as immediately due, not dropped.
//
// Callers must persist the pending row before arming; an armed timer for a
// row that failed to persist would fire into nothing.
func (s *Scheduler) Schedule(sp EntrySpec) {
	delay := time.Until(sp.FireAt)
	if delay < 0 {
		delay = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.entries[sp.ReminderID]; ok {
		old.timer.Stop()
	}
	e := &entry{spec: sp}
	e.timer = time.AfterFunc(delay, func() { s.fire(sp.ReminderID) })
	s.entries[sp.ReminderID] = e

	s.log.Info("reminder armed",
		zap.String("id", sp.ReminderID),
		zap.Int64("user", sp.UserID),
		zap.Time("fire_at", sp.FireAt),
	)
}

// Cancel disarms an entry. It is a no-op (returning false) when the id is
// unknown or its callback already claimed the entry.
func (s *Scheduler) Cancel(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return false
	}
	e.timer.Stop()
	delete(s.entries, id)
	return true
}

// Reschedule re-arms an already-armed entry at a new time. The caller is
// responsible for persisting the new fire time first.
func (s *Scheduler) Reschedule(id string, newTime time.Time) bool {
	s.mu.Lock()
	e, ok := s.entries[id]
	if !ok {
		s.mu.Unlock()
		return false
	}
	e.timer.Stop()
	sp := e.spec
	s.mu.Unlock()

	sp.FireAt = newTime
	s.Schedule(sp)
	return true
}

// armedCount reports the number of armed entries. Test helper.
func (s *Scheduler) armedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// fire runs in the timer callback. It claims the entry, delivers, marks the
// row completed and, for recurring reminders, persists and arms the
// successor.
func (s *Scheduler) fire(id string) {
	s.mu.Lock()
	e, ok := s.entries[id]
	delete(s.entries, id)
	s.mu.Unlock()
	if !ok {
		// Cancelled between the timer going off and the claim.
		return
	}
	sp := e.spec

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	// Delivery is best-effort once due: a transient send failure is logged,
	// not retried, and the reminder still completes.
	if err := s.sender.SendMessage(sp.ChatID, renderDue(sp)); err != nil {
		s.log.Error("delivery failed",
			zap.String("id", id),
			zap.Int64("chat", sp.ChatID),
			zap.Error(err),
		)
	}

	completed, err := s.repo.SetStatus(ctx, id, 0, domain.StatusCompleted)
	if err != nil {
		s.log.Error("mark completed failed", zap.String("id", id), zap.Error(err))
		return
	}
	if !completed {
		// A concurrent cancel won the row; the series stops here.
		s.log.Info("fired reminder was cancelled concurrently", zap.String("id", id))
		return
	}
	s.log.Info("reminder fired", zap.String("id", id), zap.Int64("user", sp.UserID))

	if sp.RecurUnit != domain.UnitNone {
		s.advance(ctx, sp, false)
	}
}

// advance computes, persists and arms the successor of a recurring
// occurrence. With mustBeFuture set (recovery of missed reminders) a
// successor whose time already passed is skipped instead of created.
// Failures here never roll back the predecessor's completed status: the
// series fails open, with a warning pushed through the sender.
func (s *Scheduler) advance(ctx context.Context, sp EntrySpec, mustBeFuture bool) {
	loc, err := time.LoadLocation(sp.Timezone)
	if err != nil {
		loc = time.UTC
	}
	next, err := domain.NextOccurrence(sp.FireAt.In(loc), sp.RecurUnit, sp.RecurInterval)
	if err != nil {
		s.log.Error("next occurrence failed", zap.String("id", sp.ReminderID), zap.Error(err))
		return
	}
	if sp.RecurEnd != nil && next.After(*sp.RecurEnd) {
		// Series bound reached: the fired row stays completed, no successor.
		s.log.Info("recurrence series ended", zap.String("id", sp.ReminderID))
		return
	}
	if mustBeFuture && !next.After(time.Now()) {
		s.log.Info("skipping successor already in the past", zap.String("id", sp.ReminderID))
		return
	}

	succ := &domain.Reminder{
		ID:            domain.NewReminderID(),
		UserID:        sp.UserID,
		Message:       sp.Message,
		FireAt:        next,
		Status:        domain.StatusPending,
		Priority:      sp.Priority,
		RecurUnit:     sp.RecurUnit,
		RecurInterval: sp.RecurInterval,
		RecurEnd:      sp.RecurEnd,
		ParentID:      sp.ReminderID,
	}
	if err := s.repo.CreateReminder(ctx, succ); err != nil {
		s.log.Error("persist next occurrence failed",
			zap.String("parent", sp.ReminderID),
			zap.Error(err),
		)
		_ = s.sender.SendMessage(sp.ChatID, successorWarnText)
		return
	}

	nsp := sp
	nsp.ReminderID = succ.ID
	nsp.FireAt = next
	s.Schedule(nsp)
	s.log.Info("next occurrence scheduled",
		zap.String("id", succ.ID),
		zap.String("parent", sp.ReminderID),
		zap.Time("fire_at", next),
	)
}
