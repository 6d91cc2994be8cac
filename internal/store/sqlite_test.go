package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/siddhucsk/telegram-reminder-bot/internal/domain"
)

func openTestRepo(t *testing.T) *SQLiteRepo {
	t.Helper()
	repo, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "test.db"), zap.NewNop())
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func seedUser(t *testing.T, repo *SQLiteRepo, userID int64, maxReminders int) {
	t.Helper()
	if err := repo.SetTimezone(context.Background(), userID, "Europe/Moscow", maxReminders); err != nil {
		t.Fatalf("seed user: %v", err)
	}
}

func pendingReminder(userID int64, fireAt time.Time) *domain.Reminder {
	return &domain.Reminder{
		ID:       domain.NewReminderID(),
		UserID:   userID,
		Message:  "take medicine",
		FireAt:   fireAt,
		Status:   domain.StatusPending,
		Priority: domain.PriorityMedium,
	}
}

func TestMigrationsAreIdempotent(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "test.db")

	repo, err := OpenSQLite(ctx, path, zap.NewNop())
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	_ = repo.Close()

	// Second open replays the ledger; ALTER TABLE migrations must be skipped.
	repo, err = OpenSQLite(ctx, path, zap.NewNop())
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	_ = repo.Close()
}

func TestSetTimezoneUpsert(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)

	if err := repo.SetTimezone(ctx, 1, "Europe/Moscow", 50); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := repo.SetTimezone(ctx, 1, "Asia/Kolkata", 50); err != nil {
		t.Fatalf("update: %v", err)
	}
	u, err := repo.GetUser(ctx, 1)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if u.Timezone != "Asia/Kolkata" {
		t.Fatalf("want Asia/Kolkata, got %s", u.Timezone)
	}
	if u.MaxReminders != 50 || u.ReminderCount != 0 {
		t.Fatalf("unexpected quota fields: %+v", u)
	}
}

func TestGetUserNotFound(t *testing.T) {
	repo := openTestRepo(t)
	if _, err := repo.GetUser(context.Background(), 404); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestCreateReminderMaintainsCount(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)
	seedUser(t, repo, 1, 50)

	fireAt := time.Now().Add(time.Hour).Truncate(time.Second)
	rem := pendingReminder(1, fireAt)
	if err := repo.CreateReminder(ctx, rem); err != nil {
		t.Fatalf("create: %v", err)
	}

	u, err := repo.GetUser(ctx, 1)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if u.ReminderCount != 1 {
		t.Fatalf("count after insert: want 1, got %d", u.ReminderCount)
	}

	// Round-trips to the second.
	got, err := repo.GetReminder(ctx, rem.ID, 1)
	if err != nil {
		t.Fatalf("get reminder: %v", err)
	}
	if !got.FireAt.Equal(fireAt.UTC()) {
		t.Fatalf("fire time: want %v, got %v", fireAt.UTC(), got.FireAt)
	}

	// Terminal transition decrements through the trigger.
	changed, err := repo.SetStatus(ctx, rem.ID, 0, domain.StatusCompleted)
	if err != nil || !changed {
		t.Fatalf("set status: changed=%v err=%v", changed, err)
	}
	u, _ = repo.GetUser(ctx, 1)
	if u.ReminderCount != 0 {
		t.Fatalf("count after terminal: want 0, got %d", u.ReminderCount)
	}
}

func TestCreateReminderQuota(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)
	seedUser(t, repo, 1, 2)

	fireAt := time.Now().Add(time.Hour)
	for i := 0; i < 2; i++ {
		if err := repo.CreateReminder(ctx, pendingReminder(1, fireAt)); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
	}

	err := repo.CreateReminder(ctx, pendingReminder(1, fireAt))
	if !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("want ErrQuotaExceeded, got %v", err)
	}

	// The rejected create must leave no partial state.
	u, _ := repo.GetUser(ctx, 1)
	if u.ReminderCount != 2 {
		t.Fatalf("count after rejection: want 2, got %d", u.ReminderCount)
	}
}

func TestGetReminderHidesTerminalRows(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)
	seedUser(t, repo, 1, 50)

	rem := pendingReminder(1, time.Now().Add(time.Hour))
	if err := repo.CreateReminder(ctx, rem); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := repo.SetStatus(ctx, rem.ID, 0, domain.StatusCancelled); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if _, err := repo.GetReminder(ctx, rem.ID, 0); !errors.Is(err, ErrNotFound) {
		t.Fatalf("terminal row visible: %v", err)
	}
}

func TestGetReminderOwnerFilter(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)
	seedUser(t, repo, 1, 50)

	rem := pendingReminder(1, time.Now().Add(time.Hour))
	if err := repo.CreateReminder(ctx, rem); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := repo.GetReminder(ctx, rem.ID, 2); !errors.Is(err, ErrNotFound) {
		t.Fatalf("foreign owner saw the reminder: %v", err)
	}
}

func TestSetStatusSingleWinner(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)
	seedUser(t, repo, 1, 50)

	rem := pendingReminder(1, time.Now().Add(time.Hour))
	if err := repo.CreateReminder(ctx, rem); err != nil {
		t.Fatalf("create: %v", err)
	}

	won, err := repo.SetStatus(ctx, rem.ID, 0, domain.StatusCompleted)
	if err != nil || !won {
		t.Fatalf("first transition: changed=%v err=%v", won, err)
	}
	won, err = repo.SetStatus(ctx, rem.ID, 0, domain.StatusCancelled)
	if err != nil {
		t.Fatalf("second transition: %v", err)
	}
	if won {
		t.Fatal("second transition out of a terminal status succeeded")
	}
}

func TestSetStatusRejectsPending(t *testing.T) {
	repo := openTestRepo(t)
	if _, err := repo.SetStatus(context.Background(), "x", 0, domain.StatusPending); err == nil {
		t.Fatal("pending accepted as target status")
	}
}

func TestListPendingOrderedByFireTime(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)
	seedUser(t, repo, 1, 50)

	now := time.Now().Truncate(time.Second)
	late := pendingReminder(1, now.Add(3*time.Hour))
	early := pendingReminder(1, now.Add(time.Hour))
	for _, r := range []*domain.Reminder{late, early} {
		if err := repo.CreateReminder(ctx, r); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	list, err := repo.ListPending(ctx, 1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].ID != early.ID || list[1].ID != late.ID {
		t.Fatalf("wrong order: %+v", list)
	}
}

func TestListAllPendingJoinsTimezone(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)
	seedUser(t, repo, 1, 50)

	rem := pendingReminder(1, time.Now().Add(time.Hour))
	rem.RecurUnit = domain.UnitDay
	rem.RecurInterval = 1
	if err := repo.CreateReminder(ctx, rem); err != nil {
		t.Fatalf("create: %v", err)
	}

	all, err := repo.ListAllPending(ctx)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("want 1 row, got %d", len(all))
	}
	if all[0].Timezone != "Europe/Moscow" {
		t.Fatalf("timezone not joined: %q", all[0].Timezone)
	}
	if all[0].RecurUnit != domain.UnitDay || all[0].RecurInterval != 1 {
		t.Fatalf("recurrence lost: %+v", all[0])
	}
}

func TestUpdateReminderPendingOnly(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)
	seedUser(t, repo, 1, 50)

	rem := pendingReminder(1, time.Now().Add(time.Hour))
	if err := repo.CreateReminder(ctx, rem); err != nil {
		t.Fatalf("create: %v", err)
	}

	msg := "new text"
	changed, err := repo.UpdateReminder(ctx, rem.ID, 1, ReminderUpdate{Message: &msg})
	if err != nil || !changed {
		t.Fatalf("update pending: changed=%v err=%v", changed, err)
	}

	if _, err := repo.SetStatus(ctx, rem.ID, 0, domain.StatusCompleted); err != nil {
		t.Fatalf("complete: %v", err)
	}
	changed, err = repo.UpdateReminder(ctx, rem.ID, 1, ReminderUpdate{Message: &msg})
	if err != nil {
		t.Fatalf("update terminal: %v", err)
	}
	if changed {
		t.Fatal("terminal row was updated")
	}
}

func TestUpdateReminderClearsRecurrence(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)
	seedUser(t, repo, 1, 50)

	rem := pendingReminder(1, time.Now().Add(time.Hour))
	rem.RecurUnit = domain.UnitWeek
	rem.RecurInterval = 2
	if err := repo.CreateReminder(ctx, rem); err != nil {
		t.Fatalf("create: %v", err)
	}

	none := domain.UnitNone
	changed, err := repo.UpdateReminder(ctx, rem.ID, 0, ReminderUpdate{RecurUnit: &none})
	if err != nil || !changed {
		t.Fatalf("clear recurrence: changed=%v err=%v", changed, err)
	}
	got, err := repo.GetReminder(ctx, rem.ID, 0)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Recurring() || got.RecurInterval != 0 {
		t.Fatalf("recurrence not cleared: %+v", got)
	}
}

func TestDeleteOldTerminal(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)
	seedUser(t, repo, 1, 50)

	old := pendingReminder(1, time.Now().Add(-48*time.Hour))
	fresh := pendingReminder(1, time.Now().Add(time.Hour))
	for _, r := range []*domain.Reminder{old, fresh} {
		if err := repo.CreateReminder(ctx, r); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	if _, err := repo.SetStatus(ctx, old.ID, 0, domain.StatusCompleted); err != nil {
		t.Fatalf("complete: %v", err)
	}

	n, err := repo.DeleteOldTerminal(ctx, time.Now().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if n != 1 {
		t.Fatalf("want 1 deleted, got %d", n)
	}
	// Pending rows are never touched by retention.
	if _, err := repo.GetReminder(ctx, fresh.ID, 0); err != nil {
		t.Fatalf("pending row lost: %v", err)
	}
}
