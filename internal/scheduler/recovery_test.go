package scheduler

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/siddhucsk/telegram-reminder-bot/internal/domain"
)

func TestRecoverReArmsFuture(t *testing.T) {
	s, repo, sender := newTestScheduler(t)
	_, _ = seedPending(t, repo, time.Now().Add(time.Hour), domain.UnitNone, 0)
	_, _ = seedPending(t, repo, time.Now().Add(2*time.Hour), domain.UnitDay, 1)

	if err := s.Recover(context.Background()); err != nil {
		t.Fatalf("recover: %v", err)
	}
	if s.armedCount() != 2 {
		t.Fatalf("armed %d entries, want 2", s.armedCount())
	}
	if n := len(sender.calls()); n != 0 {
		t.Fatalf("future reminders delivered during sweep: %d", n)
	}
	if pendingCount(t, repo) != 2 {
		t.Fatal("future rows mutated by sweep")
	}
}

func TestRecoverDeliversMissedOneShot(t *testing.T) {
	s, repo, sender := newTestScheduler(t)
	rem, _ := seedPending(t, repo, time.Now().Add(-time.Hour), domain.UnitNone, 0)

	if err := s.Recover(context.Background()); err != nil {
		t.Fatalf("recover: %v", err)
	}

	calls := sender.calls()
	if len(calls) != 1 {
		t.Fatalf("want 1 missed delivery, got %d", len(calls))
	}
	if !strings.Contains(calls[0].text, "Missed") || !strings.Contains(calls[0].text, rem.Message) {
		t.Fatalf("unexpected missed notice: %q", calls[0].text)
	}
	if pendingCount(t, repo) != 0 {
		t.Fatal("missed one-shot still pending")
	}
	if s.armedCount() != 0 {
		t.Fatalf("armed %d entries, want 0", s.armedCount())
	}
}

func TestRecoverAdvancesMissedRecurring(t *testing.T) {
	s, repo, sender := newTestScheduler(t)
	// Missed two hours ago, repeats daily: the sweep should deliver the missed
	// notice, complete the row, and arm a successor ~22h from now.
	missedAt := time.Now().Add(-2 * time.Hour).Truncate(time.Second)
	rem, _ := seedPending(t, repo, missedAt, domain.UnitDay, 1)

	if err := s.Recover(context.Background()); err != nil {
		t.Fatalf("recover: %v", err)
	}

	if n := len(sender.calls()); n != 1 {
		t.Fatalf("want 1 missed delivery, got %d", n)
	}
	rows, err := repo.ListAllPending(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("want 1 successor, got %d pending rows", len(rows))
	}
	succ := rows[0]
	if succ.ParentID != rem.ID {
		t.Fatalf("successor parent: want %s, got %s", rem.ID, succ.ParentID)
	}
	if want := missedAt.UTC().Add(24 * time.Hour); !succ.FireAt.Equal(want) {
		t.Fatalf("successor fire time: want %v, got %v", want, succ.FireAt)
	}
	if s.armedCount() != 1 {
		t.Fatalf("successor not armed: %d entries", s.armedCount())
	}
}

func TestRecoverSkipsStaleRecurringSuccessor(t *testing.T) {
	s, repo, sender := newTestScheduler(t)
	// Missed three days ago with a daily repeat: the immediate next occurrence
	// is also in the past, so the sweep must not arm it.
	_, _ = seedPending(t, repo, time.Now().Add(-72*time.Hour), domain.UnitDay, 1)

	if err := s.Recover(context.Background()); err != nil {
		t.Fatalf("recover: %v", err)
	}

	if n := len(sender.calls()); n != 1 {
		t.Fatalf("want 1 missed delivery, got %d", n)
	}
	if pendingCount(t, repo) != 0 {
		t.Fatal("stale successor persisted")
	}
	if s.armedCount() != 0 {
		t.Fatalf("stale successor armed: %d entries", s.armedCount())
	}
}

func TestRecoverIdempotent(t *testing.T) {
	s, repo, sender := newTestScheduler(t)
	_, _ = seedPending(t, repo, time.Now().Add(time.Hour), domain.UnitNone, 0)
	_, _ = seedPending(t, repo, time.Now().Add(-time.Hour), domain.UnitNone, 0)

	if err := s.Recover(context.Background()); err != nil {
		t.Fatalf("first sweep: %v", err)
	}
	if err := s.Recover(context.Background()); err != nil {
		t.Fatalf("second sweep: %v", err)
	}

	// The missed notice went out once, and the future reminder holds a single
	// timer rather than one per sweep.
	if n := len(sender.calls()); n != 1 {
		t.Fatalf("want 1 delivery across sweeps, got %d", n)
	}
	if s.armedCount() != 1 {
		t.Fatalf("armed %d entries, want 1", s.armedCount())
	}
}
