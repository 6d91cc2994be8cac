package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	// Registers the "sqlite" driver (pure Go).
	_ "modernc.org/sqlite"

	"github.com/siddhucsk/telegram-reminder-bot/internal/domain"
)

// SQLiteRepo implements Repo using an embedded SQLite database.
type SQLiteRepo struct {
	db  *sql.DB
	log *zap.Logger
}

// OpenSQLite opens (or creates) the SQLite database at the given path,
// applies recommended PRAGMAs, runs SQL migrations, and returns a repository.
func OpenSQLite(ctx context.Context, path string, log *zap.Logger) (*SQLiteRepo, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Reasonable pooling for SQLite; it's a single-writer engine.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := applyPragmas(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}
	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	return &SQLiteRepo{db: db, log: log}, nil
}

// applyPragmas configures the SQLite connection for durability and concurrency.
func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA foreign_keys=ON;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the underlying database resources.
func (r *SQLiteRepo) Close() error {
	return r.db.Close()
}

// --- Users ---

// SetTimezone creates the user row on first contact or updates the timezone
// of an existing one. maxReminders only applies to new rows.
func (r *SQLiteRepo) SetTimezone(ctx context.Context, userID int64, tz string, maxReminders int) error {
	return r.withRetry(ctx, "SetTimezone", func() error {
		_, err := r.db.ExecContext(ctx, `
			INSERT INTO users (user_id, timezone, max_reminders)
			VALUES (?, ?, ?)
			ON CONFLICT(user_id) DO UPDATE SET
				timezone       = excluded.timezone,
				last_active_at = CURRENT_TIMESTAMP`,
			userID, tz, maxReminders,
		)
		return err
	})
}

// GetUser returns a user's settings by id or ErrNotFound.
func (r *SQLiteRepo) GetUser(ctx context.Context, userID int64) (*domain.User, error) {
	var u domain.User
	err := r.withRetry(ctx, "GetUser", func() error {
		var createdAt, lastActiveAt string
		err := r.db.QueryRowContext(ctx, `
			SELECT user_id, timezone, max_reminders, reminder_count,
			       created_at, last_active_at
			FROM users
			WHERE user_id = ?`,
			userID,
		).Scan(&u.UserID, &u.Timezone, &u.MaxReminders, &u.ReminderCount, &createdAt, &lastActiveAt)
		if err != nil {
			return err
		}
		if t, perr := time.Parse(time.DateTime, createdAt); perr == nil {
			u.CreatedAt = t.UTC()
		}
		if t, perr := time.Parse(time.DateTime, lastActiveAt); perr == nil {
			u.LastActiveAt = t.UTC()
		}
		return nil
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %d: %w", userID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// --- Reminders ---

// CreateReminder inserts a pending row. The quota check and the insert share
// one transaction; the count trigger keeps reminder_count in step.
func (r *SQLiteRepo) CreateReminder(ctx context.Context, rem *domain.Reminder) error {
	return r.withRetry(ctx, "CreateReminder", func() error {
		tx, err := r.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		var count, maxCount int
		err = tx.QueryRowContext(ctx, `
			SELECT reminder_count, max_reminders
			FROM users
			WHERE user_id = ?`,
			rem.UserID,
		).Scan(&count, &maxCount)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("user %d: %w", rem.UserID, ErrNotFound)
		}
		if err != nil {
			return err
		}
		if count >= maxCount {
			return fmt.Errorf("%w: %d of %d", ErrQuotaExceeded, count, maxCount)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO reminders (
				id, user_id, message, fire_time, status, priority,
				recurrence_type, recurrence_interval, recurrence_end, parent_id
			) VALUES (?, ?, ?, ?, 'pending', ?, ?, ?, ?, ?)`,
			rem.ID, rem.UserID, rem.Message, rem.FireAt.UTC().Unix(), string(rem.Priority),
			toNullUnit(rem.RecurUnit), toNullInterval(rem.RecurUnit, rem.RecurInterval),
			toNullTime(rem.RecurEnd), toNullStr(rem.ParentID),
		)
		if err != nil {
			return err
		}
		return tx.Commit()
	})
}

// GetReminder returns the reminder iff it is still pending; terminal rows
// are hidden. ownerID 0 skips the owner filter.
func (r *SQLiteRepo) GetReminder(ctx context.Context, id string, ownerID int64) (*domain.Reminder, error) {
	query := `SELECT ` + reminderColumns + `
		FROM reminders r
		WHERE r.id = ? AND r.status = 'pending'`
	args := []any{id}
	if ownerID != 0 {
		query += ` AND r.user_id = ?`
		args = append(args, ownerID)
	}

	var rem *domain.Reminder
	err := r.withRetry(ctx, "GetReminder", func() error {
		var serr error
		rem, serr = scanReminder(r.db.QueryRowContext(ctx, query, args...))
		return serr
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("reminder %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return rem, nil
}

// ListPending returns a user's pending reminders ordered by fire time.
func (r *SQLiteRepo) ListPending(ctx context.Context, userID int64) ([]domain.Reminder, error) {
	var res []domain.Reminder
	err := r.withRetry(ctx, "ListPending", func() error {
		res = res[:0]
		rows, err := r.db.QueryContext(ctx, `
			SELECT `+reminderColumns+`
			FROM reminders r
			WHERE r.user_id = ? AND r.status = 'pending'
			ORDER BY r.fire_time ASC`,
			userID,
		)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			rem, err := scanReminder(rows)
			if err != nil {
				return err
			}
			res = append(res, *rem)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// ListAllPending returns every pending reminder joined with the owner's
// timezone, ordered by fire time.
func (r *SQLiteRepo) ListAllPending(ctx context.Context) ([]PendingReminder, error) {
	var res []PendingReminder
	err := r.withRetry(ctx, "ListAllPending", func() error {
		res = res[:0]
		rows, err := r.db.QueryContext(ctx, `
			SELECT `+reminderColumns+`, u.timezone
			FROM reminders r
			JOIN users u ON r.user_id = u.user_id
			WHERE r.status = 'pending'
			ORDER BY r.fire_time ASC`,
		)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var (
				p         PendingReminder
				fireTime  int64
				status    string
				priority  sql.NullString
				unit      sql.NullString
				interval  sql.NullInt64
				end       sql.NullInt64
				parentID  sql.NullString
				createdAt string
			)
			if err := rows.Scan(
				&p.ID, &p.UserID, &p.Message, &fireTime, &status, &priority,
				&unit, &interval, &end, &parentID, &createdAt, &p.Timezone,
			); err != nil {
				return err
			}
			p.FireAt = time.Unix(fireTime, 0).UTC()
			p.Status = domain.Status(status)
			p.Priority = domain.PriorityMedium
			if priority.Valid {
				p.Priority = domain.Priority(priority.String)
			}
			if unit.Valid {
				p.RecurUnit = domain.Unit(unit.String)
				p.RecurInterval = int(interval.Int64)
			}
			p.RecurEnd = fromNullTime(end)
			p.ParentID = parentID.String
			res = append(res, p)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// UpdateReminder applies a partial update to a pending row and reports
// whether a row changed. ownerID 0 skips the owner filter.
func (r *SQLiteRepo) UpdateReminder(ctx context.Context, id string, ownerID int64, upd ReminderUpdate) (bool, error) {
	var sets []string
	var args []any
	if upd.Message != nil {
		sets = append(sets, "message = ?")
		args = append(args, *upd.Message)
	}
	if upd.FireAt != nil {
		sets = append(sets, "fire_time = ?")
		args = append(args, upd.FireAt.UTC().Unix())
	}
	if upd.Priority != nil {
		sets = append(sets, "priority = ?")
		args = append(args, string(*upd.Priority))
	}
	if upd.RecurUnit != nil {
		interval := 0
		if upd.RecurInterval != nil {
			interval = *upd.RecurInterval
		}
		sets = append(sets, "recurrence_type = ?", "recurrence_interval = ?")
		args = append(args, toNullUnit(*upd.RecurUnit), toNullInterval(*upd.RecurUnit, interval))
	}
	if len(sets) == 0 {
		return false, nil
	}

	query := `UPDATE reminders SET ` + strings.Join(sets, ", ") + ` WHERE id = ? AND status = 'pending'`
	args = append(args, id)
	if ownerID != 0 {
		query += ` AND user_id = ?`
		args = append(args, ownerID)
	}

	var changed bool
	err := r.withRetry(ctx, "UpdateReminder", func() error {
		res, err := r.db.ExecContext(ctx, query, args...)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		changed = n > 0
		return err
	})
	return changed, err
}

// SetStatus moves a pending row to a terminal status. The conditional update
// is the arbiter between a racing fire-completion and a user cancellation:
// exactly one caller sees changed == true.
func (r *SQLiteRepo) SetStatus(ctx context.Context, id string, ownerID int64, status domain.Status) (bool, error) {
	if status != domain.StatusCompleted && status != domain.StatusCancelled {
		return false, fmt.Errorf("status %q is not terminal", status)
	}

	query := `UPDATE reminders SET status = ? WHERE id = ? AND status = 'pending'`
	args := []any{string(status), id}
	if ownerID != 0 {
		query += ` AND user_id = ?`
		args = append(args, ownerID)
	}

	var changed bool
	err := r.withRetry(ctx, "SetStatus", func() error {
		res, err := r.db.ExecContext(ctx, query, args...)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		changed = n > 0
		return err
	})
	return changed, err
}

// DeleteOldTerminal removes completed/cancelled rows whose fire time is
// before the cutoff. The firing path never deletes; this retention sweep is
// the only destroyer of reminder rows.
func (r *SQLiteRepo) DeleteOldTerminal(ctx context.Context, before time.Time) (int64, error) {
	var n int64
	err := r.withRetry(ctx, "DeleteOldTerminal", func() error {
		res, err := r.db.ExecContext(ctx, `
			DELETE FROM reminders
			WHERE status IN ('completed', 'cancelled')
			  AND fire_time < ?`,
			before.UTC().Unix(),
		)
		if err != nil {
			return err
		}
		n, err = res.RowsAffected()
		return err
	})
	return n, err
}
