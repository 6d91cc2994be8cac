package store

import (
	"database/sql"
	"time"

	"github.com/siddhucsk/telegram-reminder-bot/internal/domain"
)

func toNullTime(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UTC().Unix(), Valid: true}
}

func fromNullTime(ns sql.NullInt64) *time.Time {
	if !ns.Valid {
		return nil
	}
	t := time.Unix(ns.Int64, 0).UTC()
	return &t
}

func toNullUnit(u domain.Unit) sql.NullString {
	if u == domain.UnitNone {
		return sql.NullString{}
	}
	return sql.NullString{String: string(u), Valid: true}
}

func toNullInterval(u domain.Unit, interval int) sql.NullInt64 {
	if u == domain.UnitNone {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(interval), Valid: true}
}

func toNullStr(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// reminderColumns is the select list shared by every reminder query; keep it
// in sync with scanReminder.
const reminderColumns = `r.id, r.user_id, r.message, r.fire_time, r.status, r.priority,
	r.recurrence_type, r.recurrence_interval, r.recurrence_end, r.parent_id, r.created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReminder(row rowScanner) (*domain.Reminder, error) {
	var (
		r         domain.Reminder
		fireTime  int64
		status    string
		priority  sql.NullString
		unit      sql.NullString
		interval  sql.NullInt64
		end       sql.NullInt64
		parentID  sql.NullString
		createdAt string
	)
	if err := row.Scan(
		&r.ID, &r.UserID, &r.Message, &fireTime, &status, &priority,
		&unit, &interval, &end, &parentID, &createdAt,
	); err != nil {
		return nil, err
	}

	r.FireAt = time.Unix(fireTime, 0).UTC()
	r.Status = domain.Status(status)
	r.Priority = domain.PriorityMedium
	if priority.Valid {
		r.Priority = domain.Priority(priority.String)
	}
	if unit.Valid {
		r.RecurUnit = domain.Unit(unit.String)
		r.RecurInterval = int(interval.Int64)
	}
	r.RecurEnd = fromNullTime(end)
	r.ParentID = parentID.String
	if t, err := time.Parse(time.DateTime, createdAt); err == nil {
		r.CreatedAt = t.UTC()
	}
	return &r, nil
}
