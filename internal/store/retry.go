package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const (
	maxAttempts  = 3
	retryBackoff = 100 * time.Millisecond
)

// isTransient reports whether err is worth retrying: SQLite lock contention
// that a short backoff normally clears.
func isTransient(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() & 0xff {
	case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
		return true
	}
	return false
}

// withRetry runs fn up to maxAttempts times with linear backoff, retrying
// only transient contention. A transient failure that survives all attempts
// comes back wrapped in ErrStorageUnavailable; anything else passes through
// untouched.
func (r *SQLiteRepo) withRetry(ctx context.Context, op string, fn func() error) error {
	var err error
	for attempt := 1; ; attempt++ {
		err = fn()
		if err == nil || !isTransient(err) || attempt == maxAttempts {
			break
		}
		r.log.Warn("storage contention, retrying",
			zap.String("op", op),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryBackoff * time.Duration(attempt)):
		}
	}
	if err != nil && isTransient(err) {
		return fmt.Errorf("%s: %w: %s", op, ErrStorageUnavailable, err)
	}
	return err
}
