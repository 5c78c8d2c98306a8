package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"railbook/internal/domain"
)

// ErrLockNotAcquired reports a GET_LOCK timeout for one attempt.
var ErrLockNotAcquired = errors.New("lock not acquired")

// PartitionKey builds the advisory-lock name for one (schedule, class)
// partition. Unrelated partitions never share a key.
func PartitionKey(scheduleID int64, classCode string) string {
	return fmt.Sprintf("railbook:seats:%d:%s", scheduleID, classCode)
}

func acquireNamedLock(ctx context.Context, conn *sql.Conn, key string, timeoutSec int) error {
	if conn == nil || key == "" {
		return errors.New("acquireNamedLock: invalid args")
	}
	var got sql.NullInt64
	if err := conn.QueryRowContext(ctx, `SELECT GET_LOCK(?, ?)`, key, timeoutSec).Scan(&got); err != nil {
		return err
	}
	if !got.Valid || got.Int64 != 1 {
		return ErrLockNotAcquired
	}
	return nil
}

func releaseNamedLock(ctx context.Context, conn *sql.Conn, key string) {
	if conn == nil || key == "" {
		return
	}
	_, _ = conn.ExecContext(ctx, `SELECT RELEASE_LOCK(?)`, key)
}

// WithPartitionLock runs fn inside one transaction holding the named lock for
// the given partition. Lock timeouts and seat conflicts roll back and retry
// with jittered backoff; exhausted retries surface as a RetryableError so the
// caller can re-submit. Any other failure inside fn aborts the whole unit.
func WithPartitionLock(ctx context.Context, db *sql.DB, key string, waitSec, retries int, fn func(tx *sql.Tx) error) error {
	if db == nil {
		return domain.InternalError{Msg: "db not available"}
	}
	if waitSec <= 0 {
		waitSec = 3
	}
	if retries <= 0 {
		retries = 1
	}

	var lastErr error
	for attempt := 0; attempt < retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return domain.RetryableError{Msg: "request cancelled while waiting for seat lock", Err: ctx.Err()}
			case <-time.After(backoff(attempt)):
			}
		}

		err := runLocked(ctx, db, key, waitSec, fn)
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrLockNotAcquired) || domain.IsConflict(err) {
			lastErr = err
			continue
		}
		return err
	}
	return domain.RetryableError{Msg: "seat inventory busy", Err: lastErr}
}

// runLocked pins one connection so GET_LOCK and RELEASE_LOCK hit the same
// session; the lock outlives the commit and is released before the
// connection returns to the pool.
func runLocked(ctx context.Context, db *sql.DB, key string, waitSec int, fn func(tx *sql.Tx) error) error {
	conn, err := db.Conn(ctx)
	if err != nil {
		return domain.InternalError{Msg: "acquire conn", Err: err}
	}
	defer conn.Close()

	if err := acquireNamedLock(ctx, conn, key, waitSec); err != nil {
		return err
	}
	defer releaseNamedLock(ctx, conn, key)

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return domain.InternalError{Msg: "begin tx", Err: err}
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return domain.InternalError{Msg: "commit tx", Err: err}
	}
	committed = true
	return nil
}

func backoff(attempt int) time.Duration {
	base := time.Duration(attempt) * 100 * time.Millisecond
	return base + time.Duration(rand.Intn(50))*time.Millisecond
}
