package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	intconfig "railbook/internal/config"
	"railbook/internal/domain/models"
)

type WaitlistRepo struct {
	DB *sql.DB
}

func (r WaitlistRepo) db() *sql.DB {
	if r.DB != nil {
		return r.DB
	}
	return intconfig.DB
}

func (r WaitlistRepo) InsertEntry(tx *sql.Tx, e models.WaitlistEntry) (int64, error) {
	if tx == nil {
		return 0, fmt.Errorf("tx required")
	}
	res, err := tx.Exec(`
		INSERT INTO waitlist_entries (schedule_id, class_code, booking_id, position, priority, status, queued_at)
		VALUES (?,?,?,?,?,?,?)`,
		e.ScheduleID, e.ClassCode, e.BookingID, e.Position, e.Priority, models.WaitlistQueued, e.QueuedAt)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// QueuedCount counts queued entries of one partition inside the transaction,
// so a freshly assigned position is race-free under the partition lock.
func (r WaitlistRepo) QueuedCount(tx *sql.Tx, scheduleID int64, classCode string) (int, error) {
	if tx == nil {
		return 0, fmt.Errorf("tx required")
	}
	var n int
	err := tx.QueryRow(`
		SELECT COUNT(*) FROM waitlist_entries
		WHERE schedule_id=? AND class_code=? AND status=?`,
		scheduleID, classCode, models.WaitlistQueued).Scan(&n)
	return n, err
}

// ListQueuedForUpdate returns queued entries of a partition in promotion
// order: priority first, then position.
func (r WaitlistRepo) ListQueuedForUpdate(tx *sql.Tx, scheduleID int64, classCode string) ([]models.WaitlistEntry, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx required")
	}
	rows, err := tx.Query(`
		SELECT id, schedule_id, class_code, booking_id, position, priority, status, queued_at
		FROM waitlist_entries
		WHERE schedule_id=? AND class_code=? AND status=?
		ORDER BY priority ASC, position ASC
		FOR UPDATE`,
		scheduleID, classCode, models.WaitlistQueued)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.WaitlistEntry{}
	for rows.Next() {
		var e models.WaitlistEntry
		if err := rows.Scan(&e.ID, &e.ScheduleID, &e.ClassCode, &e.BookingID, &e.Position, &e.Priority, &e.Status, &e.QueuedAt); err != nil {
			return out, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r WaitlistRepo) MarkConfirmed(tx *sql.Tx, entryID int64, confirmedAt time.Time) error {
	if tx == nil {
		return fmt.Errorf("tx required")
	}
	_, err := tx.Exec(`UPDATE waitlist_entries SET status=?, confirmed_at=? WHERE id=?`,
		models.WaitlistConfirmed, confirmedAt, entryID)
	return err
}

func (r WaitlistRepo) MarkCancelled(tx *sql.Tx, entryID int64) error {
	if tx == nil {
		return fmt.Errorf("tx required")
	}
	_, err := tx.Exec(`UPDATE waitlist_entries SET status=? WHERE id=?`,
		models.WaitlistCancelled, entryID)
	return err
}

// RenumberQueued rewrites queued positions of a partition to a dense 1..N in
// current position order. Runs in the same transaction as whatever removed or
// promoted entries, so no reader observes a gap.
func (r WaitlistRepo) RenumberQueued(tx *sql.Tx, scheduleID int64, classCode string) error {
	if tx == nil {
		return fmt.Errorf("tx required")
	}
	rows, err := tx.Query(`
		SELECT id FROM waitlist_entries
		WHERE schedule_id=? AND class_code=? AND status=?
		ORDER BY position ASC
		FOR UPDATE`,
		scheduleID, classCode, models.WaitlistQueued)
	if err != nil {
		return err
	}
	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()

	for i, id := range ids {
		if _, err := tx.Exec(`UPDATE waitlist_entries SET position=? WHERE id=?`, i+1, id); err != nil {
			return err
		}
	}
	return nil
}

// GetQueuedByBooking returns the queued entry of a booking inside the
// transaction, locked.
func (r WaitlistRepo) GetQueuedByBooking(tx *sql.Tx, bookingID int64) (models.WaitlistEntry, error) {
	var e models.WaitlistEntry
	if tx == nil {
		return e, fmt.Errorf("tx required")
	}
	err := tx.QueryRow(`
		SELECT id, schedule_id, class_code, booking_id, position, priority, status, queued_at
		FROM waitlist_entries WHERE booking_id=? AND status=? LIMIT 1 FOR UPDATE`,
		bookingID, models.WaitlistQueued).
		Scan(&e.ID, &e.ScheduleID, &e.ClassCode, &e.BookingID, &e.Position, &e.Priority, &e.Status, &e.QueuedAt)
	return e, err
}

// QueueSnapshot is the read-only view backing waitlist info lookups.
type QueueSnapshot struct {
	Position     int
	TotalWaiting int
	Promoted     int
}

// Snapshot reads a booking's queue standing without taking the partition
// lock; display only.
func (r WaitlistRepo) Snapshot(scheduleID int64, classCode string, bookingID int64) (QueueSnapshot, error) {
	var snap QueueSnapshot
	db := r.db()

	err := db.QueryRow(`
		SELECT COUNT(*) FROM waitlist_entries
		WHERE schedule_id=? AND class_code=? AND status=?`,
		scheduleID, classCode, models.WaitlistQueued).Scan(&snap.TotalWaiting)
	if err != nil {
		return snap, err
	}

	err = db.QueryRow(`
		SELECT COUNT(*) FROM waitlist_entries
		WHERE schedule_id=? AND class_code=? AND status=?`,
		scheduleID, classCode, models.WaitlistConfirmed).Scan(&snap.Promoted)
	if err != nil {
		return snap, err
	}

	if bookingID > 0 {
		err = db.QueryRow(`
			SELECT position FROM waitlist_entries
			WHERE booking_id=? AND status=? LIMIT 1`,
			bookingID, models.WaitlistQueued).Scan(&snap.Position)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return snap, err
		}
	}
	return snap, nil
}
