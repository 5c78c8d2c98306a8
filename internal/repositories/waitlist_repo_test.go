package repositories

import (
	"testing"
	"time"

	"railbook/internal/domain/models"

	"github.com/DATA-DOG/go-sqlmock"
)

// A senior group deep in the queue outranks a regular group at position 1:
// the promotion scan's order comes entirely from this query.
func TestListQueuedForUpdate_OrdersByPriorityThenPosition(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`ORDER BY priority ASC, position ASC\s+FOR UPDATE`).
		WithArgs(int64(1), "SL", models.WaitlistQueued).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "schedule_id", "class_code", "booking_id", "position", "priority", "status", "queued_at",
		}).
			AddRow(3, 1, "SL", 300, 5, models.PrioritySenior, models.WaitlistQueued, time.Date(2026, 3, 10, 7, 0, 0, 0, time.UTC)).
			AddRow(4, 1, "SL", 400, 1, models.PriorityRegular, models.WaitlistQueued, time.Date(2026, 3, 10, 6, 0, 0, 0, time.UTC)))

	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("begin error: %v", err)
	}
	entries, err := WaitlistRepo{}.ListQueuedForUpdate(tx, 1, "SL")
	if err != nil {
		t.Fatalf("list error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].BookingID != 300 || entries[0].Priority != models.PrioritySenior {
		t.Fatalf("senior entry must come first, got %+v", entries[0])
	}
	if entries[1].BookingID != 400 {
		t.Fatalf("regular entry must come second, got %+v", entries[1])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRenumberQueued_DensePositionsInOrder(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM waitlist_entries").
		WithArgs(int64(1), "SL", models.WaitlistQueued).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(4).AddRow(9).AddRow(12))
	mock.ExpectExec("UPDATE waitlist_entries SET position=").
		WithArgs(1, int64(4)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE waitlist_entries SET position=").
		WithArgs(2, int64(9)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE waitlist_entries SET position=").
		WithArgs(3, int64(12)).WillReturnResult(sqlmock.NewResult(0, 1))

	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("begin error: %v", err)
	}
	if err := (WaitlistRepo{}).RenumberQueued(tx, 1, "SL"); err != nil {
		t.Fatalf("renumber error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSnapshot_MissingBookingLeavesPositionZero(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT COUNT").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(5))
	mock.ExpectQuery("SELECT COUNT").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery("SELECT position FROM waitlist_entries").
		WillReturnRows(sqlmock.NewRows([]string{"position"}))

	snap, err := WaitlistRepo{DB: db}.Snapshot(1, "SL", 77)
	if err != nil {
		t.Fatalf("snapshot error: %v", err)
	}
	if snap.Position != 0 {
		t.Fatalf("booking not in queue should report position 0, got %d", snap.Position)
	}
	if snap.TotalWaiting != 5 || snap.Promoted != 2 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestInsertEntry_StoresQueuedStatus(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	queuedAt := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO waitlist_entries").
		WithArgs(int64(1), "SL", int64(9), 3, models.PrioritySenior, models.WaitlistQueued, queuedAt).
		WillReturnResult(sqlmock.NewResult(15, 1))

	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("begin error: %v", err)
	}
	id, err := WaitlistRepo{}.InsertEntry(tx, models.WaitlistEntry{
		ScheduleID: 1,
		ClassCode:  "SL",
		BookingID:  9,
		Position:   3,
		Priority:   models.PrioritySenior,
		QueuedAt:   queuedAt,
	})
	if err != nil {
		t.Fatalf("insert error: %v", err)
	}
	if id != 15 {
		t.Fatalf("unexpected entry id %d", id)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
