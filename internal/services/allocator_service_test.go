package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"railbook/internal/domain"
	"railbook/internal/domain/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
)

var testNow = time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)

func testClock() time.Time { return testNow }

func scheduleRows(departsAt time.Time) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "train_number", "train_name", "source", "destination", "travel_date", "departs_at",
	}).AddRow(1, "12951", "Rajdhani Express", "Mumbai Central", "New Delhi", "2026-03-12", departsAt)
}

func bookingRowColumns() []string {
	return []string{
		"id", "reference", "schedule_id", "class_code", "quota", "travel_date", "status",
		"total_amount", "contact_email", "caller_id", "cancel_reason", "refund_amount",
		"refund_status", "created_at", "cancelled_at",
	}
}

func bookingRow(id int64, ref, status string, total int64) *sqlmock.Rows {
	return sqlmock.NewRows(bookingRowColumns()).
		AddRow(id, ref, 1, models.ClassSleeper, models.QuotaGeneral, "2026-03-12", status,
			total, "rider@example.com", "anonymous", "", 0, "", testNow.Add(-time.Hour), nil)
}

func freeSeatColumns() []string {
	return []string{"id", "coach_id", "coach_number", "seat_number", "seat_type", "quota_tag", "base_fare"}
}

func expectLockAcquire(mock sqlmock.Sqlmock) {
	mock.ExpectQuery("GET_LOCK").
		WillReturnRows(sqlmock.NewRows([]string{"GET_LOCK"}).AddRow(1))
}

func expectLockRelease(mock sqlmock.Sqlmock) {
	mock.ExpectExec("RELEASE_LOCK").
		WillReturnResult(sqlmock.NewResult(0, 0))
}

func TestCreateBooking_ConfirmsWholeGroup(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("FROM schedules").WithArgs(int64(1)).
		WillReturnRows(scheduleRows(testNow.Add(48 * time.Hour)))

	expectLockAcquire(mock)
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT 1 FROM bookings").
		WillReturnRows(sqlmock.NewRows([]string{"1"}))
	mock.ExpectQuery("SELECT s.id, s.coach_id").
		WillReturnRows(sqlmock.NewRows(freeSeatColumns()).
			AddRow(1, 10, 1, 1, models.SeatWindow, models.QuotaGeneral, 50000).
			AddRow(2, 10, 1, 2, models.SeatMiddle, models.QuotaGeneral, 50000).
			AddRow(3, 10, 1, 3, models.SeatAisle, models.QuotaGeneral, 50000))
	mock.ExpectExec("INSERT INTO bookings").
		WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectExec("INSERT INTO passengers").
		WillReturnResult(sqlmock.NewResult(101, 1))
	mock.ExpectExec("UPDATE seats SET is_available=0").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO passengers").
		WillReturnResult(sqlmock.NewResult(102, 1))
	mock.ExpectExec("UPDATE seats SET is_available=0").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE coaches").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	expectLockRelease(mock)

	svc := AllocatorService{
		DB:           db,
		MaxGroupSize: 6,
		SeniorAge:    60,
		LockWaitSec:  1,
		LockRetries:  1,
		Clock:        testClock,
	}

	res, err := svc.CreateBooking(context.Background(), CreateBookingRequest{
		ScheduleID: 1,
		ClassCode:  "sl",
		AutoAssign: true,
		Passengers: []models.PassengerInput{
			{Name: "Asha", Age: 34},
			{Name: "Ravi", Age: 36},
		},
		ContactEmail: "rider@example.com",
	})
	if err != nil {
		t.Fatalf("create booking error: %v", err)
	}
	if res.Status != models.BookingConfirmed {
		t.Fatalf("expected confirmed status, got %s", res.Status)
	}
	if res.BookingID != 7 {
		t.Fatalf("unexpected booking id %d", res.BookingID)
	}
	if res.TotalAmount != 100000 {
		t.Fatalf("expected total 100000 paise, got %d", res.TotalAmount)
	}
	if len(res.SeatAllocations) != 2 {
		t.Fatalf("expected 2 seat allocations, got %d", len(res.SeatAllocations))
	}
	if !strings.HasPrefix(res.Reference, "RB") {
		t.Fatalf("reference should carry the RB prefix, got %q", res.Reference)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreateBooking_QueuesGroupWhenInventoryShort(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("FROM schedules").WithArgs(int64(1)).
		WillReturnRows(scheduleRows(testNow.Add(48 * time.Hour)))

	expectLockAcquire(mock)
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT 1 FROM bookings").
		WillReturnRows(sqlmock.NewRows([]string{"1"}))
	// One free seat cannot cover a group of two.
	mock.ExpectQuery("SELECT s.id, s.coach_id").
		WillReturnRows(sqlmock.NewRows(freeSeatColumns()).
			AddRow(1, 10, 1, 1, models.SeatWindow, models.QuotaGeneral, 50000))
	mock.ExpectExec("INSERT INTO bookings").
		WillReturnResult(sqlmock.NewResult(8, 1))
	mock.ExpectExec("INSERT INTO passengers").
		WillReturnResult(sqlmock.NewResult(103, 1))
	mock.ExpectExec("INSERT INTO passengers").
		WillReturnResult(sqlmock.NewResult(104, 1))
	mock.ExpectQuery("SELECT COUNT").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectExec("INSERT INTO waitlist_entries").
		WillReturnResult(sqlmock.NewResult(5, 1))
	mock.ExpectCommit()
	expectLockRelease(mock)

	svc := AllocatorService{
		DB:           db,
		MaxGroupSize: 6,
		SeniorAge:    60,
		LockWaitSec:  1,
		LockRetries:  1,
		Clock:        testClock,
	}

	res, err := svc.CreateBooking(context.Background(), CreateBookingRequest{
		ScheduleID: 1,
		ClassCode:  models.ClassSleeper,
		AutoAssign: true,
		Passengers: []models.PassengerInput{
			{Name: "Asha", Age: 34},
			{Name: "Meera", Age: 67},
		},
	})
	if err != nil {
		t.Fatalf("create booking error: %v", err)
	}
	if res.Status != models.BookingWaitlisted {
		t.Fatalf("expected waitlisted status, got %s", res.Status)
	}
	if res.WaitlistPosition != 3 {
		t.Fatalf("expected position 3 behind two queued groups, got %d", res.WaitlistPosition)
	}
	if res.TotalAmount != 0 {
		t.Fatalf("queued groups must not carry a charge, got %d", res.TotalAmount)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

// Two requests can pass the advisory collision check with the same code; the
// loser's insert trips the unique index and the whole attempt retries with a
// fresh reference instead of surfacing a 500.
func TestCreateBooking_ReferenceInsertRaceRetriesWithFreshCode(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("FROM schedules").WithArgs(int64(1)).
		WillReturnRows(scheduleRows(testNow.Add(48 * time.Hour)))

	// First attempt loses the insert race and rolls back.
	expectLockAcquire(mock)
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT 1 FROM bookings").
		WillReturnRows(sqlmock.NewRows([]string{"1"}))
	mock.ExpectQuery("SELECT s.id, s.coach_id").
		WillReturnRows(sqlmock.NewRows(freeSeatColumns()).
			AddRow(1, 10, 1, 1, models.SeatWindow, models.QuotaGeneral, 50000))
	mock.ExpectExec("INSERT INTO bookings").
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry for key 'uniq_reference'"})
	mock.ExpectRollback()
	expectLockRelease(mock)

	// Second attempt draws a new code and goes through.
	expectLockAcquire(mock)
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT 1 FROM bookings").
		WillReturnRows(sqlmock.NewRows([]string{"1"}))
	mock.ExpectQuery("SELECT s.id, s.coach_id").
		WillReturnRows(sqlmock.NewRows(freeSeatColumns()).
			AddRow(1, 10, 1, 1, models.SeatWindow, models.QuotaGeneral, 50000))
	mock.ExpectExec("INSERT INTO bookings").
		WillReturnResult(sqlmock.NewResult(9, 1))
	mock.ExpectExec("INSERT INTO passengers").
		WillReturnResult(sqlmock.NewResult(105, 1))
	mock.ExpectExec("UPDATE seats SET is_available=0").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE coaches").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	expectLockRelease(mock)

	svc := AllocatorService{
		DB:           db,
		MaxGroupSize: 6,
		SeniorAge:    60,
		LockWaitSec:  1,
		LockRetries:  3,
		Clock:        testClock,
	}

	res, err := svc.CreateBooking(context.Background(), CreateBookingRequest{
		ScheduleID: 1,
		ClassCode:  models.ClassSleeper,
		AutoAssign: true,
		Passengers: []models.PassengerInput{{Name: "Asha", Age: 34}},
	})
	if err != nil {
		t.Fatalf("create booking error: %v", err)
	}
	if res.Status != models.BookingConfirmed {
		t.Fatalf("expected confirmed status after retry, got %s", res.Status)
	}
	if res.BookingID != 9 {
		t.Fatalf("unexpected booking id %d", res.BookingID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreateBooking_ValidationStopsBeforeDB(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	svc := AllocatorService{DB: db, MaxGroupSize: 2, Clock: testClock}

	cases := []struct {
		name string
		req  CreateBookingRequest
	}{
		{"unknown class", CreateBookingRequest{
			ScheduleID: 1, ClassCode: "XX", AutoAssign: true,
			Passengers: []models.PassengerInput{{Name: "A", Age: 30}},
		}},
		{"no passengers", CreateBookingRequest{
			ScheduleID: 1, ClassCode: models.ClassSleeper, AutoAssign: true,
		}},
		{"group too large", CreateBookingRequest{
			ScheduleID: 1, ClassCode: models.ClassSleeper, AutoAssign: true,
			Passengers: []models.PassengerInput{
				{Name: "A", Age: 30}, {Name: "B", Age: 30}, {Name: "C", Age: 30},
			},
		}},
		{"age out of range", CreateBookingRequest{
			ScheduleID: 1, ClassCode: models.ClassSleeper, AutoAssign: true,
			Passengers: []models.PassengerInput{{Name: "A", Age: 130}},
		}},
		{"manual assign without seats", CreateBookingRequest{
			ScheduleID: 1, ClassCode: models.ClassSleeper,
			Passengers: []models.PassengerInput{{Name: "A", Age: 30}},
		}},
	}
	for _, tc := range cases {
		_, err := svc.CreateBooking(context.Background(), tc.req)
		if !domain.IsValidation(err) {
			t.Fatalf("%s: expected validation error, got %v", tc.name, err)
		}
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("validation must not touch the database: %v", err)
	}
}

func TestCreateBooking_DepartedScheduleRejected(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("FROM schedules").WithArgs(int64(1)).
		WillReturnRows(scheduleRows(testNow.Add(-time.Hour)))

	svc := AllocatorService{DB: db, MaxGroupSize: 6, Clock: testClock}
	_, err = svc.CreateBooking(context.Background(), CreateBookingRequest{
		ScheduleID: 1,
		ClassCode:  models.ClassSleeper,
		AutoAssign: true,
		Passengers: []models.PassengerInput{{Name: "A", Age: 30}},
	})
	if !domain.IsValidation(err) {
		t.Fatalf("expected validation error for departed schedule, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
