package db

import (
	"context"
	"database/sql"
	"testing"

	"railbook/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestPartitionKey(t *testing.T) {
	if got := PartitionKey(42, "SL"); got != "railbook:seats:42:SL" {
		t.Fatalf("unexpected key %q", got)
	}
	if PartitionKey(42, "SL") == PartitionKey(42, "3A") {
		t.Fatalf("different classes must never share a lock key")
	}
	if PartitionKey(42, "SL") == PartitionKey(43, "SL") {
		t.Fatalf("different schedules must never share a lock key")
	}
}

func TestWithPartitionLock_CommitsAndReleases(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer mockDB.Close()

	mock.ExpectQuery("GET_LOCK").
		WillReturnRows(sqlmock.NewRows([]string{"GET_LOCK"}).AddRow(1))
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE sentinel").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectExec("RELEASE_LOCK").
		WillReturnResult(sqlmock.NewResult(0, 0))

	ran := false
	err = WithPartitionLock(context.Background(), mockDB, PartitionKey(1, "SL"), 1, 1, func(tx *sql.Tx) error {
		ran = true
		_, err := tx.Exec(`UPDATE sentinel SET touched=1`)
		return err
	})
	if err != nil {
		t.Fatalf("lock run error: %v", err)
	}
	if !ran {
		t.Fatalf("callback never ran")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestWithPartitionLock_TimeoutBecomesRetryable(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer mockDB.Close()

	// Every attempt times out waiting on the lock.
	for i := 0; i < 2; i++ {
		mock.ExpectQuery("GET_LOCK").
			WillReturnRows(sqlmock.NewRows([]string{"GET_LOCK"}).AddRow(0))
	}

	err = WithPartitionLock(context.Background(), mockDB, PartitionKey(1, "SL"), 1, 2, func(tx *sql.Tx) error {
		t.Fatalf("callback must not run without the lock")
		return nil
	})
	if !domain.IsRetryable(err) {
		t.Fatalf("expected retryable error after exhausted attempts, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestWithPartitionLock_ConflictRollsBackAndRetries(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer mockDB.Close()

	// First attempt hits a seat conflict and rolls back.
	mock.ExpectQuery("GET_LOCK").
		WillReturnRows(sqlmock.NewRows([]string{"GET_LOCK"}).AddRow(1))
	mock.ExpectBegin()
	mock.ExpectRollback()
	mock.ExpectExec("RELEASE_LOCK").
		WillReturnResult(sqlmock.NewResult(0, 0))
	// Second attempt goes through.
	mock.ExpectQuery("GET_LOCK").
		WillReturnRows(sqlmock.NewRows([]string{"GET_LOCK"}).AddRow(1))
	mock.ExpectBegin()
	mock.ExpectCommit()
	mock.ExpectExec("RELEASE_LOCK").
		WillReturnResult(sqlmock.NewResult(0, 0))

	calls := 0
	err = WithPartitionLock(context.Background(), mockDB, PartitionKey(1, "SL"), 1, 3, func(tx *sql.Tx) error {
		calls++
		if calls == 1 {
			return domain.ConflictError{Resource: "seat", Msg: "seat 5 already bound"}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected second attempt to succeed, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 attempts, got %d", calls)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestWithPartitionLock_NonRetryableErrorStops(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer mockDB.Close()

	mock.ExpectQuery("GET_LOCK").
		WillReturnRows(sqlmock.NewRows([]string{"GET_LOCK"}).AddRow(1))
	mock.ExpectBegin()
	mock.ExpectRollback()
	mock.ExpectExec("RELEASE_LOCK").
		WillReturnResult(sqlmock.NewResult(0, 0))

	calls := 0
	err = WithPartitionLock(context.Background(), mockDB, PartitionKey(1, "SL"), 1, 3, func(tx *sql.Tx) error {
		calls++
		return domain.ValidationError{Field: "passengers", Msg: "name required"}
	})
	if !domain.IsValidation(err) {
		t.Fatalf("expected the callback error to surface unchanged, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("validation failures must not retry, got %d attempts", calls)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
