package repositories

import (
	"database/sql"
	"fmt"
	"strings"

	"railbook/internal/domain"
	"railbook/internal/domain/models"
)

// InventoryRepo owns seat-state reads and writes. Every method runs on the
// caller's transaction: binding and releasing are only correct inside the
// partition lock, so there is no bare-DB variant.
type InventoryRepo struct{}

// FreeSeatsForUpdate returns the free seats a quota may draw from, locked for
// the rest of the transaction, in scan order (coach number, seat number).
// Quota eligibility is resolved here at read time; tagged quotas also draw
// from the general pool so no inventory is stranded.
func (InventoryRepo) FreeSeatsForUpdate(tx *sql.Tx, scheduleID int64, classCode, quota string) ([]models.Seat, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx required")
	}
	quotaCond := `s.quota_tag = ?`
	args := []any{scheduleID, classCode, models.QuotaGeneral}
	if quota != "" && quota != models.QuotaGeneral {
		quotaCond = `s.quota_tag IN (?, ?)`
		args = []any{scheduleID, classCode, quota, models.QuotaGeneral}
	}

	rows, err := tx.Query(`
		SELECT s.id, s.coach_id, c.coach_number, s.seat_number, s.seat_type, s.quota_tag, c.base_fare
		FROM seats s
		JOIN coaches c ON c.id = s.coach_id
		WHERE c.schedule_id=? AND c.class_code=? AND s.is_available=1 AND `+quotaCond+`
		ORDER BY c.coach_number ASC, s.seat_number ASC
		FOR UPDATE`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Seat{}
	for rows.Next() {
		s := models.Seat{IsAvailable: true}
		if err := rows.Scan(&s.ID, &s.CoachID, &s.CoachNumber, &s.SeatNumber, &s.SeatType, &s.QuotaTag, &s.BaseFare); err != nil {
			return out, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// BindSeat marks one seat taken by one passenger. The is_available guard
// catches a seat that changed state since it was read; the whole transaction
// must abort on that conflict so the group is bound all-or-nothing.
func (InventoryRepo) BindSeat(tx *sql.Tx, seatID, bookingID, passengerID int64) error {
	if tx == nil {
		return fmt.Errorf("tx required")
	}
	res, err := tx.Exec(`
		UPDATE seats SET is_available=0, booking_id=?, passenger_id=?
		WHERE id=? AND is_available=1`, bookingID, passengerID, seatID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ConflictError{Resource: "seat", Msg: fmt.Sprintf("seat %d already bound", seatID)}
	}
	return nil
}

// ReleaseSeatsByBooking frees every seat of a booking and reports the coach
// ids whose availability counters must be recomputed in this transaction.
func (InventoryRepo) ReleaseSeatsByBooking(tx *sql.Tx, bookingID int64) ([]int64, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx required")
	}
	rows, err := tx.Query(`SELECT DISTINCT coach_id FROM seats WHERE booking_id=?`, bookingID)
	if err != nil {
		return nil, err
	}
	coachIDs := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		coachIDs = append(coachIDs, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	if len(coachIDs) == 0 {
		return coachIDs, nil
	}
	if _, err := tx.Exec(`
		UPDATE seats SET is_available=1, booking_id=NULL, passenger_id=NULL
		WHERE booking_id=?`, bookingID); err != nil {
		return nil, err
	}
	return coachIDs, nil
}

// RecomputeCoachAvailability rewrites the cached available_seats counter from
// the authoritative seat rows. Must run in the same transaction as any
// bind/release touching those coaches; the counter is never adjusted
// incrementally.
func (InventoryRepo) RecomputeCoachAvailability(tx *sql.Tx, coachIDs []int64) error {
	if tx == nil {
		return fmt.Errorf("tx required")
	}
	if len(coachIDs) == 0 {
		return nil
	}
	ph := make([]string, len(coachIDs))
	args := make([]any, len(coachIDs))
	for i, id := range coachIDs {
		ph[i] = "?"
		args[i] = id
	}
	_, err := tx.Exec(`
		UPDATE coaches c
		SET c.available_seats = (
			SELECT COUNT(*) FROM seats s WHERE s.coach_id = c.id AND s.is_available = 1
		)
		WHERE c.id IN (`+strings.Join(ph, ",")+`)`, args...)
	return err
}
