package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"

	intconfig "railbook/internal/config"
	"railbook/internal/domain/models"
)

type BookingRepo struct {
	DB *sql.DB
}

func (r BookingRepo) db() *sql.DB {
	if r.DB != nil {
		return r.DB
	}
	return intconfig.DB
}

// IsDuplicateKey reports a MySQL unique-key violation (error 1062), e.g. two
// inserts racing the same booking reference.
func IsDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}

const bookingColumns = `id, reference, schedule_id, class_code, quota, travel_date, status,
	total_amount, contact_email, caller_id, cancel_reason, refund_amount, refund_status, created_at, cancelled_at`

func scanBooking(row *sql.Row) (models.Booking, error) {
	var b models.Booking
	var cancelledAt sql.NullTime
	err := row.Scan(&b.ID, &b.Reference, &b.ScheduleID, &b.ClassCode, &b.Quota, &b.TravelDate, &b.Status,
		&b.TotalAmount, &b.ContactEmail, &b.CallerID, &b.CancelReason, &b.RefundAmount, &b.RefundStatus, &b.CreatedAt, &cancelledAt)
	if err != nil {
		return b, err
	}
	if cancelledAt.Valid {
		t := cancelledAt.Time
		b.CancelledAt = &t
	}
	return b, nil
}

func (r BookingRepo) GetByID(id int64) (models.Booking, error) {
	if id <= 0 {
		return models.Booking{}, fmt.Errorf("invalid booking id")
	}
	return scanBooking(r.db().QueryRow(`SELECT `+bookingColumns+` FROM bookings WHERE id=? LIMIT 1`, id))
}

func (r BookingRepo) GetByReference(ref string) (models.Booking, error) {
	if ref == "" {
		return models.Booking{}, sql.ErrNoRows
	}
	return scanBooking(r.db().QueryRow(`SELECT `+bookingColumns+` FROM bookings WHERE reference=? LIMIT 1`, ref))
}

// GetByIDForUpdate locks the booking row for the rest of the transaction.
func (r BookingRepo) GetByIDForUpdate(tx *sql.Tx, id int64) (models.Booking, error) {
	if tx == nil {
		return models.Booking{}, fmt.Errorf("tx required")
	}
	return scanBooking(tx.QueryRow(`SELECT `+bookingColumns+` FROM bookings WHERE id=? LIMIT 1 FOR UPDATE`, id))
}

func (r BookingRepo) ReferenceExists(ref string) (bool, error) {
	var one int
	err := r.db().QueryRow(`SELECT 1 FROM bookings WHERE reference=? LIMIT 1`, ref).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r BookingRepo) InsertBooking(tx *sql.Tx, b models.Booking) (int64, error) {
	if tx == nil {
		return 0, fmt.Errorf("tx required")
	}
	res, err := tx.Exec(`
		INSERT INTO bookings (reference, schedule_id, class_code, quota, travel_date, status, total_amount, contact_email, caller_id, created_at)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		b.Reference, b.ScheduleID, b.ClassCode, b.Quota, b.TravelDate, b.Status, b.TotalAmount, b.ContactEmail, b.CallerID, b.CreatedAt)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r BookingRepo) InsertPassenger(tx *sql.Tx, p models.Passenger) (int64, error) {
	if tx == nil {
		return 0, fmt.Errorf("tx required")
	}
	res, err := tx.Exec(`
		INSERT INTO passengers (booking_id, name, age, gender, seat_pref, coach_number, seat_number)
		VALUES (?,?,?,?,?,?,?)`,
		p.BookingID, p.Name, p.Age, p.Gender, p.SeatPref, p.CoachNumber, p.SeatNumber)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r BookingRepo) SetPassengerSeat(tx *sql.Tx, passengerID int64, coachNumber, seatNumber int) error {
	if tx == nil {
		return fmt.Errorf("tx required")
	}
	_, err := tx.Exec(`UPDATE passengers SET coach_number=?, seat_number=? WHERE id=?`,
		coachNumber, seatNumber, passengerID)
	return err
}

// MarkConfirmed flips a waitlisted booking to confirmed, fixing its charge.
func (r BookingRepo) MarkConfirmed(tx *sql.Tx, bookingID, totalAmount int64) error {
	if tx == nil {
		return fmt.Errorf("tx required")
	}
	_, err := tx.Exec(`UPDATE bookings SET status=?, total_amount=? WHERE id=?`,
		models.BookingConfirmed, totalAmount, bookingID)
	return err
}

func (r BookingRepo) MarkCancelled(tx *sql.Tx, bookingID int64, cancelledAt time.Time, reason string, refundAmount int64, refundStatus string) error {
	if tx == nil {
		return fmt.Errorf("tx required")
	}
	_, err := tx.Exec(`
		UPDATE bookings SET status=?, cancelled_at=?, cancel_reason=?, refund_amount=?, refund_status=?
		WHERE id=?`,
		models.BookingCancelled, cancelledAt, reason, refundAmount, refundStatus, bookingID)
	return err
}

const passengerColumns = `id, booking_id, name, age, gender, seat_pref, coach_number, seat_number`

// ListPassengers returns a booking's passengers in insertion order.
func (r BookingRepo) ListPassengers(bookingID int64) ([]models.Passenger, error) {
	rows, err := r.db().Query(`SELECT `+passengerColumns+` FROM passengers WHERE booking_id=? ORDER BY id ASC`, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPassengers(rows)
}

// ListPassengersTx is the transactional variant used during promotion.
func (r BookingRepo) ListPassengersTx(tx *sql.Tx, bookingID int64) ([]models.Passenger, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx required")
	}
	rows, err := tx.Query(`SELECT `+passengerColumns+` FROM passengers WHERE booking_id=? ORDER BY id ASC`, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPassengers(rows)
}

func collectPassengers(rows *sql.Rows) ([]models.Passenger, error) {
	out := []models.Passenger{}
	for rows.Next() {
		var p models.Passenger
		if err := rows.Scan(&p.ID, &p.BookingID, &p.Name, &p.Age, &p.Gender, &p.SeatPref, &p.CoachNumber, &p.SeatNumber); err != nil {
			return out, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
