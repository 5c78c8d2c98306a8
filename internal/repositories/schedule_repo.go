package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	intconfig "railbook/internal/config"
	"railbook/internal/domain/models"
)

type ScheduleRepo struct {
	DB *sql.DB
}

func (r ScheduleRepo) db() *sql.DB {
	if r.DB != nil {
		return r.DB
	}
	return intconfig.DB
}

func (r ScheduleRepo) GetByID(id int64) (models.Schedule, error) {
	var s models.Schedule
	if id <= 0 {
		return s, fmt.Errorf("invalid schedule id")
	}
	err := r.db().QueryRow(`
		SELECT id, train_number, train_name, source, destination, travel_date, departs_at
		FROM schedules WHERE id=? LIMIT 1`, id).
		Scan(&s.ID, &s.TrainNumber, &s.TrainName, &s.Source, &s.Destination, &s.TravelDate, &s.DepartsAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return s, sql.ErrNoRows
		}
		return s, err
	}
	return s, nil
}

// InsertSchedule seeds one train run. Used by ops tooling and tests; the
// admin surface that manages trains lives outside this service.
func (r ScheduleRepo) InsertSchedule(s models.Schedule) (int64, error) {
	res, err := r.db().Exec(`
		INSERT INTO schedules (train_number, train_name, source, destination, travel_date, departs_at)
		VALUES (?,?,?,?,?,?)`,
		s.TrainNumber, s.TrainName, s.Source, s.Destination, s.TravelDate, s.DepartsAt)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r ScheduleRepo) InsertCoach(c models.Coach) (int64, error) {
	res, err := r.db().Exec(`
		INSERT INTO coaches (schedule_id, coach_number, class_code, base_fare, total_seats, available_seats)
		VALUES (?,?,?,?,?,?)`,
		c.ScheduleID, c.CoachNumber, c.ClassCode, c.BaseFare, c.TotalSeats, c.TotalSeats)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r ScheduleRepo) InsertSeat(s models.Seat) (int64, error) {
	res, err := r.db().Exec(`
		INSERT INTO seats (coach_id, seat_number, seat_type, quota_tag, is_available)
		VALUES (?,?,?,?,1)`,
		s.CoachID, s.SeatNumber, s.SeatType, s.QuotaTag)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ListCoaches returns coaches of a schedule ordered by coach number,
// optionally filtered to one class.
func (r ScheduleRepo) ListCoaches(scheduleID int64, classCode string) ([]models.Coach, error) {
	if scheduleID <= 0 {
		return nil, fmt.Errorf("invalid schedule id")
	}
	query := `
		SELECT id, schedule_id, coach_number, class_code, base_fare, total_seats, available_seats
		FROM coaches WHERE schedule_id=?`
	args := []any{scheduleID}
	if strings.TrimSpace(classCode) != "" {
		query += ` AND class_code=?`
		args = append(args, classCode)
	}
	query += ` ORDER BY coach_number ASC`

	rows, err := r.db().Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Coach{}
	for rows.Next() {
		var c models.Coach
		if err := rows.Scan(&c.ID, &c.ScheduleID, &c.CoachNumber, &c.ClassCode, &c.BaseFare, &c.TotalSeats, &c.AvailableSeats); err != nil {
			return out, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ListSeats returns every seat of a schedule (optionally one class) in
// deterministic scan order: coach number first, seat number second.
func (r ScheduleRepo) ListSeats(scheduleID int64, classCode string) ([]models.Seat, error) {
	if scheduleID <= 0 {
		return nil, fmt.Errorf("invalid schedule id")
	}
	query := `
		SELECT s.id, s.coach_id, c.coach_number, s.seat_number, s.seat_type, s.quota_tag,
		       s.is_available, COALESCE(s.booking_id, 0), COALESCE(s.passenger_id, 0), c.base_fare
		FROM seats s
		JOIN coaches c ON c.id = s.coach_id
		WHERE c.schedule_id=?`
	args := []any{scheduleID}
	if strings.TrimSpace(classCode) != "" {
		query += ` AND c.class_code=?`
		args = append(args, classCode)
	}
	query += ` ORDER BY c.coach_number ASC, s.seat_number ASC`

	rows, err := r.db().Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Seat{}
	for rows.Next() {
		var s models.Seat
		if err := rows.Scan(&s.ID, &s.CoachID, &s.CoachNumber, &s.SeatNumber, &s.SeatType, &s.QuotaTag,
			&s.IsAvailable, &s.BookingID, &s.PassengerID, &s.BaseFare); err != nil {
			return out, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
