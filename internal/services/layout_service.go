package services

import (
	"database/sql"
	"errors"
	"log"
	"strings"

	intconfig "railbook/internal/config"
	"railbook/internal/domain"
	"railbook/internal/domain/models"
	"railbook/internal/repositories"
)

// LayoutService answers coach-layout reads. Availability is computed from
// the seat rows themselves; the cached coach counter is only cross-checked
// so drift shows up in the logs instead of in responses.
type LayoutService struct {
	DB        *sql.DB
	Schedules repositories.ScheduleRepo
}

func (s LayoutService) schedules() repositories.ScheduleRepo {
	if s.Schedules.DB != nil {
		return s.Schedules
	}
	if s.DB != nil {
		return repositories.ScheduleRepo{DB: s.DB}
	}
	return repositories.ScheduleRepo{DB: intconfig.DB}
}

type SeatView struct {
	Number   int    `json:"number"`
	SeatType string `json:"seat_type"`
	Quota    string `json:"quota"`
	Occupied bool   `json:"occupied"`
}

type CoachView struct {
	Number         int        `json:"number"`
	ClassCode      string     `json:"class"`
	BaseFare       int64      `json:"base_fare"`
	TotalSeats     int        `json:"total_seats"`
	AvailableSeats int        `json:"available_seats"`
	Seats          []SeatView `json:"seats"`
}

func (s LayoutService) GetCoachLayout(scheduleID int64, classCode string) ([]CoachView, error) {
	classCode = strings.ToUpper(strings.TrimSpace(classCode))
	if classCode != "" && !models.KnownClass(classCode) {
		return nil, domain.ValidationError{Field: "class", Msg: "unknown class code"}
	}

	repo := s.schedules()
	if _, err := repo.GetByID(scheduleID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFoundError{Resource: "schedule"}
		}
		return nil, domain.InternalError{Msg: "load schedule", Err: err}
	}

	coaches, err := repo.ListCoaches(scheduleID, classCode)
	if err != nil {
		return nil, domain.InternalError{Msg: "list coaches", Err: err}
	}
	seats, err := repo.ListSeats(scheduleID, classCode)
	if err != nil {
		return nil, domain.InternalError{Msg: "list seats", Err: err}
	}

	byCoach := map[int64][]SeatView{}
	freeByCoach := map[int64]int{}
	for _, seat := range seats {
		byCoach[seat.CoachID] = append(byCoach[seat.CoachID], SeatView{
			Number:   seat.SeatNumber,
			SeatType: seat.SeatType,
			Quota:    seat.QuotaTag,
			Occupied: !seat.IsAvailable,
		})
		if seat.IsAvailable {
			freeByCoach[seat.CoachID]++
		}
	}

	out := make([]CoachView, 0, len(coaches))
	for _, c := range coaches {
		free := freeByCoach[c.ID]
		if free != c.AvailableSeats {
			log.Printf("[LAYOUT] counter drift coach=%d cached=%d derived=%d", c.ID, c.AvailableSeats, free)
		}
		out = append(out, CoachView{
			Number:         c.CoachNumber,
			ClassCode:      c.ClassCode,
			BaseFare:       c.BaseFare,
			TotalSeats:     c.TotalSeats,
			AvailableSeats: free,
			Seats:          byCoach[c.ID],
		})
	}
	if len(out) == 0 {
		return nil, domain.NotFoundError{Resource: "coaches"}
	}
	return out, nil
}
