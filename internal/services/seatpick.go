package services

import (
	"railbook/internal/domain/models"
)

// SeatRef identifies a seat the way passengers do: coach number + seat number.
type SeatRef struct {
	CoachNumber int `json:"coach_number"`
	SeatNumber  int `json:"seat_number"`
}

// chooseSeats selects count seats from the free set, which is already in scan
// order (coach number asc, seat number asc). Preferred seats that are still
// free are taken first, in the order requested; the remainder fills in scan
// order so allocation stays reproducible. Returns nil when the free set
// cannot cover the group.
func chooseSeats(free []models.Seat, preferred []SeatRef, count int) []models.Seat {
	if count <= 0 || len(free) < count {
		return nil
	}

	taken := make(map[int64]bool, count)
	chosen := make([]models.Seat, 0, count)

	for _, ref := range preferred {
		if len(chosen) == count {
			break
		}
		for _, s := range free {
			if taken[s.ID] {
				continue
			}
			if s.CoachNumber == ref.CoachNumber && s.SeatNumber == ref.SeatNumber {
				taken[s.ID] = true
				chosen = append(chosen, s)
				break
			}
		}
	}

	for _, s := range free {
		if len(chosen) == count {
			break
		}
		if taken[s.ID] {
			continue
		}
		taken[s.ID] = true
		chosen = append(chosen, s)
	}

	if len(chosen) < count {
		return nil
	}
	return chosen
}

// pairSeats assigns chosen seats to passengers. Passengers with a seat-type
// preference get a matching seat when one is left; everyone else takes the
// next seat in order. Purely cosmetic: preferences never affect capacity.
func pairSeats(passengers []models.PassengerInput, chosen []models.Seat) []models.Seat {
	assigned := make([]models.Seat, len(passengers))
	used := make([]bool, len(chosen))

	for i, p := range passengers {
		if p.SeatPref == "" {
			continue
		}
		for j, s := range chosen {
			if !used[j] && s.SeatType == p.SeatPref {
				assigned[i] = s
				used[j] = true
				break
			}
		}
	}

	next := 0
	for i := range passengers {
		if assigned[i].ID != 0 {
			continue
		}
		for next < len(chosen) && used[next] {
			next++
		}
		if next < len(chosen) {
			assigned[i] = chosen[next]
			used[next] = true
		}
	}
	return assigned
}

// groupPriority derives the waitlist priority of a whole group: one senior
// citizen queue-jumps the regular tier.
func groupPriority(passengers []models.PassengerInput, seniorAge int) int {
	for _, p := range passengers {
		if seniorAge > 0 && p.Age >= seniorAge {
			return models.PrioritySenior
		}
	}
	return models.PriorityRegular
}
