package services

import (
	"testing"

	"railbook/internal/domain/models"
	"railbook/internal/repositories"
)

func freeSet() []models.Seat {
	return []models.Seat{
		{ID: 1, CoachID: 10, CoachNumber: 1, SeatNumber: 1, SeatType: models.SeatWindow},
		{ID: 2, CoachID: 10, CoachNumber: 1, SeatNumber: 2, SeatType: models.SeatMiddle},
		{ID: 3, CoachID: 10, CoachNumber: 1, SeatNumber: 3, SeatType: models.SeatAisle},
		{ID: 4, CoachID: 11, CoachNumber: 2, SeatNumber: 1, SeatType: models.SeatWindow},
	}
}

func TestChooseSeats_ScanOrderWhenNoPreference(t *testing.T) {
	chosen := chooseSeats(freeSet(), nil, 2)
	if len(chosen) != 2 {
		t.Fatalf("expected 2 seats, got %d", len(chosen))
	}
	if chosen[0].ID != 1 || chosen[1].ID != 2 {
		t.Fatalf("expected scan order 1,2 got %d,%d", chosen[0].ID, chosen[1].ID)
	}
}

func TestChooseSeats_PreferredTakenFirst(t *testing.T) {
	preferred := []SeatRef{{CoachNumber: 2, SeatNumber: 1}}
	chosen := chooseSeats(freeSet(), preferred, 2)
	if len(chosen) != 2 {
		t.Fatalf("expected 2 seats, got %d", len(chosen))
	}
	if chosen[0].ID != 4 {
		t.Fatalf("preferred seat should come first, got id %d", chosen[0].ID)
	}
	if chosen[1].ID != 1 {
		t.Fatalf("remainder should fill in scan order, got id %d", chosen[1].ID)
	}
}

func TestChooseSeats_UnavailablePreferredFallsBack(t *testing.T) {
	preferred := []SeatRef{{CoachNumber: 9, SeatNumber: 9}}
	chosen := chooseSeats(freeSet(), preferred, 1)
	if len(chosen) != 1 || chosen[0].ID != 1 {
		t.Fatalf("missing preferred seat should fall back to scan order, got %+v", chosen)
	}
}

func TestChooseSeats_InsufficientInventory(t *testing.T) {
	if chosen := chooseSeats(freeSet(), nil, 5); chosen != nil {
		t.Fatalf("expected nil when free set cannot cover group, got %d seats", len(chosen))
	}
	if chosen := chooseSeats(nil, nil, 1); chosen != nil {
		t.Fatalf("expected nil on empty free set")
	}
}

func TestPairSeats_PreferenceMatchedWhenPossible(t *testing.T) {
	passengers := []models.PassengerInput{
		{Name: "A", Age: 30, SeatPref: models.SeatAisle},
		{Name: "B", Age: 32},
	}
	chosen := []models.Seat{
		{ID: 1, SeatType: models.SeatWindow},
		{ID: 3, SeatType: models.SeatAisle},
	}
	assigned := pairSeats(passengers, chosen)
	if assigned[0].ID != 3 {
		t.Fatalf("aisle preference should win seat 3, got %d", assigned[0].ID)
	}
	if assigned[1].ID != 1 {
		t.Fatalf("second passenger should take the remaining seat, got %d", assigned[1].ID)
	}
}

func TestPairSeats_PreferenceNeverDropsASeat(t *testing.T) {
	passengers := []models.PassengerInput{
		{Name: "A", Age: 30, SeatPref: models.SeatWindow},
		{Name: "B", Age: 32, SeatPref: models.SeatWindow},
	}
	chosen := []models.Seat{
		{ID: 1, SeatType: models.SeatWindow},
		{ID: 2, SeatType: models.SeatMiddle},
	}
	assigned := pairSeats(passengers, chosen)
	if assigned[0].ID == 0 || assigned[1].ID == 0 {
		t.Fatalf("every passenger must get a seat, got %+v", assigned)
	}
	if assigned[0].ID == assigned[1].ID {
		t.Fatalf("seat assigned twice")
	}
}

func TestGroupPriority(t *testing.T) {
	regular := []models.PassengerInput{{Name: "A", Age: 30}, {Name: "B", Age: 45}}
	if got := groupPriority(regular, 60); got != models.PriorityRegular {
		t.Fatalf("expected regular priority, got %d", got)
	}
	withSenior := []models.PassengerInput{{Name: "A", Age: 30}, {Name: "B", Age: 64}}
	if got := groupPriority(withSenior, 60); got != models.PrioritySenior {
		t.Fatalf("one senior should lift the whole group, got %d", got)
	}
	if got := groupPriority(withSenior, 0); got != models.PriorityRegular {
		t.Fatalf("disabled threshold should never grant senior priority, got %d", got)
	}
}

func TestEstimateConfirmation(t *testing.T) {
	type snap struct {
		pos, total, promoted int
	}
	cases := []struct {
		name     string
		s        snap
		departed bool
		want     string
	}{
		{"departed", snap{3, 5, 0}, true, "expired"},
		{"not in queue", snap{0, 5, 2}, false, "not-queued"},
		{"within promoted history", snap{2, 5, 3}, false, "high"},
		{"just past history", snap{5, 9, 2}, false, "medium"},
		{"deep in queue", snap{9, 12, 1}, false, "low"},
	}
	for _, tc := range cases {
		got := estimateConfirmation(repositories.QueueSnapshot{
			Position:     tc.s.pos,
			TotalWaiting: tc.s.total,
			Promoted:     tc.s.promoted,
		}, tc.departed)
		if got != tc.want {
			t.Fatalf("%s: got %q want %q", tc.name, got, tc.want)
		}
	}
}
