package models

import "time"

// Coach classes, ordered roughly by comfort.
const (
	ClassSleeper = "SL"
	ClassAC3     = "3A"
	ClassAC2     = "2A"
	ClassAC1     = "1A"
)

// Quotas are eligibility filters over the same physical seats, resolved at
// read time. A general request draws from general seats only; a tagged
// request draws from its tag plus the general pool.
const (
	QuotaGeneral = "GN"
	QuotaLadies  = "LD"
	QuotaSenior  = "SR"
)

// Seat types are informational, used for preference matching only.
const (
	SeatWindow = "WINDOW"
	SeatAisle  = "AISLE"
	SeatMiddle = "MIDDLE"
)

func KnownClass(code string) bool {
	switch code {
	case ClassSleeper, ClassAC3, ClassAC2, ClassAC1:
		return true
	}
	return false
}

func KnownQuota(code string) bool {
	switch code {
	case QuotaGeneral, QuotaLadies, QuotaSenior:
		return true
	}
	return false
}

// Schedule is one train run on one travel date.
type Schedule struct {
	ID          int64
	TrainNumber string
	TrainName   string
	Source      string
	Destination string
	TravelDate  string
	DepartsAt   time.Time
}

// Coach belongs to one schedule and one class. AvailableSeats is a derived
// counter, recomputed in the same transaction as every seat-state change.
type Coach struct {
	ID             int64
	ScheduleID     int64
	CoachNumber    int
	ClassCode      string
	BaseFare       int64 // paise
	TotalSeats     int
	AvailableSeats int
}

// Seat is free or bound to exactly one active passenger/booking pair.
type Seat struct {
	ID          int64
	CoachID     int64
	CoachNumber int
	SeatNumber  int
	SeatType    string
	QuotaTag    string
	IsAvailable bool
	BookingID   int64 // 0 when free
	PassengerID int64 // 0 when free
	BaseFare    int64 // paise, denormalized from the coach for fare sums
}
