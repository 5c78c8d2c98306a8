package models

import "time"

const (
	BookingConfirmed  = "CONFIRMED"
	BookingWaitlisted = "WAITLISTED"
	BookingCancelled  = "CANCELLED"
)

const (
	RefundNone    = ""
	RefundPending = "PENDING"
)

type Booking struct {
	ID           int64
	Reference    string
	ScheduleID   int64
	ClassCode    string
	Quota        string
	TravelDate   string
	Status       string
	TotalAmount  int64 // paise
	ContactEmail string
	CallerID     string
	CreatedAt    time.Time
	CancelledAt  *time.Time
	CancelReason string
	RefundAmount int64
	RefundStatus string
}

// Passenger outcome is either a bound (CoachNumber, SeatNumber) or nothing
// while the booking is waitlisted. SeniorAt reports waitlist-priority
// eligibility for a configured age threshold.
type Passenger struct {
	ID          int64
	BookingID   int64
	Name        string
	Age         int
	Gender      string
	SeatPref    string
	CoachNumber int // 0 when unseated
	SeatNumber  int // 0 when unseated
}

func (p Passenger) SeniorAt(threshold int) bool {
	return threshold > 0 && p.Age >= threshold
}

// PassengerInput is the request-side shape for one traveller.
type PassengerInput struct {
	Name     string `json:"name" binding:"required"`
	Age      int    `json:"age" binding:"required,min=1,max=120"`
	Gender   string `json:"gender"`
	SeatPref string `json:"seat_pref"`
}
