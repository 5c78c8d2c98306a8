package models

import "time"

const (
	WaitlistQueued    = "QUEUED"
	WaitlistConfirmed = "CONFIRMED"
	WaitlistCancelled = "CANCELLED"
)

const (
	PrioritySenior  = 1
	PriorityRegular = 2
)

// WaitlistEntry covers one whole booking group queued for a
// (schedule, class) partition. Positions are dense and 1-based among
// Queued entries of that partition.
type WaitlistEntry struct {
	ID          int64
	ScheduleID  int64
	ClassCode   string
	BookingID   int64
	Position    int
	Priority    int
	Status      string
	QueuedAt    time.Time
	ConfirmedAt *time.Time
}

// Expired reports the display-only state of an entry still queued after its
// schedule departed. Never persisted.
func (e WaitlistEntry) Expired(departsAt, now time.Time) bool {
	return e.Status == WaitlistQueued && now.After(departsAt)
}
