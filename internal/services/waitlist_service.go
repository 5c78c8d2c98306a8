package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	intconfig "railbook/internal/config"
	intdb "railbook/internal/db"
	"railbook/internal/domain"
	"railbook/internal/domain/models"
	"railbook/internal/notify"
	"railbook/internal/payment"
	"railbook/internal/repositories"
	"railbook/internal/utils"
)

// WaitlistService promotes queued groups when capacity frees up and answers
// queue-standing lookups.
//
// Promotion policy: entries are scanned in (priority, position) order, but a
// group larger than the remaining capacity is skipped, not blocked on — a
// smaller group further back may fill seats the larger group cannot use yet.
// Capacity-conserving rather than strictly work-conserving FIFO.
type WaitlistService struct {
	DB        *sql.DB
	Bookings  repositories.BookingRepo
	Inventory repositories.InventoryRepo
	Waitlist  repositories.WaitlistRepo
	Schedules repositories.ScheduleRepo

	LockWaitSec int
	LockRetries int

	Clock     func() time.Time
	Notifier  notify.Notifier
	Payments  payment.Gateway
	RequestID string
}

func NewWaitlistService(env intconfig.Env) WaitlistService {
	return WaitlistService{
		LockWaitSec: env.LockWaitSec,
		LockRetries: env.LockRetries,
		Notifier:    notify.NewMailer(env),
		Payments:    payment.LogGateway{},
	}
}

func (s WaitlistService) db() *sql.DB {
	if s.DB != nil {
		return s.DB
	}
	return intconfig.DB
}

func (s WaitlistService) bookings() repositories.BookingRepo {
	if s.Bookings.DB != nil {
		return s.Bookings
	}
	return repositories.BookingRepo{DB: s.db()}
}

func (s WaitlistService) waitlist() repositories.WaitlistRepo {
	if s.Waitlist.DB != nil {
		return s.Waitlist
	}
	return repositories.WaitlistRepo{DB: s.db()}
}

func (s WaitlistService) schedules() repositories.ScheduleRepo {
	if s.Schedules.DB != nil {
		return s.Schedules
	}
	return repositories.ScheduleRepo{DB: s.db()}
}

func (s WaitlistService) now() time.Time {
	if s.Clock != nil {
		return s.Clock()
	}
	return utils.NowUTC()
}

// Promotion reports one waitlist entry converted to seat bindings.
type Promotion struct {
	BookingID   int64
	Reference   string
	Email       string
	TotalAmount int64
	Seats       int
}

// PromoteForPartition runs one promotion scan for a (schedule, class)
// partition inside its own partition transaction. It binds seats exactly as
// the allocator does, flips booking and entry to confirmed, and renumbers the
// remaining queue densely before committing.
func (s WaitlistService) PromoteForPartition(ctx context.Context, scheduleID int64, classCode string) ([]Promotion, error) {
	promoted := []Promotion{}

	key := intdb.PartitionKey(scheduleID, classCode)
	err := intdb.WithPartitionLock(ctx, s.db(), key, s.LockWaitSec, s.LockRetries, func(tx *sql.Tx) error {
		promoted = promoted[:0]
		res, err := s.promoteLocked(tx, scheduleID, classCode)
		if err != nil {
			return err
		}
		promoted = res
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(promoted) > 0 {
		utils.LogEvent(s.RequestID, "waitlist", "promote",
			fmt.Sprintf("schedule=%d class=%s promoted=%d", scheduleID, classCode, len(promoted)))
		s.afterCommit(promoted, scheduleID, classCode)
	}
	return promoted, nil
}

func (s WaitlistService) promoteLocked(tx *sql.Tx, scheduleID int64, classCode string) ([]Promotion, error) {
	bookings := s.bookings()
	waitlist := s.waitlist()
	now := s.now()

	entries, err := waitlist.ListQueuedForUpdate(tx, scheduleID, classCode)
	if err != nil {
		return nil, domain.InternalError{Msg: "list queue", Err: err}
	}
	if len(entries) == 0 {
		return nil, nil
	}

	promoted := []Promotion{}
	anyMoved := false

	for _, entry := range entries {
		booking, err := bookings.GetByIDForUpdate(tx, entry.BookingID)
		if err != nil {
			return nil, domain.InternalError{Msg: "load queued booking", Err: err}
		}
		passengers, err := bookings.ListPassengersTx(tx, entry.BookingID)
		if err != nil {
			return nil, domain.InternalError{Msg: "load passengers", Err: err}
		}
		if len(passengers) == 0 {
			continue
		}

		// Earlier promotions in this scan already shrank the free set, so
		// re-read per entry under the same lock.
		free, err := s.Inventory.FreeSeatsForUpdate(tx, scheduleID, classCode, booking.Quota)
		if err != nil {
			return nil, domain.InternalError{Msg: "read free seats", Err: err}
		}
		if len(free) < len(passengers) {
			// Group does not fit the freed capacity: leave it queued and let
			// smaller groups behind it fill the gap.
			continue
		}

		chosen := free[:len(passengers)]
		coachSet := map[int64]bool{}
		var total int64
		for i, p := range passengers {
			seat := chosen[i]
			if err := s.Inventory.BindSeat(tx, seat.ID, booking.ID, p.ID); err != nil {
				return nil, err
			}
			if err := bookings.SetPassengerSeat(tx, p.ID, seat.CoachNumber, seat.SeatNumber); err != nil {
				return nil, domain.InternalError{Msg: "set passenger seat", Err: err}
			}
			coachSet[seat.CoachID] = true
			total += seat.BaseFare
		}
		if err := s.Inventory.RecomputeCoachAvailability(tx, keys(coachSet)); err != nil {
			return nil, domain.InternalError{Msg: "recompute availability", Err: err}
		}
		if err := bookings.MarkConfirmed(tx, booking.ID, total); err != nil {
			return nil, domain.InternalError{Msg: "confirm booking", Err: err}
		}
		if err := waitlist.MarkConfirmed(tx, entry.ID, now); err != nil {
			return nil, domain.InternalError{Msg: "confirm waitlist entry", Err: err}
		}

		anyMoved = true
		promoted = append(promoted, Promotion{
			BookingID:   booking.ID,
			Reference:   booking.Reference,
			Email:       booking.ContactEmail,
			TotalAmount: total,
			Seats:       len(passengers),
		})
	}

	if anyMoved {
		if err := waitlist.RenumberQueued(tx, scheduleID, classCode); err != nil {
			return nil, domain.InternalError{Msg: "renumber queue", Err: err}
		}
	}
	return promoted, nil
}

func (s WaitlistService) afterCommit(promoted []Promotion, scheduleID int64, classCode string) {
	sched, err := s.schedules().GetByID(scheduleID)
	if err != nil {
		sched = models.Schedule{}
	}
	for _, p := range promoted {
		notify.Dispatch(s.Notifier, notify.Event{
			Kind:       notify.EventPromoted,
			Reference:  p.Reference,
			Email:      p.Email,
			TrainName:  sched.TrainName,
			TravelDate: sched.TravelDate,
			Detail:     fmt.Sprintf("%d seat(s) confirmed from waitlist, total %s", p.Seats, utils.FormatRupees(p.TotalAmount)),
		})
		payment.Charge(s.Payments, p.Reference, p.TotalAmount)
	}
}

// WaitlistInfo is the caller-facing queue standing for one booking.
type WaitlistInfo struct {
	Position              int    `json:"position"`
	TotalWaiting          int    `json:"total_waiting"`
	EstimatedConfirmation string `json:"estimated_confirmation"`
}

// Info reads a booking's standing in a partition queue. Display only: no
// partition lock is taken.
func (s WaitlistService) Info(scheduleID int64, classCode string, bookingID int64) (WaitlistInfo, error) {
	var out WaitlistInfo

	sched, err := s.schedules().GetByID(scheduleID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return out, domain.NotFoundError{Resource: "schedule"}
		}
		return out, domain.InternalError{Msg: "load schedule", Err: err}
	}
	if !models.KnownClass(classCode) {
		return out, domain.ValidationError{Field: "class", Msg: "unknown class code"}
	}

	snap, err := s.waitlist().Snapshot(scheduleID, classCode, bookingID)
	if err != nil {
		return out, domain.InternalError{Msg: "read queue snapshot", Err: err}
	}

	out.Position = snap.Position
	out.TotalWaiting = snap.TotalWaiting
	out.EstimatedConfirmation = estimateConfirmation(snap, s.now().After(sched.DepartsAt))
	return out, nil
}

// estimateConfirmation is a coarse hint from promotion history: the more
// entries this partition has already promoted relative to the queue position,
// the better the odds. Entries still queued past departure are expired.
func estimateConfirmation(snap repositories.QueueSnapshot, departed bool) string {
	switch {
	case departed:
		return "expired"
	case snap.Position == 0:
		return "not-queued"
	case snap.Position <= snap.Promoted:
		return "high"
	case snap.Position <= 2*snap.Promoted+1:
		return "medium"
	default:
		return "low"
	}
}
