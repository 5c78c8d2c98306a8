package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"
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

// CancellationService unwinds a booking: seats go back to inventory, the
// refund is computed from the lead-time band table, and the freed partition
// gets a promotion scan. The scan runs after the cancellation commits; a
// promotion failure never rolls the cancellation back.
type CancellationService struct {
	DB        *sql.DB
	Bookings  repositories.BookingRepo
	Inventory repositories.InventoryRepo
	Waitlist  repositories.WaitlistRepo
	Schedules repositories.ScheduleRepo

	CancelCutoff time.Duration
	RefundBands  []intconfig.RefundBand
	LockWaitSec  int
	LockRetries  int

	Clock     func() time.Time
	Notifier  notify.Notifier
	Payments  payment.Gateway
	Promoter  *WaitlistService
	RequestID string
}

func NewCancellationService(env intconfig.Env) CancellationService {
	promoter := NewWaitlistService(env)
	return CancellationService{
		CancelCutoff: env.CancelCutoff,
		RefundBands:  env.RefundBands,
		LockWaitSec:  env.LockWaitSec,
		LockRetries:  env.LockRetries,
		Notifier:     notify.NewMailer(env),
		Payments:     payment.LogGateway{},
		Promoter:     &promoter,
	}
}

func (s CancellationService) db() *sql.DB {
	if s.DB != nil {
		return s.DB
	}
	return intconfig.DB
}

func (s CancellationService) bookings() repositories.BookingRepo {
	if s.Bookings.DB != nil {
		return s.Bookings
	}
	return repositories.BookingRepo{DB: s.db()}
}

func (s CancellationService) waitlist() repositories.WaitlistRepo {
	if s.Waitlist.DB != nil {
		return s.Waitlist
	}
	return repositories.WaitlistRepo{DB: s.db()}
}

func (s CancellationService) schedules() repositories.ScheduleRepo {
	if s.Schedules.DB != nil {
		return s.Schedules
	}
	return repositories.ScheduleRepo{DB: s.db()}
}

func (s CancellationService) now() time.Time {
	if s.Clock != nil {
		return s.Clock()
	}
	return utils.NowUTC()
}

type CancelResult struct {
	BookingID    int64  `json:"booking_id"`
	Reference    string `json:"reference"`
	Status       string `json:"status"`
	RefundAmount int64  `json:"refund_amount"`
}

// CancelBooking reverses one booking. Cancelling an already-cancelled booking
// reports not-found and never touches seats again. For confirmed bookings the
// cancellation window and refund bands are evaluated against the injected
// clock, then the release + status flip commit as one partition transaction.
func (s CancellationService) CancelBooking(ctx context.Context, bookingID int64, reason, callerID string) (CancelResult, error) {
	var out CancelResult
	if bookingID <= 0 {
		return out, domain.ValidationError{Field: "booking_id", Msg: "invalid id"}
	}
	reason = strings.TrimSpace(reason)

	booking, err := s.bookings().GetByID(bookingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return out, domain.NotFoundError{Resource: "booking"}
		}
		return out, domain.InternalError{Msg: "load booking", Err: err}
	}
	if booking.Status == models.BookingCancelled {
		return out, domain.NotFoundError{Resource: "active booking"}
	}

	sched, err := s.schedules().GetByID(booking.ScheduleID)
	if err != nil {
		return out, domain.InternalError{Msg: "load schedule", Err: err}
	}

	now := s.now()
	lead := sched.DepartsAt.Sub(now)

	// Fast-fail the policy check before taking the partition lock; the
	// authoritative check re-runs on the locked row.
	if booking.Status == models.BookingConfirmed && !CancellationOpen(s.CancelCutoff, lead) {
		return out, domain.PolicyError{Rule: "cancellation window", Msg: "cancellation window closed"}
	}

	var refund int64
	key := intdb.PartitionKey(booking.ScheduleID, booking.ClassCode)
	err = intdb.WithPartitionLock(ctx, s.db(), key, s.LockWaitSec, s.LockRetries, func(tx *sql.Tx) error {
		amount, err := s.cancelLocked(tx, bookingID, reason, lead, now)
		if err != nil {
			return err
		}
		refund = amount
		return nil
	})
	if err != nil {
		return out, err
	}

	utils.LogEvent(s.RequestID, "cancel", "cancel_booking",
		fmt.Sprintf("booking=%s schedule=%d class=%s refund=%d caller=%s",
			booking.Reference, booking.ScheduleID, booking.ClassCode, refund, callerID))

	// Promotion runs as its own atomic step on the freed partition; the
	// cancellation above is already committed.
	if s.Promoter != nil {
		if _, err := s.Promoter.PromoteForPartition(ctx, booking.ScheduleID, booking.ClassCode); err != nil {
			log.Printf("[CANCEL] promotion scan failed for schedule=%d class=%s: %v",
				booking.ScheduleID, booking.ClassCode, err)
		}
	}

	if refund > 0 {
		payment.Refund(s.Payments, booking.Reference, refund)
	}
	notify.Dispatch(s.Notifier, notify.Event{
		Kind:       notify.EventCancelled,
		Reference:  booking.Reference,
		Email:      booking.ContactEmail,
		TrainName:  sched.TrainName,
		TravelDate: sched.TravelDate,
		Detail:     fmt.Sprintf("booking cancelled, refund %s", utils.FormatRupees(refund)),
	})

	return CancelResult{
		BookingID:    bookingID,
		Reference:    booking.Reference,
		Status:       models.BookingCancelled,
		RefundAmount: refund,
	}, nil
}

func (s CancellationService) cancelLocked(tx *sql.Tx, bookingID int64, reason string, lead time.Duration, now time.Time) (int64, error) {
	bookings := s.bookings()
	waitlist := s.waitlist()

	// Re-check under the lock: the booking may have been cancelled or
	// promoted since the unlocked read.
	booking, err := bookings.GetByIDForUpdate(tx, bookingID)
	if err != nil {
		return 0, domain.InternalError{Msg: "lock booking", Err: err}
	}

	var refund int64
	switch booking.Status {
	case models.BookingCancelled:
		return 0, domain.NotFoundError{Resource: "active booking"}

	case models.BookingWaitlisted:
		// Nothing was charged while queued; drop the entry and close ranks.
		entry, err := waitlist.GetQueuedByBooking(tx, bookingID)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return 0, domain.InternalError{Msg: "load waitlist entry", Err: err}
		}
		if err == nil {
			if err := waitlist.MarkCancelled(tx, entry.ID); err != nil {
				return 0, domain.InternalError{Msg: "cancel waitlist entry", Err: err}
			}
			if err := waitlist.RenumberQueued(tx, entry.ScheduleID, entry.ClassCode); err != nil {
				return 0, domain.InternalError{Msg: "renumber queue", Err: err}
			}
		}

	case models.BookingConfirmed:
		if !CancellationOpen(s.CancelCutoff, lead) {
			return 0, domain.PolicyError{Rule: "cancellation window", Msg: "cancellation window closed"}
		}
		refund = RefundFor(s.RefundBands, booking.TotalAmount, lead)
		coachIDs, err := s.Inventory.ReleaseSeatsByBooking(tx, bookingID)
		if err != nil {
			return 0, domain.InternalError{Msg: "release seats", Err: err}
		}
		if err := s.Inventory.RecomputeCoachAvailability(tx, coachIDs); err != nil {
			return 0, domain.InternalError{Msg: "recompute availability", Err: err}
		}
	}

	refundStatus := models.RefundNone
	if refund > 0 {
		refundStatus = models.RefundPending
	}
	if err := bookings.MarkCancelled(tx, bookingID, now, reason, refund, refundStatus); err != nil {
		return 0, domain.InternalError{Msg: "mark cancelled", Err: err}
	}
	return refund, nil
}
