package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
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

// AllocatorService creates bookings: it seats a whole passenger group from
// free inventory or queues the group as one waitlist unit. All seat reads and
// writes for one request happen inside a single (schedule, class) partition
// transaction.
type AllocatorService struct {
	DB        *sql.DB
	Bookings  repositories.BookingRepo
	Inventory repositories.InventoryRepo
	Waitlist  repositories.WaitlistRepo
	Schedules repositories.ScheduleRepo

	MaxGroupSize int
	SeniorAge    int
	LockWaitSec  int
	LockRetries  int

	Clock     func() time.Time
	Notifier  notify.Notifier
	Payments  payment.Gateway
	RequestID string
}

func NewAllocator(env intconfig.Env) AllocatorService {
	return AllocatorService{
		MaxGroupSize: env.MaxGroupSize,
		SeniorAge:    env.SeniorAge,
		LockWaitSec:  env.LockWaitSec,
		LockRetries:  env.LockRetries,
		Notifier:     notify.NewMailer(env),
		Payments:     payment.LogGateway{},
	}
}

func (s AllocatorService) db() *sql.DB {
	if s.DB != nil {
		return s.DB
	}
	return intconfig.DB
}

func (s AllocatorService) bookings() repositories.BookingRepo {
	if s.Bookings.DB != nil {
		return s.Bookings
	}
	return repositories.BookingRepo{DB: s.db()}
}

func (s AllocatorService) schedules() repositories.ScheduleRepo {
	if s.Schedules.DB != nil {
		return s.Schedules
	}
	return repositories.ScheduleRepo{DB: s.db()}
}

func (s AllocatorService) now() time.Time {
	if s.Clock != nil {
		return s.Clock()
	}
	return utils.NowUTC()
}

type CreateBookingRequest struct {
	ScheduleID     int64                   `json:"schedule_id" binding:"required"`
	ClassCode      string                  `json:"class" binding:"required"`
	Quota          string                  `json:"quota"`
	Passengers     []models.PassengerInput `json:"passengers" binding:"required"`
	AutoAssign     bool                    `json:"auto_assign"`
	PreferredSeats []SeatRef               `json:"preferred_seats"`
	ContactEmail   string                  `json:"contact_email"`
	CallerID       string                  `json:"-"`
}

type SeatAllocation struct {
	Passenger   string `json:"passenger"`
	CoachNumber int    `json:"coach_number"`
	SeatNumber  int    `json:"seat_number"`
	SeatType    string `json:"seat_type"`
}

type BookingResult struct {
	BookingID        int64            `json:"booking_id"`
	Reference        string           `json:"reference"`
	Status           string           `json:"status"`
	TotalAmount      int64            `json:"total_amount"`
	SeatAllocations  []SeatAllocation `json:"seat_allocations,omitempty"`
	WaitlistPosition int              `json:"waitlist_position,omitempty"`
}

// CreateBooking validates the request, then allocates inside one partition
// transaction. Insufficient inventory is not an error: the whole group is
// queued instead (no partial seating), and the caller sees a Waitlisted
// result with its position.
func (s AllocatorService) CreateBooking(ctx context.Context, req CreateBookingRequest) (BookingResult, error) {
	var out BookingResult

	sched, err := s.validate(&req)
	if err != nil {
		return out, err
	}

	now := s.now()
	key := intdb.PartitionKey(req.ScheduleID, req.ClassCode)
	err = intdb.WithPartitionLock(ctx, s.db(), key, s.LockWaitSec, s.LockRetries, func(tx *sql.Tx) error {
		// A fresh reference per attempt: the collision check is advisory, so
		// a code that loses the insert race against the unique index is
		// abandoned with its transaction and a new one is drawn on retry.
		ref, err := GenerateReference(s.bookings())
		if err != nil {
			return domain.InternalError{Msg: "reference generation", Err: err}
		}
		res, err := s.allocateLocked(tx, req, sched, ref, now)
		if err != nil {
			return err
		}
		out = res
		return nil
	})
	if err != nil {
		return BookingResult{}, err
	}

	utils.LogEvent(s.RequestID, "allocator", "create_booking",
		fmt.Sprintf("booking=%s schedule=%d class=%s status=%s group=%d",
			out.Reference, req.ScheduleID, req.ClassCode, out.Status, len(req.Passengers)))

	s.afterCommit(out, req, sched)
	return out, nil
}

func (s AllocatorService) validate(req *CreateBookingRequest) (models.Schedule, error) {
	var sched models.Schedule

	if req.ScheduleID <= 0 {
		return sched, domain.ValidationError{Field: "schedule_id", Msg: "required"}
	}
	req.ClassCode = strings.ToUpper(strings.TrimSpace(req.ClassCode))
	if !models.KnownClass(req.ClassCode) {
		return sched, domain.ValidationError{Field: "class", Msg: "unknown class code"}
	}
	req.Quota = strings.ToUpper(strings.TrimSpace(req.Quota))
	if req.Quota == "" {
		req.Quota = models.QuotaGeneral
	}
	if !models.KnownQuota(req.Quota) {
		return sched, domain.ValidationError{Field: "quota", Msg: "unknown quota code"}
	}

	max := s.MaxGroupSize
	if max <= 0 {
		max = 6
	}
	if len(req.Passengers) == 0 {
		return sched, domain.ValidationError{Field: "passengers", Msg: "at least one passenger required"}
	}
	if len(req.Passengers) > max {
		return sched, domain.ValidationError{Field: "passengers", Msg: fmt.Sprintf("group size exceeds %d", max)}
	}
	for i := range req.Passengers {
		p := &req.Passengers[i]
		p.Name = strings.TrimSpace(p.Name)
		if p.Name == "" {
			return sched, domain.ValidationError{Field: "passengers", Msg: "name required"}
		}
		if p.Age <= 0 || p.Age > 120 {
			return sched, domain.ValidationError{Field: "passengers", Msg: "age out of range"}
		}
		p.SeatPref = strings.ToUpper(strings.TrimSpace(p.SeatPref))
	}
	if !req.AutoAssign && len(req.PreferredSeats) < len(req.Passengers) {
		return sched, domain.ValidationError{Field: "preferred_seats", Msg: "one seat per passenger required unless auto_assign is set"}
	}

	sched, err := s.schedules().GetByID(req.ScheduleID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return sched, domain.NotFoundError{Resource: "schedule"}
		}
		return sched, domain.InternalError{Msg: "load schedule", Err: err}
	}
	if !s.now().Before(sched.DepartsAt) {
		return sched, domain.ValidationError{Field: "schedule_id", Msg: "schedule already departed"}
	}
	return sched, nil
}

func (s AllocatorService) allocateLocked(tx *sql.Tx, req CreateBookingRequest, sched models.Schedule, ref string, now time.Time) (BookingResult, error) {
	var out BookingResult
	bookings := s.bookings()

	free, err := s.Inventory.FreeSeatsForUpdate(tx, req.ScheduleID, req.ClassCode, req.Quota)
	if err != nil {
		return out, domain.InternalError{Msg: "read free seats", Err: err}
	}

	booking := models.Booking{
		Reference:    ref,
		ScheduleID:   req.ScheduleID,
		ClassCode:    req.ClassCode,
		Quota:        req.Quota,
		TravelDate:   sched.TravelDate,
		ContactEmail: strings.TrimSpace(req.ContactEmail),
		CallerID:     req.CallerID,
		CreatedAt:    now,
	}

	if len(free) < len(req.Passengers) {
		// Inventory exhausted: queue the whole group as one unit.
		return s.waitlistLocked(tx, bookings, booking, req, now)
	}

	chosen := chooseSeats(free, req.PreferredSeats, len(req.Passengers))
	if chosen == nil {
		return out, domain.ValidationError{Field: "preferred_seats", Msg: "requested seats are not available"}
	}
	assigned := pairSeats(req.Passengers, chosen)

	var total int64
	for _, seat := range assigned {
		total += seat.BaseFare
	}
	booking.Status = models.BookingConfirmed
	booking.TotalAmount = total

	bookingID, err := bookings.InsertBooking(tx, booking)
	if err != nil {
		if repositories.IsDuplicateKey(err) {
			return out, domain.ConflictError{Resource: "reference", Msg: "booking reference already taken", Err: err}
		}
		return out, domain.InternalError{Msg: "insert booking", Err: err}
	}

	coachSet := map[int64]bool{}
	allocations := make([]SeatAllocation, 0, len(req.Passengers))
	for i, pin := range req.Passengers {
		seat := assigned[i]
		pid, err := bookings.InsertPassenger(tx, models.Passenger{
			BookingID:   bookingID,
			Name:        pin.Name,
			Age:         pin.Age,
			Gender:      pin.Gender,
			SeatPref:    pin.SeatPref,
			CoachNumber: seat.CoachNumber,
			SeatNumber:  seat.SeatNumber,
		})
		if err != nil {
			return out, domain.InternalError{Msg: "insert passenger", Err: err}
		}
		if err := s.Inventory.BindSeat(tx, seat.ID, bookingID, pid); err != nil {
			return out, err
		}
		coachSet[seat.CoachID] = true
		allocations = append(allocations, SeatAllocation{
			Passenger:   pin.Name,
			CoachNumber: seat.CoachNumber,
			SeatNumber:  seat.SeatNumber,
			SeatType:    seat.SeatType,
		})
	}

	if err := s.Inventory.RecomputeCoachAvailability(tx, keys(coachSet)); err != nil {
		return out, domain.InternalError{Msg: "recompute availability", Err: err}
	}

	out = BookingResult{
		BookingID:       bookingID,
		Reference:       ref,
		Status:          models.BookingConfirmed,
		TotalAmount:     total,
		SeatAllocations: allocations,
	}
	return out, nil
}

func (s AllocatorService) waitlistLocked(tx *sql.Tx, bookings repositories.BookingRepo, booking models.Booking, req CreateBookingRequest, now time.Time) (BookingResult, error) {
	var out BookingResult

	booking.Status = models.BookingWaitlisted
	bookingID, err := bookings.InsertBooking(tx, booking)
	if err != nil {
		if repositories.IsDuplicateKey(err) {
			return out, domain.ConflictError{Resource: "reference", Msg: "booking reference already taken", Err: err}
		}
		return out, domain.InternalError{Msg: "insert booking", Err: err}
	}
	for _, pin := range req.Passengers {
		if _, err := bookings.InsertPassenger(tx, models.Passenger{
			BookingID: bookingID,
			Name:      pin.Name,
			Age:       pin.Age,
			Gender:    pin.Gender,
			SeatPref:  pin.SeatPref,
		}); err != nil {
			return out, domain.InternalError{Msg: "insert passenger", Err: err}
		}
	}

	queued, err := s.Waitlist.QueuedCount(tx, req.ScheduleID, req.ClassCode)
	if err != nil {
		return out, domain.InternalError{Msg: "count queue", Err: err}
	}
	position := queued + 1
	if _, err := s.Waitlist.InsertEntry(tx, models.WaitlistEntry{
		ScheduleID: req.ScheduleID,
		ClassCode:  req.ClassCode,
		BookingID:  bookingID,
		Position:   position,
		Priority:   groupPriority(req.Passengers, s.SeniorAge),
		QueuedAt:   now,
	}); err != nil {
		return out, domain.InternalError{Msg: "insert waitlist entry", Err: err}
	}

	out = BookingResult{
		BookingID:        bookingID,
		Reference:        booking.Reference,
		Status:           models.BookingWaitlisted,
		WaitlistPosition: position,
	}
	return out, nil
}

func (s AllocatorService) afterCommit(res BookingResult, req CreateBookingRequest, sched models.Schedule) {
	ev := notify.Event{
		Reference:  res.Reference,
		Email:      strings.TrimSpace(req.ContactEmail),
		TrainName:  sched.TrainName,
		TravelDate: sched.TravelDate,
	}
	switch res.Status {
	case models.BookingConfirmed:
		ev.Kind = notify.EventConfirmed
		ev.Detail = fmt.Sprintf("%d seat(s) confirmed, total %s", len(res.SeatAllocations), utils.FormatRupees(res.TotalAmount))
		notify.Dispatch(s.Notifier, ev)
		payment.Charge(s.Payments, res.Reference, res.TotalAmount)
	case models.BookingWaitlisted:
		ev.Kind = notify.EventWaitlisted
		ev.Detail = fmt.Sprintf("waitlisted at position %d", res.WaitlistPosition)
		notify.Dispatch(s.Notifier, ev)
	}
}

func keys(set map[int64]bool) []int64 {
	out := make([]int64, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	return out
}
