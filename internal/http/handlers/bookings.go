package handlers

import (
	"net/http"
	"strconv"

	intconfig "railbook/internal/config"
	"railbook/internal/domain/models"
	"railbook/internal/http/middleware"
	"railbook/internal/repositories"
	"railbook/internal/services"

	"github.com/gin-gonic/gin"
)

var env intconfig.Env

// Configure injects the loaded environment once at router setup.
func Configure(e intconfig.Env) {
	env = e
}

// POST /api/bookings
func CreateBooking(c *gin.Context) {
	var req services.CreateBookingRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	req.CallerID = middleware.GetCallerID(c)

	svc := services.NewAllocator(env)
	svc.RequestID = middleware.GetRequestID(c)

	res, err := svc.CreateBooking(c.Request.Context(), req)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"booking": res,
	})
}

// GET /api/bookings/:id
func GetBooking(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	repo := repositories.BookingRepo{}
	booking, err := repo.GetByID(id)
	if err != nil {
		respondError(c, http.StatusNotFound, "not_found", "booking not found", nil)
		return
	}
	passengers, err := repo.ListPassengers(id)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "failed to load passengers", err)
		return
	}

	resp := gin.H{
		"booking_id":    booking.ID,
		"reference":     booking.Reference,
		"schedule_id":   booking.ScheduleID,
		"class":         booking.ClassCode,
		"quota":         booking.Quota,
		"travel_date":   booking.TravelDate,
		"status":        booking.Status,
		"total_amount":  booking.TotalAmount,
		"refund_amount": booking.RefundAmount,
		"refund_status": booking.RefundStatus,
		"passengers":    passengerViews(passengers),
	}
	if booking.Status == models.BookingWaitlisted {
		snap, err := repositories.WaitlistRepo{}.Snapshot(booking.ScheduleID, booking.ClassCode, booking.ID)
		if err == nil {
			resp["waitlist_position"] = snap.Position
			resp["total_waiting"] = snap.TotalWaiting
		}
	}
	c.JSON(http.StatusOK, resp)
}

// POST /api/bookings/:id/cancel
func CancelBooking(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var body struct {
		Reason string `json:"reason"`
	}
	if c.Request.Body != nil && c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			RespondError(c, http.StatusBadRequest, "invalid payload", err)
			return
		}
	}

	svc := services.NewCancellationService(env)
	svc.RequestID = middleware.GetRequestID(c)

	res, err := svc.CancelBooking(c.Request.Context(), id, body.Reason, middleware.GetCallerID(c))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"booking_id":    res.BookingID,
		"reference":     res.Reference,
		"status":        res.Status,
		"refund_amount": res.RefundAmount,
	})
}

// GET /api/bookings/:id/e-ticket
func GetBookingETicket(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	svc := services.TicketService{RequestID: middleware.GetRequestID(c)}
	data, filename, err := svc.GenerateETicket(id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/pdf", data)
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		respondError(c, http.StatusBadRequest, "invalid_request", "invalid id", nil)
		return 0, false
	}
	return id, true
}

func passengerViews(passengers []models.Passenger) []gin.H {
	out := make([]gin.H, 0, len(passengers))
	for _, p := range passengers {
		v := gin.H{
			"name": p.Name,
			"age":  p.Age,
		}
		if p.CoachNumber > 0 && p.SeatNumber > 0 {
			v["coach_number"] = p.CoachNumber
			v["seat_number"] = p.SeatNumber
		}
		out = append(out, v)
	}
	return out
}
