package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"railbook/internal/http/middleware"
	"railbook/internal/services"

	"github.com/gin-gonic/gin"
)

// GET /api/schedules/:id/layout?class=SL
func GetCoachLayout(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	class := strings.TrimSpace(c.Query("class"))

	svc := services.LayoutService{}
	coaches, err := svc.GetCoachLayout(id, class)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"schedule_id": id,
		"coaches":     coaches,
	})
}

// GET /api/schedules/:id/waitlist?class=SL&booking_id=123
func GetWaitlistInfo(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	class := strings.ToUpper(strings.TrimSpace(c.Query("class")))
	if class == "" {
		respondError(c, http.StatusBadRequest, "invalid_request", "class is required", nil)
		return
	}
	var bookingID int64
	if raw := strings.TrimSpace(c.Query("booking_id")); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n <= 0 {
			respondError(c, http.StatusBadRequest, "invalid_request", "invalid booking_id", nil)
			return
		}
		bookingID = n
	}

	svc := services.NewWaitlistService(env)
	svc.RequestID = middleware.GetRequestID(c)

	info, err := svc.Info(id, class, bookingID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}
