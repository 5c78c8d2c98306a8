package services

import (
	"bytes"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/phpdave11/gofpdf"

	intconfig "railbook/internal/config"
	"railbook/internal/domain"
	"railbook/internal/domain/models"
	"railbook/internal/repositories"
	"railbook/internal/utils"
)

// TicketService renders the e-ticket PDF for a confirmed booking.
type TicketService struct {
	DB        *sql.DB
	Bookings  repositories.BookingRepo
	Schedules repositories.ScheduleRepo
	RequestID string
}

func (s TicketService) db() *sql.DB {
	if s.DB != nil {
		return s.DB
	}
	return intconfig.DB
}

func (s TicketService) bookings() repositories.BookingRepo {
	if s.Bookings.DB != nil {
		return s.Bookings
	}
	return repositories.BookingRepo{DB: s.db()}
}

func (s TicketService) schedules() repositories.ScheduleRepo {
	if s.Schedules.DB != nil {
		return s.Schedules
	}
	return repositories.ScheduleRepo{DB: s.db()}
}

func (s TicketService) GenerateETicket(bookingID int64) ([]byte, string, error) {
	booking, err := s.bookings().GetByID(bookingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", domain.NotFoundError{Resource: "booking"}
		}
		return nil, "", domain.InternalError{Msg: "load booking", Err: err}
	}
	if booking.Status != models.BookingConfirmed {
		return nil, "", domain.ValidationError{Field: "booking", Msg: "e-ticket available for confirmed bookings only"}
	}

	sched, err := s.schedules().GetByID(booking.ScheduleID)
	if err != nil {
		return nil, "", domain.InternalError{Msg: "load schedule", Err: err}
	}
	passengers, err := s.bookings().ListPassengers(bookingID)
	if err != nil {
		return nil, "", domain.InternalError{Msg: "load passengers", Err: err}
	}

	utils.LogEvent(s.RequestID, "ticket", "generate_eticket", fmt.Sprintf("booking=%s", booking.Reference))
	return buildETicketPDF(booking, sched, passengers)
}

func buildETicketPDF(b models.Booking, sched models.Schedule, passengers []models.Passenger) ([]byte, string, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("E-Ticket", false)
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "E-TICKET")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 12)
	lines := []string{
		fmt.Sprintf("Booking Ref  : %s", b.Reference),
		fmt.Sprintf("Train        : %s %s", sched.TrainNumber, sched.TrainName),
		fmt.Sprintf("Route        : %s -> %s", sched.Source, sched.Destination),
		fmt.Sprintf("Travel Date  : %s", sched.TravelDate),
		fmt.Sprintf("Departure    : %s", utils.FormatDateTime(sched.DepartsAt)),
		fmt.Sprintf("Class/Quota  : %s / %s", b.ClassCode, b.Quota),
		fmt.Sprintf("Total Fare   : %s", utils.FormatRupees(b.TotalAmount)),
	}
	for _, line := range lines {
		pdf.Cell(0, 7, line)
		pdf.Ln(7)
	}

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 7, "Passengers:")
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "", 11)
	for i, p := range passengers {
		pdf.Cell(0, 6, fmt.Sprintf("%d) %s (age %d)  Coach %d Seat %d", i+1, p.Name, p.Age, p.CoachNumber, p.SeatNumber))
		pdf.Ln(6)
	}

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "I", 10)
	pdf.MultiCell(0, 6, "Carry a valid photo ID for every passenger. Present this e-ticket at boarding.", "", "", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, "", domain.InternalError{Msg: "render pdf", Err: err}
	}
	filename := fmt.Sprintf("ETICKET_%s.pdf", safeFilenamePart(b.Reference))
	return buf.Bytes(), filename, nil
}

func safeFilenamePart(s string) string {
	s = strings.TrimSpace(s)
	var sb strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-' || r == '_':
			sb.WriteRune(r)
		default:
			sb.WriteByte('_')
		}
	}
	return sb.String()
}
