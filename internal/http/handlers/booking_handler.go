package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"busbooking/internal/domain"
	"busbooking/internal/domain/models"
	"busbooking/internal/services"

	"github.com/gin-gonic/gin"
)

type bookSeatRequest struct {
	BusID         string   `json:"bus_id"`
	TripID        int64    `json:"trip_id"`
	DepartureDate string   `json:"departure_date"`
	SeatNumbers   []string `json:"seatNumbers"`
	Price         int64    `json:"price"`
}

// BookSeat handles POST /booking/book-seat.
func (h Handler) BookSeat(c *gin.Context) {
	id, ok := identityOrAbort(c)
	if !ok {
		return
	}
	var req bookSeatRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	if req.TripID == 0 || len(req.SeatNumbers) == 0 || req.Price == 0 || strings.TrimSpace(req.DepartureDate) == "" {
		RespondError(c, http.StatusBadRequest, "missing required fields", nil)
		return
	}
	date, err := parseDate("departure_date", req.DepartureDate)
	if err != nil {
		RespondDomainError(c, err)
		return
	}

	b, err := h.Reservations.Create(c.Request.Context(), services.HoldRequest{
		UserID: id.UserID,
		TripID: req.TripID,
		Date:   date,
		Seats:  req.SeatNumbers,
		Price:  req.Price,
	})
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message":     "booking created",
		"bookingId":   b.ID,
		"status":      b.Status,
		"expires_at":  b.ExpiresAt,
		"seatNumbers": b.Seats,
	})
}

// BookedSeats handles GET /booking/booked-seats/:tripId/:date.
func (h Handler) BookedSeats(c *gin.Context) {
	tripID, err := strconv.ParseInt(c.Param("tripId"), 10, 64)
	if err != nil || tripID <= 0 {
		RespondDomainError(c, domain.ValidationError{Field: "tripId", Msg: "must be a positive integer"})
		return
	}
	date, err := parseDate("date", c.Param("date"))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	seats, err := h.Inventory.OccupiedSeats(c.Request.Context(), tripID, date)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, seats)
}

// PendingBookings handles GET /booking/pending.
func (h Handler) PendingBookings(c *gin.Context) {
	h.listBookings(c, []models.BookingStatus{models.BookingPending})
}

// UserBookings handles GET /booking/user-bookings?status=pending,confirmed.
func (h Handler) UserBookings(c *gin.Context) {
	var statuses []models.BookingStatus
	for _, raw := range strings.Split(c.Query("status"), ",") {
		raw = strings.ToLower(strings.TrimSpace(raw))
		if raw == "" {
			continue
		}
		st, ok := models.ParseBookingStatus(raw)
		if !ok {
			RespondDomainError(c, domain.ValidationError{Field: "status", Msg: "unknown status " + raw})
			return
		}
		statuses = append(statuses, st)
	}
	h.listBookings(c, statuses)
}

func (h Handler) listBookings(c *gin.Context, statuses []models.BookingStatus) {
	id, ok := identityOrAbort(c)
	if !ok {
		return
	}
	bookings, err := h.Reservations.ListByOwner(c.Request.Context(), id.UserID, statuses...)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, bookings)
}

// PendingCount handles GET /booking/pending-count.
func (h Handler) PendingCount(c *gin.Context) {
	id, ok := identityOrAbort(c)
	if !ok {
		return
	}
	n, err := h.Reservations.PendingCount(c.Request.Context(), id.UserID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": n})
}

// CancelBooking handles DELETE /booking/cancel/:bookingId.
func (h Handler) CancelBooking(c *gin.Context) {
	id, ok := identityOrAbort(c)
	if !ok {
		return
	}
	b, err := h.Reservations.Cancel(c.Request.Context(), id.UserID, c.Param("bookingId"))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "booking canceled", "booking": b})
}
