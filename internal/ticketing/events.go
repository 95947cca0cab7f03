package ticketing

import (
	"time"

	"busbooking/internal/domain/models"
)

const TopicBookingConfirmed = "booking.confirmed"

// BookingConfirmed is published once per booking after a settlement commits.
type BookingConfirmed struct {
	BookingID    string              `json:"booking_id"`
	UserID       string              `json:"user_id"`
	PaymentID    string              `json:"payment_id"`
	TripID       int64               `json:"trip_id"`
	VehiclePlate string              `json:"bus_id"`
	From         string              `json:"from"`
	To           string              `json:"to"`
	TravelDate   models.CalendarDate `json:"departure_date"`
	Departure    models.TimeOfDay    `json:"departure"`
	Arrival      models.TimeOfDay    `json:"arrival"`
	Seats        []string            `json:"seatNumbers"`
	Price        int64               `json:"price"`
	ConfirmedAt  time.Time           `json:"confirmed_at"`
}

func NewBookingConfirmed(b models.Booking, trip models.Trip) BookingConfirmed {
	return BookingConfirmed{
		BookingID:    b.ID,
		UserID:       b.UserID,
		PaymentID:    b.PaymentID,
		TripID:       b.TripID,
		VehiclePlate: trip.VehiclePlate,
		From:         trip.Origin,
		To:           trip.Destination,
		TravelDate:   b.TravelDate,
		Departure:    trip.Departure,
		Arrival:      trip.Arrival,
		Seats:        b.Seats,
		Price:        b.Price,
		ConfirmedAt:  b.UpdatedAt,
	}
}

// ArrivalDate is the calendar date the bus reaches To.
func (e BookingConfirmed) ArrivalDate() models.CalendarDate {
	return models.Trip{Departure: e.Departure, Arrival: e.Arrival}.ArrivalDate(e.TravelDate)
}
