package models

import "time"

// MaxSeatCodeLen is the width of booking_seats.seat_code.
const MaxSeatCodeLen = 16

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCanceled  BookingStatus = "canceled"
	BookingCompleted BookingStatus = "completed"
)

func ParseBookingStatus(s string) (BookingStatus, bool) {
	switch st := BookingStatus(s); st {
	case BookingPending, BookingConfirmed, BookingCanceled, BookingCompleted:
		return st, true
	}
	return "", false
}

// Terminal states never transition again.
func (s BookingStatus) Terminal() bool {
	return s == BookingCanceled || s == BookingCompleted
}

// Live bookings hold their seats.
func (s BookingStatus) Live() bool {
	return s == BookingPending || s == BookingConfirmed
}

// Booking is a seat hold for one trip on one calendar date.
type Booking struct {
	ID         string        `json:"id"`
	UserID     string        `json:"user_id"`
	TripID     int64         `json:"trip_id"`
	TravelDate CalendarDate  `json:"departure_date"`
	Seats      []string      `json:"seatNumbers"`
	Price      int64         `json:"price"`
	Status     BookingStatus `json:"booking_status"`
	CreatedAt  time.Time     `json:"created_at"`
	ExpiresAt  time.Time     `json:"expires_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
	PaymentID  string        `json:"payment_id,omitempty"`
	Trip       *Trip         `json:"trip,omitempty"`
}

// CompletionCandidate is a confirmed booking with the schedule needed to
// compute when it actually arrives.
type CompletionCandidate struct {
	BookingID  string       `db:"id"`
	TravelDate CalendarDate `db:"travel_date"`
	Departure  TimeOfDay    `db:"departure_time"`
	Arrival    TimeOfDay    `db:"arrival_time"`
}

func (c CompletionCandidate) ArrivesAt(loc *time.Location) time.Time {
	trip := Trip{Departure: c.Departure, Arrival: c.Arrival}
	return trip.ArrivalDate(c.TravelDate).At(c.Arrival, loc)
}
