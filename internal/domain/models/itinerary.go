package models

import "time"

// Leg is one trip occurrence inside an itinerary, bound to a calendar date.
type Leg struct {
	TripID         int64        `json:"trip_id"`
	VehiclePlate   string       `json:"bus_id"`
	From           string       `json:"from"`
	To             string       `json:"to"`
	Fare           int64        `json:"fare"`
	Departure      TimeOfDay    `json:"departure"`
	Arrival        TimeOfDay    `json:"arrival"`
	DepartureDate  CalendarDate `json:"departureDate"`
	ArrivalDate    CalendarDate `json:"arrivalDate"`
	Capacity       int          `json:"capacity"`
	AvailableSeats int          `json:"availableSeats"`
}

func NewLeg(trip Trip, date CalendarDate, occupied int) Leg {
	return Leg{
		TripID:         trip.ID,
		VehiclePlate:   trip.VehiclePlate,
		From:           trip.Origin,
		To:             trip.Destination,
		Fare:           trip.Fare,
		Departure:      trip.Departure,
		Arrival:        trip.Arrival,
		DepartureDate:  date,
		ArrivalDate:    trip.ArrivalDate(date),
		Capacity:       trip.Capacity,
		AvailableSeats: trip.Capacity - occupied,
	}
}

// Durations are computed on UTC wall clocks so zone transitions do not skew them.
func (l Leg) DepartsAt() time.Time { return l.DepartureDate.At(l.Departure, time.UTC) }
func (l Leg) ArrivesAt() time.Time { return l.ArrivalDate.At(l.Arrival, time.UTC) }

type Itinerary struct {
	Legs            []Leg `json:"legs"`
	Transfers       int   `json:"transfers"`
	DurationMinutes int64 `json:"duration_minutes"`
	TotalFare       int64 `json:"total_fare"`
}

func NewItinerary(legs []Leg) Itinerary {
	it := Itinerary{Legs: legs}
	if len(legs) == 0 {
		return it
	}
	it.Transfers = len(legs) - 1
	for _, l := range legs {
		it.TotalFare += l.Fare
	}
	it.DurationMinutes = int64(it.Duration() / time.Minute)
	return it
}

// Duration is the elapsed time from the first departure to the last arrival.
func (it Itinerary) Duration() time.Duration {
	if len(it.Legs) == 0 {
		return 0
	}
	return it.Legs[len(it.Legs)-1].ArrivesAt().Sub(it.Legs[0].DepartsAt())
}
