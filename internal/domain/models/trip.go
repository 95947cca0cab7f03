package models

// Vehicle is a bus identified by its plate.
type Vehicle struct {
	Plate      string `db:"plate" json:"bus_id"`
	Capacity   int    `db:"capacity" json:"capacity"`
	Fare       int64  `db:"fare" json:"fare"`
	OperatorID string `db:"operator_id" json:"operator_id,omitempty"`
}

// Trip is a daily scheduled run of a vehicle between two stops. Capacity and
// Fare are copied from the owning vehicle when the trip is read.
type Trip struct {
	ID           int64     `db:"id" json:"trip_id"`
	VehiclePlate string    `db:"vehicle_plate" json:"bus_id"`
	Origin       string    `db:"origin" json:"from"`
	Destination  string    `db:"destination" json:"to"`
	Departure    TimeOfDay `db:"departure_time" json:"departure"`
	Arrival      TimeOfDay `db:"arrival_time" json:"arrival"`
	Capacity     int       `db:"capacity" json:"capacity"`
	Fare         int64     `db:"fare" json:"fare"`
}

// Overnight reports whether the trip arrives on the day after it departs.
func (t Trip) Overnight() bool {
	return t.Arrival.Before(t.Departure)
}

// ArrivalDate is the calendar date the trip arrives when it departs on d.
func (t Trip) ArrivalDate(d CalendarDate) CalendarDate {
	if t.Overnight() {
		return d.AddDays(1)
	}
	return d
}

// ScheduledTrip is one row of a vehicle's schedule for a given date.
type ScheduledTrip struct {
	TripID      int64     `json:"trip_id"`
	From        string    `json:"from"`
	To          string    `json:"to"`
	Departure   TimeOfDay `json:"departure"`
	Arrival     TimeOfDay `json:"arrival"`
	Overnight   bool      `json:"overnight"`
	BookedSeats int       `json:"bookedSeats"`
}

type BusSchedule struct {
	Vehicle Vehicle         `json:"busDetails"`
	Date    CalendarDate    `json:"date"`
	Trips   []ScheduledTrip `json:"routes"`
}
