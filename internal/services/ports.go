package services

import (
	"context"
	"time"

	"busbooking/internal/domain/models"
)

// Transactor runs fn as one atomic unit of work. db.TxRunner is the
// production implementation.
type Transactor interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

type TripStore interface {
	EdgesFrom(ctx context.Context, stop string) ([]models.Trip, error)
	TripByID(ctx context.Context, id int64) (models.Trip, error)
	TripsByVehicle(ctx context.Context, plate string) ([]models.Trip, error)
	VehicleByPlate(ctx context.Context, plate string) (models.Vehicle, error)
}

type SeatLedger interface {
	OccupiedSeats(ctx context.Context, tripID int64, date models.CalendarDate) ([]string, error)
	OccupiedCount(ctx context.Context, tripID int64, date models.CalendarDate) (int, error)
}

type BookingStore interface {
	ConflictingSeats(ctx context.Context, tripID int64, date models.CalendarDate, seats []string) ([]string, error)
	Insert(ctx context.Context, b models.Booking) error
	GetByID(ctx context.Context, id string) (models.Booking, error)
	LockByIDs(ctx context.Context, ids []string) ([]models.Booking, error)
	ListByOwner(ctx context.Context, userID string, statuses []models.BookingStatus) ([]models.Booking, error)
	CountByOwner(ctx context.Context, userID string, status models.BookingStatus) (int, error)
	Transition(ctx context.Context, ids []string, from []models.BookingStatus, to models.BookingStatus, at time.Time) (int64, error)
	Confirm(ctx context.Context, ids []string, paymentID string, at time.Time) (int64, error)
	ReleaseSeats(ctx context.Context, ids []string) error
	ExpiredHolds(ctx context.Context, now time.Time) ([]string, error)
	ConfirmedDue(ctx context.Context, through models.CalendarDate) ([]models.CompletionCandidate, error)
}

type PaymentStore interface {
	Insert(ctx context.Context, p models.Payment) error
}

type ReviewStore interface {
	Insert(ctx context.Context, r models.Review) error
}

// TicketNotifier hands a confirmed booking to the ticketing side.
type TicketNotifier interface {
	NotifyConfirmed(ctx context.Context, b models.Booking, trip models.Trip) error
}

func nowUTC(now func() time.Time) time.Time {
	if now != nil {
		return now().UTC()
	}
	return time.Now().UTC()
}
