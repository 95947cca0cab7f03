package handlers

import (
	"context"

	"busbooking/internal/domain/models"
	"busbooking/internal/services"
)

type Reservations interface {
	Create(ctx context.Context, req services.HoldRequest) (models.Booking, error)
	Cancel(ctx context.Context, userID, bookingID string) (models.Booking, error)
	ListByOwner(ctx context.Context, userID string, statuses ...models.BookingStatus) ([]models.Booking, error)
	PendingCount(ctx context.Context, userID string) (int, error)
}

type SeatInventory interface {
	OccupiedSeats(ctx context.Context, tripID int64, date models.CalendarDate) ([]string, error)
}

type RouteFinder interface {
	FindRoutes(ctx context.Context, q services.RouteQuery) ([]models.Itinerary, error)
	BusSchedule(ctx context.Context, plate string, date models.CalendarDate) (models.BusSchedule, error)
}

type Settlements interface {
	Settle(ctx context.Context, req services.SettlementRequest) (models.Payment, error)
}

type Reviews interface {
	Submit(ctx context.Context, userID, bookingID string, rating int, comment string) (models.Review, error)
}

type Pinger interface {
	PingContext(ctx context.Context) error
}

// Handler holds the services behind the HTTP surface.
type Handler struct {
	Reservations Reservations
	Inventory    SeatInventory
	Routes       RouteFinder
	Settlements  Settlements
	Reviews      Reviews
	DB           Pinger
}
