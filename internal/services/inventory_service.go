package services

import (
	"context"

	"busbooking/internal/domain/models"
)

// SeatInventory answers occupancy questions for one trip on one date.
type SeatInventory struct {
	Catalog TripCatalog
	Ledger  SeatLedger
}

// OccupiedSeats lists seats held by pending or confirmed bookings. Unknown trips are NotFound.
func (s SeatInventory) OccupiedSeats(ctx context.Context, tripID int64, date models.CalendarDate) ([]string, error) {
	if _, err := s.Catalog.TripByID(ctx, tripID); err != nil {
		return nil, err
	}
	return s.Ledger.OccupiedSeats(ctx, tripID, date)
}

func (s SeatInventory) OccupiedCount(ctx context.Context, tripID int64, date models.CalendarDate) (int, error) {
	return s.Ledger.OccupiedCount(ctx, tripID, date)
}

// Available is capacity minus occupied seats; it goes negative if the vehicle
// shrank below the seats already sold.
func (s SeatInventory) Available(ctx context.Context, trip models.Trip, date models.CalendarDate) (int, error) {
	n, err := s.Ledger.OccupiedCount(ctx, trip.ID, date)
	if err != nil {
		return 0, err
	}
	return trip.Capacity - n, nil
}
