package repositories

import (
	"context"

	intdb "busbooking/internal/db"
	"busbooking/internal/domain/models"

	trmsqlx "github.com/avito-tech/go-transaction-manager/drivers/sqlx/v2"
	"github.com/jmoiron/sqlx"
)

// SeatInventoryRepository derives seat occupancy from the booking ledger on
// every call; there is no stored counter.
type SeatInventoryRepository struct {
	DB     *sqlx.DB
	Getter *trmsqlx.CtxGetter
}

func (r SeatInventoryRepository) OccupiedSeats(ctx context.Context, tripID int64, date models.CalendarDate) ([]string, error) {
	out := []string{}
	err := sqlx.SelectContext(ctx, trOrDB(ctx, r.Getter, r.DB), &out, `
		SELECT bs.seat_code
		FROM booking_seats bs
		JOIN bookings b ON b.id = bs.booking_id
		WHERE bs.trip_id = ? AND bs.travel_date = ? AND b.status IN (?, ?)
		ORDER BY bs.seat_code`,
		tripID, date, string(models.BookingPending), string(models.BookingConfirmed))
	if err != nil {
		return nil, intdb.MapError(err, "list occupied seats", "trip")
	}
	return out, nil
}

func (r SeatInventoryRepository) OccupiedCount(ctx context.Context, tripID int64, date models.CalendarDate) (int, error) {
	var n int
	err := sqlx.GetContext(ctx, trOrDB(ctx, r.Getter, r.DB), &n, `
		SELECT COALESCE(SUM(seat_count), 0)
		FROM bookings
		WHERE trip_id = ? AND travel_date = ? AND status IN (?, ?)`,
		tripID, date, string(models.BookingPending), string(models.BookingConfirmed))
	if err != nil {
		return 0, intdb.MapError(err, "count occupied seats", "trip")
	}
	return n, nil
}
