package repositories

import (
	"context"
	"strings"

	intdb "busbooking/internal/db"
	"busbooking/internal/domain/models"

	trmsqlx "github.com/avito-tech/go-transaction-manager/drivers/sqlx/v2"
	"github.com/jmoiron/sqlx"
)

const tripColumns = `
	t.id, t.vehicle_plate, t.origin, t.destination, t.departure_time, t.arrival_time,
	v.capacity, v.fare`

// TripRepository reads the trip catalog. Trips without a registered vehicle are
// invisible.
type TripRepository struct {
	DB     *sqlx.DB
	Getter *trmsqlx.CtxGetter
}

func (r TripRepository) EdgesFrom(ctx context.Context, stop string) ([]models.Trip, error) {
	out := []models.Trip{}
	err := sqlx.SelectContext(ctx, trOrDB(ctx, r.Getter, r.DB), &out, `
		SELECT `+tripColumns+`
		FROM trips t
		JOIN vehicles v ON v.plate = t.vehicle_plate
		WHERE t.origin = ?
		ORDER BY t.departure_time, t.id`, strings.TrimSpace(stop))
	if err != nil {
		return nil, intdb.MapError(err, "list trips from stop", "trip")
	}
	return out, nil
}

func (r TripRepository) TripByID(ctx context.Context, id int64) (models.Trip, error) {
	var out models.Trip
	err := sqlx.GetContext(ctx, trOrDB(ctx, r.Getter, r.DB), &out, `
		SELECT `+tripColumns+`
		FROM trips t
		JOIN vehicles v ON v.plate = t.vehicle_plate
		WHERE t.id = ?`, id)
	if err != nil {
		return models.Trip{}, intdb.MapError(err, "get trip", "trip")
	}
	return out, nil
}

func (r TripRepository) TripsByVehicle(ctx context.Context, plate string) ([]models.Trip, error) {
	out := []models.Trip{}
	err := sqlx.SelectContext(ctx, trOrDB(ctx, r.Getter, r.DB), &out, `
		SELECT `+tripColumns+`
		FROM trips t
		JOIN vehicles v ON v.plate = t.vehicle_plate
		WHERE t.vehicle_plate = ?
		ORDER BY t.departure_time, t.id`, strings.TrimSpace(plate))
	if err != nil {
		return nil, intdb.MapError(err, "list vehicle trips", "trip")
	}
	return out, nil
}

func (r TripRepository) VehicleByPlate(ctx context.Context, plate string) (models.Vehicle, error) {
	var out models.Vehicle
	err := sqlx.GetContext(ctx, trOrDB(ctx, r.Getter, r.DB), &out, `
		SELECT plate, capacity, fare, operator_id
		FROM vehicles
		WHERE plate = ?`, strings.TrimSpace(plate))
	if err != nil {
		return models.Vehicle{}, intdb.MapError(err, "get vehicle", "vehicle")
	}
	return out, nil
}
