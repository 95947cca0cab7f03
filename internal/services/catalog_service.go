package services

import (
	"context"
	"strings"

	"busbooking/internal/domain"
	"busbooking/internal/domain/models"
)

// TripCatalog is the read-only view of scheduled trips.
type TripCatalog struct {
	Trips TripStore
}

func (c TripCatalog) EdgesFrom(ctx context.Context, stop string) ([]models.Trip, error) {
	stop = strings.TrimSpace(stop)
	if stop == "" {
		return nil, domain.ValidationError{Field: "stop", Msg: "is required"}
	}
	return c.Trips.EdgesFrom(ctx, stop)
}

func (c TripCatalog) TripByID(ctx context.Context, id int64) (models.Trip, error) {
	if id <= 0 {
		return models.Trip{}, domain.ValidationError{Field: "trip_id", Msg: "must be positive"}
	}
	return c.Trips.TripByID(ctx, id)
}
