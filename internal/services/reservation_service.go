package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"busbooking/internal/domain"
	"busbooking/internal/domain/models"
	"busbooking/internal/metrics"
	"busbooking/internal/utils"

	"github.com/google/uuid"
)

const DefaultHoldDuration = time.Hour

type HoldRequest struct {
	UserID string
	TripID int64
	Date   models.CalendarDate
	Seats  []string
	Price  int64
}

// ReservationService owns the booking state machine:
// pending -> confirmed -> completed, with pending|confirmed -> canceled.
type ReservationService struct {
	Trips        TripStore
	Bookings     BookingStore
	Tx           Transactor
	HoldDuration time.Duration
	Now          func() time.Time
	NewID        func() string
}

func (s ReservationService) holdDuration() time.Duration {
	if s.HoldDuration > 0 {
		return s.HoldDuration
	}
	return DefaultHoldDuration
}

func (s ReservationService) newID() string {
	if s.NewID != nil {
		return s.NewID()
	}
	return uuid.NewString()
}

// Create places a pending hold on the requested seats. The conflict check and
// the insert run in one transaction; the live-seat unique key settles any race
// the row locks miss, so two overlapping holds never both succeed.
func (s ReservationService) Create(ctx context.Context, req HoldRequest) (models.Booking, error) {
	req.UserID = strings.TrimSpace(req.UserID)
	if req.UserID == "" {
		return models.Booking{}, domain.ValidationError{Field: "user", Msg: "is required"}
	}
	if req.TripID <= 0 {
		return models.Booking{}, domain.ValidationError{Field: "trip_id", Msg: "must be positive"}
	}
	if req.Date.IsZero() {
		return models.Booking{}, domain.ValidationError{Field: "departure_date", Msg: "is required"}
	}
	if req.Price <= 0 {
		return models.Booking{}, domain.ValidationError{Field: "price", Msg: "must be positive"}
	}
	if len(req.Seats) == 0 {
		return models.Booking{}, domain.ValidationError{Field: "seatNumbers", Msg: "at least one seat is required"}
	}
	seats, err := utils.NormalizeSeatCodes(req.Seats, models.MaxSeatCodeLen)
	if err != nil {
		return models.Booking{}, domain.ValidationError{Field: "seatNumbers", Msg: err.Error(), Err: err}
	}

	trip, err := s.Trips.TripByID(ctx, req.TripID)
	if err != nil {
		return models.Booking{}, err
	}
	if trip.Capacity > 0 && len(seats) > trip.Capacity {
		return models.Booking{}, domain.ValidationError{
			Field: "seatNumbers",
			Msg:   fmt.Sprintf("trip seats %d passengers, %d requested", trip.Capacity, len(seats)),
		}
	}

	now := nowUTC(s.Now)
	booking := models.Booking{
		ID:         s.newID(),
		UserID:     req.UserID,
		TripID:     trip.ID,
		TravelDate: req.Date,
		Seats:      seats,
		Price:      req.Price,
		Status:     models.BookingPending,
		CreatedAt:  now,
		ExpiresAt:  now.Add(s.holdDuration()),
		UpdatedAt:  now,
	}

	err = s.Tx.Do(ctx, func(ctx context.Context) error {
		taken, err := s.Bookings.ConflictingSeats(ctx, booking.TripID, booking.TravelDate, booking.Seats)
		if err != nil {
			return err
		}
		if len(taken) > 0 {
			return domain.SeatConflictError{Seats: taken}
		}
		return s.Bookings.Insert(ctx, booking)
	})
	if conflict, ok := domain.AsSeatConflict(err); ok {
		metrics.BookingHolds.WithLabelValues("conflict").Inc()
		if len(conflict.Seats) == 0 {
			// Lost the race on the unique key; read back who won.
			if taken, lookupErr := s.Bookings.ConflictingSeats(ctx, booking.TripID, booking.TravelDate, booking.Seats); lookupErr == nil {
				conflict.Seats = taken
			}
		}
		return models.Booking{}, conflict
	}
	if err != nil {
		metrics.BookingHolds.WithLabelValues("error").Inc()
		return models.Booking{}, err
	}

	metrics.BookingHolds.WithLabelValues("created").Inc()
	utils.LogEvent(utils.RequestID(ctx), "booking", "create",
		fmt.Sprintf("booking=%s trip=%d date=%s seats=%s", booking.ID, booking.TripID, booking.TravelDate, strings.Join(booking.Seats, ",")))
	return booking, nil
}

// Cancel moves a live booking to canceled and releases its seats. Canceling a
// booking that is already canceled or completed returns it unchanged.
// Bookings owned by someone else are reported as not found.
func (s ReservationService) Cancel(ctx context.Context, userID, bookingID string) (models.Booking, error) {
	userID = strings.TrimSpace(userID)
	bookingID = strings.TrimSpace(bookingID)
	if bookingID == "" {
		return models.Booking{}, domain.ValidationError{Field: "bookingId", Msg: "is required"}
	}

	var out models.Booking
	err := s.Tx.Do(ctx, func(ctx context.Context) error {
		locked, err := s.Bookings.LockByIDs(ctx, []string{bookingID})
		if err != nil {
			return err
		}
		if len(locked) == 0 || locked[0].UserID != userID {
			return domain.NotFoundError{Resource: "booking"}
		}
		b := locked[0]
		if b.Status.Terminal() {
			out = b
			return nil
		}
		now := nowUTC(s.Now)
		if _, err := s.Bookings.Transition(ctx, []string{b.ID},
			[]models.BookingStatus{models.BookingPending, models.BookingConfirmed}, models.BookingCanceled, now); err != nil {
			return err
		}
		if err := s.Bookings.ReleaseSeats(ctx, []string{b.ID}); err != nil {
			return err
		}
		b.Status = models.BookingCanceled
		b.UpdatedAt = now
		out = b
		return nil
	})
	if err != nil {
		return models.Booking{}, err
	}
	utils.LogEvent(utils.RequestID(ctx), "booking", "cancel", "booking="+out.ID+" status="+string(out.Status))
	return out, nil
}

func (s ReservationService) Get(ctx context.Context, userID, bookingID string) (models.Booking, error) {
	b, err := s.Bookings.GetByID(ctx, strings.TrimSpace(bookingID))
	if err != nil {
		return models.Booking{}, err
	}
	if b.UserID != strings.TrimSpace(userID) {
		return models.Booking{}, domain.NotFoundError{Resource: "booking"}
	}
	return b, nil
}

// ListByOwner returns the caller's bookings, optionally filtered by status.
func (s ReservationService) ListByOwner(ctx context.Context, userID string, statuses ...models.BookingStatus) ([]models.Booking, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, domain.ValidationError{Field: "user", Msg: "is required"}
	}
	return s.Bookings.ListByOwner(ctx, userID, statuses)
}

func (s ReservationService) PendingCount(ctx context.Context, userID string) (int, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return 0, domain.ValidationError{Field: "user", Msg: "is required"}
	}
	return s.Bookings.CountByOwner(ctx, userID, models.BookingPending)
}
