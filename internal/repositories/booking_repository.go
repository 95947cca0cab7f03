package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	intdb "busbooking/internal/db"
	"busbooking/internal/domain"
	"busbooking/internal/domain/models"

	trmsqlx "github.com/avito-tech/go-transaction-manager/drivers/sqlx/v2"
	"github.com/jmoiron/sqlx"
)

// expiryBatchSize bounds how many holds one sweep transaction locks.
const expiryBatchSize = 500

type bookingRow struct {
	ID         string              `db:"id"`
	UserID     string              `db:"user_id"`
	TripID     int64               `db:"trip_id"`
	TravelDate models.CalendarDate `db:"travel_date"`
	SeatCount  int                 `db:"seat_count"`
	Price      int64               `db:"price"`
	Status     string              `db:"status"`
	CreatedAt  time.Time           `db:"created_at"`
	ExpiresAt  time.Time           `db:"expires_at"`
	UpdatedAt  time.Time           `db:"updated_at"`
	PaymentID  sql.NullString      `db:"payment_id"`
}

func (row bookingRow) toModel() models.Booking {
	return models.Booking{
		ID:         row.ID,
		UserID:     row.UserID,
		TripID:     row.TripID,
		TravelDate: row.TravelDate,
		Price:      row.Price,
		Status:     models.BookingStatus(row.Status),
		CreatedAt:  row.CreatedAt,
		ExpiresAt:  row.ExpiresAt,
		UpdatedAt:  row.UpdatedAt,
		PaymentID:  row.PaymentID.String,
	}
}

type bookingTripRow struct {
	bookingRow
	VehiclePlate string           `db:"vehicle_plate"`
	Origin       string           `db:"origin"`
	Destination  string           `db:"destination"`
	Departure    models.TimeOfDay `db:"departure_time"`
	Arrival      models.TimeOfDay `db:"arrival_time"`
}

type seatRow struct {
	BookingID string `db:"booking_id"`
	SeatCode  string `db:"seat_code"`
}

const bookingColumns = `b.id, b.user_id, b.trip_id, b.travel_date, b.seat_count, b.price, b.status,
	b.created_at, b.expires_at, b.updated_at, b.payment_id`

// BookingRepository is the booking ledger. Seat claims live in booking_seats,
// guarded by the uniq_live_seat key.
type BookingRepository struct {
	DB     *sqlx.DB
	Getter *trmsqlx.CtxGetter
}

func (r BookingRepository) conn(ctx context.Context) trmsqlx.Tr {
	return trOrDB(ctx, r.Getter, r.DB)
}

// ConflictingSeats locks and returns the requested seats already claimed by a
// non-canceled booking on the same trip and date.
func (r BookingRepository) ConflictingSeats(ctx context.Context, tripID int64, date models.CalendarDate, seats []string) ([]string, error) {
	if len(seats) == 0 {
		return nil, nil
	}
	query, args, err := expandIn(r.DB, `
		SELECT seat_code
		FROM booking_seats
		WHERE trip_id = ? AND travel_date = ? AND live = 1 AND seat_code IN (?)
		ORDER BY seat_code
		FOR UPDATE`, tripID, date, seats)
	if err != nil {
		return nil, domain.InternalError{Msg: "build seat conflict query", Err: err}
	}
	taken := []string{}
	if err := sqlx.SelectContext(ctx, r.conn(ctx), &taken, query, args...); err != nil {
		return nil, intdb.MapError(err, "check seat conflicts", "booking")
	}
	return taken, nil
}

// Insert stores a booking with its seat claims. A claim that collides with a
// live seat surfaces as domain.SeatConflictError.
func (r BookingRepository) Insert(ctx context.Context, b models.Booking) error {
	tr := r.conn(ctx)
	_, err := tr.ExecContext(ctx, `
		INSERT INTO bookings (id, user_id, trip_id, travel_date, seat_count, price, status, created_at, expires_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.UserID, b.TripID, b.TravelDate, len(b.Seats), b.Price, string(b.Status),
		b.CreatedAt, b.ExpiresAt, b.UpdatedAt)
	if err != nil {
		return intdb.MapError(err, "insert booking", "booking")
	}

	placeholders := make([]string, 0, len(b.Seats))
	args := make([]any, 0, len(b.Seats)*4)
	for _, seat := range b.Seats {
		placeholders = append(placeholders, "(?, ?, ?, ?, 1)")
		args = append(args, b.ID, b.TripID, b.TravelDate, seat)
	}
	_, err = tr.ExecContext(ctx, `
		INSERT INTO booking_seats (booking_id, trip_id, travel_date, seat_code, live)
		VALUES `+strings.Join(placeholders, ", "), args...)
	if intdb.IsDuplicateKey(err) {
		return domain.SeatConflictError{Err: err}
	}
	if err != nil {
		return intdb.MapError(err, "insert booking seats", "booking")
	}
	return nil
}

func (r BookingRepository) GetByID(ctx context.Context, id string) (models.Booking, error) {
	var row bookingRow
	err := sqlx.GetContext(ctx, r.conn(ctx), &row, `SELECT `+bookingColumns+` FROM bookings b WHERE b.id = ?`, id)
	if err != nil {
		return models.Booking{}, intdb.MapError(err, "get booking", "booking")
	}
	out, err := r.withSeats(ctx, []bookingRow{row})
	if err != nil {
		return models.Booking{}, err
	}
	return out[0], nil
}

// LockByIDs reads and row-locks the given bookings. Unknown ids are skipped.
func (r BookingRepository) LockByIDs(ctx context.Context, ids []string) ([]models.Booking, error) {
	if len(ids) == 0 {
		return []models.Booking{}, nil
	}
	query, args, err := expandIn(r.DB, `SELECT `+bookingColumns+` FROM bookings b WHERE b.id IN (?) ORDER BY b.id FOR UPDATE`, ids)
	if err != nil {
		return nil, domain.InternalError{Msg: "build booking lock query", Err: err}
	}
	rows := []bookingRow{}
	if err := sqlx.SelectContext(ctx, r.conn(ctx), &rows, query, args...); err != nil {
		return nil, intdb.MapError(err, "lock bookings", "booking")
	}
	return r.withSeats(ctx, rows)
}

// ListByOwner returns the user's bookings, newest first, with their trips.
// An empty status list means every status.
func (r BookingRepository) ListByOwner(ctx context.Context, userID string, statuses []models.BookingStatus) ([]models.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `, t.vehicle_plate, t.origin, t.destination, t.departure_time, t.arrival_time
		FROM bookings b
		JOIN trips t ON t.id = b.trip_id
		WHERE b.user_id = ?`
	args := []any{userID}
	if len(statuses) > 0 {
		query += ` AND b.status IN (?)`
		args = append(args, statusStrings(statuses))
	}
	query += ` ORDER BY b.created_at DESC, b.id`

	query, args, err := expandIn(r.DB, query, args...)
	if err != nil {
		return nil, domain.InternalError{Msg: "build booking list query", Err: err}
	}
	rows := []bookingTripRow{}
	if err := sqlx.SelectContext(ctx, r.conn(ctx), &rows, query, args...); err != nil {
		return nil, intdb.MapError(err, "list bookings", "booking")
	}

	base := make([]bookingRow, len(rows))
	for i := range rows {
		base[i] = rows[i].bookingRow
	}
	out, err := r.withSeats(ctx, base)
	if err != nil {
		return nil, err
	}
	for i, row := range rows {
		out[i].Trip = &models.Trip{
			ID:           row.TripID,
			VehiclePlate: row.VehiclePlate,
			Origin:       row.Origin,
			Destination:  row.Destination,
			Departure:    row.Departure,
			Arrival:      row.Arrival,
		}
	}
	return out, nil
}

func (r BookingRepository) CountByOwner(ctx context.Context, userID string, status models.BookingStatus) (int, error) {
	var n int
	err := sqlx.GetContext(ctx, r.conn(ctx), &n, `
		SELECT COUNT(*) FROM bookings WHERE user_id = ? AND status = ?`, userID, string(status))
	if err != nil {
		return 0, intdb.MapError(err, "count bookings", "booking")
	}
	return n, nil
}

// Transition moves the bookings currently in one of from to status to and
// returns how many rows changed. Rows in any other status are left alone.
func (r BookingRepository) Transition(ctx context.Context, ids []string, from []models.BookingStatus, to models.BookingStatus, at time.Time) (int64, error) {
	if len(ids) == 0 || len(from) == 0 {
		return 0, nil
	}
	query, args, err := expandIn(r.DB, `
		UPDATE bookings SET status = ?, updated_at = ?
		WHERE id IN (?) AND status IN (?)`, string(to), at, ids, statusStrings(from))
	if err != nil {
		return 0, domain.InternalError{Msg: "build transition query", Err: err}
	}
	res, err := r.conn(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		return 0, intdb.MapError(err, "transition bookings", "booking")
	}
	return res.RowsAffected()
}

// Confirm moves pending bookings to confirmed and attaches the payment.
func (r BookingRepository) Confirm(ctx context.Context, ids []string, paymentID string, at time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query, args, err := expandIn(r.DB, `
		UPDATE bookings SET status = ?, payment_id = ?, updated_at = ?
		WHERE id IN (?) AND status = ?`,
		string(models.BookingConfirmed), paymentID, at, ids, string(models.BookingPending))
	if err != nil {
		return 0, domain.InternalError{Msg: "build confirm query", Err: err}
	}
	res, err := r.conn(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		return 0, intdb.MapError(err, "confirm bookings", "booking")
	}
	return res.RowsAffected()
}

// ReleaseSeats drops the live seat claims of canceled bookings among ids.
func (r BookingRepository) ReleaseSeats(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := expandIn(r.DB, `
		UPDATE booking_seats bs
		JOIN bookings b ON b.id = bs.booking_id
		SET bs.live = NULL
		WHERE bs.booking_id IN (?) AND b.status = ? AND bs.live = 1`, ids, string(models.BookingCanceled))
	if err != nil {
		return domain.InternalError{Msg: "build release query", Err: err}
	}
	if _, err := r.conn(ctx).ExecContext(ctx, query, args...); err != nil {
		return intdb.MapError(err, "release seats", "booking")
	}
	return nil
}

// ExpiredHolds locks up to expiryBatchSize pending bookings whose hold ended before now.
func (r BookingRepository) ExpiredHolds(ctx context.Context, now time.Time) ([]string, error) {
	ids := []string{}
	err := sqlx.SelectContext(ctx, r.conn(ctx), &ids, `
		SELECT id FROM bookings
		WHERE status = ? AND expires_at < ?
		ORDER BY expires_at
		LIMIT `+fmt.Sprint(expiryBatchSize)+`
		FOR UPDATE`, string(models.BookingPending), now)
	if err != nil {
		return nil, intdb.MapError(err, "find expired holds", "booking")
	}
	return ids, nil
}

// ConfirmedDue lists confirmed bookings travelling on or before through, with
// the schedule of their trip.
func (r BookingRepository) ConfirmedDue(ctx context.Context, through models.CalendarDate) ([]models.CompletionCandidate, error) {
	out := []models.CompletionCandidate{}
	err := sqlx.SelectContext(ctx, r.conn(ctx), &out, `
		SELECT b.id, b.travel_date, t.departure_time, t.arrival_time
		FROM bookings b
		JOIN trips t ON t.id = b.trip_id
		WHERE b.status = ? AND b.travel_date <= ?`, string(models.BookingConfirmed), through)
	if err != nil {
		return nil, intdb.MapError(err, "find confirmed bookings", "booking")
	}
	return out, nil
}

func (r BookingRepository) withSeats(ctx context.Context, rows []bookingRow) ([]models.Booking, error) {
	out := make([]models.Booking, len(rows))
	if len(rows) == 0 {
		return out, nil
	}
	ids := make([]string, len(rows))
	index := make(map[string]int, len(rows))
	for i, row := range rows {
		out[i] = row.toModel()
		out[i].Seats = []string{}
		ids[i] = row.ID
		index[row.ID] = i
	}

	query, args, err := expandIn(r.DB, `
		SELECT booking_id, seat_code FROM booking_seats
		WHERE booking_id IN (?)
		ORDER BY booking_id, seat_code`, ids)
	if err != nil {
		return nil, domain.InternalError{Msg: "build seat query", Err: err}
	}
	seats := []seatRow{}
	if err := sqlx.SelectContext(ctx, r.conn(ctx), &seats, query, args...); err != nil {
		return nil, intdb.MapError(err, "load booking seats", "booking")
	}
	for _, s := range seats {
		if i, ok := index[s.BookingID]; ok {
			out[i].Seats = append(out[i].Seats, s.SeatCode)
		}
	}
	return out, nil
}

func statusStrings(statuses []models.BookingStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
