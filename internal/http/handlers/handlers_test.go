package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"busbooking/internal/domain"
	"busbooking/internal/domain/models"
	"busbooking/internal/http/middleware"
	"busbooking/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var secret = []byte("handler-secret")

type fakeReservations struct {
	created  services.HoldRequest
	createFn func(services.HoldRequest) (models.Booking, error)
	canceled string
	listed   []models.BookingStatus
}

func (f *fakeReservations) Create(_ context.Context, req services.HoldRequest) (models.Booking, error) {
	f.created = req
	if f.createFn != nil {
		return f.createFn(req)
	}
	return models.Booking{ID: "bk-1", Status: models.BookingPending, Seats: req.Seats, ExpiresAt: time.Date(2025, 3, 10, 7, 0, 0, 0, time.UTC)}, nil
}

func (f *fakeReservations) Cancel(_ context.Context, userID, id string) (models.Booking, error) {
	if id == "missing" {
		return models.Booking{}, domain.NotFoundError{Resource: "booking"}
	}
	f.canceled = userID + "/" + id
	return models.Booking{ID: id, Status: models.BookingCanceled}, nil
}

func (f *fakeReservations) ListByOwner(_ context.Context, userID string, statuses ...models.BookingStatus) ([]models.Booking, error) {
	f.listed = statuses
	return []models.Booking{{ID: "bk-1", UserID: userID, Status: models.BookingPending}}, nil
}

func (f *fakeReservations) PendingCount(context.Context, string) (int, error) { return 2, nil }

type fakeInventory struct{}

func (fakeInventory) OccupiedSeats(_ context.Context, tripID int64, _ models.CalendarDate) ([]string, error) {
	if tripID == 404 {
		return nil, domain.NotFoundError{Resource: "trip"}
	}
	return []string{"A1", "A2"}, nil
}

type fakeRoutes struct {
	query services.RouteQuery
	plate string
}

func (f *fakeRoutes) FindRoutes(_ context.Context, q services.RouteQuery) ([]models.Itinerary, error) {
	f.query = q
	return []models.Itinerary{}, nil
}

func (f *fakeRoutes) BusSchedule(_ context.Context, plate string, date models.CalendarDate) (models.BusSchedule, error) {
	f.plate = plate
	return models.BusSchedule{Vehicle: models.Vehicle{Plate: plate}, Date: date, Trips: []models.ScheduledTrip{}}, nil
}

type fakeSettlements struct{ err error }

func (f *fakeSettlements) Settle(_ context.Context, req services.SettlementRequest) (models.Payment, error) {
	if f.err != nil {
		return models.Payment{}, f.err
	}
	return models.Payment{ID: "pay-1", UserID: req.UserID, Status: models.PaymentCompleted, BookingIDs: req.BookingIDs}, nil
}

type fakeReviews struct{}

func (fakeReviews) Submit(_ context.Context, userID, bookingID string, rating int, comment string) (models.Review, error) {
	if rating > 5 {
		return models.Review{}, domain.ValidationError{Field: "rating", Msg: "must be between 1 and 5"}
	}
	return models.Review{ID: "rv-1", UserID: userID, BookingID: bookingID, Rating: rating, Comment: comment}, nil
}

type fixture struct {
	engine       *gin.Engine
	reservations *fakeReservations
	routes       *fakeRoutes
	settlements  *fakeSettlements
}

func newFixture() *fixture {
	gin.SetMode(gin.TestMode)
	f := &fixture{reservations: &fakeReservations{}, routes: &fakeRoutes{}, settlements: &fakeSettlements{}}
	hd := Handler{
		Reservations: f.reservations,
		Inventory:    fakeInventory{},
		Routes:       f.routes,
		Settlements:  f.settlements,
		Reviews:      fakeReviews{},
	}
	auth := middleware.RequireAuth(secret)
	r := gin.New()
	r.Use(middleware.RequestID())
	r.POST("/booking/book-seat", auth, hd.BookSeat)
	r.GET("/booking/booked-seats/:tripId/:date", hd.BookedSeats)
	r.GET("/booking/pending", auth, hd.PendingBookings)
	r.GET("/booking/user-bookings", auth, hd.UserBookings)
	r.GET("/booking/pending-count", auth, hd.PendingCount)
	r.DELETE("/booking/cancel/:bookingId", auth, hd.CancelBooking)
	r.POST("/trip/find-trip", hd.FindTrip)
	r.GET("/trip/find-bus-trip/:date", auth, hd.BusTrips)
	r.POST("/payment/book-and-pay", auth, hd.BookAndPay)
	r.POST("/review/submit", auth, hd.SubmitReview)
	r.GET("/db-check", hd.DBCheck)
	f.engine = r
	return f
}

func token(t *testing.T, id domain.Identity) string {
	t.Helper()
	s, err := middleware.IssueToken(secret, id, time.Hour)
	require.NoError(t, err)
	return s
}

func (f *fixture) do(t *testing.T, method, path, body, tok string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

var user = domain.Identity{UserID: "u1", Email: "u1@example.com", Role: domain.RoleUser}

func TestBookSeat(t *testing.T) {
	f := newFixture()
	tok := token(t, user)

	w := f.do(t, http.MethodPost, "/booking/book-seat",
		`{"trip_id":7,"departure_date":"2025-03-12","seatNumbers":["A1","A2"],"price":300000}`, tok)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "bk-1", body["bookingId"])
	assert.Equal(t, "pending", body["status"])
	assert.Equal(t, "u1", f.reservations.created.UserID)
	assert.Equal(t, "2025-03-12", f.reservations.created.Date.String())

	w = f.do(t, http.MethodPost, "/booking/book-seat", `{"trip_id":7}`, tok)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPost, "/booking/book-seat",
		`{"trip_id":7,"departure_date":"12/03/2025","seatNumbers":["A1"],"price":1}`, tok)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPost, "/booking/book-seat",
		`{"trip_id":7,"departure_date":"2025-03-12","seatNumbers":["A1"],"price":1}`, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestBookSeatConflict(t *testing.T) {
	f := newFixture()
	f.reservations.createFn = func(services.HoldRequest) (models.Booking, error) {
		return models.Booking{}, domain.SeatConflictError{Seats: []string{"A2"}}
	}

	w := f.do(t, http.MethodPost, "/booking/book-seat",
		`{"trip_id":7,"departure_date":"2025-03-12","seatNumbers":["A1","A2"],"price":1}`, token(t, user))
	require.Equal(t, http.StatusConflict, w.Code)
	body := decode(t, w)
	assert.Equal(t, "seat_conflict", body["code"])
	assert.Equal(t, map[string]any{"seats": []any{"A2"}}, body["details"])
	assert.Contains(t, body["error"], "A2")
	assert.NotEmpty(t, body["request_id"])
}

func TestBookedSeats(t *testing.T) {
	f := newFixture()

	w := f.do(t, http.MethodGet, "/booking/booked-seats/7/2025-03-12", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `["A1","A2"]`, w.Body.String())

	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/booking/booked-seats/404/2025-03-12", "", "").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/booking/booked-seats/x/2025-03-12", "", "").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/booking/booked-seats/7/tomorrow", "", "").Code)
}

func TestBookingQueries(t *testing.T) {
	f := newFixture()
	tok := token(t, user)

	w := f.do(t, http.MethodGet, "/booking/pending", "", tok)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []models.BookingStatus{models.BookingPending}, f.reservations.listed)

	w = f.do(t, http.MethodGet, "/booking/user-bookings?status=confirmed,completed", "", tok)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []models.BookingStatus{models.BookingConfirmed, models.BookingCompleted}, f.reservations.listed)

	w = f.do(t, http.MethodGet, "/booking/user-bookings?status=lost", "", tok)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodGet, "/booking/pending-count", "", tok)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"count":2}`, w.Body.String())
}

func TestCancelBooking(t *testing.T) {
	f := newFixture()
	tok := token(t, user)

	w := f.do(t, http.MethodDelete, "/booking/cancel/bk-9", "", tok)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "u1/bk-9", f.reservations.canceled)

	w = f.do(t, http.MethodDelete, "/booking/cancel/missing", "", tok)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestFindTrip(t *testing.T) {
	f := newFixture()

	w := f.do(t, http.MethodPost, "/trip/find-trip",
		`{"start":"Colombo","destination":"Kandy","departureTime":"07:30","tripDateStr":"2025-03-12","maxTransfers":1}`, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"routes":[]}`, w.Body.String())
	assert.Equal(t, "Colombo", f.routes.query.Origin)
	assert.Equal(t, "07:30", f.routes.query.NotBefore.String())
	require.NotNil(t, f.routes.query.MaxTransfers)
	assert.Equal(t, 1, *f.routes.query.MaxTransfers)

	w = f.do(t, http.MethodPost, "/trip/find-trip", `{"start":"Colombo","tripDateStr":"2025-03-12"}`, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPost, "/trip/find-trip",
		`{"start":"Colombo","destination":"Kandy","departureTime":"7am","tripDateStr":"2025-03-12"}`, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBusTripsUsesTokenVehicle(t *testing.T) {
	f := newFixture()

	w := f.do(t, http.MethodGet, "/trip/find-bus-trip/2025-03-12", "", token(t, domain.Identity{UserID: "op", Role: domain.RoleBus, VehicleID: "B-1001"}))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "B-1001", f.routes.plate)
	body := decode(t, w)
	assert.Contains(t, body, "busDetails")
	assert.Contains(t, body, "routes")

	w = f.do(t, http.MethodGet, "/trip/find-bus-trip/2025-03-12", "", token(t, domain.Identity{UserID: "op", Role: domain.RoleBus}))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestBookAndPay(t *testing.T) {
	f := newFixture()
	tok := token(t, user)

	w := f.do(t, http.MethodPost, "/payment/book-and-pay", `{"bookingIds":["a","b"],"paymentToken":"gw-1"}`, tok)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "pay-1", decode(t, w)["payment"].(map[string]any)["id"])

	f.settlements.err = domain.SettlementError{Reason: "booking b is confirmed, not pending"}
	w = f.do(t, http.MethodPost, "/payment/book-and-pay", `{"bookingIds":["a","b"],"paymentToken":"gw-1"}`, tok)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "settlement_failed", decode(t, w)["code"])
}

func TestSubmitReview(t *testing.T) {
	f := newFixture()
	tok := token(t, user)

	w := f.do(t, http.MethodPost, "/review/submit", `{"booking_id":"bk-1","rating":5,"comment":"great"}`, tok)
	assert.Equal(t, http.StatusCreated, w.Code)

	w = f.do(t, http.MethodPost, "/review/submit", `{"booking_id":"bk-1","rating":9}`, tok)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRespondDomainErrorHidesInternals(t *testing.T) {
	gin.SetMode(gin.TestMode)
	for _, tc := range []struct {
		err  error
		code int
	}{
		{domain.TransientError{Op: "lock bookings", Err: context.DeadlineExceeded}, http.StatusServiceUnavailable},
		{domain.InternalError{Msg: "boom"}, http.StatusInternalServerError},
		{domain.ForbiddenError{}, http.StatusForbidden},
		{domain.ConflictError{Resource: "review"}, http.StatusConflict},
	} {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
		RespondDomainError(c, tc.err)
		assert.Equal(t, tc.code, w.Code)
		assert.NotContains(t, w.Body.String(), "boom")
	}
}

func TestDBCheckWithoutDatabase(t *testing.T) {
	f := newFixture()
	assert.Equal(t, http.StatusServiceUnavailable, f.do(t, http.MethodGet, "/db-check", "", "").Code)
}
