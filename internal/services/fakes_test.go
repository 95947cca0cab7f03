package services

import (
	"context"
	"errors"
	"maps"
	"slices"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"busbooking/internal/domain"
	"busbooking/internal/domain/models"
)

// memStore is an in-memory stand-in for the MySQL repositories. Seat claims
// follow the same rule as the live-seat unique key: every booking that is not
// canceled keeps its seats.
type memStore struct {
	mu        sync.Mutex
	vehicles  map[string]models.Vehicle
	trips     map[int64]models.Trip
	bookings  map[string]models.Booking
	payments  map[string]models.Payment
	reviews   map[string]models.Review
	edgeCalls map[string]int

	edgeDelay      time.Duration
	confirmShortBy int64
}

func newMemStore() *memStore {
	return &memStore{
		vehicles:  map[string]models.Vehicle{},
		trips:     map[int64]models.Trip{},
		bookings:  map[string]models.Booking{},
		payments:  map[string]models.Payment{},
		reviews:   map[string]models.Review{},
		edgeCalls: map[string]int{},
	}
}

func (m *memStore) addVehicle(plate string, capacity int, fare int64) {
	m.vehicles[plate] = models.Vehicle{Plate: plate, Capacity: capacity, Fare: fare}
}

func (m *memStore) addTrip(id int64, plate, from, to, dep, arr string) {
	v := m.vehicles[plate]
	m.trips[id] = models.Trip{
		ID:           id,
		VehiclePlate: plate,
		Origin:       from,
		Destination:  to,
		Departure:    mustTime(dep),
		Arrival:      mustTime(arr),
		Capacity:     v.Capacity,
		Fare:         v.Fare,
	}
}

func (m *memStore) put(b models.Booking) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bookings[b.ID] = b
}

func (m *memStore) booking(id string) models.Booking {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bookings[id]
}

type memSnapshot struct {
	bookings map[string]models.Booking
	payments map[string]models.Payment
	reviews  map[string]models.Review
}

func (m *memStore) snapshot() memSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return memSnapshot{maps.Clone(m.bookings), maps.Clone(m.payments), maps.Clone(m.reviews)}
}

func (m *memStore) restore(s memSnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bookings, m.payments, m.reviews = s.bookings, s.payments, s.reviews
}

// TripStore

func (m *memStore) EdgesFrom(ctx context.Context, stop string) ([]models.Trip, error) {
	if m.edgeDelay > 0 {
		select {
		case <-time.After(m.edgeDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.edgeCalls[stop]++
	out := []models.Trip{}
	for _, t := range m.trips {
		if strings.EqualFold(t.Origin, stop) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) TripByID(_ context.Context, id int64) (models.Trip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.trips[id]
	if !ok {
		return models.Trip{}, domain.NotFoundError{Resource: "trip"}
	}
	return t, nil
}

func (m *memStore) TripsByVehicle(_ context.Context, plate string) ([]models.Trip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Trip{}
	for _, t := range m.trips {
		if t.VehiclePlate == plate {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Departure < out[j].Departure })
	return out, nil
}

func (m *memStore) VehicleByPlate(_ context.Context, plate string) (models.Vehicle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.vehicles[plate]
	if !ok {
		return models.Vehicle{}, domain.NotFoundError{Resource: "vehicle"}
	}
	return v, nil
}

// SeatLedger

func (m *memStore) OccupiedSeats(_ context.Context, tripID int64, date models.CalendarDate) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []string{}
	for _, b := range m.bookings {
		if b.TripID == tripID && b.TravelDate == date && b.Status.Live() {
			out = append(out, b.Seats...)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (m *memStore) OccupiedCount(ctx context.Context, tripID int64, date models.CalendarDate) (int, error) {
	seats, err := m.OccupiedSeats(ctx, tripID, date)
	return len(seats), err
}

// BookingStore

func (m *memStore) claimed(tripID int64, date models.CalendarDate, seats []string) []string {
	var out []string
	for _, b := range m.bookings {
		if b.TripID != tripID || b.TravelDate != date || b.Status == models.BookingCanceled {
			continue
		}
		for _, s := range b.Seats {
			if slices.Contains(seats, s) {
				out = append(out, s)
			}
		}
	}
	sort.Strings(out)
	return out
}

func (m *memStore) ConflictingSeats(_ context.Context, tripID int64, date models.CalendarDate, seats []string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.claimed(tripID, date, seats), nil
}

func (m *memStore) Insert(_ context.Context, b models.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.claimed(b.TripID, b.TravelDate, b.Seats)) > 0 {
		return domain.SeatConflictError{Err: errors.New("duplicate live seat")}
	}
	m.bookings[b.ID] = b
	return nil
}

func (m *memStore) GetByID(_ context.Context, id string) (models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return models.Booking{}, domain.NotFoundError{Resource: "booking"}
	}
	return b, nil
}

func (m *memStore) LockByIDs(_ context.Context, ids []string) ([]models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Booking{}
	for _, id := range ids {
		if b, ok := m.bookings[id]; ok {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) ListByOwner(_ context.Context, userID string, statuses []models.BookingStatus) ([]models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Booking{}
	for _, b := range m.bookings {
		if b.UserID != userID {
			continue
		}
		if len(statuses) > 0 && !slices.Contains(statuses, b.Status) {
			continue
		}
		if t, ok := m.trips[b.TripID]; ok {
			b.Trip = &t
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) CountByOwner(_ context.Context, userID string, status models.BookingStatus) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, b := range m.bookings {
		if b.UserID == userID && b.Status == status {
			n++
		}
	}
	return n, nil
}

func (m *memStore) Transition(_ context.Context, ids []string, from []models.BookingStatus, to models.BookingStatus, at time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, id := range ids {
		b, ok := m.bookings[id]
		if !ok || !slices.Contains(from, b.Status) {
			continue
		}
		b.Status = to
		b.UpdatedAt = at
		m.bookings[id] = b
		n++
	}
	return n, nil
}

func (m *memStore) Confirm(_ context.Context, ids []string, paymentID string, at time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, id := range ids {
		b, ok := m.bookings[id]
		if !ok || b.Status != models.BookingPending {
			continue
		}
		b.Status = models.BookingConfirmed
		b.PaymentID = paymentID
		b.UpdatedAt = at
		m.bookings[id] = b
		n++
	}
	return n - m.confirmShortBy, nil
}

func (m *memStore) ReleaseSeats(context.Context, []string) error { return nil }

func (m *memStore) ExpiredHolds(_ context.Context, now time.Time) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []string{}
	for _, b := range m.bookings {
		if b.Status == models.BookingPending && b.ExpiresAt.Before(now) {
			out = append(out, b.ID)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (m *memStore) ConfirmedDue(_ context.Context, through models.CalendarDate) ([]models.CompletionCandidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.CompletionCandidate{}
	for _, b := range m.bookings {
		if b.Status != models.BookingConfirmed || through.Before(b.TravelDate) {
			continue
		}
		t := m.trips[b.TripID]
		out = append(out, models.CompletionCandidate{
			BookingID:  b.ID,
			TravelDate: b.TravelDate,
			Departure:  t.Departure,
			Arrival:    t.Arrival,
		})
	}
	return out, nil
}

// paymentStore and reviewStore share memStore state but have their own Insert.

type paymentStore struct {
	*memStore
	err error
}

func (p paymentStore) Insert(_ context.Context, pay models.Payment) error {
	if p.err != nil {
		return p.err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.payments[pay.ID] = pay
	return nil
}

type reviewStore struct{ *memStore }

func (r reviewStore) Insert(_ context.Context, rv models.Review) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.reviews[rv.BookingID]; dup {
		return domain.ConflictError{Resource: "review", Msg: "booking already reviewed"}
	}
	r.reviews[rv.BookingID] = rv
	return nil
}

// fakeTx serializes units of work and rolls the store back when one fails.
type fakeTx struct {
	mu    sync.Mutex
	store *memStore
	calls int
}

func (t *fakeTx) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.calls++
	snap := t.store.snapshot()
	if err := fn(ctx); err != nil {
		t.store.restore(snap)
		return err
	}
	return nil
}

type recordingNotifier struct {
	mu    sync.Mutex
	seen  []string
	trips []int64
	err   error
}

func (n *recordingNotifier) NotifyConfirmed(_ context.Context, b models.Booking, trip models.Trip) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.seen = append(n.seen, b.ID)
	n.trips = append(n.trips, trip.ID)
	return n.err
}

func mustTime(s string) models.TimeOfDay {
	t, err := models.ParseTimeOfDay(s)
	if err != nil {
		panic(err)
	}
	return t
}

func mustDate(s string) models.CalendarDate {
	d, err := models.ParseCalendarDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func sequentialIDs(prefix string) func() string {
	var (
		mu sync.Mutex
		n  int
	)
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return prefix + "-" + strconv.Itoa(n)
	}
}
