package services

import (
	"context"
	"testing"
	"time"

	"busbooking/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSweeperFixture(now time.Time) (*memStore, Sweeper) {
	store := newMemStore()
	store.addVehicle("B-1001", 40, 100)
	store.addTrip(1, "B-1001", "Jakarta", "Bandung", "08:00", "11:00")
	store.addTrip(2, "B-1001", "Bandung", "Surabaya", "23:30", "01:00")
	return store, Sweeper{
		Bookings: store,
		Tx:       &fakeTx{store: store},
		Location: time.UTC,
		Now:      fixedClock(now),
	}
}

func TestExpireHoldsCancelsLapsedPendingBookings(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	store, sw := newSweeperFixture(now)
	date := mustDate("2025-03-12")
	store.put(models.Booking{ID: "old", UserID: "u1", TripID: 1, TravelDate: date, Seats: []string{"A1"},
		Status: models.BookingPending, ExpiresAt: now.Add(-time.Minute)})
	store.put(models.Booking{ID: "fresh", UserID: "u1", TripID: 1, TravelDate: date, Seats: []string{"A2"},
		Status: models.BookingPending, ExpiresAt: now.Add(time.Minute)})
	store.put(models.Booking{ID: "paid", UserID: "u1", TripID: 1, TravelDate: date, Seats: []string{"A3"},
		Status: models.BookingConfirmed, ExpiresAt: now.Add(-time.Hour)})

	n, err := sw.ExpireHolds(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, models.BookingCanceled, store.booking("old").Status)
	assert.Equal(t, models.BookingPending, store.booking("fresh").Status)
	assert.Equal(t, models.BookingConfirmed, store.booking("paid").Status)

	taken, err := store.ConflictingSeats(context.Background(), 1, date, []string{"A1"})
	require.NoError(t, err)
	assert.Empty(t, taken)

	n, err = sw.ExpireHolds(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCompleteArrivedIsIdempotent(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	store, sw := newSweeperFixture(now)
	store.put(models.Booking{ID: "arrived", UserID: "u1", TripID: 1, TravelDate: mustDate("2025-03-10"), Status: models.BookingConfirmed})
	store.put(models.Booking{ID: "future", UserID: "u1", TripID: 1, TravelDate: mustDate("2025-03-11"), Status: models.BookingConfirmed})
	store.put(models.Booking{ID: "unpaid", UserID: "u1", TripID: 1, TravelDate: mustDate("2025-03-09"), Status: models.BookingPending})

	n, err := sw.CompleteArrived(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, models.BookingCompleted, store.booking("arrived").Status)
	assert.Equal(t, models.BookingConfirmed, store.booking("future").Status)
	assert.Equal(t, models.BookingPending, store.booking("unpaid").Status)

	n, err = sw.CompleteArrived(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCompleteArrivedWaitsForOvernightArrival(t *testing.T) {
	// Departs 23:30 on the 10th, arrives 01:00 on the 11th.
	lateEvening := time.Date(2025, 3, 10, 23, 50, 0, 0, time.UTC)
	store, sw := newSweeperFixture(lateEvening)
	store.put(models.Booking{ID: "night", UserID: "u1", TripID: 2, TravelDate: mustDate("2025-03-10"), Status: models.BookingConfirmed})

	n, err := sw.CompleteArrived(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)

	sw.Now = fixedClock(time.Date(2025, 3, 11, 1, 5, 0, 0, time.UTC))
	n, err = sw.CompleteArrived(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, models.BookingCompleted, store.booking("night").Status)
}

type panickingStore struct{ *memStore }

func (panickingStore) ExpiredHolds(context.Context, time.Time) ([]string, error) {
	panic("boom")
}

func TestRunRecoversPanicsAndReportsResults(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	store, sw := newSweeperFixture(now)
	sw.Bookings = panickingStore{store}
	sw.ExpiryEvery = time.Hour
	sw.CompletionEvery = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	results := make(chan SweepResult)
	done := make(chan struct{})
	go func() {
		sw.Run(ctx, results)
		close(done)
	}()

	got := map[SweepJob]SweepResult{}
	for len(got) < 2 {
		select {
		case r := <-results:
			got[r.Job] = r
		case <-time.After(2 * time.Second):
			t.Fatal("sweeper did not report")
		}
	}
	cancel()
	<-done

	require.Error(t, got[JobExpireHolds].Err)
	assert.Contains(t, got[JobExpireHolds].Err.Error(), "panicked")
	assert.NoError(t, got[JobCompleteTrips].Err)
}
