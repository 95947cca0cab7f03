package services

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"busbooking/internal/domain/models"
)

type SweepJob string

const (
	JobExpireHolds   SweepJob = "expire_holds"
	JobCompleteTrips SweepJob = "complete_trips"

	DefaultExpiryEvery     = 5 * time.Minute
	DefaultCompletionEvery = time.Minute

	completionChunk = 500
)

// SweepResult reports one pass of one job.
type SweepResult struct {
	Job      SweepJob
	Affected int64
	Err      error
	At       time.Time
}

// Sweeper enforces hold expiry and trip completion. Both passes are plain
// status transitions gated on the current status, so re-running them is safe.
type Sweeper struct {
	Bookings        BookingStore
	Tx              Transactor
	Location        *time.Location
	ExpiryEvery     time.Duration
	CompletionEvery time.Duration
	Now             func() time.Time
}

// ExpireHolds cancels pending bookings whose hold has ended and frees their
// seats, one locked batch per transaction.
func (s Sweeper) ExpireHolds(ctx context.Context) (int64, error) {
	now := nowUTC(s.Now)
	var total int64
	for {
		var affected int64
		err := s.Tx.Do(ctx, func(ctx context.Context) error {
			affected = 0
			ids, err := s.Bookings.ExpiredHolds(ctx, now)
			if err != nil || len(ids) == 0 {
				return err
			}
			affected, err = s.Bookings.Transition(ctx, ids, []models.BookingStatus{models.BookingPending}, models.BookingCanceled, now)
			if err != nil {
				return err
			}
			return s.Bookings.ReleaseSeats(ctx, ids)
		})
		if err != nil {
			return total, err
		}
		if affected == 0 {
			return total, nil
		}
		total += affected
	}
}

// CompleteArrived marks confirmed bookings completed once their trip has
// actually arrived, counting overnight trips as arriving the next day.
func (s Sweeper) CompleteArrived(ctx context.Context) (int64, error) {
	now := nowUTC(s.Now)
	loc := s.location()
	candidates, err := s.Bookings.ConfirmedDue(ctx, models.DateOf(now.In(loc)))
	if err != nil {
		return 0, err
	}
	due := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if c.ArrivesAt(loc).Before(now) {
			due = append(due, c.BookingID)
		}
	}

	var total int64
	for chunk := range slices.Chunk(due, completionChunk) {
		n, err := s.Bookings.Transition(ctx, chunk, []models.BookingStatus{models.BookingConfirmed}, models.BookingCompleted, now)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// Run drives both jobs on their own tickers until ctx is done. Each pass,
// including the immediate first one, reports a SweepResult on results.
// A panicking pass is reported as an error and the job keeps its schedule.
func (s Sweeper) Run(ctx context.Context, results chan<- SweepResult) {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.loop(ctx, JobExpireHolds, every(s.ExpiryEvery, DefaultExpiryEvery), s.ExpireHolds, results)
	}()
	go func() {
		defer wg.Done()
		s.loop(ctx, JobCompleteTrips, every(s.CompletionEvery, DefaultCompletionEvery), s.CompleteArrived, results)
	}()
	wg.Wait()
}

func (s Sweeper) loop(ctx context.Context, job SweepJob, interval time.Duration, pass func(context.Context) (int64, error), results chan<- SweepResult) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		res := s.runPass(ctx, job, pass)
		if results != nil {
			select {
			case results <- res:
			case <-ctx.Done():
				return
			}
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s Sweeper) runPass(ctx context.Context, job SweepJob, pass func(context.Context) (int64, error)) (res SweepResult) {
	res = SweepResult{Job: job, At: nowUTC(s.Now)}
	defer func() {
		if r := recover(); r != nil {
			res.Err = fmt.Errorf("%s pass panicked: %v", job, r)
		}
	}()
	res.Affected, res.Err = pass(ctx)
	return res
}

func (s Sweeper) location() *time.Location {
	if s.Location != nil {
		return s.Location
	}
	return time.Local
}

func every(d, fallback time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return fallback
}
