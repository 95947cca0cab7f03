package services

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"busbooking/internal/domain"
	"busbooking/internal/domain/models"
	"busbooking/internal/metrics"
	"busbooking/internal/utils"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultMaxTransfers = 3
	// MaxTransfersLimit caps caller-supplied budgets; the search is exponential in it.
	MaxTransfersLimit        = 5
	defaultSearchConcurrency = 8
)

type RouteQuery struct {
	Origin      string
	Destination string
	NotBefore   models.TimeOfDay
	Date        models.CalendarDate
	// MaxTransfers nil means the finder's default.
	MaxTransfers *int
}

// RouteFinder enumerates time-respecting itineraries over the trip catalog.
type RouteFinder struct {
	Catalog      TripCatalog
	Inventory    SeatInventory
	Concurrency  int
	Timeout      time.Duration
	// MaxTransfers is the budget used when a query sets none; nil means
	// DefaultMaxTransfers.
	MaxTransfers *int
}

// searchNode is a partial itinerary waiting to be extended from stop.
type searchNode struct {
	stop      string
	notBefore models.TimeOfDay
	date      models.CalendarDate
	legs      []models.Leg
	visited   map[string]struct{}
}

type seatKey struct {
	tripID int64
	date   models.CalendarDate
}

// FindRoutes explores the catalog breadth-first, one transfer level per round,
// expanding the nodes of a round concurrently. Results are ranked by total
// elapsed time. The whole search is abandoned when Timeout elapses.
func (f RouteFinder) FindRoutes(ctx context.Context, q RouteQuery) ([]models.Itinerary, error) {
	q.Origin = strings.TrimSpace(q.Origin)
	q.Destination = strings.TrimSpace(q.Destination)
	switch {
	case q.Origin == "":
		return nil, domain.ValidationError{Field: "start", Msg: "is required"}
	case q.Destination == "":
		return nil, domain.ValidationError{Field: "destination", Msg: "is required"}
	case q.Date.IsZero():
		return nil, domain.ValidationError{Field: "tripDateStr", Msg: "is required"}
	case stopKey(q.Origin) == stopKey(q.Destination):
		return nil, domain.ValidationError{Field: "destination", Msg: "must differ from start"}
	}
	maxTransfers := DefaultMaxTransfers
	if f.MaxTransfers != nil {
		maxTransfers = *f.MaxTransfers
	}
	if q.MaxTransfers != nil {
		maxTransfers = *q.MaxTransfers
	}
	if maxTransfers < 0 || maxTransfers > MaxTransfersLimit {
		return nil, domain.ValidationError{Field: "maxTransfers", Msg: fmt.Sprintf("must be between 0 and %d", MaxTransfersLimit)}
	}

	parent := ctx
	if f.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.Timeout)
		defer cancel()
	}

	started := time.Now()
	s := newRouteSearch(f, q.Destination, maxTransfers)
	frontier := []searchNode{{
		stop:      q.Origin,
		notBefore: q.NotBefore,
		date:      q.Date,
		visited:   map[string]struct{}{stopKey(q.Origin): {}},
	}}
	for len(frontier) > 0 {
		next, err := s.expandAll(ctx, frontier)
		if err != nil {
			return nil, searchError(parent, err)
		}
		frontier = next
	}

	found := s.results()
	rankItineraries(found)
	metrics.ObserveSince(metrics.RouteSearchDuration, started)
	utils.LogEvent(utils.RequestID(ctx), "route", "find",
		fmt.Sprintf("from=%s to=%s date=%s transfers=%d itineraries=%d took=%s",
			q.Origin, q.Destination, q.Date, maxTransfers, len(found), time.Since(started).Round(time.Millisecond)))
	return found, nil
}

// BusSchedule lists every trip of one vehicle with its occupancy on date.
func (f RouteFinder) BusSchedule(ctx context.Context, plate string, date models.CalendarDate) (models.BusSchedule, error) {
	plate = strings.TrimSpace(plate)
	if plate == "" {
		return models.BusSchedule{}, domain.ValidationError{Field: "busId", Msg: "is required"}
	}
	if date.IsZero() {
		return models.BusSchedule{}, domain.ValidationError{Field: "date", Msg: "is required"}
	}
	vehicle, err := f.Catalog.Trips.VehicleByPlate(ctx, plate)
	if err != nil {
		return models.BusSchedule{}, err
	}
	trips, err := f.Catalog.Trips.TripsByVehicle(ctx, plate)
	if err != nil {
		return models.BusSchedule{}, err
	}

	rows := make([]models.ScheduledTrip, len(trips))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.concurrency())
	for i, trip := range trips {
		g.Go(func() error {
			n, err := f.Inventory.OccupiedCount(gctx, trip.ID, date)
			if err != nil {
				return err
			}
			rows[i] = models.ScheduledTrip{
				TripID:      trip.ID,
				From:        trip.Origin,
				To:          trip.Destination,
				Departure:   trip.Departure,
				Arrival:     trip.Arrival,
				Overnight:   trip.Overnight(),
				BookedSeats: n,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return models.BusSchedule{}, err
	}
	return models.BusSchedule{Vehicle: vehicle, Date: date, Trips: rows}, nil
}

func (f RouteFinder) concurrency() int {
	if f.Concurrency > 0 {
		return f.Concurrency
	}
	return defaultSearchConcurrency
}

func searchError(parent context.Context, err error) error {
	if parent.Err() != nil {
		return parent.Err()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.TransientError{Op: "route search", Err: err}
	}
	return err
}

type routeSearch struct {
	finder       RouteFinder
	target       string
	maxTransfers int

	mu    sync.Mutex
	found []models.Itinerary

	edges    *memo[string, []models.Trip]
	occupied *memo[seatKey, int]
}

func newRouteSearch(f RouteFinder, target string, maxTransfers int) *routeSearch {
	return &routeSearch{
		finder:       f,
		target:       stopKey(target),
		maxTransfers: maxTransfers,
		edges: newMemo(func(ctx context.Context, stop string) ([]models.Trip, error) {
			return f.Catalog.EdgesFrom(ctx, stop)
		}, stopKey),
		occupied: newMemo(func(ctx context.Context, k seatKey) (int, error) {
			return f.Inventory.OccupiedCount(ctx, k.tripID, k.date)
		}, func(k seatKey) string { return strconv.FormatInt(k.tripID, 10) + "@" + k.date.String() }),
	}
}

func (s *routeSearch) expandAll(ctx context.Context, frontier []searchNode) ([]searchNode, error) {
	var (
		mu   sync.Mutex
		next []searchNode
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.finder.concurrency())
	for _, node := range frontier {
		g.Go(func() error {
			children, err := s.expand(gctx, node)
			if err != nil {
				return err
			}
			mu.Lock()
			next = append(next, children...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return next, nil
}

func (s *routeSearch) expand(ctx context.Context, node searchNode) ([]searchNode, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	trips, err := s.edges.get(ctx, stopKey(node.stop))
	if err != nil {
		return nil, err
	}

	var children []searchNode
	for _, trip := range trips {
		if _, seen := node.visited[stopKey(trip.Destination)]; seen {
			continue
		}
		if trip.Departure.Before(node.notBefore) {
			continue
		}
		occupied, err := s.occupied.get(ctx, seatKey{tripID: trip.ID, date: node.date})
		if err != nil {
			return nil, err
		}
		leg := models.NewLeg(trip, node.date, occupied)
		legs := append(slices.Clone(node.legs), leg)

		if stopKey(trip.Destination) == s.target {
			s.emit(models.NewItinerary(legs))
			continue
		}
		// len(legs)-1 transfers are spent; one more leg costs another.
		if len(legs) > s.maxTransfers {
			continue
		}
		visited := maps.Clone(node.visited)
		visited[stopKey(trip.Destination)] = struct{}{}
		children = append(children, searchNode{
			stop:      trip.Destination,
			notBefore: trip.Arrival,
			date:      leg.ArrivalDate,
			legs:      legs,
			visited:   visited,
		})
	}
	return children, nil
}

// stopKey folds a stop name the way the catalog's collation compares it.
func stopKey(stop string) string {
	return strings.ToLower(strings.TrimSpace(stop))
}

func (s *routeSearch) emit(it models.Itinerary) {
	s.mu.Lock()
	s.found = append(s.found, it)
	s.mu.Unlock()
}

func (s *routeSearch) results() []models.Itinerary {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.found == nil {
		return []models.Itinerary{}
	}
	return s.found
}

// rankItineraries orders by elapsed time, then fewer legs, then earlier
// departure, then trip ids, so equal-duration results have a stable order.
func rankItineraries(its []models.Itinerary) {
	sort.SliceStable(its, func(i, j int) bool {
		a, b := its[i], its[j]
		if da, db := a.Duration(), b.Duration(); da != db {
			return da < db
		}
		if len(a.Legs) != len(b.Legs) {
			return len(a.Legs) < len(b.Legs)
		}
		if da, db := a.Legs[0].DepartsAt(), b.Legs[0].DepartsAt(); !da.Equal(db) {
			return da.Before(db)
		}
		return itineraryKey(a) < itineraryKey(b)
	})
}

func itineraryKey(it models.Itinerary) string {
	parts := make([]string, len(it.Legs))
	for i, l := range it.Legs {
		parts[i] = fmt.Sprintf("%012d", l.TripID)
	}
	return strings.Join(parts, "/")
}

// memo caches successful lookups for the lifetime of one search and collapses
// concurrent lookups of the same key into one call.
type memo[K comparable, V any] struct {
	load  func(ctx context.Context, key K) (V, error)
	keyOf func(K) string

	mu     sync.Mutex
	values map[K]V
	group  singleflight.Group
}

func newMemo[K comparable, V any](load func(context.Context, K) (V, error), keyOf func(K) string) *memo[K, V] {
	return &memo[K, V]{load: load, keyOf: keyOf, values: map[K]V{}}
}

func (m *memo[K, V]) get(ctx context.Context, key K) (V, error) {
	m.mu.Lock()
	if v, ok := m.values[key]; ok {
		m.mu.Unlock()
		return v, nil
	}
	m.mu.Unlock()

	v, err, _ := m.group.Do(m.keyOf(key), func() (any, error) {
		m.mu.Lock()
		cached, ok := m.values[key]
		m.mu.Unlock()
		if ok {
			return cached, nil
		}
		v, err := m.load(ctx, key)
		if err != nil {
			return nil, err
		}
		m.mu.Lock()
		m.values[key] = v
		m.mu.Unlock()
		return v, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return v.(V), nil
}
