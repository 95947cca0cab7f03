package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	intconfig "busbooking/internal/config"
	"busbooking/internal/db"
	api "busbooking/internal/http"
	h "busbooking/internal/http/handlers"
	"busbooking/internal/metrics"
	"busbooking/internal/repositories"
	"busbooking/internal/services"
	"busbooking/internal/ticketing"

	"github.com/ThreeDotsLabs/watermill/message"
	trmsqlx "github.com/avito-tech/go-transaction-manager/drivers/sqlx/v2"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

// App is the assembled service: HTTP API, ticket consumer and sweepers.
type App struct {
	env     intconfig.Env
	server  *http.Server
	pubsub  *ticketing.PubSub
	tickets *message.Router
	sweeper services.Sweeper
}

func New(env intconfig.Env, sqlDB *sqlx.DB) (*App, error) {
	st := newStores(sqlDB)
	trips, bookings := st.trips, st.bookings
	tx := db.NewTxRunner(sqlDB)

	logger := ticketing.NewLogger(logrus.StandardLogger())
	ps, err := ticketing.NewPubSub(env.RedisAddr, logger)
	if err != nil {
		return nil, err
	}
	router, err := ticketing.NewRouter(logger, ps.Subscriber, ticketing.TicketWriter{Dir: env.TicketsDir})
	if err != nil {
		return nil, errors.Join(err, ps.Close())
	}

	maxTransfers := env.MaxTransfers
	catalog := services.TripCatalog{Trips: trips}
	inventory := services.SeatInventory{Catalog: catalog, Ledger: st.ledger}

	hd := h.Handler{
		Reservations: services.ReservationService{
			Trips:        trips,
			Bookings:     bookings,
			Tx:           tx,
			HoldDuration: env.HoldDuration,
		},
		Inventory: inventory,
		Routes: services.RouteFinder{
			Catalog:      catalog,
			Inventory:    inventory,
			Concurrency:  env.SearchConcurrency,
			Timeout:      env.SearchTimeout,
			MaxTransfers: &maxTransfers,
		},
		Settlements: services.SettlementService{
			Bookings: bookings,
			Payments: st.payments,
			Trips:    trips,
			Tx:       tx,
			Verifier: services.NewPaymentVerifier(env.PaymentTokenSecret),
			Tickets:  ticketing.Publisher{Pub: ps.Publisher},
		},
		Reviews: services.ReviewService{Bookings: bookings, Reviews: st.reviews},
		DB:      sqlDB,
	}

	return &App{
		env: env,
		server: &http.Server{
			Addr:              env.AppAddr,
			Handler:           api.NewRouter(env, hd),
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       20 * time.Second,
			WriteTimeout:      20 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		pubsub:  ps,
		tickets: router,
		sweeper: services.Sweeper{
			Bookings:        bookings,
			Tx:              tx,
			Location:        env.Location,
			ExpiryEvery:     env.ExpirySweepInterval,
			CompletionEvery: env.CompletionSweepInterval,
		},
	}, nil
}

// stores are the MySQL repositories. They all read the transaction that
// db.TxRunner puts on the context through the same getter.
type stores struct {
	trips    repositories.TripRepository
	bookings repositories.BookingRepository
	ledger   repositories.SeatInventoryRepository
	payments repositories.PaymentRepository
	reviews  repositories.ReviewRepository
}

func newStores(sqlDB *sqlx.DB) stores {
	getter := trmsqlx.DefaultCtxGetter
	return stores{
		trips:    repositories.TripRepository{DB: sqlDB, Getter: getter},
		bookings: repositories.BookingRepository{DB: sqlDB, Getter: getter},
		ledger:   repositories.SeatInventoryRepository{DB: sqlDB, Getter: getter},
		payments: repositories.PaymentRepository{DB: sqlDB, Getter: getter},
		reviews:  repositories.ReviewRepository{DB: sqlDB, Getter: getter},
	}
}

// Run blocks until ctx is canceled or a component fails, then shuts the
// rest down.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logrus.WithField("addr", a.env.AppAddr).Info("http server listening")
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return a.tickets.Run(ctx)
	})

	results := make(chan services.SweepResult)
	g.Go(func() error {
		a.sweeper.Run(ctx, results)
		close(results)
		return nil
	})
	g.Go(func() error {
		for r := range results {
			reportSweep(r)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		logrus.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return errors.Join(
			a.server.Shutdown(shutdownCtx),
			a.tickets.Close(),
			a.pubsub.Close(),
		)
	})

	return g.Wait()
}

func reportSweep(r services.SweepResult) {
	entry := logrus.WithFields(logrus.Fields{"job": string(r.Job), "affected": r.Affected})
	if r.Err != nil {
		metrics.SweepFailures.WithLabelValues(string(r.Job)).Inc()
		entry.WithError(r.Err).Error("sweep failed")
		return
	}
	metrics.SweepTransitions.WithLabelValues(string(r.Job)).Add(float64(r.Affected))
	if r.Affected > 0 {
		entry.Info("sweep applied")
	}
}
