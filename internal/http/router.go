package api

import (
	stdhttp "net/http"

	intconfig "busbooking/internal/config"
	"busbooking/internal/domain"
	h "busbooking/internal/http/handlers"
	"busbooking/internal/http/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// NewRouter mounts the booking API both at the root and under /api.
func NewRouter(env intconfig.Env, hd h.Handler) *gin.Engine {
	if env.Release() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Logger(), gin.Recovery(), middleware.Metrics(), middleware.CORS(env.CORSOrigins))

	if err := r.SetTrustedProxies(nil); err != nil {
		logrus.WithError(err).Warn("failed to set trusted proxies")
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(stdhttp.StatusNotFound, gin.H{
			"error":  "route not found",
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
		})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	auth := middleware.RequireAuth([]byte(env.JWTSecret))
	mount := func(g *gin.RouterGroup) {
		g.GET("/health", h.Health)
		g.GET("/db-check", hd.DBCheck)

		booking := g.Group("/booking")
		booking.GET("/booked-seats/:tripId/:date", hd.BookedSeats)
		booking.POST("/book-seat", auth, hd.BookSeat)
		booking.GET("/pending", auth, hd.PendingBookings)
		booking.GET("/user-bookings", auth, hd.UserBookings)
		booking.GET("/pending-count", auth, hd.PendingCount)
		booking.DELETE("/cancel/:bookingId", auth, hd.CancelBooking)

		trip := g.Group("/trip")
		trip.POST("/find-trip", hd.FindTrip)
		trip.GET("/find-bus-trip/:date", auth, middleware.RequireRoles(domain.RoleBus), hd.BusTrips)

		payment := g.Group("/payment")
		payment.POST("/book-and-pay", auth, hd.BookAndPay)

		review := g.Group("/review")
		review.POST("/submit", auth, hd.SubmitReview)
	}
	mount(&r.RouterGroup)
	mount(r.Group("/api"))

	return r
}
