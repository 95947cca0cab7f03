package handlers

import (
	"net/http"
	"strings"

	"busbooking/internal/domain"
	"busbooking/internal/domain/models"
	"busbooking/internal/services"

	"github.com/gin-gonic/gin"
)

type findTripRequest struct {
	Start         string `json:"start"`
	Destination   string `json:"destination"`
	DepartureTime string `json:"departureTime"`
	TripDateStr   string `json:"tripDateStr"`
	MaxTransfers  *int   `json:"maxTransfers"`
}

// FindTrip handles POST /trip/find-trip.
func (h Handler) FindTrip(c *gin.Context) {
	var req findTripRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	if strings.TrimSpace(req.Start) == "" || strings.TrimSpace(req.Destination) == "" ||
		strings.TrimSpace(req.DepartureTime) == "" || strings.TrimSpace(req.TripDateStr) == "" {
		RespondError(c, http.StatusBadRequest, "missing required fields", nil)
		return
	}
	notBefore, err := models.ParseTimeOfDay(req.DepartureTime)
	if err != nil {
		RespondDomainError(c, domain.ValidationError{Field: "departureTime", Msg: err.Error(), Err: err})
		return
	}
	date, err := parseDate("tripDateStr", req.TripDateStr)
	if err != nil {
		RespondDomainError(c, err)
		return
	}

	routes, err := h.Routes.FindRoutes(c.Request.Context(), services.RouteQuery{
		Origin:       req.Start,
		Destination:  req.Destination,
		NotBefore:    notBefore,
		Date:         date,
		MaxTransfers: req.MaxTransfers,
	})
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"routes": routes})
}

// BusTrips handles GET /trip/find-bus-trip/:date for the operator's own vehicle.
func (h Handler) BusTrips(c *gin.Context) {
	id, ok := identityOrAbort(c)
	if !ok {
		return
	}
	if strings.TrimSpace(id.VehicleID) == "" {
		RespondDomainError(c, domain.ForbiddenError{Msg: "token is not bound to a bus"})
		return
	}
	date, err := parseDate("date", c.Param("date"))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	sched, err := h.Routes.BusSchedule(c.Request.Context(), id.VehicleID, date)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, sched)
}
