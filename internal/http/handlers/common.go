package handlers

import (
	"net/http"
	"strings"

	"busbooking/internal/domain"
	"busbooking/internal/domain/models"
	"busbooking/internal/http/middleware"

	"github.com/gin-gonic/gin"
)

// RespondError sends the standard error payload with request_id included.
func RespondError(c *gin.Context, status int, message string, err error) {
	var details any
	if err != nil {
		details = err.Error()
	}
	respondError(c, status, "", message, details)
}

// BindJSONOrError ensures body is present and parsable.
func BindJSONOrError[T any](c *gin.Context, dst *T) bool {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		RespondError(c, http.StatusBadRequest, "request body is empty", nil)
		return false
	}
	if err := c.ShouldBindJSON(dst); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid payload", err)
		return false
	}
	return true
}

// identityOrAbort returns the authenticated caller; the route must sit behind RequireAuth.
func identityOrAbort(c *gin.Context) (domain.Identity, bool) {
	id, ok := middleware.CurrentIdentity(c)
	if !ok {
		RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return domain.Identity{}, false
	}
	return id, true
}

func parseDate(field, raw string) (models.CalendarDate, error) {
	if strings.TrimSpace(raw) == "" {
		return models.CalendarDate{}, domain.ValidationError{Field: field, Msg: "is required"}
	}
	d, err := models.ParseCalendarDate(raw)
	if err != nil {
		return models.CalendarDate{}, domain.ValidationError{Field: field, Msg: err.Error(), Err: err}
	}
	return d, nil
}
