package handlers

import (
	"net/http"

	"busbooking/internal/domain"
	"busbooking/internal/http/middleware"
	"busbooking/internal/utils"

	"github.com/gin-gonic/gin"
)

// ErrorResponse standardizes error payloads.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	Details   any    `json:"details,omitempty"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

func respondError(c *gin.Context, status int, code, message string, details any) {
	if code == "" {
		code = http.StatusText(status)
	}
	c.JSON(status, ErrorResponse{
		Error:     message,
		Code:      code,
		Details:   details,
		Message:   message,
		RequestID: middleware.GetRequestID(c),
	})
}

// RespondDomainError maps domain errors to HTTP responses.
func RespondDomainError(c *gin.Context, err error) {
	if conflict, ok := domain.AsSeatConflict(err); ok {
		respondError(c, http.StatusConflict, "seat_conflict", conflict.Error(), gin.H{"seats": conflict.Seats})
		return
	}
	switch {
	case domain.IsValidation(err):
		respondError(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case domain.IsNotFound(err):
		respondError(c, http.StatusNotFound, "not_found", err.Error(), nil)
	case domain.IsConflict(err):
		respondError(c, http.StatusConflict, "conflict", err.Error(), nil)
	case domain.IsForbidden(err):
		respondError(c, http.StatusForbidden, "forbidden", err.Error(), nil)
	case domain.IsSettlement(err):
		respondError(c, http.StatusConflict, "settlement_failed", err.Error(), nil)
	case domain.IsTransient(err):
		utils.LogError(middleware.GetRequestID(c), "http", c.FullPath(), err)
		respondError(c, http.StatusServiceUnavailable, "storage_unavailable", "service temporarily unavailable, retry shortly", nil)
	default:
		utils.LogError(middleware.GetRequestID(c), "http", c.FullPath(), err)
		respondError(c, http.StatusInternalServerError, "internal_error", "internal server error", nil)
	}
}
