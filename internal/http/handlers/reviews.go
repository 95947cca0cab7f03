package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type submitReviewRequest struct {
	BookingID string `json:"booking_id"`
	Rating    int    `json:"rating"`
	Comment   string `json:"comment"`
}

// SubmitReview handles POST /review/submit.
func (h Handler) SubmitReview(c *gin.Context) {
	id, ok := identityOrAbort(c)
	if !ok {
		return
	}
	var req submitReviewRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	rv, err := h.Reviews.Submit(c.Request.Context(), id.UserID, req.BookingID, req.Rating, req.Comment)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "review submitted", "review": rv})
}
