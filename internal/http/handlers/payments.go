package handlers

import (
	"net/http"

	"busbooking/internal/services"

	"github.com/gin-gonic/gin"
)

type bookAndPayRequest struct {
	BookingIDs   []string `json:"bookingIds"`
	PaymentToken string   `json:"paymentToken"`
}

// BookAndPay handles POST /payment/book-and-pay.
func (h Handler) BookAndPay(c *gin.Context) {
	id, ok := identityOrAbort(c)
	if !ok {
		return
	}
	var req bookAndPayRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	p, err := h.Settlements.Settle(c.Request.Context(), services.SettlementRequest{
		UserID:     id.UserID,
		BookingIDs: req.BookingIDs,
		Token:      req.PaymentToken,
	})
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "payment processed and bookings confirmed",
		"payment": p,
	})
}
