package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// DBCheck pings the database with a short timeout.
func (h Handler) DBCheck(c *gin.Context) {
	if h.DB == nil {
		RespondError(c, http.StatusServiceUnavailable, "database not connected", nil)
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := h.DB.PingContext(ctx); err != nil {
		RespondError(c, http.StatusServiceUnavailable, "database ping failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "database connection OK"})
}
