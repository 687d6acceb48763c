package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"courier_ledger/internal/middleware"
)

// Me returns the logged-in driver's profile and balance.
func (h *Handler) Me(c *gin.Context) {
	d, err := h.registry.Get(c.Request.Context(), c.GetString(middleware.ContextSubject))
	if err != nil {
		respondError(c, "Me", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"driver": d, "status": d.StatusLabel(), "delivery_fee": h.ledger.Fee()})
}

// MyDelivery records a completed delivery for the logged-in driver.
func (h *Handler) MyDelivery(c *gin.Context) {
	h.deliver(c, c.GetString(middleware.ContextSubject))
}

func (h *Handler) MyTransactions(c *gin.Context) {
	rows, err := h.ledger.History(c.Request.Context(), c.GetString(middleware.ContextSubject))
	if err != nil {
		respondError(c, "MyTransactions", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": rows})
}
